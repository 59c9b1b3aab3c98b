package anpr

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gatevision/platewatch/internal/geometry"
)

// ROIGate decides whether a detection sits inside the configured
// scanning region. The rectangle is replaceable at runtime and persists
// to a JSON file so it survives restarts.
//
// Policy: when no ROI is configured, gating is disabled and every
// detection is eligible for recognition. Ratio still reports 0 in that
// case so callers can distinguish "no region" from "fully inside".
type ROIGate struct {
	mu        sync.RWMutex
	roi       *geometry.Box
	threshold float64
	path      string
}

// roiFile is the persisted JSON shape: {"roi": [x1, y1, x2, y2]}.
type roiFile struct {
	ROI [4]int `json:"roi"`
}

// NewROIGate creates a gate with the given intersection threshold. If
// path is non-empty and the file exists, the persisted rectangle is
// loaded; a missing file simply means no ROI is configured yet.
func NewROIGate(threshold float64, path string) (*ROIGate, error) {
	g := &ROIGate{threshold: threshold, path: path}

	if path == "" {
		return g, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return g, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read ROI file: %w", err)
	}

	var f roiFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse ROI file: %w", err)
	}
	box := geometry.NewBox(f.ROI[0], f.ROI[1], f.ROI[2], f.ROI[3])
	if box.Empty() {
		return nil, fmt.Errorf("persisted ROI %v is degenerate", f.ROI)
	}
	g.roi = &box
	return g, nil
}

// Ratio returns area(roi ∩ box) / area(box), or 0 when no ROI is
// configured or the rectangles do not overlap.
func (g *ROIGate) Ratio(box geometry.Box) float64 {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if g.roi == nil {
		return 0
	}
	return geometry.IntersectionRatio(*g.roi, box)
}

// Allows reports whether the detection passes gating: its intersection
// ratio exceeds the threshold, or no ROI is configured at all.
func (g *ROIGate) Allows(box geometry.Box) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if g.roi == nil {
		return true
	}
	return geometry.IntersectionRatio(*g.roi, box) > g.threshold
}

// Get returns the configured rectangle, or false when none is set.
func (g *ROIGate) Get() (geometry.Box, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if g.roi == nil {
		return geometry.Box{}, false
	}
	return *g.roi, true
}

// Set replaces the rectangle at runtime and persists it. The pipeline
// picks up the new region on the next frame without restarting.
func (g *ROIGate) Set(box geometry.Box) error {
	if box.Empty() {
		return fmt.Errorf("ROI %+v is degenerate", box)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.roi = &box
	return g.persist()
}

// Clear removes the rectangle, disabling gating, and deletes the
// persisted file.
func (g *ROIGate) Clear() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.roi = nil
	if g.path == "" {
		return nil
	}
	if err := os.Remove(g.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove ROI file: %w", err)
	}
	return nil
}

// persist writes the current rectangle to disk. Caller holds g.mu.
func (g *ROIGate) persist() error {
	if g.path == "" || g.roi == nil {
		return nil
	}
	if dir := filepath.Dir(g.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create ROI dir: %w", err)
		}
	}
	data, err := json.Marshal(roiFile{ROI: [4]int{g.roi.X1, g.roi.Y1, g.roi.X2, g.roi.Y2}})
	if err != nil {
		return err
	}
	if err := os.WriteFile(g.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write ROI file: %w", err)
	}
	return nil
}
