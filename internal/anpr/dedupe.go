package anpr

import (
	"sort"

	"github.com/gatevision/platewatch/internal/geometry"
)

// SuppressOverlaps reduces overlapping detections to the highest
// confidence one via greedy non-maximum suppression: detections are
// visited in descending confidence order and dropped when they overlap
// an already kept box by more than iouThreshold. The sort is stable so
// equal confidences keep their detector order.
func SuppressOverlaps(dets []Detection, iouThreshold float64) []Detection {
	if len(dets) <= 1 {
		return dets
	}

	ordered := make([]Detection, len(dets))
	copy(ordered, dets)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Confidence > ordered[j].Confidence
	})

	kept := ordered[:0]
	for _, det := range ordered {
		suppressed := false
		for _, k := range kept {
			if geometry.IoU(det.Box, k.Box) > iouThreshold {
				suppressed = true
				break
			}
		}
		if !suppressed {
			kept = append(kept, det)
		}
	}
	return kept
}
