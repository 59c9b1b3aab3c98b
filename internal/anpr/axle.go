package anpr

import (
	"math"

	"github.com/gatevision/platewatch/internal/geometry"
)

// Axle count bounds. Every vehicle has at least two axles; implausible
// groupings beyond eight are capped rather than rejected, since a
// bounded wrong answer beats an unbounded one.
const (
	MinAxleCount = 2
	MaxAxleCount = 8
)

// vehicleWidthFactor estimates the vehicle envelope width as a multiple
// of the plate width.
const vehicleWidthFactor = 6.0

// EstimateAxles infers the axle count for the vehicle behind a plate
// detection from loosely clustered wheel detections.
//
// The vehicle envelope is estimated as vehicleWidthFactor times the
// plate width, centered on the plate's horizontal center. Wheels whose
// centers fall inside the envelope and below the plate's top edge are
// greedily clustered by vertical position: a wheel joins the first
// group whose running mean y is within half a plate height, otherwise
// it starts a new group. Each group is one axle.
//
// The per-frame estimate is noisy; callers keep the running maximum
// across frames, since occlusion makes undercounting the common error.
func EstimateAxles(plate geometry.Box, wheels []Detection) int {
	plateCenterX, _ := plate.Center()
	plateTop := float64(plate.Y1)
	plateHeight := float64(plate.Height())

	halfWidth := float64(plate.Width()) * vehicleWidthFactor / 2
	left := math.Max(0, plateCenterX-halfWidth)
	right := plateCenterX + halfWidth

	maxVerticalDist := plateHeight * 0.5

	// Each group tracks the sum and count of member y coordinates so
	// membership is tested against the running mean.
	type axleGroup struct {
		sumY  float64
		count int
	}
	var groups []*axleGroup

	for _, wheel := range wheels {
		if wheel.Class != ClassWheel {
			continue
		}
		cx, cy := wheel.Box.Center()
		if cy <= plateTop || cx < left || cx > right {
			continue
		}

		joined := false
		for _, g := range groups {
			meanY := g.sumY / float64(g.count)
			if math.Abs(cy-meanY) < maxVerticalDist {
				g.sumY += cy
				g.count++
				joined = true
				break
			}
		}
		if !joined {
			groups = append(groups, &axleGroup{sumY: cy, count: 1})
		}
	}

	axles := len(groups)
	if axles < MinAxleCount {
		axles = MinAxleCount
	}
	if axles > MaxAxleCount {
		axles = MaxAxleCount
	}
	return axles
}
