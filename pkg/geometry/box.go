// Package geometry provides axis-aligned bounding box math for detections.
package geometry

// Box is an axis-aligned bounding box in source-bitmap pixel space.
// W and H are always >= 0. Boxes are not normalized here; converting to
// frame percentages is a downstream concern.
type Box struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Area returns the area of the box.
func (b Box) Area() float64 {
	return b.W * b.H
}

// Center returns the center point of the box.
func (b Box) Center() (x, y float64) {
	return b.X + b.W/2, b.Y + b.H/2
}

// IoU computes Intersection-over-Union between two boxes.
// Returns exactly 0 for boxes that do not overlap on at least one axis,
// 1 for identical non-degenerate boxes, and 0 when the union is empty.
func IoU(a, b Box) float64 {
	ax2 := a.X + a.W
	ay2 := a.Y + a.H
	bx2 := b.X + b.W
	by2 := b.Y + b.H

	ix := min(ax2, bx2) - max(a.X, b.X)
	iy := min(ay2, by2) - max(a.Y, b.Y)
	if ix <= 0 || iy <= 0 {
		return 0
	}

	inter := ix * iy
	union := a.Area() + b.Area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// Mean returns the arithmetic mean of the boxes, averaging each
// component independently. Returns the zero box for an empty slice.
func Mean(boxes []Box) Box {
	if len(boxes) == 0 {
		return Box{}
	}
	var m Box
	for _, b := range boxes {
		m.X += b.X
		m.Y += b.Y
		m.W += b.W
		m.H += b.H
	}
	n := float64(len(boxes))
	return Box{X: m.X / n, Y: m.Y / n, W: m.W / n, H: m.H / n}
}
