// Package pitch converts pointer coordinates into pitch percentages.
package pitch

import "github.com/AlouiLouai/takwira/internal/model"

// Rect is the on-screen bounding box of the pitch surface.
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (r Rect) Empty() bool {
	return r.Width == 0 || r.Height == 0
}

// Point is a raw pointer position in screen coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Map returns the pointer position as a percentage of the rectangle, clamped
// to [model.MinCoord, model.MaxCoord] on both axes. ok is false when the
// rectangle has not been laid out yet.
func Map(p Point, r Rect) (pos model.Position, ok bool) {
	if r.Empty() {
		return model.Position{}, false
	}
	pos = model.Position{
		X: (p.X - r.Left) / r.Width * 100,
		Y: (p.Y - r.Top) / r.Height * 100,
	}
	return pos.Clamped(), true
}
