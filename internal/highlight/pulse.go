package highlight

// Pulse animation constants. Dimensions are in symbol units.
const (
	GrowthStep   = 10.0
	OpacityStep  = 0.01
	MaxDimension = 1000.0
	MinDimension = 1.0

	// The pulse flashes back to fully opaque while the previous
	// dimension lies strictly inside (flashLow, flashHigh).
	flashLow  = 10.0
	flashHigh = 30.0
)

// Pulse is the animation state: the symbol dimension (width, height and
// depth together) and the overlay opacity.
type Pulse struct {
	Dimension float64
	Opacity   float32
}

// Next returns the state after one tick. The dimension grows by
// GrowthStep while the opacity fades by OpacityStep until MaxDimension,
// then snaps back to MinDimension to start the next cycle.
func (p Pulse) Next() Pulse {
	next := p
	if p.Dimension < MaxDimension {
		next.Dimension += GrowthStep
		next.Opacity -= OpacityStep
	} else {
		next.Dimension = MinDimension
	}

	if p.Dimension > flashLow && p.Dimension < flashHigh {
		next.Opacity = 1
	}

	switch {
	case next.Opacity < 0:
		next.Opacity = 0
	case next.Opacity > 1:
		next.Opacity = 1
	}
	return next
}
