package coords

// ZoomMode is a named policy for deriving the current scale factor.
type ZoomMode string

const (
	ZoomFitWidth   ZoomMode = "fit-width"
	ZoomActualSize ZoomMode = "actual-size"
	ZoomCustom     ZoomMode = "custom"
)

// Valid reports whether m is one of the known modes.
func (m ZoomMode) Valid() bool {
	switch m {
	case ZoomFitWidth, ZoomActualSize, ZoomCustom:
		return true
	}
	return false
}

// Clamp bounds explicit zoom scales. Deployments disagree on how far users
// may zoom, so the bounds are configuration rather than constants.
type Clamp struct {
	Min, Max float64
}

// DefaultClamp matches the widest observed deployment.
func DefaultClamp() Clamp { return Clamp{Min: 0.25, Max: 4.0} }

// NarrowClamp matches the conservative deployment.
func NarrowClamp() Clamp { return Clamp{Min: 0.5, Max: 3.0} }

// Apply clamps s into [Min, Max]. A zero-valued Clamp passes s through.
func (c Clamp) Apply(s float64) float64 {
	if c.Min == 0 && c.Max == 0 {
		return s
	}
	if s < c.Min {
		return c.Min
	}
	if s > c.Max {
		return c.Max
	}
	return s
}

// ZoomEnv is the viewport geometry a scale resolution needs.
type ZoomEnv struct {
	// ContainerWidth and Padding are in device pixels.
	ContainerWidth, Padding float64
	// PageWidth is the page width in device pixels at scale 1.
	PageWidth float64
}

// ResolveScale computes the scale factor for a zoom mode.
//
//	fit-width:   (containerWidth - padding) / pageWidthAtScale1
//	actual-size: 1.0 (one device pixel per rendering unit)
//	custom:      explicit, clamped
func ResolveScale(mode ZoomMode, explicit float64, env ZoomEnv, clamp Clamp) float64 {
	switch mode {
	case ZoomFitWidth:
		if env.PageWidth <= 0 {
			return 1.0
		}
		return (env.ContainerWidth - env.Padding) / env.PageWidth
	case ZoomActualSize:
		return 1.0
	default:
		return clamp.Apply(explicit)
	}
}
