package scratch

// Alpha-beta filter defaults.
const (
	DefaultAlpha = 1.0 / 8
	DefaultBeta  = DefaultAlpha / 32
)

// AlphaBetaFilter tracks position and velocity from noisy position deltas.
// The zero value must be initialised with Init.
type AlphaBetaFilter struct {
	dt    float64
	x     float64
	v     float64
	alpha float64
	beta  float64
}

// Init resets the filter to velocity v with time step dt. Zero alpha or
// beta select the defaults.
func (f *AlphaBetaFilter) Init(dt, v, alpha, beta float64) {
	if alpha == 0 {
		alpha = DefaultAlpha
	}
	if beta == 0 {
		beta = DefaultBeta
	}
	f.dt = dt
	f.x = 0
	f.v = v
	f.alpha = alpha
	f.beta = beta
}

// Observation feeds the distance moved since the previous observation.
func (f *AlphaBetaFilter) Observation(dx float64) {
	predictedX := f.x + f.v*f.dt
	residual := dx - predictedX
	f.x = predictedX + residual*f.alpha
	f.v += residual * (f.beta / f.dt)
	f.x -= dx
}

// PredictedVelocity returns the current velocity estimate.
func (f *AlphaBetaFilter) PredictedVelocity() float64 { return f.v }

// PredictedPosition returns the position residue relative to the last
// observation.
func (f *AlphaBetaFilter) PredictedPosition() float64 { return f.x }
