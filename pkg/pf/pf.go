// Package pf implements the Rao-Blackwellised particle filter kernel behind
// the prediction pipeline's (reset, predict, step, mean) interface. The
// original source declares gpu_pf_init/gpu_pf_reset/gpu_pf_predict_only/
// gpu_pf_step as CUDA-kernel stand-ins ("You implement these with CUDA/CPU");
// this is the CPU reference implementation, using gonum for the noise draws
// and the cumulative weight sum of systematic resampling.
package pf

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/pinecone-robotics/sentry-core/pkg/state"
)

// DefaultParticleCount is the reference particle count used when a Config
// does not override it.
const DefaultParticleCount = 10000

// Config tunes the CPU particle filter kernel.
type Config struct {
	// ParticleCount is the number of particles maintained per filter.
	ParticleCount int
	// ProcessStd is the per-dimension process noise standard deviation
	// applied to velocity/acceleration terms on predict.
	ProcessStd [15]float64
	// MeasurementStd is the per-dimension measurement noise standard
	// deviation used to weight particles against a measurement on step.
	MeasurementStd [15]float64
	// Source seeds the noise generator. A nil Source falls back to a new
	// source with the fixed seed 1.
	Source rand.Source
}

// DefaultConfig returns a Config with the reference particle count and
// mild process/measurement noise on the kinematic terms only (position,
// velocity, acceleration, yaw, yaw-rate, yaw-accel); the ring radii and
// height are treated as calibrated constants and carried unperturbed.
func DefaultConfig() Config {
	var proc, meas [15]float64
	for _, i := range []int{state.IVX, state.IVY, state.IVZ} {
		proc[i] = 0.5
	}
	for _, i := range []int{state.IAX, state.IAY, state.IAZ} {
		proc[i] = 1.0
	}
	proc[state.IYawRate] = 0.5
	proc[state.IYawAcc] = 1.0
	for _, i := range []int{state.IX, state.IY, state.IZ, state.IYaw} {
		meas[i] = 0.05
	}
	return Config{
		ParticleCount:  DefaultParticleCount,
		ProcessStd:     proc,
		MeasurementStd: meas,
	}
}

// Filter is a per-robot particle cloud approximating the posterior over the
// 15-dimensional RobotState.State vector.
type Filter struct {
	cfg       Config
	rng       *rand.Rand
	particles [][15]float64
	weights   []float64
	classID   int
}

// New constructs an unseeded Filter; call Reset with a measurement before
// the first Predict/Step to give the cloud a starting location.
func New(cfg Config) *Filter {
	src := cfg.Source
	if src == nil {
		src = rand.NewSource(1)
	}
	n := cfg.ParticleCount
	if n <= 0 {
		n = DefaultParticleCount
	}
	cfg.ParticleCount = n
	return &Filter{
		cfg:       cfg,
		rng:       rand.New(src),
		particles: make([][15]float64, n),
		weights:   make([]float64, n),
	}
}

// Reset reinitialises the particle cloud tightly around meas, matching
// gpu_pf_reset's role: called whenever a detection carries state.PFReset.
func (f *Filter) Reset(meas state.RobotState) {
	f.classID = meas.ClassID
	for i := range f.particles {
		f.particles[i] = meas.State
		f.weights[i] = 1.0 / float64(len(f.particles))
	}
}

// Predict advances every particle by dt seconds under the motion model with
// injected process noise, without incorporating a measurement. This backs
// gpu_pf_predict_only, used on cycles where no fresh detection has arrived.
func (f *Filter) Predict(dt float64) state.RobotState {
	f.propagate(dt)
	return f.mean()
}

// Step advances the cloud by dt and then reweights against meas using a
// Gaussian measurement model before resampling, backing gpu_pf_step.
func (f *Filter) Step(meas state.RobotState, dt float64) state.RobotState {
	if meas.PFState == state.PFReset {
		f.Reset(meas)
	}
	f.propagate(dt)
	f.reweight(meas.State)
	f.resample()
	out := f.mean()
	out.ClassID = meas.ClassID
	return out
}

func (f *Filter) propagate(dt float64) {
	for i := range f.particles {
		p := f.particles[i]
		tt := dt * dt
		p[state.IX] += p[state.IVX]*dt + 0.5*p[state.IAX]*tt
		p[state.IY] += p[state.IVY]*dt + 0.5*p[state.IAY]*tt
		p[state.IZ] += p[state.IVZ]*dt + 0.5*p[state.IAZ]*tt
		p[state.IYaw] += p[state.IYawRate]*dt + 0.5*p[state.IYawAcc]*tt
		p[state.IVX] += p[state.IAX] * dt
		p[state.IVY] += p[state.IAY] * dt
		p[state.IVZ] += p[state.IAZ] * dt
		p[state.IYawRate] += p[state.IYawAcc] * dt

		for j := 0; j < 15; j++ {
			if std := f.cfg.ProcessStd[j]; std > 0 {
				n := distuv.Normal{Mu: 0, Sigma: std, Src: f.rng}
				p[j] += n.Rand()
			}
		}
		f.particles[i] = p
	}
}

func (f *Filter) reweight(meas [15]float64) {
	total := 0.0
	for i, p := range f.particles {
		logw := 0.0
		for j := 0; j < 15; j++ {
			std := f.cfg.MeasurementStd[j]
			if std <= 0 {
				continue
			}
			d := p[j] - meas[j]
			logw += -0.5 * (d * d) / (std * std)
		}
		w := math.Exp(logw)
		f.weights[i] = w
		total += w
	}
	if total <= 0 {
		// Every particle scored zero: measurement is far from the cloud.
		// Fall back to uniform weights rather than dividing by zero.
		for i := range f.weights {
			f.weights[i] = 1.0 / float64(len(f.weights))
		}
		return
	}
	for i := range f.weights {
		f.weights[i] /= total
	}
}

// resample performs systematic resampling, the standard low-variance choice
// for particle filters, redrawing the cloud proportional to weight.
func (f *Filter) resample() {
	n := len(f.particles)
	cum := make([]float64, n)
	floats.CumSum(cum, f.weights)

	next := make([][15]float64, n)
	start := f.rng.Float64() / float64(n)
	j := 0
	for i := 0; i < n; i++ {
		target := start + float64(i)/float64(n)
		for j < n-1 && cum[j] < target {
			j++
		}
		next[i] = f.particles[j]
	}
	f.particles = next
	for i := range f.weights {
		f.weights[i] = 1.0 / float64(n)
	}
}

// mean returns the weighted mean particle as a RobotState, the Rao-
// Blackwellised point estimate consumed downstream by prediction.
func (f *Filter) mean() state.RobotState {
	var sum [15]float64
	for i, p := range f.particles {
		w := f.weights[i]
		for j := 0; j < 15; j++ {
			sum[j] += w * p[j]
		}
	}
	return state.RobotState{
		State:   sum,
		ClassID: f.classID,
	}
}
