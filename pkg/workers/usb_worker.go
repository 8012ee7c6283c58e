package workers

import (
	"context"
	"errors"
	"log/slog"

	"github.com/pinecone-robotics/sentry-core/internal/log"
	"github.com/pinecone-robotics/sentry-core/pkg/registry"
	"github.com/pinecone-robotics/sentry-core/pkg/serialio"
)

// USBTransport is the subset of *serialio.Port the worker depends on, kept
// as an interface so tests can substitute a fake link.
type USBTransport interface {
	Send(f serialio.Frame) error
	ReadTelemetry() (serialio.TelemetryFrame, error)
}

// USBWorker is prediction-edge-triggered on the TX side. After each TX send
// it makes one telemetry read attempt and updates SharedScalars.bullet_speed
// if a frame arrived, so RX is polled at the TX cadence rather than on a
// loop of its own.
type USBWorker struct {
	Port    USBTransport
	Shared  *registry.SharedLatest
	Scalars *registry.SharedScalars

	lastPredVer uint64
}

// Run blocks, sending command frames and polling telemetry until ctx is
// cancelled.
func (w *USBWorker) Run(ctx context.Context) {
	logger := log.Component("usb")
	logger.Info("started")
	defer func() {
		logger.Info("stopped", "version", w.Shared.Prediction.Version())
	}()

	for {
		_, alive := waitForEdge(ctx, w.lastPredVer, w.Shared.Prediction.Version)
		if !alive {
			return
		}
		out, ver, ok := w.Shared.Prediction.Snapshot()
		if !ok {
			continue
		}
		w.lastPredVer = ver

		frame := serialio.Frame{
			Yaw:   float32(out.YawCmd),
			Pitch: float32(out.PitchCmd),
			Fire:  out.Fire,
		}
		if err := w.Port.Send(frame); err != nil {
			logger.Warn("send failed", "err", err)
		}

		w.pollTelemetry(logger)
	}
}

// pollTelemetry does one non-blocking attempt to read a telemetry frame;
// a timeout or malformed frame is logged and dropped, never fatal.
func (w *USBWorker) pollTelemetry(logger *slog.Logger) {
	tel, err := w.Port.ReadTelemetry()
	if err != nil {
		if errors.Is(err, errNoTelemetry) {
			return
		}
		logger.Debug("telemetry read skipped", "err", err)
		return
	}
	w.Scalars.SetBulletSpeed(float64(tel.BulletSpeed))
}

// errNoTelemetry is a sentinel a fake USBTransport can return to signal
// "nothing waiting" without it being logged as noise.
var errNoTelemetry = errors.New("serialio: no telemetry frame available")
