package workers

import (
	"context"
	"time"

	"github.com/pinecone-robotics/sentry-core/internal/log"
	"github.com/pinecone-robotics/sentry-core/pkg/registry"
	"github.com/pinecone-robotics/sentry-core/pkg/state"
)

// CameraSource is the external camera SDK collaborator: grab fills a frame
// buffer and reports whether a new frame was captured. The core times the
// frame on return, per the external-interfaces contract.
type CameraSource interface {
	Grab() (width, height int, raw []byte, ok bool)
}

// CameraWorker publishes CameraFrame snapshots as fast as the SDK delivers
// them; it has no fixed rate of its own.
type CameraWorker struct {
	Source CameraSource
	Shared *registry.SharedLatest
}

// Run blocks, publishing frames until ctx is cancelled.
func (w *CameraWorker) Run(ctx context.Context) {
	logger := log.Component("camera")
	logger.Info("started")
	for {
		select {
		case <-ctx.Done():
			logger.Info("stopped", "version", w.Shared.Camera.Version())
			return
		default:
		}

		width, height, raw, ok := w.Source.Grab()
		if !ok {
			logger.Warn("grab failed, retrying")
			select {
			case <-ctx.Done():
				logger.Info("stopped", "version", w.Shared.Camera.Version())
				return
			case <-time.After(edgeBackoff):
			}
			continue
		}

		w.Shared.Camera.Publish(state.CameraFrame{
			Timestamp: time.Now(),
			Width:     width,
			Height:    height,
			RawData:   raw,
		})
	}
}
