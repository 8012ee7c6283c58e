package workers

import (
	"context"
	"time"

	"github.com/pinecone-robotics/sentry-core/internal/log"
	"github.com/pinecone-robotics/sentry-core/pkg/registry"
	"github.com/pinecone-robotics/sentry-core/pkg/state"
)

// IMUSource is the external IMU driver collaborator: read fills the world
// frame Euler angle, in degrees, and a driver timestamp.
type IMUSource interface {
	Read() (rollDeg, pitchDeg, yawDeg, driverTime float64, ok bool)
}

// IMUWorker publishes IMUState snapshots as fast as the driver delivers
// them. EulerAngle is published in degrees, matching the wire format;
// consumers convert to radians at the point of use.
type IMUWorker struct {
	Source IMUSource
	Shared *registry.SharedLatest
}

// Run blocks, publishing IMU states until ctx is cancelled.
func (w *IMUWorker) Run(ctx context.Context) {
	logger := log.Component("imu")
	logger.Info("started")
	for {
		select {
		case <-ctx.Done():
			logger.Info("stopped", "version", w.Shared.IMU.Version())
			return
		default:
		}

		roll, pitch, yaw, t, ok := w.Source.Read()
		if !ok {
			logger.Warn("read failed, retrying")
			select {
			case <-ctx.Done():
				logger.Info("stopped", "version", w.Shared.IMU.Version())
				return
			case <-time.After(edgeBackoff):
			}
			continue
		}

		w.Shared.IMU.Publish(state.IMUState{
			Timestamp: time.Now(),
			Time:      t,
			EulerAngle: state.EulerAngle{
				Roll:  roll,
				Pitch: pitch,
				Yaw:   yaw,
			},
		})
	}
}
