package workers

import (
	"math"
	"time"

	"context"

	"github.com/pinecone-robotics/sentry-core/internal/log"
	"github.com/pinecone-robotics/sentry-core/pkg/geometry"
	"github.com/pinecone-robotics/sentry-core/pkg/gimbal"
	"github.com/pinecone-robotics/sentry-core/pkg/prediction"
	"github.com/pinecone-robotics/sentry-core/pkg/registry"
	"github.com/pinecone-robotics/sentry-core/pkg/state"
)

// GimbalActuationSeconds is a fixed budget added to the lead-time estimate
// for mechanical gimbal slew, on top of the measured processing latency.
const GimbalActuationSeconds = 0.02

// PredictionWorker is pf-edge-triggered. It converges the lead-time fixed
// point, applies ballistic drop and the gimbal-limit policy, and decides
// fire/chase/aim for the cycle.
type PredictionWorker struct {
	Shared  *registry.SharedLatest
	Scalars *registry.SharedScalars
	Limits  gimbal.Limits

	lastPFVer      uint64
	processingTime float64
	bulletSpeed    float64
	lastCycle      time.Time
}

// Run blocks, publishing PredictionOut until ctx is cancelled.
func (w *PredictionWorker) Run(ctx context.Context) {
	logger := log.Component("prediction")
	logger.Info("started")
	defer func() {
		logger.Info("stopped", "version", w.Shared.Prediction.Version())
	}()

	for {
		_, alive := waitForEdge(ctx, w.lastPFVer, w.Shared.PF.Version)
		if !alive {
			return
		}
		start := time.Now()

		rs, ver, ok := w.Shared.PF.Snapshot()
		if !ok {
			continue
		}
		w.lastPFVer = ver

		measSpeed := w.Scalars.BulletSpeed()
		if measSpeed <= 0 {
			measSpeed = 20 // conservative default until USB RX has a reading
		}
		if w.bulletSpeed <= 0 {
			w.bulletSpeed = measSpeed
		}
		w.bulletSpeed = prediction.Filter(w.bulletSpeed, measSpeed, prediction.AlphaBulletSpeed)
		bulletSpeed := w.bulletSpeed

		imuYaw, imuPitch := 0.0, 0.0
		if imu, _, ok := w.Shared.IMU.Snapshot(); ok {
			imuYaw = geometry.DegToRad(imu.EulerAngle.Yaw)
			imuPitch = geometry.DegToRad(imu.EulerAngle.Pitch)
		}

		_, worldPos := prediction.ConvergeLeadTime(rs.State, bulletSpeed, w.processingTime, GimbalActuationSeconds)

		camPos := geometry.RWorld2Cam(imuYaw, imuPitch).Apply(worldPos)
		camDist := math.Sqrt(camPos[0]*camPos[0] + camPos[1]*camPos[1] + camPos[2]*camPos[2])
		drop := prediction.BallisticDrop(camDist, bulletSpeed)
		camPos[1] += drop

		yawCmd, pitchCmd := prediction.GimbalCorrection(camPos)
		yawCmd, pitchCmd = w.Limits.Clamp(yawCmd, pitchCmd)

		out := state.PredictionOut{
			YawCmd:    yawCmd,
			PitchCmd:  pitchCmd,
			Fire:      prediction.ShouldFire(camPos),
			Chase:     camPos[2] > prediction.ChaseThreshold,
			Aim:       true,
			Timestamp: time.Now(),
		}
		w.Shared.Prediction.Publish(out)

		elapsed := time.Since(start).Seconds()
		w.processingTime = prediction.Filter(w.processingTime, elapsed, prediction.AlphaProcessingTime)
		w.lastCycle = start
	}
}
