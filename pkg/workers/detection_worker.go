package workers

import (
	"context"
	"time"

	"github.com/pinecone-robotics/sentry-core/internal/log"
	"github.com/pinecone-robotics/sentry-core/pkg/geometry"
	"github.com/pinecone-robotics/sentry-core/pkg/registry"
	"github.com/pinecone-robotics/sentry-core/pkg/state"
	"github.com/pinecone-robotics/sentry-core/pkg/vision/armor"
)

// Detector is the external vision collaborator, collapsing
// yolo_predict + refine_keypoints + solvepnp_and_yaw into one call: it
// returns per-armor detections with tvec (metres) and yaw_rad already
// solved in camera frame.
type Detector interface {
	Detect(frame state.CameraFrame) ([]state.DetectionResult, error)
}

// DetectionWorker is edge-triggered on camera.version. It transforms
// camera-frame detections to world frame (only when an IMU sample is
// available), groups them by robot, runs them through the tracked-id
// selector, and reconstructs a RobotState from whichever armors survive.
type DetectionWorker struct {
	Detector Detector
	Selector *armor.Selector
	Shared   *registry.SharedLatest

	lastCameraVer uint64
	lastCycle     time.Time
	prior         *state.RobotState
}

// Run blocks, publishing RobotState detections until ctx is cancelled.
func (w *DetectionWorker) Run(ctx context.Context) {
	logger := log.Component("detection")
	logger.Info("started")
	defer func() {
		logger.Info("stopped", "version", w.Shared.Detection.Version())
	}()

	for {
		_, alive := waitForEdge(ctx, w.lastCameraVer, w.Shared.Camera.Version)
		if !alive {
			return
		}
		frame, ver, ok := w.Shared.Camera.Snapshot()
		if !ok {
			continue
		}
		w.lastCameraVer = ver

		now := time.Now()
		dt := 0.0
		if !w.lastCycle.IsZero() {
			dt = now.Sub(w.lastCycle).Seconds()
		}
		w.lastCycle = now

		dets, err := w.Detector.Detect(frame)
		if err != nil {
			logger.Warn("detect failed", "err", err)
			continue
		}

		dets = w.transformToWorld(dets)

		groups := armor.GroupByClass(dets)
		selected := w.Selector.Update(groups, dt)
		if len(selected) == 0 {
			continue
		}

		rs := w.formRobot(selected, frame.Timestamp)
		w.prior = &rs
		w.Shared.Detection.Publish(rs)
	}
}

// transformToWorld rotates each detection's tvec and yaw into world frame
// using the latest IMU sample, if one has been published; camera-frame
// values pass through unchanged otherwise, per the external-interfaces
// contract ("rotated to world frame before grouping" -- only possible with
// an orientation to rotate by).
func (w *DetectionWorker) transformToWorld(dets []state.DetectionResult) []state.DetectionResult {
	imu, _, ok := w.Shared.IMU.Snapshot()
	if !ok {
		return dets
	}
	imuYaw := geometry.DegToRad(imu.EulerAngle.Yaw)
	imuPitch := geometry.DegToRad(imu.EulerAngle.Pitch)
	r := geometry.RCam2World(imuYaw, imuPitch)
	out := make([]state.DetectionResult, len(dets))
	for i, d := range dets {
		d.TVec = r.Apply(d.TVec)
		d.YawRad = geometry.WrapPi(d.YawRad + imuYaw)
		out[i] = d
	}
	return out
}

// formRobot reconstructs a RobotState from the 1 or 2 armors the selector
// chose to emit this cycle.
func (w *DetectionWorker) formRobot(dets []state.DetectionResult, frameTimestamp time.Time) state.RobotState {
	var rs state.RobotState
	switch len(dets) {
	case 1:
		rs = armor.FromOneArmor(w.prior, dets[0])
	default:
		rs = armor.FromTwoArmors(dets[0], dets[1])
	}
	rs.Timestamp = frameTimestamp
	rs.PFState = state.PFTrack
	if w.prior == nil {
		rs.PFState = state.PFReset
	}
	return rs
}
