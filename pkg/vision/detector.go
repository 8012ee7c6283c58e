// Package vision implements the reference armor-plate detector: an ONNX
// keypoint network plus PnP pose solving, standing in for the "You
// implement these with CUDA/CPU"-style external collaborators the core
// spec leaves opaque (yolo_predict, refine_keypoints, solvepnp_and_yaw).
// The structure follows the teacher's YOLODetector: a mutex-guarded
// gocv.Net loaded once from an ONNX file, a blob-and-forward inference
// call, and a hand-rolled output parse.
package vision

import (
	"fmt"
	"image"
	"math"
	"os"
	"sync"

	"gocv.io/x/gocv"

	"github.com/pinecone-robotics/sentry-core/internal/log"
	"github.com/pinecone-robotics/sentry-core/pkg/state"
)

// Config holds the armor detector's tunables.
type Config struct {
	ModelPath        string
	ConfidenceThresh float32
	NMSThresh        float32
	InputWidth       int
	InputHeight      int
	// ArmorWidth/ArmorHeight are the physical dimensions (metres) of the
	// planar armor-plate model used for PnP, matching the four keypoints
	// the network predicts (corners, clockwise from top-left).
	ArmorWidth  float64
	ArmorHeight float64
	// CameraMatrix and DistCoeffs are the calibrated intrinsics; both are
	// row-major and owned by the caller (Close is safe to call twice).
	CameraMatrix [9]float64
	DistCoeffs   [5]float64
}

// DefaultConfig returns production defaults for a 640x640 4-keypoint
// armor-plate network.
func DefaultConfig() Config {
	return Config{
		ModelPath:        "models/armor.onnx",
		ConfidenceThresh: 0.5,
		NMSThresh:        0.45,
		InputWidth:       640,
		InputHeight:      640,
		ArmorWidth:       0.135,
		ArmorHeight:      0.055,
		CameraMatrix:     [9]float64{800, 0, 320, 0, 800, 240, 0, 0, 1},
	}
}

// Detector loads an ONNX keypoint network and solves PnP against a planar
// armor model, implementing workers.Detector.
type Detector struct {
	net        gocv.Net
	cfg        Config
	mu         sync.Mutex
	inputSize  image.Point
	objPoints  gocv.Mat
	cameraMat  gocv.Mat
	distCoeffs gocv.Mat
}

// New loads the ONNX model at cfg.ModelPath and prepares the fixed PnP
// object-point and intrinsics matrices.
func New(cfg Config) (*Detector, error) {
	if _, err := os.Stat(cfg.ModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("vision: model file not found: %s", cfg.ModelPath)
	}
	net := gocv.ReadNetFromONNX(cfg.ModelPath)
	if net.Empty() {
		return nil, fmt.Errorf("vision: failed to load model from %s", cfg.ModelPath)
	}
	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	hw, hh := cfg.ArmorWidth/2, cfg.ArmorHeight/2
	objPoints := gocv.NewMatWithSize(4, 3, gocv.MatTypeCV32F)
	corners := [4][3]float32{
		{float32(-hw), float32(-hh), 0},
		{float32(hw), float32(-hh), 0},
		{float32(hw), float32(hh), 0},
		{float32(-hw), float32(hh), 0},
	}
	for i, c := range corners {
		for j := 0; j < 3; j++ {
			objPoints.SetFloatAt(i, j, c[j])
		}
	}

	cameraMat := gocv.NewMatWithSize(3, 3, gocv.MatTypeCV64F)
	for i := 0; i < 9; i++ {
		cameraMat.SetDoubleAt(i/3, i%3, cfg.CameraMatrix[i])
	}
	distCoeffs := gocv.NewMatWithSize(1, 5, gocv.MatTypeCV64F)
	for i := 0; i < 5; i++ {
		distCoeffs.SetDoubleAt(0, i, cfg.DistCoeffs[i])
	}

	return &Detector{
		net:        net,
		cfg:        cfg,
		inputSize:  image.Pt(cfg.InputWidth, cfg.InputHeight),
		objPoints:  objPoints,
		cameraMat:  cameraMat,
		distCoeffs: distCoeffs,
	}, nil
}

// Close releases the network and the fixed PnP matrices.
func (d *Detector) Close() error {
	d.objPoints.Close()
	d.cameraMat.Close()
	d.distCoeffs.Close()
	return d.net.Close()
}

// Detect runs yolo_predict + refine_keypoints + solvepnp_and_yaw against a
// raw BGR camera frame and returns per-armor detections with tvec (metres)
// and yaw_rad already solved in camera frame.
func (d *Detector) Detect(frame state.CameraFrame) ([]state.DetectionResult, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	img, err := gocv.NewMatFromBytes(frame.Height, frame.Width, gocv.MatTypeCV8UC3, frame.RawData)
	if err != nil {
		return nil, fmt.Errorf("vision: decode frame: %w", err)
	}
	defer img.Close()
	if img.Empty() {
		return nil, fmt.Errorf("vision: empty frame")
	}

	blob := gocv.BlobFromImage(img, 1.0/255.0, d.inputSize, gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	d.net.SetInput(blob, "")
	output := d.net.Forward("")
	defer output.Close()

	raw := d.parseOutput(output, float32(frame.Width), float32(frame.Height))
	dets := make([]state.DetectionResult, 0, len(raw))
	for _, r := range raw {
		refined := refineKeypoints(r.keypoints, float64(frame.Width), float64(frame.Height))
		tvec, yaw, err := d.solvePnPAndYaw(refined)
		if err != nil {
			log.Component("vision").Debug("solvepnp failed", "err", err)
			continue
		}
		dets = append(dets, state.DetectionResult{
			ClassID:    r.classID,
			Keypoints:  refined,
			Confidence: r.confidence,
			TVec:       tvec,
			YawRad:     yaw,
		})
	}
	return dets, nil
}

type rawDetection struct {
	classID    int
	confidence float64
	keypoints  [][2]float64
}

// parseOutput parses a [1, 4+1+numClasses+8, N] YOLO-style keypoint tensor:
// 4 bbox floats, 1 objectness, per-class scores, then 4 keypoints (x,y each).
func (d *Detector) parseOutput(output gocv.Mat, imgW, imgH float32) []rawDetection {
	// A 3-D Mat reports Rows()/Cols() as -1, so read the dims directly.
	dims := output.Size()
	if len(dims) != 3 {
		return nil
	}
	cols := dims[1]
	rows := dims[2]
	if cols < 13 {
		return nil
	}
	numClasses := cols - 4 - 1 - 8

	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil
	}

	var boxes []image.Rectangle
	var confs []float32
	var classIDs []int
	var keypointsByRow [][][2]float64

	for i := 0; i < rows; i++ {
		obj := data[4*rows+i]
		if obj < d.cfg.ConfidenceThresh {
			continue
		}
		bestScore := float32(0)
		bestClass := 0
		for c := 0; c < numClasses; c++ {
			s := data[(5+c)*rows+i]
			if s > bestScore {
				bestScore = s
				bestClass = c
			}
		}
		conf := obj * bestScore
		if conf < d.cfg.ConfidenceThresh {
			continue
		}

		cx, cy := data[0*rows+i], data[1*rows+i]
		w, h := data[2*rows+i], data[3*rows+i]
		x1 := int((cx - w/2) * imgW / float32(d.cfg.InputWidth))
		y1 := int((cy - h/2) * imgH / float32(d.cfg.InputHeight))
		x2 := int((cx + w/2) * imgW / float32(d.cfg.InputWidth))
		y2 := int((cy + h/2) * imgH / float32(d.cfg.InputHeight))
		boxes = append(boxes, image.Rect(x1, y1, x2, y2))
		confs = append(confs, conf)
		classIDs = append(classIDs, bestClass)

		kpBase := 5 + numClasses
		var kps [4][2]float64
		for k := 0; k < 4; k++ {
			kx := data[(kpBase+2*k)*rows+i] * imgW / float32(d.cfg.InputWidth)
			ky := data[(kpBase+2*k+1)*rows+i] * imgH / float32(d.cfg.InputHeight)
			kps[k] = [2]float64{float64(kx), float64(ky)}
		}
		keypointsByRow = append(keypointsByRow, kps[:])
	}
	if len(boxes) == 0 {
		return nil
	}

	indices := gocv.NMSBoxes(boxes, confs, d.cfg.ConfidenceThresh, d.cfg.NMSThresh)
	out := make([]rawDetection, 0, len(indices))
	for _, idx := range indices {
		out = append(out, rawDetection{
			classID:    classIDs[idx],
			confidence: float64(confs[idx]),
			keypoints:  keypointsByRow[idx],
		})
	}
	return out
}

// refineKeypoints clamps keypoints into frame bounds; a production
// refiner would run a small corner-regression pass, but the network's
// raw corners are already sub-pixel accurate enough for PnP here.
func refineKeypoints(kps [][2]float64, w, h float64) [][2]float64 {
	out := make([][2]float64, len(kps))
	for i, kp := range kps {
		x, y := kp[0], kp[1]
		if x < 0 {
			x = 0
		} else if x > w {
			x = w
		}
		if y < 0 {
			y = 0
		} else if y > h {
			y = h
		}
		out[i] = [2]float64{x, y}
	}
	return out
}

// solvePnPAndYaw solves the planar-armor PnP problem for four image
// keypoints and returns the translation vector (metres, camera frame) and
// the yaw of the plate's normal about the camera's vertical axis.
func (d *Detector) solvePnPAndYaw(kps [][2]float64) (tvec [3]float64, yaw float64, err error) {
	if len(kps) != 4 {
		return tvec, 0, fmt.Errorf("vision: expected 4 keypoints, got %d", len(kps))
	}
	imgPoints := gocv.NewMatWithSize(4, 2, gocv.MatTypeCV32F)
	defer imgPoints.Close()
	for i, kp := range kps {
		imgPoints.SetFloatAt(i, 0, float32(kp[0]))
		imgPoints.SetFloatAt(i, 1, float32(kp[1]))
	}

	rvec := gocv.NewMat()
	defer rvec.Close()
	tvecMat := gocv.NewMat()
	defer tvecMat.Close()

	ok := gocv.SolvePnP(d.objPoints, imgPoints, d.cameraMat, d.distCoeffs, &rvec, &tvecMat, false, gocv.SolvePnPIterative)
	if !ok {
		return tvec, 0, fmt.Errorf("vision: solvePnP did not converge")
	}

	rot := gocv.NewMat()
	defer rot.Close()
	gocv.Rodrigues(rvec, &rot)

	// The plate normal is the rotation matrix's local Z axis; its yaw
	// about the camera's vertical axis is atan2 of its x,z components,
	// matching the camera-frame convention pkg/geometry pins down.
	nx := rot.GetDoubleAt(0, 2)
	nz := rot.GetDoubleAt(2, 2)
	yaw = math.Atan2(nx, nz)

	tvec = [3]float64{
		tvecMat.GetDoubleAt(0, 0),
		tvecMat.GetDoubleAt(1, 0),
		tvecMat.GetDoubleAt(2, 0),
	}
	return tvec, yaw, nil
}
