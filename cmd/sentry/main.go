// Command sentry runs the six-worker aim-and-fire pipeline: Camera, IMU,
// Detection, particle filter, Prediction and USB TX/RX, wired together
// through the shared lock-free registry.
package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pinecone-robotics/sentry-core/internal/config"
	"github.com/pinecone-robotics/sentry-core/internal/log"
	"github.com/pinecone-robotics/sentry-core/pkg/gimbal"
	"github.com/pinecone-robotics/sentry-core/pkg/pf"
	"github.com/pinecone-robotics/sentry-core/pkg/registry"
	"github.com/pinecone-robotics/sentry-core/pkg/serialio"
	"github.com/pinecone-robotics/sentry-core/pkg/vision"
	"github.com/pinecone-robotics/sentry-core/pkg/vision/armor"
	"github.com/pinecone-robotics/sentry-core/pkg/workers"
)

var (
	configPath string
	devicePath string
	logLevel   string
)

func main() {
	root := &cobra.Command{
		Use:   "sentry",
		Short: "Runs the aim-and-fire pipeline",
		RunE:  run,
	}
	root.Flags().StringVar(&configPath, "config", "config/sentry.yaml", "path to the YAML config file")
	root.Flags().StringVar(&devicePath, "device", "", "serial device path override (default: config usb.device_path)")
	root.Flags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	log.Init(logLevel)
	logger := log.Component("main")

	reg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	manager := log.NewManager(2)
	defer manager.Close()
	if section, ok := reg.Section("logs"); ok {
		if defs, err := log.ParseDefs(section); err != nil {
			logger.Warn("logs config malformed, keeping defaults", "err", err)
		} else if err := manager.Reload(defs); err != nil {
			logger.Warn("failed to build configured loggers, keeping defaults", "err", err)
		} else {
			log.UseManager(manager)
		}
	}
	reg.OnChange("logs", func(n config.Node) {
		defs, err := log.ParseDefs(n)
		if err != nil {
			logger.Warn("logs config reload malformed, keeping previous loggers", "err", err)
			return
		}
		if err := manager.Reload(defs); err != nil {
			logger.Warn("failed to rebuild loggers on reload", "err", err)
			return
		}
		log.UseManager(manager)
		logger.Info("loggers reloaded")
	})

	if err := reg.Watch(); err != nil {
		logger.Warn("config hot-reload unavailable", "err", err)
	} else {
		defer reg.Stop()
	}

	limits := gimbal.Limits{
		PitchMin:     reg.GetFloat("gimbal.pitch_min", gimbal.DefaultLimits().PitchMin),
		PitchMax:     reg.GetFloat("gimbal.pitch_max", gimbal.DefaultLimits().PitchMax),
		YawMin:       reg.GetFloat("gimbal.yaw_min", gimbal.DefaultLimits().YawMin),
		YawMax:       reg.GetFloat("gimbal.yaw_max", gimbal.DefaultLimits().YawMax),
		HasYawLimits: reg.GetBool("gimbal.has_yaw_limits", gimbal.DefaultLimits().HasYawLimits),
		SafetyMargin: reg.GetFloat("gimbal.safety_margin", gimbal.DefaultLimits().SafetyMargin),
	}

	path := devicePath
	if path == "" {
		path = reg.GetString("usb.device_path", serialio.DefaultDevicePath)
	}
	baud := int(reg.GetFloat("usb.baud", serialio.DefaultBaud))

	port, err := serialio.Open(path, baud)
	if err != nil {
		logger.Error("required serial channel unavailable, exiting", "err", err)
		os.Exit(1)
	}
	defer port.Close()

	detector, err := vision.New(vision.DefaultConfig())
	if err != nil {
		return err
	}
	defer detector.Close()

	shared := registry.New()
	scalars := &registry.SharedScalars{}
	scalars.SetBulletSpeed(reg.GetFloat("prediction.default_bullet_speed", 20))

	selector := armor.NewSelector(reg.GetFloat("detection.selector_ttl_seconds", 0.5))

	pfCfg := pf.DefaultConfig()
	if n := reg.GetFloat("pf.particle_count", 0); n > 0 {
		pfCfg.ParticleCount = int(n)
	}
	filter := pf.New(pfCfg)

	cameraWorker := &workers.CameraWorker{Source: nullCamera{}, Shared: shared}
	imuWorker := &workers.IMUWorker{Source: nullIMU{}, Shared: shared}
	detectionWorker := &workers.DetectionWorker{Detector: detector, Selector: selector, Shared: shared}
	pfWorker := &workers.PFWorker{Filter: filter, Shared: shared}
	predictionWorker := &workers.PredictionWorker{Shared: shared, Scalars: scalars, Limits: limits}
	usbWorker := &workers.USBWorker{Port: port, Shared: shared, Scalars: scalars}

	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	camCtx, camCancel := context.WithCancel(context.Background())
	imuCtx, imuCancel := context.WithCancel(context.Background())
	detCtx, detCancel := context.WithCancel(context.Background())
	pfCtx, pfCancel := context.WithCancel(context.Background())
	predCtx, predCancel := context.WithCancel(context.Background())
	usbCtx, usbCancel := context.WithCancel(context.Background())

	var wg sync.WaitGroup
	camDone := runWorker(&wg, camCtx, cameraWorker.Run)
	imuDone := runWorker(&wg, imuCtx, imuWorker.Run)
	detDone := runWorker(&wg, detCtx, detectionWorker.Run)
	pfDone := runWorker(&wg, pfCtx, pfWorker.Run)
	predDone := runWorker(&wg, predCtx, predictionWorker.Run)
	usbDone := runWorker(&wg, usbCtx, usbWorker.Run)

	logger.Info("pipeline started")
	<-sigCtx.Done()
	logger.Info("shutdown requested")

	// Reverse dependency order: USB -> Prediction -> PF -> Detection -> IMU/Camera.
	usbCancel()
	<-usbDone
	predCancel()
	<-predDone
	pfCancel()
	<-pfDone
	detCancel()
	<-detDone
	imuCancel()
	camCancel()
	<-imuDone
	<-camDone

	wg.Wait()
	logger.Info("shutdown complete")
	return nil
}

func runWorker(wg *sync.WaitGroup, ctx context.Context, run func(context.Context)) chan struct{} {
	done := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(done)
		run(ctx)
	}()
	return done
}

// nullCamera and nullIMU are placeholders for the SDK-specific camera and
// IMU drivers, which are external collaborators outside the core's scope.
type nullCamera struct{}

func (nullCamera) Grab() (int, int, []byte, bool) { return 0, 0, nil, false }

type nullIMU struct{}

func (nullIMU) Read() (float64, float64, float64, float64, bool) { return 0, 0, 0, 0, false }
