// Command sentry-calibrate is the one-shot, out-of-band gimbal calibration
// tool: it guides an operator through recording the pitch axis' mechanical
// minimum and maximum, takes the median of 50 samples at each stop, and
// writes the resulting limits as a gimbal: block (the keys cmd/sentry reads)
// to a standalone YAML artifact, config/gimbal.yaml by default. It does not
// merge them into the runtime's own config file.
package main

import (
	"bufio"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/stat"
	"gopkg.in/yaml.v3"

	"github.com/pinecone-robotics/sentry-core/pkg/gimbal"
)

const samplesPerStop = 50

// PitchSource is the IMU (or gimbal encoder) collaborator supplying a
// single pitch reading in radians.
type PitchSource interface {
	ReadPitch() (float64, bool)
}

var (
	outPath      string
	safetyMargin float64
)

func main() {
	root := &cobra.Command{
		Use:   "sentry-calibrate",
		Short: "Guided recording of gimbal pitch limits",
		RunE:  run,
	}
	root.Flags().StringVar(&outPath, "out", "config/gimbal.yaml", "path to write the calibration artifact")
	root.Flags().Float64Var(&safetyMargin, "safety-margin", gimbal.DefaultLimits().SafetyMargin, "safety margin in radians applied at runtime")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	source := stdinPitchSource{r: bufio.NewReader(os.Stdin), w: os.Stdout}

	fmt.Println("Move the gimbal to its minimum pitch stop, hold it steady, then press Enter.")
	waitForEnter(source.r)
	pitchMin, err := recordMedianPitch(source)
	if err != nil {
		return err
	}
	fmt.Printf("Recorded pitch_min = %.4f rad\n", pitchMin)

	fmt.Println("Move the gimbal to its maximum pitch stop, hold it steady, then press Enter.")
	waitForEnter(source.r)
	pitchMax, err := recordMedianPitch(source)
	if err != nil {
		return err
	}
	fmt.Printf("Recorded pitch_max = %.4f rad\n", pitchMax)

	if pitchMin > pitchMax {
		pitchMin, pitchMax = pitchMax, pitchMin
	}

	limits := gimbal.Limits{
		PitchMin:     pitchMin,
		PitchMax:     pitchMax,
		HasYawLimits: false,
		SafetyMargin: safetyMargin,
	}
	return writeArtifact(outPath, limits)
}

// recordMedianPitch takes samplesPerStop readings and returns their median,
// per the "median of 50 samples" calibration policy.
func recordMedianPitch(source PitchSource) (float64, error) {
	samples := make([]float64, 0, samplesPerStop)
	for len(samples) < samplesPerStop {
		v, ok := source.ReadPitch()
		if !ok {
			continue
		}
		samples = append(samples, v)
	}
	sort.Float64s(samples)
	return stat.Quantile(0.5, stat.Empirical, samples, nil), nil
}

func writeArtifact(path string, limits gimbal.Limits) error {
	doc := map[string]any{
		"gimbal": map[string]any{
			"pitch_min":      limits.PitchMin,
			"pitch_max":      limits.PitchMax,
			"yaw_min":        limits.YawMin,
			"yaw_max":        limits.YawMax,
			"has_yaw_limits": limits.HasYawLimits,
			"safety_margin":  limits.SafetyMargin,
		},
	}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("sentry-calibrate: marshal artifact: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("sentry-calibrate: write %s: %w", path, err)
	}
	fmt.Printf("Wrote calibration artifact to %s\n", path)
	return nil
}

func waitForEnter(r *bufio.Reader) {
	r.ReadString('\n')
}

// stdinPitchSource reads a manually-typed pitch value from the operator on
// each call, standing in for the IMU/encoder collaborator this tool would
// normally poll in a real deployment.
type stdinPitchSource struct {
	r *bufio.Reader
	w *os.File
}

func (s stdinPitchSource) ReadPitch() (float64, bool) {
	fmt.Fprint(s.w, "pitch (rad): ")
	line, err := s.r.ReadString('\n')
	if err != nil {
		return 0, false
	}
	var v float64
	if _, err := fmt.Sscanf(line, "%f", &v); err != nil {
		return 0, false
	}
	return v, true
}
