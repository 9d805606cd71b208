// Package device classifies the running host into a performance tier and
// derives the rendering and removal strategy flags the rest of the pipeline
// consumes.
package device

import (
	"image"
	"log"
	"os"
	"runtime"
	"sync"

	"gocv.io/x/gocv"
)

// Tier is the device performance classification.
type Tier string

const (
	TierLow    Tier = "low"
	TierMedium Tier = "medium"
	TierHigh   Tier = "high"
)

// Capabilities are the derived decisions consumers act on.
type Capabilities struct {
	Tier               Tier `json:"tier"`
	UseHighQuality     bool `json:"use_high_quality"`
	UseRealTimePreview bool `json:"use_real_time_preview"`
	LocalModelEnabled  bool `json:"local_model_enabled"`
}

// Probe is one capability signal. Probes are pluggable so targets can swap
// heuristics without touching the detector's consumers. A probe error counts
// as zero; it never fails detection.
type Probe interface {
	Name() string
	Score() (int, error)
}

// SelfTester is implemented by probes whose result also gates the local
// segmentation model. When no configured probe implements it, the gate fails
// closed and removal falls back to the remote strategy.
type SelfTester interface {
	SelfTestPassed() bool
}

// Detector classifies the device once and caches the result for the process
// lifetime.
type Detector struct {
	probes       []Probe
	tierOverride string
	modelPath    string

	once sync.Once
	caps Capabilities
}

// NewDetector builds a detector with the default probe set. tierOverride
// forces the classification when non-empty (low/medium/high).
func NewDetector(tierOverride, modelPath string) *Detector {
	return &Detector{
		probes:       []Probe{cpuProbe{}, matSelfTestProbe{}},
		tierOverride: tierOverride,
		modelPath:    modelPath,
	}
}

// NewDetectorWithProbes substitutes the probe set, for tests and alternate
// platforms.
func NewDetectorWithProbes(probes []Probe, tierOverride, modelPath string) *Detector {
	return &Detector{probes: probes, tierOverride: tierOverride, modelPath: modelPath}
}

// Detect runs the probes once and returns the cached classification on every
// later call. Any probe failure degrades toward the conservative tier instead
// of propagating.
func (d *Detector) Detect() Capabilities {
	d.once.Do(func() {
		d.caps = d.classify()
		log.Printf("device: classified as %s (high_quality=%t realtime=%t local_model=%t)",
			d.caps.Tier, d.caps.UseHighQuality, d.caps.UseRealTimePreview, d.caps.LocalModelEnabled)
	})
	return d.caps
}

// LocalModelAvailable implements the removal capability gate: the tensor
// self-test must pass and the model file must be present on disk.
func (d *Detector) LocalModelAvailable() bool {
	return d.Detect().LocalModelEnabled
}

func (d *Detector) classify() Capabilities {
	tier := TierLow

	if forced, ok := parseTier(d.tierOverride); ok {
		log.Printf("device: tier forced to %s by configuration", forced)
		tier = forced
	} else {
		total := 0
		for _, p := range d.probes {
			score, err := p.Score()
			if err != nil {
				log.Printf("device: probe %s failed, scoring 0: %v", p.Name(), err)
				continue
			}
			total += score
		}
		switch {
		case total >= 4:
			tier = TierHigh
		case total >= 2:
			tier = TierMedium
		}
	}

	return Capabilities{
		Tier:               tier,
		UseHighQuality:     tier != TierLow,
		UseRealTimePreview: tier == TierHigh,
		LocalModelEnabled:  d.selfTestPassed() && d.modelFilePresent(),
	}
}

func (d *Detector) selfTestPassed() bool {
	for _, p := range d.probes {
		if st, ok := p.(SelfTester); ok {
			return st.SelfTestPassed()
		}
	}
	return false
}

func (d *Detector) modelFilePresent() bool {
	if d.modelPath == "" {
		return false
	}
	_, err := os.Stat(d.modelPath)
	return err == nil
}

func parseTier(s string) (Tier, bool) {
	switch s {
	case string(TierLow):
		return TierLow, true
	case string(TierMedium):
		return TierMedium, true
	case string(TierHigh):
		return TierHigh, true
	}
	return TierLow, false
}

// cpuProbe scores core count: parallel decode and resampling dominate render
// cost on CPU-bound hosts.
type cpuProbe struct{}

func (cpuProbe) Name() string { return "cpu" }

func (cpuProbe) Score() (int, error) {
	n := runtime.NumCPU()
	switch {
	case n >= 8:
		return 2, nil
	case n >= 4:
		return 1, nil
	default:
		return 0, nil
	}
}

// matSelfTestProbe runs a lightweight tensor operation through the imaging
// runtime; success indicates accelerated image ops are functional.
type matSelfTestProbe struct{}

func (matSelfTestProbe) Name() string { return "mat-self-test" }

// SelfTestPassed gates the local model on the same tensor check that feeds
// the tier score.
func (p matSelfTestProbe) SelfTestPassed() bool {
	score, err := p.Score()
	return err == nil && score > 0
}

func (matSelfTestProbe) Score() (score int, err error) {
	defer func() {
		if r := recover(); r != nil {
			score = 0
			err = nil // degraded, not fatal
		}
	}()

	src := gocv.NewMatWithSize(8, 8, gocv.MatTypeCV8UC3)
	defer src.Close()
	dst := gocv.NewMat()
	defer dst.Close()

	gocv.Resize(src, &dst, image.Pt(4, 4), 0, 0, gocv.InterpolationLinear)
	if dst.Cols() != 4 || dst.Rows() != 4 {
		return 0, nil
	}
	return 2, nil
}
