package removal

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"log"
	"sync"

	"gocv.io/x/gocv"
)

const (
	segInputSize = 513
	maskOnValue  = 255
)

// CapabilityChecker gates local-model attempts; when the device cannot run
// the segmenter, attempts short-circuit without loading the full model.
type CapabilityChecker interface {
	LocalModelAvailable() bool
}

// PersonSegmenter wraps the pretrained person-segmentation network. The
// loaded network is read-only after load and safe for serialized use; Segment
// holds a lock because gocv nets are not re-entrant.
type PersonSegmenter struct {
	mu         sync.Mutex
	net        gocv.Net
	enabled    bool
	classIndex int
}

// NewPersonSegmenter loads the segmentation model, preferring CUDA and
// falling back to CPU, matching how other DNN loads in the codebase behave.
func NewPersonSegmenter(modelPath string, classIndex int) (*PersonSegmenter, error) {
	if modelPath == "" {
		return nil, fmt.Errorf("segmentation model path is empty")
	}

	net := gocv.ReadNet(modelPath, "")
	if net.Empty() {
		return nil, fmt.Errorf("failed to load segmentation model from %s", modelPath)
	}

	cudaBackendErr := net.SetPreferableBackend(gocv.NetBackendCUDA)
	cudaTargetErr := net.SetPreferableTarget(gocv.NetTargetCUDA)
	if cudaBackendErr == nil && cudaTargetErr == nil {
		log.Println("removal(local): set backend/target to CUDA")
	} else {
		net.SetPreferableBackend(gocv.NetBackendDefault)
		net.SetPreferableTarget(gocv.NetTargetCPU)
		log.Println("removal(local): set backend/target to CPU (default)")
	}

	log.Printf("removal(local): loaded person segmentation model from %s", modelPath)
	return &PersonSegmenter{net: net, enabled: true, classIndex: classIndex}, nil
}

func (s *PersonSegmenter) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.enabled {
		s.net.Close()
		s.enabled = false
		log.Println("removal(local): closed segmentation network")
	}
}

// Segment runs the network and returns a per-pixel foreground mask at the
// photo's dimensions (255 = person, 0 = background).
func (s *PersonSegmenter) Segment(img image.Image) (*image.Gray, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.enabled {
		return nil, fmt.Errorf("segmenter is closed")
	}

	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("failed to convert photo for segmentation: %w", err)
	}
	defer mat.Close()

	blob := gocv.BlobFromImage(mat, 1.0/255.0, image.Pt(segInputSize, segInputSize),
		gocv.NewScalar(0.485, 0.456, 0.406, 0), true, false)
	defer blob.Close()

	s.net.SetInput(blob, "")
	output := s.net.Forward("")
	defer output.Close()

	// output layout is [1, classes, H, W]; argmax over classes per pixel
	sizes := output.Size()
	if len(sizes) != 4 || sizes[0] != 1 {
		return nil, fmt.Errorf("unexpected segmentation output dimensions: %v", sizes)
	}
	classes, outH, outW := sizes[1], sizes[2], sizes[3]
	if s.classIndex >= classes {
		return nil, fmt.Errorf("person class index %d out of range for %d classes", s.classIndex, classes)
	}

	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("failed to read segmentation output: %w", err)
	}

	mask := image.NewGray(image.Rect(0, 0, outW, outH))
	plane := outH * outW
	for y := 0; y < outH; y++ {
		for x := 0; x < outW; x++ {
			idx := y*outW + x
			best := 0
			bestScore := data[idx]
			for c := 1; c < classes; c++ {
				if score := data[c*plane+idx]; score > bestScore {
					best = c
					bestScore = score
				}
			}
			if best == s.classIndex {
				mask.SetGray(x, y, color.Gray{Y: maskOnValue})
			}
		}
	}

	return scaleMask(mask, img.Bounds().Dx(), img.Bounds().Dy()), nil
}

// ModelCache is the process-wide lazy holder for the loaded segmenter. The
// load runs at most once; subsequent calls reuse the result until Clear.
type ModelCache struct {
	modelPath  string
	classIndex int

	mu     sync.Mutex
	loaded bool
	seg    *PersonSegmenter
	err    error
}

func NewModelCache(modelPath string, classIndex int) *ModelCache {
	return &ModelCache{modelPath: modelPath, classIndex: classIndex}
}

// Get returns the cached segmenter, loading it on first use. A failed load
// is cached too; the model is never reloaded unless Clear is called.
func (c *ModelCache) Get() (*PersonSegmenter, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.loaded {
		c.seg, c.err = NewPersonSegmenter(c.modelPath, c.classIndex)
		c.loaded = true
	}
	return c.seg, c.err
}

// Clear closes and drops the cached model so the next Get reloads it.
func (c *ModelCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.seg != nil {
		c.seg.Close()
	}
	c.seg = nil
	c.err = nil
	c.loaded = false
}

// LocalRemover runs the in-process segmentation model and makes background
// pixels transparent.
type LocalRemover struct {
	cache *ModelCache
	caps  CapabilityChecker
}

func NewLocalRemover(cache *ModelCache, caps CapabilityChecker) *LocalRemover {
	return &LocalRemover{cache: cache, caps: caps}
}

func (r *LocalRemover) Remove(ctx context.Context, img image.Image) (image.Image, error) {
	if r.caps != nil && !r.caps.LocalModelAvailable() {
		return nil, ErrModelUnavailable
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	seg, err := r.cache.Get()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}

	mask, err := seg.Segment(img)
	if err != nil {
		return nil, err
	}
	return ApplyMask(img, RefineMask(mask)), nil
}
