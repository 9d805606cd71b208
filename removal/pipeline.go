package removal

import (
	"context"
	"fmt"
	"image"
	"log"
)

// Remover is one removal strategy: it takes a decoded photo and returns the
// cut-out image with the background made transparent.
type Remover interface {
	Remove(ctx context.Context, img image.Image) (image.Image, error)
}

// Options selects the strategy for a single removal call.
type Options struct {
	Method               Method
	FallbackToLocalModel bool
}

// Result carries the cut-out and the method that actually produced it, which
// differs from the requested method after a fallback.
type Result struct {
	Method Method
	Image  image.Image
}

// Pipeline dispatches removal calls to the configured strategies with the
// retry-once local fallback policy. Calls are not cancellable mid-flight;
// abandoning a call just discards its result.
type Pipeline struct {
	remote Remover
	local  Remover
}

func NewPipeline(remote, local Remover) *Pipeline {
	return &Pipeline{remote: remote, local: local}
}

// Remove runs the selected method. If it fails, fallback is enabled, and the
// method was not already the local model, the pipeline retries once via the
// local model before surfacing the original error.
func (p *Pipeline) Remove(ctx context.Context, img image.Image, opts Options) (Result, error) {
	var out image.Image
	var err error

	switch opts.Method {
	case MethodRemoteAPI:
		out, err = p.remote.Remove(ctx, img)
	case MethodLocalModel:
		out, err = p.local.Remove(ctx, img)
	case MethodManual:
		err = ErrNotImplemented
	default:
		err = fmt.Errorf("unknown removal method %d", opts.Method)
	}

	if err == nil {
		return Result{Method: opts.Method, Image: out}, nil
	}

	if opts.FallbackToLocalModel && opts.Method != MethodLocalModel {
		log.Printf("removal: method %s failed (%v), falling back to local model", opts.Method, err)
		out, ferr := p.local.Remove(ctx, img)
		if ferr == nil {
			return Result{Method: MethodLocalModel, Image: out}, nil
		}
		log.Printf("removal: local model fallback also failed: %v", ferr)
	}

	// surface the original error, wrapped in the taxonomy sentinel
	return Result{}, fmt.Errorf("%w: %s: %v", ErrBackgroundRemoval, opts.Method, err)
}
