package removal

import (
	"errors"
	"fmt"
)

var (
	// ErrBackgroundRemoval is surfaced after the selected method and any
	// fallback are exhausted. The original photo stays usable.
	ErrBackgroundRemoval = errors.New("background removal failed")

	// ErrNotImplemented is returned for the manual method, kept as a
	// placeholder extension point.
	ErrNotImplemented = errors.New("manual background removal is not implemented")

	// ErrModelUnavailable short-circuits local-model attempts when the
	// capability check fails, without loading the full model.
	ErrModelUnavailable = errors.New("local segmentation model unavailable")
)

// Method selects the background-removal strategy.
type Method int

const (
	MethodRemoteAPI Method = iota
	MethodLocalModel
	MethodManual
)

func (m Method) String() string {
	switch m {
	case MethodRemoteAPI:
		return "remote_api"
	case MethodLocalModel:
		return "local_model"
	case MethodManual:
		return "manual"
	default:
		return "unknown"
	}
}

// ParseMethod converts a configuration string into a Method.
func ParseMethod(s string) (Method, error) {
	switch s {
	case "remote_api":
		return MethodRemoteAPI, nil
	case "local_model":
		return MethodLocalModel, nil
	case "manual":
		return MethodManual, nil
	default:
		return MethodRemoteAPI, fmt.Errorf("unknown removal method %q", s)
	}
}
