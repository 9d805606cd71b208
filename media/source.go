package media

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
)

// LibraryRefPrefix marks source refs that resolve into the garment library
// directory instead of the media store.
const LibraryRefPrefix = "library/"

// AssetSource resolves compositor source refs. Refs prefixed with "library/"
// come from the garment library directory; everything else is a media-store
// relative path (subject photos, cutouts).
type AssetSource struct {
	store       Store
	libraryPath string
}

func NewAssetSource(store Store, libraryPath string) *AssetSource {
	return &AssetSource{store: store, libraryPath: libraryPath}
}

func (s *AssetSource) Load(ref string) (image.Image, error) {
	if rest, ok := strings.CutPrefix(ref, LibraryRefPrefix); ok {
		return s.loadLibrary(rest)
	}

	reader, _, err := s.store.Get(ref)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	img, err := imaging.Decode(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to decode asset '%s': %w", ref, err)
	}
	return img, nil
}

func (s *AssetSource) loadLibrary(name string) (image.Image, error) {
	if filepath.Base(name) != name {
		return nil, fmt.Errorf("invalid garment library ref '%s'", name)
	}
	fullPath := filepath.Join(s.libraryPath, name)
	f, err := os.Open(fullPath)
	if err != nil {
		return nil, fmt.Errorf("garment '%s' not available: %w", name, err)
	}
	defer f.Close()

	img, err := imaging.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode garment '%s': %w", name, err)
	}
	return img, nil
}
