package media

import (
	"io"
	"os"
)

type AssetType string

const (
	AssetTypeSubject AssetType = "subject" // normalized user photos
	AssetTypeCutout  AssetType = "cutout"  // background-removed subject images
	AssetTypeCapture AssetType = "capture" // exported try-on snapshots
	AssetTypeGarment AssetType = "garment" // garment images copied from the picker
	AssetTypeUnknown AssetType = "unknown"
)

// Store defines the interface for saving, retrieving, and deleting stored
// image assets
type Store interface {
	// Save stores data under the asset type's directory. An empty
	// filenameHint generates a UUID-based name; the extension of the hint is
	// kept. returns the final relative path used and error
	Save(assetType AssetType, filenameHint string, data io.Reader) (string, error)
	// Get retrieves a reader for an asset
	Get(relativePath string) (io.ReadCloser, os.FileInfo, error)
	// Delete removes an asset
	Delete(relativePath string) error
	// GetFullPath returns the absolute filesystem path for a relative asset path
	GetFullPath(relativePath string) (string, error)
	// EnsureDir makes sure a specific asset type directory exists
	EnsureDir(assetType AssetType) (string, error)
}
