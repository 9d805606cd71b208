package handlers

import (
	"database/sql"
	"errors"
	"image"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/facette/natsort"

	"github.com/camden-git/tryonbackend/database"
	"github.com/camden-git/tryonbackend/media"
	"github.com/camden-git/tryonbackend/tryon"
)

// GarmentLibraryHandler lists the garment picker catalog. Entries come from
// the library directory on disk; natural dimensions are indexed lazily into
// the garment database so repeat listings skip the image decode.
type GarmentLibraryHandler struct {
	LibraryPath string
	DB          *sql.DB
}

type libraryEntry struct {
	SourceRef string          `json:"source_ref"`
	Filename  string          `json:"filename"`
	Category  tryon.Category  `json:"category"`
	Placement tryon.Placement `json:"placement"`
	Width     int             `json:"width"`
	Height    int             `json:"height"`
}

// ListLibrary returns the catalog in natural sort order, optionally filtered
// by category (?category=top).
func (h *GarmentLibraryHandler) ListLibrary(w http.ResponseWriter, r *http.Request) {
	entries, err := os.ReadDir(h.LibraryPath)
	if err != nil {
		log.Printf("garment library: failed to read %s: %v", h.LibraryPath, err)
		WriteAPIError(w, http.StatusInternalServerError, "library_unavailable", "could not read the garment library")
		return
	}

	categoryFilter := strings.ToLower(r.URL.Query().Get("category"))
	if categoryFilter != "" && !tryon.Category(categoryFilter).Valid() {
		WriteAPIError(w, http.StatusBadRequest, "invalid_category", "unknown garment category")
		return
	}

	var filenames []string
	for _, entry := range entries {
		if entry.IsDir() || !media.IsRasterImage(entry.Name()) {
			continue
		}
		filenames = append(filenames, entry.Name())
	}
	natsort.Sort(filenames)

	result := make([]libraryEntry, 0, len(filenames))
	for _, name := range filenames {
		asset, err := h.indexEntry(name)
		if err != nil {
			log.Printf("garment library: skipping %s: %v", name, err)
			continue
		}
		if categoryFilter != "" && asset.Category != categoryFilter {
			continue
		}
		category := tryon.Category(asset.Category)
		result = append(result, libraryEntry{
			SourceRef: media.LibraryRefPrefix + name,
			Filename:  name,
			Category:  category,
			Placement: category.DefaultPlacement(),
			Width:     asset.Width,
			Height:    asset.Height,
		})
	}
	WriteJSON(w, http.StatusOK, result)
}

// indexEntry returns the cached index row for a library file, refreshing it
// when the file changed since it was indexed.
func (h *GarmentLibraryHandler) indexEntry(filename string) (database.GarmentAsset, error) {
	info, err := os.Stat(filepath.Join(h.LibraryPath, filename))
	if err != nil {
		return database.GarmentAsset{}, err
	}
	modified := info.ModTime().Unix()

	asset, err := database.GetGarmentAsset(h.DB, filename)
	if err == nil && asset.LastModified == modified {
		return asset, nil
	}
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return database.GarmentAsset{}, err
	}

	file, err := os.Open(filepath.Join(h.LibraryPath, filename))
	if err != nil {
		return database.GarmentAsset{}, err
	}
	cfg, _, err := image.DecodeConfig(file)
	file.Close()
	if err != nil {
		return database.GarmentAsset{}, err
	}

	asset = database.GarmentAsset{
		Filename:     filename,
		Category:     string(categoryFromFilename(filename)),
		Width:        cfg.Width,
		Height:       cfg.Height,
		LastModified: modified,
	}
	if err := database.UpsertGarmentAsset(h.DB, asset); err != nil {
		log.Printf("garment library: failed to index %s: %v", filename, err)
	}
	return asset, nil
}

// categoryFromFilename reads the category from the filename prefix, e.g.
// "top_striped-shirt.png". Files without a recognizable prefix fall back to
// accessory so they still surface in the picker.
func categoryFromFilename(filename string) tryon.Category {
	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	prefix, _, found := strings.Cut(base, "_")
	if !found {
		prefix, _, _ = strings.Cut(base, "-")
	}
	candidate := tryon.Category(strings.ToLower(prefix))
	if candidate.Valid() {
		return candidate
	}
	return tryon.CategoryAccessory
}
