package models

import "gorm.io/gorm"

// CapturedResult is a saved try-on snapshot. Immutable once created; rows are
// soft-deleted when the user removes them.
// It corresponds to the 'captured_results' table.
type CapturedResult struct {
	ID        string `gorm:"primaryKey" json:"id"`
	SessionID string `gorm:"index" json:"session_id"`

	// ImagePath is the stored snapshot, relative to MEDIA_STORAGE_PATH
	ImagePath string `gorm:"not null" json:"image_path"`

	// OutfitJSON is the serialized outfit state at capture time. Re-rendering
	// it must reproduce the captured transforms exactly.
	OutfitJSON string `gorm:"not null" json:"outfit_json"`

	CreatedAt int64 `gorm:"not null" json:"created_at"` // Unix timestamp

	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// TableName explicitly sets the table name for GORM.
func (CapturedResult) TableName() string {
	return "captured_results"
}
