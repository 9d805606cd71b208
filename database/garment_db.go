package database

import (
	"database/sql"
	"errors"
	"fmt"
	"log"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Question)

// GarmentAsset is one indexed entry of the garment library directory. The
// picker UI consumes this index; the try-on core reads cached natural
// dimensions from it when creating layers.
type GarmentAsset struct {
	Filename     string `json:"filename"`
	Category     string `json:"category"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	LastModified int64  `json:"last_modified"`
}

// InitGarmentDB opens the garment index database and creates its table.
func InitGarmentDB(dataSourceName string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// enable write-ahead logging for better concurrency
	if _, err = db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		log.Printf("warning: failed to set WAL mode: %v", err)
	}

	sqlStmt := `
	CREATE TABLE IF NOT EXISTS garment_assets (
		filename TEXT PRIMARY KEY,
		category TEXT NOT NULL,
		width INTEGER NOT NULL,
		height INTEGER NOT NULL,
		last_modified INTEGER NOT NULL
	);
	`
	if _, err = db.Exec(sqlStmt); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create garment_assets table: %w", err)
	}

	log.Println("garment index database initialized at", dataSourceName)
	return db, nil
}

// GetGarmentAsset fetches one indexed entry by filename.
func GetGarmentAsset(db *sql.DB, filename string) (GarmentAsset, error) {
	var asset GarmentAsset

	queryBuilder := psql.Select("filename", "category", "width", "height", "last_modified").
		From("garment_assets").
		Where(sq.Eq{"filename": filename}).
		Limit(1)

	sqlStr, args, err := queryBuilder.ToSql()
	if err != nil {
		return GarmentAsset{}, fmt.Errorf("failed to build SQL query for GetGarmentAsset: %w", err)
	}

	err = db.QueryRow(sqlStr, args...).Scan(&asset.Filename, &asset.Category, &asset.Width, &asset.Height, &asset.LastModified)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return GarmentAsset{}, sql.ErrNoRows
		}
		return GarmentAsset{}, fmt.Errorf("failed to query garment asset '%s': %w", filename, err)
	}
	return asset, nil
}

// UpsertGarmentAsset records or refreshes an index entry.
func UpsertGarmentAsset(db *sql.DB, asset GarmentAsset) error {
	queryBuilder := psql.Insert("garment_assets").
		Columns("filename", "category", "width", "height", "last_modified").
		Values(asset.Filename, asset.Category, asset.Width, asset.Height, asset.LastModified).
		Suffix("ON CONFLICT(filename) DO UPDATE SET category=excluded.category, width=excluded.width, height=excluded.height, last_modified=excluded.last_modified")

	sqlStr, args, err := queryBuilder.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build SQL query for UpsertGarmentAsset: %w", err)
	}

	if _, err = db.Exec(sqlStr, args...); err != nil {
		return fmt.Errorf("failed to upsert garment asset '%s': %w", asset.Filename, err)
	}
	return nil
}

// ListGarmentAssets returns index entries, optionally filtered by category.
func ListGarmentAssets(db *sql.DB, category string) ([]GarmentAsset, error) {
	queryBuilder := psql.Select("filename", "category", "width", "height", "last_modified").
		From("garment_assets")
	if category != "" {
		queryBuilder = queryBuilder.Where(sq.Eq{"category": category})
	}

	sqlStr, args, err := queryBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build SQL query for ListGarmentAssets: %w", err)
	}

	rows, err := db.Query(sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list garment assets: %w", err)
	}
	defer rows.Close()

	var assets []GarmentAsset
	for rows.Next() {
		var a GarmentAsset
		if err := rows.Scan(&a.Filename, &a.Category, &a.Width, &a.Height, &a.LastModified); err != nil {
			return nil, fmt.Errorf("failed to scan garment asset row: %w", err)
		}
		assets = append(assets, a)
	}
	return assets, rows.Err()
}

// DeleteGarmentAsset drops an index entry, e.g. after the file disappears.
func DeleteGarmentAsset(db *sql.DB, filename string) error {
	sqlStr, args, err := psql.Delete("garment_assets").Where(sq.Eq{"filename": filename}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build SQL query for DeleteGarmentAsset: %w", err)
	}
	if _, err = db.Exec(sqlStr, args...); err != nil {
		return fmt.Errorf("failed to delete garment asset '%s': %w", filename, err)
	}
	return nil
}
