package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const (
	DefaultSubjectsSubDir = "subjects"
	DefaultCutoutsSubDir  = "cutouts"
	DefaultCapturesSubDir = "captures"
)

const (
	defaultRemovalQueueSize  = 64
	defaultNumRemovalWorkers = 2
	defaultMaxPhotoWidth     = 1200
	defaultMaxPhotoHeight    = 1600
	defaultCanvasWidth       = 600
	defaultCanvasHeight      = 800
	defaultCountdownTicks    = 5
	defaultTickIntervalMs    = 1000
	defaultDebounceMs        = 150
	defaultRedisTTLHours     = 24
	defaultPersonClassIndex  = 15
)

type Config struct {
	// database path (capture records via GORM, garment index via database/sql)
	DatabasePath string

	// media storage configuration
	MediaStoragePath string // primary root for stored assets (subjects, cutouts, captures)
	SubjectsPath     string // full-calculated path for normalized subject photos
	CutoutsPath      string // full-calculated path for background-removed cutouts
	CapturesPath     string // full-calculated path for captured snapshots

	// garment library (served to the picker UI, indexed on access)
	GarmentLibraryPath string

	// photo normalization ceiling
	MaxPhotoWidth  int
	MaxPhotoHeight int

	// drawing surface dimensions
	CanvasWidth  int
	CanvasHeight int

	// background removal
	RemovalMethod        string // remote_api | local_model | manual
	RemovalFallbackLocal bool
	SegmentationAPIURL   string
	SegmentationAPIKey   string
	SegmentationModel    string // model path for the local person segmenter
	PersonClassIndex     int

	// removal worker settings
	RemovalQueueSize  int
	NumRemovalWorkers int

	// garment transform limits
	MinGarmentScale float64
	MaxGarmentScale float64

	// capture countdown
	CountdownTicks int
	TickInterval   time.Duration

	// render scheduling
	RenderDebounce time.Duration

	// forces the device tier when set (low/medium/high)
	DeviceTierOverride string

	// optional removal result cache
	RedisAddr string
	RedisTTL  time.Duration
}

func getEnvOrDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvIntOrDefault(envVar string, defaultVal int) int {
	valStr := os.Getenv(envVar)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil || val <= 0 {
		log.Printf("Warning: Invalid %s '%s'. Using default %d. Error: %v", envVar, valStr, defaultVal, err)
		return defaultVal
	}
	return val
}

func getEnvFloatOrDefault(envVar string, defaultVal float64) float64 {
	valStr := os.Getenv(envVar)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.ParseFloat(valStr, 64)
	if err != nil || val <= 0 {
		log.Printf("Warning: Invalid %s '%s'. Using default %g. Error: %v", envVar, valStr, defaultVal, err)
		return defaultVal
	}
	return val
}

func getEnvBoolOrDefault(envVar string, defaultVal bool) bool {
	valStr := os.Getenv(envVar)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.ParseBool(valStr)
	if err != nil {
		log.Printf("Warning: Invalid %s '%s'. Using default %t.", envVar, valStr, defaultVal)
		return defaultVal
	}
	return val
}

func LoadConfig() (Config, error) {
	dbPath := getEnvOrDefault("DATABASE_PATH", "tryon.db")

	mediaStorage := getEnvOrDefault("MEDIA_STORAGE_PATH", filepath.Join(".", "media_storage"))
	absMediaStorage, err := filepath.Abs(mediaStorage)
	if err != nil {
		return Config{}, fmt.Errorf("failed to get absolute path for media storage '%s': %w", mediaStorage, err)
	}

	garmentLib := getEnvOrDefault("GARMENT_LIBRARY_PATH", filepath.Join(".", "garments"))
	absGarmentLib, err := filepath.Abs(garmentLib)
	if err != nil {
		return Config{}, fmt.Errorf("failed to get absolute path for garment library '%s': %w", garmentLib, err)
	}

	cfg := Config{
		DatabasePath:     dbPath,
		MediaStoragePath: absMediaStorage,
		SubjectsPath:     filepath.Join(absMediaStorage, getEnvOrDefault("SUBJECTS_SUBDIR", DefaultSubjectsSubDir)),
		CutoutsPath:      filepath.Join(absMediaStorage, getEnvOrDefault("CUTOUTS_SUBDIR", DefaultCutoutsSubDir)),
		CapturesPath:     filepath.Join(absMediaStorage, getEnvOrDefault("CAPTURES_SUBDIR", DefaultCapturesSubDir)),

		GarmentLibraryPath: absGarmentLib,

		MaxPhotoWidth:  getEnvIntOrDefault("MAX_PHOTO_WIDTH", defaultMaxPhotoWidth),
		MaxPhotoHeight: getEnvIntOrDefault("MAX_PHOTO_HEIGHT", defaultMaxPhotoHeight),

		CanvasWidth:  getEnvIntOrDefault("CANVAS_WIDTH", defaultCanvasWidth),
		CanvasHeight: getEnvIntOrDefault("CANVAS_HEIGHT", defaultCanvasHeight),

		RemovalMethod:        getEnvOrDefault("REMOVAL_METHOD", "remote_api"),
		RemovalFallbackLocal: getEnvBoolOrDefault("REMOVAL_FALLBACK_LOCAL", true),
		SegmentationAPIURL:   getEnvOrDefault("SEGMENTATION_API_URL", ""),
		SegmentationAPIKey:   getEnvOrDefault("SEGMENTATION_API_KEY", ""),
		SegmentationModel:    getEnvOrDefault("SEGMENTATION_MODEL_PATH", "./models/deeplabv3.onnx"),
		PersonClassIndex:     getEnvIntOrDefault("PERSON_CLASS_INDEX", defaultPersonClassIndex),

		RemovalQueueSize:  getEnvIntOrDefault("REMOVAL_QUEUE_SIZE", defaultRemovalQueueSize),
		NumRemovalWorkers: getEnvIntOrDefault("NUM_REMOVAL_WORKERS", defaultNumRemovalWorkers),

		MinGarmentScale: getEnvFloatOrDefault("MIN_GARMENT_SCALE", 0.1),
		MaxGarmentScale: getEnvFloatOrDefault("MAX_GARMENT_SCALE", 2.0),

		CountdownTicks: getEnvIntOrDefault("CAPTURE_COUNTDOWN_TICKS", defaultCountdownTicks),
		TickInterval:   time.Duration(getEnvIntOrDefault("CAPTURE_TICK_INTERVAL_MS", defaultTickIntervalMs)) * time.Millisecond,
		RenderDebounce: time.Duration(getEnvIntOrDefault("RENDER_DEBOUNCE_MS", defaultDebounceMs)) * time.Millisecond,

		DeviceTierOverride: getEnvOrDefault("DEVICE_TIER_OVERRIDE", ""),

		RedisAddr: getEnvOrDefault("REDIS_ADDR", ""),
		RedisTTL:  time.Duration(getEnvIntOrDefault("REDIS_TTL_HOURS", defaultRedisTTLHours)) * time.Hour,
	}

	return cfg, nil
}
