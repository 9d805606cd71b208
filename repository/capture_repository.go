package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/camden-git/tryonbackend/models"
)

// GormCaptureRepository implements CaptureRepositoryInterface using GORM
type GormCaptureRepository struct {
	DB *gorm.DB
}

func NewGormCaptureRepository(db *gorm.DB) *GormCaptureRepository {
	return &GormCaptureRepository{DB: db}
}

func (r *GormCaptureRepository) Create(capture *models.CapturedResult) error {
	if err := r.DB.Create(capture).Error; err != nil {
		return fmt.Errorf("failed to create captured result: %w", err)
	}
	return nil
}

func (r *GormCaptureRepository) GetByID(id string) (*models.CapturedResult, error) {
	var capture models.CapturedResult
	err := r.DB.First(&capture, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get captured result %s: %w", id, err)
	}
	return &capture, nil
}

func (r *GormCaptureRepository) ListAll() ([]models.CapturedResult, error) {
	var captures []models.CapturedResult
	if err := r.DB.Order("created_at DESC").Find(&captures).Error; err != nil {
		return nil, fmt.Errorf("failed to list captured results: %w", err)
	}
	return captures, nil
}

func (r *GormCaptureRepository) ListBySession(sessionID string) ([]models.CapturedResult, error) {
	var captures []models.CapturedResult
	err := r.DB.Where("session_id = ?", sessionID).Order("created_at DESC").Find(&captures).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list captured results for session %s: %w", sessionID, err)
	}
	return captures, nil
}

func (r *GormCaptureRepository) Delete(id string) error {
	if err := r.DB.Delete(&models.CapturedResult{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("failed to delete captured result %s: %w", id, err)
	}
	return nil
}
