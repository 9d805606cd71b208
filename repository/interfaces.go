package repository

import "github.com/camden-git/tryonbackend/models"

// CaptureRepositoryInterface defines the methods for captured result data
// operations
type CaptureRepositoryInterface interface {
	Create(capture *models.CapturedResult) error
	GetByID(id string) (*models.CapturedResult, error)
	ListAll() ([]models.CapturedResult, error)
	ListBySession(sessionID string) ([]models.CapturedResult, error)
	Delete(id string) error
}
