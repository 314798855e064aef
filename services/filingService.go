package services

import (
	"CNRS/models"
	"CNRS/repositories"
	"context"
)

type FilingService struct {
	repository *repositories.FilingRepository
}

func NewFilingService(repository *repositories.FilingRepository) *FilingService {
	return &FilingService{repository: repository}
}

func (s *FilingService) Create(ctx context.Context, filing *models.FilingRequest, caseNoteIDs []uint, actor models.Actor) error {
	return s.repository.Create(ctx, filing, caseNoteIDs, actor)
}

func (s *FilingService) Approve(ctx context.Context, id uint, actor models.Actor, notes string) (*models.FilingRequest, error) {
	return s.repository.Approve(ctx, id, actor, notes)
}

func (s *FilingService) Reject(ctx context.Context, id uint, actor models.Actor, reason string) (*models.FilingRequest, error) {
	return s.repository.Reject(ctx, id, actor, reason)
}

func (s *FilingService) GetByID(ctx context.Context, id uint) (*models.FilingRequest, error) {
	return s.repository.GetByID(ctx, id)
}

func (s *FilingService) List(ctx context.Context, status string) ([]models.FilingRequest, error) {
	return s.repository.List(ctx, status)
}
