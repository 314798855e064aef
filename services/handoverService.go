package services

import (
	"CNRS/models"
	"CNRS/repositories"
	"context"
)

type HandoverService struct {
	repository *repositories.HandoverRepository
}

func NewHandoverService(repository *repositories.HandoverRepository) *HandoverService {
	return &HandoverService{repository: repository}
}

func (s *HandoverService) Offer(ctx context.Context, handover *models.CaseNoteHandover, actor models.Actor) error {
	return s.repository.Offer(ctx, handover, actor)
}

func (s *HandoverService) Acknowledge(ctx context.Context, handoverID uint, actor models.Actor, notes string) (*models.CaseNoteHandover, error) {
	return s.repository.Acknowledge(ctx, handoverID, actor, notes)
}

func (s *HandoverService) Complete(ctx context.Context, handoverID uint, actor models.Actor) (*models.CaseNoteHandover, error) {
	return s.repository.Complete(ctx, handoverID, actor)
}

func (s *HandoverService) ListForRequest(ctx context.Context, requestID uint) ([]models.CaseNoteHandover, error) {
	return s.repository.ListForRequest(ctx, requestID)
}

func (s *HandoverService) CreateRequest(ctx context.Context, pull *models.HandoverRequest, actor models.Actor) error {
	return s.repository.CreateRequest(ctx, pull, actor)
}

func (s *HandoverService) Respond(ctx context.Context, pullID uint, actor models.Actor, approve bool, notes string) (*models.HandoverRequest, error) {
	return s.repository.Respond(ctx, pullID, actor, approve, notes)
}

func (s *HandoverService) ListRequestsForHolder(ctx context.Context, holderUserID int64) ([]models.HandoverRequest, error) {
	return s.repository.ListRequestsForHolder(ctx, holderUserID)
}
