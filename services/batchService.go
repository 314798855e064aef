package services

import (
	"CNRS/models"
	"CNRS/repositories"
	"context"
	"errors"
)

// BatchService handles batch submission and processing. Creating a batch
// creates the shell first and then each child request against it, so every
// child gets its own minted request number and created event.
type BatchService struct {
	batches   *repositories.BatchRepository
	caseNotes *CaseNoteService
}

func NewBatchService(batches *repositories.BatchRepository, caseNotes *CaseNoteService) *BatchService {
	return &BatchService{batches: batches, caseNotes: caseNotes}
}

// Create submits a batch of requests together. Child creation failures abort
// the remainder; already created children stay (they are legitimate pending
// requests on their own).
func (s *BatchService) Create(ctx context.Context, batch *models.BatchRequest, children []*models.CaseNoteRequest, actor models.Actor) error {
	if len(children) == 0 {
		return errors.New("batch must contain at least one request")
	}

	if err := s.batches.Create(ctx, batch, actor); err != nil {
		return err
	}

	for _, child := range children {
		child.BatchID = &batch.ID
		if err := s.caseNotes.Create(ctx, child, actor); err != nil {
			return err
		}
	}
	return nil
}

func (s *BatchService) GetByID(ctx context.Context, id uint) (*models.BatchRequest, error) {
	return s.batches.GetByID(ctx, id)
}

func (s *BatchService) List(ctx context.Context, status string) ([]models.BatchRequest, error) {
	return s.batches.List(ctx, status)
}

func (s *BatchService) RefreshStatus(ctx context.Context, id uint) (*models.BatchRequest, error) {
	return s.batches.RefreshStatus(ctx, id)
}

func (s *BatchService) MarkProcessed(ctx context.Context, id uint, status string, actor models.Actor, notes string) (*models.BatchRequest, error) {
	return s.batches.MarkProcessed(ctx, id, status, actor, notes)
}

func (s *BatchService) MarkVerified(ctx context.Context, id uint, actor models.Actor, receivedCount int, notes string) (*models.BatchRequest, error) {
	return s.batches.MarkVerified(ctx, id, actor, receivedCount, notes)
}
