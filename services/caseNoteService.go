package services

import (
	"CNRS/models"
	"CNRS/repositories"
	"context"
	"errors"
	"fmt"
)

// ErrPatientNotFound is returned when a request references a patient the
// directory does not know.
var ErrPatientNotFound = errors.New("patient not found")

// CaseNoteService orchestrates the custody workflow: it fronts the case note
// repository and keeps the owning batch's derived status fresh after every
// child decision.
type CaseNoteService struct {
	caseNotes *repositories.CaseNoteRepository
	batches   *repositories.BatchRepository
	events    *repositories.EventRepository
	patients  *repositories.PatientRepository
}

func NewCaseNoteService(caseNotes *repositories.CaseNoteRepository, batches *repositories.BatchRepository, events *repositories.EventRepository, patients *repositories.PatientRepository) *CaseNoteService {
	return &CaseNoteService{caseNotes: caseNotes, batches: batches, events: events, patients: patients}
}

// Create submits a new request. Patient existence is a precondition; a
// missing patient is fatal to the operation.
func (s *CaseNoteService) Create(ctx context.Context, req *models.CaseNoteRequest, actor models.Actor) error {
	patient, err := s.patients.GetByID(ctx, req.PatientID)
	if err != nil {
		return err
	}
	if patient == nil {
		return ErrPatientNotFound
	}
	return s.caseNotes.Create(ctx, req, actor)
}

func (s *CaseNoteService) GetByID(ctx context.Context, id uint) (*models.CaseNoteRequest, error) {
	return s.caseNotes.GetByID(ctx, id)
}

func (s *CaseNoteService) List(ctx context.Context, filter repositories.ListFilter) ([]models.CaseNoteRequest, error) {
	return s.caseNotes.List(ctx, filter)
}

// Timeline returns the ordered event history of one request.
func (s *CaseNoteService) Timeline(ctx context.Context, id uint) ([]models.RequestEvent, error) {
	return s.events.Timeline(ctx, id)
}

func (s *CaseNoteService) Approve(ctx context.Context, id uint, actor models.Actor, remarks string) (*models.CaseNoteRequest, error) {
	req, err := s.caseNotes.Approve(ctx, id, actor, remarks)
	if err != nil {
		return nil, err
	}
	return req, s.refreshBatch(ctx, req)
}

func (s *CaseNoteService) Reject(ctx context.Context, id uint, actor models.Actor, reason string) (*models.CaseNoteRequest, error) {
	req, err := s.caseNotes.Reject(ctx, id, actor, reason)
	if err != nil {
		return nil, err
	}
	return req, s.refreshBatch(ctx, req)
}

func (s *CaseNoteService) Complete(ctx context.Context, id uint, actor models.Actor) (*models.CaseNoteRequest, error) {
	return s.caseNotes.Complete(ctx, id, actor)
}

func (s *CaseNoteService) MarkReceived(ctx context.Context, id uint, actor models.Actor, notes string) (*models.CaseNoteRequest, error) {
	return s.caseNotes.MarkReceived(ctx, id, actor, notes)
}

func (s *CaseNoteService) MarkReturned(ctx context.Context, id uint, actor models.Actor, notes string) (*models.CaseNoteRequest, error) {
	return s.caseNotes.MarkReturned(ctx, id, actor, notes)
}

func (s *CaseNoteService) VerifyReturn(ctx context.Context, id uint, actor models.Actor, notes string) (*models.CaseNoteRequest, error) {
	return s.caseNotes.VerifyReturn(ctx, id, actor, notes)
}

func (s *CaseNoteService) RejectReturn(ctx context.Context, id uint, actor models.Actor, reason string) (*models.CaseNoteRequest, error) {
	return s.caseNotes.RejectReturn(ctx, id, actor, reason)
}

func (s *CaseNoteService) Delete(ctx context.Context, id uint) error {
	return s.caseNotes.Delete(ctx, id)
}

// refreshBatch recomputes the owning batch's aggregate status after a child
// decision. The derivation is recompute-on-demand, so skipping this would
// leave the parent stale.
func (s *CaseNoteService) refreshBatch(ctx context.Context, req *models.CaseNoteRequest) error {
	if req.BatchID == nil {
		return nil
	}
	if _, err := s.batches.RefreshStatus(ctx, *req.BatchID); err != nil {
		return fmt.Errorf("failed to refresh batch %d: %w", *req.BatchID, err)
	}
	return nil
}
