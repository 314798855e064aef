package services

import (
	"CNRS/models"
	"CNRS/repositories"
	"CNRS/utils"
	"context"
	"fmt"
	"time"
)

// Movement directions for the tracking report. "out" is a note leaving
// Medical Records custody, "in" is a note coming back.
const (
	DirectionIn  = "in"
	DirectionOut = "out"
)

var (
	outboundEvents = []models.EventType{models.EventReceived, models.EventHandedOver, models.EventHandoverCompleted}
	inboundEvents  = []models.EventType{models.EventReturned, models.EventReturnVerified}
)

// ReportService assembles the case note tracking report from the event log
// and renders it as Excel or PDF. The event metadata carries actor names so
// the report stays readable after user rows are gone.
type ReportService struct {
	events    *repositories.EventRepository
	caseNotes *repositories.CaseNoteRepository
}

func NewReportService(events *repositories.EventRepository, caseNotes *repositories.CaseNoteRepository) *ReportService {
	return &ReportService{events: events, caseNotes: caseNotes}
}

// TrackingRows returns one row per movement event in the range, in replay
// order. direction may be "in", "out" or empty for both.
func (s *ReportService) TrackingRows(ctx context.Context, from, to time.Time, direction string) ([]utils.TrackingRow, error) {
	var types []models.EventType
	switch direction {
	case DirectionIn:
		types = inboundEvents
	case DirectionOut:
		types = outboundEvents
	case "":
		types = append(append([]models.EventType{}, outboundEvents...), inboundEvents...)
	default:
		return nil, fmt.Errorf("unknown direction %q", direction)
	}

	events, err := s.events.ListBetween(ctx, from, to, types)
	if err != nil {
		return nil, err
	}

	rows := make([]utils.TrackingRow, 0, len(events))
	for _, event := range events {
		row := utils.TrackingRow{
			EventType:  string(event.Type),
			Direction:  directionOf(event.Type),
			OccurredAt: event.OccurredAt,
		}
		if name, ok := event.MetadataMap()["actor_name"].(string); ok {
			row.ActorName = name
		}

		req, err := s.caseNotes.GetByID(ctx, event.CaseNoteRequestID)
		if err != nil {
			return nil, err
		}
		if req != nil {
			row.RequestNumber = req.RequestNumber
			row.PatientMRN = req.Patient.MRN
			row.PatientName = req.Patient.Name
			row.Status = string(req.Status)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ExportExcel renders the tracking report as an .xlsx payload.
func (s *ReportService) ExportExcel(ctx context.Context, from, to time.Time, direction string) ([]byte, error) {
	rows, err := s.TrackingRows(ctx, from, to, direction)
	if err != nil {
		return nil, err
	}
	return utils.TrackingReportExcel(rows, from, to)
}

// ExportPDF renders the tracking report as a PDF payload.
func (s *ReportService) ExportPDF(ctx context.Context, from, to time.Time, direction string) ([]byte, error) {
	rows, err := s.TrackingRows(ctx, from, to, direction)
	if err != nil {
		return nil, err
	}
	return utils.TrackingReportPDF(rows, from, to)
}

func directionOf(eventType models.EventType) string {
	for _, t := range inboundEvents {
		if t == eventType {
			return DirectionIn
		}
	}
	return DirectionOut
}
