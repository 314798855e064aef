package utils

import (
	"CNRS/models"
	"errors"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	log "github.com/sirupsen/logrus"
)

// ErrReasonRequired is returned whenever a rejection is attempted without a
// reason. Rejections are always explained.
var ErrReasonRequired = errors.New("a reason is mandatory when rejecting")

// ValidateCaseNoteRequest validates a new case note request payload.
func ValidateCaseNoteRequest(req models.CaseNoteRequest) error {
	err := validation.ValidateStruct(&req,
		validation.Field(&req.PatientID, validation.Required),
		validation.Field(&req.DepartmentID, validation.Required),
		validation.Field(&req.Purpose, validation.Required, validation.Length(3, 2000)),
		validation.Field(&req.Priority, validation.By(validatePriority)),
	)
	if err != nil {
		log.Printf("Validation error: %v\n", err)
	}
	return err
}

// ValidateHandover validates a holder-initiated handover offer.
func ValidateHandover(handover models.CaseNoteHandover) error {
	err := validation.ValidateStruct(&handover,
		validation.Field(&handover.CaseNoteRequestID, validation.Required),
		validation.Field(&handover.ToUserID, validation.Required),
	)
	if err != nil {
		log.Printf("Validation error: %v\n", err)
	}
	return err
}

// ValidateHandoverRequest validates a receiver-initiated pull request.
func ValidateHandoverRequest(pull models.HandoverRequest) error {
	err := validation.ValidateStruct(&pull,
		validation.Field(&pull.CaseNoteRequestID, validation.Required),
		validation.Field(&pull.Reason, validation.Required, validation.Length(3, 2000)),
		validation.Field(&pull.Priority, validation.By(validatePriority)),
	)
	if err != nil {
		log.Printf("Validation error: %v\n", err)
	}
	return err
}

// ValidateRejectionReason enforces that reject decisions carry a reason.
func ValidateRejectionReason(reason string) error {
	if reason == "" {
		return ErrReasonRequired
	}
	return nil
}

// validatePriority checks the priority against the accepted levels. Empty is
// allowed; the column default covers it.
func validatePriority(value interface{}) error {
	priority, _ := value.(string)
	if priority == "" {
		return nil
	}
	if !models.ValidPriority(priority) {
		return errors.New("must be one of low, normal, high, urgent")
	}
	return nil
}
