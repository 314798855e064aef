package services

import (
	"CNRS/models"
	"CNRS/repositories"
	"CNRS/utils"
	"context"
	"time"

	log "github.com/sirupsen/logrus"
)

// ReminderService emails Medical Records staff every morning about approved
// batches whose physical case notes were never counted back in.
type ReminderService struct {
	batches *repositories.BatchRepository
	users   repositories.UserRepository
	now     func() time.Time
}

func NewReminderService(batches *repositories.BatchRepository, users repositories.UserRepository) *ReminderService {
	return &ReminderService{batches: batches, users: users, now: time.Now}
}

func (s *ReminderService) SetClock(now func() time.Time) {
	s.now = now
}

// Run blocks until ctx is cancelled, sending the reminder at 08:00 local time
// each day. Call it from its own goroutine.
func (s *ReminderService) Run(ctx context.Context) {
	for {
		next := s.nextRunAt(s.now())
		timer := time.NewTimer(next.Sub(s.now()))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			if err := s.SendUnverifiedBatchReminders(ctx); err != nil {
				log.Printf("Failed to send batch verification reminders: %v", err)
			}
		}
	}
}

// SendUnverifiedBatchReminders emails every Medical Records staff member the
// list of approved batches still awaiting verification. No batches or no
// recipients is a quiet no-op.
func (s *ReminderService) SendUnverifiedBatchReminders(ctx context.Context) error {
	batches, err := s.batches.ListUnverified(ctx)
	if err != nil {
		return err
	}
	if len(batches) == 0 {
		return nil
	}

	staff, err := s.users.GetUsersByRole(ctx, models.RoleMRStaff)
	if err != nil {
		return err
	}
	recipients := make([]string, 0, len(staff))
	for _, user := range staff {
		if user.Email != "" {
			recipients = append(recipients, user.Email)
		}
	}
	if len(recipients) == 0 {
		log.Printf("No Medical Records staff to remind about %d unverified batch(es)", len(batches))
		return nil
	}

	return utils.SendUnverifiedBatchEmail(recipients, batches)
}

func (s *ReminderService) nextRunAt(now time.Time) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), 8, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.Add(24 * time.Hour)
	}
	return next
}
