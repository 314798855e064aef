package repositories

import (
	"CNRS/cache"
	"CNRS/models"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	PatientCacheExpiry = 7 * 24 * time.Hour
)

// PatientRepository is the reference-data lookup the custody core depends on.
// Bulk import of patients is a separate pipeline; this only covers direct
// CRUD and lookups.
type PatientRepository struct {
	db    *gorm.DB
	cache *cache.Cache
}

func NewPatientRepository(db *gorm.DB, cache *cache.Cache) *PatientRepository {
	return &PatientRepository{db: db, cache: cache}
}

func (r *PatientRepository) Create(ctx context.Context, patient *models.Patient) error {
	if err := r.db.WithContext(ctx).Create(patient).Error; err != nil {
		return fmt.Errorf("failed to create patient: %w", err)
	}
	r.invalidate(ctx, patient.ID)
	return nil
}

func (r *PatientRepository) GetByID(ctx context.Context, id string) (*models.Patient, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cacheKey := r.getPatientCacheKey(id)
	if r.cache != nil {
		cached, err := r.cache.Get(ctx, cacheKey)
		if err == nil && cached != "" {
			var patient models.Patient
			if err := json.Unmarshal([]byte(cached), &patient); err == nil {
				return &patient, nil
			}
		} else if err != nil && err != redis.Nil {
			log.Printf("Failed to get patient from cache: %v", err)
		}
	}

	var patient models.Patient
	err := r.db.WithContext(ctx).First(&patient, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}

	if r.cache != nil {
		patientJSON, err := json.Marshal(patient)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal patient: %w", err)
		}
		if err := r.cache.Set(ctx, cacheKey, patientJSON, PatientCacheExpiry); err != nil {
			log.Printf("Failed to set patient in cache: %v", err)
		}
	}

	return &patient, nil
}

func (r *PatientRepository) GetByMRN(ctx context.Context, mrn string) (*models.Patient, error) {
	var patient models.Patient
	err := r.db.WithContext(ctx).First(&patient, "mrn = ?", mrn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get patient by MRN: %w", err)
	}
	return &patient, nil
}

// Search matches patients by name or MRN fragment, capped for typeahead use.
func (r *PatientRepository) Search(ctx context.Context, query string, limit int) ([]models.Patient, error) {
	if limit <= 0 {
		limit = 20
	}
	pattern := "%" + query + "%"
	var patients []models.Patient
	err := r.db.WithContext(ctx).
		Where("name LIKE ? OR mrn LIKE ?", pattern, pattern).
		Order("name ASC").
		Limit(limit).
		Find(&patients).Error
	if err != nil {
		return nil, fmt.Errorf("failed to search patients: %w", err)
	}
	return patients, nil
}

func (r *PatientRepository) Update(ctx context.Context, patient *models.Patient) error {
	if err := r.db.WithContext(ctx).Save(patient).Error; err != nil {
		return fmt.Errorf("failed to update patient: %w", err)
	}
	r.invalidate(ctx, patient.ID)
	return nil
}

func (r *PatientRepository) Delete(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).Delete(&models.Patient{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("failed to delete patient: %w", err)
	}
	r.invalidate(ctx, id)
	return nil
}

func (r *PatientRepository) invalidate(ctx context.Context, id string) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Delete(ctx, r.getPatientCacheKey(id)); err != nil {
		log.Printf("Failed to delete patient cache: %v", err)
	}
}

func (r *PatientRepository) getPatientCacheKey(id string) string {
	return fmt.Sprintf("patient_cache:%s", id)
}
