package services

import (
	"CNRS/models"
	"CNRS/repositories"
	"context"
)

type PatientService struct {
	patientRepo *repositories.PatientRepository
}

func NewPatientService(patientRepo *repositories.PatientRepository) *PatientService {
	return &PatientService{patientRepo: patientRepo}
}

func (s *PatientService) CreatePatient(ctx context.Context, patient *models.Patient) error {
	return s.patientRepo.Create(ctx, patient)
}

func (s *PatientService) GetPatientByID(ctx context.Context, id string) (*models.Patient, error) {
	return s.patientRepo.GetByID(ctx, id)
}

func (s *PatientService) GetPatientByMRN(ctx context.Context, mrn string) (*models.Patient, error) {
	return s.patientRepo.GetByMRN(ctx, mrn)
}

func (s *PatientService) SearchPatients(ctx context.Context, query string, limit int) ([]models.Patient, error) {
	return s.patientRepo.Search(ctx, query, limit)
}

func (s *PatientService) UpdatePatient(ctx context.Context, patient *models.Patient) error {
	return s.patientRepo.Update(ctx, patient)
}

func (s *PatientService) DeletePatient(ctx context.Context, id string) error {
	return s.patientRepo.Delete(ctx, id)
}
