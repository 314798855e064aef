package models

import (
	"time"

	"gorm.io/gorm"
)

// Patient is the subject of a case note. Existence of the patient row is a
// precondition for creating a case note request; bulk import is handled by a
// separate pipeline.
type Patient struct {
	ID        string    `gorm:"primaryKey;column:id" json:"id"`
	MRN       string    `gorm:"column:mrn;size:20;not null;unique;index" json:"mrn"`
	NRIC      string    `gorm:"column:nric;size:20;index" json:"nric"`
	Name      string    `gorm:"column:name;not null;index" json:"name"`
	Sex       string    `gorm:"column:sex;check:sex IN ('Male', 'Female', 'Other')" json:"sex"`
	DateOfBirth string  `gorm:"column:date_of_birth" json:"date_of_birth"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`

	Requests []CaseNoteRequest `gorm:"foreignKey:PatientID;references:ID" json:"-"`
}

func (Patient) TableName() string {
	return "patients"
}

// Department model
type Department struct {
	ID        uint      `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	Code      string    `gorm:"column:code;size:10;not null;unique" json:"code"`
	Name      string    `gorm:"column:name;not null;unique;index" json:"name"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (Department) TableName() string {
	return "departments"
}

// Doctor model
type Doctor struct {
	ID           uint      `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	Name         string    `gorm:"column:name;not null;index" json:"name"`
	DepartmentID *uint     `gorm:"column:department_id;index" json:"department_id"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (Doctor) TableName() string {
	return "doctors"
}

// Location is a physical place a case note can be needed at (clinic room,
// ward, records office).
type Location struct {
	ID        uint      `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	Name      string    `gorm:"column:name;not null;unique" json:"name"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (Location) TableName() string {
	return "locations"
}

// SeedDepartments inserts the initial department list.
func SeedDepartments(db *gorm.DB) error {
	initialDepartments := []Department{
		{Code: "MR", Name: "Medical Records"},
		{Code: "OPD", Name: "Outpatient Department"},
		{Code: "ED", Name: "Emergency Department"},
		{Code: "SURG", Name: "Surgery"},
	}
	return db.Transaction(func(tx *gorm.DB) error {
		for _, department := range initialDepartments {
			if err := tx.FirstOrCreate(&department, Department{Code: department.Code}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// SeedLocations inserts the initial location list.
func SeedLocations(db *gorm.DB) error {
	initialLocations := []Location{
		{Name: "Records Office"},
		{Name: "Clinic Level 1"},
		{Name: "Clinic Level 2"},
		{Name: "Ward A"},
	}
	return db.Transaction(func(tx *gorm.DB) error {
		for _, location := range initialLocations {
			if err := tx.FirstOrCreate(&location, Location{Name: location.Name}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
