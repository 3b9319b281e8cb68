package models

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Registration states. Withdrawn and rejected registrations do not count
// against capacity.
const (
	RegistrationStatePending   = "pending"
	RegistrationStateUnpaid    = "unpaid"
	RegistrationStateComplete  = "complete"
	RegistrationStateWithdrawn = "withdrawn"
	RegistrationStateRejected  = "rejected"
)

// ActiveRegistrationStates lists the states that occupy places.
var ActiveRegistrationStates = []string{
	RegistrationStatePending,
	RegistrationStateUnpaid,
	RegistrationStateComplete,
}

type Registration struct {
	gorm.Model
	FormID uint               `json:"form_id" gorm:"uniqueIndex:idx_form_user"`
	UserID uint               `json:"user_id" gorm:"uniqueIndex:idx_form_user"`
	User   User               `json:"user" gorm:"foreignKey:UserID"`
	State  string             `json:"state"`
	Data   []RegistrationData `json:"data" gorm:"foreignKey:RegistrationID"`
}

// IsPaid reports whether the registration has been paid; paid
// registrations lock their billable fields against participant edits.
func (r *Registration) IsPaid() bool {
	return r.State == RegistrationStateComplete
}

// RegistrationData is one field's submitted value for one registration.
// FieldDataID pins the configuration snapshot that was active when the
// value was written, which keeps historical pricing and display correct
// after the field's configuration moves on.
type RegistrationData struct {
	gorm.Model
	RegistrationID uint             `json:"registration_id" gorm:"index"`
	FieldDataID    uint             `json:"field_data_id" gorm:"index"`
	FieldData      FieldDataVersion `json:"-" gorm:"foreignKey:FieldDataID"`
	Data           datatypes.JSON   `json:"data"`
	StoredFileID   *uint            `json:"stored_file_id"`
	StoredFile     *StoredFile      `json:"-" gorm:"foreignKey:StoredFileID"`
}

func (RegistrationData) TableName() string {
	return "registration_data"
}
