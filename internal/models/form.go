package models

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// RegistrationForm is the registration form of one event.
type RegistrationForm struct {
	gorm.Model
	Event  string      `json:"event" gorm:"uniqueIndex"`
	Title  string      `json:"title"`
	Fields []FormField `json:"fields" gorm:"foreignKey:FormID"`
}

// FormField is one field on a form. Data holds the unversioned payload
// (captions, date bounds, shared places limit), which is edited in place;
// the versioned snapshot lives in FieldDataVersion rows and CurrentDataID
// points at the live one.
type FormField struct {
	gorm.Model
	FormID        uint              `json:"form_id" gorm:"index"`
	Title         string            `json:"title"`
	Description   string            `json:"description"`
	FieldType     string            `json:"field_type"`
	IsRequired    bool              `json:"is_required"`
	Data          datatypes.JSON    `json:"data"`
	CurrentDataID *uint             `json:"current_data_id"`
	CurrentData   *FieldDataVersion `json:"-" gorm:"foreignKey:CurrentDataID"`
}

// FieldDataVersion is one immutable configuration snapshot of a field.
// Rows are append-only: editing versioned keys creates a new row and
// repoints FormField.CurrentDataID, old rows stay reachable from the
// registration entries pinned to them.
type FieldDataVersion struct {
	gorm.Model
	FieldID uint           `json:"field_id" gorm:"index"`
	Field   *FormField     `json:"-" gorm:"foreignKey:FieldID"`
	Data    datatypes.JSON `json:"data"`
}
