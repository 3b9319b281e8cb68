// Package regform ties the field-type implementations to the persistence
// layer: it maintains the versioned field configuration, derives capacity
// counts from active registrations and runs the submission pipeline.
package regform

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/gdg-garage/garage-regform-api/internal/fields"
	"github.com/gdg-garage/garage-regform-api/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

func (s *Service) impl(field *models.FormField) (fields.Field, error) {
	impl, ok := fields.Get(fields.Type(field.FieldType))
	if !ok {
		return nil, fmt.Errorf("unknown field type %q", field.FieldType)
	}
	return impl, nil
}

// CreateField processes the admin configuration for a new field and
// stores it together with its first versioned snapshot.
func (s *Service) CreateField(formID uint, title string, fieldType fields.Type, required bool, description string, cfg *fields.Config) (*models.FormField, error) {
	impl, ok := fields.Get(fieldType)
	if !ok {
		return nil, fmt.Errorf("unknown field type %q", fieldType)
	}
	unversioned, versioned, err := impl.ProcessFieldData(cfg, nil, nil)
	if err != nil {
		return nil, err
	}
	unversionedJSON, err := json.Marshal(unversioned)
	if err != nil {
		return nil, err
	}
	versionedJSON, err := json.Marshal(versioned)
	if err != nil {
		return nil, err
	}

	field := &models.FormField{
		FormID:      formID,
		Title:       title,
		Description: description,
		FieldType:   string(fieldType),
		IsRequired:  required,
		Data:        datatypes.JSON(unversionedJSON),
	}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(field).Error; err != nil {
			return err
		}
		version := &models.FieldDataVersion{FieldID: field.ID, Data: datatypes.JSON(versionedJSON)}
		if err := tx.Create(version).Error; err != nil {
			return err
		}
		field.CurrentDataID = &version.ID
		field.CurrentData = version
		return tx.Model(field).Update("current_data_id", version.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return field, nil
}

// UpdateField reprocesses the configuration against the existing payloads.
// Captions and other unversioned keys are updated in place; if the
// versioned payload changed, a new snapshot row is appended and the field
// repointed, leaving old snapshots untouched for historical entries.
func (s *Service) UpdateField(fieldID uint, cfg *fields.Config) (*models.FormField, error) {
	field, err := s.LoadField(fieldID)
	if err != nil {
		return nil, err
	}
	impl, err := s.impl(field)
	if err != nil {
		return nil, err
	}
	oldUnversioned, err := fields.DecodeUnversioned(field.Data)
	if err != nil {
		return nil, err
	}
	oldVersioned, err := fields.DecodeVersioned(field.CurrentData.Data)
	if err != nil {
		return nil, err
	}
	unversioned, versioned, err := impl.ProcessFieldData(cfg, oldUnversioned, oldVersioned)
	if err != nil {
		return nil, err
	}
	unversionedJSON, err := json.Marshal(unversioned)
	if err != nil {
		return nil, err
	}
	versionedJSON, err := json.Marshal(versioned)
	if err != nil {
		return nil, err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		field.Data = datatypes.JSON(unversionedJSON)
		if !bytes.Equal(versionedJSON, normalizeJSON(field.CurrentData.Data)) {
			version := &models.FieldDataVersion{FieldID: field.ID, Data: datatypes.JSON(versionedJSON)}
			if err := tx.Create(version).Error; err != nil {
				return err
			}
			field.CurrentDataID = &version.ID
			field.CurrentData = version
		}
		return tx.Save(field).Error
	})
	if err != nil {
		return nil, err
	}
	return field, nil
}

// LoadField fetches a field with its current snapshot.
func (s *Service) LoadField(fieldID uint) (*models.FormField, error) {
	field := &models.FormField{}
	if err := s.db.Preload("CurrentData").First(field, fieldID).Error; err != nil {
		return nil, err
	}
	if field.CurrentData == nil {
		return nil, fmt.Errorf("field %d has no current data version", fieldID)
	}
	return field, nil
}

// LoadFormFields fetches all fields of a form with their current
// snapshots.
func (s *Service) LoadFormFields(formID uint) ([]models.FormField, error) {
	var formFields []models.FormField
	err := s.db.Preload("CurrentData").Where("form_id = ?", formID).Order("id").Find(&formFields).Error
	if err != nil {
		return nil, err
	}
	return formFields, nil
}

// AdminView is the admin-facing configuration of a field, with occupancy
// counts for capacity-limited types.
type AdminView struct {
	*fields.AdminView
	FieldID    uint           `json:"field_id"`
	Title      string         `json:"title"`
	FieldType  string         `json:"field_type"`
	IsRequired bool           `json:"is_required"`
	PlacesUsed map[string]int `json:"places_used,omitempty"`
}

// FieldAdminView runs the inverse configuration transform for the form
// builder.
func (s *Service) FieldAdminView(field *models.FormField) (*AdminView, error) {
	impl, err := s.impl(field)
	if err != nil {
		return nil, err
	}
	unversioned, err := fields.DecodeUnversioned(field.Data)
	if err != nil {
		return nil, err
	}
	versioned, err := fields.DecodeVersioned(field.CurrentData.Data)
	if err != nil {
		return nil, err
	}
	view, err := impl.UnprocessFieldData(versioned, unversioned)
	if err != nil {
		return nil, err
	}
	out := &AdminView{
		AdminView:  view,
		FieldID:    field.ID,
		Title:      field.Title,
		FieldType:  field.FieldType,
		IsRequired: field.IsRequired,
	}
	if _, ok := impl.(fields.CapacityLimited); ok {
		used, err := s.PlacesUsed(field)
		if err != nil {
			return nil, err
		}
		out.PlacesUsed = used
	}
	return out, nil
}

// normalizeJSON re-marshals a stored payload through the snapshot struct
// so byte comparison is not sensitive to key ordering of hand-written
// fixtures.
func normalizeJSON(raw []byte) []byte {
	data, err := fields.DecodeVersioned(raw)
	if err != nil {
		return raw
	}
	out, err := json.Marshal(data)
	if err != nil {
		return raw
	}
	return out
}
