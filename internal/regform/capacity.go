package regform

import (
	"encoding/json"

	"github.com/gdg-garage/garage-regform-api/internal/fields"
	"github.com/gdg-garage/garage-regform-api/internal/models"
	"gorm.io/gorm"
)

// activeFieldValues decodes the stored values of one field across all
// active registrations of its form. Entries pinned to any version of the
// field count; withdrawn and rejected registrations do not.
func activeFieldValues(db *gorm.DB, field *models.FormField, impl fields.Field) ([]any, error) {
	var rows []models.RegistrationData
	err := db.
		Joins("JOIN field_data_versions ON field_data_versions.id = registration_data.field_data_id").
		Joins("JOIN registrations ON registrations.id = registration_data.registration_id").
		Where("field_data_versions.field_id = ?", field.ID).
		Where("registrations.form_id = ? AND registrations.state IN ?", field.FormID, models.ActiveRegistrationStates).
		Where("registrations.deleted_at IS NULL").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	values := make([]any, 0, len(rows))
	for _, row := range rows {
		if len(row.Data) == 0 {
			continue
		}
		value, err := impl.DecodeValue(json.RawMessage(row.Data))
		if err != nil {
			// stored data was written by us, a decode failure is a bug
			return nil, err
		}
		values = append(values, value)
	}
	return values, nil
}

// PlacesUsed recomputes the occupancy counts of a capacity-limited field
// by scanning active registrations. The counts are never cached across
// requests since registrations change concurrently.
func (s *Service) PlacesUsed(field *models.FormField) (map[string]int, error) {
	return placesUsed(s.db, field)
}

func placesUsed(db *gorm.DB, field *models.FormField) (map[string]int, error) {
	impl, ok := fields.Get(fields.Type(field.FieldType))
	if !ok {
		return nil, nil
	}
	counter, ok := impl.(fields.CapacityLimited)
	if !ok {
		return nil, nil
	}
	values, err := activeFieldValues(db, field, impl)
	if err != nil {
		return nil, err
	}
	return counter.PlacesUsed(values), nil
}
