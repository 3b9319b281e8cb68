package regform

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gdg-garage/garage-regform-api/internal/fields"
	"github.com/gdg-garage/garage-regform-api/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Submission is one request's worth of raw field values, keyed by field
// id.
type Submission map[uint]json.RawMessage

// CreateRegistration validates and stores a new registration. Fields the
// submission leaves out receive their type's default value.
func (s *Service) CreateRegistration(formID, userID uint, values Submission, management bool) (*models.Registration, error) {
	formFields, err := s.LoadFormFields(formID)
	if err != nil {
		return nil, err
	}
	if _, err := s.validateSubmission(s.db, formFields, nil, values, false); err != nil {
		return nil, err
	}

	reg := &models.Registration{FormID: formID, UserID: userID, State: models.RegistrationStatePending}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(reg).Error; err != nil {
			return err
		}
		return s.applySubmission(tx, reg, formFields, nil, values, false, management)
	})
	if err != nil {
		return nil, err
	}
	return reg, nil
}

// ModifyRegistration runs the submission pipeline against an existing
// registration: one validation pass over all fields (all-or-nothing),
// then per-field reconciliation inside a single transaction. Entries the
// reconciliation reports as unchanged keep their old data and their old
// pinned snapshot.
func (s *Service) ModifyRegistration(reg *models.Registration, values Submission, management bool) error {
	formFields, err := s.LoadFormFields(reg.FormID)
	if err != nil {
		return err
	}
	entries, err := s.dataByField(reg)
	if err != nil {
		return err
	}
	if _, err := s.validateSubmission(s.db, formFields, entries, values, true); err != nil {
		return err
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		return s.applySubmission(tx, reg, formFields, entries, values, true, management)
	})
}

// dataByField loads the registration's stored entries keyed by field id,
// with their pinned snapshots.
func (s *Service) dataByField(reg *models.Registration) (map[uint]*models.RegistrationData, error) {
	var rows []models.RegistrationData
	err := s.db.Preload("FieldData").Preload("StoredFile").
		Where("registration_id = ?", reg.ID).Find(&rows).Error
	if err != nil {
		return nil, err
	}
	entries := make(map[uint]*models.RegistrationData, len(rows))
	for i := range rows {
		entries[rows[i].FieldData.FieldID] = &rows[i]
	}
	return entries, nil
}

// validateSubmission decodes and validates every submitted value against
// the current snapshots and capacity counts. All validators run; any
// failure aborts the whole submission with the collected messages.
func (s *Service) validateSubmission(db *gorm.DB, formFields []models.FormField, entries map[uint]*models.RegistrationData, values Submission, modifying bool) (map[uint]any, error) {
	decoded := make(map[uint]any)
	var problems []string
	for i := range formFields {
		field := &formFields[i]
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

		raw, submitted := values[field.ID]
		entry := entries[field.ID]
		if !submitted {
			if entry != nil || modifying {
				continue
			}
			if value := impl.DefaultValue(unversioned, versioned); value != nil {
				decoded[field.ID] = value
			}
			continue
		}

		value, err := impl.DecodeValue(raw)
		if err != nil {
			problems = append(problems, fieldProblem(field, err))
			continue
		}
		if field.IsRequired && emptyValue(value) {
			problems = append(problems, fmt.Sprintf("%s: this field is required", field.Title))
			continue
		}

		ctx := &fields.SubmissionContext{
			Unversioned: unversioned,
			Versioned:   versioned,
			Modifying:   modifying,
		}
		if entry != nil {
			oldValue, err := s.entryValue(entry, impl)
			if err != nil {
				return nil, err
			}
			ctx.OldValue = oldValue
			ctx.HasOld = true
		}
		if _, ok := impl.(fields.CapacityLimited); ok {
			used, err := placesUsed(db, field)
			if err != nil {
				return nil, err
			}
			ctx.PlacesUsed = used
		}
		if err := impl.Validate(ctx, value); err != nil {
			problems = append(problems, fieldProblem(field, err))
			continue
		}
		decoded[field.ID] = value
	}
	if len(problems) > 0 {
		return nil, &fields.ValidationError{Message: strings.Join(problems, "; ")}
	}
	return decoded, nil
}

// applySubmission reconciles and writes the accepted values. Capacity is
// re-verified inside the transaction right before the writes to close the
// check-then-act window between concurrent submissions.
func (s *Service) applySubmission(tx *gorm.DB, reg *models.Registration, formFields []models.FormField, entries map[uint]*models.RegistrationData, values Submission, modifying, management bool) error {
	decoded, err := s.validateSubmission(tx, formFields, entries, values, modifying)
	if err != nil {
		return err
	}
	locked := !management && reg.IsPaid()
	for i := range formFields {
		field := &formFields[i]
		value, ok := decoded[field.ID]
		if !ok {
			continue
		}
		impl, err := s.impl(field)
		if err != nil {
			return err
		}
		unversioned, err := fields.DecodeUnversioned(field.Data)
		if err != nil {
			return err
		}
		versioned, err := fields.DecodeVersioned(field.CurrentData.Data)
		if err != nil {
			return err
		}

		entry := entries[field.ID]
		var old *fields.OldEntry
		if entry != nil {
			oldValue, err := s.entryValue(entry, impl)
			if err != nil {
				return err
			}
			oldVersioned, err := fields.DecodeVersioned(entry.FieldData.Data)
			if err != nil {
				return err
			}
			old = &fields.OldEntry{
				Value:     oldValue,
				Versioned: oldVersioned,
				Price:     impl.CalculatePrice(oldValue, oldVersioned),
			}
		}

		ctx := &fields.SubmissionContext{Unversioned: unversioned, Versioned: versioned, Modifying: modifying}
		storedValue, changed := impl.ProcessFormData(ctx, value, old, locked)
		if !changed {
			continue
		}

		if entry == nil {
			entry = &models.RegistrationData{RegistrationID: reg.ID}
		}
		// accepted writes pin the snapshot active right now
		entry.FieldDataID = *field.CurrentDataID
		if impl.Type() == fields.TypeFile {
			if err := s.applyFileAction(tx, reg, entry, storedValue); err != nil {
				return err
			}
		} else {
			payload, err := json.Marshal(storedValue)
			if err != nil {
				return err
			}
			entry.Data = datatypes.JSON(payload)
		}
		if err := tx.Save(entry).Error; err != nil {
			return err
		}
	}
	return nil
}

// applyFileAction resolves a file reconciliation result onto the entry:
// a file key replaces the stored file, nil clears it.
func (s *Service) applyFileAction(tx *gorm.DB, reg *models.Registration, entry *models.RegistrationData, storedValue any) error {
	if storedValue == nil {
		entry.StoredFileID = nil
		entry.Data = nil
		return nil
	}
	key, ok := storedValue.(string)
	if !ok {
		return fmt.Errorf("unexpected file value %T", storedValue)
	}
	var stored models.StoredFile
	err := tx.Where("key = ? AND user_id = ?", key, reg.UserID).First(&stored).Error
	if err == gorm.ErrRecordNotFound {
		return &fields.ValidationError{Message: "Uploaded file not found"}
	}
	if err != nil {
		return err
	}
	entry.StoredFileID = &stored.ID
	entry.Data = nil
	return nil
}

// entryValue decodes the stored value of an entry. File entries carry no
// data payload and decode to nil.
func (s *Service) entryValue(entry *models.RegistrationData, impl fields.Field) (any, error) {
	if len(entry.Data) == 0 {
		return nil, nil
	}
	return impl.DecodeValue(json.RawMessage(entry.Data))
}

func fieldProblem(field *models.FormField, err error) string {
	return fmt.Sprintf("%s: %s", field.Title, err.Error())
}

func emptyValue(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case map[string]int:
		return len(v) == 0
	case *fields.AccommodationValue:
		return v == nil
	case *fields.FileValue:
		return v == nil || (v.UploadedFileID == "" && !v.KeepExisting)
	default:
		return false
	}
}
