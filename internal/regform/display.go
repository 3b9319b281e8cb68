package regform

import (
	"fmt"

	"github.com/gdg-garage/garage-regform-api/internal/fields"
	"github.com/gdg-garage/garage-regform-api/internal/models"
)

// FieldView is the read-side rendering of one stored entry. Price is
// always computed against the snapshot the entry pinned at submission
// time, so configuration changes never reprice existing registrations.
type FieldView struct {
	FieldID      uint    `json:"field_id"`
	Title        string  `json:"title"`
	FieldType    string  `json:"field_type"`
	FriendlyData any     `json:"friendly_data"`
	Price        float64 `json:"price"`
}

// RegistrationView renders all stored entries of a registration and the
// total price.
func (s *Service) RegistrationView(reg *models.Registration) ([]FieldView, float64, error) {
	formFields, err := s.LoadFormFields(reg.FormID)
	if err != nil {
		return nil, 0, err
	}
	entries, err := s.dataByField(reg)
	if err != nil {
		return nil, 0, err
	}
	var views []FieldView
	var total float64
	for i := range formFields {
		field := &formFields[i]
		entry := entries[field.ID]
		if entry == nil {
			continue
		}
		impl, err := s.impl(field)
		if err != nil {
			return nil, 0, err
		}
		unversioned, err := fields.DecodeUnversioned(field.Data)
		if err != nil {
			return nil, 0, err
		}
		pinned, err := fields.DecodeVersioned(entry.FieldData.Data)
		if err != nil {
			return nil, 0, err
		}
		value, err := s.entryValue(entry, impl)
		if err != nil {
			return nil, 0, err
		}
		if impl.Type() == fields.TypeFile {
			if entry.StoredFile != nil {
				value = entry.StoredFile.Filename
			} else {
				value = nil
			}
		}
		price := impl.CalculatePrice(value, pinned)
		total += price
		views = append(views, FieldView{
			FieldID:      field.ID,
			Title:        field.Title,
			FieldType:    field.FieldType,
			FriendlyData: impl.FriendlyData(value, unversioned, pinned),
			Price:        price,
		})
	}
	return views, total, nil
}

// TotalPrice computes the registration's charge from its pinned
// snapshots.
func (s *Service) TotalPrice(reg *models.Registration) (float64, error) {
	_, total, err := s.RegistrationView(reg)
	return total, err
}

// MergedOptions is the admin view of a choice field extended with options
// the given registration selected that no longer exist in the current
// snapshot.
type MergedOptions struct {
	*AdminView
	DeletedChoices []string `json:"deleted_choices"`
}

// FieldMergedOptions merges options back from the registration's pinned
// snapshot so an edit form can still show a selection whose option was
// removed since.
func (s *Service) FieldMergedOptions(field *models.FormField, reg *models.Registration) (*MergedOptions, error) {
	view, err := s.FieldAdminView(field)
	if err != nil {
		return nil, err
	}
	out := &MergedOptions{AdminView: view, DeletedChoices: []string{}}
	entries, err := s.dataByField(reg)
	if err != nil {
		return nil, err
	}
	entry := entries[field.ID]
	if entry == nil || len(entry.Data) == 0 {
		return out, nil
	}
	impl, err := s.impl(field)
	if err != nil {
		return nil, err
	}
	value, err := s.entryValue(entry, impl)
	if err != nil {
		return nil, err
	}
	chosen := chosenIDs(value)
	if len(chosen) == 0 {
		return out, nil
	}

	current := map[string]bool{}
	for _, choice := range view.Choices {
		current[choice.ID] = true
	}
	var merged *fields.AdminView
	for _, id := range chosen {
		if id == "" || current[id] {
			continue
		}
		if merged == nil {
			pinnedVersioned, err := fields.DecodeVersioned(entry.FieldData.Data)
			if err != nil {
				return nil, err
			}
			unversioned, err := fields.DecodeUnversioned(field.Data)
			if err != nil {
				return nil, err
			}
			merged, err = impl.UnprocessFieldData(pinnedVersioned, unversioned)
			if err != nil {
				return nil, err
			}
		}
		for _, choice := range merged.Choices {
			if choice.ID == id {
				view.Choices = append(view.Choices, choice)
				out.DeletedChoices = append(out.DeletedChoices, id)
				break
			}
		}
	}
	return out, nil
}

// chosenIDs extracts the selected option ids from a stored choice or
// accommodation value.
func chosenIDs(value any) []string {
	switch v := value.(type) {
	case map[string]int:
		ids := make([]string, 0, len(v))
		for id := range v {
			ids = append(ids, id)
		}
		return ids
	case *fields.AccommodationValue:
		if v == nil {
			return nil
		}
		return []string{v.Choice}
	default:
		return nil
	}
}

// RenderPlaceholder substitutes a stored entry's attribute into templated
// text, e.g. accommodation name/nights/arrival/departure for mail merge.
func (s *Service) RenderPlaceholder(reg *models.Registration, field *models.FormField, key string) (string, error) {
	impl, err := s.impl(field)
	if err != nil {
		return "", err
	}
	renderer, ok := impl.(fields.PlaceholderRenderer)
	if !ok {
		return "", fmt.Errorf("field type %s has no placeholders", field.FieldType)
	}
	entries, err := s.dataByField(reg)
	if err != nil {
		return "", err
	}
	entry := entries[field.ID]
	if entry == nil {
		return "", nil
	}
	value, err := s.entryValue(entry, impl)
	if err != nil {
		return "", err
	}
	unversioned, err := fields.DecodeUnversioned(field.Data)
	if err != nil {
		return "", err
	}
	return renderer.RenderPlaceholder(key, value, unversioned), nil
}
