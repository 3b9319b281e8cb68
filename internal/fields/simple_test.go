package fields

import (
	"encoding/json"
	"testing"
)

func TestNumberField(t *testing.T) {
	field := &NumberField{}

	t.Run("ConfigCoercion", func(t *testing.T) {
		unversioned, versioned, err := field.ProcessFieldData(&Config{IsBillable: true, Price: "12.5", MinValue: "2"}, nil, nil)
		if err != nil {
			t.Fatalf("ProcessFieldData returned error: %v", err)
		}
		if versioned.Price != 12.5 {
			t.Errorf("expected price 12.5, got %v", versioned.Price)
		}
		if unversioned.MinValue != 2 {
			t.Errorf("expected min value 2, got %v", unversioned.MinValue)
		}
	})

	t.Run("MinValue", func(t *testing.T) {
		ctx := &SubmissionContext{Unversioned: &UnversionedData{MinValue: 2}}
		if err := field.Validate(ctx, 1); err == nil {
			t.Error("expected error below min value, got nil")
		}
		if err := field.Validate(ctx, 2); err != nil {
			t.Errorf("expected min value itself to pass, got %v", err)
		}
	})

	t.Run("PricePerUnit", func(t *testing.T) {
		versioned := &VersionedData{IsBillable: true, Price: 10}
		if price := field.CalculatePrice(3, versioned); price != 30 {
			t.Errorf("expected 30, got %v", price)
		}
		if price := field.CalculatePrice(3, &VersionedData{Price: 10}); price != 0 {
			t.Errorf("expected 0 for non-billable field, got %v", price)
		}
	})

	t.Run("PaidEntryLocked", func(t *testing.T) {
		old := &OldEntry{Value: 3, Price: 30}
		if _, changed := field.ProcessFormData(&SubmissionContext{}, 5, old, true); changed {
			t.Error("expected edit of a paid quantity to be ignored")
		}
		old = &OldEntry{Value: 3, Price: 0}
		if _, changed := field.ProcessFormData(&SubmissionContext{}, 5, old, true); !changed {
			t.Error("expected edit of a free quantity to proceed")
		}
	})
}

func TestCheckboxField(t *testing.T) {
	field := &CheckboxField{}
	unversioned := &UnversionedData{PlacesLimit: 2}

	t.Run("SharedPoolFull", func(t *testing.T) {
		ctx := &SubmissionContext{
			Unversioned: unversioned,
			PlacesUsed:  map[string]int{SharedPool: 2},
		}
		if err := field.Validate(ctx, true); err == nil {
			t.Error("expected error when the pool is full, got nil")
		}
		if err := field.Validate(ctx, false); err != nil {
			t.Errorf("expected false to pass regardless of the pool, got %v", err)
		}
	})

	t.Run("UnchangedResubmissionSkipsCheck", func(t *testing.T) {
		ctx := &SubmissionContext{
			Unversioned: unversioned,
			PlacesUsed:  map[string]int{SharedPool: 2},
			Modifying:   true,
			HasOld:      true,
			OldValue:    true,
		}
		if err := field.Validate(ctx, true); err != nil {
			t.Errorf("expected keeping the tick to pass at the limit, got %v", err)
		}
	})

	t.Run("PlacesUsed", func(t *testing.T) {
		used := field.PlacesUsed([]any{true, false, true, nil})
		if used[SharedPool] != 2 {
			t.Errorf("expected 2 used, got %v", used[SharedPool])
		}
	})

	t.Run("Price", func(t *testing.T) {
		versioned := &VersionedData{IsBillable: true, Price: 25}
		if price := field.CalculatePrice(true, versioned); price != 25 {
			t.Errorf("expected 25, got %v", price)
		}
		if price := field.CalculatePrice(false, versioned); price != 0 {
			t.Errorf("expected 0 when unticked, got %v", price)
		}
	})

	t.Run("FriendlyData", func(t *testing.T) {
		if s := field.FriendlyData(true, nil, nil); s != "Yes" {
			t.Errorf("expected Yes, got %v", s)
		}
		if s := field.FriendlyData(false, nil, nil); s != "No" {
			t.Errorf("expected No, got %v", s)
		}
	})
}

func TestDateField(t *testing.T) {
	field := &DateField{}

	t.Run("DefaultFormat", func(t *testing.T) {
		unversioned, _, _ := field.ProcessFieldData(&Config{}, nil, nil)
		if unversioned.DateFormat != defaultDateFormat {
			t.Errorf("expected default format, got %s", unversioned.DateFormat)
		}
	})

	t.Run("StoredAsISO", func(t *testing.T) {
		ctx := &SubmissionContext{Unversioned: &UnversionedData{DateFormat: "02/01/2006"}}
		value, changed := field.ProcessFormData(ctx, "24/12/2026", nil, false)
		if !changed {
			t.Fatal("expected date submission to be stored")
		}
		if value != "2026-12-24T00:00:00" {
			t.Errorf("expected ISO storage form, got %v", value)
		}
	})

	t.Run("FriendlyDataReformats", func(t *testing.T) {
		unversioned := &UnversionedData{DateFormat: "02/01/2006"}
		if s := field.FriendlyData("2026-12-24T00:00:00", unversioned, nil); s != "24/12/2026" {
			t.Errorf("expected display format back, got %v", s)
		}
	})

	t.Run("InvalidDate", func(t *testing.T) {
		ctx := &SubmissionContext{Unversioned: &UnversionedData{DateFormat: "02/01/2006"}}
		if err := field.Validate(ctx, "2026-12-24"); err == nil {
			t.Error("expected error for wrong input format, got nil")
		}
	})

	t.Run("HasTime", func(t *testing.T) {
		if field.HasTime(&UnversionedData{DateFormat: "02/01/2006"}) {
			t.Error("date-only format reported a time component")
		}
		if !field.HasTime(&UnversionedData{DateFormat: "02/01/2006 15:04"}) {
			t.Error("datetime format reported no time component")
		}
	})
}

func TestPhoneField(t *testing.T) {
	field := &PhoneField{}
	cases := map[string]string{
		`"+420 777 123 456"`: "+420777123456",
		`"(777) 123-456"`:    "777123456",
		`"777+123"`:          "777123",
		`""`:                 "",
	}
	for input, want := range cases {
		value, err := field.DecodeValue(json.RawMessage(input))
		if err != nil {
			t.Fatalf("DecodeValue(%s) returned error: %v", input, err)
		}
		if value != want {
			t.Errorf("DecodeValue(%s) = %q, want %q", input, value, want)
		}
	}
}

func TestEmailField(t *testing.T) {
	field := &EmailField{}

	t.Run("Normalized", func(t *testing.T) {
		value, err := field.DecodeValue(json.RawMessage(`" John@Example.COM "`))
		if err != nil {
			t.Fatalf("DecodeValue returned error: %v", err)
		}
		if value != "john@example.com" {
			t.Errorf("expected lowercased trimmed address, got %q", value)
		}
	})

	t.Run("Validation", func(t *testing.T) {
		if err := field.Validate(&SubmissionContext{}, "john@example.com"); err != nil {
			t.Errorf("expected valid address to pass, got %v", err)
		}
		if err := field.Validate(&SubmissionContext{}, "not-an-email"); err == nil {
			t.Error("expected error for invalid address, got nil")
		}
		if err := field.Validate(&SubmissionContext{}, ""); err != nil {
			t.Errorf("expected empty value to pass, got %v", err)
		}
	})
}

func TestCountryField(t *testing.T) {
	field := &CountryField{}

	t.Run("Validation", func(t *testing.T) {
		if err := field.Validate(&SubmissionContext{}, "CZ"); err != nil {
			t.Errorf("expected CZ to pass, got %v", err)
		}
		if err := field.Validate(&SubmissionContext{}, "XX"); err == nil {
			t.Error("expected error for unknown code, got nil")
		}
	})

	t.Run("FriendlyData", func(t *testing.T) {
		if name := field.FriendlyData("CZ", nil, nil); name != "Czechia" {
			t.Errorf("expected Czechia, got %v", name)
		}
	})

	t.Run("AdminChoicesSorted", func(t *testing.T) {
		view, err := field.UnprocessFieldData(&VersionedData{}, &UnversionedData{})
		if err != nil {
			t.Fatalf("UnprocessFieldData returned error: %v", err)
		}
		if len(view.Choices) != len(Countries) {
			t.Fatalf("expected %d countries, got %d", len(Countries), len(view.Choices))
		}
		for i := 1; i < len(view.Choices); i++ {
			if view.Choices[i-1].Caption > view.Choices[i].Caption {
				t.Fatalf("countries not sorted at %d: %s > %s", i, view.Choices[i-1].Caption, view.Choices[i].Caption)
			}
		}
	})
}

func TestFileField(t *testing.T) {
	field := &FileField{}
	ctx := &SubmissionContext{}

	t.Run("UploadReplaces", func(t *testing.T) {
		value, changed := field.ProcessFormData(ctx, &FileValue{KeepExisting: true, UploadedFileID: "abc"}, nil, false)
		if !changed || value != "abc" {
			t.Errorf("expected upload to be stored, got %v changed=%v", value, changed)
		}
	})

	t.Run("EmptyClears", func(t *testing.T) {
		value, changed := field.ProcessFormData(ctx, &FileValue{}, nil, false)
		if !changed || value != nil {
			t.Errorf("expected clear, got %v changed=%v", value, changed)
		}
	})

	t.Run("KeepExisting", func(t *testing.T) {
		if _, changed := field.ProcessFormData(ctx, &FileValue{KeepExisting: true}, nil, false); changed {
			t.Error("expected keep_existing alone to leave the entry untouched")
		}
	})

	t.Run("DecodeNull", func(t *testing.T) {
		value, err := field.DecodeValue(json.RawMessage("null"))
		if err != nil {
			t.Fatalf("DecodeValue returned error: %v", err)
		}
		fv, ok := value.(*FileValue)
		if !ok || fv.KeepExisting || fv.UploadedFileID != "" {
			t.Errorf("expected empty file value for null, got %#v", value)
		}
	})
}
