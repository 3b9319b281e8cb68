package fields

import (
	"encoding/json"
	"reflect"
	"testing"
)

func singleChoiceConfig() *Config {
	return &Config{
		Choices: []ChoiceConfig{
			{Caption: "Small room", Price: 50, PlacesLimit: 2, IsBillable: true},
			{Caption: "Large room", Price: "80", PlacesLimit: "5", IsBillable: true},
			{Caption: "No room"},
		},
	}
}

func TestProcessChoices(t *testing.T) {
	field := &SingleChoiceField{}

	t.Run("AssignsIDsAndCoercesNumbers", func(t *testing.T) {
		unversioned, versioned, err := field.ProcessFieldData(singleChoiceConfig(), nil, nil)
		if err != nil {
			t.Fatalf("ProcessFieldData returned error: %v", err)
		}
		if len(versioned.Choices) != 3 {
			t.Fatalf("expected 3 choices, got %d", len(versioned.Choices))
		}
		for _, c := range versioned.Choices {
			if c.ID == "" {
				t.Errorf("choice %q got no id", unversioned.Captions[c.ID])
			}
		}
		if versioned.Choices[1].Price != 80 {
			t.Errorf("expected string price coerced to 80, got %v", versioned.Choices[1].Price)
		}
		if versioned.Choices[1].PlacesLimit != 5 {
			t.Errorf("expected string places limit coerced to 5, got %v", versioned.Choices[1].PlacesLimit)
		}
		if unversioned.Captions[versioned.Choices[0].ID] != "Small room" {
			t.Errorf("caption not stored for first choice")
		}
	})

	t.Run("ReprocessingKeepsIDs", func(t *testing.T) {
		unversioned, versioned, _ := field.ProcessFieldData(singleChoiceConfig(), nil, nil)
		cfg := &Config{}
		for _, c := range versioned.Choices {
			cfg.Choices = append(cfg.Choices, ChoiceConfig{
				ID:      c.ID,
				Caption: unversioned.Captions[c.ID],
				Price:   c.Price * 2,
			})
		}
		_, versioned2, err := field.ProcessFieldData(cfg, unversioned, versioned)
		if err != nil {
			t.Fatalf("ProcessFieldData returned error: %v", err)
		}
		for i, c := range versioned2.Choices {
			if c.ID != versioned.Choices[i].ID {
				t.Errorf("choice %d changed id from %s to %s", i, versioned.Choices[i].ID, c.ID)
			}
		}
	})

	t.Run("RemovedChoiceKeepsCaption", func(t *testing.T) {
		unversioned, versioned, _ := field.ProcessFieldData(singleChoiceConfig(), nil, nil)
		removedID := versioned.Choices[0].ID
		cfg := &Config{}
		for _, c := range versioned.Choices {
			cfg.Choices = append(cfg.Choices, ChoiceConfig{
				ID:      c.ID,
				Caption: unversioned.Captions[c.ID],
				Remove:  c.ID == removedID,
			})
		}
		unversioned2, versioned2, err := field.ProcessFieldData(cfg, unversioned, versioned)
		if err != nil {
			t.Fatalf("ProcessFieldData returned error: %v", err)
		}
		if len(versioned2.Choices) != 2 {
			t.Fatalf("expected 2 choices after removal, got %d", len(versioned2.Choices))
		}
		if unversioned2.Captions[removedID] != "Small room" {
			t.Errorf("removed choice lost its caption, entries pinned to old versions can't display it")
		}
		if friendly := field.FriendlyData(map[string]int{removedID: 1}, unversioned2, versioned2); friendly != "Small room" {
			t.Errorf("expected removed choice to still render as Small room, got %v", friendly)
		}
	})
}

func TestSingleChoiceDefault(t *testing.T) {
	field := &SingleChoiceField{}

	t.Run("ResolvedByCaption", func(t *testing.T) {
		cfg := singleChoiceConfig()
		cfg.DefaultItem = "Large room"
		unversioned, versioned, _ := field.ProcessFieldData(cfg, nil, nil)
		if unversioned.DefaultItem != versioned.Choices[1].ID {
			t.Errorf("expected default resolved to id %s, got %s", versioned.Choices[1].ID, unversioned.DefaultItem)
		}
		value := field.DefaultValue(unversioned, versioned)
		want := map[string]int{versioned.Choices[1].ID: 1}
		if !reflect.DeepEqual(value, want) {
			t.Errorf("expected default value %v, got %v", want, value)
		}
	})

	t.Run("EmptyAfterDefaultRemoved", func(t *testing.T) {
		cfg := singleChoiceConfig()
		cfg.DefaultItem = "Small room"
		unversioned, versioned, _ := field.ProcessFieldData(cfg, nil, nil)

		edit := &Config{DefaultItem: unversioned.DefaultItem}
		for _, c := range versioned.Choices {
			edit.Choices = append(edit.Choices, ChoiceConfig{
				ID:      c.ID,
				Caption: unversioned.Captions[c.ID],
				Remove:  c.ID == unversioned.DefaultItem,
			})
		}
		unversioned2, versioned2, _ := field.ProcessFieldData(edit, unversioned, versioned)
		value := field.DefaultValue(unversioned2, versioned2)
		if m, ok := value.(map[string]int); !ok || len(m) != 0 {
			t.Errorf("expected empty default after the default item was removed, got %v", value)
		}
	})

	t.Run("NilWithoutDefault", func(t *testing.T) {
		unversioned, versioned, _ := field.ProcessFieldData(singleChoiceConfig(), nil, nil)
		if value := field.DefaultValue(unversioned, versioned); value != nil {
			t.Errorf("expected nil default, got %v", value)
		}
	})
}

func TestSingleChoiceDecodeValue(t *testing.T) {
	field := &SingleChoiceField{}

	t.Run("Null", func(t *testing.T) {
		value, err := field.DecodeValue(json.RawMessage("null"))
		if err != nil {
			t.Fatalf("DecodeValue returned error: %v", err)
		}
		if m, ok := value.(map[string]int); !ok || len(m) != 0 {
			t.Errorf("expected empty map for null, got %v", value)
		}
	})

	t.Run("MultipleSelectionsRejected", func(t *testing.T) {
		_, err := field.DecodeValue(json.RawMessage(`{"a": 1, "b": 1}`))
		if err == nil {
			t.Fatal("expected error for two selected options, got nil")
		}
	})
}

func TestValidateChoicePlaces(t *testing.T) {
	field := &SingleChoiceField{}
	unversioned, versioned, _ := field.ProcessFieldData(singleChoiceConfig(), nil, nil)
	smallID := versioned.Choices[0].ID // limit 2

	ctx := func(used int) *SubmissionContext {
		return &SubmissionContext{
			Unversioned: unversioned,
			Versioned:   versioned,
			PlacesUsed:  map[string]int{smallID: used},
		}
	}

	t.Run("WithinLimit", func(t *testing.T) {
		if err := field.Validate(ctx(1), map[string]int{smallID: 1}); err != nil {
			t.Errorf("expected selection within limit to pass, got %v", err)
		}
	})

	t.Run("OverLimit", func(t *testing.T) {
		err := field.Validate(ctx(2), map[string]int{smallID: 1})
		if err == nil {
			t.Fatal("expected error when the option is full, got nil")
		}
		verr, ok := err.(*ValidationError)
		if !ok {
			t.Fatalf("expected ValidationError, got %T", err)
		}
		if verr.Message != "No places left for the option: Small room" {
			t.Errorf("unexpected message: %s", verr.Message)
		}
	})

	t.Run("UnknownOption", func(t *testing.T) {
		if err := field.Validate(ctx(0), map[string]int{"bogus": 1}); err == nil {
			t.Fatal("expected error for unknown option, got nil")
		}
	})

	t.Run("UnchangedResubmissionSkipsCheck", func(t *testing.T) {
		c := ctx(2)
		c.Modifying = true
		c.HasOld = true
		c.OldValue = map[string]int{smallID: 1}
		if err := field.Validate(c, map[string]int{smallID: 1}); err != nil {
			t.Errorf("expected unchanged value to pass even at the limit, got %v", err)
		}
	})

	t.Run("ChangedResubmissionChecked", func(t *testing.T) {
		largeID := versioned.Choices[1].ID
		c := ctx(2)
		c.Modifying = true
		c.HasOld = true
		c.OldValue = map[string]int{largeID: 1}
		if err := field.Validate(c, map[string]int{smallID: 1}); err == nil {
			t.Fatal("expected changed value to hit the capacity check, got nil")
		}
	})
}

func TestChoicePricing(t *testing.T) {
	field := &MultiChoiceField{}
	versioned := &VersionedData{Choices: []ChoiceItem{
		{ID: "a", Price: 10, IsBillable: true},
		{ID: "b", Price: 5, IsBillable: true, ExtraSlotsPay: true, MaxExtraSlots: 3},
		{ID: "c", Price: 99},
	}}

	t.Run("BillableOnly", func(t *testing.T) {
		price := field.CalculatePrice(map[string]int{"a": 1, "c": 1}, versioned)
		if price != 10 {
			t.Errorf("expected 10, got %v", price)
		}
	})

	t.Run("ExtraSlotsNotCharged", func(t *testing.T) {
		price := field.CalculatePrice(map[string]int{"a": 3}, versioned)
		if price != 10 {
			t.Errorf("expected extra slots to be free without extra_slots_pay, got %v", price)
		}
	})

	t.Run("ExtraSlotsCharged", func(t *testing.T) {
		price := field.CalculatePrice(map[string]int{"b": 3}, versioned)
		if price != 15 {
			t.Errorf("expected 3 slots to cost 15, got %v", price)
		}
	})

	t.Run("Empty", func(t *testing.T) {
		if price := field.CalculatePrice(map[string]int{}, versioned); price != 0 {
			t.Errorf("expected 0 for empty value, got %v", price)
		}
	})
}

func TestSingleChoiceLock(t *testing.T) {
	field := &SingleChoiceField{}
	ctx := &SubmissionContext{}

	t.Run("PaidEntryIgnored", func(t *testing.T) {
		old := &OldEntry{Value: map[string]int{"a": 1}, Price: 50}
		if _, changed := field.ProcessFormData(ctx, map[string]int{"b": 1}, old, true); changed {
			t.Error("expected edit of a paid entry to be ignored")
		}
	})

	t.Run("FreeEntryEditable", func(t *testing.T) {
		old := &OldEntry{Value: map[string]int{"a": 1}, Price: 0}
		value, changed := field.ProcessFormData(ctx, map[string]int{"b": 1}, old, true)
		if !changed {
			t.Fatal("expected edit of a free entry to proceed")
		}
		if !reflect.DeepEqual(value, map[string]int{"b": 1}) {
			t.Errorf("unexpected stored value %v", value)
		}
	})

	t.Run("UnlockedEditable", func(t *testing.T) {
		old := &OldEntry{Value: map[string]int{"a": 1}, Price: 50}
		if _, changed := field.ProcessFormData(ctx, map[string]int{"b": 1}, old, false); !changed {
			t.Error("expected management edit to proceed")
		}
	})
}

func TestMultiChoiceLock(t *testing.T) {
	field := &MultiChoiceField{}
	versioned := &VersionedData{Choices: []ChoiceItem{
		{ID: "paid", Price: 10, IsBillable: true},
		{ID: "free", Price: 0},
		{ID: "other", Price: 20, IsBillable: true},
	}}
	ctx := &SubmissionContext{Versioned: versioned}

	t.Run("AddingFreeItemProceeds", func(t *testing.T) {
		old := &OldEntry{Value: map[string]int{"paid": 1}, Versioned: versioned, Price: 10}
		value, changed := field.ProcessFormData(ctx, map[string]int{"paid": 1, "free": 1}, old, true)
		if !changed {
			t.Fatal("expected edit keeping the billable set to proceed")
		}
		if !reflect.DeepEqual(value, map[string]int{"paid": 1, "free": 1}) {
			t.Errorf("unexpected stored value %v", value)
		}
	})

	t.Run("SwappingPaidItemIgnored", func(t *testing.T) {
		old := &OldEntry{Value: map[string]int{"paid": 1}, Versioned: versioned, Price: 10}
		if _, changed := field.ProcessFormData(ctx, map[string]int{"other": 1}, old, true); changed {
			t.Error("expected edit changing the billable set to be ignored")
		}
	})

	t.Run("DroppingPaidItemIgnored", func(t *testing.T) {
		old := &OldEntry{Value: map[string]int{"paid": 1, "free": 1}, Versioned: versioned, Price: 10}
		if _, changed := field.ProcessFormData(ctx, map[string]int{"free": 1}, old, true); changed {
			t.Error("expected edit dropping a paid item to be ignored")
		}
	})

	t.Run("UnchangedValueNoWrite", func(t *testing.T) {
		old := &OldEntry{Value: map[string]int{"paid": 1}, Versioned: versioned, Price: 10}
		if _, changed := field.ProcessFormData(ctx, map[string]int{"paid": 1}, old, true); changed {
			t.Error("expected identical resubmission to leave the entry untouched")
		}
	})

	t.Run("OldSnapshotDecidesOldBillables", func(t *testing.T) {
		// "other" was free in the old snapshot, so dropping it while locked
		// does not change the billable set.
		oldVersioned := &VersionedData{Choices: []ChoiceItem{
			{ID: "paid", Price: 10, IsBillable: true},
			{ID: "other", Price: 0},
		}}
		old := &OldEntry{Value: map[string]int{"paid": 1, "other": 1}, Versioned: oldVersioned, Price: 10}
		if _, changed := field.ProcessFormData(ctx, map[string]int{"paid": 1}, old, true); !changed {
			t.Error("expected drop of an item unpriced in its own snapshot to proceed")
		}
	})
}

func TestChoicePlacesUsed(t *testing.T) {
	field := &MultiChoiceField{}
	used := field.PlacesUsed([]any{
		map[string]int{"a": 1, "b": 2},
		map[string]int{"a": 3},
		"garbage",
	})
	if used["a"] != 4 || used["b"] != 2 {
		t.Errorf("unexpected occupancy %v", used)
	}
}

func TestMultiChoiceFriendlyData(t *testing.T) {
	field := &MultiChoiceField{}
	unversioned := &UnversionedData{Captions: map[string]string{"a": "Tent", "b": "Cabin"}}
	friendly := field.FriendlyData(map[string]int{"b": 3, "a": 1}, unversioned, nil)
	want := []string{"Cabin (+2)", "Tent"}
	if !reflect.DeepEqual(friendly, want) {
		t.Errorf("expected %v, got %v", want, friendly)
	}
}
