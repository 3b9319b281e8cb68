package fields

import (
	"testing"
)

func accommodationSetup(t *testing.T) (*UnversionedData, *VersionedData, string) {
	t.Helper()
	field := &AccommodationField{}
	cfg := &Config{
		Choices: []ChoiceConfig{
			{Caption: "Cabin", Price: 50, PlacesLimit: 1, IsBillable: true},
			{Caption: "Tent", Price: 10},
		},
		ArrivalDateFrom:   "2026-07-01",
		ArrivalDateTo:     "2026-07-03",
		DepartureDateFrom: "2026-07-04",
		DepartureDateTo:   "2026-07-06",
	}
	unversioned, versioned, err := field.ProcessFieldData(cfg, nil, nil)
	if err != nil {
		t.Fatalf("ProcessFieldData returned error: %v", err)
	}
	return unversioned, versioned, versioned.Choices[0].ID
}

func TestAccommodationConfig(t *testing.T) {
	field := &AccommodationField{}

	t.Run("LegacyDateFormatNormalized", func(t *testing.T) {
		cfg := &Config{ArrivalDateFrom: "01/07/2026", ArrivalDateTo: "2026-07-03"}
		unversioned, _, _ := field.ProcessFieldData(cfg, nil, nil)
		if unversioned.ArrivalDateFrom != "2026-07-01" {
			t.Errorf("expected dd/mm/yyyy normalized to ISO, got %s", unversioned.ArrivalDateFrom)
		}
		if unversioned.ArrivalDateTo != "2026-07-03" {
			t.Errorf("expected ISO date kept, got %s", unversioned.ArrivalDateTo)
		}
	})

	t.Run("AdminDateOptions", func(t *testing.T) {
		unversioned, versioned, _ := accommodationSetup(t)
		view, err := field.UnprocessFieldData(versioned, unversioned)
		if err != nil {
			t.Fatalf("UnprocessFieldData returned error: %v", err)
		}
		if len(view.ArrivalDates) != 3 {
			t.Errorf("expected 3 arrival options, got %d", len(view.ArrivalDates))
		}
		if len(view.DepartureDates) != 3 {
			t.Errorf("expected 3 departure options, got %d", len(view.DepartureDates))
		}
		if view.ArrivalDates[0].Label != "1 Jul 2026" {
			t.Errorf("unexpected label %s", view.ArrivalDates[0].Label)
		}
	})
}

func TestAccommodationValidate(t *testing.T) {
	field := &AccommodationField{}
	unversioned, versioned, cabinID := accommodationSetup(t)

	ctx := func(used int) *SubmissionContext {
		return &SubmissionContext{
			Unversioned: unversioned,
			Versioned:   versioned,
			PlacesUsed:  map[string]int{cabinID: used},
		}
	}

	t.Run("MissingDates", func(t *testing.T) {
		err := field.Validate(ctx(0), &AccommodationValue{Choice: cabinID, ArrivalDate: "2026-07-01"})
		if err == nil || err.Error() != "Arrival/departure date is missing" {
			t.Errorf("expected missing date error, got %v", err)
		}
	})

	t.Run("ArrivalAfterDeparture", func(t *testing.T) {
		err := field.Validate(ctx(0), &AccommodationValue{
			Choice: cabinID, ArrivalDate: "2026-07-05", DepartureDate: "2026-07-04",
		})
		if err == nil {
			t.Fatal("expected error for reversed dates, got nil")
		}
	})

	t.Run("RoomsFull", func(t *testing.T) {
		err := field.Validate(ctx(1), &AccommodationValue{
			Choice: cabinID, ArrivalDate: "2026-07-01", DepartureDate: "2026-07-04",
		})
		if err == nil {
			t.Fatal("expected error when no rooms remain, got nil")
		}
		if err.Error() != "Not enough rooms in the Cabin" {
			t.Errorf("unexpected message: %v", err)
		}
	})

	t.Run("UnchangedBookingSkipsCheck", func(t *testing.T) {
		booking := &AccommodationValue{Choice: cabinID, ArrivalDate: "2026-07-01", DepartureDate: "2026-07-04"}
		c := ctx(1)
		c.Modifying = true
		c.HasOld = true
		c.OldValue = &AccommodationValue{Choice: cabinID, ArrivalDate: "2026-07-01", DepartureDate: "2026-07-04"}
		if err := field.Validate(c, booking); err != nil {
			t.Errorf("expected unchanged booking to pass at the limit, got %v", err)
		}
	})

	t.Run("NilBooking", func(t *testing.T) {
		if err := field.Validate(ctx(0), nil); err != nil {
			t.Errorf("expected nil booking to pass, got %v", err)
		}
	})
}

func TestAccommodationPrice(t *testing.T) {
	field := &AccommodationField{}
	_, versioned, cabinID := accommodationSetup(t)
	tentID := versioned.Choices[1].ID

	t.Run("PricePerNight", func(t *testing.T) {
		booking := &AccommodationValue{Choice: cabinID, ArrivalDate: "2026-07-01", DepartureDate: "2026-07-04"}
		if price := field.CalculatePrice(booking, versioned); price != 150 {
			t.Errorf("expected 3 nights at 50 = 150, got %v", price)
		}
	})

	t.Run("NonBillableFree", func(t *testing.T) {
		booking := &AccommodationValue{Choice: tentID, ArrivalDate: "2026-07-01", DepartureDate: "2026-07-04"}
		if price := field.CalculatePrice(booking, versioned); price != 0 {
			t.Errorf("expected non-billable option to be free, got %v", price)
		}
	})

	t.Run("NilBooking", func(t *testing.T) {
		if price := field.CalculatePrice(nil, versioned); price != 0 {
			t.Errorf("expected 0 for no booking, got %v", price)
		}
	})
}

func TestAccommodationDisplay(t *testing.T) {
	field := &AccommodationField{}
	unversioned, _, cabinID := accommodationSetup(t)
	booking := &AccommodationValue{Choice: cabinID, ArrivalDate: "2026-07-01", DepartureDate: "2026-07-04"}

	t.Run("FriendlyData", func(t *testing.T) {
		friendly, ok := field.FriendlyData(booking, unversioned, nil).(*AccommodationFriendly)
		if !ok {
			t.Fatal("expected AccommodationFriendly")
		}
		if friendly.Choice != "Cabin" || friendly.Nights != 3 {
			t.Errorf("unexpected friendly form %+v", friendly)
		}
	})

	t.Run("Placeholders", func(t *testing.T) {
		if s := field.RenderPlaceholder("name", booking, unversioned); s != "Cabin" {
			t.Errorf("expected Cabin, got %s", s)
		}
		if s := field.RenderPlaceholder("nights", booking, unversioned); s != "3" {
			t.Errorf("expected 3, got %s", s)
		}
		if s := field.RenderPlaceholder("arrival", booking, unversioned); s != "1 Jul 2026" {
			t.Errorf("expected 1 Jul 2026, got %s", s)
		}
		if s := field.RenderPlaceholder("bogus", booking, unversioned); s != "" {
			t.Errorf("expected empty string for unknown key, got %s", s)
		}
	})
}

func TestAccommodationPlacesUsed(t *testing.T) {
	field := &AccommodationField{}
	used := field.PlacesUsed([]any{
		&AccommodationValue{Choice: "a", ArrivalDate: "2026-07-01", DepartureDate: "2026-07-04"},
		&AccommodationValue{Choice: "a", ArrivalDate: "2026-07-02", DepartureDate: "2026-07-05"},
		&AccommodationValue{Choice: "b", ArrivalDate: "2026-07-01", DepartureDate: "2026-07-02"},
		nil,
	})
	if used["a"] != 2 || used["b"] != 1 {
		t.Errorf("unexpected occupancy %v", used)
	}
}
