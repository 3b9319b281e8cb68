package fields

import (
	"encoding/json"
	"strconv"
)

// AccommodationValue is the structured record an accommodation booking is
// stored as. Dates use the ISO form.
type AccommodationValue struct {
	Choice        string `json:"choice"`
	ArrivalDate   string `json:"arrival_date"`
	DepartureDate string `json:"departure_date"`
}

// AccommodationFriendly is the display form of a booking, with the choice
// id resolved to its caption and the night count precomputed.
type AccommodationFriendly struct {
	Choice        string `json:"choice"`
	ArrivalDate   string `json:"arrival_date"`
	DepartureDate string `json:"departure_date"`
	Nights        int    `json:"nights"`
}

// AccommodationField offers a set of room options priced per night within
// configured arrival and departure windows. Capacity is one unit per
// booking regardless of the number of nights.
type AccommodationField struct {
	choiceBase
}

func (*AccommodationField) Type() Type { return TypeAccommodation }

func (f *AccommodationField) ProcessFieldData(cfg *Config, oldUnversioned *UnversionedData, oldVersioned *VersionedData) (*UnversionedData, *VersionedData, error) {
	captions, items := f.processChoices(cfg, oldUnversioned)
	unversioned := &UnversionedData{
		Captions:          captions,
		ArrivalDateFrom:   normalizeDate(cfg.ArrivalDateFrom),
		ArrivalDateTo:     normalizeDate(cfg.ArrivalDateTo),
		DepartureDateFrom: normalizeDate(cfg.DepartureDateFrom),
		DepartureDateTo:   normalizeDate(cfg.DepartureDateTo),
	}
	return unversioned, &VersionedData{Choices: items}, nil
}

func (f *AccommodationField) UnprocessFieldData(versioned *VersionedData, unversioned *UnversionedData) (*AdminView, error) {
	choices, err := f.unprocessChoices(versioned, unversioned)
	if err != nil {
		return nil, err
	}
	return &AdminView{
		Choices:        choices,
		ArrivalDates:   iterDays(unversioned.ArrivalDateFrom, unversioned.ArrivalDateTo),
		DepartureDates: iterDays(unversioned.DepartureDateFrom, unversioned.DepartureDateTo),
	}, nil
}

func (*AccommodationField) DecodeValue(raw json.RawMessage) (any, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	value := &AccommodationValue{}
	if err := json.Unmarshal(raw, value); err != nil {
		return nil, &ValidationError{Message: "Invalid accommodation data"}
	}
	if value.Choice == "" && value.ArrivalDate == "" && value.DepartureDate == "" {
		return nil, nil
	}
	return value, nil
}

func (*AccommodationField) DefaultValue(unversioned *UnversionedData, versioned *VersionedData) any {
	return nil
}

func (f *AccommodationField) Validate(ctx *SubmissionContext, value any) error {
	booking, _ := value.(*AccommodationValue)
	if booking == nil {
		return nil
	}
	if err := f.validateStayDates(booking); err != nil {
		return err
	}
	return f.validatePlaces(ctx, booking)
}

func (*AccommodationField) validateStayDates(booking *AccommodationValue) error {
	if booking.ArrivalDate == "" || booking.DepartureDate == "" {
		return &ValidationError{Message: "Arrival/departure date is missing"}
	}
	arrival, err := parseISODate(booking.ArrivalDate)
	if err != nil {
		return &ValidationError{Message: "Invalid arrival date"}
	}
	departure, err := parseISODate(booking.DepartureDate)
	if err != nil {
		return &ValidationError{Message: "Invalid departure date"}
	}
	if arrival.After(departure) {
		return &ValidationError{Message: "Arrival date can't be set after the departure date."}
	}
	return nil
}

func (*AccommodationField) validatePlaces(ctx *SubmissionContext, booking *AccommodationValue) error {
	if ctx.Modifying && (!ctx.HasOld || !valueChanged(booking, ctx.OldValue)) {
		return nil
	}
	item := findChoice(ctx.Versioned.Choices, booking.Choice)
	if item == nil || item.PlacesLimit == 0 {
		return nil
	}
	if ctx.PlacesUsed[booking.Choice] >= item.PlacesLimit {
		return validationErrorf("Not enough rooms in the %s", ctx.Unversioned.Captions[item.ID])
	}
	return nil
}

// ProcessFormData ignores any edit once the stored booking has produced a
// nonzero price, same as the other billable scalar fields.
func (*AccommodationField) ProcessFormData(ctx *SubmissionContext, value any, old *OldEntry, locked bool) (any, bool) {
	if locked && old != nil && old.Price != 0 {
		return nil, false
	}
	return value, true
}

// CalculatePrice charges the nightly rate times the number of nights,
// but only when the chosen option is billable with a nonzero price.
func (*AccommodationField) CalculatePrice(value any, versioned *VersionedData) float64 {
	booking, _ := value.(*AccommodationValue)
	if booking == nil {
		return 0
	}
	item := findChoice(versioned.Choices, booking.Choice)
	if item == nil || !item.IsBillable || item.Price == 0 {
		return 0
	}
	return item.Price * float64(stayNights(booking))
}

func (*AccommodationField) FriendlyData(value any, unversioned *UnversionedData, versioned *VersionedData) any {
	booking, _ := value.(*AccommodationValue)
	if booking == nil {
		return nil
	}
	caption, ok := unversioned.Captions[booking.Choice]
	if !ok {
		caption = booking.Choice
	}
	return &AccommodationFriendly{
		Choice:        caption,
		ArrivalDate:   booking.ArrivalDate,
		DepartureDate: booking.DepartureDate,
		Nights:        stayNights(booking),
	}
}

// PlacesUsed counts one unit per booking, keyed by the chosen option.
// Nights do not affect capacity.
func (*AccommodationField) PlacesUsed(values []any) map[string]int {
	used := map[string]int{}
	for _, v := range values {
		booking, ok := v.(*AccommodationValue)
		if !ok || booking == nil || booking.Choice == "" {
			continue
		}
		used[booking.Choice]++
	}
	return used
}

func (*AccommodationField) Placeholders() []string {
	return []string{"name", "nights", "arrival", "departure"}
}

// RenderPlaceholder substitutes a booking attribute into templated text.
func (f *AccommodationField) RenderPlaceholder(key string, value any, unversioned *UnversionedData) string {
	friendly, _ := f.FriendlyData(value, unversioned, nil).(*AccommodationFriendly)
	if friendly == nil {
		return ""
	}
	switch key {
	case "name":
		return friendly.Choice
	case "nights":
		return strconv.Itoa(friendly.Nights)
	case "arrival":
		return formatDisplayDate(friendly.ArrivalDate)
	case "departure":
		return formatDisplayDate(friendly.DepartureDate)
	default:
		return ""
	}
}

func formatDisplayDate(iso string) string {
	t, err := parseISODate(iso)
	if err != nil {
		return iso
	}
	return t.Format("2 Jan 2006")
}

func stayNights(booking *AccommodationValue) int {
	arrival, err := parseISODate(booking.ArrivalDate)
	if err != nil {
		return 0
	}
	departure, err := parseISODate(booking.DepartureDate)
	if err != nil {
		return 0
	}
	return int(departure.Sub(arrival).Hours() / 24)
}
