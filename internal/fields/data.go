package fields

import (
	"encoding/json"
	"strconv"
	"time"
)

// ISODate is the storage format for all date values.
const ISODate = "2006-01-02"

// ChoiceItem is one option inside a versioned snapshot. The caption lives
// in the unversioned payload, addressed by the item id, so it can be
// renamed without creating a new version.
type ChoiceItem struct {
	ID            string  `json:"id"`
	Price         float64 `json:"price"`
	PlacesLimit   int     `json:"places_limit"`
	MaxExtraSlots int     `json:"max_extra_slots,omitempty"`
	IsBillable    bool    `json:"is_billable"`
	ExtraSlotsPay bool    `json:"extra_slots_pay,omitempty"`
}

// VersionedData is the immutable per-version configuration snapshot.
// Edits to any of these keys produce a new version; old versions stay
// reachable from historical registration entries.
type VersionedData struct {
	IsBillable bool         `json:"is_billable,omitempty"`
	Price      float64      `json:"price,omitempty"`
	Choices    []ChoiceItem `json:"choices,omitempty"`
}

// UnversionedData is the mutable field metadata, editable in place.
// Captions accumulate over the field's lifetime and are never removed, so
// entries pinned to old versions keep resolving deleted choice ids.
type UnversionedData struct {
	Captions          map[string]string `json:"captions,omitempty"`
	DefaultItem       string            `json:"default_item,omitempty"`
	PlacesLimit       int               `json:"places_limit,omitempty"`
	MinValue          int               `json:"min_value,omitempty"`
	DateFormat        string            `json:"date_format,omitempty"`
	ArrivalDateFrom   string            `json:"arrival_date_from,omitempty"`
	ArrivalDateTo     string            `json:"arrival_date_to,omitempty"`
	DepartureDateFrom string            `json:"departure_date_from,omitempty"`
	DepartureDateTo   string            `json:"departure_date_to,omitempty"`
}

// ChoiceConfig is one admin-submitted option. Numeric sub-fields are
// loosely typed because form builders submit them as strings.
type ChoiceConfig struct {
	ID            string `json:"id,omitempty"`
	Caption       string `json:"caption"`
	Price         any    `json:"price,omitempty"`
	PlacesLimit   any    `json:"places_limit,omitempty"`
	MaxExtraSlots any    `json:"max_extra_slots,omitempty"`
	IsBillable    bool   `json:"is_billable,omitempty"`
	ExtraSlotsPay bool   `json:"extra_slots_pay,omitempty"`
	Remove        bool   `json:"remove,omitempty"`
}

// Config is the admin-submitted field configuration before processing.
type Config struct {
	IsBillable        bool           `json:"is_billable,omitempty"`
	Price             any            `json:"price,omitempty"`
	PlacesLimit       any            `json:"places_limit,omitempty"`
	MinValue          any            `json:"min_value,omitempty"`
	DateFormat        string         `json:"date_format,omitempty"`
	DefaultItem       string         `json:"default_item,omitempty"`
	Choices           []ChoiceConfig `json:"choices,omitempty"`
	ArrivalDateFrom   string         `json:"arrival_date_from,omitempty"`
	ArrivalDateTo     string         `json:"arrival_date_to,omitempty"`
	DepartureDateFrom string         `json:"departure_date_from,omitempty"`
	DepartureDateTo   string         `json:"departure_date_to,omitempty"`
}

// AdminChoice is a versioned choice item with its caption merged back on.
type AdminChoice struct {
	ChoiceItem
	Caption string `json:"caption"`
}

// DateOption pairs an ISO date value with its display label.
type DateOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// AdminView is the admin-facing form of a field configuration, produced
// by UnprocessFieldData.
type AdminView struct {
	IsBillable     bool          `json:"is_billable,omitempty"`
	Price          float64       `json:"price,omitempty"`
	PlacesLimit    int           `json:"places_limit,omitempty"`
	MinValue       int           `json:"min_value,omitempty"`
	DateFormat     string        `json:"date_format,omitempty"`
	DefaultItem    string        `json:"default_item,omitempty"`
	Choices        []AdminChoice `json:"choices,omitempty"`
	ArrivalDates   []DateOption  `json:"arrival_dates,omitempty"`
	DepartureDates []DateOption  `json:"departure_dates,omitempty"`
}

// DecodeUnversioned parses a stored unversioned payload. A nil or empty
// payload yields an empty struct.
func DecodeUnversioned(raw []byte) (*UnversionedData, error) {
	data := &UnversionedData{}
	if len(raw) == 0 {
		return data, nil
	}
	if err := json.Unmarshal(raw, data); err != nil {
		return nil, err
	}
	return data, nil
}

// DecodeVersioned parses a stored versioned snapshot payload.
func DecodeVersioned(raw []byte) (*VersionedData, error) {
	data := &VersionedData{}
	if len(raw) == 0 {
		return data, nil
	}
	if err := json.Unmarshal(raw, data); err != nil {
		return nil, err
	}
	return data, nil
}

// toFloat coerces an admin-submitted numeric value, defaulting absent or
// falsy values to zero.
func toFloat(v any) float64 {
	switch n := v.(type) {
	case nil:
		return 0
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case json.Number:
		f, _ := n.Float64()
		return f
	case string:
		if n == "" {
			return 0
		}
		f, _ := strconv.ParseFloat(n, 64)
		return f
	default:
		return 0
	}
}

func toInt(v any) int {
	switch n := v.(type) {
	case nil:
		return 0
	case float64:
		return int(n)
	case int:
		return n
	case int64:
		return int(n)
	case json.Number:
		i, _ := n.Int64()
		return int(i)
	case string:
		if n == "" {
			return 0
		}
		i, _ := strconv.Atoi(n)
		return i
	default:
		return 0
	}
}

// normalizeDate accepts either an ISO date or the legacy dd/mm/yyyy form
// used by the admin form builder and returns the ISO form.
func normalizeDate(s string) string {
	if s == "" {
		return ""
	}
	if t, err := time.Parse("02/01/2006", s); err == nil {
		return t.Format(ISODate)
	}
	if t, err := time.Parse(ISODate, s); err == nil {
		return t.Format(ISODate)
	}
	return s
}

func parseISODate(s string) (time.Time, error) {
	return time.Parse(ISODate, s)
}

// iterDays lists every date from first to last inclusive as options for
// an admin date dropdown.
func iterDays(from, to string) []DateOption {
	start, err := parseISODate(from)
	if err != nil {
		return nil
	}
	end, err := parseISODate(to)
	if err != nil {
		return nil
	}
	var out []DateOption
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		out = append(out, DateOption{Value: d.Format(ISODate), Label: d.Format("2 Jan 2006")})
	}
	return out
}
