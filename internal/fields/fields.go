// Package fields implements the registration form field types: how each
// type processes admin configuration into versioned and unversioned
// payloads, validates and reconciles submitted values, computes prices
// against the snapshot pinned by a registration, and renders stored data
// back for display.
package fields

import (
	"encoding/json"
	"fmt"
)

// Type discriminates the field implementations.
type Type string

const (
	TypeText          Type = "text"
	TypeTextArea      Type = "textarea"
	TypeNumber        Type = "number"
	TypeSingleChoice  Type = "single_choice"
	TypeMultiChoice   Type = "multi_choice"
	TypeCheckbox      Type = "checkbox"
	TypeDate          Type = "date"
	TypeBool          Type = "bool"
	TypePhone         Type = "phone"
	TypeCountry       Type = "country"
	TypeFile          Type = "file"
	TypeEmail         Type = "email"
	TypeAccommodation Type = "accommodation"
)

// OldEntry describes the previously stored value of a field when a
// registration is being modified. Versioned is the snapshot that was
// active when the old value was written, Price the amount it produced
// against that snapshot.
type OldEntry struct {
	Value     any
	Versioned *VersionedData
	Price     float64
}

// SubmissionContext carries everything a validator may need: the field's
// current configuration, the occupancy counts derived from active
// registrations, and the submitter's own previous value (if any).
type SubmissionContext struct {
	Unversioned *UnversionedData
	Versioned   *VersionedData
	PlacesUsed  map[string]int
	Modifying   bool
	OldValue    any
	HasOld      bool
}

// Field is the capability interface every field type implements.
type Field interface {
	Type() Type

	// ProcessFieldData normalizes admin-submitted configuration into the
	// two-tier storage form. Existing captions are carried forward by id,
	// new choice items get a fresh id, numeric sub-fields are coerced with
	// absent or falsy values defaulting to zero.
	ProcessFieldData(cfg *Config, oldUnversioned *UnversionedData, oldVersioned *VersionedData) (*UnversionedData, *VersionedData, error)

	// UnprocessFieldData is the inverse transform for re-populating the
	// admin form: caption metadata is merged back onto versioned items.
	UnprocessFieldData(versioned *VersionedData, unversioned *UnversionedData) (*AdminView, error)

	// DecodeValue parses a raw submitted value into the type's value shape.
	DecodeValue(raw json.RawMessage) (any, error)

	// DefaultValue is assumed for a registration that never submitted the
	// field. May be nil.
	DefaultValue(unversioned *UnversionedData, versioned *VersionedData) any

	// Validate runs the submission-time checks against the current
	// snapshot and capacity counts.
	Validate(ctx *SubmissionContext, value any) error

	// ProcessFormData reconciles a submitted value with the previously
	// stored entry. It returns the value to store and whether the entry
	// changed at all; returning false preserves the old entry untouched,
	// including its pinned data version.
	ProcessFormData(ctx *SubmissionContext, value any, old *OldEntry, locked bool) (any, bool)

	// CalculatePrice computes the charge for a value against a specific
	// versioned snapshot, normally the one pinned at submission time.
	CalculatePrice(value any, versioned *VersionedData) float64

	// FriendlyData renders a stored value for display, resolving choice
	// ids to captions and formatting dates.
	FriendlyData(value any, unversioned *UnversionedData, versioned *VersionedData) any
}

// CapacityLimited is implemented by field types whose options have a
// places limit. PlacesUsed aggregates occupancy from the stored values of
// all active registrations; choice fields key the result by choice id,
// checkbox and boolean fields count against a single pool under SharedPool.
type CapacityLimited interface {
	PlacesUsed(values []any) map[string]int
}

// SharedPool keys the occupancy count of fields with one capacity pool
// for the whole field rather than per-choice pools.
const SharedPool = "*"

// Billable is implemented by field types that can produce a charge and
// are therefore subject to the billable-lock policy.
type Billable interface {
	IsBillable(versioned *VersionedData) bool
}

// PlaceholderRenderer is implemented by field types that expose values
// for templated text substitution.
type PlaceholderRenderer interface {
	Placeholders() []string
	RenderPlaceholder(key string, value any, unversioned *UnversionedData) string
}

// ValidationError is a user-correctable submission failure. Its message
// references the offending option's caption where one exists.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func validationErrorf(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

var registry = map[Type]Field{}

func register(f Field) {
	registry[f.Type()] = f
}

// Get returns the implementation for a field type.
func Get(t Type) (Field, bool) {
	f, ok := registry[t]
	return f, ok
}

// Types lists the registered field types.
func Types() []Type {
	out := make([]Type, 0, len(registry))
	for t := range registry {
		out = append(out, t)
	}
	return out
}

func init() {
	register(&TextField{})
	register(&TextAreaField{})
	register(&NumberField{})
	register(&SingleChoiceField{})
	register(&MultiChoiceField{})
	register(&CheckboxField{})
	register(&DateField{})
	register(&BoolField{})
	register(&PhoneField{})
	register(&CountryField{})
	register(&FileField{})
	register(&EmailField{})
	register(&AccommodationField{})
}
