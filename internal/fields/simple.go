package fields

import (
	"encoding/json"
	"net/mail"
	"strings"
	"time"
)

// isoDateTime is the storage format for date field values.
const isoDateTime = "2006-01-02T15:04:05"

// simpleBase provides the no-op defaults for field types without
// configuration payloads or prices.
type simpleBase struct{}

func (simpleBase) ProcessFieldData(cfg *Config, oldUnversioned *UnversionedData, oldVersioned *VersionedData) (*UnversionedData, *VersionedData, error) {
	return &UnversionedData{}, &VersionedData{}, nil
}

func (simpleBase) UnprocessFieldData(versioned *VersionedData, unversioned *UnversionedData) (*AdminView, error) {
	return &AdminView{}, nil
}

func (simpleBase) DefaultValue(unversioned *UnversionedData, versioned *VersionedData) any {
	return nil
}

func (simpleBase) Validate(ctx *SubmissionContext, value any) error {
	return nil
}

func (simpleBase) ProcessFormData(ctx *SubmissionContext, value any, old *OldEntry, locked bool) (any, bool) {
	return value, true
}

func (simpleBase) CalculatePrice(value any, versioned *VersionedData) float64 {
	return 0
}

func (simpleBase) FriendlyData(value any, unversioned *UnversionedData, versioned *VersionedData) any {
	if value == nil {
		return ""
	}
	return value
}

func decodeString(raw json.RawMessage) (any, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, &ValidationError{Message: "Invalid text data"}
	}
	return s, nil
}

func decodeBool(raw json.RawMessage) (any, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, &ValidationError{Message: "Invalid boolean data"}
	}
	return b, nil
}

// yesNo maps a stored boolean onto its display form.
func yesNo(value any) string {
	b, ok := value.(bool)
	if !ok {
		return ""
	}
	if b {
		return "Yes"
	}
	return "No"
}

// validateSharedPool rejects a truthy submission when the field's shared
// places pool is exhausted. Unchanged resubmissions skip the check.
func validateSharedPool(ctx *SubmissionContext, value any) error {
	if ctx.Modifying && (!ctx.HasOld || !valueChanged(value, ctx.OldValue)) {
		return nil
	}
	b, _ := value.(bool)
	if !b || ctx.Unversioned.PlacesLimit == 0 {
		return nil
	}
	if ctx.PlacesUsed[SharedPool] >= ctx.Unversioned.PlacesLimit {
		return &ValidationError{Message: "There are no places left for this option."}
	}
	return nil
}

// sharedPoolUsed counts active registrations holding a truthy value.
func sharedPoolUsed(values []any) map[string]int {
	used := 0
	for _, v := range values {
		if b, ok := v.(bool); ok && b {
			used++
		}
	}
	return map[string]int{SharedPool: used}
}

// TextField is a plain single-line text input.
type TextField struct {
	simpleBase
}

func (*TextField) Type() Type { return TypeText }

func (*TextField) DecodeValue(raw json.RawMessage) (any, error) {
	return decodeString(raw)
}

// TextAreaField is a multi-line text input.
type TextAreaField struct {
	simpleBase
}

func (*TextAreaField) Type() Type { return TypeTextArea }

func (*TextAreaField) DecodeValue(raw json.RawMessage) (any, error) {
	return decodeString(raw)
}

// NumberField is an integer quantity, optionally billable per unit.
type NumberField struct {
	simpleBase
}

func (*NumberField) Type() Type { return TypeNumber }

func (*NumberField) ProcessFieldData(cfg *Config, oldUnversioned *UnversionedData, oldVersioned *VersionedData) (*UnversionedData, *VersionedData, error) {
	unversioned := &UnversionedData{MinValue: toInt(cfg.MinValue)}
	versioned := &VersionedData{IsBillable: cfg.IsBillable, Price: toFloat(cfg.Price)}
	return unversioned, versioned, nil
}

func (*NumberField) UnprocessFieldData(versioned *VersionedData, unversioned *UnversionedData) (*AdminView, error) {
	return &AdminView{IsBillable: versioned.IsBillable, Price: versioned.Price, MinValue: unversioned.MinValue}, nil
}

func (*NumberField) DecodeValue(raw json.RawMessage) (any, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var n int
	if err := json.Unmarshal(raw, &n); err != nil {
		return nil, &ValidationError{Message: "Invalid number data"}
	}
	return n, nil
}

func (*NumberField) Validate(ctx *SubmissionContext, value any) error {
	n, ok := value.(int)
	if !ok {
		return nil
	}
	if ctx.Unversioned.MinValue != 0 && n < ctx.Unversioned.MinValue {
		return validationErrorf("Value must be at least %d", ctx.Unversioned.MinValue)
	}
	return nil
}

func (*NumberField) ProcessFormData(ctx *SubmissionContext, value any, old *OldEntry, locked bool) (any, bool) {
	if locked && old != nil && old.Price != 0 {
		return nil, false
	}
	return value, true
}

func (*NumberField) CalculatePrice(value any, versioned *VersionedData) float64 {
	if !versioned.IsBillable {
		return 0
	}
	n, _ := value.(int)
	return versioned.Price * float64(n)
}

func (*NumberField) IsBillable(versioned *VersionedData) bool {
	return versioned.IsBillable && versioned.Price != 0
}

// CheckboxField is a billable yes/no tick with an optional shared places
// pool.
type CheckboxField struct {
	simpleBase
}

func (*CheckboxField) Type() Type { return TypeCheckbox }

func (*CheckboxField) ProcessFieldData(cfg *Config, oldUnversioned *UnversionedData, oldVersioned *VersionedData) (*UnversionedData, *VersionedData, error) {
	unversioned := &UnversionedData{PlacesLimit: toInt(cfg.PlacesLimit)}
	versioned := &VersionedData{IsBillable: cfg.IsBillable, Price: toFloat(cfg.Price)}
	return unversioned, versioned, nil
}

func (*CheckboxField) UnprocessFieldData(versioned *VersionedData, unversioned *UnversionedData) (*AdminView, error) {
	return &AdminView{IsBillable: versioned.IsBillable, Price: versioned.Price, PlacesLimit: unversioned.PlacesLimit}, nil
}

func (*CheckboxField) DecodeValue(raw json.RawMessage) (any, error) {
	return decodeBool(raw)
}

func (*CheckboxField) Validate(ctx *SubmissionContext, value any) error {
	return validateSharedPool(ctx, value)
}

func (*CheckboxField) ProcessFormData(ctx *SubmissionContext, value any, old *OldEntry, locked bool) (any, bool) {
	if locked && old != nil && old.Price != 0 {
		return nil, false
	}
	return value, true
}

func (*CheckboxField) CalculatePrice(value any, versioned *VersionedData) float64 {
	b, _ := value.(bool)
	if !versioned.IsBillable || !b {
		return 0
	}
	return versioned.Price
}

func (*CheckboxField) IsBillable(versioned *VersionedData) bool {
	return versioned.IsBillable && versioned.Price != 0
}

func (*CheckboxField) PlacesUsed(values []any) map[string]int {
	return sharedPoolUsed(values)
}

func (*CheckboxField) FriendlyData(value any, unversioned *UnversionedData, versioned *VersionedData) any {
	return yesNo(value)
}

// BoolField is a required yes/no radio choice with the same billing and
// capacity behavior as the checkbox.
type BoolField struct {
	simpleBase
}

func (*BoolField) Type() Type { return TypeBool }

func (*BoolField) ProcessFieldData(cfg *Config, oldUnversioned *UnversionedData, oldVersioned *VersionedData) (*UnversionedData, *VersionedData, error) {
	unversioned := &UnversionedData{PlacesLimit: toInt(cfg.PlacesLimit)}
	versioned := &VersionedData{IsBillable: cfg.IsBillable, Price: toFloat(cfg.Price)}
	return unversioned, versioned, nil
}

func (*BoolField) UnprocessFieldData(versioned *VersionedData, unversioned *UnversionedData) (*AdminView, error) {
	return &AdminView{IsBillable: versioned.IsBillable, Price: versioned.Price, PlacesLimit: unversioned.PlacesLimit}, nil
}

func (*BoolField) DecodeValue(raw json.RawMessage) (any, error) {
	return decodeBool(raw)
}

func (*BoolField) Validate(ctx *SubmissionContext, value any) error {
	return validateSharedPool(ctx, value)
}

func (*BoolField) ProcessFormData(ctx *SubmissionContext, value any, old *OldEntry, locked bool) (any, bool) {
	if locked && old != nil && old.Price != 0 {
		return nil, false
	}
	return value, true
}

func (*BoolField) CalculatePrice(value any, versioned *VersionedData) float64 {
	b, _ := value.(bool)
	if !versioned.IsBillable || !b {
		return 0
	}
	return versioned.Price
}

func (*BoolField) IsBillable(versioned *VersionedData) bool {
	return versioned.IsBillable && versioned.Price != 0
}

func (*BoolField) PlacesUsed(values []any) map[string]int {
	return sharedPoolUsed(values)
}

func (*BoolField) FriendlyData(value any, unversioned *UnversionedData, versioned *VersionedData) any {
	return yesNo(value)
}

// DateField stores dates as ISO-8601 and renders them back in the
// configured display format.
type DateField struct {
	simpleBase
}

const defaultDateFormat = "02/01/2006"

func (*DateField) Type() Type { return TypeDate }

func (*DateField) ProcessFieldData(cfg *Config, oldUnversioned *UnversionedData, oldVersioned *VersionedData) (*UnversionedData, *VersionedData, error) {
	format := cfg.DateFormat
	if format == "" {
		format = defaultDateFormat
	}
	return &UnversionedData{DateFormat: format}, &VersionedData{}, nil
}

func (*DateField) UnprocessFieldData(versioned *VersionedData, unversioned *UnversionedData) (*AdminView, error) {
	return &AdminView{DateFormat: unversioned.DateFormat}, nil
}

func (*DateField) DecodeValue(raw json.RawMessage) (any, error) {
	return decodeString(raw)
}

func (*DateField) Validate(ctx *SubmissionContext, value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if _, err := time.Parse(dateFormatOf(ctx.Unversioned), s); err != nil {
		return &ValidationError{Message: "Invalid date"}
	}
	return nil
}

// ProcessFormData converts the submitted value from the configured input
// format to the ISO storage form.
func (*DateField) ProcessFormData(ctx *SubmissionContext, value any, old *OldEntry, locked bool) (any, bool) {
	s, _ := value.(string)
	if s == "" {
		return "", true
	}
	// format validity was checked during the validation pass
	t, err := time.Parse(dateFormatOf(ctx.Unversioned), s)
	if err != nil {
		return "", true
	}
	return t.Format(isoDateTime), true
}

func (f *DateField) FriendlyData(value any, unversioned *UnversionedData, versioned *VersionedData) any {
	s, _ := value.(string)
	if s == "" {
		return ""
	}
	t, err := time.Parse(isoDateTime, s)
	if err != nil {
		return ""
	}
	return t.Format(dateFormatOf(unversioned))
}

// HasTime reports whether the configured format carries a time component.
func (*DateField) HasTime(unversioned *UnversionedData) bool {
	return strings.Contains(dateFormatOf(unversioned), " ")
}

func dateFormatOf(unversioned *UnversionedData) string {
	if unversioned.DateFormat == "" {
		return defaultDateFormat
	}
	return unversioned.DateFormat
}

// PhoneField normalizes its input down to digits and a leading plus.
type PhoneField struct {
	simpleBase
}

func (*PhoneField) Type() Type { return TypePhone }

func (*PhoneField) DecodeValue(raw json.RawMessage) (any, error) {
	value, err := decodeString(raw)
	if err != nil {
		return nil, err
	}
	return normalizePhoneNumber(value.(string)), nil
}

func normalizePhoneNumber(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		} else if r == '+' && i == 0 {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// EmailField lowercases its input and checks basic address syntax.
type EmailField struct {
	simpleBase
}

func (*EmailField) Type() Type { return TypeEmail }

func (*EmailField) DecodeValue(raw json.RawMessage) (any, error) {
	value, err := decodeString(raw)
	if err != nil {
		return nil, err
	}
	return strings.ToLower(strings.TrimSpace(value.(string))), nil
}

func (*EmailField) Validate(ctx *SubmissionContext, value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if _, err := mail.ParseAddress(s); err != nil {
		return &ValidationError{Message: "Invalid email address"}
	}
	return nil
}

// CountryField stores an ISO 3166-1 alpha-2 code and displays the country
// name.
type CountryField struct {
	simpleBase
}

func (*CountryField) Type() Type { return TypeCountry }

// UnprocessFieldData exposes the full country table as choices, sorted by
// name.
func (*CountryField) UnprocessFieldData(versioned *VersionedData, unversioned *UnversionedData) (*AdminView, error) {
	return &AdminView{Choices: CountryChoices()}, nil
}

func (*CountryField) DecodeValue(raw json.RawMessage) (any, error) {
	return decodeString(raw)
}

func (*CountryField) Validate(ctx *SubmissionContext, value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if _, ok := Countries[s]; !ok {
		return &ValidationError{Message: "Invalid country"}
	}
	return nil
}

func (*CountryField) FriendlyData(value any, unversioned *UnversionedData, versioned *VersionedData) any {
	s, _ := value.(string)
	if s == "" {
		return ""
	}
	return Countries[s]
}

// FileValue is the submitted shape for file fields. An uploaded file id
// always replaces the stored file; an empty value without keep_existing
// clears it; keep_existing alone leaves the entry untouched.
type FileValue struct {
	KeepExisting   bool   `json:"keep_existing"`
	UploadedFileID string `json:"uploaded_file_id,omitempty"`
}

// FileField references a previously uploaded file by id. The stored value
// is managed through the entry's stored-file reference rather than the
// data payload.
type FileField struct {
	simpleBase
}

func (*FileField) Type() Type { return TypeFile }

func (*FileField) DecodeValue(raw json.RawMessage) (any, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return &FileValue{}, nil
	}
	value := &FileValue{}
	if err := json.Unmarshal(raw, value); err != nil {
		return nil, &ValidationError{Message: "Invalid file data"}
	}
	return value, nil
}

// ProcessFormData resolves the stored action: the returned value is the
// uploaded file id to store, nil to clear, and changed=false keeps the
// existing file.
func (*FileField) ProcessFormData(ctx *SubmissionContext, value any, old *OldEntry, locked bool) (any, bool) {
	fileValue, ok := value.(*FileValue)
	if !ok || fileValue == nil {
		return nil, false
	}
	if fileValue.UploadedFileID != "" {
		// we have a file, always save it
		return fileValue.UploadedFileID, true
	}
	if !fileValue.KeepExisting {
		return nil, true
	}
	return nil, false
}

// FriendlyData returns the stored filename; the caller resolves the file
// reference and passes the name in as the value.
func (*FileField) FriendlyData(value any, unversioned *UnversionedData, versioned *VersionedData) any {
	if value == nil {
		return ""
	}
	return value
}
