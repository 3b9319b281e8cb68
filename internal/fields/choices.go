package fields

import (
	"encoding/json"
	"fmt"
	"maps"
	"reflect"
	"sort"

	"github.com/google/uuid"
)

// choiceBase holds the behavior shared by the choice-like field types:
// config processing with caption carry-forward, per-choice capacity
// accounting and the billable-choices price computation.
type choiceBase struct{}

// processChoices normalizes admin-submitted options. Items flagged for
// removal are dropped, new items get a fresh id, numeric sub-fields are
// coerced and captions are carried forward from the old unversioned data
// so historical entries keep resolving.
func (choiceBase) processChoices(cfg *Config, oldUnversioned *UnversionedData) (map[string]string, []ChoiceItem) {
	captions := map[string]string{}
	if oldUnversioned != nil {
		maps.Copy(captions, oldUnversioned.Captions)
	}
	var items []ChoiceItem
	seen := map[string]bool{}
	for _, c := range cfg.Choices {
		if c.Remove {
			continue
		}
		id := c.ID
		if id == "" {
			id = uuid.NewString()
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		items = append(items, ChoiceItem{
			ID:            id,
			Price:         toFloat(c.Price),
			PlacesLimit:   toInt(c.PlacesLimit),
			MaxExtraSlots: toInt(c.MaxExtraSlots),
			IsBillable:    c.IsBillable,
			ExtraSlotsPay: c.ExtraSlotsPay,
		})
		captions[id] = c.Caption
	}
	return captions, items
}

func (choiceBase) unprocessChoices(versioned *VersionedData, unversioned *UnversionedData) ([]AdminChoice, error) {
	out := make([]AdminChoice, 0, len(versioned.Choices))
	for _, item := range versioned.Choices {
		caption, ok := unversioned.Captions[item.ID]
		if !ok {
			return nil, fmt.Errorf("no caption for choice %s", item.ID)
		}
		out = append(out, AdminChoice{ChoiceItem: item, Caption: caption})
	}
	return out, nil
}

func (choiceBase) decodeChoiceValue(raw json.RawMessage) (any, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return map[string]int{}, nil
	}
	value := map[string]int{}
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, &ValidationError{Message: "Invalid choice data"}
	}
	return value, nil
}

// validateChoicePlaces rejects selections that would exceed a choice's
// places limit. Resubmitting an unchanged value skips the check so the
// submitter's own occupancy is not counted against them.
func (choiceBase) validateChoicePlaces(ctx *SubmissionContext, value map[string]int) error {
	if len(value) == 0 {
		return nil
	}
	if ctx.Modifying && (!ctx.HasOld || !valueChanged(value, ctx.OldValue)) {
		return nil
	}
	for id, slots := range value {
		choice := findChoice(ctx.Versioned.Choices, id)
		if choice == nil {
			return validationErrorf("Invalid option: %s", id)
		}
		if choice.PlacesLimit == 0 {
			continue
		}
		if ctx.PlacesUsed[id]+slots > choice.PlacesLimit {
			return validationErrorf("No places left for the option: %s", ctx.Unversioned.Captions[id])
		}
	}
	return nil
}

// calculateChoicePrice sums the prices of all billable chosen items, with
// extra slots charged only for items marked extra_slots_pay.
func (choiceBase) calculateChoicePrice(value map[string]int, versioned *VersionedData) float64 {
	if len(value) == 0 {
		return 0
	}
	var price float64
	for _, choice := range versioned.Choices {
		slots, chosen := value[choice.ID]
		if !chosen || !choice.IsBillable {
			continue
		}
		price += choice.Price
		if choice.ExtraSlotsPay && slots > 1 {
			price += float64(slots-1) * choice.Price
		}
	}
	return price
}

// PlacesUsed accumulates one count per requested slot, keyed by choice id.
func (choiceBase) PlacesUsed(values []any) map[string]int {
	used := map[string]int{}
	for _, v := range values {
		value, ok := v.(map[string]int)
		if !ok {
			continue
		}
		for id, slots := range value {
			used[id] += slots
		}
	}
	return used
}

func (choiceBase) IsBillable(versioned *VersionedData) bool {
	for _, choice := range versioned.Choices {
		if choice.IsBillable && choice.Price != 0 {
			return true
		}
	}
	return false
}

func findChoice(choices []ChoiceItem, id string) *ChoiceItem {
	for i := range choices {
		if choices[i].ID == id {
			return &choices[i]
		}
	}
	return nil
}

// formatChoiceItem renders "Caption" or "Caption (+N)" when more than one
// slot was taken.
func formatChoiceItem(captions map[string]string, id string, slots int) string {
	caption, ok := captions[id]
	if !ok {
		caption = id
	}
	if slots > 1 {
		return fmt.Sprintf("%s (+%d)", caption, slots-1)
	}
	return caption
}

// valueChanged reports whether a submitted value differs from the stored
// one, treating nil and empty collections as equal.
func valueChanged(newValue, oldValue any) bool {
	if newMap, ok := newValue.(map[string]int); ok {
		oldMap, ok := oldValue.(map[string]int)
		if !ok {
			return true
		}
		return !maps.Equal(newMap, oldMap)
	}
	return !reflect.DeepEqual(newValue, oldValue)
}

// SingleChoiceField lets the participant pick one option, optionally with
// extra slots.
type SingleChoiceField struct {
	choiceBase
}

func (*SingleChoiceField) Type() Type { return TypeSingleChoice }

func (f *SingleChoiceField) ProcessFieldData(cfg *Config, oldUnversioned *UnversionedData, oldVersioned *VersionedData) (*UnversionedData, *VersionedData, error) {
	captions, items := f.processChoices(cfg, oldUnversioned)
	unversioned := &UnversionedData{Captions: captions}
	// the default may be given by caption or id; resolve it to the id
	for _, item := range items {
		if cfg.DefaultItem != "" && (cfg.DefaultItem == item.ID || cfg.DefaultItem == captions[item.ID]) {
			unversioned.DefaultItem = item.ID
			break
		}
	}
	return unversioned, &VersionedData{Choices: items}, nil
}

func (f *SingleChoiceField) UnprocessFieldData(versioned *VersionedData, unversioned *UnversionedData) (*AdminView, error) {
	choices, err := f.unprocessChoices(versioned, unversioned)
	if err != nil {
		return nil, err
	}
	return &AdminView{Choices: choices, DefaultItem: unversioned.DefaultItem}, nil
}

func (f *SingleChoiceField) DecodeValue(raw json.RawMessage) (any, error) {
	value, err := f.decodeChoiceValue(raw)
	if err != nil {
		return nil, err
	}
	if m := value.(map[string]int); len(m) > 1 {
		return nil, &ValidationError{Message: "Only one option may be selected"}
	}
	return value, nil
}

// DefaultValue returns the configured default item, but only if it still
// exists in the current version's choices.
func (f *SingleChoiceField) DefaultValue(unversioned *UnversionedData, versioned *VersionedData) any {
	if unversioned.DefaultItem == "" {
		return nil
	}
	if findChoice(versioned.Choices, unversioned.DefaultItem) != nil {
		return map[string]int{unversioned.DefaultItem: 1}
	}
	return map[string]int{}
}

func (f *SingleChoiceField) Validate(ctx *SubmissionContext, value any) error {
	choiceValue, _ := value.(map[string]int)
	return f.validateChoicePlaces(ctx, choiceValue)
}

// ProcessFormData ignores any edit once the stored entry has produced a
// nonzero price: a paid line item can never silently change via a later
// self-edit.
func (f *SingleChoiceField) ProcessFormData(ctx *SubmissionContext, value any, old *OldEntry, locked bool) (any, bool) {
	if locked && old != nil && old.Price != 0 {
		return nil, false
	}
	if value == nil {
		value = map[string]int{}
	}
	return value, true
}

func (f *SingleChoiceField) CalculatePrice(value any, versioned *VersionedData) float64 {
	choiceValue, _ := value.(map[string]int)
	return f.calculateChoicePrice(choiceValue, versioned)
}

func (f *SingleChoiceField) FriendlyData(value any, unversioned *UnversionedData, versioned *VersionedData) any {
	choiceValue, _ := value.(map[string]int)
	for id, slots := range choiceValue {
		return formatChoiceItem(unversioned.Captions, id, slots)
	}
	return ""
}

// MultiChoiceField lets the participant pick several options, each with a
// slot count.
type MultiChoiceField struct {
	choiceBase
}

func (*MultiChoiceField) Type() Type { return TypeMultiChoice }

func (f *MultiChoiceField) ProcessFieldData(cfg *Config, oldUnversioned *UnversionedData, oldVersioned *VersionedData) (*UnversionedData, *VersionedData, error) {
	captions, items := f.processChoices(cfg, oldUnversioned)
	return &UnversionedData{Captions: captions}, &VersionedData{Choices: items}, nil
}

func (f *MultiChoiceField) UnprocessFieldData(versioned *VersionedData, unversioned *UnversionedData) (*AdminView, error) {
	choices, err := f.unprocessChoices(versioned, unversioned)
	if err != nil {
		return nil, err
	}
	return &AdminView{Choices: choices}, nil
}

func (f *MultiChoiceField) DecodeValue(raw json.RawMessage) (any, error) {
	return f.decodeChoiceValue(raw)
}

func (f *MultiChoiceField) DefaultValue(unversioned *UnversionedData, versioned *VersionedData) any {
	return map[string]int{}
}

func (f *MultiChoiceField) Validate(ctx *SubmissionContext, value any) error {
	choiceValue, _ := value.(map[string]int)
	return f.validateChoicePlaces(ctx, choiceValue)
}

// ProcessFormData is more permissive than the other billable types: while
// locked, edits keeping the set of priced billable choices intact proceed
// normally (slot changes among non-priced items are fine), but any change
// to that set rejects the whole edit and preserves the old data.
func (f *MultiChoiceField) ProcessFormData(ctx *SubmissionContext, value any, old *OldEntry, locked bool) (any, bool) {
	if value == nil {
		value = map[string]int{}
	}
	if !locked || old == nil {
		return value, true
	}
	newValue, _ := value.(map[string]int)
	oldValue, _ := old.Value.(map[string]int)
	if maps.Equal(oldValue, newValue) {
		return nil, false
	}
	oldBillable := billableSelection(oldValue, old.Versioned)
	newBillable := billableSelection(newValue, ctx.Versioned)
	if !maps.Equal(oldBillable, newBillable) {
		// preserve existing data
		return nil, false
	}
	return value, true
}

// billableSelection filters a choice value down to the items that carry a
// nonzero billable price in the given snapshot.
func billableSelection(value map[string]int, versioned *VersionedData) map[string]int {
	out := map[string]int{}
	if versioned == nil {
		return out
	}
	for id, slots := range value {
		choice := findChoice(versioned.Choices, id)
		if choice != nil && choice.IsBillable && choice.Price != 0 {
			out[id] = slots
		}
	}
	return out
}

func (f *MultiChoiceField) CalculatePrice(value any, versioned *VersionedData) float64 {
	choiceValue, _ := value.(map[string]int)
	return f.calculateChoicePrice(choiceValue, versioned)
}

// FriendlyData lists the chosen captions in lexicographic order.
func (f *MultiChoiceField) FriendlyData(value any, unversioned *UnversionedData, versioned *VersionedData) any {
	choiceValue, _ := value.(map[string]int)
	if len(choiceValue) == 0 {
		return []string{}
	}
	items := make([]string, 0, len(choiceValue))
	for id, slots := range choiceValue {
		items = append(items, formatChoiceItem(unversioned.Captions, id, slots))
	}
	sort.Strings(items)
	return items
}
