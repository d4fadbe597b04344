package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// AttributeType selects how a mapper attribute resolves its value
type AttributeType string

const (
	AttributeCustom      AttributeType = "custom"
	AttributeColumn      AttributeType = "column"
	AttributeFormula     AttributeType = "formula"
	AttributeAI          AttributeType = "ai"
	AttributeAIAssistant AttributeType = "ai-assistant"
	AttributeMeasurement AttributeType = "measurement_mapper"
	AttributeDirect      AttributeType = "direct"
)

// ProfileStatus represents the lifecycle state of a mapping profile
type ProfileStatus string

const (
	ProfileEnabled  ProfileStatus = "ENABLED"
	ProfileDisabled ProfileStatus = "DISABLED"
)

// MeasurementStep holds the unit pair for measurement_mapper attributes
type MeasurementStep struct {
	SourceUnit string `json:"source_unit"`
	TargetUnit string `json:"target_unit"`
}

// ValidationRules describes per-attribute validation constraints propagated
// into the export payload. Pointer fields distinguish "absent" from zero.
type ValidationRules struct {
	MinCharacterLimit *int     `json:"min_character_limit,omitempty"`
	MaxCharacterLimit *int     `json:"max_character_limit,omitempty"`
	MinValue          *float64 `json:"min_value,omitempty"`
	MaxValue          *float64 `json:"max_value,omitempty"`
	DecimalPlaces     *int     `json:"decimal_places,omitempty"`
	Type              string   `json:"type,omitempty"`
}

// MapperAttribute is one attribute rule inside a mapping profile
type MapperAttribute struct {
	Type        AttributeType    `json:"type"`
	Value       string           `json:"value"`
	NextStep    *MeasurementStep `json:"nextStep,omitempty"`
	Validations *ValidationRules `json:"validations,omitempty"`
}

// MapperEntry pairs an attribute key with its rule
type MapperEntry struct {
	Key       string
	Attribute MapperAttribute
}

// MapperProfile is an ordered attribute-key -> rule mapping. Iteration order
// is the profile's insertion order; later keys writing to the same output
// column win. The profile arrives as a JSON object, so unmarshalling walks
// the decoder token stream to preserve key order.
type MapperProfile []MapperEntry

func (p *MapperProfile) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("mapper profile must be a JSON object")
	}

	entries := make([]MapperEntry, 0)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("mapper profile key must be a string, got %v", keyTok)
		}
		var attr MapperAttribute
		if err := dec.Decode(&attr); err != nil {
			return fmt.Errorf("mapper attribute %q: %w", key, err)
		}
		entries = append(entries, MapperEntry{Key: key, Attribute: attr})
	}
	*p = entries
	return nil
}

func (p MapperProfile) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, entry := range p {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(entry.Key)
		if err != nil {
			return nil, err
		}
		attr, err := json.Marshal(entry.Attribute)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(attr)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Get returns the attribute rule for a key
func (p MapperProfile) Get(key string) (MapperAttribute, bool) {
	for _, entry := range p {
		if entry.Key == key {
			return entry.Attribute, true
		}
	}
	return MapperAttribute{}, false
}

// ColumnConfig defines one output column of a template
type ColumnConfig struct {
	Label         string   `json:"label"`
	Code          string   `json:"code"`
	AllowedValues []string `json:"allowed_values,omitempty"`
}

// OutputTemplate defines the column set of a channel's export sheet.
// Code and Label are both unique within a template.
type OutputTemplate struct {
	Name    string         `json:"name"`
	Columns []ColumnConfig `json:"columns"`
}

// ColumnMappers holds the four lookup mappers derived from a template,
// plus the allowed-value lookups surfaced in the export payload.
type ColumnMappers struct {
	CodeToLabel         map[string]string
	LabelToCode         map[string]string
	CodeToCode          map[string]string
	EmptyRow            map[string]interface{}
	PossibleValues      map[string][]string
	PossibleValuesLower map[string][]string
}

// Mappers builds the derived lookup mappers for a template
func (t *OutputTemplate) Mappers() *ColumnMappers {
	m := &ColumnMappers{
		CodeToLabel:         make(map[string]string, len(t.Columns)),
		LabelToCode:         make(map[string]string, len(t.Columns)),
		CodeToCode:          make(map[string]string, len(t.Columns)),
		EmptyRow:            make(map[string]interface{}, len(t.Columns)),
		PossibleValues:      make(map[string][]string),
		PossibleValuesLower: make(map[string][]string),
	}
	for _, col := range t.Columns {
		m.CodeToLabel[col.Code] = col.Label
		m.LabelToCode[col.Label] = col.Code
		m.CodeToCode[col.Code] = col.Code
		m.EmptyRow[col.Code] = nil
		if len(col.AllowedValues) > 0 {
			m.PossibleValues[col.Code] = col.AllowedValues
			lower := make([]string, len(col.AllowedValues))
			for i, v := range col.AllowedValues {
				lower[i] = strings.ToLower(v)
			}
			m.PossibleValuesLower[col.Code] = lower
		}
	}
	return m
}

// ImageTagRule defines the ordering slot for one image tag
type ImageTagRule struct {
	Position int `json:"position"`
}

// ImageTagConfig maps tag names to their ordering rules
type ImageTagConfig map[string]ImageTagRule

// MergeImageTags merges client-level and profile-level tag configs.
// Profile definitions win for matching keys, otherwise the merge is additive.
func MergeImageTags(client, profile ImageTagConfig) ImageTagConfig {
	merged := make(ImageTagConfig, len(client)+len(profile))
	for tag, rule := range client {
		merged[tag] = rule
	}
	for tag, rule := range profile {
		merged[tag] = rule
	}
	return merged
}

// MappingProfile is the full mapping configuration for one
// (client, product type, channel) triple, as served by the catalog API.
type MappingProfile struct {
	ID            string         `json:"id"`
	ClientID      string         `json:"clientId"`
	ProductTypeID string         `json:"productTypeId"`
	Channel       string         `json:"channel"`
	Status        ProfileStatus  `json:"status"`
	Mapper        MapperProfile  `json:"mapper"`
	Template      OutputTemplate `json:"outputTemplate"`
	ImageTags     ImageTagConfig `json:"imageTags,omitempty"`
}
