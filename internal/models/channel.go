package models

import "fmt"

// RowMode selects the channel's row expansion strategy
type RowMode string

const (
	RowModeDefault     RowMode = "default"
	RowModeMultiRow    RowMode = "multi_row"
	RowModeParentChild RowMode = "parent_child"
)

// ChannelConfig describes how one sales channel shapes its export rows.
// Channels are ordinary configuration: new channels are added by
// configuration, not code.
type ChannelConfig struct {
	Name string `json:"name"`

	// CodeAsHeader channels keep column codes as row keys; others use
	// the template labels.
	CodeAsHeader bool `json:"codeAsHeader,omitempty"`

	// UsesImageTags channels receive a tag->url image mapping instead
	// of a flat positional image list.
	UsesImageTags bool `json:"usesImageTags,omitempty"`

	RowMode RowMode `json:"rowMode,omitempty"`

	// ArrayValueColumns are split on the separator during multi-row
	// expansion; all other columns repeat their value on every row.
	ArrayValueColumns []string `json:"arrayValueColumns,omitempty"`

	// MultiRowSeparator defaults to ";"
	MultiRowSeparator string `json:"multiRowSeparator,omitempty"`
}

// Separator returns the multi-row split separator
func (c ChannelConfig) Separator() string {
	if c.MultiRowSeparator == "" {
		return ";"
	}
	return c.MultiRowSeparator
}

// ChannelTable maps channel names to their configs
type ChannelTable map[string]ChannelConfig

// For returns the channel config, defaulting unknown channels to the
// default row strategy with label headers.
func (t ChannelTable) For(name string) ChannelConfig {
	if c, ok := t[name]; ok {
		if c.RowMode == "" {
			c.RowMode = RowModeDefault
		}
		return c
	}
	return ChannelConfig{Name: name, RowMode: RowModeDefault}
}

// ParentMappingEntry is one ordered key -> expression pair used to
// synthesize a parent row. The literal value "#child" copies the key's
// value from the first child row; anything else evaluates as a formula
// against the first variant's context.
type ParentMappingEntry struct {
	Key        string `json:"key"`
	Expression string `json:"expression"`
}

// ParentChildConfig drives handle grouping for parent/child channels
type ParentChildConfig struct {
	// HandleColumn is the canonical column whose value groups variants
	HandleColumn string `json:"handleColumn"`

	// ImageColumn receives one image url per physical row
	ImageColumn string `json:"imageColumn,omitempty"`

	// ChildColumns is the subset of columns later variants contribute
	ChildColumns []string `json:"childColumns"`

	// ParentMapping synthesizes the parent row, in order
	ParentMapping []ParentMappingEntry `json:"parentMapping,omitempty"`

	// MaxImages caps per-image physical rows; 0 falls back to the
	// client policy's MaxGroupImages.
	MaxImages int `json:"maxImages,omitempty"`
}

// ParentKeyTable resolves parent/child configs. Lookup precedence:
// outputTemplateName, then channel_clientId, then channel.
type ParentKeyTable map[string]ParentChildConfig

// Resolve returns the parent/child config for a job, or nil when the
// channel does not group rows.
func (t ParentKeyTable) Resolve(outputTemplateName, channel, clientID string) *ParentChildConfig {
	if outputTemplateName != "" {
		if cfg, ok := t[outputTemplateName]; ok {
			return &cfg
		}
	}
	if cfg, ok := t[fmt.Sprintf("%s_%s", channel, clientID)]; ok {
		return &cfg
	}
	if cfg, ok := t[channel]; ok {
		return &cfg
	}
	return nil
}
