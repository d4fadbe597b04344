package config

import (
	"encoding/json"
	"fmt"
	"os"

	"catalog-sync-service/internal/models"
)

// Tables bundles the injected channel, policy and parent-key
// configuration. Channel behavior and per-client overrides are data,
// not code: new channels and client quirks ship as configuration.
type Tables struct {
	Channels   models.ChannelTable   `json:"channels"`
	Policies   models.PolicyTable    `json:"policies"`
	ParentKeys models.ParentKeyTable `json:"parentKeys"`
}

// DefaultTables returns the built-in channel set
func DefaultTables() *Tables {
	return &Tables{
		Channels: models.ChannelTable{
			"SHOPIFY": {
				Name:          "SHOPIFY",
				RowMode:       models.RowModeParentChild,
				UsesImageTags: false,
			},
			"AMAZON": {
				Name:         "AMAZON",
				CodeAsHeader: true,
				RowMode:      models.RowModeDefault,
			},
			"ZALANDO": {
				Name:              "ZALANDO",
				RowMode:           models.RowModeMultiRow,
				UsesImageTags:     true,
				ArrayValueColumns: []string{"size", "ean"},
			},
		},
		Policies: models.PolicyTable{},
		ParentKeys: models.ParentKeyTable{
			"SHOPIFY": {
				HandleColumn: "handle",
				ImageColumn:  "image_src",
				ChildColumns: []string{"sku", "price", "barcode", "option1_value", "option2_value"},
				ParentMapping: []models.ParentMappingEntry{
					{Key: "handle", Expression: "#child"},
					{Key: "title", Expression: "#child"},
					{Key: "vendor", Expression: "#child"},
					{Key: "product_type", Expression: "#child"},
				},
			},
		},
	}
}

// LoadTables reads the table file, falling back to the defaults when
// no path is configured. File entries replace default entries per key.
func LoadTables(path string) (*Tables, error) {
	tables := DefaultTables()
	if path == "" {
		return tables, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading tables file: %w", err)
	}
	var loaded Tables
	if err := json.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("parsing tables file: %w", err)
	}

	for name, channel := range loaded.Channels {
		tables.Channels[name] = channel
	}
	for clientID, policy := range loaded.Policies {
		tables.Policies[clientID] = policy
	}
	for key, cfg := range loaded.ParentKeys {
		tables.ParentKeys[key] = cfg
	}
	return tables, nil
}
