package export

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"catalog-sync-service/internal/models"
)

func multiRowBuilder() *RowBuilder {
	template := models.OutputTemplate{
		Name: "feed",
		Columns: []models.ColumnConfig{
			{Label: "Title", Code: "title"},
			{Label: "Size", Code: "size"},
		},
	}
	return &RowBuilder{
		Channel: models.ChannelConfig{
			Name:              "ZALANDO",
			RowMode:           models.RowModeMultiRow,
			ArrayValueColumns: []string{"size"},
		},
		Mappers: template.Mappers(),
	}
}

func TestMultiRowStrategy(t *testing.T) {
	builder := multiRowBuilder()
	strategy := StrategyFor(builder.Channel, nil, builder, models.ClientPolicy{})

	row := FinalRow{"Title": "Shirt", "Size": "S;M;L"}
	strategy.Add([]BuiltRow{{Row: row, Ctx: RowContext{}}})
	result := strategy.Finish()

	assert.Len(t, result.Rows, 3)
	assert.Equal(t, "S", result.Rows[0]["Size"])
	assert.Equal(t, "M", result.Rows[1]["Size"])
	assert.Equal(t, "L", result.Rows[2]["Size"])

	// same-value columns repeat on every row
	for i, row := range result.Rows {
		assert.Equal(t, "Shirt", row["Title"], "row %d title", i)
	}
}

func TestMultiRowStrategyUnevenArrayColumns(t *testing.T) {
	template := models.OutputTemplate{
		Name: "feed",
		Columns: []models.ColumnConfig{
			{Label: "Title", Code: "title"},
			{Label: "Size", Code: "size"},
			{Label: "EAN", Code: "ean"},
		},
	}
	builder := &RowBuilder{
		Channel: models.ChannelConfig{
			Name:              "ZALANDO",
			RowMode:           models.RowModeMultiRow,
			ArrayValueColumns: []string{"size", "ean"},
		},
		Mappers: template.Mappers(),
	}
	strategy := StrategyFor(builder.Channel, nil, builder, models.ClientPolicy{})

	strategy.Add([]BuiltRow{{Row: FinalRow{"Title": "Shirt", "Size": "S;M;L", "EAN": "111;222"}}})
	result := strategy.Finish()

	assert.Len(t, result.Rows, 3)
	assert.Equal(t, "222", result.Rows[1]["EAN"])
	assert.Nil(t, result.Rows[2]["EAN"], "exhausted array column goes nil")
	assert.Equal(t, "Shirt", result.Rows[2]["Title"])
}

func TestMultiRowStrategyScalarOnly(t *testing.T) {
	builder := multiRowBuilder()
	strategy := StrategyFor(builder.Channel, nil, builder, models.ClientPolicy{})

	strategy.Add([]BuiltRow{{Row: FinalRow{"Title": "Plain", "Size": nil}}})
	result := strategy.Finish()

	assert.Len(t, result.Rows, 1)
	assert.Equal(t, "Plain", result.Rows[0]["Title"])
}

func parentChildFixtures() (*RowBuilder, *models.ParentChildConfig) {
	template := models.OutputTemplate{
		Name: "shopify",
		Columns: []models.ColumnConfig{
			{Label: "Handle", Code: "handle"},
			{Label: "Title", Code: "title"},
			{Label: "SKU", Code: "sku"},
			{Label: "Image Src", Code: "image_src"},
		},
	}
	builder := &RowBuilder{
		Channel: models.ChannelConfig{Name: "SHOPIFY", RowMode: models.RowModeParentChild},
		Mappers: template.Mappers(),
	}
	cfg := &models.ParentChildConfig{
		HandleColumn: "handle",
		ImageColumn:  "image_src",
		ChildColumns: []string{"sku"},
		ParentMapping: []models.ParentMappingEntry{
			{Key: "handle", Expression: "#child"},
			{Key: "title", Expression: "#child"},
		},
	}
	return builder, cfg
}

func TestParentChildStrategy(t *testing.T) {
	builder, cfg := parentChildFixtures()
	strategy := StrategyFor(builder.Channel, cfg, builder, models.ClientPolicy{})

	first := FinalRow{"Handle": "tee", "Title": "Tee", "SKU": "A1", "Image Src": nil}
	second := FinalRow{"Handle": "tee", "Title": "Tee", "SKU": "A2", "Image Src": nil}
	noHandle := FinalRow{"Handle": "", "Title": "Lost", "SKU": "A3", "Image Src": nil}

	strategy.Add([]BuiltRow{
		{Row: first, Ctx: RowContext{}, Images: OrderedImages{Flat: []string{"u1", "u2"}}},
		{Row: second, Ctx: RowContext{}},
		{Row: noHandle, Ctx: RowContext{}},
	})
	result := strategy.Finish()

	t.Run("first variant produces one row per image", func(t *testing.T) {
		assert.Len(t, result.Rows, 2)
		assert.Equal(t, "u1", result.Rows[0]["Image Src"])
		assert.Equal(t, "u2", result.Rows[1]["Image Src"])
		assert.Equal(t, "tee", result.Rows[1]["Handle"])
	})

	t.Run("second variant round-robin fills the image row", func(t *testing.T) {
		assert.Equal(t, "A2", result.Rows[1]["SKU"])
		assert.Nil(t, result.Rows[1]["Title"], "child subset excludes title")
	})

	t.Run("rows without a handle are dropped and counted", func(t *testing.T) {
		assert.Equal(t, 1, result.SkippedNoHandle)
	})

	t.Run("parent row copies #child values from the first child", func(t *testing.T) {
		assert.Len(t, result.ParentRows, 1)
		assert.Equal(t, "tee", result.ParentRows[0]["Handle"])
		assert.Equal(t, "Tee", result.ParentRows[0]["Title"])
	})
}

func TestParentChildStrategyAppendsBeyondImageRows(t *testing.T) {
	builder, cfg := parentChildFixtures()
	strategy := StrategyFor(builder.Channel, cfg, builder, models.ClientPolicy{})

	strategy.Add([]BuiltRow{
		{Row: FinalRow{"Handle": "tee", "Title": "Tee", "SKU": "A1", "Image Src": nil}, Images: OrderedImages{Flat: []string{"u1"}}},
		{Row: FinalRow{"Handle": "tee", "Title": "Tee", "SKU": "A2", "Image Src": nil}},
		{Row: FinalRow{"Handle": "tee", "Title": "Tee", "SKU": "A3", "Image Src": nil}},
	})
	result := strategy.Finish()

	// one image row, so the extra variants append
	assert.Len(t, result.Rows, 3)
	assert.Equal(t, "A2", result.Rows[1]["SKU"])
	assert.Equal(t, "tee", result.Rows[1]["Handle"])
	assert.Equal(t, "A3", result.Rows[2]["SKU"])
}

func TestParentChildStrategyImageCap(t *testing.T) {
	builder, cfg := parentChildFixtures()
	cfg.MaxImages = 2
	strategy := StrategyFor(builder.Channel, cfg, builder, models.ClientPolicy{})

	strategy.Add([]BuiltRow{
		{Row: FinalRow{"Handle": "tee", "Title": "Tee", "SKU": "A1", "Image Src": nil}, Images: OrderedImages{Flat: []string{"u1", "u2", "u3", "u4"}}},
	})
	result := strategy.Finish()

	assert.Len(t, result.Rows, 2)
}

func TestDefaultStrategyUniformRows(t *testing.T) {
	builder := multiRowBuilder()
	channel := models.ChannelConfig{Name: "PLAIN", RowMode: models.RowModeDefault}
	strategy := StrategyFor(channel, nil, builder, models.ClientPolicy{})

	strategy.Add([]BuiltRow{
		{Row: FinalRow{"Title": "One", "Size": "M"}},
		{Row: FinalRow{"Title": "Two", "Size": nil}},
	})
	result := strategy.Finish()

	assert.Len(t, result.Rows, 2)
	for _, row := range result.Rows {
		assert.Len(t, row, 2)
	}
}
