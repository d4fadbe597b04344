package export

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"catalog-sync-service/internal/models"
)

func testTemplate() models.OutputTemplate {
	return models.OutputTemplate{
		Name: "shopify-default",
		Columns: []models.ColumnConfig{
			{Label: "Title", Code: "title"},
			{Label: "Price", Code: "price"},
			{Label: "Material", Code: "material", AllowedValues: []string{"Cotton", "Wool"}},
			{Label: "Length", Code: "length_in"},
			{Label: "Description", Code: "description"},
			{Label: "Color", Code: "color"},
		},
	}
}

func testBuilder(policy models.ClientPolicy) *RowBuilder {
	template := testTemplate()
	return &RowBuilder{
		Channel: models.ChannelConfig{Name: "SHOPIFY"},
		Mappers: template.Mappers(),
		Policy:  policy,
	}
}

func testProfile() models.MapperProfile {
	minPrice := 0.01
	return models.MapperProfile{
		{Key: "title", Attribute: models.MapperAttribute{Type: models.AttributeCustom, Value: "{{brand}} {{name}}"}},
		{Key: "price", Attribute: models.MapperAttribute{
			Type:        models.AttributeFormula,
			Value:       "base_price * 1.2",
			Validations: &models.ValidationRules{MinValue: &minPrice},
		}},
		{Key: "material", Attribute: models.MapperAttribute{Type: models.AttributeColumn, Value: "material"}},
		{Key: "length_in", Attribute: models.MapperAttribute{
			Type:     models.AttributeMeasurement,
			Value:    "length",
			NextStep: &models.MeasurementStep{SourceUnit: "cm", TargetUnit: "in"},
		}},
		{Key: "description", Attribute: models.MapperAttribute{Type: models.AttributeAI, Value: "description"}},
		{Key: "color", Attribute: models.MapperAttribute{Type: models.AttributeDirect, Value: "color"}},
	}
}

func testContext() RowContext {
	return RowContext{
		"brand":                "Acme",
		"name":                 "Tee",
		"base_price":           10.0,
		"material#catalogus":   "Cotton",
		"material#value":       "cotton-raw",
		"length":               "12.5 cm",
		"description":          "Base description",
		"description#SHOPIFY":  "Channel description",
		"color":                "Red",
	}
}

func TestRowBuilderBuild(t *testing.T) {
	builder := testBuilder(models.ClientPolicy{})
	row, validations, failures := builder.Build(testProfile(), testContext(), nil, nil)

	t.Run("no cell failures on a clean context", func(t *testing.T) {
		assert.Zero(t, failures)
	})

	t.Run("every column has a key", func(t *testing.T) {
		assert.Len(t, row, 6)
		for _, label := range []string{"Title", "Price", "Material", "Length", "Description", "Color"} {
			_, ok := row[label]
			assert.True(t, ok, "missing column %s", label)
		}
	})

	t.Run("custom resolves placeholders", func(t *testing.T) {
		assert.Equal(t, "Acme Tee", row["Title"])
	})

	t.Run("formula evaluates against context", func(t *testing.T) {
		assert.InDelta(t, 12.0, row["Price"], 0.0001)
	})

	t.Run("column prefers catalogus over raw value", func(t *testing.T) {
		assert.Equal(t, "Cotton", row["Material"])
	})

	t.Run("measurement converts units", func(t *testing.T) {
		assert.InDelta(t, 4.921, row["Length"], 0.0001)
	})

	t.Run("ai reads the channel-suffixed value", func(t *testing.T) {
		assert.Equal(t, "Channel description", row["Description"])
	})

	t.Run("direct reads the bare key", func(t *testing.T) {
		assert.Equal(t, "Red", row["Color"])
	})

	t.Run("validations accumulate present fields", func(t *testing.T) {
		assert.Contains(t, validations, "price")
		assert.NotNil(t, validations["price"].MinValue)
		assert.Equal(t, 0.01, *validations["price"].MinValue)
	})
}

func TestRowBuilderIsPure(t *testing.T) {
	builder := testBuilder(models.ClientPolicy{})
	ctx := testContext()

	first, _, _ := builder.Build(testProfile(), ctx, nil, nil)
	second, _, _ := builder.Build(testProfile(), ctx, nil, nil)

	assert.Equal(t, first, second)
	assert.Equal(t, testContext(), ctx, "context must not be mutated")
}

func TestRowBuilderFormulaFailureIsIsolated(t *testing.T) {
	builder := testBuilder(models.ClientPolicy{})
	profile := models.MapperProfile{
		{Key: "title", Attribute: models.MapperAttribute{Type: models.AttributeCustom, Value: "{{brand}}"}},
		{Key: "price", Attribute: models.MapperAttribute{Type: models.AttributeFormula, Value: "base_price **"}},
	}

	row, _, failures := builder.Build(profile, testContext(), nil, nil)
	assert.Nil(t, row["Price"])
	assert.Equal(t, "Acme", row["Title"])
	assert.Equal(t, 1, failures, "the broken formula is counted as one cell failure")
}

func TestRowBuilderMissingContextYieldsNil(t *testing.T) {
	builder := testBuilder(models.ClientPolicy{})
	profile := models.MapperProfile{
		{Key: "color", Attribute: models.MapperAttribute{Type: models.AttributeDirect, Value: "color"}},
	}

	row, _, _ := builder.Build(profile, RowContext{}, nil, nil)
	assert.Nil(t, row["Color"])
}

func TestRowBuilderNATokenNormalization(t *testing.T) {
	policy := models.ClientPolicy{NormalizeNATokens: true}
	builder := testBuilder(policy)
	profile := models.MapperProfile{
		{Key: "color", Attribute: models.MapperAttribute{Type: models.AttributeDirect, Value: "color"}},
		{Key: "material", Attribute: models.MapperAttribute{Type: models.AttributeDirect, Value: "fabric"}},
	}

	row, _, _ := builder.Build(profile, RowContext{"color": "NA", "fabric": "NATURAL"}, nil, nil)
	assert.Nil(t, row["Color"], "literal NA token is nulled")
	assert.Equal(t, "NATURAL", row["Material"], "NA inside a word is kept")
}

func TestRowBuilderEnrichedPolicies(t *testing.T) {
	t.Run("force null when base attribute empty", func(t *testing.T) {
		policy := models.ClientPolicy{ForceNullWhenBaseEmpty: []string{"description"}}
		builder := testBuilder(policy)
		profile := models.MapperProfile{
			{Key: "description", Attribute: models.MapperAttribute{Type: models.AttributeAI, Value: "description"}},
		}

		row, _, _ := builder.Build(profile, RowContext{"description#SHOPIFY": "enriched"}, nil, nil)
		assert.Nil(t, row["Description"])
	})

	t.Run("prefer catalog value over enrichment", func(t *testing.T) {
		policy := models.ClientPolicy{PreferCatalogValue: true}
		builder := testBuilder(policy)
		profile := models.MapperProfile{
			{Key: "description", Attribute: models.MapperAttribute{Type: models.AttributeAIAssistant, Value: "description"}},
		}

		ctx := RowContext{
			"description":           "base",
			"description#catalogus": "catalog",
			"description#SHOPIFY":   "enriched",
		}
		row, _, _ := builder.Build(profile, ctx, nil, nil)
		assert.Equal(t, "catalog", row["Description"])
	})
}

func TestRowBuilderMarketplaceOverrides(t *testing.T) {
	builder := testBuilder(models.ClientPolicy{})
	productOverrides := map[string]interface{}{"title": "Product override"}
	variantOverrides := map[string]interface{}{"title": "Variant override"}

	row, _, _ := builder.Build(testProfile(), testContext(), productOverrides, variantOverrides)
	assert.Equal(t, "Variant override", row["Title"], "variant-level override wins")
}

func TestValidationMetadataMergeNeverRemoves(t *testing.T) {
	limit := 80
	minValue := 1.0
	meta := make(ValidationMetadata)

	meta.Merge("title", &models.ValidationRules{MaxCharacterLimit: &limit})
	meta.Merge("title", &models.ValidationRules{MinValue: &minValue})

	assert.NotNil(t, meta["title"].MaxCharacterLimit)
	assert.NotNil(t, meta["title"].MinValue)
}
