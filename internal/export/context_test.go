package export

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"catalog-sync-service/internal/models"
)

func TestFlattenConstants(t *testing.T) {
	constants := map[string]interface{}{
		"brand_name": "Acme",
		"shipping": map[string]interface{}{
			"weight": 1.5,
			"origin": map[string]interface{}{
				"country": "NL",
			},
		},
	}

	ctx := FlattenConstants(constants)
	assert.Equal(t, "Acme", ctx["brand_name"])
	assert.Equal(t, 1.5, ctx["shipping_weight"])
	assert.Equal(t, "NL", ctx["shipping_origin_country"])
}

func TestBuildRowContext(t *testing.T) {
	product := &models.CatalogProduct{
		ID:  "p1",
		SKU: "P-SKU",
		Attributes: map[string]models.AttributeValue{
			"material": {Value: "cotton-raw", Catalogus: "Cotton"},
			"description": {
				Value:    "Base",
				Channels: map[string]interface{}{"SHOPIFY": "Enriched"},
			},
		},
	}
	variant := &models.CatalogVariant{
		ID:  "v1",
		SKU: "V-SKU",
		Attributes: map[string]models.AttributeValue{
			"material": {Value: "wool-raw"},
		},
	}
	clientCtx := RowContext{"brand_name": "Acme", "material": "client-default"}
	productTypeCtx := RowContext{"brand_name": "Generic", "category": "apparel"}

	ctx := BuildRowContext("SHOPIFY", product, variant, clientCtx, productTypeCtx)

	t.Run("origin suffixes", func(t *testing.T) {
		assert.Equal(t, "Cotton", ctx["material#catalogus"])
		assert.Equal(t, "Base", ctx["description#value"])
		assert.Equal(t, "Enriched", ctx["description#SHOPIFY"])
	})

	t.Run("later layers win", func(t *testing.T) {
		assert.Equal(t, "Acme", ctx["brand_name"], "client constants beat product type constants")
		assert.Equal(t, "apparel", ctx["category"])

		// variant attribute material has no catalogus, so its raw value
		// is the effective one and it overwrites the product's
		assert.Equal(t, "wool-raw", ctx["material"])
		assert.Equal(t, "wool-raw", ctx["material#value"])
	})

	t.Run("identity metadata", func(t *testing.T) {
		assert.Equal(t, "SHOPIFY", ctx["channel"])
		assert.Equal(t, "p1", ctx["product_id"])
		assert.Equal(t, "P-SKU", ctx["product_sku"])
		assert.Equal(t, "v1", ctx["variant_id"])
		assert.Equal(t, "V-SKU", ctx["variant_sku"])
	})
}

func TestStringify(t *testing.T) {
	assert.Equal(t, "", Stringify(nil))
	assert.Equal(t, "text", Stringify("text"))
	assert.Equal(t, "19.9", Stringify(19.9))
	assert.Equal(t, "12", Stringify(12.0))
	assert.Equal(t, "true", Stringify(true))
}

func TestIsEmptyValue(t *testing.T) {
	assert.True(t, IsEmptyValue(nil))
	assert.True(t, IsEmptyValue(""))
	assert.True(t, IsEmptyValue("   "))
	assert.False(t, IsEmptyValue("x"))
	assert.False(t, IsEmptyValue(0.0))
}
