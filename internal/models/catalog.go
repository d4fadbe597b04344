package models

// AttributeValue holds the per-origin values of one catalog attribute.
// Value is the raw value, Catalogus the catalog-normalized one, and
// Channels holds channel-specific enrichments keyed by channel name.
type AttributeValue struct {
	Value     interface{}            `json:"value,omitempty"`
	Catalogus interface{}            `json:"catalogus,omitempty"`
	Channels  map[string]interface{} `json:"channels,omitempty"`
}

// Effective returns the catalog-normalized value, falling back to raw
func (a AttributeValue) Effective() interface{} {
	if a.Catalogus != nil {
		return a.Catalogus
	}
	return a.Value
}

// CatalogImage is one image attached to a product or variant
type CatalogImage struct {
	ID       string   `json:"id,omitempty"`
	URL      string   `json:"url"`
	AltText  string   `json:"altText,omitempty"`
	Position int      `json:"position,omitempty"`
	Tags     []string `json:"tags,omitempty"`
}

// CatalogVariant is one sellable variant of a catalog product
type CatalogVariant struct {
	ID         string                    `json:"_id"`
	SKU        string                    `json:"sku,omitempty"`
	Attributes map[string]AttributeValue `json:"attributes,omitempty"`
	Images     []CatalogImage            `json:"images,omitempty"`

	// MarketplaceData holds per-channel column overrides written back by
	// previous exports or manual edits; keys are channel names.
	MarketplaceData map[string]map[string]interface{} `json:"marketplaceData,omitempty"`
}

// CatalogProduct is one product fetched from the internal catalog API
type CatalogProduct struct {
	ID              string                            `json:"_id"`
	SKU             string                            `json:"sku,omitempty"`
	ProductTypeID   string                            `json:"productTypeId"`
	Attributes      map[string]AttributeValue         `json:"attributes,omitempty"`
	Images          []CatalogImage                    `json:"images,omitempty"`
	Variants        []CatalogVariant                  `json:"variants,omitempty"`
	MarketplaceData map[string]map[string]interface{} `json:"marketplaceData,omitempty"`
}

// ClientConstants is the client-level configuration served by the
// catalog API: constant context values plus client image-tag rules.
type ClientConstants struct {
	ClientID  string                 `json:"clientId"`
	Constants map[string]interface{} `json:"constants,omitempty"`
	ImageTags ImageTagConfig         `json:"imageTags,omitempty"`
}

// ProductTypeConstants is the product-type-level configuration
type ProductTypeConstants struct {
	ProductTypeID string                 `json:"productTypeId"`
	Name          string                 `json:"name,omitempty"`
	Constants     map[string]interface{} `json:"constants,omitempty"`
}

// MarketplaceConfig carries the credentials for one client marketplace,
// served by the catalog API (tokens are managed there, not here).
type MarketplaceConfig struct {
	Marketplace string `json:"marketplace"`
	ShopDomain  string `json:"shopDomain"`
	AccessToken string `json:"accessToken"`
	APIVersion  string `json:"apiVersion,omitempty"`
}

// VariantUpdate is one variant write-back pushed during bulk import
type VariantUpdate struct {
	ProductID string                 `json:"productId"`
	VariantID string                 `json:"variantId,omitempty"`
	SKU       string                 `json:"sku,omitempty"`
	Channel   string                 `json:"channel"`
	Data      map[string]interface{} `json:"data"`
}
