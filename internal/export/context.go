package export

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"catalog-sync-service/internal/models"
)

// RowContext is the flat evaluation context one variant's row is built
// from. Keys carry optional origin suffixes: attr#value (raw),
// attr#catalogus (catalog-normalized), attr#<channel> (channel
// enrichment). The bare key holds the effective value. The context is
// built per variant and discarded once the row is produced.
type RowContext map[string]interface{}

// Lookup returns the value for a key and whether the key exists
func (c RowContext) Lookup(key string) (interface{}, bool) {
	v, ok := c[key]
	return v, ok
}

// String returns the stringified value for a key, empty when absent
func (c RowContext) String(key string) string {
	return Stringify(c[key])
}

// FinalRow is one produced output row: column key -> scalar or nil
type FinalRow map[string]interface{}

// Clone returns a shallow copy of the row
func (r FinalRow) Clone() FinalRow {
	out := make(FinalRow, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Stringify renders a context value the way it appears in a cell.
// nil becomes the empty string; floats drop trailing zeros.
func Stringify(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

// IsEmptyValue reports whether a value renders as an empty cell
func IsEmptyValue(v interface{}) bool {
	if v == nil {
		return true
	}
	return strings.TrimSpace(Stringify(v)) == ""
}

var htmlTagPattern = regexp.MustCompile(`<[^>]*>`)

// StripHTML removes HTML tags from description-type values
func StripHTML(s string) string {
	return strings.TrimSpace(htmlTagPattern.ReplaceAllString(s, ""))
}

// FlattenConstants flattens a possibly nested constants object into
// underscore-joined scalar keys, e.g. shipping.weight -> shipping_weight.
func FlattenConstants(constants map[string]interface{}) RowContext {
	out := make(RowContext, len(constants))
	flattenInto(out, "", constants)
	return out
}

func flattenInto(dst RowContext, prefix string, src map[string]interface{}) {
	for key, value := range src {
		full := key
		if prefix != "" {
			full = prefix + "_" + key
		}
		if nested, ok := value.(map[string]interface{}); ok {
			flattenInto(dst, full, nested)
			continue
		}
		dst[full] = value
	}
}

// BuildRowContext merges the layers one variant's row evaluates
// against. Later layers win: product-type constants, client constants,
// product attributes, variant attributes, then identity metadata.
func BuildRowContext(channel string, product *models.CatalogProduct, variant *models.CatalogVariant, clientCtx, productTypeCtx RowContext) RowContext {
	ctx := make(RowContext, len(clientCtx)+len(productTypeCtx)+4*len(product.Attributes))

	for k, v := range productTypeCtx {
		ctx[k] = v
	}
	for k, v := range clientCtx {
		ctx[k] = v
	}

	mergeAttributes(ctx, product.Attributes)
	if variant != nil {
		mergeAttributes(ctx, variant.Attributes)
	}

	ctx["channel"] = channel
	ctx["product_id"] = product.ID
	ctx["product_sku"] = product.SKU
	if variant != nil {
		ctx["variant_id"] = variant.ID
		ctx["variant_sku"] = variant.SKU
	}
	return ctx
}

func mergeAttributes(ctx RowContext, attrs map[string]models.AttributeValue) {
	for key, attr := range attrs {
		if attr.Value != nil {
			ctx[key+"#value"] = attr.Value
		}
		if attr.Catalogus != nil {
			ctx[key+"#catalogus"] = attr.Catalogus
		}
		for ch, v := range attr.Channels {
			if v != nil {
				ctx[key+"#"+ch] = v
			}
		}
		if eff := attr.Effective(); eff != nil {
			ctx[key] = eff
		}
	}
}
