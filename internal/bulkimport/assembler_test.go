package bulkimport

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssembleOutOfOrderChildren(t *testing.T) {
	stream := strings.Join([]string{
		`{"id":"gid://shopify/ProductVariant/11","__parentId":"gid://shopify/Product/1","sku":"SKU-1","price":"19.90"}`,
		`{"id":"gid://shopify/Product/1","title":"Basic Tee","handle":"basic-tee","productType":"Shirts","vendor":"Acme"}`,
		`{"id":"gid://shopify/ProductImage/21","__parentId":"gid://shopify/Product/1","url":"https://cdn/img1.jpg","altText":"front"}`,
	}, "\n")

	products, err := NewAssembler().Assemble(strings.NewReader(stream))
	require.NoError(t, err)
	require.Len(t, products, 1)

	p := products[0]
	assert.Equal(t, "basic-tee", p.Handle)
	assert.Equal(t, "Shirts", p.ProductType)

	require.Len(t, p.Variants, 1)
	assert.Equal(t, "SKU-1", p.Variants[0].SKU)
	assert.Equal(t, "19.90", p.Variants[0].Price)

	require.Len(t, p.Images, 1)
	assert.Equal(t, "https://cdn/img1.jpg", p.Images[0].URL)
	assert.Equal(t, "front", p.Images[0].AltText)
}

func TestAssembleImageWithNullAltText(t *testing.T) {
	stream := strings.Join([]string{
		`{"id":"p-1","handle":"tee","title":"Tee"}`,
		`{"id":"img-1","__parentId":"p-1","url":"https://cdn/img.jpg","altText":null}`,
	}, "\n")

	products, err := NewAssembler().Assemble(strings.NewReader(stream))
	require.NoError(t, err)
	require.Len(t, products, 1)

	require.Len(t, products[0].Images, 1)
	assert.Equal(t, "https://cdn/img.jpg", products[0].Images[0].URL)
	assert.Equal(t, "", products[0].Images[0].AltText)
}

func TestAssemblePreservesFirstSeenOrder(t *testing.T) {
	stream := strings.Join([]string{
		`{"id":"p-b","title":"B","handle":"b"}`,
		`{"id":"p-a","title":"A","handle":"a"}`,
		`{"id":"v-1","__parentId":"p-a","sku":"A-1"}`,
	}, "\n")

	products, err := NewAssembler().Assemble(strings.NewReader(stream))
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "p-b", products[0].ID)
	assert.Equal(t, "p-a", products[1].ID)
	assert.Len(t, products[1].Variants, 1)
}

func TestAssembleCountsMalformedLines(t *testing.T) {
	a := NewAssembler()
	stream := strings.Join([]string{
		`{"id":"p-1","handle":"ok"}`,
		`{not json`,
		``,
		`{"id":"v-1","__parentId":"p-1","sku":"S-1"}`,
	}, "\n")

	products, err := a.Assemble(strings.NewReader(stream))
	require.NoError(t, err)
	assert.Len(t, products, 1)
	assert.Equal(t, 1, a.MalformedLines())
	assert.Equal(t, 3, a.TotalLines(), "empty lines are not counted")
}

func TestAssembleIgnoresUnknownShapes(t *testing.T) {
	a := NewAssembler()
	stream := strings.Join([]string{
		`{"id":"x-1","somethingElse":true}`,
		`{"id":"p-1","handle":"tee"}`,
	}, "\n")

	products, err := a.Assemble(strings.NewReader(stream))
	require.NoError(t, err)
	assert.Len(t, products, 1)
	assert.Equal(t, 0, a.MalformedLines())
}

func TestAssembleOrphanChildrenBecomeProducts(t *testing.T) {
	stream := strings.Join([]string{
		`{"id":"p-1","handle":"tee","title":"Tee"}`,
		`{"id":"v-9","__parentId":"p-missing","sku":"ORPHAN"}`,
	}, "\n")

	products, err := NewAssembler().Assemble(strings.NewReader(stream))
	require.NoError(t, err)
	require.Len(t, products, 2)

	assert.Equal(t, "p-1", products[0].ID)
	orphan := products[1]
	assert.Equal(t, "p-missing", orphan.ID)
	require.Len(t, orphan.Variants, 1)
	assert.Equal(t, "ORPHAN", orphan.Variants[0].SKU)
}

func TestAssembleLastProductLineWins(t *testing.T) {
	stream := strings.Join([]string{
		`{"id":"p-1","handle":"tee","title":"Old"}`,
		`{"id":"p-1","handle":"tee","title":"New"}`,
	}, "\n")

	products, err := NewAssembler().Assemble(strings.NewReader(stream))
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "New", products[0].Title)
}
