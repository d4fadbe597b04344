package bulkimport

import (
	"bufio"
	"encoding/json"
	"io"
)

// Product is one assembled Shopify product with its ordered children
type Product struct {
	ID          string    `json:"id"`
	Title       string    `json:"title,omitempty"`
	Handle      string    `json:"handle,omitempty"`
	ProductType string    `json:"productType,omitempty"`
	Vendor      string    `json:"vendor,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	Variants    []Variant `json:"variants,omitempty"`
	Images      []Image   `json:"images,omitempty"`
}

// Variant is one Shopify variant line
type Variant struct {
	ID      string `json:"id"`
	SKU     string `json:"sku"`
	Title   string `json:"title,omitempty"`
	Price   string `json:"price,omitempty"`
	Barcode string `json:"barcode,omitempty"`
}

// Image is one Shopify image line
type Image struct {
	ID      string `json:"id"`
	URL     string `json:"url"`
	AltText string `json:"altText"`
}

// rawLine is the superset of fields a bulk-operation JSONL line can
// carry. Shopify's bulk result interleaves products, variants and
// images in one stream; the record kind is inferred from which fields
// are present, not from an explicit discriminator.
type rawLine struct {
	ID          string    `json:"id"`
	ParentID    string    `json:"__parentId"`
	Title       string    `json:"title"`
	Handle      *string   `json:"handle"`
	ProductType *string   `json:"productType"`
	Vendor      string    `json:"vendor"`
	Tags        []string  `json:"tags"`
	SKU         *string   `json:"sku"`
	Price       string    `json:"price"`
	Barcode     string    `json:"barcode"`
	URL         *string   `json:"url"`
	AltText     *string   `json:"altText"`
}

type pendingChild struct {
	variant *Variant
	image   *Image
}

// Assembler reassembles the product graph from a bulk-operation JSONL
// stream. Children arriving before their parent are buffered and
// attached on a final flush; output preserves first-seen parent order.
type Assembler struct {
	products  map[string]*Product
	order     []string
	pending   map[string][]pendingChild
	malformed int
	lines     int
}

func NewAssembler() *Assembler {
	return &Assembler{
		products: make(map[string]*Product),
		pending:  make(map[string][]pendingChild),
	}
}

// Feed classifies and ingests one JSONL line. Malformed JSON is
// skipped and counted; unrecognized shapes are ignored.
func (a *Assembler) Feed(line []byte) {
	if len(line) == 0 {
		return
	}
	a.lines++

	var raw rawLine
	if err := json.Unmarshal(line, &raw); err != nil {
		a.malformed++
		return
	}

	switch {
	case raw.Handle != nil || raw.ProductType != nil:
		a.addProduct(raw)
	case raw.ParentID != "" && raw.SKU != nil:
		a.addChild(raw.ParentID, pendingChild{variant: &Variant{
			ID:      raw.ID,
			SKU:     *raw.SKU,
			Title:   raw.Title,
			Price:   raw.Price,
			Barcode: raw.Barcode,
		}})
	case raw.ParentID != "" && raw.URL != nil:
		// Shopify emits "altText":null for images without alt text
		alt := ""
		if raw.AltText != nil {
			alt = *raw.AltText
		}
		a.addChild(raw.ParentID, pendingChild{image: &Image{
			ID:      raw.ID,
			URL:     *raw.URL,
			AltText: alt,
		}})
	}
}

func (a *Assembler) addProduct(raw rawLine) {
	p, ok := a.products[raw.ID]
	if !ok {
		p = &Product{ID: raw.ID}
		a.products[raw.ID] = p
		a.order = append(a.order, raw.ID)
	}
	p.Title = raw.Title
	if raw.Handle != nil {
		p.Handle = *raw.Handle
	}
	if raw.ProductType != nil {
		p.ProductType = *raw.ProductType
	}
	p.Vendor = raw.Vendor
	if len(raw.Tags) > 0 {
		p.Tags = raw.Tags
	}

	// attach any children that arrived first
	for _, child := range a.pending[raw.ID] {
		a.attach(p, child)
	}
	delete(a.pending, raw.ID)
}

func (a *Assembler) addChild(parentID string, child pendingChild) {
	if p, ok := a.products[parentID]; ok {
		a.attach(p, child)
		return
	}
	a.pending[parentID] = append(a.pending[parentID], child)
}

func (a *Assembler) attach(p *Product, child pendingChild) {
	if child.variant != nil {
		p.Variants = append(p.Variants, *child.variant)
	}
	if child.image != nil {
		p.Images = append(p.Images, *child.image)
	}
}

// Assemble consumes a full JSONL stream. Bulk result lines can be
// large, so the scanner buffer is widened well past the default.
func (a *Assembler) Assemble(r io.Reader) ([]*Product, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		a.Feed(scanner.Bytes())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return a.Products(), nil
}

// Products flushes remaining buffered children and returns the
// assembled products in first-seen order. Children whose parent never
// appeared become orphan products so no data silently disappears.
func (a *Assembler) Products() []*Product {
	for parentID, children := range a.pending {
		p := &Product{ID: parentID}
		for _, child := range children {
			a.attach(p, child)
		}
		a.products[parentID] = p
		a.order = append(a.order, parentID)
		delete(a.pending, parentID)
	}

	out := make([]*Product, 0, len(a.order))
	for _, id := range a.order {
		out = append(out, a.products[id])
	}
	return out
}

// MalformedLines counts skipped undecodable lines
func (a *Assembler) MalformedLines() int {
	return a.malformed
}

// TotalLines counts all non-empty lines seen
func (a *Assembler) TotalLines() int {
	return a.lines
}
