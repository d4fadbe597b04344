package export

import (
	"sort"

	"catalog-sync-service/internal/models"
)

// OrderedImages is the per-variant image set handed to the row
// strategies. Tag-based channels consume ByTag (tag -> url, only tags
// present in the merged config); other channels consume the positional
// Flat list.
type OrderedImages struct {
	ByTag map[string]string
	Flat  []string
}

// OrderImages resolves the image set for one variant's row. Variant
// images take precedence over product images. Profile-level tag rules
// override client-level rules per matching key.
func OrderImages(channel models.ChannelConfig, product *models.CatalogProduct, variant *models.CatalogVariant, clientTags, profileTags models.ImageTagConfig) OrderedImages {
	images := collectImages(product, variant)

	out := OrderedImages{Flat: make([]string, 0, len(images))}
	for _, img := range images {
		out.Flat = append(out.Flat, img.URL)
	}

	if !channel.UsesImageTags {
		return out
	}

	merged := models.MergeImageTags(clientTags, profileTags)
	out.ByTag = make(map[string]string, len(merged))

	// tagged images claim their slot first
	for _, img := range images {
		for _, tag := range img.Tags {
			if _, configured := merged[tag]; !configured {
				continue
			}
			if _, taken := out.ByTag[tag]; !taken {
				out.ByTag[tag] = img.URL
			}
		}
	}

	// remaining configured tags fill positionally from untagged images
	slots := make([]string, 0, len(merged))
	for tag := range merged {
		if _, taken := out.ByTag[tag]; !taken {
			slots = append(slots, tag)
		}
	}
	sort.Slice(slots, func(i, j int) bool {
		if merged[slots[i]].Position != merged[slots[j]].Position {
			return merged[slots[i]].Position < merged[slots[j]].Position
		}
		return slots[i] < slots[j]
	})

	used := make(map[string]bool, len(out.ByTag))
	for _, url := range out.ByTag {
		used[url] = true
	}
	slot := 0
	for _, img := range images {
		if slot >= len(slots) {
			break
		}
		if used[img.URL] {
			continue
		}
		out.ByTag[slots[slot]] = img.URL
		used[img.URL] = true
		slot++
	}
	return out
}

// collectImages returns the variant's images when it has any, else the
// product's, position-sorted with input order as tiebreak.
func collectImages(product *models.CatalogProduct, variant *models.CatalogVariant) []models.CatalogImage {
	var src []models.CatalogImage
	if variant != nil && len(variant.Images) > 0 {
		src = variant.Images
	} else if product != nil {
		src = product.Images
	}
	out := make([]models.CatalogImage, len(src))
	copy(out, src)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Position < out[j].Position
	})
	return out
}
