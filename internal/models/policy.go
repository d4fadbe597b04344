package models

// ClientPolicy describes per-client override behavior for the row
// builder. Policies are injected configuration; unknown clients get
// DefaultClientPolicy.
type ClientPolicy struct {
	// ForceNullWhenBaseEmpty lists attribute values whose AI-enriched
	// cell must be nulled when the base attribute resolves empty.
	ForceNullWhenBaseEmpty []string `json:"forceNullWhenBaseEmpty,omitempty"`

	// PreferCatalogValue makes ai/ai-assistant attributes prefer the
	// catalog-normalized value over the channel enrichment when present.
	PreferCatalogValue bool `json:"preferCatalogValue,omitempty"`

	// NormalizeNATokens nulls values carrying a literal NA token.
	NormalizeNATokens bool `json:"normalizeNATokens,omitempty"`

	// MaxGroupImages bounds per-image physical rows in handle grouping.
	MaxGroupImages int `json:"maxGroupImages,omitempty"`
}

// DefaultMaxGroupImages bounds image rows when a policy leaves it unset
const DefaultMaxGroupImages = 9

// DefaultClientPolicy is applied to clients without an explicit policy
var DefaultClientPolicy = ClientPolicy{
	MaxGroupImages: DefaultMaxGroupImages,
}

// ForcesNullFor reports whether attr is in the force-null list
func (p ClientPolicy) ForcesNullFor(attr string) bool {
	for _, a := range p.ForceNullWhenBaseEmpty {
		if a == attr {
			return true
		}
	}
	return false
}

// PolicyTable maps client ids to their policies
type PolicyTable map[string]ClientPolicy

// For returns the policy for a client, defaulting unknown clients
func (t PolicyTable) For(clientID string) ClientPolicy {
	if p, ok := t[clientID]; ok {
		if p.MaxGroupImages <= 0 {
			p.MaxGroupImages = DefaultMaxGroupImages
		}
		return p
	}
	return DefaultClientPolicy
}
