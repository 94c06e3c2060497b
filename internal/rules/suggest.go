package rules

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/cases"

	"github.com/theirongolddev/atlas/internal/model"
)

// maxProviderDistance is the normalized edit distance below which two
// providers are considered the same supplier.
const maxProviderDistance = 0.4

// Suggestion proposes a provider rule for documents no rule classifies yet.
type Suggestion struct {
	ProviderContains string   `json:"provider_contains"`
	Category         string   `json:"category"`
	IsDeductible     bool     `json:"is_deductible"`
	PropertyID       string   `json:"property_id,omitempty"`
	BasedOn          string   `json:"based_on"` // provider of the classified document it copies
	Distance         float64  `json:"distance"`
	DocumentIDs      []string `json:"document_ids"`
}

// Rule converts the suggestion into an active rule placed after order.
func (s Suggestion) Rule(id string, order int) model.ProviderRule {
	return model.ProviderRule{
		ID:               id,
		ProviderContains: s.ProviderContains,
		Category:         s.Category,
		IsDeductible:     s.IsDeductible,
		PropertyID:       s.PropertyID,
		Active:           true,
		Order:            order,
	}
}

// Suggest groups unclassified documents by provider and, for each group,
// looks for the closest classified document. Groups without a close enough
// match produce no suggestion. Results are sorted by provider.
func Suggest(st model.State) []Suggestion {
	var classified []model.Document
	groups := map[string][]model.Document{}
	var order []string

	for _, d := range st.Documents {
		if d.Category != "" {
			classified = append(classified, d)
			continue
		}
		key := normalizeProvider(d.Provider)
		if key == "" {
			continue
		}
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], d)
	}

	var out []Suggestion
	for _, key := range order {
		docs := groups[key]
		best, dist := closestProvider(key, classified)
		if best == nil {
			continue
		}
		s := Suggestion{
			ProviderContains: key,
			Category:         best.Category,
			IsDeductible:     best.IsDeductible,
			PropertyID:       best.PropertyID,
			BasedOn:          best.Provider,
			Distance:         dist,
		}
		for _, d := range docs {
			s.DocumentIDs = append(s.DocumentIDs, d.ID)
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProviderContains < out[j].ProviderContains })
	return out
}

func closestProvider(key string, classified []model.Document) (*model.Document, float64) {
	var best *model.Document
	bestDist := maxProviderDistance
	for i := range classified {
		d := providerDistance(key, normalizeProvider(classified[i].Provider))
		if d < bestDist {
			best = &classified[i]
			bestDist = d
		}
	}
	return best, bestDist
}

// providerDistance is the Levenshtein distance divided by the longer length.
func providerDistance(a, b string) float64 {
	if a == "" || b == "" {
		return 1
	}
	dist := levenshtein.ComputeDistance(a, b)
	maxlen := len([]rune(a))
	if n := len([]rune(b)); n > maxlen {
		maxlen = n
	}
	return float64(dist) / float64(maxlen)
}

// normalizeProvider folds case the same way classify does and collapses
// whitespace, so the key doubles as the suggested rule pattern.
func normalizeProvider(s string) string {
	return strings.Join(strings.Fields(cases.Fold().String(s)), " ")
}
