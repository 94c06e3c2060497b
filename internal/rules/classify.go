package rules

import (
	"fmt"
	"sort"
	"strings"

	"github.com/theirongolddev/atlas/internal/model"
)

// classify applies the first matching active provider rule to every document
// that has not been classified by a rule yet.
func (e *Engine) classify(st *model.State) []Change {
	active := make([]model.ProviderRule, 0, len(st.ProviderRules))
	for _, r := range st.ProviderRules {
		if r.Active {
			active = append(active, r)
		}
	}
	if len(active) == 0 {
		return nil
	}
	sort.SliceStable(active, func(i, j int) bool { return active[i].Order < active[j].Order })

	patterns := make([]string, len(active))
	for i, r := range active {
		patterns[i] = normalizeProvider(r.ProviderContains)
	}

	var changes []Change
	for i := range st.Documents {
		doc := &st.Documents[i]
		if doc.RuleApplied {
			continue
		}
		provider := normalizeProvider(doc.Provider)
		for j, r := range active {
			if patterns[j] == "" || !strings.Contains(provider, patterns[j]) {
				continue
			}
			doc.Category = r.Category
			doc.IsDeductible = r.IsDeductible
			switch r.PropertyID {
			case "":
			case model.AutoProperty:
				if pid := contractProperty(st, provider); pid != "" {
					doc.PropertyID = pid
				}
			default:
				doc.PropertyID = r.PropertyID
			}
			doc.RuleApplied = true
			changes = append(changes, Change{
				Pass:    PassClassify,
				Kind:    KindClassified,
				Message: fmt.Sprintf("%s → %s (rule %s)", doc.Provider, r.Category, r.ID),
				IDs:     []string{doc.ID, r.ID},
			})
			break
		}
	}
	return changes
}

// contractProperty resolves the "auto" token: the first contract whose
// provider appears in the normalized document provider.
func contractProperty(st *model.State, provider string) string {
	for _, c := range st.Contracts {
		p := normalizeProvider(c.Provider)
		if p != "" && strings.Contains(provider, p) {
			return c.PropertyID
		}
	}
	return ""
}
