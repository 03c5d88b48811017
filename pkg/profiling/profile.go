package profiling

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"trawell-be/pkg/identity"
)

// Profile is the traveler profile derived from a completed session.
// Preferences and Constraints are keyed by the field named in the
// question's extracts_to, e.g. "accommodation_style".
type Profile struct {
	Owner            identity.Identity   `json:"owner"`
	SourceSessionID  string              `json:"source_session_id"`
	Preferences      map[string]string   `json:"preferences"`
	Constraints      map[string][]string `json:"constraints"`
	PastDestinations []string            `json:"past_destinations"`
	WishlistRegions  []string            `json:"wishlist_regions"`
	Completeness     float64             `json:"completeness"`
	CompletedAt      *time.Time          `json:"completed_at,omitempty"`
}

func NewProfile(owner identity.Identity) *Profile {
	return &Profile{
		Owner:            owner,
		Preferences:      map[string]string{},
		Constraints:      map[string][]string{},
		PastDestinations: []string{},
		WishlistRegions:  []string{},
	}
}

// BuildProfile routes every accepted response to its extracts_to target.
// Responses that were never accepted are left out.
func BuildProfile(catalog *Catalog, s *Session) *Profile {
	p := NewProfile(s.Owner)
	p.SourceSessionID = s.ID
	p.Completeness = s.Completeness
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		p.CompletedAt = &t
	}

	for _, q := range catalog.Questions() {
		r, ok := s.Response(q.ID)
		if !ok || !r.Status.Accepted() || r.Value.IsZero() {
			continue
		}
		section, field := splitTarget(q)
		switch section {
		case "preferences":
			p.Preferences[field] = r.Value.String()
		case "constraints":
			p.Constraints[field] = nonNil(r.Value.Items())
		case "past_destinations":
			p.PastDestinations = nonNil(r.Value.Items())
		case "wishlist_regions":
			p.WishlistRegions = nonNil(r.Value.Items())
		default:
			p.Preferences[q.ID] = r.Value.String()
		}
	}
	return p
}

// splitTarget reads "section.field". A bare target is its own section and
// an empty one defaults to preferences keyed by question id.
func splitTarget(q QuestionDefinition) (string, string) {
	target := strings.TrimSpace(q.ExtractsTo)
	if target == "" {
		return "preferences", q.ID
	}
	section, field, found := strings.Cut(target, ".")
	if !found {
		return section, q.ID
	}
	return section, field
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}

// Preference returns a single preference value.
func (p *Profile) Preference(key string) string {
	if p == nil {
		return ""
	}
	return p.Preferences[key]
}

// Describe renders the profile as plain text for prompts.
func (p *Profile) Describe() string {
	if p == nil {
		return "(no profile)"
	}
	var b strings.Builder
	if len(p.Preferences) > 0 {
		b.WriteString("Preferences:\n")
		for _, k := range sortedKeys(p.Preferences) {
			fmt.Fprintf(&b, "- %s: %s\n", k, p.Preferences[k])
		}
	}
	if len(p.Constraints) > 0 {
		keys := make([]string, 0, len(p.Constraints))
		for k := range p.Constraints {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString("Constraints:\n")
		for _, k := range keys {
			fmt.Fprintf(&b, "- %s: %s\n", k, strings.Join(p.Constraints[k], ", "))
		}
	}
	if len(p.PastDestinations) > 0 {
		fmt.Fprintf(&b, "Past destinations: %s\n", strings.Join(p.PastDestinations, ", "))
	}
	if len(p.WishlistRegions) > 0 {
		fmt.Fprintf(&b, "Wishlist regions: %s\n", strings.Join(p.WishlistRegions, ", "))
	}
	if b.Len() == 0 {
		return "(no preferences recorded)"
	}
	return strings.TrimRight(b.String(), "\n")
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
