package profiling

import (
	"testing"

	"trawell-be/pkg/identity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCatalog_Embedded(t *testing.T) {
	c := embeddedCatalog(t)

	assert.Equal(t, 13, c.Len())
	assert.NotEmpty(t, c.Intro())
	assert.NotEmpty(t, c.Completion())

	first, ok := c.At(0)
	require.True(t, ok)
	assert.Equal(t, "traveler_type", first.ID)
	assert.Equal(t, DefaultMinAnswerTokens, first.MinAnswerTokens)
	assert.Equal(t, DefaultMaxFollowUps, first.MaxFollowUps)

	_, ok = c.At(c.Len())
	assert.False(t, ok)

	for _, q := range c.Questions() {
		if q.ValueKind == KindEnum {
			assert.Contains(t, q.AllowedValues, q.Default, q.ID)
		}
	}
}

func TestLoadCatalog_Rejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"Empty", "questions: []"},
		{"MissingID", "questions:\n  - question: hi\n"},
		{"DuplicateID", "questions:\n  - id: a\n  - id: a\n"},
		{"UnknownKind", "questions:\n  - id: a\n    value_kind: blob\n"},
		{"EnumWithoutValues", "questions:\n  - id: a\n    value_kind: enum\n"},
		{"BadYAML", "questions: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadCatalog([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestCatalog_AccessorsReturnCopies(t *testing.T) {
	c := embeddedCatalog(t)

	qs := c.Questions()
	qs[0].ID = "mutated"
	qs[0].FollowUpTemplates[0] = "mutated"

	q, _ := c.At(0)
	assert.Equal(t, "traveler_type", q.ID)
	assert.NotEqual(t, "mutated", q.FollowUpTemplates[0])

	tests := []struct {
		name   string
		lookup func() (QuestionDefinition, bool)
	}{
		{"At", func() (QuestionDefinition, bool) { return c.At(0) }},
		{"ByID", func() (QuestionDefinition, bool) { return c.ByID("traveler_type") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.lookup()
			require.True(t, ok)
			got.AllowedValues[0] = "mutated"
			got.RequiredInfo[0] = "mutated"
			got.ExamplesIfUnclear[0] = "mutated"
			got.FollowUpTemplates[0] = "mutated"

			fresh, _ := c.ByID("traveler_type")
			assert.Equal(t, []string{"explorer", "relaxer", "mixed"}, fresh.AllowedValues)
			assert.NotEqual(t, "mutated", fresh.RequiredInfo[0])
			assert.NotEqual(t, "mutated", fresh.ExamplesIfUnclear[0])
			assert.NotEqual(t, "mutated", fresh.FollowUpTemplates[0])
		})
	}
}

func TestBuildProfile_RoutesByTarget(t *testing.T) {
	c := embeddedCatalog(t)
	owner := identity.User(testUserID)
	s := &Session{
		ID:           "prof_route",
		Owner:        owner,
		Status:       StatusCompleted,
		Completeness: 1,
		Responses: []*Response{
			{QuestionID: "traveler_type", Status: Complete, Value: EnumValue("explorer")},
			{QuestionID: "accommodation", Status: Sufficient, Value: EnumValue("hostel")},
			{QuestionID: "environment", Status: Insufficient, Value: EnumValue("city")},
			{QuestionID: "dietary_restrictions", Status: Sufficient, Value: ListValue(nil)},
			{QuestionID: "past_destinations", Status: Sufficient, Value: ListValue([]string{"Japan", "Peru"})},
			{QuestionID: "wishlist_regions", Status: Complete, Value: ListValue([]string{"Patagonia"})},
		},
	}

	p := BuildProfile(c, s)
	assert.Equal(t, owner, p.Owner)
	assert.Equal(t, "explorer", p.Preference("traveler_type"))
	assert.Equal(t, "hostel", p.Preferences["accommodation_style"])
	_, hasEnv := p.Preferences["environment"]
	assert.False(t, hasEnv, "unaccepted answers stay out of the profile")
	assert.Equal(t, []string{}, p.Constraints["dietary_restrictions"])
	assert.Equal(t, []string{"Japan", "Peru"}, p.PastDestinations)
	assert.Equal(t, []string{"Patagonia"}, p.WishlistRegions)
}
