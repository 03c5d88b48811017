package profiling

import (
	"testing"

	"trawell-be/pkg/identity"

	"github.com/stretchr/testify/assert"
)

func TestProfile_Describe(t *testing.T) {
	p := NewProfile(identity.Anonymous("anon_x"))
	assert.Equal(t, "(no preferences recorded)", p.Describe())

	p.Preferences["traveler_type"] = "explorer"
	p.Preferences["accommodation_style"] = "boutique"
	p.Constraints["dietary_restrictions"] = []string{"vegetarian", "no nuts"}
	p.WishlistRegions = []string{"Japan"}

	want := "Preferences:\n" +
		"- accommodation_style: boutique\n" +
		"- traveler_type: explorer\n" +
		"Constraints:\n" +
		"- dietary_restrictions: vegetarian, no nuts\n" +
		"Wishlist regions: Japan"
	assert.Equal(t, want, p.Describe())

	var nilProfile *Profile
	assert.Equal(t, "(no profile)", nilProfile.Describe())
}
