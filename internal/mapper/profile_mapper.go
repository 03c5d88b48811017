package mapper

import (
	"time"

	"trawell-be/internal/entity"
	"trawell-be/internal/model"
	"trawell-be/pkg/identity"
	"trawell-be/pkg/profiling"

	"gorm.io/datatypes"
)

type ProfileMapper struct{}

func NewProfileMapper() *ProfileMapper {
	return &ProfileMapper{}
}

func (m *ProfileMapper) ToEntity(p *model.UserProfile) *entity.UserProfile {
	if p == nil {
		return nil
	}

	var updatedAt *time.Time
	if !p.UpdatedAt.IsZero() {
		t := p.UpdatedAt
		updatedAt = &t
	}

	return &entity.UserProfile{
		Id:               p.Id,
		OwnerKey:         p.OwnerKey,
		UserId:           p.UserId,
		SourceSessionId:  p.SourceSessionId,
		Preferences:      p.Preferences.Data(),
		Constraints:      p.Constraints.Data(),
		PastDestinations: []string(p.PastDestinations),
		WishlistRegions:  []string(p.WishlistRegions),
		Completeness:     p.Completeness,
		Summary:          p.Summary,
		CompletedAt:      p.CompletedAt,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        updatedAt,
	}
}

func (m *ProfileMapper) ToModel(p *entity.UserProfile) *model.UserProfile {
	if p == nil {
		return nil
	}

	var updatedAt time.Time
	if p.UpdatedAt != nil {
		updatedAt = *p.UpdatedAt
	}

	return &model.UserProfile{
		Id:               p.Id,
		OwnerKey:         p.OwnerKey,
		UserId:           p.UserId,
		SourceSessionId:  p.SourceSessionId,
		Preferences:      datatypes.NewJSONType(nonNilStrings(p.Preferences)),
		Constraints:      datatypes.NewJSONType(nonNilLists(p.Constraints)),
		PastDestinations: datatypes.JSONSlice[string](p.PastDestinations),
		WishlistRegions:  datatypes.JSONSlice[string](p.WishlistRegions),
		Completeness:     p.Completeness,
		Summary:          p.Summary,
		CompletedAt:      p.CompletedAt,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        updatedAt,
	}
}

// FromDomain keeps Id and Summary zero; the repository fills them on upsert.
func (m *ProfileMapper) FromDomain(p *profiling.Profile) *entity.UserProfile {
	if p == nil {
		return nil
	}
	return &entity.UserProfile{
		OwnerKey:         p.Owner.Key(),
		UserId:           p.Owner.UserIDPtr(),
		SourceSessionId:  p.SourceSessionID,
		Preferences:      p.Preferences,
		Constraints:      p.Constraints,
		PastDestinations: p.PastDestinations,
		WishlistRegions:  p.WishlistRegions,
		Completeness:     p.Completeness,
		CompletedAt:      p.CompletedAt,
	}
}

func (m *ProfileMapper) ToDomain(e *entity.UserProfile) (*profiling.Profile, error) {
	if e == nil {
		return nil, nil
	}
	owner, err := identity.Parse(e.OwnerKey)
	if err != nil {
		return nil, err
	}
	p := profiling.NewProfile(owner)
	p.SourceSessionID = e.SourceSessionId
	p.Completeness = e.Completeness
	p.CompletedAt = e.CompletedAt
	for k, v := range e.Preferences {
		p.Preferences[k] = v
	}
	for k, v := range e.Constraints {
		p.Constraints[k] = v
	}
	if e.PastDestinations != nil {
		p.PastDestinations = e.PastDestinations
	}
	if e.WishlistRegions != nil {
		p.WishlistRegions = e.WishlistRegions
	}
	return p, nil
}

func nonNilStrings(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

func nonNilLists(m map[string][]string) map[string][]string {
	if m == nil {
		return map[string][]string{}
	}
	return m
}
