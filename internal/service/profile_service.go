package service

import (
	"context"

	"trawell-be/internal/dto"
	"trawell-be/internal/entity"
	"trawell-be/internal/mapper"
	"trawell-be/internal/repository/specification"
	"trawell-be/internal/repository/unitofwork"
	"trawell-be/pkg/identity"
	"trawell-be/pkg/profiling"
)

type IProfileService interface {
	GetProfile(ctx context.Context, owner identity.Identity) (*dto.ProfileResponse, error)
	// Load returns the owner's stored profile or ErrProfileNotFound.
	Load(ctx context.Context, owner identity.Identity) (*profiling.Profile, error)
}

type profileService struct {
	uowFactory unitofwork.RepositoryFactory
	mapper     *mapper.ProfileMapper
}

func NewProfileService(uowFactory unitofwork.RepositoryFactory) IProfileService {
	return &profileService{
		uowFactory: uowFactory,
		mapper:     mapper.NewProfileMapper(),
	}
}

func (s *profileService) GetProfile(ctx context.Context, owner identity.Identity) (*dto.ProfileResponse, error) {
	stored, err := s.find(ctx, owner)
	if err != nil {
		return nil, err
	}
	profile, err := s.mapper.ToDomain(stored)
	if err != nil {
		return nil, err
	}
	return toProfileResponse(profile, stored.Summary), nil
}

func (s *profileService) Load(ctx context.Context, owner identity.Identity) (*profiling.Profile, error) {
	stored, err := s.find(ctx, owner)
	if err != nil {
		return nil, err
	}
	return s.mapper.ToDomain(stored)
}

func (s *profileService) find(ctx context.Context, owner identity.Identity) (*entity.UserProfile, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	stored, err := uow.UserProfileRepository().FindOne(ctx, specification.ByOwnerKey{OwnerKey: owner.Key()})
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, ErrProfileNotFound
	}
	return stored, nil
}
