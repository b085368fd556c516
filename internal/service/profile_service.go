package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/ecofinds/internal/domain"
	"github.com/fjod/ecofinds/internal/repository"
)

type ProfileService struct {
	repo repository.ProfileRepository
	now  func() time.Time
}

func NewProfileService(repo repository.ProfileRepository) *ProfileService {
	return &ProfileService{
		repo: repo,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (s *ProfileService) GetProfile(ctx context.Context, uid string) (*domain.Profile, error) {
	p, err := s.repo.GetProfile(ctx, uid)
	if errors.Is(err, repository.ErrProfileNotFound) {
		return nil, domain.NotFoundf("profile %s", uid)
	}
	if err != nil {
		return nil, readErr("get profile", err)
	}
	return p, nil
}

func (s *ProfileService) CreateProfile(ctx context.Context, id domain.Identity) (*domain.Profile, error) {
	if id.UID == "" {
		return nil, domain.InvalidInputf("uid is required")
	}
	now := s.now()
	p := &domain.Profile{
		UID:         id.UID,
		Email:       id.Email,
		DisplayName: id.DisplayName,
		PhotoURL:    id.PhotoURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.CreateProfile(ctx, p); err != nil {
		if errors.Is(err, repository.ErrProfileExists) {
			return nil, fmt.Errorf("%w: profile %s already exists", domain.ErrInvalidInput, id.UID)
		}
		return nil, writeErr("create profile", err)
	}
	return p, nil
}

func (s *ProfileService) UpdateProfile(ctx context.Context, uid string, upd domain.ProfileUpdate) (*domain.Profile, error) {
	if upd.DisplayName == nil && upd.PhotoURL == nil {
		return nil, domain.InvalidInputf("no fields to update")
	}
	p, err := s.repo.UpdateProfile(ctx, uid, upd, s.now())
	if errors.Is(err, repository.ErrProfileNotFound) {
		return nil, domain.NotFoundf("profile %s", uid)
	}
	if err != nil {
		return nil, writeErr("update profile", err)
	}
	return p, nil
}

// GetOrCreateProfile is the sign-in path: the first verified identity creates the profile.
func (s *ProfileService) GetOrCreateProfile(ctx context.Context, id domain.Identity) (*domain.Profile, error) {
	p, err := s.repo.GetProfile(ctx, id.UID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, repository.ErrProfileNotFound) {
		return nil, readErr("get profile", err)
	}

	p, err = s.CreateProfile(ctx, id)
	if errors.Is(err, domain.ErrInvalidInput) && id.UID != "" {
		// lost a race with a concurrent sign-in
		return s.GetProfile(ctx, id.UID)
	}
	return p, err
}
