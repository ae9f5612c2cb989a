package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/paddockhq/paddock/internal/auth/domain"
	"github.com/paddockhq/paddock/internal/auth/store"
	"github.com/paddockhq/paddock/pkg/idx"
)

var (
	ErrFarmNotFound = errors.New("farm_not_found")
	ErrFarmInvalid  = errors.New("farm_invalid")
)

// FarmService manages farm records inside a single tenant boundary. The
// TenantContext on every call is authoritative; a farm id from another
// tenant behaves exactly like one that doesn't exist.
type FarmService struct {
	Store store.Store

	// Now is the injected clock. Nil means time.Now.
	Now func() time.Time
}

func (s *FarmService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// Create registers a farm under the tenant in tc.
func (s *FarmService) Create(ctx context.Context, tc domain.TenantContext, name, location string) (*domain.Farm, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrFarmInvalid
	}

	now := s.now()
	f := domain.Farm{
		ID:        idx.New().String(),
		OwnerID:   tc.OwnerID,
		Name:      name,
		Location:  strings.TrimSpace(location),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.Store.Farms().CreateFarm(ctx, tc, f); err != nil {
		return nil, err
	}
	return &f, nil
}

// Get fetches one farm inside the tenant boundary.
func (s *FarmService) Get(ctx context.Context, tc domain.TenantContext, farmID string) (*domain.Farm, error) {
	f, err := s.Store.Farms().GetFarmByID(ctx, tc, farmID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrFarmNotFound
		}
		return nil, err
	}
	return &f, nil
}

// List returns the tenant's farms, newest first.
func (s *FarmService) List(ctx context.Context, tc domain.TenantContext) ([]domain.Farm, error) {
	return s.Store.Farms().ListFarms(ctx, tc)
}

// Delete soft-deletes a farm. Deleting a farm that isn't visible in this
// tenant is ErrFarmNotFound, never a cross-tenant effect.
func (s *FarmService) Delete(ctx context.Context, tc domain.TenantContext, farmID string) error {
	if err := s.Store.Farms().SoftDeleteFarm(ctx, tc, farmID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrFarmNotFound
		}
		return err
	}
	return nil
}
