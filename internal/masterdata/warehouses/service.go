package warehouses

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoActiveWarehouse indicates no warehouse can receive stock operations.
var ErrNoActiveWarehouse = errors.New("no active warehouse configured")

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, filters ListFilters) ([]Warehouse, int, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id int64) (Warehouse, error) {
	if id <= 0 {
		return Warehouse{}, errors.New("invalid warehouse ID")
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, warehouse Warehouse) (Warehouse, error) {
	if err := s.validate(warehouse); err != nil {
		return Warehouse{}, err
	}
	return s.repo.Create(ctx, warehouse)
}

// Deactivate takes a warehouse out of the resolver's candidate set.
func (s *Service) Deactivate(ctx context.Context, id int64) error {
	if id <= 0 {
		return errors.New("invalid warehouse ID")
	}
	return s.repo.SetActive(ctx, id, false)
}

// Activate returns a warehouse to the resolver's candidate set.
func (s *Service) Activate(ctx context.Context, id int64) error {
	if id <= 0 {
		return errors.New("invalid warehouse ID")
	}
	return s.repo.SetActive(ctx, id, true)
}

// ResolveDefault picks the warehouse a stock deduction is applied against.
// An explicit ID from the caller wins without validation. Otherwise the
// first active warehouse by code ascending is used; there is no notion of a
// home warehouse per order or per item.
func (s *Service) ResolveDefault(ctx context.Context, explicitID *int64) (int64, error) {
	if explicitID != nil && *explicitID > 0 {
		return *explicitID, nil
	}
	active, err := s.repo.ListActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("list active warehouses: %w", err)
	}
	if len(active) == 0 {
		return 0, ErrNoActiveWarehouse
	}
	return active[0].ID, nil
}
