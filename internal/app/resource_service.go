package app

import (
	"context"

	"github.com/cimillas/rentbook/internal/clock"
	"github.com/cimillas/rentbook/internal/domain"
)

type ResourceRepository interface {
	CreateResource(ctx context.Context, resource domain.Resource) error
	ListResources(ctx context.Context) ([]domain.Resource, error)
}

// ResourceService covers the listing surface the booking engine needs for
// fixtures and administration. Full listing CRUD lives elsewhere.
type ResourceService struct {
	repo  ResourceRepository
	clock clock.Clock
}

func NewResourceService(repo ResourceRepository, clk clock.Clock) *ResourceService {
	return &ResourceService{
		repo:  repo,
		clock: clk,
	}
}

type CreateResourceInput struct {
	SellerID    string
	Name        string
	PricePerDay int64
}

func (s *ResourceService) CreateResource(ctx context.Context, in CreateResourceInput) (domain.Resource, error) {
	if in.SellerID == "" {
		return domain.Resource{}, domain.ErrInvalidID
	}
	if in.Name == "" {
		return domain.Resource{}, domain.ErrResourceNameRequired
	}
	if in.PricePerDay <= 0 {
		return domain.Resource{}, domain.ErrInvalidPrice
	}

	resource := domain.Resource{
		ID:          newID(),
		SellerID:    in.SellerID,
		Name:        in.Name,
		PricePerDay: in.PricePerDay,
		CreatedAt:   s.clock.Now(),
	}
	if err := s.repo.CreateResource(ctx, resource); err != nil {
		return domain.Resource{}, err
	}
	return resource, nil
}

func (s *ResourceService) ListResources(ctx context.Context) ([]domain.Resource, error) {
	return s.repo.ListResources(ctx)
}
