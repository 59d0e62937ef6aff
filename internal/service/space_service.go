package service

import (
	"context"
	"errors"
	"strings"

	"github.com/siaa/storage-rental/internal/model"
	"github.com/siaa/storage-rental/internal/repository"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// SpaceInput holds the provider-editable fields of a space.  Nil pointers
// leave the stored value unchanged on update and select the default on
// create.
type SpaceInput struct {
	Title       string
	Description string
	SpaceType   string
	SizeSqm     float64
	City        string
	Address     string
	Rates       model.Rates
	IsAvailable *bool
	Status      *model.SpaceStatus
}

// SpaceService manages listings and the public search.
type SpaceService struct {
	spaces SpaceRepository
}

// NewSpaceService wires the service.
func NewSpaceService(spaces SpaceRepository) *SpaceService {
	return &SpaceService{spaces: spaces}
}

func validateSpace(in *SpaceInput) error {
	in.Title = strings.TrimSpace(in.Title)
	in.SpaceType = strings.TrimSpace(in.SpaceType)
	in.City = strings.TrimSpace(in.City)
	in.Address = strings.TrimSpace(in.Address)
	switch {
	case in.Title == "":
		return newError(ErrValidation, "title is required")
	case in.SpaceType == "":
		return newError(ErrValidation, "space_type is required")
	case in.City == "":
		return newError(ErrValidation, "city is required")
	case in.SizeSqm <= 0:
		return newError(ErrValidation, "size_sqm must be positive")
	}
	for _, r := range []*int64{in.Rates.PerDayCents, in.Rates.PerWeekCents, in.Rates.PerMonthCents} {
		if r != nil && *r < 0 {
			return newError(ErrValidation, "rates must not be negative")
		}
	}
	if in.Status != nil && !in.Status.Valid() {
		return newError(ErrValidation, "invalid space status %q", *in.Status)
	}
	return nil
}

func requireProvider(actor Actor) error {
	if actor.Role != model.RoleProvider || actor.ID == 0 {
		return newError(ErrUnauthorized, "provider not found")
	}
	return nil
}

// Create lists a new space owned by actor.  New spaces are Active and
// available unless the input says otherwise.
func (s *SpaceService) Create(ctx context.Context, actor Actor, in SpaceInput) (*model.Space, error) {
	if err := requireProvider(actor); err != nil {
		return nil, err
	}
	if err := validateSpace(&in); err != nil {
		return nil, err
	}
	sp := &model.Space{
		ProviderID:  actor.ID,
		Title:       in.Title,
		Description: in.Description,
		SpaceType:   in.SpaceType,
		SizeSqm:     in.SizeSqm,
		City:        in.City,
		Address:     in.Address,
		Rates:       in.Rates,
		IsAvailable: true,
		Status:      model.SpaceStatusActive,
	}
	if in.IsAvailable != nil {
		sp.IsAvailable = *in.IsAvailable
	}
	if in.Status != nil {
		sp.Status = *in.Status
	}
	if err := s.spaces.CreateSpace(ctx, sp); err != nil {
		return nil, err
	}
	return sp, nil
}

// Update replaces the editable fields of a space owned by actor.  Existing
// bookings are untouched; new bookings see the new rates and status.
func (s *SpaceService) Update(ctx context.Context, actor Actor, spaceID uint64, in SpaceInput) (*model.Space, error) {
	if err := requireProvider(actor); err != nil {
		return nil, err
	}
	if err := validateSpace(&in); err != nil {
		return nil, err
	}
	sp, err := s.spaces.GetSpace(ctx, spaceID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, newError(ErrNotFound, "space not found")
	}
	if err != nil {
		return nil, err
	}
	if sp.ProviderID != actor.ID {
		return nil, newError(ErrUnauthorized, "space not found or unauthorized")
	}
	sp.Title = in.Title
	sp.Description = in.Description
	sp.SpaceType = in.SpaceType
	sp.SizeSqm = in.SizeSqm
	sp.City = in.City
	sp.Address = in.Address
	sp.Rates = in.Rates
	if in.IsAvailable != nil {
		sp.IsAvailable = *in.IsAvailable
	}
	if in.Status != nil {
		sp.Status = *in.Status
	}
	if err := s.spaces.UpdateSpace(ctx, sp); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(ErrNotFound, "space not found")
		}
		return nil, err
	}
	return sp, nil
}

// Get returns a space by id.
func (s *SpaceService) Get(ctx context.Context, spaceID uint64) (*model.Space, error) {
	sp, err := s.spaces.GetSpace(ctx, spaceID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, newError(ErrNotFound, "space not found")
	}
	return sp, err
}

// Search runs the public search over bookable spaces.  Page and page size
// are clamped to sane bounds.
func (s *SpaceService) Search(ctx context.Context, q model.SpaceSearch) ([]model.SpaceSummary, int64, error) {
	q.Page, q.PageSize = Paginate(q.Page, q.PageSize)
	if q.MaxMonthCents > 0 && q.MinMonthCents > q.MaxMonthCents {
		return nil, 0, newError(ErrValidation, "min_price must not exceed max_price")
	}
	if q.MaxSizeSqm > 0 && q.MinSizeSqm > q.MaxSizeSqm {
		return nil, 0, newError(ErrValidation, "min_size must not exceed max_size")
	}
	q.Term = strings.TrimSpace(q.Term)
	return s.spaces.SearchSpaces(ctx, q)
}

// Paginate clamps a requested page and page size: pages start at 1, the
// size defaults to 20 and is capped at 100.
func Paginate(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	return page, size
}

// ListForProvider returns the provider's spaces with booking counters.
func (s *SpaceService) ListForProvider(ctx context.Context, actor Actor, providerID uint64) ([]model.ProviderSpace, error) {
	if actor.Role != model.RoleProvider || actor.ID != providerID {
		return nil, newError(ErrUnauthorized, "provider not found")
	}
	return s.spaces.ListSpacesByProvider(ctx, providerID)
}
