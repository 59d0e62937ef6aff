package model

import "time"

// SpaceStatus is the listing state of a storage space as managed by its
// provider.  Only Active spaces can be booked.
type SpaceStatus string

const (
	SpaceStatusActive   SpaceStatus = "Active"
	SpaceStatusPending  SpaceStatus = "Pending"
	SpaceStatusInactive SpaceStatus = "Inactive"
)

// Valid reports whether s is one of the known space statuses.
func (s SpaceStatus) Valid() bool {
	switch s {
	case SpaceStatusActive, SpaceStatusPending, SpaceStatusInactive:
		return true
	}
	return false
}

// Rates holds the optional rental rates of a space in minor currency units
// (halalas).  At most one rate is authoritative: per-day wins over per-week,
// which wins over per-month.
type Rates struct {
	PerDayCents   *int64 `json:"price_per_day_cents,omitempty"`
	PerWeekCents  *int64 `json:"price_per_week_cents,omitempty"`
	PerMonthCents *int64 `json:"price_per_month_cents,omitempty"`
}

// Space represents a rentable storage unit listed by a provider.
//
// Fields:
//
//	ID          – primary key identifier.
//	ProviderID  – account that owns the listing.
//	Title       – short listing title.
//	Description – free text description.
//	SpaceType   – category such as "Indoor room" or "Garage".
//	SizeSqm     – usable area in square meters.
//	City        – city of the space.
//	Address     – street address / neighborhood.
//	Rates       – per-day/week/month rates.
//	IsAvailable – provider controlled availability flag.
//	Status      – listing status (Active, Pending, Inactive).
//	CreatedAt   – creation timestamp.
//	UpdatedAt   – last update timestamp.
type Space struct {
	ID          uint64      `json:"id"`
	ProviderID  uint64      `json:"provider_id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	SpaceType   string      `json:"space_type"`
	SizeSqm     float64     `json:"size_sqm"`
	City        string      `json:"city"`
	Address     string      `json:"address"`
	Rates       Rates       `json:"rates"`
	IsAvailable bool        `json:"is_available"`
	Status      SpaceStatus `json:"status"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// Bookable reports whether the space accepts new bookings at all.  A space
// is "Available" only when the provider flag is set and the listing is
// Active.
func (s *Space) Bookable() bool {
	return s.IsAvailable && s.Status == SpaceStatusActive
}

// SpaceSearch defines the filters and pagination for the public space
// search.  Zero values disable a filter.
type SpaceSearch struct {
	Term          string
	SpaceType     string
	City          string
	MinMonthCents int64
	MaxMonthCents int64
	MinSizeSqm    float64
	MaxSizeSqm    float64
	Page          int
	PageSize      int
}

// SpaceSummary is a search result row: the space plus provider and rating
// aggregates.
type SpaceSummary struct {
	Space
	ProviderName  string  `json:"provider_name"`
	AverageRating float64 `json:"average_rating"`
	ReviewCount   int64   `json:"review_count"`
}

// ProviderSpace is a space as listed on the provider dashboard, with booking
// counters.
type ProviderSpace struct {
	Space
	TotalBookings  int64 `json:"total_bookings"`
	ActiveBookings int64 `json:"active_bookings"`
}
