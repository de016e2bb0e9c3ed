package utils

import "time"

// Application Constants
const (
	AppName    = "FleetDispatch"
	AppVersion = "1.0.0"

	DefaultTimeZone = "UTC"

	// Matching defaults
	DefaultMatchLimit     = 10
	DefaultSearchRadiusKM = 20.0
	MaxSearchRadiusKM     = 100.0
	DefaultMinMatchScore  = 40.0
	MaxMatchLimit         = 50
	MaxBatchSize          = 200

	// Scoring windows
	DistanceDecayKM = 50.0
	ChainingDecayKM = 20.0
	MaxMatchScore   = 100.0
	NeutralScore    = 50.0

	// Flat bonuses
	PreferredRiderBonus = 10.0
	LanguageMatchBonus  = 5.0

	// Driver Constants
	MinDriverRating       = 0.0
	MaxDriverRating       = 5.0
	DefaultMaxStops       = 10
	DefaultAreaPriority   = 3
	MaxReassignAlternates = 2

	DefaultCitySpeedKMH = 30.0

	AssignmentTimeout = 10 * time.Second
	TripLockTTL       = 15 * time.Second
)

// HTTP Status Messages
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusFailed  = "failed"
)

// Error Messages
const (
	ErrInvalidInput       = "invalid input"
	ErrInternalServer     = "internal server error"
	ErrNotFound           = "not found"
	ErrConflict           = "conflict"
	ErrValidationFailed   = "validation failed"
	ErrTripNotFound       = "trip not found"
	ErrDriverNotFound     = "driver not found"
	ErrNoDriversAvailable = "no drivers available"
)

// Cache Keys
const (
	CacheDriverPreferencePrefix = "driver_preference:"
	CacheTripLockPrefix         = "lock:trip:"
)

// Event Types
const (
	EventTripAssigned   = "trip.assigned"
	EventTripReassigned = "trip.reassigned"
)

// Geographic Constants
const (
	EarthRadiusKM    = 6371.0
	EarthRadiusMiles = 3959.0
)
