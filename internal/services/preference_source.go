package services

import (
	"strings"

	"fleetdispatch/internal/models"
	"fleetdispatch/internal/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PreferenceSource is the read-only view of a driver's preferences that the
// scorer and the auto-accept rules consult.
type PreferenceSource interface {
	Weights() models.MatchingWeights
	// IsAvailableAt takes a lowercase day name and an "HH:MM" clock.
	IsAvailableAt(day, clock string) bool
	// PreferredAreaPriority returns the priority of the first preferred area
	// containing p. ok is false when p lies outside every preferred area.
	PreferredAreaPriority(p models.GeoPoint) (priority int, ok bool)
	HasPreferredAreas() bool
	IsInAvoidArea(p models.GeoPoint) bool
	PreferredTripTypePriority(tripType string) (priority int, ok bool)
	AvoidsTripType(tripType string) bool
	AcceptsWheelchair() bool
	AcceptsPets() bool
	CanHandleStops(stops int) bool
	IsPreferredRider(riderID primitive.ObjectID) bool
	IsAvoidedRider(riderID primitive.ObjectID) bool
	HasVerifiedCertification(certType string) bool
	RequiresLanguageMatch() bool
	SpeaksLanguage(language string) bool
	AutoAcceptRules() models.AutoAcceptRules
}

// NewPreferenceSource wraps a stored profile, falling back to the default
// profile when the driver has none.
func NewPreferenceSource(pref *models.DriverPreference) PreferenceSource {
	if pref == nil {
		return DefaultProfile{}
	}
	return &ExplicitProfile{pref: pref}
}

// ExplicitProfile answers from a stored DriverPreference.
type ExplicitProfile struct {
	pref *models.DriverPreference
}

func NewExplicitProfile(pref *models.DriverPreference) *ExplicitProfile {
	return &ExplicitProfile{pref: pref}
}

func (p *ExplicitProfile) Weights() models.MatchingWeights {
	return p.pref.MatchingWeights
}

// IsAvailableAt compares "HH:MM" strings lexically, so a shift that wraps
// past midnight never matches.
func (p *ExplicitProfile) IsAvailableAt(day, clock string) bool {
	for _, shift := range p.pref.Availability.PreferredShifts {
		if !strings.EqualFold(shift.DayOfWeek, day) {
			continue
		}
		if clock >= shift.StartTime && clock <= shift.EndTime {
			return true
		}
	}
	return false
}

func (p *ExplicitProfile) PreferredAreaPriority(point models.GeoPoint) (int, bool) {
	areas := p.pref.Geographic.PreferredAreas
	if len(areas) == 0 {
		return utils.DefaultAreaPriority, true
	}
	for _, area := range areas {
		if (utils.Bounds{Southwest: area.Southwest, Northeast: area.Northeast}).Contains(point) {
			return area.Priority, true
		}
	}
	return 0, false
}

func (p *ExplicitProfile) HasPreferredAreas() bool {
	return len(p.pref.Geographic.PreferredAreas) > 0
}

func (p *ExplicitProfile) IsInAvoidArea(point models.GeoPoint) bool {
	for _, area := range p.pref.Geographic.AvoidAreas {
		if (utils.Bounds{Southwest: area.Southwest, Northeast: area.Northeast}).Contains(point) {
			return true
		}
	}
	return false
}

func (p *ExplicitProfile) PreferredTripTypePriority(tripType string) (int, bool) {
	if tripType == "" {
		return 0, false
	}
	for _, t := range p.pref.TripPreferences.PreferredTripTypes {
		if t.Type == tripType {
			return t.Priority, true
		}
	}
	return 0, false
}

func (p *ExplicitProfile) AvoidsTripType(tripType string) bool {
	if tripType == "" {
		return false
	}
	for _, t := range p.pref.TripPreferences.AvoidTripTypes {
		if t.Type == tripType {
			return true
		}
	}
	return false
}

func (p *ExplicitProfile) AcceptsWheelchair() bool {
	return p.pref.TripPreferences.AcceptWheelchair
}

func (p *ExplicitProfile) AcceptsPets() bool {
	return p.pref.TripPreferences.AcceptPets
}

// CanHandleStops only checks the stop limit; AcceptMultiStop is informational.
func (p *ExplicitProfile) CanHandleStops(stops int) bool {
	return stops <= p.pref.TripPreferences.MaxStopsPerTrip
}

func (p *ExplicitProfile) IsPreferredRider(riderID primitive.ObjectID) bool {
	if riderID.IsZero() {
		return false
	}
	for _, r := range p.pref.RiderPreferences.PreferredRiders {
		if r.RiderID == riderID {
			return true
		}
	}
	return false
}

func (p *ExplicitProfile) IsAvoidedRider(riderID primitive.ObjectID) bool {
	if riderID.IsZero() {
		return false
	}
	for _, r := range p.pref.RiderPreferences.AvoidRiders {
		if r.RiderID == riderID {
			return true
		}
	}
	return false
}

func (p *ExplicitProfile) HasVerifiedCertification(certType string) bool {
	for _, c := range p.pref.Skills.Certifications {
		if c.Verified && strings.EqualFold(c.Type, certType) {
			return true
		}
	}
	return false
}

func (p *ExplicitProfile) RequiresLanguageMatch() bool {
	return p.pref.Languages.RequireMatch
}

func (p *ExplicitProfile) SpeaksLanguage(language string) bool {
	if language == "" {
		return false
	}
	langs := p.pref.Languages
	if strings.EqualFold(langs.Primary, language) {
		return true
	}
	for _, l := range langs.Additional {
		if strings.EqualFold(l, language) {
			return true
		}
	}
	return false
}

func (p *ExplicitProfile) AutoAcceptRules() models.AutoAcceptRules {
	return p.pref.AutoAccept
}

// DefaultProfile stands in for drivers without a stored profile.
type DefaultProfile struct{}

func (DefaultProfile) Weights() models.MatchingWeights {
	return models.DefaultMatchingWeights()
}

func (DefaultProfile) IsAvailableAt(string, string) bool { return true }

func (DefaultProfile) PreferredAreaPriority(models.GeoPoint) (int, bool) {
	return utils.DefaultAreaPriority, true
}

func (DefaultProfile) IsInAvoidArea(models.GeoPoint) bool { return false }

func (DefaultProfile) PreferredTripTypePriority(string) (int, bool) { return 0, false }

func (DefaultProfile) AvoidsTripType(string) bool { return false }

func (DefaultProfile) HasPreferredAreas() bool { return false }

func (DefaultProfile) AcceptsWheelchair() bool { return true }

func (DefaultProfile) AcceptsPets() bool { return true }

func (DefaultProfile) CanHandleStops(stops int) bool {
	return stops <= utils.DefaultMaxStops
}

func (DefaultProfile) IsPreferredRider(primitive.ObjectID) bool { return false }

func (DefaultProfile) IsAvoidedRider(primitive.ObjectID) bool { return false }

func (DefaultProfile) HasVerifiedCertification(string) bool { return false }

func (DefaultProfile) RequiresLanguageMatch() bool { return false }

func (DefaultProfile) SpeaksLanguage(string) bool { return false }

func (DefaultProfile) AutoAcceptRules() models.AutoAcceptRules {
	return models.AutoAcceptRules{}
}
