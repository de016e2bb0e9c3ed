package validators

import (
	"fmt"
	"strings"

	"fleetdispatch/internal/models"
	"fleetdispatch/internal/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DriverPreferenceRequest carries the editable sections of a driver's
// preferences. Statistics are maintained by the server and cannot be set.
type DriverPreferenceRequest struct {
	MatchingWeights  *models.MatchingWeights        `json:"matching_weights"`
	Availability     models.AvailabilityPreferences `json:"availability"`
	Geographic       models.GeographicPreferences   `json:"geographic"`
	TripPreferences  *models.TripPreferences        `json:"trip_preferences"`
	RiderPreferences models.RiderPreferences        `json:"rider_preferences"`
	Skills           models.Skills                  `json:"skills"`
	Languages        models.LanguagePreferences     `json:"languages"`
	AutoAccept       models.AutoAcceptRules         `json:"auto_accept"`
}

// ToModel builds the stored profile. Omitted weights and trip preferences
// take the onboarding defaults.
func (r *DriverPreferenceRequest) ToModel(driverID primitive.ObjectID) *models.DriverPreference {
	pref := models.NewDriverPreference(driverID)
	if r.MatchingWeights != nil {
		pref.MatchingWeights = *r.MatchingWeights
	}
	if r.TripPreferences != nil {
		pref.TripPreferences = *r.TripPreferences
	}
	pref.Availability = r.Availability
	pref.Geographic = r.Geographic
	pref.RiderPreferences = r.RiderPreferences
	pref.Skills = r.Skills
	pref.Languages = r.Languages
	pref.AutoAccept = r.AutoAccept
	return pref
}

func ValidateDriverPreferenceRequest(req *DriverPreferenceRequest) ValidationErrors {
	errors := ValidateStruct(req)

	// Shifts compare as "HH:MM" strings, so a window crossing midnight would
	// never match. Ask for two shifts instead.
	for i, shift := range req.Availability.PreferredShifts {
		if utils.IsValidClock(shift.StartTime) && utils.IsValidClock(shift.EndTime) && shift.StartTime > shift.EndTime {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("Availability.PreferredShifts[%d]", i),
				Tag:     "shift_window",
				Value:   shift.StartTime + "-" + shift.EndTime,
				Message: "Shift must end after it starts; split overnight shifts at midnight",
			})
		}
	}

	for i, area := range req.Geographic.PreferredAreas {
		if !(utils.Bounds{Southwest: area.Southwest, Northeast: area.Northeast}).IsValid() {
			errors = append(errors, boundsError(fmt.Sprintf("Geographic.PreferredAreas[%d]", i)))
		}
	}
	for i, area := range req.Geographic.AvoidAreas {
		if !(utils.Bounds{Southwest: area.Southwest, Northeast: area.Northeast}).IsValid() {
			errors = append(errors, boundsError(fmt.Sprintf("Geographic.AvoidAreas[%d]", i)))
		}
	}

	if tp := req.TripPreferences; tp != nil {
		preferred := make(map[string]bool, len(tp.PreferredTripTypes))
		for _, t := range tp.PreferredTripTypes {
			preferred[t.Type] = true
		}
		for i, t := range tp.AvoidTripTypes {
			if preferred[t.Type] {
				errors = append(errors, ValidationError{
					Field:   fmt.Sprintf("TripPreferences.AvoidTripTypes[%d]", i),
					Tag:     "conflict",
					Value:   t.Type,
					Message: "Trip type cannot be both preferred and avoided",
				})
			}
		}
	}

	liked := make(map[primitive.ObjectID]bool, len(req.RiderPreferences.PreferredRiders))
	for _, r := range req.RiderPreferences.PreferredRiders {
		liked[r.RiderID] = true
	}
	for i, r := range req.RiderPreferences.AvoidRiders {
		if liked[r.RiderID] {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("RiderPreferences.AvoidRiders[%d]", i),
				Tag:     "conflict",
				Value:   r.RiderID.Hex(),
				Message: "Rider cannot be both preferred and avoided",
			})
		}
	}

	for i, lang := range append([]string{req.Languages.Primary}, req.Languages.Additional...) {
		if lang != "" && !languageCodeRegex.MatchString(strings.ToLower(lang)) {
			field := "Languages.Primary"
			if i > 0 {
				field = fmt.Sprintf("Languages.Additional[%d]", i-1)
			}
			errors = append(errors, ValidationError{
				Field:   field,
				Tag:     "language_code",
				Value:   lang,
				Message: "Invalid language code",
			})
		}
	}

	return errors
}

func boundsError(field string) ValidationError {
	return ValidationError{
		Field:   field,
		Tag:     "bounds",
		Message: "Southwest corner must be south and west of the northeast corner",
	}
}
