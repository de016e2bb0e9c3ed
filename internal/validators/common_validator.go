package validators

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"fleetdispatch/internal/utils"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var validate *validator.Validate

func init() {
	validate = validator.New()

	// Register custom validation functions
	validate.RegisterValidation("object_id", validateObjectID)
	validate.RegisterValidation("coordinates", validateCoordinates)
	validate.RegisterValidation("language_code", validateLanguageCode)
	validate.RegisterValidation("rating_value", validateRatingValue)
	validate.RegisterValidation("hhmm", validateClock)
	validate.RegisterValidation("day_of_week", validateDayOfWeek)
	validate.RegisterValidation("distance", validateDistance)
}

// Common validation errors
var (
	ErrInvalidObjectID    = errors.New("invalid object ID format")
	ErrInvalidCoordinates = errors.New("invalid GPS coordinates")
	ErrInvalidLanguage    = errors.New("invalid language code")
	ErrInvalidRating      = errors.New("rating must be between 0 and 5")
	ErrInvalidClock       = errors.New("time must be HH:MM")
	ErrInvalidDistance    = errors.New("invalid distance value")
)

// ValidationError represents a field validation error
type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Value   string `json:"value"`
	Message string `json:"message"`
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	var messages []string
	for _, err := range v {
		messages = append(messages, fmt.Sprintf("%s: %s", err.Field, err.Message))
	}
	return strings.Join(messages, "; ")
}

// ValidateStruct validates a struct and returns detailed errors
func ValidateStruct(s interface{}) ValidationErrors {
	var validationErrors ValidationErrors

	err := validate.Struct(s)
	if err != nil {
		var fieldErrors validator.ValidationErrors
		if !errors.As(err, &fieldErrors) {
			return ValidationErrors{{Field: "request", Message: err.Error()}}
		}
		for _, err := range fieldErrors {
			validationError := ValidationError{
				Field:   fieldPath(err),
				Tag:     err.Tag(),
				Value:   fmt.Sprintf("%v", err.Value()),
				Message: getErrorMessage(err),
			}
			validationErrors = append(validationErrors, validationError)
		}
	}

	return validationErrors
}

// fieldPath drops the root struct name from the namespace, so nested fields
// read like "Availability.PreferredShifts[0].StartTime".
func fieldPath(err validator.FieldError) string {
	ns := err.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return err.Field()
}

func getErrorMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", err.Field())
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
	case "object_id":
		return "Invalid ID format"
	case "coordinates":
		return "Invalid GPS coordinates"
	case "language_code":
		return "Invalid language code"
	case "rating_value":
		return "Rating must be between 0 and 5"
	case "hhmm":
		return "Time must be in 24h HH:MM format"
	case "day_of_week":
		return "Day must be a weekday name such as monday"
	case "distance":
		return "Invalid distance value"
	default:
		return fmt.Sprintf("Validation failed for %s", err.Field())
	}
}

// Custom validation functions
func validateObjectID(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true // Let required tag handle empty values
	}
	_, err := primitive.ObjectIDFromHex(value)
	return err == nil
}

func validateCoordinates(fl validator.FieldLevel) bool {
	coords, ok := fl.Field().Interface().([]float64)
	if !ok || len(coords) != 2 {
		return false
	}

	lng, lat := coords[0], coords[1]
	return utils.IsValidCoordinates(lat, lng)
}

var languageCodeRegex = regexp.MustCompile(`^[a-z]{2,3}(-[A-Za-z]{2,4})?$`)

func validateLanguageCode(fl validator.FieldLevel) bool {
	code := fl.Field().String()
	if code == "" {
		return true
	}
	return languageCodeRegex.MatchString(code)
}

func validateRatingValue(fl validator.FieldLevel) bool {
	rating := fl.Field().Float()
	return rating >= utils.MinDriverRating && rating <= utils.MaxDriverRating
}

func validateClock(fl validator.FieldLevel) bool {
	return utils.IsValidClock(fl.Field().String())
}

func validateDayOfWeek(fl validator.FieldLevel) bool {
	return utils.IsValidDayName(fl.Field().String())
}

func validateDistance(fl validator.FieldLevel) bool {
	distance := fl.Field().Float()
	return distance >= 0 && distance <= utils.MaxSearchRadiusKM
}

// Helper functions for common validations
func IsValidObjectID(id string) bool {
	_, err := primitive.ObjectIDFromHex(id)
	return err == nil
}

// ParseObjectIDs converts hex ids, reporting every malformed entry under field.
func ParseObjectIDs(field string, ids []string) ([]primitive.ObjectID, ValidationErrors) {
	var errs ValidationErrors
	out := make([]primitive.ObjectID, 0, len(ids))
	for i, raw := range ids {
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("%s[%d]", field, i),
				Tag:     "object_id",
				Value:   raw,
				Message: "Invalid ID format",
			})
			continue
		}
		out = append(out, id)
	}
	return out, errs
}
