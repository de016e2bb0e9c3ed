package validators

import (
	"fmt"
	"time"

	"fleetdispatch/internal/models"
	"fleetdispatch/internal/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type MatchRequest struct {
	Limit          int      `json:"limit" validate:"omitempty,min=1,max=50"`
	RadiusKM       float64  `json:"radius_km" validate:"omitempty,gt=0,distance"`
	MinScore       *float64 `json:"min_score" validate:"omitempty,gte=0,lte=100"`
	ExcludeDrivers []string `json:"exclude_drivers" validate:"omitempty,max=200,dive,required,object_id"`
}

// TripMatchRequest is the body form of a match request.
type TripMatchRequest struct {
	TripID  string       `json:"trip_id" validate:"required,object_id"`
	Options MatchRequest `json:"options"`
}

type TripAssignRequest struct {
	TripID string `json:"trip_id" validate:"required,object_id"`
}

type ReassignRequest struct {
	ExcludeDriverIDs []string `json:"exclude_driver_ids" validate:"omitempty,max=200,dive,required,object_id"`
}

type BatchAssignRequest struct {
	TripIDs []string `json:"trip_ids" validate:"required,min=1,max=200,dive,required,object_id"`
}

type TripResponseRequest struct {
	Accepted            *bool   `json:"accepted" validate:"required"`
	ResponseTimeSeconds float64 `json:"response_time_seconds" validate:"gte=0,lte=3600"`
}

// ValidateMatchRequest checks the request and converts it to matcher options.
func ValidateMatchRequest(req *MatchRequest) (models.MatchOptions, ValidationErrors) {
	if errs := ValidateStruct(req); len(errs) > 0 {
		return models.MatchOptions{}, errs
	}

	exclude, errs := ParseObjectIDs("exclude_drivers", req.ExcludeDrivers)
	if len(errs) > 0 {
		return models.MatchOptions{}, errs
	}

	return models.MatchOptions{
		Limit:          req.Limit,
		RadiusKM:       req.RadiusKM,
		MinScore:       req.MinScore,
		ExcludeDrivers: exclude,
	}, nil
}

func ValidateReassignRequest(req *ReassignRequest) ([]primitive.ObjectID, ValidationErrors) {
	if errs := ValidateStruct(req); len(errs) > 0 {
		return nil, errs
	}
	return ParseObjectIDs("exclude_driver_ids", req.ExcludeDriverIDs)
}

// ValidateBatchAssignRequest also rejects duplicate trip ids, which would
// make the second attempt on the same trip fail as a conflict.
func ValidateBatchAssignRequest(req *BatchAssignRequest) ([]primitive.ObjectID, ValidationErrors) {
	if len(req.TripIDs) > utils.MaxBatchSize {
		return nil, ValidationErrors{{
			Field:   "trip_ids",
			Tag:     "max",
			Message: fmt.Sprintf("At most %d trips per batch", utils.MaxBatchSize),
		}}
	}
	if errs := ValidateStruct(req); len(errs) > 0 {
		return nil, errs
	}

	ids, errs := ParseObjectIDs("trip_ids", req.TripIDs)
	if len(errs) > 0 {
		return nil, errs
	}

	seen := make(map[primitive.ObjectID]int, len(ids))
	for i, id := range ids {
		if first, dup := seen[id]; dup {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("trip_ids[%d]", i),
				Tag:     "unique",
				Value:   id.Hex(),
				Message: fmt.Sprintf("Duplicate of trip_ids[%d]", first),
			})
			continue
		}
		seen[id] = i
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return ids, nil
}

func ValidateTripResponseRequest(req *TripResponseRequest) (accepted bool, responseTime time.Duration, errs ValidationErrors) {
	if errs = ValidateStruct(req); len(errs) > 0 {
		return false, 0, errs
	}
	return *req.Accepted, time.Duration(req.ResponseTimeSeconds * float64(time.Second)), nil
}
