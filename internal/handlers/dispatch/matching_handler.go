package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"fleetdispatch/internal/models"
	"fleetdispatch/internal/repositories/interfaces"
	"fleetdispatch/internal/services"
	"fleetdispatch/internal/utils"
	"fleetdispatch/internal/validators"
	"fleetdispatch/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TripReader interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Trip, error)
}

type Assigner interface {
	AssignBest(ctx context.Context, tripID primitive.ObjectID) (*models.AssignmentResult, error)
	Reassign(ctx context.Context, tripID primitive.ObjectID, excludeDriverIDs []primitive.ObjectID) (*models.AssignmentResult, error)
	BatchAssign(ctx context.Context, tripIDs []primitive.ObjectID) (*models.BatchAssignResult, error)
}

type PreferenceManager interface {
	GetPreferences(ctx context.Context, driverID primitive.ObjectID) (*models.DriverPreference, bool, error)
	UpdatePreferences(ctx context.Context, driverID primitive.ObjectID, pref *models.DriverPreference) ([]string, error)
	RecordTripResponse(ctx context.Context, driverID primitive.ObjectID, accepted bool, responseTime time.Duration) (*models.PreferenceStatistics, error)
}

type MatchingHandler struct {
	trips         TripReader
	matcher       services.TripMatcher
	assigner      Assigner
	preferences   PreferenceManager
	notifier      services.AssignmentNotifier
	notifyTimeout time.Duration
	logger        *logger.Logger
}

// NewMatchingHandler wires the dispatch endpoints. notifier may be nil.
func NewMatchingHandler(
	trips TripReader,
	matcher services.TripMatcher,
	assigner Assigner,
	preferences PreferenceManager,
	notifier services.AssignmentNotifier,
	notifyTimeout time.Duration,
	log *logger.Logger,
) *MatchingHandler {
	if notifyTimeout <= 0 {
		notifyTimeout = 3 * time.Second
	}
	return &MatchingHandler{
		trips:         trips,
		matcher:       matcher,
		assigner:      assigner,
		preferences:   preferences,
		notifier:      notifier,
		notifyTimeout: notifyTimeout,
		logger:        log,
	}
}

type PreferencesResponse struct {
	Preferences *models.DriverPreference `json:"preferences"`
	Stored      bool                     `json:"stored"`
}

// FindMatches ranks drivers for a trip without assigning anyone
func (h *MatchingHandler) FindMatches(c *gin.Context) {
	tripID, ok := h.objectIDParam(c, "id", "trip")
	if !ok {
		return
	}

	var request validators.MatchRequest
	if !bindOptionalJSON(c, &request) {
		return
	}
	opts, verrs := validators.ValidateMatchRequest(&request)
	if len(verrs) > 0 {
		validationResponse(c, verrs)
		return
	}

	h.findMatches(c, tripID, opts)
}

// Match is FindMatches with the trip id in the body
func (h *MatchingHandler) Match(c *gin.Context) {
	var request validators.TripMatchRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}
	if verrs := validators.ValidateStruct(&request); len(verrs) > 0 {
		validationResponse(c, verrs)
		return
	}
	opts, verrs := validators.ValidateMatchRequest(&request.Options)
	if len(verrs) > 0 {
		validationResponse(c, verrs)
		return
	}

	tripID, _ := primitive.ObjectIDFromHex(request.TripID)
	h.findMatches(c, tripID, opts)
}

func (h *MatchingHandler) findMatches(c *gin.Context, tripID primitive.ObjectID, opts models.MatchOptions) {
	trip, err := h.trips.GetByID(c.Request.Context(), tripID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	summary, err := h.matcher.FindBestMatches(c.Request.Context(), trip, opts)
	if err != nil {
		h.handleError(c, err)
		return
	}

	utils.SuccessResponseWithMeta(c, summary.Message, summary, &utils.Meta{
		Total: int64(summary.TotalConsidered),
		Count: len(summary.Matches),
	})
}

// AssignTrip places the best available driver on the trip
func (h *MatchingHandler) AssignTrip(c *gin.Context) {
	tripID, ok := h.objectIDParam(c, "id", "trip")
	if !ok {
		return
	}
	h.assign(c, tripID)
}

// Assign is AssignTrip with the trip id in the body
func (h *MatchingHandler) Assign(c *gin.Context) {
	var request validators.TripAssignRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}
	if verrs := validators.ValidateStruct(&request); len(verrs) > 0 {
		validationResponse(c, verrs)
		return
	}

	tripID, _ := primitive.ObjectIDFromHex(request.TripID)
	h.assign(c, tripID)
}

func (h *MatchingHandler) assign(c *gin.Context, tripID primitive.ObjectID) {
	result, err := h.assigner.AssignBest(c.Request.Context(), tripID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	h.notify(c, utils.EventTripAssigned, result)
	utils.SuccessResponse(c, "Trip assigned successfully", result)
}

// ReassignTrip replaces the current driver with the next best candidate
func (h *MatchingHandler) ReassignTrip(c *gin.Context) {
	tripID, ok := h.objectIDParam(c, "id", "trip")
	if !ok {
		return
	}

	var request validators.ReassignRequest
	if !bindOptionalJSON(c, &request) {
		return
	}
	exclude, verrs := validators.ValidateReassignRequest(&request)
	if len(verrs) > 0 {
		validationResponse(c, verrs)
		return
	}

	result, err := h.assigner.Reassign(c.Request.Context(), tripID, exclude)
	if err != nil {
		h.handleError(c, err)
		return
	}

	h.notify(c, utils.EventTripReassigned, result)
	utils.SuccessResponse(c, "Trip reassigned successfully", result)
}

// BatchAssign assigns several trips in one request. Per-trip failures are
// reported in the body; the request itself still succeeds.
func (h *MatchingHandler) BatchAssign(c *gin.Context) {
	var request validators.BatchAssignRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}
	tripIDs, verrs := validators.ValidateBatchAssignRequest(&request)
	if len(verrs) > 0 {
		validationResponse(c, verrs)
		return
	}

	result, err := h.assigner.BatchAssign(c.Request.Context(), tripIDs)
	if err != nil {
		h.handleError(c, err)
		return
	}

	utils.SuccessResponseWithMeta(c, "Batch assignment completed", result, &utils.Meta{
		Total: int64(result.Summary.Total),
		Count: result.Summary.Successful,
	})
}

// GetPreferences returns the driver's profile, or the defaults used for
// matching when none is stored
func (h *MatchingHandler) GetPreferences(c *gin.Context) {
	driverID, ok := h.objectIDParam(c, "id", "driver")
	if !ok {
		return
	}

	pref, stored, err := h.preferences.GetPreferences(c.Request.Context(), driverID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	utils.SuccessResponse(c, "Driver preferences retrieved", PreferencesResponse{Preferences: pref, Stored: stored})
}

// UpdatePreferences replaces the editable sections of the driver's profile
func (h *MatchingHandler) UpdatePreferences(c *gin.Context) {
	driverID, ok := h.objectIDParam(c, "id", "driver")
	if !ok {
		return
	}

	var request validators.DriverPreferenceRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}
	if verrs := validators.ValidateDriverPreferenceRequest(&request); len(verrs) > 0 {
		validationResponse(c, verrs)
		return
	}

	pref := request.ToModel(driverID)
	warnings, err := h.preferences.UpdatePreferences(c.Request.Context(), driverID, pref)
	if err != nil {
		h.handleError(c, err)
		return
	}

	utils.SuccessResponseWithMeta(c, "Driver preferences updated", pref, &utils.Meta{Warnings: warnings})
}

// RecordTripResponse folds a driver's accept/decline into their statistics
func (h *MatchingHandler) RecordTripResponse(c *gin.Context) {
	driverID, ok := h.objectIDParam(c, "id", "driver")
	if !ok {
		return
	}

	var request validators.TripResponseRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}
	accepted, responseTime, verrs := validators.ValidateTripResponseRequest(&request)
	if len(verrs) > 0 {
		validationResponse(c, verrs)
		return
	}

	stats, err := h.preferences.RecordTripResponse(c.Request.Context(), driverID, accepted, responseTime)
	if err != nil {
		h.handleError(c, err)
		return
	}

	utils.SuccessResponse(c, "Trip response recorded", stats)
}

// notify runs after the assignment is committed. Failures are logged and
// never change the response.
func (h *MatchingHandler) notify(c *gin.Context, eventType string, result *models.AssignmentResult) {
	if h.notifier == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), h.notifyTimeout)
	defer cancel()

	event := services.NewAssignmentEvent(eventType, result)
	if err := h.notifier.NotifyAssignment(ctx, event); err != nil {
		h.logger.WithContext(c.Request.Context()).
			WithTripID(event.TripID).
			WithDriverID(event.DriverID).
			WithError(err).
			Warn("Assignment notification failed")
	}
}

func (h *MatchingHandler) handleError(c *gin.Context, err error) {
	var noDriver *services.NoDriverError

	switch {
	case errors.As(err, &noDriver):
		utils.ErrorResponseWithDetails(c, http.StatusUnprocessableEntity, "NO_DRIVER_FOUND", utils.ErrNoDriversAvailable, map[string]string{
			"match_status":       string(noDriver.Status),
			"drivers_considered": strconv.Itoa(noDriver.TotalConsidered),
		})
	case errors.Is(err, services.ErrNoDriverFound):
		utils.UnprocessableResponse(c, "NO_DRIVER_FOUND", utils.ErrNoDriversAvailable)
	case errors.Is(err, services.ErrTripNotFound), errors.Is(err, interfaces.ErrNotFound):
		utils.NotFoundResponse(c, "Trip")
	case errors.Is(err, services.ErrAssignmentConflict):
		utils.ConflictResponse(c, err.Error())
	case errors.Is(err, services.ErrAssignmentPersistFailure):
		h.logger.WithContext(c.Request.Context()).WithError(err).Error("Assignment could not be saved")
		utils.BadGatewayResponse(c, "Assignment could not be saved; the trip was not changed")
	case errors.Is(err, services.ErrInvalidTrip):
		utils.BadRequestResponse(c, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		utils.ErrorResponse(c, http.StatusGatewayTimeout, "TIMEOUT", "Matching timed out")
	default:
		h.logger.WithContext(c.Request.Context()).WithError(err).Error("Dispatch request failed")
		utils.InternalServerErrorResponse(c)
	}
}

func (h *MatchingHandler) objectIDParam(c *gin.Context, name, resource string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid "+resource+" ID")
		return primitive.NilObjectID, false
	}
	return id, true
}

// bindOptionalJSON accepts an empty body as the zero request.
func bindOptionalJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return false
	}
	return true
}

func validationResponse(c *gin.Context, errs validators.ValidationErrors) {
	details := make(map[string]string, len(errs))
	for _, e := range errs {
		details[e.Field] = e.Message
	}
	utils.ValidationErrorResponse(c, details)
}
