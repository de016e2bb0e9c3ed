package routes

import (
	handlers "fleetdispatch/internal/handlers/dispatch"

	"github.com/gin-gonic/gin"
)

// SetupMatchingRoutes sets up routes for matching and assignment
func SetupMatchingRoutes(r *gin.RouterGroup, matchingHandler *handlers.MatchingHandler) {
	r.POST("/match", matchingHandler.Match)
	r.POST("/assign", matchingHandler.Assign)

	trips := r.Group("/trips")
	{
		trips.POST("/:id/matches", matchingHandler.FindMatches)
		trips.POST("/:id/assign", matchingHandler.AssignTrip)
		trips.POST("/:id/reassign", matchingHandler.ReassignTrip)
	}

	assignments := r.Group("/assignments")
	{
		assignments.POST("/batch", matchingHandler.BatchAssign)
	}

	// Driver preference management
	drivers := r.Group("/drivers")
	{
		drivers.GET("/:id/preferences", matchingHandler.GetPreferences)
		drivers.PUT("/:id/preferences", matchingHandler.UpdatePreferences)
		drivers.POST("/:id/trip-responses", matchingHandler.RecordTripResponse)
	}
}
