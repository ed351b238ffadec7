package main

import (
	"net/http"
	"strconv"
	"time"

	"github.com/fueltrack360/dispatch_backend/middlewares"
	"github.com/fueltrack360/dispatch_backend/models"
	"github.com/fueltrack360/dispatch_backend/models/reports"
	"github.com/fueltrack360/dispatch_backend/utils"
	"github.com/fueltrack360/dispatch_backend/workflow"
	"github.com/gin-gonic/gin"
)

func registerRoutes(r *gin.Engine) {
	r.POST("/auth/login", loginHandler())

	api := r.Group("/api/v1")
	api.Use(middlewares.AuthMiddleware())

	api.POST("/s2l", createS2LHandler())
	api.GET("/s2l", listS2LHandler())
	api.GET("/s2l/:id", getS2LHandler())
	api.POST("/s2l/:id/photos", addS2LPhotoHandler())
	api.POST("/s2l/:id/submit", submitS2LHandler())
	api.POST("/s2l/:id/review", reviewS2LHandler())

	api.POST("/manifests", createManifestHandler())
	api.GET("/manifests", listManifestsHandler())
	api.GET("/manifests/:id", getManifestHandler())
	api.PATCH("/manifests/:id/status", updateManifestStatusHandler())

	api.POST("/sync/batch", syncBatchHandler())

	api.POST("/audit-events", recordAuditEventHandler())
	api.GET("/audit-events", auditEventsHandler())

	api.POST("/geofence/check", geofenceCheckHandler())
	api.GET("/stations", listStationsHandler())
	api.GET("/stations/nearest", nearestStationHandler())
	api.GET("/stations/:id", getStationHandler())

	api.GET("/trucks", listTrucksHandler())
	api.GET("/trucks/:id", getTruckHandler())
	api.PATCH("/trucks/:id/status", updateTruckStatusHandler())
	api.POST("/gps-logs", ingestGpsLogHandler())
	api.GET("/gps-logs", gpsHistoryHandler())
	api.GET("/fleet/status", fleetStatusHandler())

	api.GET("/reports/variance", varianceReportHandler())
	api.GET("/reports/variance/export", varianceReportExportHandler())

	api.POST("/uploads/sign", signUploadHandler())
}

// httpStatusForErr maps the models error taxonomy to HTTP codes.
func httpStatusForErr(err error) int {
	switch utils.KindOf(err) {
	case utils.ErrorKindValidation:
		return http.StatusBadRequest
	case utils.ErrorKindNotFound:
		return http.StatusNotFound
	case utils.ErrorKindPermission:
		return http.StatusForbidden
	case utils.ErrorKindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// abortBindErr reports request binding failures. Validation failures come back
// as a field -> rule map so offline clients can surface which input was bad.
func abortBindErr(c *gin.Context, err error) {
	if fields := utils.ProcessValidationErrors(err); fields != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "fields": fields})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
}

func abortWithErr(c *gin.Context, err error) {
	status := httpStatusForErr(err)
	if status == http.StatusInternalServerError {
		c.Error(err)
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func loginHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.LoginInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		result, err := models.Login(c.Request.Context(), input)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": result})
	}
}

func createS2LHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.CreateS2LInput
		if err := c.ShouldBindJSON(&input); err != nil {
			abortBindErr(c, err)
			return
		}
		checklist, err := models.CreateS2L(c.Request.Context(), input)
		if err != nil {
			abortWithErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"data": checklist})
	}
}

func listS2LHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var filter models.S2LFilter
		if err := c.ShouldBindQuery(&filter); err != nil {
			abortBindErr(c, err)
			return
		}
		checklists, err := models.ListS2Ls(c.Request.Context(), filter)
		if err != nil {
			abortWithErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": checklists})
	}
}

func getS2LHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		checklist, err := models.GetS2L(c.Request.Context(), c.Param("id"))
		if err != nil {
			abortWithErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": checklist})
	}
}

func addS2LPhotoHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.AddS2LPhotoInput
		if err := c.ShouldBindJSON(&input); err != nil {
			abortBindErr(c, err)
			return
		}
		photo, err := models.AddS2LPhoto(c.Request.Context(), c.Param("id"), input)
		if err != nil {
			abortWithErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"data": photo})
	}
}

func submitS2LHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.SubmitS2LInput
		if err := c.ShouldBindJSON(&input); err != nil {
			abortBindErr(c, err)
			return
		}
		checklist, err := models.SubmitS2L(c.Request.Context(), c.Param("id"), input)
		if err != nil {
			abortWithErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": checklist})
	}
}

func reviewS2LHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.ReviewS2LInput
		if err := c.ShouldBindJSON(&input); err != nil {
			abortBindErr(c, err)
			return
		}
		checklist, err := models.ReviewS2L(c.Request.Context(), c.Param("id"), input)
		if err != nil {
			abortWithErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": checklist})
	}
}

func createManifestHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.CreateManifestInput
		if err := c.ShouldBindJSON(&input); err != nil {
			abortBindErr(c, err)
			return
		}
		manifest, err := models.CreateManifest(c.Request.Context(), input)
		if err != nil {
			abortWithErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"data": manifest})
	}
}

func listManifestsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var filter models.ManifestFilter
		if err := c.ShouldBindQuery(&filter); err != nil {
			abortBindErr(c, err)
			return
		}
		manifests, err := models.ListManifests(c.Request.Context(), filter)
		if err != nil {
			abortWithErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": manifests})
	}
}

func getManifestHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		manifest, err := models.GetManifest(c.Request.Context(), c.Param("id"))
		if err != nil {
			abortWithErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": manifest})
	}
}

func updateManifestStatusHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.UpdateManifestStatusInput
		if err := c.ShouldBindJSON(&input); err != nil {
			abortBindErr(c, err)
			return
		}
		manifest, err := models.UpdateManifestStatus(c.Request.Context(), c.Param("id"), input)
		if err != nil {
			abortWithErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": manifest})
	}
}

func syncBatchHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input workflow.SyncBatchInput
		if err := c.ShouldBindJSON(&input); err != nil {
			abortBindErr(c, err)
			return
		}
		result, err := workflow.ProcessSyncBatch(c.Request.Context(), input)
		if err != nil {
			abortWithErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": result})
	}
}

type recordAuditEventRequest struct {
	EventType  string                 `json:"event_type" binding:"required"`
	EntityType string                 `json:"entity_type" binding:"required"`
	EntityId   string                 `json:"entity_id" binding:"required"`
	Payload    map[string]interface{} `json:"payload"`
	Lat        *float64               `json:"lat"`
	Lng        *float64               `json:"lng"`
}

func recordAuditEventHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input recordAuditEventRequest
		if err := c.ShouldBindJSON(&input); err != nil {
			abortBindErr(c, err)
			return
		}
		eventType, err := models.ParseAuditEventType(input.EventType)
		if err != nil {
			abortWithErr(c, utils.NewValidationError("invalid event type %s", input.EventType))
			return
		}

		ip := c.ClientIP()
		ua := c.Request.UserAgent()
		event, err := models.RecordAuditEvent(c.Request.Context(), models.AuditEventInput{
			EventType:  eventType,
			EntityType: input.EntityType,
			EntityId:   input.EntityId,
			Payload:    input.Payload,
			Lat:        input.Lat,
			Lng:        input.Lng,
			IpAddress:  &ip,
			UserAgent:  &ua,
		})
		if err != nil {
			abortWithErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"data": event})
	}
}

func auditEventsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var filter models.AuditEventFilter
		if err := c.ShouldBindQuery(&filter); err != nil {
			abortBindErr(c, err)
			return
		}
		page, err := models.QueryAuditEvents(c.Request.Context(), filter)
		if err != nil {
			abortWithErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": page})
	}
}

func geofenceCheckHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.GeofenceCheckInput
		if err := c.ShouldBindJSON(&input); err != nil {
			abortBindErr(c, err)
			return
		}
		result, err := models.CheckStationGeofence(c.Request.Context(), input)
		if err != nil {
			abortWithErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": result})
	}
}

func listStationsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		stations, err := models.ListStations(c.Request.Context())
		if err != nil {
			abortWithErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": stations})
	}
}

func getStationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		station, err := models.GetStation(c.Request.Context(), c.Param("id"))
		if err != nil {
			abortWithErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": station})
	}
}

func nearestStationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		lat, err := strconv.ParseFloat(c.Query("lat"), 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "lat is required"})
			return
		}
		lng, err := strconv.ParseFloat(c.Query("lng"), 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "lng is required"})
			return
		}
		limit := 5
		if v := c.Query("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				limit = n
			}
		}
		results, err := models.NearestStation(c.Request.Context(), lat, lng, limit)
		if err != nil {
			abortWithErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": results})
	}
}

func listTrucksHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		trucks, err := models.ListTrucks(c.Request.Context())
		if err != nil {
			abortWithErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": trucks})
	}
}

func getTruckHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		truck, err := models.GetTruck(c.Request.Context(), c.Param("id"))
		if err != nil {
			abortWithErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": truck})
	}
}

func updateTruckStatusHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.UpdateTruckStatusInput
		if err := c.ShouldBindJSON(&input); err != nil {
			abortBindErr(c, err)
			return
		}
		truck, err := models.UpdateTruckStatus(c.Request.Context(), c.Param("id"), input)
		if err != nil {
			abortWithErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": truck})
	}
}

func ingestGpsLogHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.GpsLogInput
		if err := c.ShouldBindJSON(&input); err != nil {
			abortBindErr(c, err)
			return
		}
		log, err := models.IngestGpsLog(c.Request.Context(), input)
		if err != nil {
			abortWithErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"data": log})
	}
}

func gpsHistoryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var filter models.GpsHistoryFilter
		if err := c.ShouldBindQuery(&filter); err != nil {
			abortBindErr(c, err)
			return
		}
		logs, err := models.GetGpsHistory(c.Request.Context(), filter)
		if err != nil {
			abortWithErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": logs})
	}
}

func fleetStatusHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		fleet, err := models.GetFleetStatus(c.Request.Context())
		if err != nil {
			abortWithErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": fleet})
	}
}

func varianceReportRange(c *gin.Context) (time.Time, time.Time, bool) {
	from, err := time.Parse(time.RFC3339, c.Query("from"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "from is required (RFC3339)"})
		return time.Time{}, time.Time{}, false
	}
	to, err := time.Parse(time.RFC3339, c.Query("to"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "to is required (RFC3339)"})
		return time.Time{}, time.Time{}, false
	}
	return from, to, true
}

func varianceReportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		from, to, ok := varianceReportRange(c)
		if !ok {
			return
		}
		flaggedOnly := c.Query("flagged_only") == "true"
		records, err := reports.GetVarianceReport(c.Request.Context(), from, to, flaggedOnly)
		if err != nil {
			abortWithErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": records})
	}
}

func varianceReportExportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		from, to, ok := varianceReportRange(c)
		if !ok {
			return
		}
		flaggedOnly := c.Query("flagged_only") == "true"
		records, err := reports.GetVarianceReport(c.Request.Context(), from, to, flaggedOnly)
		if err != nil {
			abortWithErr(c, err)
			return
		}

		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Header("Content-Disposition", "attachment; filename=variance_report.xlsx")
		if err := reports.ExportVarianceReportExcel(c.Writer, records); err != nil {
			c.Error(err)
		}
	}
}
