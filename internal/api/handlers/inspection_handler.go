package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"

	"github.com/KHABI-TEQ/console-admin/internal/models"
	"github.com/KHABI-TEQ/console-admin/internal/services"
	"github.com/KHABI-TEQ/console-admin/internal/tasks"
	"github.com/KHABI-TEQ/console-admin/internal/utils"
)

// InspectionHandler handles admin requests for inspection bookings.
type InspectionHandler struct {
	inspectionService services.IInspectionService
	taskClient        *asynq.Client
}

// NewInspectionHandler creates a new InspectionHandler.
func NewInspectionHandler(inspectionService services.IInspectionService, taskClient *asynq.Client) *InspectionHandler {
	return &InspectionHandler{
		inspectionService: inspectionService,
		taskClient:        taskClient,
	}
}

// ListInspections handles GET /v1/admin/inspections.
// Multi-status filtering uses repeated status parameters
// (?status=a&status=b); every supplied value must belong to the closed set.
func (h *InspectionHandler) ListInspections(c *gin.Context) {
	filter := models.InspectionFilter{
		Search: c.Query("search"),
	}

	for _, raw := range c.QueryArray("status") {
		status, err := models.ParseInspectionStatus(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		filter.Statuses = append(filter.Statuses, status)
	}

	if raw := c.Query("stage"); raw != "" {
		stage, err := models.ParseInspectionStage(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		filter.Stage = stage
	}

	if raw := c.Query("pending_response_from"); raw != "" {
		party, err := models.ParsePendingParty(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		filter.PendingResponseFrom = party
	}

	if pageStr := c.Query("page"); pageStr != "" {
		page, err := strconv.Atoi(pageStr)
		if err != nil || page <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid page parameter"})
			return
		}
		filter.Page = page
	}
	if limitStr := c.Query("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit parameter"})
			return
		}
		filter.Limit = limit
	}

	result, err := h.inspectionService.List(c.Request.Context(), filter)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list inspections"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetInspection handles GET /v1/admin/inspections/:id.
func (h *InspectionHandler) GetInspection(c *gin.Context) {
	id, err := utils.ParseShortID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid inspection ID format"})
		return
	}

	booking, err := h.inspectionService.FindByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Inspection not found"})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve inspection"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": h.decorate(booking)})
}

// ApproveInspection handles POST /v1/admin/inspections/:id/approve.
func (h *InspectionHandler) ApproveInspection(c *gin.Context) {
	id, err := utils.ParseShortID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid inspection ID format"})
		return
	}

	booking, err := h.inspectionService.Approve(c.Request.Context(), id)
	if err != nil {
		h.writeTransitionError(c, err)
		return
	}

	h.enqueueEmail(booking.BuyerEmail, "Inspection Request Approved",
		"Your inspection request for "+booking.PropertyAddress+" has been approved and forwarded to the seller.")
	c.JSON(http.StatusOK, gin.H{"data": h.decorate(booking)})
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

// RejectInspection handles POST /v1/admin/inspections/:id/reject.
func (h *InspectionHandler) RejectInspection(c *gin.Context) {
	id, err := utils.ParseShortID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid inspection ID format"})
		return
	}

	// Reason is optional; an empty or absent body is fine.
	var req rejectRequest
	_ = c.ShouldBindJSON(&req)

	booking, err := h.inspectionService.Reject(c.Request.Context(), id, req.Reason)
	if err != nil {
		h.writeTransitionError(c, err)
		return
	}

	h.enqueueEmail(booking.BuyerEmail, "Inspection Request Rejected",
		"Your inspection request for "+booking.PropertyAddress+" could not be approved. The inspection fee will be refunded.")
	c.JSON(http.StatusOK, gin.H{"data": h.decorate(booking)})
}

// RecordAction handles POST /v1/admin/inspections/:id/action, the relay for
// buyer- and seller-driven transitions.
func (h *InspectionHandler) RecordAction(c *gin.Context) {
	id, err := utils.ParseShortID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid inspection ID format"})
		return
	}

	var action services.PartyAction
	if err := c.ShouldBindJSON(&action); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	booking, err := h.inspectionService.RecordPartyAction(c.Request.Context(), id, action)
	if err != nil {
		h.writeTransitionError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": h.decorate(booking)})
}

// GetStatusModel handles GET /v1/admin/inspections/status-model. It serves
// the full status metadata table so the console renders labels, badges and
// action availability without hardcoding any of it.
func (h *InspectionHandler) GetStatusModel(c *gin.Context) {
	type statusEntry struct {
		Status      models.InspectionStatus   `json:"status"`
		Label       string                    `json:"label"`
		Description string                    `json:"description"`
		Stage       models.InspectionStage    `json:"stage"`
		Pending     models.PendingParty       `json:"pendingResponseFrom"`
		CanApprove  bool                      `json:"canApprove"`
		CanReject   bool                      `json:"canReject"`
		Terminal    bool                      `json:"terminal"`
		Badge       models.StyleToken         `json:"badge"`
		Next        []models.InspectionStatus `json:"next"`
	}

	entries := make([]statusEntry, 0, len(models.AllInspectionStatuses))
	for _, status := range models.AllInspectionStatuses {
		var next []models.InspectionStatus
		for _, candidate := range models.AllInspectionStatuses {
			if models.CanTransition(status, candidate) {
				next = append(next, candidate)
			}
		}
		entries = append(entries, statusEntry{
			Status:      status,
			Label:       models.StatusLabel(status),
			Description: models.StatusDescription(status),
			Stage:       models.StageFor(status),
			Pending:     models.PendingPartyFor(status),
			CanApprove:  models.CanApprove(status),
			CanReject:   models.CanReject(status),
			Terminal:    models.IsTerminal(status),
			Badge:       models.BadgeStyle(status),
			Next:        next,
		})
	}

	stages := gin.H{}
	for _, stage := range []models.InspectionStage{models.StageInspection, models.StageNegotiation, models.StageLOI} {
		stages[string(stage)] = models.StageBadgeStyle(stage)
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"statuses": entries,
		"stages":   stages,
	}})
}

// decoratedBooking adds the presentation fields the console shows alongside
// the raw booking.
type decoratedBooking struct {
	*models.InspectionBooking
	DisplayStage models.InspectionStage `json:"displayStage"`
	StatusLabel  string                 `json:"statusLabel"`
	Description  string                 `json:"statusDescription"`
	CanApprove   bool                   `json:"canApprove"`
	CanReject    bool                   `json:"canReject"`
	Badge        models.StyleToken      `json:"badge"`
}

func (h *InspectionHandler) decorate(booking *models.InspectionBooking) decoratedBooking {
	return decoratedBooking{
		InspectionBooking: booking,
		DisplayStage:      booking.DisplayStage(),
		StatusLabel:       models.StatusLabel(booking.Status),
		Description:       models.StatusDescription(booking.Status),
		CanApprove:        models.CanApprove(booking.Status),
		CanReject:         models.CanReject(booking.Status),
		Badge:             models.BadgeStyle(booking.Status),
	}
}

func (h *InspectionHandler) writeTransitionError(c *gin.Context, err error) {
	if errors.Is(err, services.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Inspection not found"})
		return
	}
	if services.IsIllegalTransition(err) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	// Validation problems (unknown status, missing reschedule slot or
	// counter offer) are the caller's fault; anything else is ours.
	if services.IsValidation(err) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update inspection"})
}

func (h *InspectionHandler) enqueueEmail(to, subject, body string) {
	if h.taskClient == nil || to == "" {
		return
	}
	task, err := tasks.NewEmailTask(to, subject, body)
	if err != nil {
		log.Printf("Failed to build email task: %v", err)
		return
	}
	if _, err := h.taskClient.Enqueue(task); err != nil {
		log.Printf("Failed to enqueue email task for %s: %v", to, err)
	}
}
