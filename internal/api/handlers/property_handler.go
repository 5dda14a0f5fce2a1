package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"

	"github.com/KHABI-TEQ/console-admin/internal/models"
	"github.com/KHABI-TEQ/console-admin/internal/services"
	"github.com/KHABI-TEQ/console-admin/internal/storage"
	"github.com/KHABI-TEQ/console-admin/internal/tasks"
	"github.com/KHABI-TEQ/console-admin/internal/utils"
)

// How long to wait after issuing an upload URL before the image worker
// fetches the object.
const processDelay = 2 * time.Minute

// PropertyHandler handles admin requests for property briefs.
type PropertyHandler struct {
	propertyService services.IPropertyService
	storageService  storage.IS3Storage
	taskClient      *asynq.Client
}

// NewPropertyHandler creates a new PropertyHandler.
func NewPropertyHandler(propertyService services.IPropertyService, storageService storage.IS3Storage, taskClient *asynq.Client) *PropertyHandler {
	return &PropertyHandler{
		propertyService: propertyService,
		storageService:  storageService,
		taskClient:      taskClient,
	}
}

// ListProperties handles GET /v1/admin/properties.
func (h *PropertyHandler) ListProperties(c *gin.Context) {
	filter := models.PropertyFilter{
		Search: c.Query("search"),
	}
	if raw := c.Query("state"); raw != "" {
		filter.State = models.PropertyState(raw)
	}
	if raw := c.Query("brief_type"); raw != "" {
		filter.BriefType = models.BriefType(raw)
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

	result, err := h.propertyService.List(c.Request.Context(), filter)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list properties"})
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetProperty handles GET /v1/admin/properties/:id.
func (h *PropertyHandler) GetProperty(c *gin.Context) {
	id, err := utils.ParseShortID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid property ID format"})
		return
	}

	property, err := h.propertyService.FindByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Property not found"})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve property"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": property})
}

type propertyStateRequest struct {
	State  models.PropertyState `json:"state" binding:"required"`
	Reason string               `json:"reason"`
}

// SetPropertyState handles POST /v1/admin/properties/:id/state.
func (h *PropertyHandler) SetPropertyState(c *gin.Context) {
	id, err := utils.ParseShortID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid property ID format"})
		return
	}

	var req propertyStateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	property, err := h.propertyService.SetState(c.Request.Context(), id, req.State, req.Reason)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Property not found"})
			return
		}
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": property})
}

type uploadURLRequest struct {
	Filename    string `json:"filename" binding:"required"`
	ContentType string `json:"contentType" binding:"required"`
}

// RequestUploadURL handles POST /v1/admin/properties/:id/images. It returns
// a pre-signed PUT URL; the console uploads directly to S3 and the image
// worker picks the object up afterwards.
func (h *PropertyHandler) RequestUploadURL(c *gin.Context) {
	id, err := utils.ParseShortID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid property ID format"})
		return
	}

	var req uploadURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	property, err := h.propertyService.FindByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Property not found"})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve property"})
		return
	}

	url, key, err := h.storageService.GeneratePresignedPutURL(c.Request.Context(),
		property.OwnerID.String(), property.ID.String(), req.Filename, req.ContentType)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate upload URL"})
		return
	}

	if h.taskClient != nil {
		task, err := tasks.NewImageTask(key, property.ID)
		if err == nil {
			// Give the upload a head start before the worker looks for it.
			if _, err := h.taskClient.Enqueue(task, asynq.ProcessIn(processDelay)); err != nil {
				log.Printf("Failed to enqueue image task for %s: %v", key, err)
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"uploadUrl": url, "key": key}})
}

// DeleteProperty handles DELETE /v1/admin/properties/:id.
func (h *PropertyHandler) DeleteProperty(c *gin.Context) {
	id, err := utils.ParseShortID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid property ID format"})
		return
	}

	if err := h.propertyService.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Property not found"})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete property"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"deleted": true}})
}
