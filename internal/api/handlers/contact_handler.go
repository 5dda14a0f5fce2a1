package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/KHABI-TEQ/console-admin/internal/api/middleware"
	"github.com/KHABI-TEQ/console-admin/internal/models"
	"github.com/KHABI-TEQ/console-admin/internal/services"
	"github.com/KHABI-TEQ/console-admin/internal/utils"
)

// ContactHandler handles admin requests for the contact book.
type ContactHandler struct {
	contactService services.IContactService
}

// NewContactHandler creates a new ContactHandler.
func NewContactHandler(contactService services.IContactService) *ContactHandler {
	return &ContactHandler{contactService: contactService}
}

// ListContacts handles GET /v1/admin/contacts.
func (h *ContactHandler) ListContacts(c *gin.Context) {
	page := 0
	limit := 0
	if pageStr := c.Query("page"); pageStr != "" {
		p, err := strconv.Atoi(pageStr)
		if err != nil || p <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid page parameter"})
			return
		}
		page = p
	}
	if limitStr := c.Query("limit"); limitStr != "" {
		l, err := strconv.Atoi(limitStr)
		if err != nil || l <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit parameter"})
			return
		}
		limit = l
	}

	result, err := h.contactService.List(c.Request.Context(), c.Query("search"), page, limit)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list contacts"})
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetContact handles GET /v1/admin/contacts/:id.
func (h *ContactHandler) GetContact(c *gin.Context) {
	id, err := utils.ParseShortID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid contact ID format"})
		return
	}

	contact, err := h.contactService.FindByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Contact not found"})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve contact"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": contact})
}

type createContactRequest struct {
	Email   string `json:"email" binding:"required,email"`
	Name    string `json:"name" binding:"required"`
	Phone   string `json:"phone"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

// CreateContact handles POST /v1/admin/contacts.
func (h *ContactHandler) CreateContact(c *gin.Context) {
	var req createContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	contact := &models.Contact{
		Email:   req.Email,
		Name:    req.Name,
		Phone:   req.Phone,
		Subject: req.Subject,
		Message: req.Message,
	}
	if err := h.contactService.Create(c.Request.Context(), contact); err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create contact"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": contact})
}

type addNoteRequest struct {
	Body string `json:"body" binding:"required"`
}

// AddNote handles POST /v1/admin/contacts/:id/notes.
func (h *ContactHandler) AddNote(c *gin.Context) {
	id, err := utils.ParseShortID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid contact ID format"})
		return
	}

	adminID, err := utils.ParseShortID(c.GetString(middleware.ContextKeyAdminID))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid session"})
		return
	}

	var req addNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	if err := h.contactService.AddNote(c.Request.Context(), id, adminID, req.Body); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Contact not found"})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add note"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"added": true}})
}

// DeleteContact handles DELETE /v1/admin/contacts/:id.
func (h *ContactHandler) DeleteContact(c *gin.Context) {
	id, err := utils.ParseShortID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid contact ID format"})
		return
	}

	if err := h.contactService.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Contact not found"})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete contact"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"deleted": true}})
}
