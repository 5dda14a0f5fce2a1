package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/KHABI-TEQ/console-admin/internal/api/middleware"
	"github.com/KHABI-TEQ/console-admin/internal/auth"
	"github.com/KHABI-TEQ/console-admin/internal/captcha"
	"github.com/KHABI-TEQ/console-admin/internal/config"
	"github.com/KHABI-TEQ/console-admin/internal/models"
	"github.com/KHABI-TEQ/console-admin/internal/services"
	"github.com/KHABI-TEQ/console-admin/internal/utils"
)

// AdminHandler handles authentication and operator account management.
type AdminHandler struct {
	cfg             *config.Config
	adminService    services.IAdminService
	settingsService services.ISettingsService
	verifier        captcha.ITurnstileVerifier
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(cfg *config.Config, adminService services.IAdminService, settingsService services.ISettingsService, verifier captcha.ITurnstileVerifier) *AdminHandler {
	return &AdminHandler{
		cfg:             cfg,
		adminService:    adminService,
		settingsService: settingsService,
		verifier:        verifier,
	}
}

type loginRequest struct {
	Email        string `json:"email" binding:"required"`
	Password     string `json:"password" binding:"required"`
	CaptchaToken string `json:"captchaToken"`
}

// Login handles POST /v1/auth/login. On success the JWT goes out both in
// the body and as an HTTP-only session cookie.
func (h *AdminHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	if h.verifier != nil {
		ok, err := h.verifier.Verify(c.Request.Context(), req.CaptchaToken, c.ClientIP())
		if err != nil || !ok {
			c.JSON(http.StatusForbidden, gin.H{"error": "Captcha verification failed"})
			return
		}
	}

	admin, err := h.adminService.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Login failed"})
		return
	}

	token, err := auth.GenerateJWT(admin.ID, admin.SuperAdmin, h.cfg.JwtSecret, h.cfg.JwtTTL)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Login failed"})
		return
	}

	c.SetCookie(h.cfg.SessionCookie, token, int(h.cfg.JwtTTL.Seconds()), "/", "", true, true)
	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"token": token,
		"admin": admin,
	}})
}

// Logout handles POST /v1/admin/logout by clearing the session cookie.
func (h *AdminHandler) Logout(c *gin.Context) {
	c.SetCookie(h.cfg.SessionCookie, "", -1, "/", "", true, true)
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"loggedOut": true}})
}

// Profile handles GET /v1/admin/profile.
func (h *AdminHandler) Profile(c *gin.Context) {
	adminID := c.GetString(middleware.ContextKeyAdminID)
	id, err := utils.ParseShortID(adminID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid session"})
		return
	}

	admin, err := h.adminService.FindByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Account no longer exists"})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load profile"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": admin})
}

type updateProfileRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Password  string `json:"password" binding:"omitempty,min=12"`
}

// UpdateProfile handles PUT /v1/admin/profile.
func (h *AdminHandler) UpdateProfile(c *gin.Context) {
	adminID := c.GetString(middleware.ContextKeyAdminID)
	id, err := utils.ParseShortID(adminID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid session"})
		return
	}

	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	admin, err := h.adminService.UpdateProfile(c.Request.Context(), id, req.FirstName, req.LastName, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Account no longer exists"})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update profile"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": admin})
}

// ListAdmins handles GET /v1/admin/admins. Super admin only.
func (h *AdminHandler) ListAdmins(c *gin.Context) {
	admins, err := h.adminService.List(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list admins"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": admins})
}

type createAdminRequest struct {
	Email      string `json:"email" binding:"required,email"`
	FirstName  string `json:"firstName" binding:"required"`
	LastName   string `json:"lastName" binding:"required"`
	Password   string `json:"password" binding:"required,min=12"`
	SuperAdmin bool   `json:"superAdmin"`
}

// CreateAdmin handles POST /v1/admin/admins. Super admin only.
func (h *AdminHandler) CreateAdmin(c *gin.Context) {
	var req createAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	admin := &models.Admin{
		Email:      req.Email,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		SuperAdmin: req.SuperAdmin,
	}
	if err := h.adminService.Create(c.Request.Context(), admin, req.Password); err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create admin"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": admin})
}

// DeleteAdmin handles DELETE /v1/admin/admins/:id. Super admin only; an
// admin cannot delete their own account.
func (h *AdminHandler) DeleteAdmin(c *gin.Context) {
	id, err := utils.ParseShortID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid admin ID format"})
		return
	}
	if c.GetString(middleware.ContextKeyAdminID) == id.String() {
		c.JSON(http.StatusConflict, gin.H{"error": "Cannot delete your own account"})
		return
	}

	if err := h.adminService.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Admin not found"})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete admin"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"deleted": true}})
}

// GetSettings handles GET /v1/admin/settings.
func (h *AdminHandler) GetSettings(c *gin.Context) {
	entries, err := h.settingsService.List(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load settings"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": entries})
}

// GetPublicSettings handles GET /v1/settings, the unauthenticated subset
// the console needs before login (e.g. the Turnstile site key).
func (h *AdminHandler) GetPublicSettings(c *gin.Context) {
	entries, err := h.settingsService.ListPublic(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load settings"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": entries})
}

type setSettingRequest struct {
	Key    string      `json:"key" binding:"required"`
	Value  interface{} `json:"value" binding:"required"`
	Public bool        `json:"public"`
}

// SetSetting handles PUT /v1/admin/settings. Super admin only.
func (h *AdminHandler) SetSetting(c *gin.Context) {
	var req setSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	if err := h.settingsService.Set(c.Request.Context(), req.Key, req.Value, req.Public); err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save setting"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"key": req.Key}})
}
