package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/admin-console-api/internal/middleware"
	"github.com/noah-isme/admin-console-api/internal/models"
	"github.com/noah-isme/admin-console-api/internal/service"
	appErrors "github.com/noah-isme/admin-console-api/pkg/errors"
	"github.com/noah-isme/admin-console-api/pkg/response"
)

// AuthHandler wires HTTP endpoints to the auth and challenge services.
type AuthHandler struct {
	auth       *service.AuthService
	challenges *service.ChallengeService
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(auth *service.AuthService, challenges *service.ChallengeService) *AuthHandler {
	return &AuthHandler{auth: auth, challenges: challenges}
}

// Challenge godoc
// @Summary Generate a login challenge
// @Description Create a short-lived single-use challenge. Image challenges return the rendered picture; SMS/email challenges deliver the code out of band.
// @Tags Authentication
// @Produce json
// @Param channel query string false "Challenge channel (image, sms, email)" default(image)
// @Param destination query string false "Phone number or email address for out-of-band channels"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /auth/challenge [get]
func (h *AuthHandler) Challenge(c *gin.Context) {
	channel := c.DefaultQuery("channel", service.ChannelImage)
	destination := c.Query("destination")

	info, err := h.challenges.Generate(c.Request.Context(), channel, destination)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, info, nil)
}

// Login godoc
// @Summary Authenticate user
// @Description Authenticate with username, password and a challenge answer
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid login payload"))
		return
	}
	req.IP = c.ClientIP()
	req.UserAgent = c.GetHeader("User-Agent")

	pair, err := h.auth.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, pair, nil)
}

// Refresh godoc
// @Summary Refresh the token pair
// @Description Exchange a refresh token for a new token pair. Refresh tokens are single use.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.RefreshRequest true "Refresh payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req models.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid refresh payload"))
		return
	}

	pair, err := h.auth.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, pair, nil)
}

// Logout godoc
// @Summary Logout current session
// @Description Revoke the presented access token. Always succeeds.
// @Tags Authentication
// @Produce json
// @Success 204 "No Content"
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	h.auth.Logout(c.Request.Context(), c.GetHeader("Authorization"))
	response.NoContent(c)
}

// Me godoc
// @Summary Current user info
// @Description Return the identity embedded in the presented access token
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Security BearerAuth
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	claims, ok := middleware.CurrentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	response.JSON(c, http.StatusOK, models.UserInfo{
		ID:        claims.UserID,
		Username:  claims.Username,
		DeptID:    claims.DeptID,
		DataScope: claims.DataScope,
		Roles:     claims.Roles,
	}, nil)
}

// ChangePassword godoc
// @Summary Change own password
// @Description Update the password and invalidate every existing session
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.ChangePasswordRequest true "Password payload"
// @Success 204 "No Content"
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /auth/change-password [post]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	claims, ok := middleware.CurrentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid password payload"))
		return
	}

	if err := h.auth.ChangePassword(c.Request.Context(), claims.UserID, req); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}
