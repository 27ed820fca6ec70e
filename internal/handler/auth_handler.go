package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/palace-events/events-api/internal/dto"
	"github.com/palace-events/events-api/internal/models"
	appErrors "github.com/palace-events/events-api/pkg/errors"
	"github.com/palace-events/events-api/pkg/icalfeed"
	"github.com/palace-events/events-api/pkg/response"
)

type authenticator interface {
	Register(ctx context.Context, req models.RegisterRequest) (*models.LoginResponse, error)
	Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error)
	SetRole(ctx context.Context, viewer models.Viewer, userID string, role models.UserRole) (*models.UserInfo, error)
}

type profileLoader interface {
	Profile(ctx context.Context, viewer models.Viewer) (*dto.Profile, error)
}

type personalFeeds interface {
	Link(viewer models.Viewer, baseURL string) (*dto.FeedLink, error)
	Personal(ctx context.Context, token string) ([]byte, error)
}

// AuthHandler wires account, profile and subscription endpoints.
type AuthHandler struct {
	auth     authenticator
	profiles profileLoader
	feeds    personalFeeds
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(auth authenticator, profiles profileLoader, feeds personalFeeds) *AuthHandler {
	return &AuthHandler{auth: auth, profiles: profiles, feeds: feeds}
}

// Register godoc
// @Summary Create account
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.RegisterRequest true "Registration payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid registration payload"))
		return
	}
	res, err := h.auth.Register(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, res)
}

// Login godoc
// @Summary Authenticate user
// @Description Authenticate user by email and password
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

	res, err := h.auth.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, res, nil)
}

// SetRole godoc
// @Summary Change a user's role
// @Description Staff only.
// @Tags Authentication
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Param payload body models.UpdateRoleRequest true "New role"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /users/{id}/role [put]
func (h *AuthHandler) SetRole(c *gin.Context) {
	var req models.UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid role payload"))
		return
	}
	info, err := h.auth.SetRole(c.Request.Context(), viewerFromContext(c), c.Param("id"), req.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, info, nil)
}

// Me godoc
// @Summary Current user profile
// @Description Account with role, events attending and events created.
// @Tags Authentication
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	profile, err := h.profiles.Profile(c.Request.Context(), viewerFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profile, nil)
}

// FeedLink godoc
// @Summary Personal calendar subscription URL
// @Tags Authentication
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /me/calendar-feed [get]
func (h *AuthHandler) FeedLink(c *gin.Context) {
	link, err := h.feeds.Link(viewerFromContext(c), baseURL(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, link, nil)
}

// Feed godoc
// @Summary Personal calendar subscription
// @Description Attending events of the token holder. The token is issued by /me/calendar-feed.
// @Tags Authentication
// @Produce text/calendar
// @Param token path string true "Feed token followed by .ics"
// @Success 200 {string} string
// @Failure 401 {object} response.Envelope
// @Router /feeds/{token} [get]
func (h *AuthHandler) Feed(c *gin.Context) {
	token := strings.TrimSuffix(c.Param("token"), ".ics")
	body, err := h.feeds.Personal(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Data(http.StatusOK, icalfeed.ContentType, body)
}
