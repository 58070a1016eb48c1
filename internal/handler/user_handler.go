package handler

import (
	"net/http"
	"time"

	"assetdesk/internal/access"
	"assetdesk/internal/middleware"
	"assetdesk/internal/service"
	"assetdesk/pkg/pagination"
	"assetdesk/pkg/response"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	userService service.UserService
	gate        *middleware.Gate
}

// NewUserHandler sets up the routing dependencies for auth and user endpoints
func NewUserHandler(userService service.UserService, gate *middleware.Gate) *UserHandler {
	useJSONFieldNames()
	return &UserHandler{userService: userService, gate: gate}
}

// RegisterRoutes binds the endpoints to the gin Engine or RouterGroup
func (h *UserHandler) RegisterRoutes(router *gin.RouterGroup) {
	authGroup := router.Group("/auth")
	{
		// Public routes
		authGroup.POST("/signup", h.Signup)
		authGroup.POST("/login", h.Login)

		authGroup.POST("/logout", h.gate.Require(access.OpLogout), h.Logout)
		authGroup.GET("/me", h.gate.Require(access.OpCurrentUser), h.GetMe)
	}

	router.GET("/inventory/users", h.gate.Require(access.OpListUsers), h.ListUsers)
}

// Signup handles POST /auth/signup
// @Summary      Sign up
// @Description  Registers a user. The role is derived from the email domain and cannot be changed later.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.SignupRequest  true  "Signup Payload"
// @Success      201      {object}  response.Response{data=service.UserResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /auth/signup [post]
func (h *UserHandler) Signup(c *gin.Context) {
	var req service.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	user, err := h.userService.Signup(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success("User created", user))
}

// Login handles POST /auth/login to authenticate and return a JWT token
// @Summary      Login user
// @Description  Authenticates a user by username and password, returning a JWT token carrying the role
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.LoginRequest   true  "Login Credentials"
// @Success      200      {object}  response.Response{data=service.TokenResponse}
// @Failure      400      {object}  response.Response
// @Failure      401      {object}  response.Response
// @Router       /auth/login [post]
func (h *UserHandler) Login(c *gin.Context) {
	var req service.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	tokenRes, err := h.userService.Login(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	middleware.SetTokenCookie(c, tokenRes.AccessToken, time.Duration(tokenRes.ExpiresIn)*time.Second)

	c.JSON(http.StatusOK, response.Success("Login successful", tokenRes))
}

// Logout handles POST /auth/logout. Tokens are stateless; only the cookie is cleared.
// @Summary      Logout user
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200      {object}  response.Response
// @Failure      401      {object}  response.Response
// @Router       /auth/logout [post]
func (h *UserHandler) Logout(c *gin.Context) {
	middleware.ClearTokenCookie(c)
	c.JSON(http.StatusOK, response.Success("Logged out", nil))
}

// GetMe handles GET /auth/me to return current authenticated user based on JWT
// @Summary      Get current user
// @Description  Get the currently authenticated user
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200      {object}  response.Response{data=service.UserResponse}
// @Failure      401      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /auth/me [get]
func (h *UserHandler) GetMe(c *gin.Context) {
	user, err := h.userService.GetUserByID(c.Request.Context(), callerID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success("Current user", user))
}

// ListUsers handles GET /inventory/users and extracts pagination controls
// @Summary      List users
// @Description  Retrieves a paginated list of users without password hashes
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        page   query     int  false  "Page number (default 1)"
// @Param        limit  query     int  false  "Number of items per page (default 20)"
// @Success      200    {object}  response.Response{data=response.Paged}
// @Failure      403    {object}  response.Response
// @Router       /inventory/users [get]
func (h *UserHandler) ListUsers(c *gin.Context) {
	p := pagination.Parse(c)

	users, total, err := h.userService.ListUsers(c.Request.Context(), p.Page, p.Limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success("Users retrieved", response.Paged{
		Items: users,
		Total: total,
		Page:  p.Page,
		Limit: p.Limit,
	}))
}
