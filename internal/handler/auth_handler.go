package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"blogapi/internal/service"
)

// AuthHandler handles registration and token endpoints.
type AuthHandler struct {
	authService service.AuthService
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(authService service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// RegisterRequest documents the registration body. Multipart requests may
// also carry a profile_picture file.
type RegisterRequest struct {
	Username  string `json:"username" example:"alice"`
	Email     string `json:"email" example:"alice@example.com"`
	Password  string `json:"password" example:"pw1"`
	Bio       string `json:"bio"`
	Location  string `json:"location"`
	BirthDate string `json:"birth_date" example:"1990-04-17"`
}

// LoginRequest represents a login request.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RefreshRequest carries a refresh token for the refresh and logout endpoints.
type RefreshRequest struct {
	Refresh string `json:"refresh" validate:"required"`
}

// AccessResponse is returned by the refresh endpoint.
type AccessResponse struct {
	Access string `json:"access"`
}

// Register godoc
// @Summary Register a new user
// @Tags auth
// @Accept json,mpfd
// @Produce json
// @Param request body RegisterRequest true "Registration data"
// @Param profile_picture formData file false "Profile picture"
// @Success 201 {object} model.User
// @Failure 400 {object} errors.FieldErrors
// @Failure 500 {object} errors.ErrorResponse
// @Router /register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	form, err := readForm(c, "username", "email", "password", "bio", "location", "birth_date", "profile_picture")
	if err != nil {
		return err
	}

	upload, closeUpload, err := formUpload(c, form, "profile_picture")
	if err != nil {
		return err
	}
	defer closeUpload()

	user, err := h.authService.Register(c.Request().Context(), service.RegisterInput{
		Username:       form.str("username"),
		Email:          form.str("email"),
		Password:       form.str("password"),
		Bio:            form.str("bio"),
		Location:       form.str("location"),
		BirthDate:      form.str("birth_date"),
		ProfilePicture: upload,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, user)
}

// Login godoc
// @Summary Obtain an access/refresh token pair
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login credentials"
// @Success 200 {object} auth.TokenPair
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	form, err := readForm(c, "username", "password")
	if err != nil {
		return err
	}

	pair, err := h.authService.Login(c.Request().Context(), form.str("username"), form.str("password"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, pair)
}

// Refresh godoc
// @Summary Exchange a refresh token for a new access token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RefreshRequest true "Refresh token"
// @Success 200 {object} AccessResponse
// @Failure 400 {object} errors.FieldErrors
// @Failure 401 {object} errors.ErrorResponse
// @Router /token/refresh [post]
func (h *AuthHandler) Refresh(c echo.Context) error {
	req, err := bindRefresh(c)
	if err != nil {
		return err
	}

	access, err := h.authService.RefreshToken(c.Request().Context(), req.Refresh)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, AccessResponse{Access: access})
}

// Logout godoc
// @Summary Revoke a refresh token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RefreshRequest true "Refresh token"
// @Success 200 {object} errors.ErrorResponse
// @Failure 400 {object} errors.FieldErrors
// @Failure 401 {object} errors.ErrorResponse
// @Router /logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	req, err := bindRefresh(c)
	if err != nil {
		return err
	}

	if err := h.authService.Logout(c.Request().Context(), req.Refresh); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]string{
		"detail": "Successfully logged out.",
	})
}

func bindRefresh(c echo.Context) (*RefreshRequest, error) {
	var req RefreshRequest
	if err := c.Bind(&req); err != nil {
		return nil, err
	}
	if err := c.Validate(&req); err != nil {
		return nil, err
	}
	return &req, nil
}
