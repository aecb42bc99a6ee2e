package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"blogapi/internal/service"
)

// ProfileHandler serves the caller's own profile.
type ProfileHandler struct {
	profileService service.ProfileService
}

// NewProfileHandler creates a new profile handler.
func NewProfileHandler(profileService service.ProfileService) *ProfileHandler {
	return &ProfileHandler{profileService: profileService}
}

// ProfileRequest documents the partial update body. Every field is optional.
type ProfileRequest struct {
	Bio       *string `json:"bio"`
	Location  *string `json:"location"`
	BirthDate *string `json:"birth_date" example:"1990-04-17"`
}

// GetProfile godoc
// @Summary Get the caller's profile
// @Tags profile
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.Profile
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /profile [get]
func (h *ProfileHandler) GetProfile(c echo.Context) error {
	userID, err := callerID(c)
	if err != nil {
		return err
	}

	profile, err := h.profileService.Get(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, profile)
}

// UpdateProfile godoc
// @Summary Partially update the caller's profile
// @Tags profile
// @Accept json,mpfd
// @Produce json
// @Security BearerAuth
// @Param request body ProfileRequest true "Fields to change"
// @Param profile_picture formData file false "New profile picture"
// @Success 200 {object} model.Profile
// @Failure 400 {object} errors.FieldErrors
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /profile [put]
func (h *ProfileHandler) UpdateProfile(c echo.Context) error {
	userID, err := callerID(c)
	if err != nil {
		return err
	}

	form, err := readForm(c, "bio", "location", "birth_date", "profile_picture")
	if err != nil {
		return err
	}

	upload, closeUpload, err := formUpload(c, form, "profile_picture")
	if err != nil {
		return err
	}
	defer closeUpload()

	profile, err := h.profileService.Update(c.Request().Context(), userID, service.ProfilePatch{
		Bio:            form.opt("bio"),
		Location:       form.opt("location"),
		BirthDate:      form.opt("birth_date"),
		ProfilePicture: upload,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, profile)
}
