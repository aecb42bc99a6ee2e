package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"blogapi/internal/service"
)

// PostHandler handles blog post endpoints.
type PostHandler struct {
	postService service.PostService
}

// NewPostHandler creates a new post handler.
func NewPostHandler(postService service.PostService) *PostHandler {
	return &PostHandler{postService: postService}
}

// PostRequest documents the create and update body. Multipart requests may
// also carry an image file. Any author field is ignored.
type PostRequest struct {
	Title   string  `json:"title" example:"Hello"`
	Content string  `json:"content" example:"First post"`
	Tags    *string `json:"tags" example:"go,web"`
}

// ListPosts godoc
// @Summary List all posts
// @Tags posts
// @Produce json
// @Success 200 {array} model.Post
// @Router /posts [get]
func (h *PostHandler) ListPosts(c echo.Context) error {
	posts, err := h.postService.List(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, posts)
}

// CreatePost godoc
// @Summary Create a post authored by the caller
// @Tags posts
// @Accept json,mpfd
// @Produce json
// @Security BearerAuth
// @Param request body PostRequest true "Post data"
// @Param image formData file false "Post image"
// @Success 201 {object} model.Post
// @Failure 400 {object} errors.FieldErrors
// @Failure 401 {object} errors.ErrorResponse
// @Router /posts [post]
func (h *PostHandler) CreatePost(c echo.Context) error {
	userID, err := callerID(c)
	if err != nil {
		return err
	}

	in, closeUpload, err := readPostInput(c)
	if err != nil {
		return err
	}
	defer closeUpload()

	post, err := h.postService.Create(c.Request().Context(), userID, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, post)
}

// GetPost godoc
// @Summary Get a post
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 200 {object} model.Post
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /posts/{id} [get]
func (h *PostHandler) GetPost(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	post, err := h.postService.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, post)
}

// UpdatePost godoc
// @Summary Replace a post's title and content
// @Tags posts
// @Accept json,mpfd
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Param request body PostRequest true "Post data"
// @Param image formData file false "Replacement image"
// @Success 200 {object} model.Post
// @Failure 400 {object} errors.FieldErrors
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /posts/{id} [put]
func (h *PostHandler) UpdatePost(c echo.Context) error {
	userID, err := callerID(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}

	closeUpload := func() {}
	defer func() { closeUpload() }()

	post, err := h.postService.Update(c.Request().Context(), userID, id, func() (service.PostInput, error) {
		in, closeFn, err := readPostInput(c)
		closeUpload = closeFn
		return in, err
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, post)
}

// DeletePost godoc
// @Summary Delete a post
// @Tags posts
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 204
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /posts/{id} [delete]
func (h *PostHandler) DeletePost(c echo.Context) error {
	userID, err := callerID(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}

	if err := h.postService.Delete(c.Request().Context(), userID, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func readPostInput(c echo.Context) (service.PostInput, func(), error) {
	form, err := readForm(c, "title", "content", "tags", "image")
	if err != nil {
		return service.PostInput{}, func() {}, err
	}

	upload, closeUpload, err := formUpload(c, form, "image")
	if err != nil {
		return service.PostInput{}, closeUpload, err
	}

	return service.PostInput{
		Title:   form.str("title"),
		Content: form.str("content"),
		Tags:    form.opt("tags"),
		Image:   upload,
	}, closeUpload, nil
}
