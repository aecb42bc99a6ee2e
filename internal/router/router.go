package router

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"

	"blogapi/internal/auth"
	"blogapi/internal/config"
	apperrors "blogapi/internal/errors"
	"blogapi/internal/handler"
	"blogapi/internal/logger"
	"blogapi/internal/metrics"
	"blogapi/internal/validation"
)

const (
	msgNoCredentials = "Authentication credentials were not provided."
	msgBadToken      = "Given token not valid for any token type"
)

// Handlers groups the HTTP handlers mounted by Register.
type Handlers struct {
	Auth    *handler.AuthHandler
	Profile *handler.ProfileHandler
	Post    *handler.PostHandler
	Media   *handler.MediaHandler
}

// routes is the routing surface shared by *echo.Echo and *echo.Group.
type routes interface {
	GET(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
	POST(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
	PUT(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
	DELETE(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
}

// Register wires routes and middleware.
func Register(
	e *echo.Echo,
	cfg *config.Config,
	jwtService *auth.JWTService,
	h Handlers,
	m *metrics.Metrics,
	log *slog.Logger,
) {
	if log == nil {
		log = slog.Default()
	}

	e.HTTPErrorHandler = ErrorHandler(log)
	e.Validator = validation.New()

	e.Pre(middleware.RemoveTrailingSlash())
	if m != nil {
		e.Use(m.Middleware())
	}
	e.Use(middleware.RequestID())
	e.Use(logger.RequestLogger(log))
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.BodyLimit(bodyLimit(cfg)))

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	if m != nil {
		e.GET("/metrics", m.Handler())
	}
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	requireAuth := RequireAuth(jwtService)

	mount(e, h, requireAuth)
	mount(e.Group("/api"), h, requireAuth)
}

func mount(r routes, h Handlers, requireAuth echo.MiddlewareFunc) {
	// Public routes
	r.POST("/register", h.Auth.Register)
	r.POST("/login", h.Auth.Login)
	r.POST("/token/refresh", h.Auth.Refresh)
	r.POST("/logout", h.Auth.Logout)
	r.GET("/posts", h.Post.ListPosts)
	r.GET("/media/*", h.Media.ServeMedia)

	// Secured routes
	r.GET("/profile", h.Profile.GetProfile, requireAuth)
	r.PUT("/profile", h.Profile.UpdateProfile, requireAuth)
	r.POST("/posts", h.Post.CreatePost, requireAuth)
	r.GET("/posts/:id", h.Post.GetPost, requireAuth)
	r.PUT("/posts/:id", h.Post.UpdatePost, requireAuth)
	r.DELETE("/posts/:id", h.Post.DeletePost, requireAuth)
}

// RequireAuth validates the bearer access token and stores its claims under
// handler.CallerKey. Refresh tokens are rejected.
func RequireAuth(jwtService *auth.JWTService) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		ContextKey:  handler.CallerKey,
		TokenLookup: "header:" + echo.HeaderAuthorization + ":Bearer ",
		ParseTokenFunc: func(c echo.Context, token string) (interface{}, error) {
			return jwtService.ValidateAccessToken(token)
		},
		ErrorHandler: func(c echo.Context, err error) error {
			if !hasBearer(c.Request().Header.Get(echo.HeaderAuthorization)) {
				return apperrors.Unauthenticated(msgNoCredentials)
			}
			return apperrors.Unauthenticated(msgBadToken)
		},
	})
}

func hasBearer(header string) bool {
	const prefix = "bearer "
	return len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix)
}

// ErrorHandler renders errors as {"detail": ...}, or as a field map for
// validation failures. Server errors are logged and never echoed.
func ErrorHandler(log *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var status int
		var body interface{}

		var he *echo.HTTPError
		if errors.As(err, &he) {
			status = he.Code
			detail, ok := he.Message.(string)
			if !ok {
				detail = http.StatusText(he.Code)
			}
			body = apperrors.ErrorResponse{Detail: detail}
		} else {
			mapped := apperrors.MapErrorToHTTP(err)
			status, body = mapped.StatusCode, mapped.Body
		}

		if status >= http.StatusInternalServerError {
			log.ErrorContext(c.Request().Context(), "request failed",
				"error", err,
				"method", c.Request().Method,
				"path", c.Path(),
			)
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, body)
		}
		if err != nil {
			log.Error("write error response", "error", err)
		}
	}
}

// bodyLimit leaves a megabyte of headroom over the largest allowed upload.
func bodyLimit(cfg *config.Config) string {
	maxUpload := int64(5 << 20)
	if cfg != nil && cfg.Storage.MaxUploadBytes > 0 {
		maxUpload = cfg.Storage.MaxUploadBytes
	}
	return fmt.Sprintf("%dK", (maxUpload+1<<20)/1024)
}
