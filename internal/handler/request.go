package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"blogapi/internal/auth"
	apperrors "blogapi/internal/errors"
	"blogapi/internal/service"
)

// CallerKey is the echo context key holding the authenticated *auth.Claims.
const CallerKey = "user"

const multipartMemory = 8 << 20

// formValues is a flat view of a JSON, urlencoded or multipart body.
// A key that is present with a nil value was an explicit JSON null.
type formValues map[string]*string

// str returns the value for key, or "" when absent or null.
func (f formValues) str(key string) string {
	if v := f[key]; v != nil {
		return *v
	}
	return ""
}

// opt returns nil when key is absent. An explicit null reads as "".
func (f formValues) opt(key string) *string {
	v, ok := f[key]
	if !ok {
		return nil
	}
	if v == nil {
		empty := ""
		return &empty
	}
	return v
}

// listFields may also be sent as a JSON list of strings. They are stored comma-joined.
var listFields = map[string]bool{"tags": true}

const msgNotAString = "Not a valid string."

// readForm reads the named fields of the request body into formValues.
// Other keys are ignored. A JSON object or boolean for a named field is a
// ValidationError.
func readForm(c echo.Context, fields ...string) (formValues, error) {
	req := c.Request()
	ctype := req.Header.Get(echo.HeaderContentType)

	switch {
	case strings.HasPrefix(ctype, echo.MIMEApplicationJSON):
		return readJSON(req.Body, fields)
	case strings.HasPrefix(ctype, echo.MIMEMultipartForm):
		if err := req.ParseMultipartForm(multipartMemory); err != nil {
			return nil, echo.NewHTTPError(http.StatusBadRequest, "Multipart form parse error - "+err.Error())
		}
	case strings.HasPrefix(ctype, echo.MIMEApplicationForm):
		if err := req.ParseForm(); err != nil {
			return nil, echo.NewHTTPError(http.StatusBadRequest, "Form parse error - "+err.Error())
		}
	default:
		if req.ContentLength == 0 {
			return formValues{}, nil
		}
		return nil, echo.NewHTTPError(http.StatusUnsupportedMediaType,
			fmt.Sprintf("Unsupported media type %q in request.", ctype))
	}

	out := make(formValues, len(fields))
	for _, key := range fields {
		if values, ok := req.PostForm[key]; ok && len(values) > 0 {
			v := values[0]
			out[key] = &v
		}
	}
	return out, nil
}

func readJSON(body io.Reader, fields []string) (formValues, error) {
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(body).Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return formValues{}, nil
		}
		return nil, echo.NewHTTPError(http.StatusBadRequest, "JSON parse error - "+err.Error())
	}

	out := make(formValues, len(fields))
	verr := &apperrors.ValidationError{}
	for _, key := range fields {
		value, ok := raw[key]
		if !ok {
			continue
		}
		text, ok := jsonScalar(key, value)
		if !ok {
			verr.Add(key, msgNotAString)
			continue
		}
		out[key] = text
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	return out, nil
}

// jsonScalar converts a JSON string or number to text. null yields nil.
// ok is false for objects, booleans and lists outside listFields.
func jsonScalar(key string, value json.RawMessage) (text *string, ok bool) {
	trimmed := bytes.TrimSpace(value)
	if len(trimmed) == 0 {
		return nil, false
	}

	switch trimmed[0] {
	case 'n':
		return nil, true
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return nil, false
		}
		return &s, true
	case '[':
		if !listFields[key] {
			return nil, false
		}
		var list []string
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, false
		}
		joined := strings.Join(list, ",")
		return &joined, true
	case '{', 't', 'f':
		return nil, false
	}

	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return nil, false
	}
	s := n.String()
	return &s, true
}

// formUpload opens the multipart file named field. It returns a nil upload
// when the request carries none. The returned func closes the file.
func formUpload(c echo.Context, form formValues, field string) (*service.Upload, func(), error) {
	noop := func() {}

	fh, err := c.FormFile(field)
	if err != nil {
		if !errors.Is(err, http.ErrMissingFile) && !errors.Is(err, http.ErrNotMultipart) {
			return nil, noop, echo.NewHTTPError(http.StatusBadRequest, "Multipart form parse error - "+err.Error())
		}
		if form.str(field) != "" {
			return nil, noop, apperrors.NewValidationError(field,
				"The submitted data was not a file. Check the encoding type on the form.")
		}
		return nil, noop, nil
	}

	f, err := fh.Open()
	if err != nil {
		return nil, noop, fmt.Errorf("open upload: %w", err)
	}
	return &service.Upload{Filename: fh.Filename, Size: fh.Size, Content: f}, func() { _ = f.Close() }, nil
}

// callerID returns the authenticated user's id set by the JWT middleware.
func callerID(c echo.Context) (uint, error) {
	claims, ok := c.Get(CallerKey).(*auth.Claims)
	if !ok || claims == nil || claims.UserID == 0 {
		return 0, apperrors.Unauthenticated("Authentication credentials were not provided.")
	}
	return claims.UserID, nil
}

// pathID parses the :id route parameter. Non-numeric ids do not match any post.
func pathID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 0)
	if err != nil || id == 0 {
		return 0, apperrors.NotFound("Not found.")
	}
	return uint(id), nil
}
