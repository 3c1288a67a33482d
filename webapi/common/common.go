// Package common holds the response envelope, RFC 9457 problem rendering and request
// binding shared by every handler package.
package common

import (
	"bytes"
	"encoding/json"
	"errors"
	"reflect"
	"strconv"
	"strings"

	"github.com/amirasaad/cashfake/pkg/domain"
	authsvc "github.com/amirasaad/cashfake/pkg/service/auth"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// RetryAfterSeconds is sent with 503 responses caused by transient store failures.
const RetryAfterSeconds = 1

// Response defines the standard API response structure for success cases.
type Response struct {
	Status  int    `json:"status"`         // HTTP status code
	Message string `json:"message"`        // Human-readable explanation
	Data    any    `json:"data,omitempty"` // Response data
}

// ProblemDetails follows RFC 9457 Problem Details for HTTP APIs.
type ProblemDetails struct {
	Type     string `json:"type,omitempty"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
	// Errors maps an input field to what is wrong with it.
	Errors map[string]string `json:"errors,omitempty"`
}

// StatusFor maps an error to the HTTP status the boundary answers with.
func StatusFor(err error) int {
	if errors.Is(err, authsvc.ErrUnauthorized) {
		return fiber.StatusUnauthorized
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	switch domain.KindOf(err) {
	case domain.KindValidation:
		return fiber.StatusBadRequest
	case domain.KindNotFound:
		return fiber.StatusNotFound
	case domain.KindSuspended:
		return fiber.StatusForbidden
	case domain.KindInsufficientBalance, domain.KindInvariantViolation:
		return fiber.StatusUnprocessableEntity
	case domain.KindConflict:
		return fiber.StatusConflict
	case domain.KindTransientStore:
		return fiber.StatusServiceUnavailable
	}
	return fiber.StatusInternalServerError
}

// ProblemDetailsJSON writes err as application/problem+json.
//
// opts may carry a string (the detail) and an int (the status). Without an explicit status
// it is derived from err. Classified errors contribute their message as the detail and
// their field to Errors; the text of unclassified errors is never written.
func ProblemDetailsJSON(c *fiber.Ctx, title string, err error, opts ...any) error {
	pd := ProblemDetails{
		Type:     "about:blank",
		Title:    title,
		Instance: c.OriginalURL(),
	}
	for _, opt := range opts {
		switch v := opt.(type) {
		case string:
			pd.Detail = v
		case int:
			pd.Status = v
		}
	}
	if pd.Status == 0 {
		pd.Status = fiber.StatusInternalServerError
		if err != nil {
			pd.Status = StatusFor(err)
		}
	}
	if de, ok := domain.AsError(err); ok {
		if pd.Detail == "" {
			pd.Detail = de.Message
		}
		if de.Field != "" {
			pd.Errors = map[string]string{de.Field: de.Message}
		}
		if de.Kind == domain.KindTransientStore {
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(RetryAfterSeconds))
		}
	} else if fe := (*fiber.Error)(nil); errors.As(err, &fe) && pd.Detail == "" {
		pd.Detail = fe.Message
	}
	c.Set(fiber.HeaderContentType, "application/problem+json")
	return c.Status(pd.Status).JSON(pd)
}

// ErrorResponseJSON writes a problem with a fixed status and either a detail string or a
// map of field errors.
func ErrorResponseJSON(c *fiber.Ctx, status int, title string, detail any) error {
	pd := ProblemDetails{
		Type:     "about:blank",
		Title:    title,
		Status:   status,
		Instance: c.OriginalURL(),
	}
	switch d := detail.(type) {
	case string:
		pd.Detail = d
	case map[string]string:
		pd.Errors = d
	}
	c.Set(fiber.HeaderContentType, "application/problem+json")
	return c.Status(status).JSON(pd)
}

// SuccessResponseJSON writes the standard envelope.
func SuccessResponseJSON(c *fiber.Ctx, status int, message string, data any) error {
	return c.Status(status).JSON(Response{Status: status, Message: message, Data: data})
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report fields by their wire names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, key := range []string{"json", "query"} {
			name := strings.SplitN(f.Tag.Get(key), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return ""
	})
	return v
}

// BindAndValidate parses the request body into T and validates it.
// When it returns a nil *T the problem response has already been written and the
// returned error is the result of writing it.
func BindAndValidate[T any](c *fiber.Ctx) (*T, error) {
	var input T
	if err := c.BodyParser(&input); err != nil {
		return nil, ErrorResponseJSON(c, fiber.StatusBadRequest, "Invalid request body", "Request body could not be parsed")
	}
	if err := validate.Struct(input); err != nil {
		return nil, validationProblem(c, err)
	}
	return &input, nil
}

// BindQuery is BindAndValidate for query parameters.
func BindQuery[T any](c *fiber.Ctx) (*T, error) {
	var input T
	if err := c.QueryParser(&input); err != nil {
		return nil, ErrorResponseJSON(c, fiber.StatusBadRequest, "Invalid query", "Query parameters could not be parsed")
	}
	if err := validate.Struct(input); err != nil {
		return nil, validationProblem(c, err)
	}
	return &input, nil
}

func validationProblem(c *fiber.Ctx, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return ErrorResponseJSON(c, fiber.StatusBadRequest, "Validation failed", "Request is invalid")
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = validationMessage(fe)
	}
	return ErrorResponseJSON(c, fiber.StatusBadRequest, "Validation failed", fields)
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "max":
		return "Must be at most " + fe.Param() + " characters"
	case "email":
		return "Please enter a valid email"
	case "uuid":
		return "Must be a valid UUID"
	case "oneof":
		return "Must be one of: " + fe.Param()
	}
	return "Invalid value"
}

// RequireAccountID returns the account id of the verified session. When ok is false the
// problem response has already been written and err is the result of writing it.
func RequireAccountID(c *fiber.Ctx, authSvc *authsvc.Service) (id uuid.UUID, ok bool, err error) {
	token, isToken := c.Locals("user").(*jwt.Token)
	if !isToken {
		return uuid.Nil, false, ProblemDetailsJSON(c, "Unauthorized", nil, "missing user context", fiber.StatusUnauthorized)
	}
	id, err = authSvc.GetCurrentAccountID(token)
	if err != nil {
		return uuid.Nil, false, ProblemDetailsJSON(c, "Unauthorized", err, "invalid session", fiber.StatusUnauthorized)
	}
	return id, true, nil
}

// AmountInput accepts an amount written either as a JSON number or as a string, and keeps
// its literal text so no precision is lost before parsing.
type AmountInput string

func (a *AmountInput) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*a = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = AmountInput(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*a = AmountInput(n.String())
	return nil
}
