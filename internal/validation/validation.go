// Package validation provides input validation for the lessonpay API.
package validation

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
)

// MaxRequestSize is the maximum request body size (1MB)
const MaxRequestSize = 1 << 20 // 1MB

// MaxTitleLength limits request titles
const MaxTitleLength = 200

// MaxDescriptionLength limits request descriptions
const MaxDescriptionLength = 10000

var (
	// idRegex validates internal IDs: a short prefix, an underscore, and hex
	idRegex = regexp.MustCompile(`^[a-z]{2,8}_[0-9a-f]{24}$`)
	// payoutAccountRegex validates Stripe connected account IDs
	payoutAccountRegex = regexp.MustCompile(`^acct_[A-Za-z0-9]+$`)
)

// RequestSizeMiddleware limits request body size
func RequestSizeMiddleware(maxSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize)
		c.Next()
	}
}

// IsValidID checks whether a string looks like one of our generated IDs.
func IsValidID(id string) bool {
	return idRegex.MatchString(id)
}

// IsValidPayoutAccount checks whether a string looks like a Stripe
// connected account ID.
func IsValidPayoutAccount(acct string) bool {
	return payoutAccountRegex.MatchString(acct)
}

// SanitizeString removes dangerous characters and limits length
func SanitizeString(s string, maxLen int) string {
	s = strings.TrimSpace(s)
	if len(s) > maxLen {
		s = s[:maxLen]
	}
	s = strings.ReplaceAll(s, "\x00", "")
	return s
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}
	return e[0].Field + ": " + e[0].Message
}

// Validate runs the given validators and collects their errors
func Validate(validators ...func() *ValidationError) ValidationErrors {
	var errors ValidationErrors
	for _, v := range validators {
		if err := v(); err != nil {
			errors = append(errors, *err)
		}
	}
	return errors
}

// Required checks if a field is non-empty
func Required(field, value string) func() *ValidationError {
	return func() *ValidationError {
		if strings.TrimSpace(value) == "" {
			return &ValidationError{Field: field, Message: "is required"}
		}
		return nil
	}
}

// ValidID checks if a field is a well-formed internal ID
func ValidID(field, value string) func() *ValidationError {
	return func() *ValidationError {
		if value == "" {
			return nil // Use Required for required fields
		}
		if !IsValidID(value) {
			return &ValidationError{Field: field, Message: "must be a valid ID"}
		}
		return nil
	}
}

// ValidPayoutAccount checks if a field is a well-formed connected
// account ID
func ValidPayoutAccount(field, value string) func() *ValidationError {
	return func() *ValidationError {
		if value == "" {
			return nil // Use Required for required fields
		}
		if !IsValidPayoutAccount(value) {
			return &ValidationError{Field: field, Message: "must be a valid payout account ID"}
		}
		return nil
	}
}

// PositiveAmount checks that an amount in minor currency units is positive
func PositiveAmount(field string, value int64) func() *ValidationError {
	return func() *ValidationError {
		if value <= 0 {
			return &ValidationError{Field: field, Message: "must be greater than zero"}
		}
		return nil
	}
}

// MaxLength checks if a field exceeds max length
func MaxLength(field, value string, max int) func() *ValidationError {
	return func() *ValidationError {
		if len(value) > max {
			return &ValidationError{Field: field, Message: "exceeds maximum length"}
		}
		return nil
	}
}
