package usecase

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"rightskeeper/internal/domain"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// validationError converts the first validator failure into a domain error.
func validationError(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return &domain.ValidationError{Field: field, Message: "is required"}
	case "max":
		return &domain.ValidationError{Field: field, Message: fmt.Sprintf("must be at most %s characters", fe.Param())}
	default:
		return &domain.ValidationError{Field: field, Message: fmt.Sprintf("failed %q check", fe.Tag())}
	}
}

// Incident dates must fall in [earliestIncidentDate, latestIncidentDate).
var (
	earliestIncidentDate = time.Date(1900, time.January, 1, 0, 0, 0, 0, time.UTC)
	latestIncidentDate   = time.Date(2200, time.January, 1, 0, 0, 0, 0, time.UTC)
)

func checkIncidentDate(date time.Time) error {
	if date.Before(earliestIncidentDate) || !date.Before(latestIncidentDate) {
		return &domain.ValidationError{Field: "date", Message: "must be between 1900 and 2199"}
	}
	return nil
}
