package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kriyptor/Market-Place-App/internal/apperr"
	"github.com/kriyptor/Market-Place-App/internal/domain"
	"github.com/kriyptor/Market-Place-App/internal/logger"
	"github.com/kriyptor/Market-Place-App/internal/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	DefaultPageLimit = 15
	MaxPageLimit     = 100
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" || tag == "-" {
			return f.Name
		}
		return tag
	})
	return v
}

// validateStruct runs the struct tags and turns failures into a coded
// validation error with one entry per field.
func validateStruct(in any, message string) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var errs validator.ValidationErrors
	if errors.As(err, &errs) {
		details := map[string]string{}
		for _, fieldErr := range errs {
			details[fieldErr.Field()] = validationMessage(fieldErr)
		}
		return apperr.Validation(message).WithDetails(details)
	}
	return apperr.Wrap(apperr.CodeValidation, err, message)
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "email":
		return "must be a valid email"
	case "oneof":
		return fmt.Sprintf("must be one of %s", fe.Param())
	}
	return "is invalid"
}

func parseObjectID(value, message string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(strings.TrimSpace(value))
	if err != nil {
		return primitive.NilObjectID, apperr.Validation(message)
	}
	return id, nil
}

// NewPage clamps 1-based paging input; zero or negative values fall back to
// the defaults.
func NewPage(number, limit int) domain.Page {
	if number < 1 {
		number = 1
	}
	if limit < 1 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return domain.Page{Number: number, Limit: limit}
}

// storeError maps repository failures onto the public taxonomy. Anything it
// does not recognise is logged and surfaced as an opaque internal error.
func storeError(ctx context.Context, log *logger.Logger, op string, err error) error {
	if err == nil {
		return nil
	}
	if typed := apperr.As(err); typed != nil {
		return typed
	}

	switch {
	case errors.Is(err, repository.ErrCartNotFound):
		return apperr.Wrap(apperr.CodeNotFound, err, "Cart not found")
	case errors.Is(err, repository.ErrLineNotFound):
		return apperr.Wrap(apperr.CodeNotFound, err, "Product not found in cart")
	case errors.Is(err, repository.ErrOrderNotFound):
		return apperr.Wrap(apperr.CodeNotFound, err, "Order not found")
	case errors.Is(err, repository.ErrProductNotFound):
		return apperr.Wrap(apperr.CodeNotFound, err, "Product not found!")
	case errors.Is(err, repository.ErrUserNotFound):
		return apperr.Wrap(apperr.CodeNotFound, err, "User does not exist!")
	case errors.Is(err, repository.ErrDuplicateEmail):
		return apperr.Wrap(apperr.CodeConflict, err, "User already exists!")
	case errors.Is(err, repository.ErrNotOwner):
		return apperr.Wrap(apperr.CodeForbidden, err, "Insufficient permissions")
	case errors.Is(err, repository.ErrConcurrentUpdate):
		return apperr.Wrap(apperr.CodeConflict, err, "Cart is being updated by another request, please retry")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return apperr.Wrap(apperr.CodeDependency, err, "request cancelled")
	}

	log.Error(ctx, op, err)
	return apperr.Internal(err, "Internal server error")
}
