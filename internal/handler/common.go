// Package handler implements the HTTP layer: request decoding,
// validation, calling the services and mapping domain errors to status
// codes.  Handlers hold no business logic.
package handler

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/irisova/flower-order-reservation/internal/middleware"
	"github.com/irisova/flower-order-reservation/internal/repository"
	"github.com/irisova/flower-order-reservation/internal/service"
)

// Validator adapts go-playground/validator to Echo's Validator interface.
type Validator struct {
	v *validator.Validate
}

// NewValidator builds the request validator used by all handlers.
func NewValidator() *Validator {
	return &Validator{v: validator.New()}
}

// Validate implements echo.Validator.
func (cv *Validator) Validate(i interface{}) error {
	if err := cv.v.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

// actor extracts the authenticated caller injected by the JWT middleware.
func actor(c echo.Context) service.Actor {
	uid, _ := c.Get(middleware.CtxUserID).(uint64)
	role, _ := c.Get(middleware.CtxRole).(string)
	return service.Actor{UserID: uid, Role: role}
}

// fail translates a service error into a JSON error response.  Sentinel
// domain errors map to their natural status codes; anything unexpected is
// logged and becomes a 500.
func fail(c echo.Context, log *logrus.Logger, err error) error {
	switch {
	case errors.Is(err, repository.ErrUserNotFound),
		errors.Is(err, repository.ErrSellerNotFound),
		errors.Is(err, repository.ErrProductNotFound),
		errors.Is(err, repository.ErrOrderNotFound),
		errors.Is(err, repository.ErrCartLineNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrEmailTaken),
		errors.Is(err, repository.ErrQuotaExhausted),
		errors.Is(err, repository.ErrSlotFull),
		errors.Is(err, repository.ErrInsufficientStock):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrQuotaNotSetToday),
		errors.Is(err, repository.ErrSellerBlocked),
		errors.Is(err, repository.ErrSlotUnavailable),
		errors.Is(err, repository.ErrUndeliverableDistrict),
		errors.Is(err, repository.ErrInvalidStatusTransition):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	default:
		log.WithError(err).WithField("path", c.Path()).Error("request failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}
