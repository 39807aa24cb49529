package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/irisova/flower-order-reservation/internal/service"
)

// SlotHandler lists a seller's bookable delivery windows.  Listings are
// advisory; admission re-checks the window under lock.
type SlotHandler struct {
	Slots *service.SlotService
	Log   *logrus.Logger
}

// List returns the seller's open windows, optionally limited by ?days=N.
func (h *SlotHandler) List(c echo.Context) error {
	sellerID, err := pathID(c, "sellerId")
	if err != nil {
		return err
	}
	days := 0
	if q := c.QueryParam("days"); q != "" {
		if n, err := strconv.Atoi(q); err == nil {
			days = n
		}
	}
	windows, err := h.Slots.ListWindows(c.Request().Context(), sellerID, days)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"windows": windows})
}
