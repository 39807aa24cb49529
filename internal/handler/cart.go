package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/irisova/flower-order-reservation/internal/model"
	"github.com/irisova/flower-order-reservation/internal/service"
)

// CartHandler serves the buyer's cart: reserving, extending and releasing
// stock holds.
type CartHandler struct {
	Cart *service.CartService
	Log  *logrus.Logger
}

type reserveRequest struct {
	ProductID uint64 `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
	Preorder  bool   `json:"preorder"`
}

// Reserve adds or replaces a cart line, holding stock for the TTL.
func (h *CartHandler) Reserve(c echo.Context) error {
	var req reserveRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	line, err := h.Cart.ReserveLine(c.Request().Context(), actor(c).UserID, req.ProductID, req.Quantity, req.Preorder)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, cartLineJSON(line, h.Cart.TTL()))
}

// Extend restarts the TTL of an existing hold.
func (h *CartHandler) Extend(c echo.Context) error {
	productID, err := pathID(c, "productId")
	if err != nil {
		return err
	}
	line, err := h.Cart.ExtendLine(c.Request().Context(), actor(c).UserID, productID)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, cartLineJSON(line, h.Cart.TTL()))
}

// Release drops a line and returns its units to the sellable pool.
func (h *CartHandler) Release(c echo.Context) error {
	productID, err := pathID(c, "productId")
	if err != nil {
		return err
	}
	if err := h.Cart.ReleaseLine(c.Request().Context(), actor(c).UserID, productID); err != nil {
		return fail(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// List shows the buyer's current cart.
func (h *CartHandler) List(c echo.Context) error {
	lines, err := h.Cart.ListLines(c.Request().Context(), actor(c).UserID)
	if err != nil {
		return fail(c, h.Log, err)
	}
	out := make([]echo.Map, 0, len(lines))
	for i := range lines {
		out = append(out, cartLineJSON(&lines[i], h.Cart.TTL()))
	}
	return c.JSON(http.StatusOK, echo.Map{"lines": out})
}

func cartLineJSON(l *model.CartLine, ttl time.Duration) echo.Map {
	m := echo.Map{
		"product_id": l.ProductID,
		"quantity":   l.Quantity,
		"preorder":   l.IsPreorder,
	}
	if l.ReservedAt != nil {
		m["reserved_at"] = l.ReservedAt
		m["expires_at"] = l.ReservedAt.Add(ttl)
	}
	return m
}

func pathID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid " + name})
	}
	return id, nil
}
