// Package router wires handlers, middleware and routes onto the Echo
// instance.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/irisova/flower-order-reservation/internal/handler"
	"github.com/irisova/flower-order-reservation/internal/middleware"
	"github.com/irisova/flower-order-reservation/internal/model"
)

// Handlers collects everything RegisterRoutes needs.
type Handlers struct {
	Auth   *handler.AuthHandler
	Cart   *handler.CartHandler
	Orders *handler.OrderHandler
	Seller *handler.SellerHandler
	Slots  *handler.SlotHandler
}

// RegisterRoutes declares the public API surface.  Auth and slot browsing
// are open; everything else sits behind the JWT middleware with a role
// gate, plus the shared rate limiter on mutating groups.
func RegisterRoutes(e *echo.Echo, h Handlers, jwtSecret string, limiter echo.MiddlewareFunc) {
	e.GET("/health", handler.Health)

	v1 := e.Group("/v1")

	auth := v1.Group("/auth", limiter)
	auth.POST("/register", h.Auth.Register)
	auth.POST("/login", h.Auth.Login)

	// Window listings are public so buyers can browse before login.
	v1.GET("/sellers/:sellerId/slots", h.Slots.List)

	jwt := middleware.JWTAuth(jwtSecret)

	v1.GET("/me", h.Auth.Me, jwt)

	buyer := v1.Group("", jwt, middleware.RequireRole(model.RoleBuyer), limiter)
	buyer.GET("/cart", h.Cart.List)
	buyer.POST("/cart", h.Cart.Reserve)
	buyer.POST("/cart/:productId/extend", h.Cart.Extend)
	buyer.DELETE("/cart/:productId", h.Cart.Release)
	buyer.POST("/orders", h.Orders.Create)
	buyer.GET("/orders", h.Orders.ListMine)

	seller := v1.Group("/seller", jwt, middleware.RequireRole(model.RoleSeller), limiter)
	seller.POST("", h.Seller.Create)
	seller.GET("/capacity", h.Seller.Capacity)
	seller.PUT("/capacity", h.Seller.DeclareQuota)
	seller.POST("/products", h.Seller.CreateProduct)
	seller.PUT("/products/:productId/stock", h.Seller.Restock)
	seller.GET("/orders", h.Orders.ListIncoming)
	seller.POST("/orders/:id/paid", h.Orders.MarkPaid)

	// Transitions are shared: the service decides what each role may do.
	shared := v1.Group("/orders", jwt, middleware.RequireRole(model.RoleBuyer, model.RoleSeller), limiter)
	shared.GET("/:id", h.Orders.Get)
	shared.POST("/:id/status", h.Orders.Transition)
}
