package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/irisova/flower-order-reservation/internal/model"
	"github.com/irisova/flower-order-reservation/internal/repository"
	"github.com/irisova/flower-order-reservation/internal/utils"
)

// AuthHandler serves registration and login.  Sessions are stateless: a
// successful login returns a short-lived HS256 access token.
type AuthHandler struct {
	Users      *repository.UserRepo
	JWTSecret  string
	AccessTTL  int
	BcryptCost int
	Log        *logrus.Logger
}

type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"required,oneof=BUYER SELLER"`
}

// Register creates a new account.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	hash, err := utils.HashPassword(req.Password, h.BcryptCost)
	if err != nil {
		return fail(c, h.Log, err)
	}
	u := &model.User{Email: req.Email, PasswordHash: hash, Role: req.Role}
	if err := h.Users.Create(c.Request().Context(), u); err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": u.ID, "email": u.Email, "role": u.Role})
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Login verifies credentials and issues an access token.  Wrong email and
// wrong password are indistinguishable to the caller.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	u, err := h.Users.GetByEmail(c.Request().Context(), req.Email)
	if err != nil || !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	tok, err := utils.NewAccessToken(h.JWTSecret, u.ID, u.Role, h.AccessTTL)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"access_token": tok.Token,
		"expires_at":   tok.Exp,
		"role":         u.Role,
	})
}

// Me returns the authenticated account.
func (h *AuthHandler) Me(c echo.Context) error {
	u, err := h.Users.GetByID(c.Request().Context(), actor(c).UserID)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"id": u.ID, "email": u.Email, "role": u.Role})
}
