// Package repository implements MySQL persistence for the order admission
// and reservation engine.  This file defines the sentinel errors shared
// across repositories and the service layer.  Business rejections are
// legitimate outcomes reported synchronously to the caller and are never
// retried by the engine; only storage errors (anything not listed here)
// are safe for callers to retry with backoff.
package repository

import "errors"

// Not-found errors.  Handlers translate these into HTTP 404.
var (
	ErrUserNotFound     = errors.New("user not found")
	ErrSellerNotFound   = errors.New("seller not found")
	ErrProductNotFound  = errors.New("product not found")
	ErrOrderNotFound    = errors.New("order not found")
	ErrCartLineNotFound = errors.New("cart line not found")
)

// Business rejections.  Each one is a typed "no" that carries enough
// meaning for the caller to render a user-facing message.
var (
	// ErrSellerBlocked rejects orders against a blocked seller.
	ErrSellerBlocked = errors.New("seller is blocked")
	// ErrQuotaNotSetToday means the seller has not declared a daily quota
	// for the current business date; available capacity is zero.
	ErrQuotaNotSetToday = errors.New("daily quota not set for today")
	// ErrQuotaExhausted means pending+active already reached the daily
	// maximum for the requested fulfillment type.
	ErrQuotaExhausted = errors.New("daily quota exhausted")
	// ErrInsufficientStock means the product cannot cover the requested
	// quantity with unreserved units.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrSlotFull means the chosen delivery window already holds its
	// configured number of bookings.
	ErrSlotFull = errors.New("delivery slot is full")
	// ErrSlotUnavailable means the requested (date, start) is not one of
	// the windows the seller's schedule currently offers.
	ErrSlotUnavailable = errors.New("delivery slot not available")
	// ErrInvalidStatusTransition rejects a status change not present in
	// the order lifecycle table.
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	// ErrUndeliverableDistrict means the pricing collaborator refused the
	// requested district.
	ErrUndeliverableDistrict = errors.New("district is not deliverable")
)

// ErrEmailTaken is returned on registration when the email is already in
// use.  Handlers translate it into HTTP 409.
var ErrEmailTaken = errors.New("email already registered")

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own.  Handlers translate it into HTTP 403.
var ErrForbidden = errors.New("forbidden")
