package menu

import (
	"context"
	"errors"
)

// Repository is the read-only persistence contract for menu definitions.
//
// Menus and options are authored by an external tool; the engine only reads
// them. All methods must honor ctx deadlines — the webhook path applies a
// bounded timeout and fails closed on expiry.
type Repository interface {
	// GetByNumber returns the active menu bound to a dialed number.
	GetByNumber(ctx context.Context, dialedNumber string) (Menu, error)

	// GetByID returns a menu regardless of number binding.
	GetByID(ctx context.Context, id string) (Menu, error)

	// ListOptions returns a menu's options ordered by position, then digit.
	// Inactive options are included; callers filter by availability.
	ListOptions(ctx context.Context, menuID string) ([]Option, error)
}

var ErrNotFound = errors.New("menu: not found")
