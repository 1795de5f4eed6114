package gamification

import "errors"

var (
	// ErrUserNotFound means the user has no stats row and one cannot be created for it.
	ErrUserNotFound = errors.New("user not found")

	// ErrProtectedStat is returned when a caller tries to write totalXP or level directly.
	ErrProtectedStat = errors.New("stat is derived and cannot be written directly")

	ErrInvalidInput = errors.New("invalid input")

	// ErrCatalogNotSeeded means an award referenced an achievement missing from storage.
	ErrCatalogNotSeeded = errors.New("achievement catalog not seeded")

	ErrCascadeLimit = errors.New("achievement cascade exceeded its step limit")
)
