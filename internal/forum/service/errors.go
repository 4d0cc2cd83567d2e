package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/MyNameIsWhaaat/bachub/internal/forum/model"
	"github.com/MyNameIsWhaaat/bachub/internal/forum/storage"
	"github.com/MyNameIsWhaaat/bachub/internal/forum/tree"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrAuthRequired = errors.New("authentication required")
	ErrForbidden    = errors.New("forbidden")
	ErrRateLimited  = errors.New("rate limited")

	ErrCrossQuestionParent = fmt.Errorf("%w: %w", ErrInvalidInput, tree.ErrCrossQuestionParent)
)

// RateLimitError is returned when an actor reports the same item again within
// its cooldown window.
type RateLimitError struct {
	Kind   model.Kind
	Window time.Duration
	// RetryAfter is the time left until the actor may report the item again.
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("you can only report this %s once per %s", e.Kind, formatWindow(e.Window))
}

func (e *RateLimitError) Unwrap() error { return ErrRateLimited }

func formatWindow(d time.Duration) string {
	if d%time.Hour == 0 {
		return fmt.Sprintf("%dh", int(d/time.Hour))
	}
	return d.String()
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidInput}, args...)...)
}

// fromStorage translates storage errors for kind into service errors.
func fromStorage(err error, kind model.Kind) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, storage.ErrNotFound):
		return fmt.Errorf("%w: %s", ErrNotFound, kind)
	case errors.Is(err, storage.ErrConflict):
		return invalid("%s with this link already exists", kind)
	}
	return err
}
