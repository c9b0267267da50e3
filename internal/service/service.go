package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	apperrors "github.com/utafrali/backoffice/pkg/errors"
)

// probeAbsent runs a uniqueness probe. The lookup failing with notFound is
// the success case; a hit becomes AlreadyExists and any other error is
// returned as is.
func probeAbsent[T any](lookup func() (T, error), notFound error, resource, field, value string) error {
	_, err := lookup()
	switch {
	case err == nil:
		return apperrors.AlreadyExists(resource, field, value)
	case errors.Is(err, notFound):
		return nil
	default:
		return fmt.Errorf("probe %s %s: %w", resource, field, err)
	}
}

// logPublishFailure records an event that could not be published. Events are
// published after commit, so the operation itself has already succeeded.
func logPublishFailure(ctx context.Context, l *slog.Logger, event string, err error) {
	if err == nil {
		return
	}
	l.ErrorContext(ctx, "failed to publish "+event+" event", slog.String("error", err.Error()))
}
