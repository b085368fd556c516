package repository

import (
	"context"
	"errors"

	"github.com/fjod/ecofinds/internal/domain"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	codeUnauthorized         = 13
	codeAuthenticationFailed = 18
)

// Classify maps a backend failure to domain.ErrPermissionDenied, domain.ErrBackendUnavailable
// or nil when the cause is unknown.
func Classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return domain.ErrBackendUnavailable
	case errors.Is(err, mongo.ErrClientDisconnected), mongo.IsTimeout(err), mongo.IsNetworkError(err):
		return domain.ErrBackendUnavailable
	}

	var se mongo.ServerError
	if errors.As(err, &se) && (se.HasErrorCode(codeUnauthorized) || se.HasErrorCode(codeAuthenticationFailed)) {
		return domain.ErrPermissionDenied
	}
	return nil
}
