package service

import (
	"errors"
	"fmt"

	"github.com/fjod/ecofinds/internal/domain"
	"github.com/fjod/ecofinds/internal/repository"
)

func readErr(op string, err error) error {
	return domain.NewReadError(op, repository.Classify(err), err)
}

func writeErr(op string, err error) error {
	return domain.NewWriteError(op, repository.Classify(err), err)
}

// productReadErr translates a product lookup failure.
func productReadErr(id string, err error) error {
	if errors.Is(err, repository.ErrProductNotFound) {
		return domain.NotFoundf("product %s", id)
	}
	return readErr("get product", err)
}

// productGuardErr translates a guarded product mutation failure.
func productGuardErr(op, id string, err error) error {
	switch {
	case errors.Is(err, repository.ErrProductNotFound):
		return domain.NotFoundf("product %s", id)
	case errors.Is(err, repository.ErrNotOwner):
		return fmt.Errorf("%w: product %s belongs to another seller", domain.ErrOwnership, id)
	case errors.Is(err, repository.ErrProductNotAvailable):
		return fmt.Errorf("%w: product %s can no longer be changed", domain.ErrInvalidState, id)
	case errors.Is(err, repository.ErrProductExists):
		return fmt.Errorf("%w: product %s already exists", domain.ErrInvalidInput, id)
	}
	return writeErr(op, err)
}

// commitErr translates a per-item transaction failure into the cause carried by TransactionError.
func commitErr(id string, err error) error {
	switch {
	case errors.Is(err, repository.ErrProductNotFound):
		return domain.NotFoundf("product %s", id)
	case errors.Is(err, repository.ErrProductNotAvailable), errors.Is(err, repository.ErrAlreadyPurchased):
		return fmt.Errorf("%w: product %s", domain.ErrUnavailable, id)
	}
	return writeErr("commit purchase", err)
}
