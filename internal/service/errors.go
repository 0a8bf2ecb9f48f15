package service

import (
	"errors"
	"fmt"

	"github.com/bunnyexe1/AUTHENTIX/internal/ledger"
)

// Engine error taxonomy. Validation and authorization failures are
// rejected before anything reaches the ledger; conflict and amount
// mismatches surface the reason verbatim; ledger unavailability is never
// a definitive failure because the submitted operation may still confirm.
var (
	ErrValidation        = errors.New("intent validation failed")
	ErrNotOwner          = errors.New("caller lacks the required role for this transition")
	ErrAlreadySold       = errors.New("listing is already sold in the current epoch")
	ErrAlreadyRedeemed   = errors.New("listing has already been redeemed")
	ErrWrongAmount       = errors.New("payment must match the listed price exactly")
	ErrNotFound          = errors.New("listing lineage not found")
	ErrLedgerUnavailable = errors.New("ledger confirmation unavailable, operation may still confirm")
)

// Reason maps an engine error to the stable reason code handed to callers.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "VALIDATION_FAILED"
	case errors.Is(err, ErrNotOwner):
		return "NOT_OWNER"
	case errors.Is(err, ErrAlreadySold):
		return "ALREADY_SOLD"
	case errors.Is(err, ErrAlreadyRedeemed):
		return "ALREADY_REDEEMED"
	case errors.Is(err, ErrWrongAmount):
		return "WRONG_AMOUNT"
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrLedgerUnavailable):
		return "LEDGER_UNAVAILABLE"
	default:
		return "INTERNAL"
	}
}

// fromLedger translates ledger-level errors into the engine taxonomy.
func fromLedger(err error) error {
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case errors.Is(err, ledger.ErrNotOwner):
		return fmt.Errorf("%w: %v", ErrNotOwner, err)
	case errors.Is(err, ledger.ErrAlreadySold):
		return fmt.Errorf("%w: %v", ErrAlreadySold, err)
	case errors.Is(err, ledger.ErrAlreadyRedeemed):
		return fmt.Errorf("%w: %v", ErrAlreadyRedeemed, err)
	case errors.Is(err, ledger.ErrWrongAmount):
		return fmt.Errorf("%w: %v", ErrWrongAmount, err)
	case errors.Is(err, ledger.ErrNotSold):
		return fmt.Errorf("%w: %v", ErrNotOwner, err)
	case errors.Is(err, ledger.ErrUnavailable):
		return fmt.Errorf("%w: %v", ErrLedgerUnavailable, err)
	default:
		return err
	}
}
