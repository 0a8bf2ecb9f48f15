package ledger

import "errors"

var (
	ErrNotFound        = errors.New("listing not found on ledger")
	ErrNotOwner        = errors.New("caller is not the owner")
	ErrAlreadySold     = errors.New("listing already sold")
	ErrAlreadyRedeemed = errors.New("listing already redeemed")
	ErrNotSold         = errors.New("listing has not been sold")
	ErrWrongAmount     = errors.New("payment does not match listing price")

	// ErrUnavailable means a confirmation could not be obtained. The
	// submitted operation may still confirm later, so callers must not
	// treat this as a definitive failure.
	ErrUnavailable = errors.New("ledger confirmation unavailable")
)
