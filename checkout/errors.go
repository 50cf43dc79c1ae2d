package checkout

import "errors"

var (
	// ErrProductUnavailable is returned by cart verification when a product
	// is missing, inactive, or short on stock. Nothing has been written.
	ErrProductUnavailable = errors.New("product unavailable")
	// ErrInsufficientStock means a stock guard failed at commit time: another
	// order took the stock after verification. Retryable.
	ErrInsufficientStock = errors.New("insufficient stock")

	ErrProductNotFound  = errors.New("product not found")
	ErrDiscountNotFound = errors.New("discount not found")
	ErrDiscountExpired  = errors.New("discount expired")

	ErrInvalidCart = errors.New("invalid cart")

	// ErrPersistence wraps infrastructure failures that aborted a transaction.
	ErrPersistence = errors.New("persistence failure")
	// ErrTxTimeout and ErrTxConflict are retryable transaction aborts.
	ErrTxTimeout  = errors.New("transaction timed out")
	ErrTxConflict = errors.New("transaction conflict")

	ErrOrderNotFound     = errors.New("order not found")
	ErrUnknownStatus     = errors.New("unknown order status")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Retryable reports whether err is a transient abort the caller may retry.
func Retryable(err error) bool {
	return errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrTxTimeout) ||
		errors.Is(err, ErrTxConflict)
}
