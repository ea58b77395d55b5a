package orders

import "errors"

// Domain errors for orders.
var (
	ErrNotFound        = errors.New("orders: order not found")
	ErrGarmentNotFound = errors.New("orders: garment not found")
	ErrServiceNotFound = errors.New("orders: service not found")
	ErrClientNotFound  = errors.New("orders: client not found")

	// ErrInvalidStage indicates a stage value outside the workflow.
	ErrInvalidStage = errors.New("orders: invalid garment stage")
	// ErrGarmentFinished indicates a date edit on a garment whose stage
	// already reached DONE. Dates are mutable only until then.
	ErrGarmentFinished = errors.New("orders: garment already done, dates are frozen")
)
