package orders

import "fmt"

// ValidateUpdateGarmentRequest rejects stage values outside the workflow.
func ValidateUpdateGarmentRequest(req UpdateGarmentRequest) error {
	if req.Stage != nil && !req.Stage.IsValid() {
		return fmt.Errorf("%w: %s", ErrInvalidStage, *req.Stage)
	}
	return nil
}
