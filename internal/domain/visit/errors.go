package visit

import (
	"fmt"

	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain"
)

var (
	ErrVisitNotFound         = fmt.Errorf("visit %w", domain.ErrNotFound)
	ErrPreviousVisitNotFound = fmt.Errorf("previous visit %w", domain.ErrNotFound)
	ErrUnknownVisitType      = fmt.Errorf("unknown visit type: %w", domain.ErrValidation)
	ErrPayloadMismatch       = fmt.Errorf("payload does not match visit type: %w", domain.ErrValidation)
)
