package patient

import (
	"fmt"

	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain"
)

var (
	ErrPatientNotFound   = fmt.Errorf("patient %w", domain.ErrNotFound)
	ErrPatientDischarged = fmt.Errorf("patient is discharged: %w", domain.ErrConflict)
)
