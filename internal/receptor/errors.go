package receptor

import (
	"errors"
	"fmt"
)

type Stage string

const (
	StageInput      Stage = "input"
	StageConversion Stage = "conversion"
	StageGeometry   Stage = "geometry"
	StageParameters Stage = "parameters"
)

// PreparationError identifies the stage at which Prepare gave up.
type PreparationError struct {
	Stage  Stage
	Detail string
	Err    error
}

func (e *PreparationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("receptor %s: %s: %v", e.Stage, e.Detail, e.Err)
	}
	return fmt.Sprintf("receptor %s: %s", e.Stage, e.Detail)
}

func (e *PreparationError) Unwrap() error { return e.Err }

// StageOf returns the failing stage of a preparation error, or "" if err
// did not come from Prepare.
func StageOf(err error) Stage {
	var pe *PreparationError
	if errors.As(err, &pe) {
		return pe.Stage
	}
	return ""
}
