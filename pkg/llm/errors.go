package llm

import (
	"errors"
	"fmt"

	"github.com/tradingzbotem/sparks/pkg/domain"
)

// ErrNoCredential means no API key is configured. Callers treat it as "skip
// and try again later", not as a failure.
var ErrNoCredential = errors.New("no llm credential configured")

// SynthesisError is a hard failure of one window's synthesis: a backend
// error, unparseable output or a schema violation. The orchestrator catches
// it per window so the remaining windows still run.
type SynthesisError struct {
	Window domain.Window
	Err    error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("synthesize %s brief: %v", e.Window, e.Err)
}

func (e *SynthesisError) Unwrap() error {
	return e.Err
}
