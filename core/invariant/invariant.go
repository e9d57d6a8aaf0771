// Package invariant reports ledger states that validation upstream should
// have made impossible. A violation is raised with panic and must not be
// recovered by the block pipeline: continuing would commit wrong numbers.
package invariant

import (
	"fmt"
	"log/slog"
)

// Violation is the panic value raised for an impossible ledger state.
type Violation struct {
	Message string
}

func (v *Violation) Error() string { return "FATAL: " + v.Message }

// Failf logs the violation and panics with a *Violation.
func Failf(format string, args ...any) {
	v := &Violation{Message: fmt.Sprintf(format, args...)}
	slog.Error("invariant violated", "reason", v.Message)
	panic(v)
}

// Check panics with a *Violation when cond is false.
func Check(cond bool, format string, args ...any) {
	if !cond {
		Failf(format, args...)
	}
}

// FromRecovered extracts a *Violation from a recovered panic value.
func FromRecovered(r any) (*Violation, bool) {
	v, ok := r.(*Violation)
	return v, ok
}
