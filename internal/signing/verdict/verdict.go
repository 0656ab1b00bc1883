package verdict

import "fmt"

// Verdict is the outcome of a single check or of the combined policy chain.
// The zero value denies without a reason, so a forgotten assignment never allows a signature.
type Verdict struct {
	Allowed bool
	Reason  string

	// Module names the validator that produced a denial, if any.
	Module string

	// Fault marks a denial caused by a validator failing rather than deciding.
	Fault bool
}

// Allow is the verdict of a check that passed.
//
//nolint:gochecknoglobals // immutable value used as a constant
var Allow = Verdict{Allowed: true}

// Deny returns a denial carrying the given reason.
func Deny(reason string) Verdict {
	return Verdict{Reason: reason}
}

// Denyf returns a denial with a formatted reason.
func Denyf(format string, args ...any) Verdict {
	return Verdict{Reason: fmt.Sprintf(format, args...)}
}

// Denied reports whether the verdict vetoes the request.
func (v Verdict) Denied() bool {
	return !v.Allowed
}

// And combines two verdicts by conjunction; the first denial wins.
func (v Verdict) And(other Verdict) Verdict {
	if v.Denied() {
		return v
	}
	return other
}

func (v Verdict) String() string {
	if v.Allowed {
		return "allow"
	}
	if v.Module != "" {
		return fmt.Sprintf("deny(%s: %s)", v.Module, v.Reason)
	}
	return fmt.Sprintf("deny(%s)", v.Reason)
}
