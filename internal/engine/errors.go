package engine

import (
	"errors"
	"fmt"
)

// RejectKind tags a transcript rejection so callers can branch on it without
// string matching.
type RejectKind uint8

const (
	// RejectMalformed covers structural faults: broken hash chain,
	// non-increasing sequence numbers, wrong move kind for the position,
	// unknown move kinds.
	RejectMalformed RejectKind = iota + 1

	// RejectRuleViolation covers betting-rule faults: illegal raise sizes,
	// raise-count exceeded, amounts exceeding the actor's stack.
	RejectRuleViolation

	// RejectHandNotDone marks a valid prefix that ends before a terminal
	// state. It is a distinguished condition, not a generic failure: callers
	// use it to decide between direct settlement and opening a dispute.
	RejectHandNotDone
)

func (k RejectKind) String() string {
	switch k {
	case RejectMalformed:
		return "malformed transcript"
	case RejectRuleViolation:
		return "rule violation"
	case RejectHandNotDone:
		return "hand not done"
	default:
		return fmt.Sprintf("reject(%d)", uint8(k))
	}
}

// RejectError is the tagged rejection returned for every expected validation
// failure. True invariant violations inside the engine panic instead; they are
// unreachable given the transcript checks and silently clamping them would
// break fund conservation.
type RejectError struct {
	Kind RejectKind
	Msg  string
}

func (e *RejectError) Error() string {
	return e.Kind.String() + ": " + e.Msg
}

func rejectf(kind RejectKind, format string, args ...any) *RejectError {
	return &RejectError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// IsHandNotDone reports whether err is the distinguished not-yet-terminal
// condition.
func IsHandNotDone(err error) bool {
	var re *RejectError
	return errors.As(err, &re) && re.Kind == RejectHandNotDone
}
