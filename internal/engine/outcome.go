package engine

import "fmt"

// OutcomeKind classifies how a hand (or a projected prefix) resolves.
type OutcomeKind uint8

const (
	// OutcomeFold settles the called amount to the folder's opponent.
	OutcomeFold OutcomeKind = iota + 1
	// OutcomeShowdown hands off to the reveal/ranking collaborator.
	OutcomeShowdown
	// OutcomeNoBlinds finalizes with no transfer: the prefix never reached
	// two valid blind actions.
	OutcomeNoBlinds
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeFold:
		return "fold"
	case OutcomeShowdown:
		return "showdown"
	case OutcomeNoBlinds:
		return "noBlinds"
	default:
		return fmt.Sprintf("outcome(%d)", uint8(k))
	}
}

// Outcome is the engine's verdict for a transcript. CalledAmount is always
// min(total contribution of side 0, total contribution of side 1): the value
// that actually changes hands is bounded by the smaller total, and any
// uncalled excess is never transferred.
type Outcome struct {
	Kind         OutcomeKind `json:"kind"`
	Folder       Side        `json:"folder,omitempty"` // meaningful only for Kind == OutcomeFold
	CalledAmount uint64      `json:"calledAmount"`
}
