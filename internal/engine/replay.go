package engine

import (
	"fmt"
	"math"
)

// NumStreets is the number of betting rounds per hand
// (preflop, flop, turn, river).
const NumStreets = 4

// DefaultMaxRaisesPerStreet caps BetRaise actions per street.
const DefaultMaxRaisesPerStreet = 4

// Params are the engine's tunable rules. The street count is fixed.
type Params struct {
	MaxRaisesPerStreet int
}

func DefaultParams() Params {
	return Params{MaxRaisesPerStreet: DefaultMaxRaisesPerStreet}
}

func (p Params) maxRaises() int {
	if p.MaxRaisesPerStreet <= 0 {
		return DefaultMaxRaisesPerStreet
	}
	return p.MaxRaisesPerStreet
}

// bettingState is the ephemeral per-hand state maintained while walking a
// transcript. Invariant after every transition:
// stacks[i] + total[i] == initial[i] for both sides.
type bettingState struct {
	initial [2]uint64
	stacks  [2]uint64
	contrib [2]uint64 // this street
	total   [2]uint64 // whole hand
	allIn   [2]bool

	actor         Side
	street        int // 0..NumStreets-1
	toCall        uint64
	lastRaiseSize uint64 // minimum increment for a full raise; also the opening-bet floor
	checked       bool   // one check has already passed the turn this street
	reopen        bool   // false after a short all-in until a full raise occurs
	raises        int    // BetRaise actions this street

	sbSide   Side
	bigBlind uint64

	done    bool
	outcome Outcome
}

// Replay walks a complete transcript and reports its terminal outcome. A valid
// prefix that stops short of a terminal state is rejected with the
// distinguished RejectHandNotDone condition; any structural or rule fault
// rejects the whole log. The engine is pure: identical inputs always yield
// identical outputs.
func Replay(log []Action, stackA, stackB, minSmallBlind uint64, p Params) (Outcome, error) {
	if err := validateChain(log); err != nil {
		return Outcome{}, err
	}
	if len(log) == 0 {
		return Outcome{}, rejectf(RejectHandNotDone, "empty transcript")
	}
	if len(log) == 1 {
		if err := checkSmallBlind(log[0], stackA, stackB, minSmallBlind); err != nil {
			return Outcome{}, err
		}
		return Outcome{}, rejectf(RejectHandNotDone, "big blind not posted")
	}

	st, err := start(log, stackA, stackB, minSmallBlind)
	if err != nil {
		return Outcome{}, err
	}
	for i := 2; i < len(log); i++ {
		if st.done {
			return Outcome{}, rejectf(RejectMalformed, "action %d after terminal state", i)
		}
		if err := st.apply(log[i], p); err != nil {
			return Outcome{}, err
		}
		st.assertConserved()
	}
	if !st.done {
		return Outcome{}, rejectf(RejectHandNotDone, "transcript ends before a terminal state")
	}
	return st.outcome, nil
}

// checkSmallBlind validates the shape of a hand's first action.
func checkSmallBlind(a Action, stackA, stackB, minSmallBlind uint64) error {
	if a.Kind != KindSmallBlind {
		return rejectf(RejectMalformed, "hand must start with a small blind, got %s", a.Kind)
	}
	sbSide := SmallBlindSide(a.HandID)
	if a.Sender != sbSide {
		return rejectf(RejectMalformed, "small blind posted by side %d, hand parity assigns side %d", a.Sender, sbSide)
	}
	if a.Amount == 0 {
		return rejectf(RejectRuleViolation, "small blind must be positive")
	}
	if a.Amount < minSmallBlind {
		return rejectf(RejectRuleViolation, "small blind %d below channel minimum %d", a.Amount, minSmallBlind)
	}
	if a.Amount > stackOf(sbSide, stackA, stackB) {
		return rejectf(RejectRuleViolation, "small blind %d exceeds poster's stack", a.Amount)
	}
	if a.Amount > math.MaxUint64/2 {
		return rejectf(RejectRuleViolation, "small blind %d too large to double", a.Amount)
	}
	return nil
}

func stackOf(s Side, stackA, stackB uint64) uint64 {
	if s == SideA {
		return stackA
	}
	return stackB
}

// start validates the two blind actions and builds the betting state for the
// rest of the transcript. The caller guarantees len(log) >= 2 and an intact
// chain.
func start(log []Action, stackA, stackB, minSmallBlind uint64) (*bettingState, error) {
	sb, bb := log[0], log[1]
	if err := checkSmallBlind(sb, stackA, stackB, minSmallBlind); err != nil {
		return nil, err
	}
	sbSide := SmallBlindSide(sb.HandID)
	if bb.Kind != KindBigBlind {
		return nil, rejectf(RejectMalformed, "second action must be the big blind, got %s", bb.Kind)
	}
	if bb.Sender != sbSide.Other() {
		return nil, rejectf(RejectMalformed, "big blind posted by side %d, want side %d", bb.Sender, sbSide.Other())
	}
	if bb.Amount != 2*sb.Amount {
		return nil, rejectf(RejectRuleViolation, "big blind %d must be twice the small blind %d", bb.Amount, sb.Amount)
	}
	if bb.Amount > stackOf(sbSide.Other(), stackA, stackB) {
		return nil, rejectf(RejectRuleViolation, "big blind %d exceeds poster's stack", bb.Amount)
	}

	st := &bettingState{
		initial:       [2]uint64{stackA, stackB},
		stacks:        [2]uint64{stackA, stackB},
		actor:         sbSide,
		street:        0,
		lastRaiseSize: bb.Amount,
		reopen:        true,
		sbSide:        sbSide,
		bigBlind:      bb.Amount,
	}
	st.commit(sbSide, sb.Amount)
	st.commit(sbSide.Other(), bb.Amount)
	st.toCall = bb.Amount - sb.Amount
	st.assertConserved()

	// If the small-blind side is already fully committed, betting is over: the
	// big blind has matched more than the short side can ever call.
	if st.allIn[sbSide] {
		st.finishShowdown()
	}
	return st, nil
}

// apply advances the betting state by one action. The actor is never all-in
// here: an all-in either ended the hand or left the turn with the opponent.
func (st *bettingState) apply(a Action, p Params) error {
	if a.Sender != st.actor {
		return rejectf(RejectMalformed, "out of turn: sender=%d, action is on side %d", a.Sender, st.actor)
	}
	if st.allIn[st.actor] {
		panic(fmt.Sprintf("engine: all-in side %d scheduled to act", st.actor))
	}
	opp := st.actor.Other()

	switch a.Kind {
	case KindFold:
		if a.Amount != 0 {
			return rejectf(RejectMalformed, "fold must carry amount 0, got %d", a.Amount)
		}
		st.finish(Outcome{Kind: OutcomeFold, Folder: st.actor, CalledAmount: st.called()})

	case KindCheckCall:
		if a.Amount != 0 {
			return rejectf(RejectMalformed, "checkCall must carry amount 0, got %d", a.Amount)
		}
		if st.toCall > 0 {
			pay := st.toCall
			short := false
			if pay > st.stacks[st.actor] {
				// Short all-in call: only the matched portion counts toward
				// the called amount; the excess stays with the bettor.
				pay = st.stacks[st.actor]
				short = true
			}
			st.commit(st.actor, pay)
			st.toCall = 0
			if short || st.allIn[0] || st.allIn[1] {
				st.finishShowdown()
				return nil
			}
			st.advanceStreet()
		} else {
			if !st.checked {
				// First check passes the turn.
				st.checked = true
				st.actor = opp
			} else {
				// Second consecutive check closes the street.
				st.advanceStreet()
			}
		}

	case KindBetRaise:
		if st.allIn[opp] {
			return rejectf(RejectRuleViolation, "cannot bet against an all-in opponent")
		}
		if st.raises >= p.maxRaises() {
			return rejectf(RejectRuleViolation, "raise count exceeded: %d already used this street", st.raises)
		}
		if !st.reopen {
			return rejectf(RejectRuleViolation, "action not reopened: a short all-in is outstanding")
		}
		if a.Amount == 0 {
			return rejectf(RejectRuleViolation, "bet must be positive")
		}
		if a.Amount > st.stacks[st.actor] {
			return rejectf(RejectRuleViolation, "bet %d exceeds remaining stack %d", a.Amount, st.stacks[st.actor])
		}
		allInBet := a.Amount == st.stacks[st.actor]
		if st.toCall > 0 && a.Amount <= st.toCall {
			return rejectf(RejectRuleViolation, "raise %d does not exceed outstanding %d", a.Amount, st.toCall)
		}
		increment := a.Amount - st.toCall
		if increment < st.lastRaiseSize {
			if !allInBet {
				return rejectf(RejectRuleViolation, "increment %d below minimum raise %d and not all-in", increment, st.lastRaiseSize)
			}
			// A short all-in does not reopen action: the opponent may only
			// call or fold until a full raise occurs.
			st.reopen = false
		} else {
			st.lastRaiseSize = increment
			st.reopen = true
		}
		st.commit(st.actor, a.Amount)
		st.raises++
		st.checked = false
		st.toCall = st.contrib[st.actor] - st.contrib[opp]
		st.actor = opp

	case KindSmallBlind, KindBigBlind:
		return rejectf(RejectMalformed, "%s after hand start", a.Kind)
	default:
		return rejectf(RejectMalformed, "unknown move kind %d", uint8(a.Kind))
	}
	return nil
}

// advanceStreet resets the per-street state, or forces showdown past the last
// street.
func (st *bettingState) advanceStreet() {
	if st.street >= NumStreets-1 {
		st.finishShowdown()
		return
	}
	st.street++
	st.contrib = [2]uint64{}
	st.toCall = 0
	st.lastRaiseSize = st.bigBlind
	st.raises = 0
	st.checked = false
	st.reopen = true
	// The big-blind side acts first on every post-flop street.
	st.actor = st.sbSide.Other()
}

// commit moves amt chips from the side's stack into the pot totals.
func (st *bettingState) commit(s Side, amt uint64) {
	if amt > st.stacks[s] {
		panic(fmt.Sprintf("engine: commit %d exceeds stack %d for side %d", amt, st.stacks[s], s))
	}
	st.stacks[s] -= amt
	st.contrib[s] += amt
	st.total[s] += amt
	if st.stacks[s] == 0 {
		st.allIn[s] = true
	}
}

// called is the amount that actually changes hands: the smaller of the two
// total contributions.
func (st *bettingState) called() uint64 {
	if st.total[0] < st.total[1] {
		return st.total[0]
	}
	return st.total[1]
}

func (st *bettingState) finish(o Outcome) {
	st.done = true
	st.outcome = o
}

func (st *bettingState) finishShowdown() {
	st.finish(Outcome{Kind: OutcomeShowdown, CalledAmount: st.called()})
}

// assertConserved panics on a fund-conservation breach. Unreachable given the
// commit checks; clamping instead would let a transcript move unmatched value.
func (st *bettingState) assertConserved() {
	for i := 0; i < 2; i++ {
		if st.stacks[i]+st.total[i] != st.initial[i] {
			panic(fmt.Sprintf("engine: conservation breach for side %d: stack=%d total=%d initial=%d",
				i, st.stacks[i], st.total[i], st.initial[i]))
		}
	}
}
