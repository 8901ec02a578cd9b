package engine

// Project replays a valid prefix and produces a provisional outcome for
// dispute resolution. Unlike Replay it never rejects a well-formed prefix for
// being incomplete; structural and rule faults still reject.
//
// Projection rules, in order:
//   - fewer than two valid blind actions: NoBlinds, no transfer implied;
//   - the prefix reaches a terminal state: that outcome;
//   - either side is all-in: Showdown;
//   - nothing outstanding (toCall == 0): Showdown, since the non-extending
//     party had nothing left to do but see the hand through;
//   - someone owes a response and never gave one: non-response is a default
//     fold by the side the action is on.
//
// CalledAmount is min(total contributions) at the point the prefix stops.
func Project(log []Action, stackA, stackB, minSmallBlind uint64, p Params) (Outcome, error) {
	if err := validateChain(log); err != nil {
		return Outcome{}, err
	}
	if len(log) == 0 {
		return Outcome{Kind: OutcomeNoBlinds}, nil
	}
	if len(log) == 1 {
		if err := checkSmallBlind(log[0], stackA, stackB, minSmallBlind); err != nil {
			return Outcome{}, err
		}
		return Outcome{Kind: OutcomeNoBlinds}, nil
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
	if st.done {
		return st.outcome, nil
	}

	out := Outcome{CalledAmount: st.called()}
	switch {
	case st.allIn[0] || st.allIn[1]:
		out.Kind = OutcomeShowdown
	case st.toCall == 0:
		out.Kind = OutcomeShowdown
	default:
		out.Kind = OutcomeFold
		out.Folder = st.actor
	}
	return out, nil
}
