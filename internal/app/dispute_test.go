package app

import (
	"testing"

	"huparbiter/internal/engine"
)

// Hand 1, bob (side 1) posts the small blind, then raises to 3; alice never
// responds. Projection: default fold by alice, called amount 2.
func unansweredRaiseLog() []handMove {
	return []handMove{
		{engine.KindSmallBlind, 1, engine.SideB},
		{engine.KindBigBlind, 2, engine.SideA},
		{engine.KindBetRaise, 3, engine.SideB},
	}
}

func TestDispute_RecordsProvisionalOutcome(t *testing.T) {
	a, chID := setupOpenChannel(t)

	log := signedLog(t, chID, 1, [2]string{"alice", "bob"}, unansweredRaiseLog()...)
	res := mustOk(t, a.deliverTx(disputeTx(t, chID, 1, "bob", log), 1, 1000))

	ev := findEvent(res.Events, "DisputeRecorded")
	if parseU64(t, attr(ev, "actions")) != 3 {
		t.Fatalf("actions=%s", attr(ev, "actions"))
	}

	ch := channelState(t, a, chID)
	d := ch.Dispute
	if d == nil || d.HandID != 1 || d.BestLen != 3 || d.Deadline != 1100 {
		t.Fatalf("dispute=%+v", d)
	}
	if d.Outcome.Kind != engine.OutcomeFold || d.Outcome.Folder != engine.SideA || d.Outcome.CalledAmount != 2 {
		t.Fatalf("outcome=%+v", d.Outcome)
	}
	// Nothing moves until the window lapses.
	if ch.Balances != [2]uint64{100, 100} {
		t.Fatalf("balances=%v", ch.Balances)
	}
}

func TestDispute_LongerTranscriptSupersedesAndRestartsWindow(t *testing.T) {
	a, chID := setupOpenChannel(t)

	short := signedLog(t, chID, 1, [2]string{"alice", "bob"}, unansweredRaiseLog()...)
	mustOk(t, a.deliverTx(disputeTx(t, chID, 1, "bob", short), 1, 1000))

	// Alice answers the raise after all: her call closes the betting and the
	// projection flips to showdown.
	longer := signedLog(t, chID, 1, [2]string{"alice", "bob"},
		handMove{engine.KindSmallBlind, 1, engine.SideB},
		handMove{engine.KindBigBlind, 2, engine.SideA},
		handMove{engine.KindBetRaise, 3, engine.SideB},
		handMove{engine.KindCheckCall, 0, engine.SideA},
	)
	mustOk(t, a.deliverTx(disputeTx(t, chID, 1, "alice", longer), 1, 1050))

	d := channelState(t, a, chID).Dispute
	if d.BestLen != 4 || d.Deadline != 1150 {
		t.Fatalf("dispute=%+v", d)
	}
	if d.Outcome.Kind != engine.OutcomeShowdown || d.Outcome.CalledAmount != 4 {
		t.Fatalf("outcome=%+v", d.Outcome)
	}

	// The superseded transcript cannot come back, whatever the order.
	mustFail(t, a.deliverTx(disputeTx(t, chID, 1, "bob", short), 1, 1060))
}

func TestDispute_SameLengthDoesNotSupersede(t *testing.T) {
	a, chID := setupOpenChannel(t)

	log := signedLog(t, chID, 1, [2]string{"alice", "bob"}, unansweredRaiseLog()...)
	mustOk(t, a.deliverTx(disputeTx(t, chID, 1, "bob", log), 1, 1000))
	mustFail(t, a.deliverTx(disputeTx(t, chID, 1, "alice", log), 1, 1001))
}

func TestDispute_NewerHandWithBlindsSupersedes(t *testing.T) {
	a, chID := setupOpenChannel(t)

	old := signedLog(t, chID, 1, [2]string{"alice", "bob"}, unansweredRaiseLog()...)
	mustOk(t, a.deliverTx(disputeTx(t, chID, 1, "bob", old), 1, 1000))

	// Hand 2's blinds carry one signature from each side, proving hand 1
	// concluded off-chain; even a shorter log then replaces the record.
	newer := signedLog(t, chID, 2, [2]string{"alice", "bob"},
		handMove{engine.KindSmallBlind, 1, engine.SideA},
		handMove{engine.KindBigBlind, 2, engine.SideB},
	)
	mustOk(t, a.deliverTx(disputeTx(t, chID, 2, "alice", newer), 1, 1010))

	d := channelState(t, a, chID).Dispute
	if d.HandID != 2 || d.BestLen != 2 {
		t.Fatalf("dispute=%+v", d)
	}

	// And the stale hand cannot dispute again.
	mustFail(t, a.deliverTx(disputeTx(t, chID, 1, "bob", old), 1, 1020))
}

func TestDispute_EmptyNewerHandCannotEraseRecord(t *testing.T) {
	a, chID := setupOpenChannel(t)

	// Bob records a winning projection: alice's non-response defaults to a
	// fold worth 2 chips.
	log := signedLog(t, chID, 1, [2]string{"alice", "bob"}, unansweredRaiseLog()...)
	mustOk(t, a.deliverTx(disputeTx(t, chID, 1, "bob", log), 1, 1000))

	// Alice cannot wipe the record by claiming hand 2 (or any later hand)
	// never started: a blind-less transcript carries no signature from bob
	// and proves nothing about hand 1.
	mustFail(t, a.deliverTx(disputeTx(t, chID, 2, "alice", nil), 1, 1010))
	mustFail(t, a.deliverTx(disputeTx(t, chID, 9, "alice", nil), 1, 1010))

	d := channelState(t, a, chID).Dispute
	if d == nil || d.HandID != 1 || d.BestLen != 3 || d.Deadline != 1100 {
		t.Fatalf("dispute=%+v", d)
	}

	mustOk(t, a.deliverTx(txBytes(t, "channel/finalize", map[string]any{
		"channelId": chID,
	}), 1, 1100))
	if ch := channelState(t, a, chID); ch.Balances != [2]uint64{98, 102} {
		t.Fatalf("balances=%v want [98 102]", ch.Balances)
	}
}

func TestDispute_SkipAheadWithoutBlindsRejected(t *testing.T) {
	a, chID := setupOpenChannel(t)

	// Even with no record to erase, an empty claim for a future hand would
	// mark every earlier hand stale and block the genuine transcript.
	mustFail(t, a.deliverTx(disputeTx(t, chID, 3, "alice", nil), 1, 1000))

	log := signedLog(t, chID, 1, [2]string{"alice", "bob"}, unansweredRaiseLog()...)
	mustOk(t, a.deliverTx(disputeTx(t, chID, 1, "bob", log), 1, 1010))
}

func TestDispute_FinalizeBeforeDeadlineRejected(t *testing.T) {
	a, chID := setupOpenChannel(t)

	log := signedLog(t, chID, 1, [2]string{"alice", "bob"}, unansweredRaiseLog()...)
	mustOk(t, a.deliverTx(disputeTx(t, chID, 1, "bob", log), 1, 1000))

	mustFail(t, a.deliverTx(txBytes(t, "channel/finalize", map[string]any{
		"channelId": chID,
	}), 1, 1099))
}

func TestDispute_FinalizeAppliesDefaultFold(t *testing.T) {
	a, chID := setupOpenChannel(t)

	log := signedLog(t, chID, 1, [2]string{"alice", "bob"}, unansweredRaiseLog()...)
	mustOk(t, a.deliverTx(disputeTx(t, chID, 1, "bob", log), 1, 1000))

	res := mustOk(t, a.deliverTx(txBytes(t, "channel/finalize", map[string]any{
		"channelId": chID,
	}), 1, 1100))
	if findEvent(res.Events, "DisputeFinalized") == nil {
		t.Fatalf("expected DisputeFinalized event")
	}

	ch := channelState(t, a, chID)
	if ch.Dispute != nil {
		t.Fatalf("dispute not cleared")
	}
	if ch.Balances != [2]uint64{98, 102} {
		t.Fatalf("balances=%v want [98 102]", ch.Balances)
	}
	if ch.NextHandID != 2 {
		t.Fatalf("nextHandId=%d", ch.NextHandID)
	}
}

func TestDispute_FinalizeShowdownParksReveal(t *testing.T) {
	a, chID := setupOpenChannel(t)

	log := signedLog(t, chID, 1, [2]string{"alice", "bob"},
		handMove{engine.KindSmallBlind, 1, engine.SideB},
		handMove{engine.KindBigBlind, 2, engine.SideA},
		handMove{engine.KindBetRaise, 3, engine.SideB},
		handMove{engine.KindCheckCall, 0, engine.SideA},
	)
	mustOk(t, a.deliverTx(disputeTx(t, chID, 1, "alice", log), 1, 1000))
	mustOk(t, a.deliverTx(txBytes(t, "channel/finalize", map[string]any{
		"channelId": chID,
	}), 1, 1100))

	ch := channelState(t, a, chID)
	if ch.Showdown == nil || ch.Showdown.CalledAmount != 4 {
		t.Fatalf("showdown=%+v", ch.Showdown)
	}
	if ch.Dispute != nil {
		t.Fatalf("dispute not cleared")
	}
}

func TestDispute_EmptyLogClaimsHandNeverStarted(t *testing.T) {
	a, chID := setupOpenChannel(t)

	// An empty transcript is only admissible for the current hand; it claims
	// that hand never got off the ground, and the opponent's window to answer
	// with a longer transcript stays open.
	mustOk(t, a.deliverTx(disputeTx(t, chID, 1, "alice", nil), 1, 1000))

	d := channelState(t, a, chID).Dispute
	if d.Outcome.Kind != engine.OutcomeNoBlinds || d.BestLen != 0 {
		t.Fatalf("dispute=%+v", d)
	}

	mustOk(t, a.deliverTx(txBytes(t, "channel/finalize", map[string]any{
		"channelId": chID,
	}), 1, 1100))

	ch := channelState(t, a, chID)
	if ch.Balances != [2]uint64{100, 100} {
		t.Fatalf("balances=%v", ch.Balances)
	}
	if ch.NextHandID != 2 {
		t.Fatalf("nextHandId=%d", ch.NextHandID)
	}
}

func TestDispute_SettleOverridesWithCompleteTranscript(t *testing.T) {
	a, chID := setupOpenChannel(t)

	short := signedLog(t, chID, 1, [2]string{"alice", "bob"}, unansweredRaiseLog()...)
	mustOk(t, a.deliverTx(disputeTx(t, chID, 1, "bob", short), 1, 1000))

	// The full hand ends in a fold by bob; a complete transcript settles
	// immediately, no window required.
	full := signedLog(t, chID, 1, [2]string{"alice", "bob"},
		handMove{engine.KindSmallBlind, 1, engine.SideB},
		handMove{engine.KindBigBlind, 2, engine.SideA},
		handMove{engine.KindBetRaise, 3, engine.SideB},
		handMove{engine.KindBetRaise, 4, engine.SideA},
		handMove{engine.KindFold, 0, engine.SideB},
	)
	mustOk(t, a.deliverTx(settleTx(t, chID, 1, "alice", full), 1, 1050))

	ch := channelState(t, a, chID)
	if ch.Dispute != nil {
		t.Fatalf("dispute not cleared by settle")
	}
	if ch.Balances != [2]uint64{104, 96} {
		t.Fatalf("balances=%v want [104 96]", ch.Balances)
	}
}
