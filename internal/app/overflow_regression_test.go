package app

import (
	"testing"

	"huparbiter/internal/engine"
)

func TestOverflow_BankSendCreditOverflowRollsBackDebit(t *testing.T) {
	a := newTestApp(t)

	registerTestAccount(t, a, "alice")
	a.st.Accounts["alice"] = 100
	a.st.Accounts["bob"] = ^uint64(0)

	res := a.deliverTx(txBytesSigned(t, "bank/send", map[string]any{
		"from":   "alice",
		"to":     "bob",
		"amount": uint64(1),
	}, "alice"), 1, 0)
	if res.Code == 0 {
		t.Fatalf("expected overflow failure")
	}
	if got := a.st.Balance("alice"); got != 100 {
		t.Fatalf("alice balance mutated on failed overflow send: %d", got)
	}
	if got := a.st.Balance("bob"); got != ^uint64(0) {
		t.Fatalf("bob balance mutated on failed overflow send: %d", got)
	}
}

func TestOverflow_ChannelDepositBalanceOverflowRejected(t *testing.T) {
	a, chID := setupOpenChannel(t)

	a.st.Accounts["bob"] = ^uint64(0)
	a.st.Channels[chID].Balances[1] = ^uint64(0)

	res := a.deliverTx(txBytesSigned(t, "channel/deposit", map[string]any{
		"depositor": "bob",
		"channelId": chID,
		"amount":    uint64(1),
	}, "bob"), 1, 0)
	if res.Code == 0 {
		t.Fatalf("expected overflow failure")
	}
	if got := a.st.Channels[chID].Balances[1]; got != ^uint64(0) {
		t.Fatalf("channel balance mutated: %d", got)
	}
	if got := a.st.Balance("bob"); got != ^uint64(0) {
		t.Fatalf("account debited on failed deposit: %d", got)
	}
}

func TestOverflow_OversizedBlindRejectedBeforeDoubling(t *testing.T) {
	a, chID := setupOpenChannel(t)

	// Force an absurd escrow so the engine's doubling guard is the only
	// thing standing between the small blind and a wrapped big blind.
	a.st.Channels[chID].Balances = [2]uint64{^uint64(0), ^uint64(0)}

	log := signedLog(t, chID, 1, [2]string{"alice", "bob"},
		handMove{engine.KindSmallBlind, ^uint64(0)/2 + 1, engine.SideB},
	)
	res := a.deliverTx(disputeTx(t, chID, 1, "bob", log), 1, 1000)
	if res.Code == 0 {
		t.Fatalf("expected oversized blind to be rejected")
	}
}
