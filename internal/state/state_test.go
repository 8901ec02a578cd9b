package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"huparbiter/internal/engine"
)

func sampleState() *State {
	st := NewState()
	st.Height = 7
	st.Accounts["alice"] = 100
	st.Accounts["bob"] = 50
	st.AccountKeys["alice"] = []byte{1, 2, 3}
	st.Delegates["bob"] = []byte{4, 5, 6}
	st.NonceMax["alice"] = 9
	st.NextChannelID = 3
	st.Channels[2] = &Channel{
		ID:            2,
		Participants:  [2]string{"alice", "bob"},
		Balances:      [2]uint64{60, 40},
		MinSmallBlind: 1,
		Status:        ChannelOpen,
		NextHandID:    4,
		Dispute: &DisputeRecord{
			HandID:   4,
			Deadline: 1234,
			BestLen:  3,
			Outcome:  engine.Outcome{Kind: engine.OutcomeFold, Folder: engine.SideB, CalledAmount: 2},
		},
	}
	return st
}

func TestSaveLoadRoundTrip(t *testing.T) {
	home := t.TempDir()
	st := sampleState()
	require.NoError(t, st.Save(home))

	got, err := Load(home)
	require.NoError(t, err)
	assert.Equal(t, st.AppHash(), got.AppHash())
	assert.Equal(t, st.Channels[2].Dispute.Outcome, got.Channels[2].Dispute.Outcome)
}

func TestLoadMissingFileYieldsFreshState(t *testing.T) {
	st, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), st.NextChannelID)
	assert.NotNil(t, st.Channels)
	assert.NotNil(t, st.Delegates)
}

func TestCloneIsIndependent(t *testing.T) {
	st := sampleState()
	cp, err := st.Clone()
	require.NoError(t, err)

	cp.Accounts["alice"] = 1
	cp.Channels[2].Balances[0] = 0
	cp.Channels[2].Dispute.BestLen = 99

	assert.Equal(t, uint64(100), st.Accounts["alice"])
	assert.Equal(t, uint64(60), st.Channels[2].Balances[0])
	assert.Equal(t, 3, st.Channels[2].Dispute.BestLen)
}

func TestAppHashIgnoresMapInsertionOrder(t *testing.T) {
	a := NewState()
	b := NewState()
	a.Accounts["x"] = 1
	a.Accounts["y"] = 2
	b.Accounts["y"] = 2
	b.Accounts["x"] = 1
	assert.Equal(t, a.AppHash(), b.AppHash())
}

func TestAppHashChangesWithState(t *testing.T) {
	st := sampleState()
	before := st.AppHash()
	require.NoError(t, st.Credit("alice", 1))
	assert.NotEqual(t, before, st.AppHash())
}

func TestCreditDebit(t *testing.T) {
	st := NewState()
	require.NoError(t, st.Credit("a", 10))
	assert.Equal(t, uint64(10), st.Balance("a"))

	require.NoError(t, st.Debit("a", 4))
	assert.Equal(t, uint64(6), st.Balance("a"))

	assert.Error(t, st.Debit("a", 7), "overdraft must fail")
	st.Accounts["a"] = ^uint64(0)
	assert.Error(t, st.Credit("a", 1), "overflow must fail")
}

func TestChannelSideOf(t *testing.T) {
	ch := &Channel{Participants: [2]string{"alice", "bob"}}
	side, ok := ch.SideOf("alice")
	require.True(t, ok)
	assert.Equal(t, engine.SideA, side)

	side, ok = ch.SideOf("bob")
	require.True(t, ok)
	assert.Equal(t, engine.SideB, side)

	_, ok = ch.SideOf("carol")
	assert.False(t, ok)
}
