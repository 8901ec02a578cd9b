package app

import (
	"fmt"

	abci "github.com/cometbft/cometbft/abci/types"

	"huparbiter/internal/codec"
	"huparbiter/internal/state"
)

func (a *App) handleChannelOpen(st *state.State, env codec.TxEnvelope, msg codec.ChannelOpenTx) *abci.ExecTxResult {
	if msg.Opener == "" || msg.Peer == "" {
		return reject("missing opener/peer")
	}
	if msg.Opener == msg.Peer {
		return reject("cannot open a channel with yourself")
	}
	if msg.Deposit == 0 {
		return reject("deposit must be positive")
	}
	if msg.MinSmallBlind == 0 {
		return reject("minSmallBlind must be positive")
	}
	if err := a.requireAccountAuth(st, env, msg.Opener); err != nil {
		return reject(err.Error())
	}
	if err := st.Debit(msg.Opener, msg.Deposit); err != nil {
		return reject(err.Error())
	}

	id := st.NextChannelID
	st.NextChannelID++
	st.Channels[id] = &state.Channel{
		ID:            id,
		Participants:  [2]string{msg.Opener, msg.Peer},
		Balances:      [2]uint64{msg.Deposit, 0},
		MinSmallBlind: msg.MinSmallBlind,
		Status:        state.ChannelPending,
		NextHandID:    1,
	}
	return okEvent("ChannelOpened", map[string]string{
		"channelId": fmt.Sprintf("%d", id),
		"opener":    msg.Opener,
		"peer":      msg.Peer,
		"deposit":   fmt.Sprintf("%d", msg.Deposit),
	})
}

func (a *App) handleChannelJoin(st *state.State, env codec.TxEnvelope, msg codec.ChannelJoinTx) *abci.ExecTxResult {
	ch := st.Channels[msg.ChannelID]
	if ch == nil {
		return reject("channel not found")
	}
	if ch.Status != state.ChannelPending {
		return reject(fmt.Sprintf("channel is %s, not pending", ch.Status))
	}
	if msg.Joiner != ch.Participants[1] {
		return reject("joiner is not the invited peer")
	}
	if msg.Deposit == 0 {
		return reject("deposit must be positive")
	}
	if err := a.requireAccountAuth(st, env, msg.Joiner); err != nil {
		return reject(err.Error())
	}
	if err := st.Debit(msg.Joiner, msg.Deposit); err != nil {
		return reject(err.Error())
	}
	ch.Balances[1] = msg.Deposit
	ch.Status = state.ChannelOpen
	return okEvent("ChannelJoined", map[string]string{
		"channelId": fmt.Sprintf("%d", msg.ChannelID),
		"joiner":    msg.Joiner,
		"deposit":   fmt.Sprintf("%d", msg.Deposit),
	})
}

// handleChannelDeposit tops up a participant's escrow. Refused while a
// dispute or showdown is in flight: transcripts replay against current
// balances, and moving the stakes mid-resolution would change what a
// submitted log means.
func (a *App) handleChannelDeposit(st *state.State, env codec.TxEnvelope, msg codec.ChannelDepositTx) *abci.ExecTxResult {
	ch := st.Channels[msg.ChannelID]
	if ch == nil {
		return reject("channel not found")
	}
	if ch.Status != state.ChannelOpen {
		return reject(fmt.Sprintf("channel is %s, not open", ch.Status))
	}
	if ch.Dispute != nil {
		return reject("dispute in progress")
	}
	if ch.Showdown != nil {
		return reject("showdown pending")
	}
	side, ok := ch.SideOf(msg.Depositor)
	if !ok {
		return reject("depositor is not a participant")
	}
	if msg.Amount == 0 {
		return reject("amount must be positive")
	}
	if err := a.requireAccountAuth(st, env, msg.Depositor); err != nil {
		return reject(err.Error())
	}
	if err := st.Debit(msg.Depositor, msg.Amount); err != nil {
		return reject(err.Error())
	}
	next, err := addU64Checked(ch.Balances[side], msg.Amount, "channel balance")
	if err != nil {
		return reject(err.Error())
	}
	ch.Balances[side] = next
	return okEvent("ChannelDeposited", map[string]string{
		"channelId": fmt.Sprintf("%d", msg.ChannelID),
		"depositor": msg.Depositor,
		"amount":    fmt.Sprintf("%d", msg.Amount),
	})
}

// handleChannelClose releases escrow at the current balance split. Either
// participant may close, but only an idle channel: anything in flight must be
// resolved first, and a party holding a winning transcript disputes before
// the peer can close it away.
func (a *App) handleChannelClose(st *state.State, env codec.TxEnvelope, msg codec.ChannelCloseTx) *abci.ExecTxResult {
	ch := st.Channels[msg.ChannelID]
	if ch == nil {
		return reject("channel not found")
	}
	if ch.Status == state.ChannelClosed {
		return reject("channel already closed")
	}
	if _, ok := ch.SideOf(msg.Closer); !ok {
		return reject("closer is not a participant")
	}
	if ch.Dispute != nil {
		return reject("dispute in progress")
	}
	if ch.Showdown != nil {
		return reject("showdown pending")
	}
	if err := a.requireAccountAuth(st, env, msg.Closer); err != nil {
		return reject(err.Error())
	}
	for side := 0; side < 2; side++ {
		if ch.Balances[side] == 0 {
			continue
		}
		if err := st.Credit(ch.Participants[side], ch.Balances[side]); err != nil {
			return reject(err.Error())
		}
		ch.Balances[side] = 0
	}
	ch.Status = state.ChannelClosed
	return okEvent("ChannelClosed", map[string]string{
		"channelId": fmt.Sprintf("%d", msg.ChannelID),
		"closer":    msg.Closer,
	})
}
