package app

import (
	"fmt"

	abci "github.com/cometbft/cometbft/abci/types"

	"huparbiter/internal/codec"
	"huparbiter/internal/engine"
	"huparbiter/internal/state"
)

// handleChannelDispute records the provisional outcome of a transcript
// prefix and opens (or restarts) the response window. Supersession is
// monotonic: a newer hand always wins, and within one hand only a strictly
// longer valid transcript replaces the record, so submission order cannot
// matter.
func (a *App) handleChannelDispute(st *state.State, env codec.TxEnvelope, msg codec.ChannelDisputeTx, nowUnix int64) *abci.ExecTxResult {
	ch := st.Channels[msg.ChannelID]
	if ch == nil {
		return reject("channel not found")
	}
	if ch.Status != state.ChannelOpen {
		return reject(fmt.Sprintf("channel is %s, not open", ch.Status))
	}
	if _, ok := ch.SideOf(msg.Submitter); !ok {
		return reject("submitter is not a participant")
	}
	if ch.Showdown != nil {
		return reject("showdown pending: resolve or time it out first")
	}
	if msg.HandID < ch.NextHandID {
		return reject(fmt.Sprintf("stale hand %d: next unfinalized hand is %d", msg.HandID, ch.NextHandID))
	}
	if d := ch.Dispute; d != nil {
		if msg.HandID < d.HandID {
			return reject(fmt.Sprintf("stale hand %d: dispute pending for hand %d", msg.HandID, d.HandID))
		}
		if msg.HandID == d.HandID && len(msg.Log) <= d.BestLen {
			return reject(fmt.Sprintf("transcript of %d actions does not beat recorded %d", len(msg.Log), d.BestLen))
		}
	}
	// Claiming a hand past the current one asserts every hand before it
	// concluded off-chain. That claim needs evidence the newer hand started:
	// both blinds, one signed by each side. Without this a losing party could
	// erase a disadvantageous record with an empty transcript for hand N+1.
	refHand := ch.NextHandID
	if ch.Dispute != nil {
		refHand = ch.Dispute.HandID
	}
	if msg.HandID > refHand && len(msg.Log) < 2 {
		return reject(fmt.Sprintf("disputing hand %d ahead of hand %d requires at least both blind actions", msg.HandID, refHand))
	}
	if err := a.requireAccountAuth(st, env, msg.Submitter); err != nil {
		return reject(err.Error())
	}

	actions, err := a.verifySignedLog(st, ch, msg.HandID, msg.Log)
	if err != nil {
		return reject(err.Error())
	}
	out, err := engine.Project(actions, ch.Balances[0], ch.Balances[1], ch.MinSmallBlind, a.engineParams())
	if err != nil {
		return reject(err.Error())
	}

	deadline, err := addInt64AndU64Checked(nowUnix, uint64(a.cfg.DisputeWindowSecs), "dispute deadline")
	if err != nil {
		return reject(err.Error())
	}
	ch.Dispute = &state.DisputeRecord{
		HandID:   msg.HandID,
		Deadline: deadline,
		BestLen:  len(actions),
		Outcome:  out,
	}
	return okEvent("DisputeRecorded", map[string]string{
		"channelId": fmt.Sprintf("%d", msg.ChannelID),
		"handId":    fmt.Sprintf("%d", msg.HandID),
		"submitter": msg.Submitter,
		"actions":   fmt.Sprintf("%d", len(actions)),
		"deadline":  fmt.Sprintf("%d", deadline),
	})
}

// handleChannelFinalize applies a lapsed dispute's recorded outcome. It is
// permissionless: whoever the outcome favors has every incentive to call it.
func (a *App) handleChannelFinalize(st *state.State, msg codec.ChannelFinalizeTx, nowUnix int64) *abci.ExecTxResult {
	ch := st.Channels[msg.ChannelID]
	if ch == nil {
		return reject("channel not found")
	}
	d := ch.Dispute
	if d == nil {
		return reject("no dispute to finalize")
	}
	if nowUnix < d.Deadline {
		return reject(fmt.Sprintf("dispute window open until %d, now %d", d.Deadline, nowUnix))
	}
	res := a.applyOutcome(ch, d.HandID, d.Outcome, nowUnix)
	if res.Code != 0 {
		return res
	}
	res.Events = append(res.Events, abci.Event{
		Type: "DisputeFinalized",
		Attributes: []abci.EventAttribute{
			{Key: "channelId", Value: fmt.Sprintf("%d", ch.ID), Index: true},
			{Key: "handId", Value: fmt.Sprintf("%d", d.HandID), Index: true},
		},
	})
	return res
}
