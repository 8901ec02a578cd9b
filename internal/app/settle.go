package app

import (
	"fmt"

	abci "github.com/cometbft/cometbft/abci/types"

	"huparbiter/internal/codec"
	"huparbiter/internal/engine"
	"huparbiter/internal/state"
)

// handleChannelSettle applies a complete hand transcript in one shot. A valid
// but incomplete transcript gets the distinguished codeHandNotDone so clients
// know to dispute instead.
func (a *App) handleChannelSettle(st *state.State, env codec.TxEnvelope, msg codec.ChannelSettleTx, nowUnix int64) *abci.ExecTxResult {
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
		// A settle may override a pending dispute only with strictly better
		// evidence: a newer hand, or a longer transcript of the disputed one.
		if msg.HandID < d.HandID {
			return reject(fmt.Sprintf("stale hand %d: dispute pending for hand %d", msg.HandID, d.HandID))
		}
		if msg.HandID == d.HandID && len(msg.Log) <= d.BestLen {
			return reject(fmt.Sprintf("transcript of %d actions does not beat disputed %d", len(msg.Log), d.BestLen))
		}
	}
	if err := a.requireAccountAuth(st, env, msg.Submitter); err != nil {
		return reject(err.Error())
	}

	actions, err := a.verifySignedLog(st, ch, msg.HandID, msg.Log)
	if err != nil {
		return reject(err.Error())
	}
	out, err := engine.Replay(actions, ch.Balances[0], ch.Balances[1], ch.MinSmallBlind, a.engineParams())
	if err != nil {
		if engine.IsHandNotDone(err) {
			return &abci.ExecTxResult{Code: codeHandNotDone, Log: err.Error()}
		}
		return reject(err.Error())
	}

	ch.Dispute = nil
	return a.applyOutcome(ch, msg.HandID, out, nowUnix)
}

// applyOutcome moves chips per a terminal outcome and finalizes the hand.
// Showdowns cannot pay out until hole cards arrive, so they park in a
// PendingShowdown with a reveal deadline instead.
func (a *App) applyOutcome(ch *state.Channel, handID uint64, out engine.Outcome, nowUnix int64) *abci.ExecTxResult {
	switch out.Kind {
	case engine.OutcomeNoBlinds:
		finalizeHand(ch, handID)
		return okEvent("HandSettled", map[string]string{
			"channelId": fmt.Sprintf("%d", ch.ID),
			"handId":    fmt.Sprintf("%d", handID),
			"result":    "noBlinds",
		})

	case engine.OutcomeFold:
		winner := out.Folder.Other()
		if err := transferBalance(ch, out.Folder, winner, out.CalledAmount); err != nil {
			return reject(err.Error())
		}
		finalizeHand(ch, handID)
		return okEvent("HandSettled", map[string]string{
			"channelId": fmt.Sprintf("%d", ch.ID),
			"handId":    fmt.Sprintf("%d", handID),
			"result":    "fold",
			"winner":    ch.Participants[winner],
			"amount":    fmt.Sprintf("%d", out.CalledAmount),
		})

	case engine.OutcomeShowdown:
		deadline, err := addInt64AndU64Checked(nowUnix, uint64(a.cfg.RevealWindowSecs), "reveal deadline")
		if err != nil {
			return reject(err.Error())
		}
		finalizeHand(ch, handID)
		ch.Showdown = &state.PendingShowdown{
			HandID:       handID,
			CalledAmount: out.CalledAmount,
			Deadline:     deadline,
		}
		return okEvent("ShowdownPending", map[string]string{
			"channelId": fmt.Sprintf("%d", ch.ID),
			"handId":    fmt.Sprintf("%d", handID),
			"amount":    fmt.Sprintf("%d", out.CalledAmount),
			"deadline":  fmt.Sprintf("%d", deadline),
		})

	default:
		return reject(fmt.Sprintf("unknown outcome kind %d", out.Kind))
	}
}

// finalizeHand advances the channel past a settled hand.
func finalizeHand(ch *state.Channel, handID uint64) {
	if handID+1 > ch.NextHandID {
		ch.NextHandID = handID + 1
	}
	ch.Dispute = nil
	ch.Showdown = nil
}

// transferBalance moves amount between the channel's escrowed sides. The
// engine guarantees the called amount fits the loser's balance; a shortfall
// here means corrupted state, surfaced as a tx failure rather than a clamp.
func transferBalance(ch *state.Channel, from, to engine.Side, amount uint64) error {
	if amount == 0 {
		return nil
	}
	if ch.Balances[from] < amount {
		return fmt.Errorf("channel %d: side %d owes %d but holds %d", ch.ID, from, amount, ch.Balances[from])
	}
	next, err := addU64Checked(ch.Balances[to], amount, "channel balance")
	if err != nil {
		return err
	}
	ch.Balances[from] -= amount
	ch.Balances[to] = next
	return nil
}
