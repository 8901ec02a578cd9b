package app

import (
	"fmt"

	abci "github.com/cometbft/cometbft/abci/types"

	"huparbiter/internal/codec"
	"huparbiter/internal/engine"
	"huparbiter/internal/rank"
	"huparbiter/internal/state"
)

// handleRevealResult resolves a pending showdown. Card delivery and any
// fairness proofs live with the off-chain reveal flow; the arbiter takes a
// participant-signed result, checks the cards are a sane deal, and pays the
// better hand.
func (a *App) handleRevealResult(st *state.State, env codec.TxEnvelope, msg codec.RevealResultTx) *abci.ExecTxResult {
	ch := st.Channels[msg.ChannelID]
	if ch == nil {
		return reject("channel not found")
	}
	sd := ch.Showdown
	if sd == nil {
		return reject("no showdown pending")
	}
	if msg.HandID != sd.HandID {
		return reject(fmt.Sprintf("showdown is for hand %d, got %d", sd.HandID, msg.HandID))
	}
	if _, ok := ch.SideOf(msg.Submitter); !ok {
		return reject("submitter is not a participant")
	}
	if err := a.requireAccountAuth(st, env, msg.Submitter); err != nil {
		return reject(err.Error())
	}

	var board [5]rank.Card
	for i, c := range msg.Board {
		board[i] = rank.Card(c)
	}
	holeA := [2]rank.Card{rank.Card(msg.HoleA[0]), rank.Card(msg.HoleA[1])}
	holeB := [2]rank.Card{rank.Card(msg.HoleB[0]), rank.Card(msg.HoleB[1])}

	winner, err := a.ranker.Winner(board, holeA, holeB)
	if err != nil {
		return reject(err.Error())
	}

	result := "tie"
	winnerAddr := ""
	switch winner {
	case rank.WinnerA:
		if err := transferBalance(ch, engine.SideB, engine.SideA, sd.CalledAmount); err != nil {
			return reject(err.Error())
		}
		result, winnerAddr = "win", ch.Participants[0]
	case rank.WinnerB:
		if err := transferBalance(ch, engine.SideA, engine.SideB, sd.CalledAmount); err != nil {
			return reject(err.Error())
		}
		result, winnerAddr = "win", ch.Participants[1]
	case rank.WinnerTie:
		// Split pot: both contributions stay where they are.
	}
	ch.Showdown = nil

	attrs := map[string]string{
		"channelId": fmt.Sprintf("%d", msg.ChannelID),
		"handId":    fmt.Sprintf("%d", msg.HandID),
		"result":    result,
		"amount":    fmt.Sprintf("%d", sd.CalledAmount),
	}
	if winnerAddr != "" {
		attrs["winner"] = winnerAddr
	}
	return okEvent("ShowdownResolved", attrs)
}

// handleRevealTimeout finalizes a showdown whose reveal window lapsed. No
// chips move: with no cards on record there is no basis for a transfer, and
// a party that liked its hand had the whole window to reveal.
func (a *App) handleRevealTimeout(st *state.State, msg codec.RevealTimeoutTx, nowUnix int64) *abci.ExecTxResult {
	ch := st.Channels[msg.ChannelID]
	if ch == nil {
		return reject("channel not found")
	}
	sd := ch.Showdown
	if sd == nil {
		return reject("no showdown pending")
	}
	if nowUnix < sd.Deadline {
		return reject(fmt.Sprintf("reveal window open until %d, now %d", sd.Deadline, nowUnix))
	}
	ch.Showdown = nil
	return okEvent("ShowdownTimedOut", map[string]string{
		"channelId": fmt.Sprintf("%d", msg.ChannelID),
		"handId":    fmt.Sprintf("%d", sd.HandID),
	})
}
