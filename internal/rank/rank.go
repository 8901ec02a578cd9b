// Package rank decides showdowns. It wraps a 7-card evaluator behind a small
// interface so the arbiter can be tested with a scripted ranker.
package rank

import (
	"fmt"

	"github.com/paulhankin/poker"
	"github.com/pkg/errors"
)

// Card indexes the standard deck: 0..51, rank = c%13+2 (ace high), suit = c/13.
type Card uint8

func (c Card) Rank() uint8 { // 2..14
	return uint8(c%13) + 2
}

func (c Card) Suit() uint8 { // 0..3
	return uint8(c / 13)
}

func (c Card) Valid() bool {
	return c < 52
}

var (
	rankGlyphs = "23456789TJQKA"
	suitGlyphs = "cdhs"
)

func (c Card) String() string {
	if !c.Valid() {
		return fmt.Sprintf("card(%d)", uint8(c))
	}
	return string(rankGlyphs[c%13]) + string(suitGlyphs[c/13])
}

// Winner is a showdown verdict.
type Winner uint8

const (
	WinnerTie Winner = iota
	WinnerA
	WinnerB
)

func (w Winner) String() string {
	switch w {
	case WinnerTie:
		return "tie"
	case WinnerA:
		return "a"
	case WinnerB:
		return "b"
	default:
		return fmt.Sprintf("winner(%d)", uint8(w))
	}
}

// Ranker compares two hole-card pairs over a shared board.
type Ranker interface {
	Winner(board [5]Card, holeA, holeB [2]Card) (Winner, error)
}

// SevenCard is the production Ranker: best five of seven, ties split.
type SevenCard struct{}

func NewSevenCard() *SevenCard { return &SevenCard{} }

func (SevenCard) Winner(board [5]Card, holeA, holeB [2]Card) (Winner, error) {
	if err := checkDistinct(board, holeA, holeB); err != nil {
		return 0, err
	}
	scoreA, err := eval7(board, holeA)
	if err != nil {
		return 0, err
	}
	scoreB, err := eval7(board, holeB)
	if err != nil {
		return 0, err
	}
	switch {
	case scoreA > scoreB:
		return WinnerA, nil
	case scoreB > scoreA:
		return WinnerB, nil
	default:
		return WinnerTie, nil
	}
}

func checkDistinct(board [5]Card, holeA, holeB [2]Card) error {
	var seen [52]bool
	all := make([]Card, 0, 9)
	all = append(all, board[:]...)
	all = append(all, holeA[:]...)
	all = append(all, holeB[:]...)
	for _, c := range all {
		if !c.Valid() {
			return errors.Errorf("rank: card index %d out of range", uint8(c))
		}
		if seen[c] {
			return errors.Errorf("rank: duplicate card %s", c)
		}
		seen[c] = true
	}
	return nil
}

func eval7(board [5]Card, hole [2]Card) (int16, error) {
	var hand [7]poker.Card
	for i, c := range append(board[:], hole[:]...) {
		pc, err := libCard(c)
		if err != nil {
			return 0, err
		}
		hand[i] = pc
	}
	return poker.Eval7(&hand), nil
}

// libCard converts to the evaluator's representation, which keys aces as 1.
func libCard(c Card) (poker.Card, error) {
	r := c.Rank()
	if r == 14 {
		r = 1
	}
	pc, err := poker.MakeCard(poker.Suit(c.Suit()), poker.Rank(r))
	if err != nil {
		var zero poker.Card
		return zero, errors.Wrapf(err, "rank: card %s", c)
	}
	return pc, nil
}
