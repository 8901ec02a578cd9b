package rank

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// card builds a deck index from rank (2..14, ace high) and suit (0..3).
func card(r, s uint8) Card {
	return Card(s*13 + (r - 2))
}

func TestCard_RankSuitString(t *testing.T) {
	c := card(14, 3) // ace of spades
	assert.Equal(t, uint8(14), c.Rank())
	assert.Equal(t, uint8(3), c.Suit())
	assert.Equal(t, "As", c.String())

	c = card(2, 0)
	assert.Equal(t, "2c", c.String())
	assert.True(t, c.Valid())
	assert.False(t, Card(52).Valid())
}

func TestSevenCard_HighCardKickerDecides(t *testing.T) {
	board := [5]Card{card(2, 0), card(5, 1), card(7, 2), card(9, 3), card(11, 0)}
	holeA := [2]Card{card(14, 1), card(3, 2)} // ace high
	holeB := [2]Card{card(13, 1), card(4, 2)} // king high

	w, err := NewSevenCard().Winner(board, holeA, holeB)
	require.NoError(t, err)
	assert.Equal(t, WinnerA, w)

	// Symmetric call flips the verdict.
	w, err = NewSevenCard().Winner(board, holeB, holeA)
	require.NoError(t, err)
	assert.Equal(t, WinnerB, w)
}

func TestSevenCard_PairBeatsHighCard(t *testing.T) {
	board := [5]Card{card(2, 0), card(5, 1), card(7, 2), card(9, 3), card(11, 0)}
	holeA := [2]Card{card(9, 0), card(3, 2)}  // pair of nines
	holeB := [2]Card{card(14, 1), card(4, 2)} // ace high

	w, err := NewSevenCard().Winner(board, holeA, holeB)
	require.NoError(t, err)
	assert.Equal(t, WinnerA, w)
}

func TestSevenCard_BoardPlaysIsTie(t *testing.T) {
	// Broadway on the board; hole cards are irrelevant.
	board := [5]Card{card(10, 0), card(11, 0), card(12, 1), card(13, 2), card(14, 3)}
	holeA := [2]Card{card(2, 1), card(3, 1)}
	holeB := [2]Card{card(4, 2), card(5, 2)}

	w, err := NewSevenCard().Winner(board, holeA, holeB)
	require.NoError(t, err)
	assert.Equal(t, WinnerTie, w)
}

func TestSevenCard_FlushBeatsStraight(t *testing.T) {
	board := [5]Card{card(4, 0), card(8, 0), card(11, 0), card(6, 1), card(7, 2)}
	holeA := [2]Card{card(2, 0), card(3, 0)}  // club flush
	holeB := [2]Card{card(5, 1), card(9, 2)}  // nine-high straight

	w, err := NewSevenCard().Winner(board, holeA, holeB)
	require.NoError(t, err)
	assert.Equal(t, WinnerA, w)
}

func TestSevenCard_RejectsBadInput(t *testing.T) {
	board := [5]Card{card(2, 0), card(5, 1), card(7, 2), card(9, 3), card(11, 0)}

	t.Run("duplicateAcrossHands", func(t *testing.T) {
		_, err := NewSevenCard().Winner(board,
			[2]Card{card(14, 1), card(3, 2)},
			[2]Card{card(14, 1), card(4, 2)})
		require.Error(t, err)
	})
	t.Run("duplicateWithBoard", func(t *testing.T) {
		_, err := NewSevenCard().Winner(board,
			[2]Card{card(2, 0), card(3, 2)},
			[2]Card{card(13, 1), card(4, 2)})
		require.Error(t, err)
	})
	t.Run("outOfRange", func(t *testing.T) {
		_, err := NewSevenCard().Winner(board,
			[2]Card{Card(52), card(3, 2)},
			[2]Card{card(13, 1), card(4, 2)})
		require.Error(t, err)
	})
}
