package engine

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
)

// Side identifies one of the two channel participants. Side 0 is the party
// that opened the channel, side 1 the joiner.
type Side uint8

const (
	SideA Side = 0
	SideB Side = 1
)

func (s Side) Valid() bool { return s <= 1 }

// Other returns the opposing side.
func (s Side) Other() Side { return 1 - s }

// Kind is the move kind of a transcript action.
type Kind uint8

const (
	KindSmallBlind Kind = iota
	KindBigBlind
	KindFold
	KindCheckCall
	KindBetRaise
)

func (k Kind) String() string {
	switch k {
	case KindSmallBlind:
		return "smallBlind"
	case KindBigBlind:
		return "bigBlind"
	case KindFold:
		return "fold"
	case KindCheckCall:
		return "checkCall"
	case KindBetRaise:
		return "betRaise"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Action is one move of a hand transcript. PrevHash holds the digest of the
// preceding action (the per-hand genesis value for the first), which makes the
// log tamper-evident: altering or reordering any entry breaks every subsequent
// link.
//
// Amount is the chips moved by this action: the posted blind for
// SmallBlind/BigBlind, the total chips put in (call portion plus increment)
// for BetRaise, and 0 for Fold and CheckCall.
type Action struct {
	ChannelID uint64 `json:"channelId"`
	HandID    uint64 `json:"handId"`
	Seq       uint64 `json:"seq"`
	Kind      Kind   `json:"kind"`
	Amount    uint64 `json:"amount,omitempty"`
	PrevHash  []byte `json:"prevHash"` // 32 bytes
	Sender    Side   `json:"sender"`
}

const (
	actionDomainV1  = "hup/action/v1"
	genesisDomainV1 = "hup/genesis/v1"
)

// Digest returns the collision-resistant hash of the action. It is both the
// chain link carried in the successor's PrevHash and the digest the sender
// signs. All fields are fixed width, so no length framing is needed beyond
// the domain separator.
func (a Action) Digest() [32]byte {
	h := sha256.New()
	h.Write([]byte(actionDomainV1))
	h.Write([]byte{0})
	var buf [8]byte
	for _, v := range []uint64{a.ChannelID, a.HandID, a.Seq, a.Amount} {
		binary.LittleEndian.PutUint64(buf[:], v)
		h.Write(buf[:])
	}
	h.Write([]byte{byte(a.Kind), byte(a.Sender)})
	h.Write(a.PrevHash)
	var out [32]byte
	h.Sum(out[:0])
	return out
}

// GenesisHash derives the PrevHash expected of a hand's first action.
func GenesisHash(channelID, handID uint64) [32]byte {
	h := sha256.New()
	h.Write([]byte(genesisDomainV1))
	h.Write([]byte{0})
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], channelID)
	h.Write(buf[:])
	binary.LittleEndian.PutUint64(buf[:], handID)
	h.Write(buf[:])
	var out [32]byte
	h.Sum(out[:0])
	return out
}

// SmallBlindSide returns which side posts the small blind for a hand.
// Position alternates by hand parity, so neither party can pick it.
func SmallBlindSide(handID uint64) Side {
	return Side(handID & 1)
}

// validateChain checks the structural integrity of a transcript: a single
// (channel, hand) scope, strictly increasing sequence numbers, and an intact
// hash chain rooted at the per-hand genesis value.
func validateChain(log []Action) error {
	if len(log) == 0 {
		return nil
	}
	first := log[0]
	genesis := GenesisHash(first.ChannelID, first.HandID)
	prev := genesis[:]
	var lastSeq uint64
	for i := range log {
		a := log[i]
		if a.ChannelID != first.ChannelID || a.HandID != first.HandID {
			return rejectf(RejectMalformed, "action %d scope mismatch: channel=%d hand=%d want channel=%d hand=%d",
				i, a.ChannelID, a.HandID, first.ChannelID, first.HandID)
		}
		if i > 0 && a.Seq <= lastSeq {
			return rejectf(RejectMalformed, "action %d sequence not strictly increasing: seq=%d after %d", i, a.Seq, lastSeq)
		}
		lastSeq = a.Seq
		if !a.Sender.Valid() {
			return rejectf(RejectMalformed, "action %d invalid sender side %d", i, a.Sender)
		}
		if len(a.PrevHash) != sha256.Size {
			return rejectf(RejectMalformed, "action %d prevHash length %d, want %d", i, len(a.PrevHash), sha256.Size)
		}
		if !bytes.Equal(a.PrevHash, prev) {
			return rejectf(RejectMalformed, "action %d breaks the hash chain", i)
		}
		d := a.Digest()
		prev = d[:]
	}
	return nil
}
