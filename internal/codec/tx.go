package codec

import (
	"encoding/json"
	"fmt"

	"huparbiter/internal/engine"
)

// TxEnvelope is the v0 transaction container.
//
// CometBFT transactions are opaque bytes. For v0 localnet we use JSON-encoded
// txs to move fast; this is NOT the final protocol encoding.
type TxEnvelope struct {
	// Basic routing.
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`

	// v0 tx auth:
	// - Nonce: included in the signed message for replay protection (must increase per signer).
	// - Signer: logical signer id (account address).
	// - Sig: Ed25519 signature over (type, nonce, signer, sha256(value)).
	//
	// Note: This is still a scaffold; it is NOT the final protocol encoding.
	Nonce  string `json:"nonce,omitempty"`
	Signer string `json:"signer,omitempty"`
	Sig    []byte `json:"sig,omitempty"`
}

func DecodeTxEnvelope(txBytes []byte) (TxEnvelope, error) {
	var env TxEnvelope
	if err := json.Unmarshal(txBytes, &env); err != nil {
		return TxEnvelope{}, fmt.Errorf("invalid tx json: %w", err)
	}
	if env.Type == "" {
		return TxEnvelope{}, fmt.Errorf("missing tx.type")
	}
	return env, nil
}

// ---- Bank ----

type BankMintTx struct {
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
}

type BankSendTx struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
}

// ---- Auth (v0) ----

// v0: account pubkey registration for tx authentication.
type AuthRegisterAccountTx struct {
	Account string `json:"account"`
	PubKey  []byte `json:"pubKey"` // base64 (32 bytes)
}

// AuthRegisterDelegateTx binds a session key an account uses to sign hand
// actions off-chain. The envelope must be signed by the account key.
type AuthRegisterDelegateTx struct {
	Account string `json:"account"`
	PubKey  []byte `json:"pubKey"` // base64 (32 bytes)
}

// ---- Channels ----

// SignedAction is a hand action plus the ed25519 signature of its sender's
// action key (delegate if registered, account key otherwise) over the action
// digest.
type SignedAction struct {
	Action engine.Action `json:"action"`
	Sig    []byte        `json:"sig"` // base64 (64 bytes)
}

type ChannelOpenTx struct {
	Opener        string `json:"opener"`
	Peer          string `json:"peer"`
	Deposit       uint64 `json:"deposit"`
	MinSmallBlind uint64 `json:"minSmallBlind"`
}

type ChannelJoinTx struct {
	Joiner    string `json:"joiner"`
	ChannelID uint64 `json:"channelId"`
	Deposit   uint64 `json:"deposit"`
}

type ChannelDepositTx struct {
	Depositor string `json:"depositor"`
	ChannelID uint64 `json:"channelId"`
	Amount    uint64 `json:"amount"`
}

// ChannelCloseTx returns both escrowed balances to their owners. Either
// participant may close, but only while the channel is idle (no dispute,
// no pending showdown).
type ChannelCloseTx struct {
	Closer    string `json:"closer"`
	ChannelID uint64 `json:"channelId"`
}

// ChannelSettleTx submits a complete hand transcript for immediate
// settlement.
type ChannelSettleTx struct {
	Submitter string         `json:"submitter"`
	ChannelID uint64         `json:"channelId"`
	HandID    uint64         `json:"handId"`
	Log       []SignedAction `json:"log"`
}

// ChannelDisputeTx submits a (possibly incomplete) transcript to open or
// counter a dispute. The longest valid transcript for the newest hand wins
// once the window lapses.
type ChannelDisputeTx struct {
	Submitter string         `json:"submitter"`
	ChannelID uint64         `json:"channelId"`
	HandID    uint64         `json:"handId"`
	Log       []SignedAction `json:"log"`
}

// ChannelFinalizeTx applies a dispute's recorded outcome after its deadline.
// Anyone may call it.
type ChannelFinalizeTx struct {
	Caller    string `json:"caller"`
	ChannelID uint64 `json:"channelId"`
}

// ---- Reveal ----

// RevealResultTx resolves a pending showdown with the board and both hole
// pairs. Card encoding: 0..51, rank = c%13+2, suit = c/13.
type RevealResultTx struct {
	Submitter string   `json:"submitter"`
	ChannelID uint64   `json:"channelId"`
	HandID    uint64   `json:"handId"`
	Board     [5]uint8 `json:"board"`
	HoleA     [2]uint8 `json:"holeA"`
	HoleB     [2]uint8 `json:"holeB"`
}

// RevealTimeoutTx finalizes a pending showdown whose reveal window lapsed;
// no chips move. Anyone may call it.
type RevealTimeoutTx struct {
	Caller    string `json:"caller"`
	ChannelID uint64 `json:"channelId"`
}
