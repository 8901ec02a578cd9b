package app

import (
	"crypto/ed25519"
	"crypto/sha256"
	"fmt"
	"strconv"

	"huparbiter/internal/codec"
	"huparbiter/internal/engine"
	"huparbiter/internal/state"
)

const txAuthDomainV0 = "hup/tx/v0"

// SignatureVerifier abstracts signature checks so tests can script them and a
// later protocol revision can swap the scheme.
type SignatureVerifier interface {
	Verify(pub, msg, sig []byte) bool
}

type ed25519Verifier struct{}

func (ed25519Verifier) Verify(pub, msg, sig []byte) bool {
	if len(pub) != ed25519.PublicKeySize || len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pub), msg, sig)
}

func txAuthSignBytesV0(typ string, value []byte, nonce string, signer string) []byte {
	// signBytes = DOMAIN || 0x00 || type || 0x00 || nonce || 0x00 || signer || 0x00 || sha256(value)
	sum := sha256.Sum256(value)
	out := make([]byte, 0, len(txAuthDomainV0)+1+len(typ)+1+len(nonce)+1+len(signer)+1+sha256.Size)
	out = append(out, []byte(txAuthDomainV0)...)
	out = append(out, 0)
	out = append(out, []byte(typ)...)
	out = append(out, 0)
	out = append(out, []byte(nonce)...)
	out = append(out, 0)
	out = append(out, []byte(signer)...)
	out = append(out, 0)
	out = append(out, sum[:]...)
	return out
}

func requireSignedEnvelope(env codec.TxEnvelope) error {
	if env.Nonce == "" {
		return fmt.Errorf("missing tx.nonce")
	}
	if env.Signer == "" {
		return fmt.Errorf("missing tx.signer")
	}
	if len(env.Sig) == 0 {
		return fmt.Errorf("missing tx.sig")
	}
	if len(env.Sig) != ed25519.SignatureSize {
		return fmt.Errorf("invalid tx.sig length: got %d want %d", len(env.Sig), ed25519.SignatureSize)
	}
	return nil
}

// bumpNonce enforces strictly increasing numeric nonces per signer. Called
// only after the signature has been verified.
func bumpNonce(st *state.State, signer, nonce string) error {
	n, err := strconv.ParseUint(nonce, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid tx.nonce %q: must be a uint64", nonce)
	}
	last, seen := st.NonceMax[signer]
	if seen && n <= last {
		return fmt.Errorf("replayed tx.nonce %d: last accepted %d", n, last)
	}
	st.NonceMax[signer] = n
	return nil
}

// requireRegisterAccountAuth bootstraps: the registration is signed by the
// key being registered.
func (a *App) requireRegisterAccountAuth(st *state.State, env codec.TxEnvelope, msg codec.AuthRegisterAccountTx) error {
	if msg.Account == "" {
		return fmt.Errorf("missing account")
	}
	if len(msg.PubKey) != ed25519.PublicKeySize {
		return fmt.Errorf("pubKey must be %d bytes", ed25519.PublicKeySize)
	}
	if err := requireSignedEnvelope(env); err != nil {
		return err
	}
	if env.Signer != msg.Account {
		return fmt.Errorf("tx signer mismatch: signer=%q want=%q", env.Signer, msg.Account)
	}
	msgBytes := txAuthSignBytesV0(env.Type, env.Value, env.Nonce, env.Signer)
	if !a.verifier.Verify(msg.PubKey, msgBytes, env.Sig) {
		return fmt.Errorf("invalid signature")
	}
	return bumpNonce(st, env.Signer, env.Nonce)
}

// requireAccountAuth checks the envelope against the account's registered
// key and burns the nonce.
func (a *App) requireAccountAuth(st *state.State, env codec.TxEnvelope, account string) error {
	if st == nil {
		return fmt.Errorf("state is nil")
	}
	if account == "" {
		return fmt.Errorf("missing account")
	}
	if err := requireSignedEnvelope(env); err != nil {
		return err
	}
	if env.Signer != account {
		return fmt.Errorf("tx signer mismatch: signer=%q want=%q", env.Signer, account)
	}
	pub := st.AccountKeys[account]
	if len(pub) != ed25519.PublicKeySize {
		return fmt.Errorf("account %q missing pubKey (auth/register_account required)", account)
	}
	msg := txAuthSignBytesV0(env.Type, env.Value, env.Nonce, env.Signer)
	if !a.verifier.Verify(pub, msg, env.Sig) {
		return fmt.Errorf("invalid signature")
	}
	return bumpNonce(st, env.Signer, env.Nonce)
}

// actionKeyFor returns the key a participant signs hand actions with: the
// registered delegate session key if present, the account key otherwise.
func actionKeyFor(st *state.State, addr string) ([]byte, error) {
	if pub := st.Delegates[addr]; len(pub) == ed25519.PublicKeySize {
		return pub, nil
	}
	if pub := st.AccountKeys[addr]; len(pub) == ed25519.PublicKeySize {
		return pub, nil
	}
	return nil, fmt.Errorf("no action key for %q", addr)
}

// verifySignedLog authenticates every action in a submitted transcript
// against the channel's participants and strips the signatures. Structural
// chain validation is the engine's job; this only proves who said what.
func (a *App) verifySignedLog(st *state.State, ch *state.Channel, handID uint64, log []codec.SignedAction) ([]engine.Action, error) {
	if len(log) > a.cfg.MaxActionsPerLog {
		return nil, fmt.Errorf("transcript too long: %d actions, cap %d", len(log), a.cfg.MaxActionsPerLog)
	}
	keys := [2][]byte{}
	for side := 0; side < 2; side++ {
		pub, err := actionKeyFor(st, ch.Participants[side])
		if err != nil {
			return nil, err
		}
		keys[side] = pub
	}

	actions := make([]engine.Action, 0, len(log))
	for i, sa := range log {
		act := sa.Action
		if act.ChannelID != ch.ID || act.HandID != handID {
			return nil, fmt.Errorf("action %d scoped to channel=%d hand=%d, want channel=%d hand=%d",
				i, act.ChannelID, act.HandID, ch.ID, handID)
		}
		if !act.Sender.Valid() {
			return nil, fmt.Errorf("action %d: invalid sender side %d", i, act.Sender)
		}
		digest := act.Digest()
		if !a.verifier.Verify(keys[act.Sender], digest[:], sa.Sig) {
			return nil, fmt.Errorf("action %d: bad signature for side %d", i, act.Sender)
		}
		actions = append(actions, act)
	}
	return actions, nil
}
