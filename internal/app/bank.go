package app

import (
	"fmt"

	abci "github.com/cometbft/cometbft/abci/types"

	"huparbiter/internal/codec"
	"huparbiter/internal/state"
)

// bank/mint is an unauthenticated faucet for v0 localnet only.
func (a *App) handleBankMint(st *state.State, msg codec.BankMintTx) *abci.ExecTxResult {
	if msg.To == "" || msg.Amount == 0 {
		return reject("missing to/amount")
	}
	if err := st.Credit(msg.To, msg.Amount); err != nil {
		return reject(err.Error())
	}
	return okEvent("BankMinted", map[string]string{
		"to":     msg.To,
		"amount": fmt.Sprintf("%d", msg.Amount),
	})
}

func (a *App) handleBankSend(st *state.State, env codec.TxEnvelope, msg codec.BankSendTx) *abci.ExecTxResult {
	if msg.From == "" || msg.To == "" || msg.Amount == 0 {
		return reject("missing from/to/amount")
	}
	if err := a.requireAccountAuth(st, env, msg.From); err != nil {
		return reject(err.Error())
	}
	if err := st.Debit(msg.From, msg.Amount); err != nil {
		return reject(err.Error())
	}
	if err := st.Credit(msg.To, msg.Amount); err != nil {
		return reject(err.Error())
	}
	return okEvent("BankSent", map[string]string{
		"from":   msg.From,
		"to":     msg.To,
		"amount": fmt.Sprintf("%d", msg.Amount),
	})
}

func (a *App) handleRegisterAccount(st *state.State, env codec.TxEnvelope, msg codec.AuthRegisterAccountTx) *abci.ExecTxResult {
	if err := a.requireRegisterAccountAuth(st, env, msg); err != nil {
		return reject(err.Error())
	}
	if existing := st.AccountKeys[msg.Account]; len(existing) > 0 {
		// Key rotation is deliberate: it must be signed by the NEW key above
		// and the OLD key via a normal account-authed envelope. v0 keeps it
		// simple and refuses rotation entirely.
		return reject(fmt.Sprintf("account %q already registered", msg.Account))
	}
	st.AccountKeys[msg.Account] = append([]byte(nil), msg.PubKey...)
	return okEvent("AccountRegistered", map[string]string{
		"account": msg.Account,
	})
}

// handleRegisterDelegate binds a session key for off-chain hand actions. The
// envelope is signed by the account key, so losing a delegate key never loses
// the account.
func (a *App) handleRegisterDelegate(st *state.State, env codec.TxEnvelope, msg codec.AuthRegisterDelegateTx) *abci.ExecTxResult {
	if msg.Account == "" {
		return reject("missing account")
	}
	if len(msg.PubKey) != 32 {
		return reject("pubKey must be 32 bytes")
	}
	if err := a.requireAccountAuth(st, env, msg.Account); err != nil {
		return reject(err.Error())
	}
	st.Delegates[msg.Account] = append([]byte(nil), msg.PubKey...)
	return okEvent("DelegateRegistered", map[string]string{
		"account": msg.Account,
	})
}
