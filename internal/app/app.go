package app

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	abci "github.com/cometbft/cometbft/abci/types"

	"huparbiter/internal/codec"
	"huparbiter/internal/config"
	"huparbiter/internal/engine"
	"huparbiter/internal/rank"
	"huparbiter/internal/state"
)

const (
	AppVersion uint64 = 1

	// codeRejected is the generic tx failure code.
	codeRejected uint32 = 1
	// codeHandNotDone marks a settle whose transcript is valid but incomplete.
	// Clients route these to the dispute path instead of retrying.
	codeHandNotDone uint32 = 2
)

type App struct {
	*abci.BaseApplication

	home string
	cfg  config.Config

	verifier SignatureVerifier
	ranker   rank.Ranker

	mu       sync.Mutex
	st       *state.State
	lastHash []byte
}

type Option func(*App)

// WithSignatureVerifier swaps the ed25519 verifier, mainly for tests.
func WithSignatureVerifier(v SignatureVerifier) Option {
	return func(a *App) { a.verifier = v }
}

// WithHandRanker swaps the showdown evaluator.
func WithHandRanker(r rank.Ranker) Option {
	return func(a *App) { a.ranker = r }
}

func New(home string, cfg config.Config, opts ...Option) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	appHome := filepath.Join(home, "app")
	st, err := state.Load(appHome)
	if err != nil {
		return nil, err
	}
	a := &App{
		BaseApplication: abci.NewBaseApplication(),
		home:            home,
		cfg:             cfg,
		verifier:        ed25519Verifier{},
		ranker:          rank.NewSevenCard(),
		st:              st,
		lastHash:        st.AppHash(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

func (a *App) engineParams() engine.Params {
	return engine.Params{MaxRaisesPerStreet: a.cfg.MaxRaisesPerStreet}
}

func (a *App) Info(_ context.Context, _ *abci.InfoRequest) (*abci.InfoResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	return &abci.InfoResponse{
		Data:             "hupad (v0)",
		Version:          "v0",
		AppVersion:       AppVersion,
		LastBlockHeight:  a.st.Height,
		LastBlockAppHash: a.lastHash,
	}, nil
}

func (a *App) CheckTx(_ context.Context, req *abci.CheckTxRequest) (*abci.CheckTxResponse, error) {
	_, err := codec.DecodeTxEnvelope(req.Tx)
	if err != nil {
		return &abci.CheckTxResponse{Code: codeRejected, Log: err.Error()}, nil
	}
	// v0: only structural validation; full auth runs at delivery.
	return &abci.CheckTxResponse{Code: 0}, nil
}

func (a *App) InitChain(_ context.Context, _ *abci.InitChainRequest) (*abci.InitChainResponse, error) {
	// v0: no special genesis handling.
	return &abci.InitChainResponse{}, nil
}

func (a *App) FinalizeBlock(_ context.Context, req *abci.FinalizeBlockRequest) (*abci.FinalizeBlockResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.st.Height = req.Height
	nowUnix := req.Time.Unix()

	txResults := make([]*abci.ExecTxResult, 0, len(req.Txs))
	for _, txBytes := range req.Txs {
		res := a.deliverTx(txBytes, req.Height, nowUnix)
		txResults = append(txResults, res)
	}

	a.lastHash = a.st.AppHash()

	return &abci.FinalizeBlockResponse{
		TxResults: txResults,
		AppHash:   a.lastHash,
	}, nil
}

func (a *App) Commit(_ context.Context, _ *abci.CommitRequest) (*abci.CommitResponse, error) {
	// Persist after each block for devnet durability.
	appHome := filepath.Join(a.home, "app")
	if err := a.st.Save(appHome); err != nil {
		// CometBFT expects Commit to not crash; return error so node halts loudly.
		return nil, err
	}
	return &abci.CommitResponse{}, nil
}

func (a *App) Query(_ context.Context, req *abci.QueryRequest) (*abci.QueryResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Paths:
	// - /account/<addr>
	// - /channel/<id>
	// - /channels
	path := strings.TrimSpace(req.Path)
	switch {
	case path == "/channels":
		ids := make([]uint64, 0, len(a.st.Channels))
		for id := range a.st.Channels {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		b, _ := json.Marshal(ids)
		return &abci.QueryResponse{Code: 0, Value: b, Height: a.st.Height}, nil
	case strings.HasPrefix(path, "/account/"):
		addr := strings.TrimPrefix(path, "/account/")
		bal := a.st.Balance(addr)
		b, _ := json.Marshal(map[string]any{"addr": addr, "balance": bal})
		return &abci.QueryResponse{Code: 0, Value: b, Height: a.st.Height}, nil
	case strings.HasPrefix(path, "/channel/"):
		raw := strings.TrimPrefix(path, "/channel/")
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return &abci.QueryResponse{Code: codeRejected, Log: "invalid channel id", Height: a.st.Height}, nil
		}
		ch, ok := a.st.Channels[id]
		if !ok {
			return &abci.QueryResponse{Code: codeRejected, Log: "channel not found", Height: a.st.Height}, nil
		}
		b, _ := json.Marshal(ch)
		return &abci.QueryResponse{Code: 0, Value: b, Height: a.st.Height}, nil
	default:
		return &abci.QueryResponse{Code: codeRejected, Log: "unknown query path", Height: a.st.Height}, nil
	}
}

// deliverTx executes one tx against a staged copy of state and commits the
// copy only on success, so a failing tx can never leave a partial write.
func (a *App) deliverTx(txBytes []byte, height int64, nowUnix int64) *abci.ExecTxResult {
	env, err := codec.DecodeTxEnvelope(txBytes)
	if err != nil {
		return &abci.ExecTxResult{Code: codeRejected, Log: err.Error()}
	}

	staged, err := a.st.Clone()
	if err != nil {
		return &abci.ExecTxResult{Code: codeRejected, Log: "clone state: " + err.Error()}
	}
	res := a.routeTx(staged, env, height, nowUnix)
	if res.Code == 0 {
		a.st = staged
	}
	return res
}

func (a *App) routeTx(st *state.State, env codec.TxEnvelope, height int64, nowUnix int64) *abci.ExecTxResult {
	switch env.Type {
	case "bank/mint":
		var msg codec.BankMintTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return &abci.ExecTxResult{Code: codeRejected, Log: "bad bank/mint value"}
		}
		return a.handleBankMint(st, msg)

	case "bank/send":
		var msg codec.BankSendTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return &abci.ExecTxResult{Code: codeRejected, Log: "bad bank/send value"}
		}
		return a.handleBankSend(st, env, msg)

	case "auth/register_account":
		var msg codec.AuthRegisterAccountTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return &abci.ExecTxResult{Code: codeRejected, Log: "bad auth/register_account value"}
		}
		return a.handleRegisterAccount(st, env, msg)

	case "auth/register_delegate":
		var msg codec.AuthRegisterDelegateTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return &abci.ExecTxResult{Code: codeRejected, Log: "bad auth/register_delegate value"}
		}
		return a.handleRegisterDelegate(st, env, msg)

	case "channel/open":
		var msg codec.ChannelOpenTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return &abci.ExecTxResult{Code: codeRejected, Log: "bad channel/open value"}
		}
		return a.handleChannelOpen(st, env, msg)

	case "channel/join":
		var msg codec.ChannelJoinTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return &abci.ExecTxResult{Code: codeRejected, Log: "bad channel/join value"}
		}
		return a.handleChannelJoin(st, env, msg)

	case "channel/deposit":
		var msg codec.ChannelDepositTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return &abci.ExecTxResult{Code: codeRejected, Log: "bad channel/deposit value"}
		}
		return a.handleChannelDeposit(st, env, msg)

	case "channel/close":
		var msg codec.ChannelCloseTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return &abci.ExecTxResult{Code: codeRejected, Log: "bad channel/close value"}
		}
		return a.handleChannelClose(st, env, msg)

	case "channel/settle":
		var msg codec.ChannelSettleTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return &abci.ExecTxResult{Code: codeRejected, Log: "bad channel/settle value"}
		}
		return a.handleChannelSettle(st, env, msg, nowUnix)

	case "channel/dispute":
		var msg codec.ChannelDisputeTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return &abci.ExecTxResult{Code: codeRejected, Log: "bad channel/dispute value"}
		}
		return a.handleChannelDispute(st, env, msg, nowUnix)

	case "channel/finalize":
		var msg codec.ChannelFinalizeTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return &abci.ExecTxResult{Code: codeRejected, Log: "bad channel/finalize value"}
		}
		return a.handleChannelFinalize(st, msg, nowUnix)

	case "reveal/result":
		var msg codec.RevealResultTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return &abci.ExecTxResult{Code: codeRejected, Log: "bad reveal/result value"}
		}
		return a.handleRevealResult(st, env, msg)

	case "reveal/timeout":
		var msg codec.RevealTimeoutTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return &abci.ExecTxResult{Code: codeRejected, Log: "bad reveal/timeout value"}
		}
		return a.handleRevealTimeout(st, msg, nowUnix)

	default:
		return &abci.ExecTxResult{Code: codeRejected, Log: "unknown tx type: " + env.Type}
	}
}

func okEvent(typ string, attrs map[string]string) *abci.ExecTxResult {
	ev := abci.Event{Type: typ}
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		ev.Attributes = append(ev.Attributes, abci.EventAttribute{Key: k, Value: attrs[k], Index: true})
	}
	return &abci.ExecTxResult{
		Code:   0,
		Events: []abci.Event{ev},
	}
}

func reject(log string) *abci.ExecTxResult {
	return &abci.ExecTxResult{Code: codeRejected, Log: log}
}
