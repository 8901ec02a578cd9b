package state

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"huparbiter/internal/engine"
)

type State struct {
	Height int64 `json:"height"`

	NextChannelID uint64              `json:"nextChannelId"`
	Accounts      map[string]uint64   `json:"accounts"`
	AccountKeys   map[string][]byte   `json:"accountKeys,omitempty"` // addr -> ed25519 pubkey (32 bytes)
	Delegates     map[string][]byte   `json:"delegates,omitempty"`   // addr -> ed25519 session pubkey used to sign hand actions
	NonceMax      map[string]uint64   `json:"nonceMax,omitempty"`    // signer -> last accepted tx.nonce (u64), for replay protection
	Channels      map[uint64]*Channel `json:"channels"`
}

func NewState() *State {
	return &State{
		Height:        0,
		NextChannelID: 1,
		Accounts:      map[string]uint64{},
		AccountKeys:   map[string][]byte{},
		Delegates:     map[string][]byte{},
		NonceMax:      map[string]uint64{},
		Channels:      map[uint64]*Channel{},
	}
}

func Load(home string) (*State, error) {
	path := filepath.Join(home, "state.json")
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewState(), nil
		}
		return nil, fmt.Errorf("read state: %w", err)
	}
	var st State
	if err := json.Unmarshal(b, &st); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	normalize(&st)
	return &st, nil
}

func (s *State) Save(home string) error {
	if err := os.MkdirAll(home, 0o755); err != nil {
		return fmt.Errorf("mkdir home: %w", err)
	}
	path := filepath.Join(home, "state.json")
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	return nil
}

// Clone returns a deep copy of state suitable for staged tx execution.
func (s *State) Clone() (*State, error) {
	if s == nil {
		return nil, fmt.Errorf("state is nil")
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode state clone: %w", err)
	}
	var out State
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("decode state clone: %w", err)
	}
	normalize(&out)
	return &out, nil
}

func normalize(st *State) {
	if st.Accounts == nil {
		st.Accounts = map[string]uint64{}
	}
	if st.AccountKeys == nil {
		st.AccountKeys = map[string][]byte{}
	}
	if st.Delegates == nil {
		st.Delegates = map[string][]byte{}
	}
	if st.NonceMax == nil {
		st.NonceMax = map[string]uint64{}
	}
	if st.Channels == nil {
		st.Channels = map[uint64]*Channel{}
	}
	if st.NextChannelID == 0 {
		st.NextChannelID = 1
	}
}

func (s *State) AppHash() []byte {
	// Deterministic JSON hash: marshal with stable key ordering by serializing
	// a normalized view.
	//
	// Note: encoding/json does NOT guarantee map key order, so we manually
	// normalize maps into slices.
	type accountKV struct {
		Addr    string `json:"addr"`
		Balance uint64 `json:"balance"`
	}
	type keyKV struct {
		Addr   string `json:"addr"`
		PubKey []byte `json:"pubKey"`
	}
	type nonceKV struct {
		Signer string `json:"signer"`
		Nonce  uint64 `json:"nonce"`
	}
	type channelKV struct {
		ID      uint64   `json:"id"`
		Channel *Channel `json:"channel"`
	}

	accounts := make([]accountKV, 0, len(s.Accounts))
	for k, v := range s.Accounts {
		accounts = append(accounts, accountKV{Addr: k, Balance: v})
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].Addr < accounts[j].Addr })

	accountKeys := make([]keyKV, 0, len(s.AccountKeys))
	for k, v := range s.AccountKeys {
		accountKeys = append(accountKeys, keyKV{Addr: k, PubKey: v})
	}
	sort.Slice(accountKeys, func(i, j int) bool { return accountKeys[i].Addr < accountKeys[j].Addr })

	delegates := make([]keyKV, 0, len(s.Delegates))
	for k, v := range s.Delegates {
		delegates = append(delegates, keyKV{Addr: k, PubKey: v})
	}
	sort.Slice(delegates, func(i, j int) bool { return delegates[i].Addr < delegates[j].Addr })

	nonces := make([]nonceKV, 0, len(s.NonceMax))
	for k, v := range s.NonceMax {
		nonces = append(nonces, nonceKV{Signer: k, Nonce: v})
	}
	sort.Slice(nonces, func(i, j int) bool { return nonces[i].Signer < nonces[j].Signer })

	channels := make([]channelKV, 0, len(s.Channels))
	for id, ch := range s.Channels {
		channels = append(channels, channelKV{ID: id, Channel: ch})
	}
	sort.Slice(channels, func(i, j int) bool { return channels[i].ID < channels[j].ID })

	normalized := struct {
		Height        int64       `json:"height"`
		NextChannelID uint64      `json:"nextChannelId"`
		Accounts      []accountKV `json:"accounts"`
		AccountKeys   []keyKV     `json:"accountKeys,omitempty"`
		Delegates     []keyKV     `json:"delegates,omitempty"`
		NonceMax      []nonceKV   `json:"nonceMax,omitempty"`
		Channels      []channelKV `json:"channels"`
	}{
		Height:        s.Height,
		NextChannelID: s.NextChannelID,
		Accounts:      accounts,
		AccountKeys:   accountKeys,
		Delegates:     delegates,
		NonceMax:      nonces,
		Channels:      channels,
	}

	b, _ := json.Marshal(normalized)
	sum := sha256.Sum256(b)
	return sum[:]
}

// ---- Bank ----

func (s *State) Balance(addr string) uint64 {
	return s.Accounts[addr]
}

func (s *State) Credit(addr string, amount uint64) error {
	bal := s.Accounts[addr]
	if bal > ^uint64(0)-amount {
		return fmt.Errorf("balance overflow: have=%d add=%d", bal, amount)
	}
	s.Accounts[addr] = bal + amount
	return nil
}

func (s *State) Debit(addr string, amount uint64) error {
	bal := s.Accounts[addr]
	if bal < amount {
		return fmt.Errorf("insufficient funds: have=%d need=%d", bal, amount)
	}
	s.Accounts[addr] = bal - amount
	return nil
}

// ---- Channels ----

type ChannelStatus string

const (
	// ChannelPending: opened by one participant, waiting for the other to join.
	ChannelPending ChannelStatus = "pending"
	// ChannelOpen: both sides funded; hands may be settled or disputed.
	ChannelOpen ChannelStatus = "open"
	// ChannelClosed: funds released back to accounts; terminal.
	ChannelClosed ChannelStatus = "closed"
)

// Channel is an escrowed heads-up match between two accounts. Balances index
// by engine side: Participants[0] is side 0, Participants[1] is side 1.
type Channel struct {
	ID            uint64        `json:"id"`
	Participants  [2]string     `json:"participants"`
	Balances      [2]uint64     `json:"balances"`
	MinSmallBlind uint64        `json:"minSmallBlind"`
	Status        ChannelStatus `json:"status"`

	// NextHandID is the lowest hand id that has not been finalized on-chain.
	// Settlements and disputes for smaller ids are stale and rejected.
	NextHandID uint64 `json:"nextHandId"`

	Dispute  *DisputeRecord   `json:"dispute,omitempty"`
	Showdown *PendingShowdown `json:"showdown,omitempty"`
}

// SideOf maps a participant address to its engine side.
func (c *Channel) SideOf(addr string) (engine.Side, bool) {
	switch addr {
	case c.Participants[0]:
		return engine.SideA, true
	case c.Participants[1]:
		return engine.SideB, true
	default:
		return 0, false
	}
}

// DisputeRecord tracks the best transcript submitted for a disputed hand.
// A longer valid transcript for the same hand, or any valid transcript for a
// newer hand, replaces it and restarts the response window.
type DisputeRecord struct {
	HandID   uint64         `json:"handId"`
	Deadline int64          `json:"deadline"` // unix seconds
	BestLen  int            `json:"bestLen"`
	Outcome  engine.Outcome `json:"outcome"`
}

// PendingShowdown holds a settled-to-showdown hand waiting for hole cards.
// If the reveal window lapses, the called amount stays put and the hand
// finalizes without a transfer.
type PendingShowdown struct {
	HandID       uint64 `json:"handId"`
	CalledAmount uint64 `json:"calledAmount"`
	Deadline     int64  `json:"deadline"` // unix seconds
}
