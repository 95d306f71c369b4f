package app

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/bond-desk/business/bonding/domain"
	"github.com/fd1az/bond-desk/internal/apperror"
)

// Action is a typed state mutation applied by Store.Dispatch.
type Action interface {
	isAction()
}

// QuoteFulfilled publishes a computed quote issued under Token.
type QuoteFulfilled struct {
	Token uint64
	Quote *domain.Quote
}

// QuoteRejected records a failed computation issued under Token.
type QuoteRejected struct {
	Bond  domain.Symbol
	Token uint64
	Err   error
}

// QuoteAbandoned clears the loading flag of a computation whose subscriber went away.
type QuoteAbandoned struct {
	Bond  domain.Symbol
	Token uint64
}

// PendingAdded registers a submitted transaction.
type PendingAdded struct {
	Tx domain.PendingTransaction
}

// PendingCleared removes the pending entry for Hash.
type PendingCleared struct {
	Hash common.Hash
}

// MessageAppended appends to the notification log.
type MessageAppended struct {
	Message domain.UserMessage
}

// BalancesLoaded replaces the account balances.
type BalancesLoaded struct {
	Balances Balances
}

// ActionChanged records the lifecycle state of an action keyed by its pending type.
type ActionChanged struct {
	Key   string
	State domain.ActionState
}

func (QuoteFulfilled) isAction()  {}
func (QuoteRejected) isAction()   {}
func (QuoteAbandoned) isAction()  {}
func (PendingAdded) isAction()    {}
func (PendingCleared) isAction()  {}
func (MessageAppended) isAction() {}
func (BalancesLoaded) isAction()  {}
func (ActionChanged) isAction()   {}

// Balances are the connected account's holdings in whole units.
type Balances struct {
	Payout   float64
	Reserves map[domain.Symbol]float64
}

// State is an immutable snapshot of the shared bonding state.
type State struct {
	Quotes   map[domain.Symbol]*domain.Quote
	Loading  map[domain.Symbol]bool
	Pending  []domain.PendingTransaction
	Messages []domain.UserMessage
	Balances Balances
	Actions  map[string]domain.ActionState
}

// Store is the single shared bonding state. All writes go through Dispatch;
// quote results issued under a superseded token are discarded.
type Store struct {
	mu     sync.Mutex
	state  State
	latest map[domain.Symbol]uint64

	subs    map[int]func(State)
	nextSub int

	// seq numbers snapshots under mu; deliverMu orders their delivery.
	seq       uint64
	deliverMu sync.Mutex
	delivered uint64
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		state: State{
			Quotes:  make(map[domain.Symbol]*domain.Quote),
			Loading: make(map[domain.Symbol]bool),
			Actions: make(map[string]domain.ActionState),
		},
		latest: make(map[domain.Symbol]uint64),
		subs:   make(map[int]func(State)),
	}
}

// BeginQuote issues the next request token for bond and marks it loading.
func (s *Store) BeginQuote(bond domain.Symbol) uint64 {
	s.mu.Lock()
	s.latest[bond]++
	token := s.latest[bond]
	s.state.Loading[bond] = true
	s.seq++
	seq, snap := s.seq, s.snapshotLocked()
	s.mu.Unlock()

	s.notify(seq, snap)
	return token
}

// Dispatch applies a. It returns false when a was ignored because it carried
// a superseded quote token or referred to an unknown entry.
func (s *Store) Dispatch(a Action) bool {
	s.mu.Lock()
	applied := s.reduce(a)
	var (
		seq  uint64
		snap State
	)
	if applied {
		s.seq++
		seq, snap = s.seq, s.snapshotLocked()
	}
	s.mu.Unlock()

	if applied {
		s.notify(seq, snap)
	}
	return applied
}

func (s *Store) reduce(a Action) bool {
	switch a := a.(type) {
	case QuoteFulfilled:
		bond := a.Quote.Bond
		if a.Token != s.latest[bond] {
			return false
		}
		s.state.Quotes[bond] = a.Quote
		s.state.Loading[bond] = false
		for _, n := range a.Quote.Notices {
			s.state.Messages = append(s.state.Messages, domain.NewUserMessage(domain.SeverityError, n.Text))
		}
		return true

	case QuoteRejected:
		if a.Token != s.latest[a.Bond] {
			return false
		}
		s.state.Loading[a.Bond] = false
		s.state.Messages = append(s.state.Messages, domain.NewUserMessage(domain.SeverityError, apperror.UserMessage(a.Err)))
		return true

	case QuoteAbandoned:
		if a.Token != s.latest[a.Bond] {
			return false
		}
		s.state.Loading[a.Bond] = false
		return true

	case PendingAdded:
		for _, p := range s.state.Pending {
			if p.Hash == a.Tx.Hash {
				return false
			}
		}
		s.state.Pending = append(s.state.Pending, a.Tx)
		return true

	case PendingCleared:
		for i, p := range s.state.Pending {
			if p.Hash == a.Hash {
				s.state.Pending = append(s.state.Pending[:i:i], s.state.Pending[i+1:]...)
				return true
			}
		}
		return false

	case MessageAppended:
		s.state.Messages = append(s.state.Messages, a.Message)
		return true

	case BalancesLoaded:
		s.state.Balances = a.Balances
		return true

	case ActionChanged:
		s.state.Actions[a.Key] = a.State
		return true

	default:
		return false
	}
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() State {
	out := State{
		Quotes:   make(map[domain.Symbol]*domain.Quote, len(s.state.Quotes)),
		Loading:  make(map[domain.Symbol]bool, len(s.state.Loading)),
		Pending:  append([]domain.PendingTransaction(nil), s.state.Pending...),
		Messages: append([]domain.UserMessage(nil), s.state.Messages...),
		Balances: Balances{
			Payout:   s.state.Balances.Payout,
			Reserves: make(map[domain.Symbol]float64, len(s.state.Balances.Reserves)),
		},
		Actions: make(map[string]domain.ActionState, len(s.state.Actions)),
	}
	for k, v := range s.state.Quotes {
		out.Quotes[k] = v
	}
	for k, v := range s.state.Loading {
		out.Loading[k] = v
	}
	for k, v := range s.state.Balances.Reserves {
		out.Balances.Reserves[k] = v
	}
	for k, v := range s.state.Actions {
		out.Actions[k] = v
	}
	return out
}

// Subscribe registers fn to receive a snapshot after every applied change.
// Snapshots arrive in order; under concurrent dispatches a subscriber may
// skip straight to the newest one. fn must not call back into the Store.
// The returned function unregisters it.
func (s *Store) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Store) notify(seq uint64, snap State) {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()
	if seq <= s.delivered {
		return
	}
	s.delivered = seq

	s.mu.Lock()
	fns := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}
