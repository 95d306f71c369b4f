package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/fd1az/bond-desk/business/bonding/domain"
	"github.com/fd1az/bond-desk/internal/logger"
)

// scriptedEngine returns a quote whose payout echoes the amount. Calls for an
// amount listed in gates block until that gate is closed.
type scriptedEngine struct {
	mu      sync.Mutex
	amounts []decimal.Decimal
	gates   map[string]chan struct{}
	started chan string
	err     error
}

func newScriptedEngine() *scriptedEngine {
	return &scriptedEngine{gates: make(map[string]chan struct{}), started: make(chan string, 64)}
}

func (e *scriptedEngine) ComputeBondDetails(_ context.Context, b *domain.Bond, amount decimal.Decimal, _ domain.NetworkID) (*domain.Quote, error) {
	e.mu.Lock()
	e.amounts = append(e.amounts, amount)
	gate := e.gates[amount.String()]
	err := e.err
	e.mu.Unlock()

	select {
	case e.started <- amount.String():
	default:
	}
	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	return &domain.Quote{Bond: b.Name, Payout: amount.InexactFloat64()}, nil
}

func (e *scriptedEngine) calls() []decimal.Decimal {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]decimal.Decimal(nil), e.amounts...)
}

func newTestRefresher(t *testing.T, engine QuoteComputer, store *Store) *Refresher {
	t.Helper()
	r, err := NewRefresher(engine, store, domain.Mainnet, logger.Nop())
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestStoreDiscardsSupersededToken(t *testing.T) {
	s := NewStore()

	first := s.BeginQuote(domain.DAI)
	second := s.BeginQuote(domain.DAI)
	if second <= first {
		t.Fatalf("tokens not increasing: %d then %d", first, second)
	}

	if s.Dispatch(QuoteFulfilled{Token: first, Quote: &domain.Quote{Bond: domain.DAI, Payout: 1}}) {
		t.Error("superseded result was applied")
	}
	if !s.Snapshot().Loading[domain.DAI] {
		t.Error("loading cleared by a superseded result")
	}
	if !s.Dispatch(QuoteFulfilled{Token: second, Quote: &domain.Quote{Bond: domain.DAI, Payout: 2}}) {
		t.Error("latest result was ignored")
	}

	snap := s.Snapshot()
	if snap.Loading[domain.DAI] {
		t.Error("loading not cleared")
	}
	if snap.Quotes[domain.DAI].Payout != 2 {
		t.Errorf("Payout = %v, want 2", snap.Quotes[domain.DAI].Payout)
	}
}

func TestStoreTokensArePerBond(t *testing.T) {
	s := NewStore()
	dai := s.BeginQuote(domain.DAI)
	s.BeginQuote(domain.SHIB)

	if !s.Dispatch(QuoteFulfilled{Token: dai, Quote: &domain.Quote{Bond: domain.DAI}}) {
		t.Error("a request for another bond superseded dai")
	}
}

func TestStorePending(t *testing.T) {
	s := NewStore()
	tx := domain.PendingTransaction{Hash: common.HexToHash("0x1"), Text: "Bonding DAI", Type: "bond_dai"}

	if !s.Dispatch(PendingAdded{Tx: tx}) {
		t.Fatal("PendingAdded ignored")
	}
	if s.Dispatch(PendingAdded{Tx: tx}) {
		t.Error("duplicate hash accepted")
	}
	if got := len(s.Snapshot().Pending); got != 1 {
		t.Fatalf("pending = %d, want 1", got)
	}
	if !s.Dispatch(PendingCleared{Hash: tx.Hash}) {
		t.Error("PendingCleared ignored")
	}
	if s.Dispatch(PendingCleared{Hash: tx.Hash}) {
		t.Error("clearing an unknown hash reported success")
	}
}

func TestStoreSnapshotIsolation(t *testing.T) {
	s := NewStore()
	s.Dispatch(MessageAppended{Message: domain.NewUserMessage(domain.SeverityInfo, "a")})

	snap := s.Snapshot()
	snap.Messages[0].Text = "mutated"
	snap.Loading[domain.DAI] = true

	again := s.Snapshot()
	if again.Messages[0].Text != "a" || again.Loading[domain.DAI] {
		t.Error("snapshot shares memory with the store")
	}
}

func TestStoreSubscribe(t *testing.T) {
	s := NewStore()
	var got []int
	unsubscribe := s.Subscribe(func(st State) { got = append(got, len(st.Messages)) })

	s.Dispatch(MessageAppended{Message: domain.NewUserMessage(domain.SeverityInfo, "a")})
	s.Dispatch(MessageAppended{Message: domain.NewUserMessage(domain.SeverityError, "b")})
	unsubscribe()
	s.Dispatch(MessageAppended{Message: domain.NewUserMessage(domain.SeverityInfo, "c")})

	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("notifications = %v, want [1 2]", got)
	}
}

func TestStoreNotifiesInOrderUnderConcurrentDispatch(t *testing.T) {
	s := NewStore()
	var got []int
	s.Subscribe(func(st State) { got = append(got, len(st.Messages)) })

	const writers = 64
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Dispatch(MessageAppended{Message: domain.NewUserMessage(domain.SeverityInfo, "m")})
		}()
	}
	wg.Wait()

	if len(got) == 0 {
		t.Fatal("no notifications")
	}
	for i := 1; i < len(got); i++ {
		if got[i] <= got[i-1] {
			t.Fatalf("notification %d carried %d messages after %d", i, got[i], got[i-1])
		}
	}
	if last := got[len(got)-1]; last != writers {
		t.Errorf("last notification = %d messages, want %d", last, writers)
	}
}

func TestRefresherLastIssuedWins(t *testing.T) {
	engine := newScriptedEngine()
	releaseA := make(chan struct{})
	engine.gates["1"] = releaseA

	store := NewStore()
	r := newTestRefresher(t, engine, store)
	b := mustBond(t, domain.DAI)

	errA := make(chan error, 1)
	go func() { errA <- r.Refresh(context.Background(), b, decimal.NewFromInt(1)) }()
	if got := <-engine.started; got != "1" {
		t.Fatalf("first call = %s", got)
	}

	if err := r.Refresh(context.Background(), b, decimal.NewFromInt(2)); err != nil {
		t.Fatalf("Refresh B: %v", err)
	}
	if got := store.Snapshot().Quotes[domain.DAI].Payout; got != 2 {
		t.Fatalf("after B: Payout = %v, want 2", got)
	}

	close(releaseA)
	if err := <-errA; err != nil {
		t.Fatalf("Refresh A: %v", err)
	}

	snap := store.Snapshot()
	if got := snap.Quotes[domain.DAI].Payout; got != 2 {
		t.Errorf("after late A: Payout = %v, want 2", got)
	}
	if snap.Loading[domain.DAI] {
		t.Error("loading still set")
	}
}

func TestRefresherFailureKeepsPreviousQuote(t *testing.T) {
	engine := newScriptedEngine()
	store := NewStore()
	r := newTestRefresher(t, engine, store)
	b := mustBond(t, domain.DAI)

	if err := r.Refresh(context.Background(), b, decimal.NewFromInt(5)); err != nil {
		t.Fatal(err)
	}

	engine.err = errors.New("header not found")
	if err := r.Recompute(context.Background(), b); err == nil {
		t.Fatal("expected failure")
	}

	snap := store.Snapshot()
	if snap.Quotes[domain.DAI].Payout != 5 {
		t.Errorf("previous quote replaced: %+v", snap.Quotes[domain.DAI])
	}
	if len(snap.Messages) != 1 || snap.Messages[0].Severity != domain.SeverityError || snap.Messages[0].Text != "header not found" {
		t.Errorf("Messages = %+v", snap.Messages)
	}

	calls := engine.calls()
	if !calls[len(calls)-1].Equal(decimal.NewFromInt(5)) {
		t.Errorf("Recompute used amount %s, want 5", calls[len(calls)-1])
	}
}

func TestRefresherAmountTooSmallOnce(t *testing.T) {
	store := NewStore()
	engine := newTestEngine(stableLedger(), fakeOracle{}, fakeMarket{price: 10})
	r := newTestRefresher(t, engine, store)

	if err := r.Refresh(context.Background(), mustBond(t, domain.DAI), decimal.RequireFromString("0.00001")); err != nil {
		t.Fatal(err)
	}

	snap := store.Snapshot()
	if snap.Quotes[domain.DAI].Payout != 0 {
		t.Errorf("Payout = %v, want 0", snap.Quotes[domain.DAI].Payout)
	}
	var tooSmall int
	for _, m := range snap.Messages {
		if m.Text == "Amount is too small!" {
			tooSmall++
		}
	}
	if tooSmall != 1 {
		t.Errorf("AmountTooSmall messages = %d, want 1 (%+v)", tooSmall, snap.Messages)
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
