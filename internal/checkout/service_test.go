package checkout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/4o31/shop/internal/cart"
	"github.com/4o31/shop/internal/catalog"
	"github.com/4o31/shop/internal/discount"
	"github.com/4o31/shop/internal/domain"
	"github.com/4o31/shop/internal/events"
	"github.com/4o31/shop/internal/kv"
	"github.com/4o31/shop/internal/receipt"
)

type capturingPublisher struct {
	events []events.ReceiptRecorded
	err    error
}

func (p *capturingPublisher) PublishReceiptRecorded(_ context.Context, e events.ReceiptRecorded) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, e)
	return nil
}

type failingStore struct {
	inner  *kv.MemoryStore
	setErr error
}

func (s *failingStore) Get(ctx context.Context, key string) (string, error) {
	return s.inner.Get(ctx, key)
}

func (s *failingStore) Set(ctx context.Context, key, value string) error {
	if s.setErr != nil {
		return s.setErr
	}
	return s.inner.Set(ctx, key, value)
}

type fixture struct {
	cart      *cart.Service
	engine    *discount.Engine
	ledger    *receipt.Ledger
	store     *failingStore
	publisher *capturingPublisher
	svc       *Service
}

func setup(t *testing.T) *fixture {
	t.Helper()

	catalogRepo := catalog.NewStaticRepository([]*domain.Product{
		{ID: "a", Name: "ProductA", Price: 1500},
		{ID: "b", Name: "ProductB", Price: 500},
	})
	store := &failingStore{inner: kv.NewMemoryStore()}
	cartSvc := cart.NewService(catalogRepo)
	engine := discount.NewEngine(store, func() string { return "ABC123" })
	ledger := receipt.NewLedger(store)
	publisher := &capturingPublisher{}

	sessions := NewSessionStore()
	t.Cleanup(func() { sessions.Close() })

	fixedNow := time.Date(2026, 8, 29, 10, 15, 0, 0, time.UTC)
	svc := NewService(cartSvc, engine, ledger, publisher, sessions, func() time.Time { return fixedNow })

	return &fixture{
		cart:      cartSvc,
		engine:    engine,
		ledger:    ledger,
		store:     store,
		publisher: publisher,
		svc:       svc,
	}
}

func fillCart(t *testing.T, f *fixture, userID int64, ids ...string) {
	t.Helper()
	for _, id := range ids {
		_, err := f.cart.Add(context.Background(), userID, id)
		require.NoError(t, err)
	}
}

func TestBegin_EmptyCart(t *testing.T) {
	f := setup(t)

	_, err := f.svc.Begin(context.Background(), 1)
	assert.ErrorIs(t, err, ErrEmptyCart)

	// No session and no persisted state resulted from the attempt
	_, err = f.store.Get(context.Background(), "ms_receipts_v6")
	assert.ErrorIs(t, err, kv.ErrKeyNotFound)
}

func TestBegin_FreezesItemsAndTotal(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	fillCart(t, f, 1, "a", "b")

	session, err := f.svc.Begin(ctx, 1)
	require.NoError(t, err)
	assert.NotEmpty(t, session.ID)
	assert.Equal(t, domain.CheckoutStatusReviewing, session.Status)
	assert.Equal(t, int64(2000), session.BaseTotal)
	assert.False(t, session.DiscountApplied)

	// Cart edits after Begin do not leak into the session
	fillCart(t, f, 1, "a")
	assert.Len(t, session.Items, 2)
	assert.Equal(t, int64(2000), session.BaseTotal)
}

func TestConfirm_NoDiscount(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	fillCart(t, f, 1, "a", "b")

	session, err := f.svc.Begin(ctx, 1)
	require.NoError(t, err)

	result, err := f.svc.Confirm(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), result.Total)

	got, err := f.ledger.Lookup(ctx, result.Hash)
	require.NoError(t, err)
	assert.Equal(t, "ProductA, ProductB", got.Items)
	assert.Equal(t, int64(2000), got.Total)
	assert.Equal(t, "2026-08-29T10:15:00.000Z", got.Date)

	// Cart cleared, session terminal
	total, err := f.cart.Total(ctx, 1)
	require.NoError(t, err)
	assert.Zero(t, total)

	final, err := f.svc.Session(session.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CheckoutStatusConfirmed, final.Status)
}

func TestApplyDiscount_ThenConfirm(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	fillCart(t, f, 1, "a", "b")

	_, err := f.engine.MintNewCode(ctx)
	require.NoError(t, err)

	session, err := f.svc.Begin(ctx, 1)
	require.NoError(t, err)

	outcome, err := f.svc.ApplyDiscount(ctx, session.ID, "MS-SECRET-ABC123")
	require.NoError(t, err)
	assert.Equal(t, discount.ResultApplied, outcome.Result)
	assert.Equal(t, int64(2000), outcome.BaseTotal)
	assert.Equal(t, int64(1800), outcome.DisplayTotal)

	result, err := f.svc.Confirm(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1800), result.Total)

	got, err := f.ledger.Lookup(ctx, result.Hash)
	require.NoError(t, err)
	assert.Equal(t, int64(1800), got.Total)
}

func TestApplyDiscount_Idempotent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	fillCart(t, f, 1, "a")

	_, err := f.engine.MintNewCode(ctx)
	require.NoError(t, err)

	session, err := f.svc.Begin(ctx, 1)
	require.NoError(t, err)

	first, err := f.svc.ApplyDiscount(ctx, session.ID, "MS-SECRET-ABC123")
	require.NoError(t, err)
	assert.Equal(t, discount.ResultApplied, first.Result)

	second, err := f.svc.ApplyDiscount(ctx, session.ID, "MS-SECRET-ABC123")
	require.NoError(t, err)
	assert.Equal(t, discount.ResultAlreadyApplied, second.Result)
	assert.Equal(t, first.DisplayTotal, second.DisplayTotal)
}

func TestApplyDiscount_InvalidCodeLeavesSessionReviewing(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	fillCart(t, f, 1, "a")

	_, err := f.engine.MintNewCode(ctx)
	require.NoError(t, err)

	session, err := f.svc.Begin(ctx, 1)
	require.NoError(t, err)

	_, err = f.svc.ApplyDiscount(ctx, session.ID, "MS-SECRET-WRONG1")
	assert.ErrorIs(t, err, discount.ErrInvalidCode)

	current, err := f.svc.Session(session.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CheckoutStatusReviewing, current.Status)
	assert.False(t, current.DiscountApplied)

	// Confirm still works at the base total
	result, err := f.svc.Confirm(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1500), result.Total)
}

func TestApplyDiscount_TrimsInput(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	fillCart(t, f, 1, "a")

	_, err := f.engine.MintNewCode(ctx)
	require.NoError(t, err)

	session, err := f.svc.Begin(ctx, 1)
	require.NoError(t, err)

	outcome, err := f.svc.ApplyDiscount(ctx, session.ID, "  MS-SECRET-ABC123  ")
	require.NoError(t, err)
	assert.Equal(t, discount.ResultApplied, outcome.Result)
}

func TestConfirm_TwiceFailsWithInvalidState(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	fillCart(t, f, 1, "a", "b")

	session, err := f.svc.Begin(ctx, 1)
	require.NoError(t, err)

	first, err := f.svc.Confirm(ctx, session.ID)
	require.NoError(t, err)

	_, err = f.svc.Confirm(ctx, session.ID)
	assert.ErrorIs(t, err, ErrInvalidState)

	// Exactly one ledger entry
	got, err := f.ledger.Lookup(ctx, first.Hash)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), got.Total)
	assert.Len(t, f.publisher.events, 1)
}

func TestConfirm_UnknownSession(t *testing.T) {
	f := setup(t)

	_, err := f.svc.Confirm(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestConfirm_PersistenceFailureKeepsCart(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	fillCart(t, f, 1, "a", "b")

	session, err := f.svc.Begin(ctx, 1)
	require.NoError(t, err)

	f.store.setErr = errors.New("store unavailable")

	_, err = f.svc.Confirm(ctx, session.ID)
	require.Error(t, err)

	// Cart untouched, session back in Reviewing, nothing published
	total, err := f.cart.Total(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), total)

	current, err := f.svc.Session(session.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CheckoutStatusReviewing, current.Status)
	assert.Empty(t, f.publisher.events)

	// Retry succeeds once the store recovers
	f.store.setErr = nil
	result, err := f.svc.Confirm(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), result.Total)

	cleared, err := f.cart.Total(ctx, 1)
	require.NoError(t, err)
	assert.Zero(t, cleared)
}

func TestConfirm_PublisherFailureDoesNotFailCheckout(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	fillCart(t, f, 1, "a")

	f.publisher.err = errors.New("broker down")

	session, err := f.svc.Begin(ctx, 1)
	require.NoError(t, err)

	result, err := f.svc.Confirm(ctx, session.ID)
	require.NoError(t, err)

	got, err := f.ledger.Lookup(ctx, result.Hash)
	require.NoError(t, err)
	assert.Equal(t, int64(1500), got.Total)
}

func TestConfirm_PublishesReceiptEvent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	fillCart(t, f, 1, "a", "b")

	session, err := f.svc.Begin(ctx, 1)
	require.NoError(t, err)

	result, err := f.svc.Confirm(ctx, session.ID)
	require.NoError(t, err)

	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, result.Hash, f.publisher.events[0].Hash)
	assert.Equal(t, "ProductA, ProductB", f.publisher.events[0].Items)
	assert.Equal(t, int64(2000), f.publisher.events[0].Total)
}
