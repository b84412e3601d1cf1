package receipt

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/4o31/shop/internal/domain"
	"github.com/4o31/shop/internal/kv"
)

type failingStore struct {
	inner  *kv.MemoryStore
	getErr error
	setErr error
}

func (s *failingStore) Get(ctx context.Context, key string) (string, error) {
	if s.getErr != nil {
		return "", s.getErr
	}
	return s.inner.Get(ctx, key)
}

func (s *failingStore) Set(ctx context.Context, key, value string) error {
	if s.setErr != nil {
		return s.setErr
	}
	return s.inner.Set(ctx, key, value)
}

func sampleReceipt() domain.ReceiptRecord {
	return domain.ReceiptRecord{
		Items: "ProductA, ProductB",
		Total: 2000,
		Date:  "2026-08-29T10:15:00.000Z",
	}
}

func TestCanonicalText_ExactLayout(t *testing.T) {
	text := CanonicalText(sampleReceipt())
	assert.Equal(t,
		"misskey.shop receipt\nitems:ProductA, ProductB\ntotal:2000\ndate:2026-08-29T10:15:00.000Z",
		text)
}

func TestHash_DeterministicLowercaseHex(t *testing.T) {
	h1 := Hash(sampleReceipt())
	h2 := Hash(sampleReceipt())

	assert.Equal(t, h1, h2)
	assert.Regexp(t, `^[0-9a-f]{64}$`, h1)
}

func TestHash_SensitiveToEveryField(t *testing.T) {
	base := Hash(sampleReceipt())

	changedItems := sampleReceipt()
	changedItems.Items = "ProductA"
	changedTotal := sampleReceipt()
	changedTotal.Total = 1800
	changedDate := sampleReceipt()
	changedDate.Date = "2026-08-29T10:15:01.000Z"

	assert.NotEqual(t, base, Hash(changedItems))
	assert.NotEqual(t, base, Hash(changedTotal))
	assert.NotEqual(t, base, Hash(changedDate))
}

func TestRecord_Lookup_RoundTrip(t *testing.T) {
	ledger := NewLedger(kv.NewMemoryStore())
	ctx := context.Background()

	hash, err := ledger.Record(ctx, sampleReceipt())
	require.NoError(t, err)

	got, err := ledger.Lookup(ctx, hash)
	require.NoError(t, err)
	assert.Equal(t, sampleReceipt(), *got)
}

func TestRecord_PersistsWholeMapping(t *testing.T) {
	store := kv.NewMemoryStore()
	ledger := NewLedger(store)
	ctx := context.Background()

	hash, err := ledger.Record(ctx, sampleReceipt())
	require.NoError(t, err)

	raw, err := store.Get(ctx, "ms_receipts_v6")
	require.NoError(t, err)

	var persisted map[string]domain.ReceiptRecord
	require.NoError(t, json.Unmarshal([]byte(raw), &persisted))
	assert.Len(t, persisted, 1)
	assert.Equal(t, sampleReceipt(), persisted[hash])
}

func TestRecord_CollisionLastWriteWins(t *testing.T) {
	ledger := NewLedger(kv.NewMemoryStore())
	ctx := context.Background()

	h1, err := ledger.Record(ctx, sampleReceipt())
	require.NoError(t, err)
	h2, err := ledger.Record(ctx, sampleReceipt())
	require.NoError(t, err)

	assert.Equal(t, h1, h2)

	got, err := ledger.Lookup(ctx, h1)
	require.NoError(t, err)
	assert.Equal(t, sampleReceipt(), *got)
}

func TestRecord_SurvivesRestart(t *testing.T) {
	store := kv.NewMemoryStore()
	ctx := context.Background()

	hash, err := NewLedger(store).Record(ctx, sampleReceipt())
	require.NoError(t, err)

	// New ledger instance over the same store: the mapping reloads
	got, err := NewLedger(store).Lookup(ctx, hash)
	require.NoError(t, err)
	assert.Equal(t, sampleReceipt(), *got)
}

func TestRecord_PersistenceFailureRollsBack(t *testing.T) {
	store := &failingStore{inner: kv.NewMemoryStore(), setErr: errors.New("store unavailable")}
	ledger := NewLedger(store)
	ctx := context.Background()

	_, err := ledger.Record(ctx, sampleReceipt())
	require.Error(t, err)

	// The failed entry must not be visible in memory either
	_, err = ledger.Lookup(ctx, Hash(sampleReceipt()))
	assert.ErrorIs(t, err, ErrReceiptNotFound)
}

func TestLookup_Miss(t *testing.T) {
	ledger := NewLedger(kv.NewMemoryStore())

	_, err := ledger.Lookup(context.Background(), "deadbeef")
	assert.ErrorIs(t, err, ErrReceiptNotFound)
}

func TestLookup_EmptyAndWhitespaceAreNeutral(t *testing.T) {
	ledger := NewLedger(kv.NewMemoryStore())
	ctx := context.Background()

	for _, input := range []string{"", " ", "\t \n"} {
		_, err := ledger.Lookup(ctx, input)
		assert.ErrorIs(t, err, ErrEmptyQuery)
		assert.NotErrorIs(t, err, ErrReceiptNotFound)
	}
}

func TestLoad_UnparsableBlobDefaultsToEmpty(t *testing.T) {
	store := kv.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "ms_receipts_v6", "not json at all"))

	ledger := NewLedger(store)

	_, err := ledger.Lookup(ctx, "deadbeef")
	assert.ErrorIs(t, err, ErrReceiptNotFound)

	// The ledger is still writable afterwards
	hash, err := ledger.Record(ctx, sampleReceipt())
	require.NoError(t, err)
	got, err := ledger.Lookup(ctx, hash)
	require.NoError(t, err)
	assert.Equal(t, sampleReceipt(), *got)
}
