package receipt

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/4o31/shop/internal/domain"
	"github.com/4o31/shop/internal/kv"
)

// receiptsKey holds the whole ledger as one JSON object {hash: record}.
const receiptsKey = "ms_receipts_v6"

var (
	ErrReceiptNotFound = errors.New("receipt not found")

	// ErrEmptyQuery marks an empty or whitespace-only lookup. It is a neutral
	// "no query" state, not a lookup miss.
	ErrEmptyQuery = errors.New("empty receipt query")
)

// Ledger maps receipt hashes to receipt details. The full mapping is loaded
// into memory on first access and rewritten as a whole on every Record; fine
// at demo scale, a known limitation beyond it.
type Ledger struct {
	store kv.Store
	sfg   singleflight.Group // collapses concurrent first loads

	mu       sync.Mutex
	receipts map[string]domain.ReceiptRecord // nil until loaded
}

func NewLedger(store kv.Store) *Ledger {
	return &Ledger{store: store}
}

// CanonicalText builds the exact hash input for a receipt. Fixed layout,
// newline separated, no trailing newline.
func CanonicalText(rec domain.ReceiptRecord) string {
	return fmt.Sprintf("misskey.shop receipt\nitems:%s\ntotal:%d\ndate:%s",
		rec.Items, rec.Total, rec.Date)
}

// Hash is the SHA-256 of the canonical text as 64 lowercase hex characters.
// A pure function of the receipt fields: identical fields hash identically.
func Hash(rec domain.ReceiptRecord) string {
	sum := sha256.Sum256([]byte(CanonicalText(rec)))
	return hex.EncodeToString(sum[:])
}

// Record inserts the receipt under its content hash and persists the full
// mapping. A hash collision (identical items, total and timestamp) silently
// overwrites: last write wins. If persisting fails, the in-memory state is
// rolled back and the error surfaces to the caller unretried.
func (l *Ledger) Record(ctx context.Context, rec domain.ReceiptRecord) (string, error) {
	receipts, err := l.load(ctx)
	if err != nil {
		return "", err
	}

	hash := Hash(rec)

	l.mu.Lock()
	defer l.mu.Unlock()

	prev, existed := receipts[hash]
	receipts[hash] = rec

	data, err := json.Marshal(receipts)
	if err != nil {
		// Cannot happen for these field types; keep the map consistent anyway.
		delete(receipts, hash)
		return "", fmt.Errorf("marshal receipts: %w", err)
	}

	if err := l.store.Set(ctx, receiptsKey, string(data)); err != nil {
		if existed {
			receipts[hash] = prev
		} else {
			delete(receipts, hash)
		}
		return "", fmt.Errorf("persist receipts: %w", err)
	}

	return hash, nil
}

// Lookup is exact-match only. The input is trimmed; empty input yields
// ErrEmptyQuery so the caller can render a neutral state instead of a miss.
func (l *Ledger) Lookup(ctx context.Context, hash string) (*domain.ReceiptRecord, error) {
	hash = strings.TrimSpace(hash)
	if hash == "" {
		return nil, ErrEmptyQuery
	}

	receipts, err := l.load(ctx)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	rec, ok := receipts[hash]
	l.mu.Unlock()

	if !ok {
		return nil, ErrReceiptNotFound
	}
	return &rec, nil
}

func (l *Ledger) load(ctx context.Context) (map[string]domain.ReceiptRecord, error) {
	l.mu.Lock()
	if l.receipts != nil {
		receipts := l.receipts
		l.mu.Unlock()
		return receipts, nil
	}
	l.mu.Unlock()

	v, err, _ := l.sfg.Do(receiptsKey, func() (interface{}, error) {
		raw, err := l.store.Get(ctx, receiptsKey)
		if errors.Is(err, kv.ErrKeyNotFound) {
			raw = "{}"
		} else if err != nil {
			return nil, fmt.Errorf("load receipts: %w", err)
		}

		receipts := make(map[string]domain.ReceiptRecord)
		if err := json.Unmarshal([]byte(raw), &receipts); err != nil {
			// An unparsable blob defaults to an empty ledger
			log.Printf("receipts blob unparsable, starting empty: %v", err)
			receipts = make(map[string]domain.ReceiptRecord)
		}

		l.mu.Lock()
		if l.receipts == nil {
			l.receipts = receipts
		}
		receipts = l.receipts
		l.mu.Unlock()

		return receipts, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(map[string]domain.ReceiptRecord), nil
}
