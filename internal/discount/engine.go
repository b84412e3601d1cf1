package discount

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/4o31/shop/internal/domain"
	"github.com/4o31/shop/internal/kv"
)

const (
	// couponKey holds the single active code; minting overwrites it.
	couponKey = "ms_last_coupon_v6"

	codePrefix    = "MS-SECRET-"
	codeAlphabet  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeSuffixLen = 6
)

var ErrInvalidCode = errors.New("invalid discount code")

type ApplyResult string

const (
	ResultApplied        ApplyResult = "applied"
	ResultAlreadyApplied ApplyResult = "already_applied"
)

// CodeGenerator produces the random suffix of a discount code. Injected so
// tests can pin the output.
type CodeGenerator func() string

func randomSuffix() string {
	b := make([]byte, codeSuffixLen)
	for i := range b {
		b[i] = codeAlphabet[rand.Intn(len(codeAlphabet))]
	}
	return string(b)
}

// Engine owns the single process-wide discount code. At most one code is
// active at a time; it survives restarts via the injected store.
type Engine struct {
	store    kv.Store
	generate CodeGenerator
}

func NewEngine(store kv.Store, generate CodeGenerator) *Engine {
	if generate == nil {
		generate = randomSuffix
	}
	return &Engine{store: store, generate: generate}
}

// MintNewCode generates and persists a fresh code, invalidating any previous one.
func (e *Engine) MintNewCode(ctx context.Context) (string, error) {
	code := codePrefix + e.generate()
	if err := e.store.Set(ctx, couponKey, code); err != nil {
		return "", fmt.Errorf("persist discount code: %w", err)
	}
	return code, nil
}

// ActiveCode returns the persisted code, or "" when none has been minted.
func (e *Engine) ActiveCode(ctx context.Context) (string, error) {
	code, err := e.store.Get(ctx, couponKey)
	if errors.Is(err, kv.ErrKeyNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load discount code: %w", err)
	}
	return code, nil
}

// Apply validates the candidate against the active code and latches the
// session. The latch is one-way: once a session has a discount, re-applying
// is a no-op reported as ResultAlreadyApplied. Comparison is exact; the
// caller trims user input.
func (e *Engine) Apply(ctx context.Context, session *domain.CheckoutSession, candidate string) (ApplyResult, error) {
	if session.DiscountApplied {
		return ResultAlreadyApplied, nil
	}

	active, err := e.ActiveCode(ctx)
	if err != nil {
		return "", err
	}
	if active == "" || candidate != active {
		return "", ErrInvalidCode
	}

	session.DiscountApplied = true
	return ResultApplied, nil
}

// DiscountedTotal applies the 10% discount, rounding half away from zero.
// Totals are currency, so the rounding rule is pinned by tests: 1501 -> 1351.
func (e *Engine) DiscountedTotal(base int64) int64 {
	return int64(math.Round(float64(base) * 0.9))
}
