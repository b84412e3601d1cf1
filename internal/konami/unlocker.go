package konami

import (
	"context"
	"fmt"

	"github.com/4o31/shop/internal/discount"
	"github.com/4o31/shop/internal/kv"
)

// secretKey is "1" once the secret product has been revealed. Any other
// value, or absence, means locked.
const secretKey = "ms_secret_unlocked_v6"

// Unlocker reacts to a completed key sequence: it mints a fresh discount
// code and persists the unlock flag that reveals the secret catalog entry.
type Unlocker struct {
	store    kv.Store
	discount *discount.Engine
}

func NewUnlocker(store kv.Store, engine *discount.Engine) *Unlocker {
	return &Unlocker{store: store, discount: engine}
}

// Unlock mints a new discount code and marks the secret as unlocked.
// Repeated unlocks mint fresh codes; the flag stays set.
func (u *Unlocker) Unlock(ctx context.Context) (string, error) {
	code, err := u.discount.MintNewCode(ctx)
	if err != nil {
		return "", err
	}

	if err := u.store.Set(ctx, secretKey, "1"); err != nil {
		return "", fmt.Errorf("persist unlock flag: %w", err)
	}

	return code, nil
}

func (u *Unlocker) Unlocked(ctx context.Context) bool {
	value, err := u.store.Get(ctx, secretKey)
	return err == nil && value == "1"
}
