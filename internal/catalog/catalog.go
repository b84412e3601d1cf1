package catalog

import (
	"context"
	"errors"

	"github.com/4o31/shop/internal/domain"
)

var ErrProductNotFound = errors.New("product not found")

// Repository defines the interface for catalog reads.
// Consumers define this interface, not the SQLite implementation.
type Repository interface {
	GetAllProducts(ctx context.Context) ([]*domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
}

// DefaultProducts is the fixed misskey.shop catalog. Product "s" only shows
// up in listings once the secret has been unlocked.
func DefaultProducts() []*domain.Product {
	return []*domain.Product{
		{ID: "a", Name: "ミスキー缶バッジ", Description: "限定デザイン缶バッジ。", Price: 1500, Emoji: "📛"},
		{ID: "b", Name: "ノート風ステッカー", Description: "貼ってワクワク。", Price: 500, Emoji: "📒"},
		{ID: "c", Name: "ピクセルTシャツ", Description: "ピクセルアートT。", Price: 3800, Emoji: "👕"},
		{ID: "d", Name: "限定ピンバッジ", Description: "裏面に秘密の刻印。", Price: 1200, Emoji: "📍"},
		{ID: "s", Name: "シークレットスタンプ", Description: "Konamiコードで出現する特別品。", Price: 0, Emoji: "🔒", IsSecret: true},
	}
}

// StaticRepository serves a fixed in-memory product list.
type StaticRepository struct {
	products []*domain.Product
	byID     map[string]*domain.Product
}

func NewStaticRepository(products []*domain.Product) *StaticRepository {
	byID := make(map[string]*domain.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	return &StaticRepository{products: products, byID: byID}
}

func (r *StaticRepository) GetAllProducts(_ context.Context) ([]*domain.Product, error) {
	return r.products, nil
}

func (r *StaticRepository) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	p, ok := r.byID[id]
	if !ok {
		return nil, ErrProductNotFound
	}
	return p, nil
}
