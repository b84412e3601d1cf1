package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/4o31/shop/internal/catalog"
	"github.com/4o31/shop/internal/domain"
)

// ErrUnknownProduct means the cart was asked to hold a product id the catalog
// does not know. This is a caller bug, not a user-recoverable condition.
var ErrUnknownProduct = errors.New("unknown product")

// Service holds the per-user carts. Carts live in memory only: they belong to
// the session and are cleared on a confirmed checkout, never persisted.
type Service struct {
	catalog catalog.Repository

	mu    sync.RWMutex
	carts map[int64]*domain.Cart
}

func NewService(catalogRepo catalog.Repository) *Service {
	return &Service{
		catalog: catalogRepo,
		carts:   make(map[int64]*domain.Cart),
	}
}

// Add appends the product to the user's cart. The same product can be added
// any number of times; each add is its own line item.
func (s *Service) Add(ctx context.Context, userID int64, productID string) (*domain.Product, error) {
	product, err := s.catalog.GetProduct(ctx, productID)
	if errors.Is(err, catalog.ErrProductNotFound) {
		return nil, ErrUnknownProduct
	}
	if err != nil {
		return nil, fmt.Errorf("resolve product: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	cart, ok := s.carts[userID]
	if !ok {
		cart = &domain.Cart{UserID: userID, CreatedAt: now}
		s.carts[userID] = cart
	}
	cart.Items = append(cart.Items, domain.CartItem{ProductID: productID, AddedAt: now})
	cart.UpdatedAt = now

	return product, nil
}

// Items resolves the cart into line items in insertion order. The returned
// slice is a fresh copy, safe to iterate any number of times.
func (s *Service) Items(ctx context.Context, userID int64) ([]domain.LineItem, error) {
	s.mu.RLock()
	cart, ok := s.carts[userID]
	var ids []string
	if ok {
		ids = make([]string, len(cart.Items))
		for i, item := range cart.Items {
			ids[i] = item.ProductID
		}
	}
	s.mu.RUnlock()

	items := make([]domain.LineItem, 0, len(ids))
	for _, id := range ids {
		product, err := s.catalog.GetProduct(ctx, id)
		if errors.Is(err, catalog.ErrProductNotFound) {
			return nil, ErrUnknownProduct
		}
		if err != nil {
			return nil, fmt.Errorf("resolve product: %w", err)
		}
		items = append(items, domain.LineItem{
			ProductID: product.ID,
			Name:      product.Name,
			Price:     product.Price,
		})
	}
	return items, nil
}

// Total sums the referenced product prices. An empty cart totals zero.
func (s *Service) Total(ctx context.Context, userID int64) (int64, error) {
	items, err := s.Items(ctx, userID)
	if err != nil {
		return 0, err
	}

	var total int64
	for _, item := range items {
		total += item.Price
	}
	return total, nil
}

func (s *Service) Clear(_ context.Context, userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, userID)
}
