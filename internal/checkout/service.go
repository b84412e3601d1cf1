package checkout

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/4o31/shop/internal/cart"
	"github.com/4o31/shop/internal/discount"
	"github.com/4o31/shop/internal/domain"
	"github.com/4o31/shop/internal/events"
	"github.com/4o31/shop/internal/receipt"
)

var (
	ErrEmptyCart       = errors.New("cart is empty, nothing to checkout")
	ErrSessionNotFound = errors.New("checkout session not found")
	ErrInvalidState    = errors.New("checkout session is not in a valid state for this operation")
)

// Service drives the checkout flow: Begin freezes the cart into a reviewing
// session, ApplyDiscount latches the discount, Confirm writes the receipt and
// clears the cart.
type Service struct {
	cart      *cart.Service
	discount  *discount.Engine
	ledger    *receipt.Ledger
	publisher events.Publisher
	sessions  *SessionStore
	now       func() time.Time
}

func NewService(
	cartSvc *cart.Service,
	engine *discount.Engine,
	ledger *receipt.Ledger,
	publisher events.Publisher,
	sessions *SessionStore,
	now func() time.Time,
) *Service {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if now == nil {
		now = time.Now
	}
	return &Service{
		cart:      cartSvc,
		discount:  engine,
		ledger:    ledger,
		publisher: publisher,
		sessions:  sessions,
		now:       now,
	}
}

// Begin opens a reviewing session over the user's cart. The line items and
// base total are frozen here; later cart edits do not affect the session.
func (s *Service) Begin(ctx context.Context, userID int64) (*domain.CheckoutSession, error) {
	items, err := s.cart.Items(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	var total int64
	for _, item := range items {
		total += item.Price
	}

	now := s.now()
	session := &domain.CheckoutSession{
		ID:        uuid.New().String(),
		UserID:    userID,
		Items:     items,
		BaseTotal: total,
		Status:    domain.CheckoutStatusReviewing,
		CreatedAt: now,
		ExpiresAt: now.Add(SessionTTL),
	}
	s.sessions.Put(session)

	return session, nil
}

// DiscountOutcome is the presentation projection after an apply attempt:
// which result the engine reported and what total to display.
type DiscountOutcome struct {
	Result       discount.ApplyResult
	BaseTotal    int64
	DisplayTotal int64
}

// ApplyDiscount delegates code validation to the discount engine. Only
// reviewing sessions accept codes.
func (s *Service) ApplyDiscount(ctx context.Context, sessionID, code string) (*DiscountOutcome, error) {
	var outcome *DiscountOutcome
	err := s.sessions.Update(sessionID, func(session *domain.CheckoutSession) error {
		if session.Status != domain.CheckoutStatusReviewing {
			return ErrInvalidState
		}

		result, err := s.discount.Apply(ctx, session, strings.TrimSpace(code))
		if err != nil {
			return err
		}

		display := session.BaseTotal
		if session.DiscountApplied {
			display = s.discount.DiscountedTotal(session.BaseTotal)
		}
		outcome = &DiscountOutcome{
			Result:       result,
			BaseTotal:    session.BaseTotal,
			DisplayTotal: display,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

type ConfirmResult struct {
	Hash   string
	Total  int64
	Record domain.ReceiptRecord
}

// Confirm finalizes the purchase. The session leaves Reviewing before the
// hash and ledger write happen, so a second confirm on the same session gets
// ErrInvalidState instead of racing. If the ledger write fails the session
// falls back to Reviewing and the cart stays intact: either the ledger gains
// the entry and the cart is cleared, or neither happened.
func (s *Service) Confirm(ctx context.Context, sessionID string) (*ConfirmResult, error) {
	session, err := s.sessions.Transition(sessionID, domain.CheckoutStatusReviewing, domain.CheckoutStatusConfirming)
	if err != nil {
		return nil, err
	}

	finalTotal := session.BaseTotal
	if session.DiscountApplied {
		finalTotal = s.discount.DiscountedTotal(session.BaseTotal)
	}

	names := make([]string, len(session.Items))
	for i, item := range session.Items {
		names[i] = item.Name
	}

	rec := domain.ReceiptRecord{
		Items: strings.Join(names, ", "),
		Total: finalTotal,
		Date:  isoTimestamp(s.now()),
	}

	hash, err := s.ledger.Record(ctx, rec)
	if err != nil {
		if _, terr := s.sessions.Transition(sessionID, domain.CheckoutStatusConfirming, domain.CheckoutStatusReviewing); terr != nil {
			log.Printf("failed to reopen session %s after ledger error: %v", sessionID, terr)
		}
		return nil, err
	}

	s.cart.Clear(ctx, session.UserID)

	if _, err := s.sessions.Transition(sessionID, domain.CheckoutStatusConfirming, domain.CheckoutStatusConfirmed); err != nil {
		log.Printf("failed to finalize session %s: %v", sessionID, err)
	}

	// Best-effort: a broker hiccup must not fail a confirmed purchase
	event := events.ReceiptRecorded{Hash: hash, Items: rec.Items, Total: rec.Total, Date: rec.Date}
	if err := s.publisher.PublishReceiptRecorded(ctx, event); err != nil {
		log.Printf("failed to publish receipt event for %s: %v", hash, err)
	}

	return &ConfirmResult{Hash: hash, Total: finalTotal, Record: rec}, nil
}

// Session returns the current session state for display.
func (s *Service) Session(sessionID string) (*domain.CheckoutSession, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// isoTimestamp renders the receipt timestamp with millisecond precision in
// UTC, e.g. 2026-08-29T10:15:00.000Z.
func isoTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}
