package usecases

import (
	"context"
	"math"
	"strings"

	"salesgenius/internal/entities"
)

const maxCartQuantity = 99

type CartInput struct {
	SessionID string `json:"session_id"`
	WidgetKey string `json:"widget_key"`
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// AddToCart puts a product of the widget's account in the session cart.
func (s *MessageService) AddToCart(ctx context.Context, in CartInput) (*entities.CartSummary, error) {
	acc, err := s.account(ctx, in.WidgetKey)
	if err != nil {
		return nil, err
	}
	sessionID := strings.TrimSpace(in.SessionID)
	if sessionID == "" {
		return nil, entities.Invalid("session_id richiesto")
	}
	qty := in.Quantity
	if qty == 0 {
		qty = 1
	}
	if qty < 1 || qty > maxCartQuantity {
		return nil, entities.Invalid("Quantità non valida (1-99)")
	}
	p, err := s.store.GetProduct(ctx, acc.ID, strings.TrimSpace(in.ProductID))
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, entities.NotFound("Prodotto non trovato")
	}
	if !p.InStock {
		return nil, entities.Invalid("Prodotto non disponibile")
	}

	item := &entities.CartItem{
		ID:        newID(),
		AccountID: acc.ID,
		SessionID: sessionID,
		ProductID: p.ID,
		Name:      p.Name,
		Price:     p.Price,
		UnitValue: p.PriceValue,
		Quantity:  qty,
		AddedAt:   now(),
	}
	if err := s.store.AddCartItem(ctx, item); err != nil {
		return nil, err
	}
	return s.cart(ctx, acc.ID, sessionID)
}

func (s *MessageService) Cart(ctx context.Context, sessionID, widgetKey string) (*entities.CartSummary, error) {
	acc, err := s.account(ctx, widgetKey)
	if err != nil {
		return nil, err
	}
	return s.cart(ctx, acc.ID, sessionID)
}

func (s *MessageService) cart(ctx context.Context, accountID, sessionID string) (*entities.CartSummary, error) {
	items, err := s.store.ListCartItems(ctx, accountID, sessionID)
	if err != nil {
		return nil, err
	}
	return summarize(items), nil
}

func summarize(items []entities.CartItem) *entities.CartSummary {
	sum := &entities.CartSummary{Items: items}
	if sum.Items == nil {
		sum.Items = []entities.CartItem{}
	}
	for _, it := range items {
		sum.TotalItems += it.Quantity
		if it.UnitValue != nil {
			sum.TotalValue += *it.UnitValue * float64(it.Quantity)
		}
	}
	sum.TotalValue = math.Round(sum.TotalValue*100) / 100
	return sum
}
