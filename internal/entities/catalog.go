package entities

import "time"

const (
	SourceURL = "url"
	SourcePDF = "pdf"

	SourceActive = "active"
	SourceError  = "error"
)

type KnowledgeSource struct {
	ID             string    `json:"id"`
	AccountID      string    `json:"-"`
	Type           string    `json:"type"`
	Name           string    `json:"name"`
	URL            *string   `json:"url"`
	Content        string    `json:"-"`
	ContentPreview *string   `json:"content_preview"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
}

type Product struct {
	ID          string    `json:"id"`
	AccountID   string    `json:"-"`
	SourceID    *string   `json:"source_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       string    `json:"price"`
	PriceValue  *float64  `json:"price_value"`
	ImageURL    string    `json:"image_url"`
	ProductURL  string    `json:"product_url"`
	Category    string    `json:"category"`
	InStock     bool      `json:"in_stock"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (p Product) Card() ProductCard {
	return ProductCard{
		ID:         p.ID,
		Name:       p.Name,
		Price:      p.Price,
		ImageURL:   p.ImageURL,
		ProductURL: p.ProductURL,
	}
}

type CartItem struct {
	ID        string    `json:"id"`
	AccountID string    `json:"-"`
	SessionID string    `json:"session_id"`
	ProductID string    `json:"product_id"`
	Name      string    `json:"name"`
	Price     string    `json:"price"`
	UnitValue *float64  `json:"unit_value"`
	Quantity  int       `json:"quantity"`
	AddedAt   time.Time `json:"added_at"`
}

type CartSummary struct {
	Items      []CartItem `json:"items"`
	TotalItems int        `json:"total_items"`
	TotalValue float64    `json:"total_value"`
}

type Lead struct {
	ID        string    `json:"id"`
	AccountID string    `json:"-"`
	SessionID string    `json:"session_id"`
	Name      *string   `json:"name"`
	Email     *string   `json:"email"`
	Phone     *string   `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
}
