package usecases

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"salesgenius/internal/entities"
	"salesgenius/internal/interfaces"

	"github.com/rs/zerolog"
)

const (
	defaultProductLimit = 100
	maxProductLimit     = 500
	maxProductCards     = 3
	maxSearchTerms      = 10
	rescanContentLimit  = 12000
)

var stopWords = map[string]bool{
	"che": true, "per": true, "con": true, "non": true, "una": true, "uno": true,
	"del": true, "dei": true, "della": true, "delle": true, "degli": true, "dello": true,
	"sono": true, "come": true, "cosa": true, "quale": true, "quali": true, "quanto": true,
	"quanti": true, "avete": true, "vorrei": true, "questo": true, "questa": true,
	"anche": true, "più": true, "nel": true, "nella": true, "sul": true,
	"sulla": true, "ciao": true, "grazie": true, "salve": true, "buongiorno": true,
	"buonasera": true, "posso": true, "potete": true, "avere": true, "info": true,
	"the": true, "and": true, "for": true, "you": true, "with": true, "have": true,
	"what": true, "are": true, "hello": true, "please": true, "thanks": true,
}

// ProductInput is the editable part of a product.
type ProductInput struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Price       string   `json:"price"`
	PriceValue  *float64 `json:"price_value"`
	ImageURL    string   `json:"image_url"`
	ProductURL  string   `json:"product_url"`
	Category    string   `json:"category"`
	InStock     *bool    `json:"in_stock"`
	SourceID    *string  `json:"source_id"`
}

type ImportResult struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

type catalogStore interface {
	interfaces.ProductStore
	interfaces.KnowledgeStore
	interfaces.WidgetStore
}

type ProductUsecase struct {
	store catalogStore
	ai    interfaces.AIClient
	log   zerolog.Logger
}

func NewProductUsecase(store catalogStore, ai interfaces.AIClient, log zerolog.Logger) *ProductUsecase {
	return &ProductUsecase{store: store, ai: ai, log: log}
}

// ClampLimit applies the list default and ceiling.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return defaultProductLimit
	}
	if limit > maxProductLimit {
		return maxProductLimit
	}
	return limit
}

func (uc *ProductUsecase) List(ctx context.Context, accountID string, limit int) ([]entities.Product, error) {
	return uc.store.ListProducts(ctx, accountID, ClampLimit(limit))
}

func (uc *ProductUsecase) Create(ctx context.Context, accountID string, in ProductInput) (*entities.Product, error) {
	ts := now()
	p := &entities.Product{ID: newID(), AccountID: accountID, InStock: true, CreatedAt: ts}
	if err := uc.apply(ctx, p, in); err != nil {
		return nil, err
	}
	p.UpdatedAt = ts
	if err := uc.store.CreateProduct(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (uc *ProductUsecase) Update(ctx context.Context, accountID, id string, in ProductInput) (*entities.Product, error) {
	p, err := uc.store.GetProduct(ctx, accountID, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, entities.NotFound("Prodotto non trovato")
	}
	in.SourceID = nil // fixed at creation
	if err := uc.apply(ctx, p, in); err != nil {
		return nil, err
	}
	p.UpdatedAt = now()
	if err := uc.store.UpdateProduct(ctx, p); err != nil {
		if errors.Is(err, entities.ErrNotFound) {
			return nil, entities.NotFound("Prodotto non trovato")
		}
		return nil, err
	}
	return p, nil
}

func (uc *ProductUsecase) Delete(ctx context.Context, accountID, id string) error {
	err := uc.store.DeleteProduct(ctx, accountID, id)
	if errors.Is(err, entities.ErrNotFound) {
		return entities.NotFound("Prodotto non trovato")
	}
	return err
}

func (uc *ProductUsecase) apply(ctx context.Context, p *entities.Product, in ProductInput) error {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return entities.Invalid("Nome prodotto richiesto")
	}
	if in.SourceID != nil && *in.SourceID != "" {
		src, err := uc.store.GetSource(ctx, p.AccountID, *in.SourceID)
		if err != nil {
			return err
		}
		if src == nil {
			return entities.NotFound("Fonte non trovata")
		}
		p.SourceID = in.SourceID
	}
	p.Name = name
	p.Description = strings.TrimSpace(in.Description)
	p.Price = strings.TrimSpace(in.Price)
	p.PriceValue = in.PriceValue
	if p.PriceValue == nil {
		p.PriceValue = parsePrice(p.Price)
	}
	p.ImageURL = strings.TrimSpace(in.ImageURL)
	p.ProductURL = strings.TrimSpace(in.ProductURL)
	p.Category = strings.TrimSpace(in.Category)
	if in.InStock != nil {
		p.InStock = *in.InStock
	}
	return nil
}

// Import reads a CSV catalog. Columns are matched by header name; rows with
// no name are skipped.
func (uc *ProductUsecase) Import(ctx context.Context, accountID string, r io.Reader) (ImportResult, error) {
	var res ImportResult
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return res, entities.Invalid("CSV non valido")
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimPrefix(h, "\ufeff")
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if _, ok := cols["name"]; !ok {
		return res, entities.Invalid("Colonna 'name' mancante nel CSV")
	}
	field := func(row []string, key string) string {
		i, ok := cols[key]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			res.Skipped++
			continue
		}
		if err != nil {
			return res, err
		}
		name := field(row, "name")
		if name == "" {
			res.Skipped++
			continue
		}
		in := ProductInput{
			Name:        name,
			Description: field(row, "description"),
			Price:       field(row, "price"),
			ImageURL:    field(row, "image_url"),
			ProductURL:  field(row, "product_url"),
			Category:    field(row, "category"),
		}
		if v := field(row, "price_value"); v != "" {
			in.PriceValue = parsePrice(v)
		}
		if v := field(row, "in_stock"); v != "" {
			stock := parseBool(v)
			in.InStock = &stock
		}
		if _, err := uc.Create(ctx, accountID, in); err != nil {
			return res, err
		}
		res.Imported++
	}
	uc.log.Info().Str("account_id", accountID).Int("imported", res.Imported).Int("skipped", res.Skipped).Msg("catalog imported")
	return res, nil
}

// Rescan asks the model to list the products described by a knowledge
// source and replaces the products previously extracted from it.
func (uc *ProductUsecase) Rescan(ctx context.Context, accountID, sourceID string) (int, error) {
	src, err := uc.store.GetSource(ctx, accountID, sourceID)
	if err != nil {
		return 0, err
	}
	if src == nil {
		return 0, entities.NotFound("Fonte non trovata")
	}
	if strings.TrimSpace(src.Content) == "" {
		return 0, entities.Invalid("La fonte non contiene testo")
	}

	req := interfaces.CompletionRequest{
		System:    rescanSystemPrompt,
		Prompt:    truncate(src.Content, rescanContentLimit),
		MaxTokens: 4096,
		JSON:      true,
	}
	if st, err := uc.store.GetSettings(ctx, accountID); err == nil && st != nil {
		req.Model = st.AIModel
	}
	raw, err := uc.ai.Complete(ctx, req)
	if err != nil {
		uc.log.Error().Err(err).Str("source_id", sourceID).Msg("product rescan failed")
		return 0, entities.Unavailable("Servizio AI non disponibile, riprova più tardi")
	}
	extracted, err := parseExtractedProducts(raw)
	if err != nil {
		uc.log.Error().Err(err).Str("source_id", sourceID).Msg("product rescan returned invalid json")
		return 0, entities.Unavailable("Risposta AI non valida, riprova più tardi")
	}

	ts := now()
	products := make([]entities.Product, 0, len(extracted))
	for _, e := range extracted {
		name := strings.TrimSpace(e.Name)
		if name == "" {
			continue
		}
		sid := sourceID
		p := entities.Product{
			ID:          newID(),
			AccountID:   accountID,
			SourceID:    &sid,
			Name:        name,
			Description: strings.TrimSpace(e.Description),
			Price:       string(e.Price),
			PriceValue:  e.PriceValue,
			ImageURL:    e.ImageURL,
			ProductURL:  e.ProductURL,
			Category:    e.Category,
			InStock:     e.InStock == nil || *e.InStock,
			CreatedAt:   ts,
			UpdatedAt:   ts,
		}
		if p.PriceValue == nil {
			p.PriceValue = parsePrice(p.Price)
		}
		products = append(products, p)
	}
	if err := uc.store.ReplaceSourceProducts(ctx, accountID, sourceID, products); err != nil {
		return 0, err
	}
	return len(products), nil
}

// Match returns up to three in-stock products whose name or category
// mentions a word of message.
func (uc *ProductUsecase) Match(ctx context.Context, accountID, message string) ([]entities.Product, error) {
	terms := SearchTerms(message)
	if len(terms) == 0 {
		return nil, nil
	}
	return uc.store.SearchProducts(ctx, accountID, terms, maxProductCards)
}

// SearchTerms lowercases message and keeps distinct words of three or more
// letters that are not stop words.
func SearchTerms(message string) []string {
	words := strings.FieldsFunc(strings.ToLower(message), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	seen := make(map[string]bool)
	var terms []string
	for _, w := range words {
		if len([]rune(w)) < 3 || stopWords[w] || seen[w] {
			continue
		}
		seen[w] = true
		terms = append(terms, w)
		if len(terms) == maxSearchTerms {
			break
		}
	}
	return terms
}

const rescanSystemPrompt = `Estrai i prodotti o servizi in vendita descritti nel testo fornito.
Rispondi SOLO con un oggetto JSON nel formato:
{"products":[{"name":"","description":"","price":"","price_value":0,"image_url":"","product_url":"","category":"","in_stock":true}]}
Usa stringhe vuote per i campi sconosciuti e ometti price_value se il prezzo non è numerico.
Se non ci sono prodotti rispondi {"products":[]}.`

// flexString accepts a JSON string or number.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(strings.TrimSpace(s))
		return nil
	}
	if string(b) == "null" {
		*f = ""
		return nil
	}
	*f = flexString(b)
	return nil
}

type extractedProduct struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Price       flexString `json:"price"`
	PriceValue  *float64   `json:"price_value"`
	ImageURL    string     `json:"image_url"`
	ProductURL  string     `json:"product_url"`
	Category    string     `json:"category"`
	InStock     *bool      `json:"in_stock"`
}

func parseExtractedProducts(raw string) ([]extractedProduct, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)

	if strings.HasPrefix(raw, "[") {
		var list []extractedProduct
		if err := json.Unmarshal([]byte(raw), &list); err != nil {
			return nil, fmt.Errorf("decode product list: %w", err)
		}
		return list, nil
	}
	var wrapped struct {
		Products []extractedProduct `json:"products"`
	}
	if err := json.Unmarshal([]byte(raw), &wrapped); err != nil {
		return nil, fmt.Errorf("decode products: %w", err)
	}
	return wrapped.Products, nil
}

// parsePrice pulls a number out of a display price such as "€ 1.299,00" or
// "19.90 EUR". It returns nil when there is none.
func parsePrice(s string) *float64 {
	var digits strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) || r == '.' || r == ',' {
			digits.WriteRune(r)
		}
	}
	d := strings.Trim(digits.String(), ".,")
	if d == "" {
		return nil
	}
	lastDot, lastComma := strings.LastIndex(d, "."), strings.LastIndex(d, ",")
	switch {
	case lastComma > lastDot:
		// comma is the decimal separator
		d = strings.ReplaceAll(d, ".", "")
		d = strings.Replace(d, ",", ".", 1)
	case lastDot > lastComma && lastComma >= 0:
		d = strings.ReplaceAll(d, ",", "")
	}
	v, err := strconv.ParseFloat(d, 64)
	if err != nil {
		return nil
	}
	return &v
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "false", "0", "no", "n", "falso", "esaurito":
		return false
	}
	return true
}
