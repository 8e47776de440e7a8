package usecases

import (
	"context"
	"errors"
	"strings"
	"testing"

	"salesgenius/internal/entities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductCRUD(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	a := e.actor(t, e.register(t, "owner@shop.it", "Shop"))

	_, err := e.products.Create(ctx, a.AccountID, ProductInput{Name: "  "})
	requireKind(t, err, entities.ErrInvalidInput, "Nome prodotto richiesto")

	p, err := e.products.Create(ctx, a.AccountID, ProductInput{Name: " Zaino ", Price: "49,90 €", Category: "borse"})
	require.NoError(t, err)
	assert.Equal(t, "Zaino", p.Name)
	assert.True(t, p.InStock)
	require.NotNil(t, p.PriceValue)
	assert.InDelta(t, 49.90, *p.PriceValue, 0.0001)

	updated, err := e.products.Update(ctx, a.AccountID, p.ID, ProductInput{Name: "Zaino XL", Price: "59.90", InStock: boolPtr(false)})
	require.NoError(t, err)
	assert.Equal(t, "Zaino XL", updated.Name)
	assert.False(t, updated.InStock)
	assert.Equal(t, "", updated.Category)
	assert.InDelta(t, 59.90, *updated.PriceValue, 0.0001)
	assert.Equal(t, p.CreatedAt, updated.CreatedAt)

	list, err := e.products.List(ctx, a.AccountID, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Zaino XL", list[0].Name)

	_, err = e.products.Update(ctx, a.AccountID, "missing", ProductInput{Name: "x"})
	requireKind(t, err, entities.ErrNotFound, "Prodotto non trovato")

	require.NoError(t, e.products.Delete(ctx, a.AccountID, p.ID))
	err = e.products.Delete(ctx, a.AccountID, p.ID)
	requireKind(t, err, entities.ErrNotFound, "Prodotto non trovato")
}

func TestProductCreate_SourceMustBelongToAccount(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	one := e.actor(t, e.register(t, "one@shop.it", "One"))
	two := e.actor(t, e.register(t, "two@shop.it", "Two"))

	e.pdf.text = "catalogo"
	src, err := e.knowledge.AddPDF(ctx, one.AccountID, "cat.pdf", strings.NewReader(""), 0)
	require.NoError(t, err)

	p, err := e.products.Create(ctx, one.AccountID, ProductInput{Name: "Zaino", SourceID: &src.ID})
	require.NoError(t, err)
	require.NotNil(t, p.SourceID)
	assert.Equal(t, src.ID, *p.SourceID)

	_, err = e.products.Create(ctx, two.AccountID, ProductInput{Name: "Zaino", SourceID: &src.ID})
	requireKind(t, err, entities.ErrNotFound, "Fonte non trovata")
}

func TestProductsAreTenantScoped(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	one := e.actor(t, e.register(t, "one@shop.it", "One"))
	two := e.actor(t, e.register(t, "two@shop.it", "Two"))

	p, err := e.products.Create(ctx, one.AccountID, ProductInput{Name: "Zaino"})
	require.NoError(t, err)

	list, err := e.products.List(ctx, two.AccountID, 10)
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = e.products.Update(ctx, two.AccountID, p.ID, ProductInput{Name: "mine"})
	assert.ErrorIs(t, err, entities.ErrNotFound)
	assert.ErrorIs(t, e.products.Delete(ctx, two.AccountID, p.ID), entities.ErrNotFound)
}

func TestImport(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	a := e.actor(t, e.register(t, "owner@shop.it", "Shop"))

	csv := "\ufeffName,Price,Category,In_Stock,price_value\n" +
		"Bici,€ 899,bici,si,\n" +
		",10,vuoto,,\n" +
		"Casco,\"1.299,00\",accessori,no,1299\n" +
		"Borraccia\n"
	res, err := e.products.Import(ctx, a.AccountID, strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, ImportResult{Imported: 3, Skipped: 1}, res)

	list, err := e.products.List(ctx, a.AccountID, 0)
	require.NoError(t, err)
	require.Len(t, list, 3)
	byName := map[string]entities.Product{}
	for _, p := range list {
		byName[p.Name] = p
	}
	assert.True(t, byName["Bici"].InStock)
	assert.InDelta(t, 899, *byName["Bici"].PriceValue, 0.001)
	assert.False(t, byName["Casco"].InStock)
	assert.InDelta(t, 1299, *byName["Casco"].PriceValue, 0.001)
	assert.True(t, byName["Borraccia"].InStock)
	assert.Nil(t, byName["Borraccia"].PriceValue)
}

func TestImport_RequiresNameColumn(t *testing.T) {
	e := newTestEnv(t)
	a := e.actor(t, e.register(t, "owner@shop.it", "Shop"))

	_, err := e.products.Import(context.Background(), a.AccountID, strings.NewReader("title,price\nBici,10\n"))
	requireKind(t, err, entities.ErrInvalidInput, "Colonna 'name' mancante nel CSV")

	_, err = e.products.Import(context.Background(), a.AccountID, strings.NewReader(""))
	requireKind(t, err, entities.ErrInvalidInput, "CSV non valido")
}

func TestRescan_ReplacesExtractedProducts(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	a := e.actor(t, e.register(t, "owner@shop.it", "Shop"))

	e.pdf.text = "Bici da corsa 1299 euro. Casco 49 euro."
	src, err := e.knowledge.AddPDF(ctx, a.AccountID, "listino.pdf", strings.NewReader(""), 0)
	require.NoError(t, err)
	manual, err := e.products.Create(ctx, a.AccountID, ProductInput{Name: "Manuale"})
	require.NoError(t, err)

	e.ai.reply = "```json\n" + `{"products":[
		{"name":"Bici da corsa","price":1299,"category":"bici"},
		{"name":"Casco","price":"49,00 €","in_stock":false},
		{"name":"  "}
	]}` + "\n```"
	n, err := e.products.Rescan(ctx, a.AccountID, src.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	req := e.ai.last()
	assert.True(t, req.JSON)
	assert.Equal(t, testModel, req.Model)
	assert.Equal(t, e.pdf.text, req.Prompt)

	e.ai.reply = `[{"name":"Bici gravel","price":"1.499,00"}]`
	n, err = e.products.Rescan(ctx, a.AccountID, src.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	list, err := e.products.List(ctx, a.AccountID, 0)
	require.NoError(t, err)
	names := make([]string, 0, len(list))
	for _, p := range list {
		names = append(names, p.Name)
		if p.ID == manual.ID {
			assert.Nil(t, p.SourceID)
			continue
		}
		require.NotNil(t, p.SourceID)
		assert.Equal(t, src.ID, *p.SourceID)
		assert.InDelta(t, 1499, *p.PriceValue, 0.001)
	}
	assert.ElementsMatch(t, []string{"Manuale", "Bici gravel"}, names)
}

func TestRescan_Errors(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	a := e.actor(t, e.register(t, "owner@shop.it", "Shop"))

	_, err := e.products.Rescan(ctx, a.AccountID, "missing")
	requireKind(t, err, entities.ErrNotFound, "Fonte non trovata")

	empty, err := e.knowledge.AddPDF(ctx, a.AccountID, "vuoto.pdf", strings.NewReader(""), 0)
	require.NoError(t, err)
	_, err = e.products.Rescan(ctx, a.AccountID, empty.ID)
	requireKind(t, err, entities.ErrInvalidInput, "La fonte non contiene testo")

	e.pdf.text = "testo"
	src, err := e.knowledge.AddPDF(ctx, a.AccountID, "cat.pdf", strings.NewReader(""), 0)
	require.NoError(t, err)

	e.ai.err = errors.New("quota")
	_, err = e.products.Rescan(ctx, a.AccountID, src.ID)
	requireKind(t, err, entities.ErrUnavailable, "Servizio AI non disponibile, riprova più tardi")

	e.ai.err = nil
	e.ai.reply = "not json"
	_, err = e.products.Rescan(ctx, a.AccountID, src.ID)
	assert.ErrorIs(t, err, entities.ErrUnavailable)
}

func TestMatch(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	a := e.actor(t, e.register(t, "owner@shop.it", "Shop"))

	for _, in := range []ProductInput{
		{Name: "Scarpe running", Category: "scarpe"},
		{Name: "Scarpe trail", Category: "scarpe"},
		{Name: "Scarpe da ginnastica", Category: "scarpe"},
		{Name: "Scarpe vecchie", Category: "scarpe", InStock: boolPtr(false)},
		{Name: "Calze", Category: "abbigliamento"},
		{Name: "Zaino", Category: "scarpe"},
	} {
		_, err := e.products.Create(ctx, a.AccountID, in)
		require.NoError(t, err)
	}

	got, err := e.products.Match(ctx, a.AccountID, "Avete delle SCARPE?")
	require.NoError(t, err)
	require.Len(t, got, maxProductCards)
	for _, p := range got {
		assert.True(t, p.InStock)
	}

	got, err = e.products.Match(ctx, a.AccountID, "ciao, grazie")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSearchTerms(t *testing.T) {
	assert.Equal(t, []string{"scarpe", "rosse", "taglia"}, SearchTerms("Ciao, avete scarpe rosse? Taglia 42, scarpe!"))
	assert.Empty(t, SearchTerms("ok si no"))
	assert.Equal(t, []string{"città", "perché"}, SearchTerms("città perché"))

	many := SearchTerms("alfa beta gamma delta epsilon zeta etaa theta iota kappa lambda")
	assert.Len(t, many, maxSearchTerms)
}

func TestParsePrice(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"€ 1.299,00", 1299, true},
		{"1,299.50 USD", 1299.5, true},
		{"19.90 EUR", 19.9, true},
		{"49,90€", 49.9, true},
		{"100", 100, true},
		{"su richiesta", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got := parsePrice(tc.in)
			if !tc.ok {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InDelta(t, tc.want, *got, 0.0001)
		})
	}
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, defaultProductLimit, ClampLimit(0))
	assert.Equal(t, defaultProductLimit, ClampLimit(-3))
	assert.Equal(t, 20, ClampLimit(20))
	assert.Equal(t, maxProductLimit, ClampLimit(10000))
}
