package usecases

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"salesgenius/internal/entities"
	"salesgenius/internal/infrastructure"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool { return &b }

func TestReply_StoresExchangeAndReturnsCards(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	owner := e.register(t, "owner@shop.it", "Bici Srl")
	a := e.actor(t, owner)

	_, err := e.products.Create(ctx, a.AccountID, ProductInput{Name: "Bici da corsa", Price: "€ 1.299,00", Category: "bici"})
	require.NoError(t, err)
	_, err = e.products.Create(ctx, a.AccountID, ProductInput{Name: "Casco", Category: "accessori"})
	require.NoError(t, err)
	_, err = e.knowledge.AddPDF(ctx, a.AccountID, "listino.pdf", strings.NewReader(""), 0)
	require.NoError(t, err)

	e.ai.reply = "  Ti consiglio la nostra bici da corsa.  "
	reply, err := e.chat.Reply(ctx, ChatInput{SessionID: "s1", Message: "Avete una bici?", WidgetKey: owner.User.WidgetKey})
	require.NoError(t, err)

	assert.Equal(t, "Ti consiglio la nostra bici da corsa.", reply.Content)
	assert.Equal(t, entities.RoleAssistant, reply.Role)
	assert.Equal(t, "s1", reply.SessionID)
	require.Len(t, reply.Products, 1)
	assert.Equal(t, "Bici da corsa", reply.Products[0].Name)
	assert.Equal(t, "€ 1.299,00", reply.Products[0].Price)

	req := e.ai.last()
	assert.Equal(t, testModel, req.Model)
	assert.Equal(t, 500, req.MaxTokens)
	assert.Equal(t, "Avete una bici?", req.Prompt)
	assert.Empty(t, req.History)
	assert.Contains(t, req.System, "Sei SalesGenius")
	assert.Contains(t, req.System, "per Bici Srl")
	assert.Contains(t, req.System, "Rispondi sempre in italiano")
	assert.Contains(t, req.System, "- Bici da corsa (€ 1.299,00)")
	assert.Contains(t, req.System, noKnowledge)

	history, err := e.chat.History(ctx, "s1", owner.User.WidgetKey)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, entities.RoleUser, history[0].Role)
	assert.Equal(t, "Avete una bici?", history[0].Content)
	assert.Equal(t, entities.RoleAssistant, history[1].Role)
	assert.True(t, history[1].Timestamp.After(history[0].Timestamp))

	convs, err := e.dashboard.Conversations(ctx, a.AccountID)
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, 2, convs[0].MessagesCount)
	assert.Len(t, convs[0].VisitorID, 8)
	assert.Equal(t, 1, e.events.count(entities.EventConversationStarted))
}

func TestReply_SecondTurnCarriesHistory(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	owner := e.register(t, "owner@shop.it", "Shop")
	in := ChatInput{SessionID: "s1", Message: "Ciao", WidgetKey: owner.User.WidgetKey}

	e.ai.reply = "Benvenuto!"
	_, err := e.chat.Reply(ctx, in)
	require.NoError(t, err)

	in.Message = "Quali orari avete?"
	_, err = e.chat.Reply(ctx, in)
	require.NoError(t, err)

	req := e.ai.last()
	require.Len(t, req.History, 2)
	assert.Equal(t, entities.ChatTurn{Role: entities.RoleUser, Content: "Ciao"}, req.History[0])
	assert.Equal(t, entities.ChatTurn{Role: entities.RoleAssistant, Content: "Benvenuto!"}, req.History[1])

	convs, err := e.dashboard.Conversations(ctx, e.actor(t, owner).AccountID)
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, 4, convs[0].MessagesCount)
	assert.Equal(t, 1, e.events.count(entities.EventConversationStarted))
}

func TestReply_HistoryKeepsLastTenTurns(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	owner := e.register(t, "owner@shop.it", "Shop")
	a := e.actor(t, owner)

	for i := 0; i < 7; i++ {
		_, err := e.chat.Reply(ctx, ChatInput{SessionID: "s1", Message: "domanda", WidgetKey: owner.User.WidgetKey})
		require.NoError(t, err)
	}
	assert.Len(t, e.ai.last().History, promptHistoryTurns)

	// a long conversation still sends the newest turns
	conv, err := e.store.GetConversationBySession(ctx, a.AccountID, "s1")
	require.NoError(t, err)
	require.NotNil(t, conv)
	base := time.Now().UTC().Add(time.Minute)
	for i := 0; i < 250; i++ {
		require.NoError(t, e.store.AppendMessage(ctx, &entities.Message{
			ID:             fmt.Sprintf("seed-%d", i),
			ConversationID: conv.ID,
			SessionID:      "s1",
			Role:           entities.RoleUser,
			Content:        fmt.Sprintf("msg-%d", i),
			Timestamp:      base.Add(time.Duration(i) * time.Second),
		}))
	}

	_, err = e.chat.Reply(ctx, ChatInput{SessionID: "s1", Message: "ultima", WidgetKey: owner.User.WidgetKey})
	require.NoError(t, err)
	history := e.ai.last().History
	require.Len(t, history, promptHistoryTurns)
	assert.Equal(t, "msg-240", history[0].Content)
	assert.Equal(t, "msg-249", history[len(history)-1].Content)
}

func TestReply_UsesAccountSettings(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	owner := e.register(t, "owner@shop.it", "Shop")
	a := e.actor(t, owner)

	_, err := e.settings.Update(ctx, a, SettingsInput{Language: "en", AIModel: "gemini-2.5-pro", MaxTokensPerResponse: 800})
	require.NoError(t, err)
	_, err = e.widget.UpdateConfig(ctx, a.AccountID, WidgetInput{BotName: "Aiuto"})
	require.NoError(t, err)

	_, err = e.chat.Reply(ctx, ChatInput{SessionID: "s1", Message: "hi", WidgetKey: owner.User.WidgetKey})
	require.NoError(t, err)

	req := e.ai.last()
	assert.Equal(t, "gemini-2.5-pro", req.Model)
	assert.Equal(t, 800, req.MaxTokens)
	assert.Contains(t, req.System, "Sei Aiuto")
	assert.Contains(t, req.System, "Rispondi sempre in inglese")
}

func TestReply_FallsBackToApology(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	owner := e.register(t, "owner@shop.it", "Shop")

	e.ai.err = errors.New("boom")
	reply, err := e.chat.Reply(ctx, ChatInput{SessionID: "s1", Message: "ciao", WidgetKey: owner.User.WidgetKey})
	require.NoError(t, err)
	assert.Equal(t, apologyReply, reply.Content)
	assert.NotNil(t, reply.Products)
	assert.Empty(t, reply.Products)

	e.ai.err = nil
	e.ai.reply = "   "
	reply, err = e.chat.Reply(ctx, ChatInput{SessionID: "s1", Message: "ciao", WidgetKey: owner.User.WidgetKey})
	require.NoError(t, err)
	assert.Equal(t, apologyReply, reply.Content)

	history, err := e.chat.History(ctx, "s1", "")
	require.NoError(t, err)
	assert.Len(t, history, 4)
}

func TestReply_Validation(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	owner := e.register(t, "owner@shop.it", "Shop")
	key := owner.User.WidgetKey

	_, err := e.chat.Reply(ctx, ChatInput{SessionID: " ", Message: "ciao", WidgetKey: key})
	requireKind(t, err, entities.ErrInvalidInput, "session_id richiesto")

	_, err = e.chat.Reply(ctx, ChatInput{SessionID: "s1", Message: "  ", WidgetKey: key})
	requireKind(t, err, entities.ErrInvalidInput, "Messaggio vuoto")

	_, err = e.chat.Reply(ctx, ChatInput{SessionID: "s1", Message: strings.Repeat("a", maxChatMessage+1), WidgetKey: key})
	requireKind(t, err, entities.ErrInvalidInput, "Messaggio troppo lungo (max 2000 caratteri)")

	_, err = e.chat.Reply(ctx, ChatInput{SessionID: "s1", Message: "ciao", WidgetKey: "nope"})
	requireKind(t, err, entities.ErrNotFound, "Widget non valido")

	assert.Empty(t, e.ai.calls)
}

func TestReply_BusySession(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	owner := e.register(t, "owner@shop.it", "Shop")
	a := e.actor(t, owner)

	require.True(t, e.sessions.TryStart(a.AccountID+":s1"))
	_, err := e.chat.Reply(ctx, ChatInput{SessionID: "s1", Message: "ciao", WidgetKey: owner.User.WidgetKey})
	requireKind(t, err, entities.ErrBusy, "Sto ancora rispondendo al messaggio precedente")

	_, err = e.chat.Reply(ctx, ChatInput{SessionID: "s2", Message: "ciao", WidgetKey: owner.User.WidgetKey})
	require.NoError(t, err)

	e.sessions.Finish(a.AccountID + ":s1")
	_, err = e.chat.Reply(ctx, ChatInput{SessionID: "s1", Message: "ciao", WidgetKey: owner.User.WidgetKey})
	require.NoError(t, err)
	assert.Equal(t, 0, e.sessions.InFlight())
}

func TestReply_RateLimited(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	owner := e.register(t, "owner@shop.it", "Shop")

	limiter := infrastructure.NewMessageRateLimiter(0.001, 2)
	t.Cleanup(limiter.Stop)
	e.chat.limiter = limiter

	in := ChatInput{SessionID: "s1", Message: "ciao", WidgetKey: owner.User.WidgetKey}
	for i := 0; i < 2; i++ {
		_, err := e.chat.Reply(ctx, in)
		require.NoError(t, err)
	}
	_, err := e.chat.Reply(ctx, in)
	requireKind(t, err, entities.ErrRateLimited, "Troppi messaggi, attendi qualche secondo")

	in.SessionID = "s2"
	_, err = e.chat.Reply(ctx, in)
	require.NoError(t, err)
}

func TestReply_CapturesEmailOncePerSession(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	owner := e.register(t, "owner@shop.it", "Shop")
	a := e.actor(t, owner)
	in := ChatInput{SessionID: "s1", Message: "scrivetemi a Mario.Rossi@Example.com grazie", WidgetKey: owner.User.WidgetKey}

	_, err := e.chat.Reply(ctx, in)
	require.NoError(t, err)
	_, err = e.chat.Reply(ctx, in)
	require.NoError(t, err)

	leads, err := e.leads.List(ctx, a.AccountID)
	require.NoError(t, err)
	require.Len(t, leads, 1)
	require.NotNil(t, leads[0].Email)
	assert.Equal(t, "mario.rossi@example.com", *leads[0].Email)
	assert.Equal(t, "s1", leads[0].SessionID)
	assert.Equal(t, 1, e.events.count(entities.EventLeadCreated))
}

func TestHistory_ScopedByWidget(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	one := e.register(t, "one@shop.it", "One")
	two := e.register(t, "two@shop.it", "Two")

	_, err := e.chat.Reply(ctx, ChatInput{SessionID: "shared", Message: "ciao", WidgetKey: one.User.WidgetKey})
	require.NoError(t, err)

	msgs, err := e.chat.History(ctx, "shared", two.User.WidgetKey)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	msgs, err = e.chat.History(ctx, "shared", one.User.WidgetKey)
	require.NoError(t, err)
	assert.Len(t, msgs, 2)

	_, err = e.chat.History(ctx, "shared", "nope")
	assert.ErrorIs(t, err, entities.ErrNotFound)
}

func TestCart(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	owner := e.register(t, "owner@shop.it", "Shop")
	a := e.actor(t, owner)
	key := owner.User.WidgetKey

	bike, err := e.products.Create(ctx, a.AccountID, ProductInput{Name: "Bici", Price: "€ 1.299,50"})
	require.NoError(t, err)
	bell, err := e.products.Create(ctx, a.AccountID, ProductInput{Name: "Campanello", Price: "su richiesta"})
	require.NoError(t, err)
	gone, err := e.products.Create(ctx, a.AccountID, ProductInput{Name: "Esaurito", InStock: boolPtr(false)})
	require.NoError(t, err)

	sum, err := e.chat.Cart(ctx, "s1", key)
	require.NoError(t, err)
	assert.NotNil(t, sum.Items)
	assert.Empty(t, sum.Items)

	_, err = e.chat.AddToCart(ctx, CartInput{SessionID: "s1", WidgetKey: key, ProductID: bike.ID})
	require.NoError(t, err)
	_, err = e.chat.AddToCart(ctx, CartInput{SessionID: "s1", WidgetKey: key, ProductID: bike.ID, Quantity: 2})
	require.NoError(t, err)
	sum, err = e.chat.AddToCart(ctx, CartInput{SessionID: "s1", WidgetKey: key, ProductID: bell.ID, Quantity: 4})
	require.NoError(t, err)

	require.Len(t, sum.Items, 2)
	assert.Equal(t, 7, sum.TotalItems)
	assert.InDelta(t, 3898.5, sum.TotalValue, 0.001)

	_, err = e.chat.AddToCart(ctx, CartInput{SessionID: "s1", WidgetKey: key, ProductID: gone.ID})
	requireKind(t, err, entities.ErrInvalidInput, "Prodotto non disponibile")

	_, err = e.chat.AddToCart(ctx, CartInput{SessionID: "s1", WidgetKey: key, ProductID: bike.ID, Quantity: 100})
	requireKind(t, err, entities.ErrInvalidInput, "Quantità non valida (1-99)")

	_, err = e.chat.AddToCart(ctx, CartInput{SessionID: "s1", WidgetKey: key, ProductID: "missing"})
	requireKind(t, err, entities.ErrNotFound, "Prodotto non trovato")

	_, err = e.chat.AddToCart(ctx, CartInput{SessionID: "", WidgetKey: key, ProductID: bike.ID})
	requireKind(t, err, entities.ErrInvalidInput, "session_id richiesto")

	other, err := e.chat.Cart(ctx, "s2", key)
	require.NoError(t, err)
	assert.Empty(t, other.Items)
}

func TestCart_RejectsOtherAccountProducts(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	one := e.register(t, "one@shop.it", "One")
	two := e.register(t, "two@shop.it", "Two")

	p, err := e.products.Create(ctx, e.actor(t, one).AccountID, ProductInput{Name: "Bici"})
	require.NoError(t, err)

	_, err = e.chat.AddToCart(ctx, CartInput{SessionID: "s1", WidgetKey: two.User.WidgetKey, ProductID: p.ID})
	requireKind(t, err, entities.ErrNotFound, "Prodotto non trovato")
}

func TestBuildKnowledge(t *testing.T) {
	assert.Equal(t, noKnowledge, BuildKnowledge(nil))
	assert.Equal(t, noKnowledge, BuildKnowledge([]string{" ", ""}))
	assert.Equal(t, "uno\n\ndue", BuildKnowledge([]string{" uno ", "", "due"}))

	long := BuildKnowledge([]string{strings.Repeat("a", 5000), strings.Repeat("b", 5000)})
	assert.Equal(t, knowledgeChars, len([]rune(long)))
	assert.True(t, strings.HasPrefix(long, strings.Repeat("a", perSourceChars)+"\n\nb"))
}

func TestSystemPrompt(t *testing.T) {
	p := SystemPrompt("Bot", "", "xx", "conoscenze", nil)
	assert.Contains(t, p, "Sei Bot")
	assert.Contains(t, p, "per un'azienda")
	assert.Contains(t, p, "Rispondi sempre in italiano")
	assert.Contains(t, p, "CONOSCENZE AZIENDALI:\nconoscenze")
	assert.NotContains(t, p, "PRODOTTI PERTINENTI")

	p = SystemPrompt("Bot", "Shop", "de", "k", []entities.Product{{Name: "Casco", Description: "leggero"}})
	assert.Contains(t, p, "Rispondi sempre in tedesco")
	assert.Contains(t, p, "- Casco: leggero\n")
}
