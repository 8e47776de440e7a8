package usecases

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"salesgenius/internal/entities"
	"salesgenius/internal/infrastructure"
	"salesgenius/internal/interfaces"
	"salesgenius/internal/repository/memory"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testModel = "gemini-test"

type fakeAI struct {
	mu    sync.Mutex
	reply string
	err   error
	calls []interfaces.CompletionRequest
}

func (f *fakeAI) Complete(_ context.Context, req interfaces.CompletionRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	return f.reply, f.err
}

func (f *fakeAI) last() interfaces.CompletionRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []entities.Envelope
}

func (p *recordingPublisher) Publish(_ context.Context, key string, msg entities.Envelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, msg)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) count(eventType string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e.Meta.Type == eventType {
			n++
		}
	}
	return n
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []string
}

func (n *fakeNotifier) Notify(_ context.Context, chatID, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, chatID+"|"+text)
	return nil
}

type fakeFetcher struct {
	pages map[string]string
	err   error
}

func (f fakeFetcher) FetchText(_ context.Context, url string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.pages[url], nil
}

type fakePDF struct {
	text string
	err  error
}

func (f fakePDF) ExtractText(io.ReaderAt, int64, int) (string, error) { return f.text, f.err }

type testEnv struct {
	store    *memory.Store
	ai       *fakeAI
	events   *recordingPublisher
	notifier *fakeNotifier
	fetcher  *fakeFetcher
	pdf      *fakePDF
	sessions *infrastructure.SessionManager

	auth       *AuthUsecase
	knowledge  *KnowledgeUsecase
	products   *ProductUsecase
	leads      *LeadUsecase
	chat       *MessageService
	widget     *WidgetUsecase
	dashboard  *DashboardUsecase
	team       *TeamUsecase
	settings   *SettingsUsecase
	superadmin *SuperAdminUsecase
}

func newTestEnv(t *testing.T, superAdmins ...string) *testEnv {
	t.Helper()
	log := zerolog.Nop()
	e := &testEnv{
		store:    memory.New(),
		ai:       &fakeAI{reply: "Certo, posso aiutarti."},
		events:   &recordingPublisher{},
		notifier: &fakeNotifier{},
		fetcher:  &fakeFetcher{pages: map[string]string{}},
		pdf:      &fakePDF{},
		sessions: infrastructure.NewSessionManager(),
	}
	broadcaster := NewBroadcaster(e.store, e.events, e.notifier, log)

	e.auth = NewAuthUsecase(e.store, AuthOptions{
		JWTSecret:    "test-secret",
		TokenTTL:     time.Hour,
		BcryptCost:   bcrypt.MinCost,
		SuperAdmins:  superAdmins,
		DefaultModel: testModel,
	}, log)
	e.knowledge = NewKnowledgeUsecase(e.store, e.fetcher, e.pdf, broadcaster, log)
	e.products = NewProductUsecase(e.store, e.ai, log)
	e.leads = NewLeadUsecase(e.store, broadcaster, log)
	e.chat = NewMessageService(MessageServiceDeps{
		Store:        e.store,
		AI:           e.ai,
		Products:     e.products,
		Leads:        e.leads,
		Events:       broadcaster,
		Sessions:     e.sessions,
		DefaultModel: testModel,
	}, log)
	e.widget = NewWidgetUsecase(e.store, "https://app.example.com/")
	e.dashboard = NewDashboardUsecase(e.store)
	e.team = NewTeamUsecase(e.store, log)
	e.settings = NewSettingsUsecase(e.store, testModel, true, log)
	e.superadmin = NewSuperAdminUsecase(e.store, log)
	return e
}

func (e *testEnv) register(t *testing.T, email, company string) *AuthResult {
	t.Helper()
	res, err := e.auth.Register(context.Background(), email, "password1", company)
	require.NoError(t, err)
	return res
}

func (e *testEnv) actor(t *testing.T, res *AuthResult) Actor {
	t.Helper()
	c, err := e.auth.ParseToken(res.Token)
	require.NoError(t, err)
	return Actor{UserID: c.UserID, AccountID: c.AccountID, Role: c.Role, SuperAdmin: c.SuperAdmin}
}

func requireKind(t *testing.T, err error, kind error, msg string) {
	t.Helper()
	require.Error(t, err)
	require.ErrorIs(t, err, kind)
	if msg != "" {
		require.Equal(t, msg, err.Error())
	}
}
