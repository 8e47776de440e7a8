package usecases

import (
	"context"
	"testing"
	"time"

	"salesgenius/internal/entities"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestRegister_CreatesAccountWithDefaults(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	res := e.register(t, " Owner@Shop.IT ", "Shop Srl")
	assert.Equal(t, "owner@shop.it", res.User.Email)
	assert.Equal(t, "Shop Srl", res.User.CompanyName)
	assert.Equal(t, entities.RoleOwner, res.User.Role)
	assert.Len(t, res.User.WidgetKey, 8)
	assert.NotEmpty(t, res.Token)

	a := e.actor(t, res)
	assert.Equal(t, res.User.ID, a.UserID)
	assert.Equal(t, entities.RoleOwner, a.Role)

	cfg, err := e.widget.GetConfig(ctx, a.AccountID)
	require.NoError(t, err)
	assert.Equal(t, "SalesGenius", cfg.BotName)
	assert.Equal(t, "Ciao! Come posso aiutarti oggi?", cfg.WelcomeMessage)
	assert.Equal(t, "#F97316", cfg.PrimaryColor)
	assert.Equal(t, "bottom-right", cfg.Position)

	st, err := e.settings.Get(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, "it", st.Language)
	assert.Equal(t, testModel, st.AIModel)
	assert.Equal(t, 500, st.MaxTokensPerResponse)

	members, err := e.team.Members(ctx, a.AccountID)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, entities.MemberActive, members[0].Status)
	assert.Equal(t, entities.RoleOwner, members[0].Role)
}

func TestRegister_Validation(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	_, err := e.auth.Register(ctx, "not-an-email", "password1", "Shop")
	requireKind(t, err, entities.ErrInvalidInput, "Email non valida")

	_, err = e.auth.Register(ctx, "a@b.it", "12345", "Shop")
	requireKind(t, err, entities.ErrInvalidInput, "La password deve contenere almeno 6 caratteri")

	_, err = e.auth.Register(ctx, "a@b.it", "123456", "  ")
	requireKind(t, err, entities.ErrInvalidInput, "Nome azienda richiesto")
}

func TestRegister_DuplicateEmail(t *testing.T) {
	e := newTestEnv(t)
	e.register(t, "dup@shop.it", "Shop")

	_, err := e.auth.Register(context.Background(), "DUP@shop.it", "password1", "Other")
	requireKind(t, err, entities.ErrInvalidInput, "Email già registrata")
}

func TestRegister_RetriesWidgetKeyCollision(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	taken := e.register(t, "first@shop.it", "Shop").User.WidgetKey

	keys := []string{taken, taken, "fresh001"}
	orig := newWidgetKey
	newWidgetKey = func() string {
		k := keys[0]
		keys = keys[1:]
		return k
	}
	t.Cleanup(func() { newWidgetKey = orig })

	res, err := e.auth.Register(ctx, "second@shop.it", "password1", "Other")
	require.NoError(t, err)
	assert.Equal(t, "fresh001", res.User.WidgetKey)
	assert.Empty(t, keys)
}

func TestRegister_WidgetKeyCollisionIsNotEmailConflict(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	taken := e.register(t, "first@shop.it", "Shop").User.WidgetKey

	orig := newWidgetKey
	newWidgetKey = func() string { return taken }
	t.Cleanup(func() { newWidgetKey = orig })

	_, err := e.auth.Register(ctx, "second@shop.it", "password1", "Other")
	require.ErrorIs(t, err, entities.ErrWidgetKeyTaken)
	assert.NotEqual(t, "Email già registrata", err.Error())
}

func TestLogin(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	reg := e.register(t, "login@shop.it", "Shop")

	res, err := e.auth.Login(ctx, "LOGIN@shop.it", "password1")
	require.NoError(t, err)
	assert.Equal(t, reg.User, res.User)

	_, err = e.auth.Login(ctx, "login@shop.it", "wrong-password")
	requireKind(t, err, entities.ErrUnauthorized, "Credenziali non valide")

	_, err = e.auth.Login(ctx, "nobody@shop.it", "password1")
	requireKind(t, err, entities.ErrUnauthorized, "Credenziali non valide")
}

func TestLogin_PromotesConfiguredSuperAdmin(t *testing.T) {
	e := newTestEnv(t, "Root@Platform.io")
	ctx := context.Background()

	res := e.register(t, "root@platform.io", "Platform")
	assert.True(t, res.User.IsSuperAdmin)

	plain := e.register(t, "plain@shop.it", "Shop")
	assert.False(t, plain.User.IsSuperAdmin)

	// an address added to the list later is promoted at login
	later := NewAuthUsecase(e.store, AuthOptions{
		JWTSecret:   "test-secret",
		BcryptCost:  bcrypt.MinCost,
		SuperAdmins: []string{"plain@shop.it"},
	}, zerolog.Nop())
	res, err := later.Login(ctx, "plain@shop.it", "password1")
	require.NoError(t, err)
	assert.True(t, res.User.IsSuperAdmin)
	claims, err := later.ParseToken(res.Token)
	require.NoError(t, err)
	assert.True(t, claims.SuperAdmin)
}

func TestRegister_JoinsPendingInvite(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	owner := e.register(t, "owner@shop.it", "Shop Srl")
	oa := e.actor(t, owner)

	_, err := e.team.Invite(ctx, oa, "bob@shop.it", entities.RoleMember)
	require.NoError(t, err)

	res, err := e.auth.Register(ctx, "bob@shop.it", "password1", "")
	require.NoError(t, err)
	assert.Equal(t, entities.RoleMember, res.User.Role)
	assert.Equal(t, "Shop Srl", res.User.CompanyName)
	assert.Equal(t, owner.User.WidgetKey, res.User.WidgetKey)
	assert.Equal(t, oa.AccountID, e.actor(t, res).AccountID)

	members, err := e.team.Members(ctx, oa.AccountID)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, entities.RoleOwner, members[0].Role)
	assert.Equal(t, entities.MemberActive, members[1].Status)
	require.NotNil(t, members[1].UserID)
	assert.Equal(t, res.User.ID, *members[1].UserID)
}

func TestMe(t *testing.T) {
	e := newTestEnv(t)
	res := e.register(t, "me@shop.it", "Shop")

	p, err := e.auth.Me(context.Background(), res.User.ID)
	require.NoError(t, err)
	assert.Equal(t, res.User, *p)

	_, err = e.auth.Me(context.Background(), "missing")
	assert.ErrorIs(t, err, entities.ErrUnauthorized)
}

func TestParseToken_Rejects(t *testing.T) {
	e := newTestEnv(t)
	res := e.register(t, "tok@shop.it", "Shop")

	_, err := e.auth.ParseToken(res.Token + "x")
	assert.ErrorIs(t, err, entities.ErrUnauthorized)

	other, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{UserID: "u"}).SignedString([]byte("other"))
	require.NoError(t, err)
	_, err = e.auth.ParseToken(other)
	assert.ErrorIs(t, err, entities.ErrUnauthorized)

	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID:           "u",
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute))},
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	_, err = e.auth.ParseToken(expired)
	requireKind(t, err, entities.ErrUnauthorized, "Token scaduto")
}
