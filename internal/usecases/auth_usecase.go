package usecases

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"salesgenius/internal/entities"
	"salesgenius/internal/interfaces"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLength = 6
	widgetKeyAttempts = 3
)

// Claims is the JWT payload issued at login.
type Claims struct {
	UserID     string `json:"user_id"`
	AccountID  string `json:"account_id"`
	Role       string `json:"role"`
	SuperAdmin bool   `json:"super_admin"`
	jwt.RegisteredClaims
}

type AuthResult struct {
	Token string               `json:"token"`
	User  entities.UserProfile `json:"user"`
}

type AuthOptions struct {
	JWTSecret    string
	TokenTTL     time.Duration
	BcryptCost   int
	SuperAdmins  []string
	DefaultModel string
}

type AuthUsecase struct {
	store        interfaces.Store
	jwtSecret    []byte
	tokenTTL     time.Duration
	bcryptCost   int
	superAdmins  map[string]bool
	defaultModel string
	log          zerolog.Logger
}

func NewAuthUsecase(store interfaces.Store, opts AuthOptions, log zerolog.Logger) *AuthUsecase {
	supers := make(map[string]bool, len(opts.SuperAdmins))
	for _, e := range opts.SuperAdmins {
		supers[normalizeEmail(e)] = true
	}
	cost := opts.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	ttl := opts.TokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &AuthUsecase{
		store:        store,
		jwtSecret:    []byte(opts.JWTSecret),
		tokenTTL:     ttl,
		bcryptCost:   cost,
		superAdmins:  supers,
		defaultModel: opts.DefaultModel,
		log:          log,
	}
}

// Register creates a new account with its owner, or joins the account that
// has a pending invite for email.
func (uc *AuthUsecase) Register(ctx context.Context, email, password, companyName string) (*AuthResult, error) {
	email = normalizeEmail(email)
	companyName = strings.TrimSpace(companyName)
	if !ValidEmail(email) {
		return nil, entities.Invalid("Email non valida")
	}
	if len(password) < minPasswordLength {
		return nil, entities.Invalid("La password deve contenere almeno 6 caratteri")
	}

	existing, err := uc.store.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, entities.Invalid("Email già registrata")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), uc.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	ts := now()

	invite, err := uc.store.GetPendingInvite(ctx, email)
	if err != nil {
		return nil, err
	}
	if invite != nil {
		acc, err := uc.store.GetAccount(ctx, invite.AccountID)
		if err != nil {
			return nil, err
		}
		if acc != nil {
			return uc.joinInvite(ctx, acc, invite, email, string(hashed), ts)
		}
	}

	if companyName == "" {
		return nil, entities.Invalid("Nome azienda richiesto")
	}
	acc := &entities.Account{ID: newID(), CompanyName: companyName, WidgetKey: newWidgetKey(), CreatedAt: ts}
	owner := &entities.User{
		ID:           newID(),
		AccountID:    acc.ID,
		Email:        email,
		PasswordHash: string(hashed),
		Role:         entities.RoleOwner,
		IsSuperAdmin: uc.superAdmins[email],
		CreatedAt:    ts,
	}
	cfg := entities.DefaultWidgetConfig(acc.ID)
	cfg.ID = newID()
	cfg.UpdatedAt = ts
	settings := entities.DefaultAccountSettings(acc.ID, companyName, uc.defaultModel)
	settings.UpdatedAt = ts

	err = uc.store.CreateAccount(ctx, acc, owner, &cfg, &settings)
	for attempt := 1; errors.Is(err, entities.ErrWidgetKeyTaken) && attempt < widgetKeyAttempts; attempt++ {
		acc.WidgetKey = newWidgetKey()
		err = uc.store.CreateAccount(ctx, acc, owner, &cfg, &settings)
	}
	if err != nil {
		if errors.Is(err, entities.ErrWidgetKeyTaken) {
			return nil, fmt.Errorf("allocate widget key: %w", err)
		}
		if errors.Is(err, entities.ErrConflict) {
			return nil, entities.Invalid("Email già registrata")
		}
		return nil, err
	}
	uc.log.Info().Str("account_id", acc.ID).Str("user_id", owner.ID).Msg("account registered")
	return uc.result(owner, acc)
}

func (uc *AuthUsecase) joinInvite(ctx context.Context, acc *entities.Account, invite *entities.TeamMember, email, hash string, ts time.Time) (*AuthResult, error) {
	u := &entities.User{
		ID:           newID(),
		AccountID:    acc.ID,
		Email:        email,
		PasswordHash: hash,
		Role:         invite.Role,
		IsSuperAdmin: uc.superAdmins[email],
		CreatedAt:    ts,
	}
	if err := uc.store.CreateUser(ctx, u); err != nil {
		if errors.Is(err, entities.ErrConflict) {
			return nil, entities.Invalid("Email già registrata")
		}
		return nil, err
	}
	if err := uc.store.MarkJoined(ctx, invite.ID, u.ID, ts); err != nil {
		return nil, err
	}
	uc.log.Info().Str("account_id", acc.ID).Str("user_id", u.ID).Str("role", u.Role).Msg("invited member joined")
	return uc.result(u, acc)
}

func (uc *AuthUsecase) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = normalizeEmail(email)
	u, err := uc.store.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if u == nil || bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, entities.Unauthorized("Credenziali non valide")
	}
	if uc.superAdmins[email] && !u.IsSuperAdmin {
		if err := uc.store.SetSuperAdmin(ctx, u.ID, true); err != nil {
			return nil, err
		}
		u.IsSuperAdmin = true
	}
	acc, err := uc.store.GetAccount(ctx, u.AccountID)
	if err != nil {
		return nil, err
	}
	if acc == nil {
		return nil, entities.Unauthorized("Credenziali non valide")
	}
	return uc.result(u, acc)
}

// Me returns the profile of a logged-in user.
func (uc *AuthUsecase) Me(ctx context.Context, userID string) (*entities.UserProfile, error) {
	u, err := uc.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, entities.Unauthorized("Utente non trovato")
	}
	acc, err := uc.store.GetAccount(ctx, u.AccountID)
	if err != nil {
		return nil, err
	}
	if acc == nil {
		return nil, entities.Unauthorized("Utente non trovato")
	}
	p := profile(u, acc)
	return &p, nil
}

func (uc *AuthUsecase) IssueToken(u *entities.User) (string, error) {
	ts := time.Now()
	claims := Claims{
		UserID:     u.ID,
		AccountID:  u.AccountID,
		Role:       u.Role,
		SuperAdmin: u.IsSuperAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(ts),
			ExpiresAt: jwt.NewNumericDate(ts.Add(uc.tokenTTL)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(uc.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return token, nil
}

// ParseToken verifies an HS256 token and returns its claims.
func (uc *AuthUsecase) ParseToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return uc.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, entities.Unauthorized("Token scaduto")
		}
		return nil, entities.Unauthorized("Token non valido")
	}
	if claims.UserID == "" {
		return nil, entities.Unauthorized("Token non valido")
	}
	return claims, nil
}

func (uc *AuthUsecase) result(u *entities.User, acc *entities.Account) (*AuthResult, error) {
	token, err := uc.IssueToken(u)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, User: profile(u, acc)}, nil
}

func profile(u *entities.User, acc *entities.Account) entities.UserProfile {
	return entities.UserProfile{
		ID:           u.ID,
		Email:        u.Email,
		CompanyName:  acc.CompanyName,
		WidgetKey:    acc.WidgetKey,
		Role:         u.Role,
		IsSuperAdmin: u.IsSuperAdmin,
	}
}
