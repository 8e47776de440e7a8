package http

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"salesgenius/internal/interfaces"
	"salesgenius/internal/usecases"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const actorKey = "actor"

type Middleware struct {
	auth         *usecases.AuthUsecase
	users        interfaces.UserStore
	corsOrigins  []string
	log          zerolog.Logger
	rateLimiters map[string]*rate.Limiter
	mu           sync.Mutex
}

func NewMiddleware(auth *usecases.AuthUsecase, users interfaces.UserStore, corsOrigins []string, log zerolog.Logger) *Middleware {
	return &Middleware{
		auth:         auth,
		users:        users,
		corsOrigins:  corsOrigins,
		log:          log,
		rateLimiters: make(map[string]*rate.Limiter),
	}
}

// AuthRequired verifies the bearer token and loads the caller from the store,
// so deleted users and changed roles take effect before the token expires.
func (m *Middleware) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		tokenString, found := strings.CutPrefix(authHeader, "Bearer ")
		if !found || tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Non autenticato"})
			return
		}

		claims, err := m.auth.ParseToken(tokenString)
		if err != nil {
			respondError(c, m.log, err)
			return
		}

		user, err := m.users.GetUserByID(c.Request.Context(), claims.UserID)
		if err != nil {
			respondError(c, m.log, err)
			return
		}
		if user == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Utente non trovato"})
			return
		}

		c.Set(actorKey, usecases.Actor{
			UserID:     user.ID,
			AccountID:  user.AccountID,
			Role:       user.Role,
			SuperAdmin: user.IsSuperAdmin,
		})
		c.Next()
	}
}

// currentActor returns the caller set by AuthRequired.
func currentActor(c *gin.Context) usecases.Actor {
	v, _ := c.Get(actorKey)
	a, _ := v.(usecases.Actor)
	return a
}

// RateLimitPerUser limits requests per authenticated user (must follow AuthRequired)
func (m *Middleware) RateLimitPerUser(r rate.Limit, b int) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := currentActor(c).UserID
		if key == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Non autenticato"})
			return
		}

		m.mu.Lock()
		limiter, exists := m.rateLimiters[key]
		if !exists {
			limiter = rate.NewLimiter(r, b)
			m.rateLimiters[key] = limiter
		}
		m.mu.Unlock()

		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"detail": "Troppe richieste, riprova tra poco"})
			return
		}

		c.Next()
	}
}

// RequireRole lets through only callers with one of the given roles.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := currentActor(c).Role
		for _, r := range roles {
			if r == role {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"detail": "Permessi insufficienti"})
	}
}

func SuperAdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !currentActor(c).SuperAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"detail": "Accesso riservato al super admin"})
			return
		}
		c.Next()
	}
}

// CORSMiddleware allows Cross-Origin requests from the configured origins
func (m *Middleware) CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if origin := m.allowedOrigin(c.GetHeader("Origin")); origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			if origin != "*" {
				c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
				c.Writer.Header().Add("Vary", "Origin")
			}
		}
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func (m *Middleware) allowedOrigin(origin string) string {
	for _, o := range m.corsOrigins {
		if o == "*" {
			return "*"
		}
		if origin != "" && strings.EqualFold(o, origin) {
			return origin
		}
	}
	return ""
}

// SecurityHeaders adds security headers to prevent common attacks
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("X-Content-Type-Options", "nosniff")
		c.Writer.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Writer.Header().Set("X-Frame-Options", "DENY")
		c.Next()
	}
}

// RequestSizeLimiter limits request body size to prevent DoS
func RequestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// RequestLogger logs one line per request.
func RequestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		ev := log.Info()
		switch {
		case status >= http.StatusInternalServerError:
			ev = log.Error()
		case status >= http.StatusBadRequest:
			ev = log.Warn()
		}
		ev.Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("request")
	}
}
