package http

import (
	"errors"
	"net/http"

	"salesgenius/internal/entities"
	"salesgenius/internal/usecases"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Services are the use cases exposed over HTTP.
type Services struct {
	Auth       *usecases.AuthUsecase
	Knowledge  *usecases.KnowledgeUsecase
	Products   *usecases.ProductUsecase
	Leads      *usecases.LeadUsecase
	Chat       *usecases.MessageService
	Widget     *usecases.WidgetUsecase
	Dashboard  *usecases.DashboardUsecase
	Team       *usecases.TeamUsecase
	Settings   *usecases.SettingsUsecase
	SuperAdmin *usecases.SuperAdminUsecase
	Pricing    *usecases.PricingCalculator
}

type Handler struct {
	svc Services
	log zerolog.Logger
}

func NewHandler(svc Services, log zerolog.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

func SetupRoutes(r *gin.Engine, svc Services, middleware *Middleware, log zerolog.Logger) {
	h := NewHandler(svc, log)
	adminHandler := NewAdminHandler(svc.Settings, svc.SuperAdmin, log)

	r.Use(RequestLogger(log))
	r.Use(SecurityHeaders())
	r.Use(RequestSizeLimiter(10 << 20)) // 10MB max request size
	r.Use(middleware.CORSMiddleware())

	// Public routes used by the widget
	public := r.Group("/api")
	{
		public.POST("/auth/register", h.Register)
		public.POST("/auth/login", h.Login)

		public.GET("/widget/public/:key", h.PublicWidget)
		public.POST("/chat/message", h.ChatMessage)
		public.GET("/chat/history/:sessionId", h.ChatHistory)
		public.POST("/cart/add", h.AddToCart)
		public.GET("/cart/:sessionId", h.GetCart)
		public.POST("/leads", h.SubmitLead)
		public.GET("/pricing/estimate", h.PricingEstimate)
	}

	// Protected dashboard routes
	api := r.Group("/api")
	api.Use(middleware.AuthRequired())
	api.Use(middleware.RateLimitPerUser(5, 10))
	{
		api.GET("/auth/me", h.Me)

		api.GET("/knowledge", h.ListKnowledge)
		api.POST("/knowledge/url", h.AddKnowledgeURL)
		api.POST("/knowledge/pdf", h.AddKnowledgePDF)
		api.DELETE("/knowledge/:id", h.DeleteKnowledge)

		api.GET("/products", h.ListProducts)
		api.POST("/products", h.CreateProduct)
		api.PUT("/products/:id", h.UpdateProduct)
		api.DELETE("/products/:id", h.DeleteProduct)
		api.POST("/products/import", h.ImportProducts)
		api.POST("/products/rescan/:sourceId", h.RescanProducts)

		api.GET("/widget/config", h.GetWidgetConfig)
		api.PUT("/widget/config", h.UpdateWidgetConfig)
		api.GET("/widget/embed", h.WidgetEmbed)
		api.GET("/widget/qr", h.WidgetQR)

		api.GET("/conversations", h.ListConversations)
		api.GET("/conversations/:id/messages", h.ConversationMessages)
		api.GET("/leads", h.ListLeads)
		api.GET("/analytics/overview", h.AnalyticsOverview)
		api.GET("/analytics/daily", h.AnalyticsDaily)

		api.GET("/team/members", h.TeamMembers)
		api.POST("/team/invite", h.InviteMember)
		api.PUT("/team/members/:id", h.ChangeMemberRole)
		api.DELETE("/team/members/:id", h.RemoveMember)
	}

	// Organization settings, owner and admins only
	admin := r.Group("/api/admin")
	admin.Use(middleware.AuthRequired())
	admin.Use(RequireRole(entities.RoleOwner, entities.RoleAdmin))
	{
		admin.GET("/settings", adminHandler.GetSettings)
		admin.PUT("/settings", adminHandler.UpdateSettings)
		admin.GET("/api-config", adminHandler.GetAPIConfig)
	}

	// Platform panel
	super := r.Group("/api/superadmin")
	super.Use(middleware.AuthRequired())
	super.Use(SuperAdminRequired())
	{
		super.GET("/stats", adminHandler.GetStats)
		super.GET("/users", adminHandler.GetAllUsers)
		super.GET("/collections", adminHandler.GetCollections)
		super.DELETE("/users/:id", adminHandler.DeleteUser)
	}
}

// ========================================
// Auth
// ========================================

type credentials struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	CompanyName string `json:"company_name"`
}

func (h *Handler) Register(c *gin.Context) {
	var req credentials
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.svc.Auth.Register(c.Request.Context(), req.Email, req.Password, SanitizeString(req.CompanyName))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Login(c *gin.Context) {
	var req credentials
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.svc.Auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Me(c *gin.Context) {
	p, err := h.svc.Auth.Me(c.Request.Context(), currentActor(c).UserID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// ========================================
// Errors
// ========================================

// respondError writes {"detail": msg}. Use case messages are passed through;
// anything else becomes a generic message for its status.
func respondError(c *gin.Context, log zerolog.Logger, err error) {
	status := statusFor(err)
	msg := http.StatusText(status)

	var verr *entities.ValidationError
	switch {
	case errors.As(err, &verr):
		msg = verr.Message
	case status == http.StatusInternalServerError:
		msg = "Errore interno del server"
		log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	case status == http.StatusNotFound:
		msg = "Risorsa non trovata"
	case status == http.StatusUnauthorized:
		msg = "Non autorizzato"
	case status == http.StatusForbidden:
		msg = "Permessi insufficienti"
	case status == http.StatusBadRequest:
		msg = "Richiesta non valida"
	}
	c.AbortWithStatusJSON(status, gin.H{"detail": msg})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, entities.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, entities.ErrConflict), errors.Is(err, entities.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, entities.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, entities.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, entities.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, entities.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, entities.ErrUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// bindJSON decodes the body into dst and answers 400 when it cannot.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"detail": "Richiesta non valida"})
		return false
	}
	return true
}
