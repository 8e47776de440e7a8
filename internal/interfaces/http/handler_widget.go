package http

import (
	"net/http"

	"salesgenius/internal/usecases"

	"github.com/gin-gonic/gin"
	"github.com/skip2/go-qrcode"
)

// ========================================
// Public widget endpoints
// ========================================

func (h *Handler) PublicWidget(c *gin.Context) {
	cfg, err := h.svc.Widget.PublicConfig(c.Request.Context(), c.Param("key"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

func (h *Handler) ChatMessage(c *gin.Context) {
	var req usecases.ChatInput
	if !bindJSON(c, &req) {
		return
	}
	req.Message = SanitizeString(req.Message)
	reply, err := h.svc.Chat.Reply(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, reply)
}

func (h *Handler) ChatHistory(c *gin.Context) {
	msgs, err := h.svc.Chat.History(c.Request.Context(), c.Param("sessionId"), c.Query("widget_key"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, msgs)
}

func (h *Handler) AddToCart(c *gin.Context) {
	var req usecases.CartInput
	if !bindJSON(c, &req) {
		return
	}
	sum, err := h.svc.Chat.AddToCart(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":     "Prodotto aggiunto al carrello",
		"items":       sum.Items,
		"total_items": sum.TotalItems,
		"total_value": sum.TotalValue,
	})
}

func (h *Handler) GetCart(c *gin.Context) {
	sum, err := h.svc.Chat.Cart(c.Request.Context(), c.Param("sessionId"), c.Query("widget_key"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

func (h *Handler) SubmitLead(c *gin.Context) {
	var req usecases.LeadInput
	if !bindJSON(c, &req) {
		return
	}
	lead, err := h.svc.Leads.Submit(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Lead salvato", "id": lead.ID})
}

func (h *Handler) PricingEstimate(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Pricing.Estimate())
}

// ========================================
// Widget settings (dashboard)
// ========================================

func (h *Handler) GetWidgetConfig(c *gin.Context) {
	cfg, err := h.svc.Widget.GetConfig(c.Request.Context(), currentActor(c).AccountID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

func (h *Handler) UpdateWidgetConfig(c *gin.Context) {
	var req usecases.WidgetInput
	if !bindJSON(c, &req) {
		return
	}
	req.BotName = SanitizeString(req.BotName)
	req.WelcomeMessage = SanitizeString(req.WelcomeMessage)
	cfg, err := h.svc.Widget.UpdateConfig(c.Request.Context(), currentActor(c).AccountID, req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Configurazione aggiornata", "config": cfg})
}

func (h *Handler) WidgetEmbed(c *gin.Context) {
	code, err := h.svc.Widget.Embed(c.Request.Context(), currentActor(c).AccountID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, code)
}

// WidgetQR returns a PNG QR code that opens the public chat page.
func (h *Handler) WidgetQR(c *gin.Context) {
	code, err := h.svc.Widget.Embed(c.Request.Context(), currentActor(c).AccountID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	png, err := qrcode.Encode(code.ChatURL, qrcode.Medium, 256)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}
