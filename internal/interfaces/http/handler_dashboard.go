package http

import (
	"net/http"
	"strconv"

	"salesgenius/internal/usecases"

	"github.com/gin-gonic/gin"
)

// ========================================
// Knowledge base
// ========================================

func (h *Handler) ListKnowledge(c *gin.Context) {
	sources, err := h.svc.Knowledge.List(c.Request.Context(), currentActor(c).AccountID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, sources)
}

type knowledgeURLRequest struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

func (h *Handler) AddKnowledgeURL(c *gin.Context) {
	var req knowledgeURLRequest
	if !bindJSON(c, &req) {
		return
	}
	src, err := h.svc.Knowledge.AddURL(c.Request.Context(), currentActor(c).AccountID, SanitizeString(req.Name), req.URL)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": src.ID, "status": src.Status, "message": "Fonte aggiunta con successo"})
}

func (h *Handler) AddKnowledgePDF(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"detail": "File PDF mancante"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	defer f.Close()

	name := SanitizeString(c.PostForm("name"))
	if name == "" {
		name = fh.Filename
	}
	src, err := h.svc.Knowledge.AddPDF(c.Request.Context(), currentActor(c).AccountID, name, f, fh.Size)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": src.ID, "status": src.Status, "message": "PDF caricato con successo"})
}

func (h *Handler) DeleteKnowledge(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Knowledge.Delete(c.Request.Context(), currentActor(c).AccountID, id); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Fonte eliminata"})
}

// ========================================
// Products
// ========================================

func (h *Handler) ListProducts(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	products, err := h.svc.Products.List(c.Request.Context(), currentActor(c).AccountID, limit)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

func (h *Handler) CreateProduct(c *gin.Context) {
	var req usecases.ProductInput
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.svc.Products.Create(c.Request.Context(), currentActor(c).AccountID, sanitizeProduct(req))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) UpdateProduct(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req usecases.ProductInput
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.svc.Products.Update(c.Request.Context(), currentActor(c).AccountID, id, sanitizeProduct(req))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) DeleteProduct(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Products.Delete(c.Request.Context(), currentActor(c).AccountID, id); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Prodotto eliminato"})
}

// ImportProducts reads a CSV catalogue from the "file" form field.
func (h *Handler) ImportProducts(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"detail": "File CSV mancante"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	defer f.Close()

	res, err := h.svc.Products.Import(c.Request.Context(), currentActor(c).AccountID, f)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) RescanProducts(c *gin.Context) {
	id, ok := pathID(c, "sourceId")
	if !ok {
		return
	}
	n, err := h.svc.Products.Rescan(c.Request.Context(), currentActor(c).AccountID, id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Prodotti estratti dalla fonte", "count": n})
}

func sanitizeProduct(in usecases.ProductInput) usecases.ProductInput {
	in.Name = SanitizeString(in.Name)
	in.Description = SanitizeString(in.Description)
	in.Category = SanitizeString(in.Category)
	return in
}

// ========================================
// Conversations, leads and analytics
// ========================================

func (h *Handler) ListConversations(c *gin.Context) {
	convs, err := h.svc.Dashboard.Conversations(c.Request.Context(), currentActor(c).AccountID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, convs)
}

func (h *Handler) ConversationMessages(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	tr, err := h.svc.Dashboard.Transcript(c.Request.Context(), currentActor(c).AccountID, id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, tr)
}

func (h *Handler) ListLeads(c *gin.Context) {
	leads, err := h.svc.Leads.List(c.Request.Context(), currentActor(c).AccountID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, leads)
}

func (h *Handler) AnalyticsOverview(c *gin.Context) {
	ov, err := h.svc.Dashboard.Overview(c.Request.Context(), currentActor(c).AccountID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, ov)
}

func (h *Handler) AnalyticsDaily(c *gin.Context) {
	days, err := h.svc.Dashboard.Daily(c.Request.Context(), currentActor(c).AccountID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, days)
}

// ========================================
// Team
// ========================================

type inviteRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (h *Handler) TeamMembers(c *gin.Context) {
	members, err := h.svc.Team.Members(c.Request.Context(), currentActor(c).AccountID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, members)
}

func (h *Handler) InviteMember(c *gin.Context) {
	var req inviteRequest
	if !bindJSON(c, &req) {
		return
	}
	m, err := h.svc.Team.Invite(c.Request.Context(), currentActor(c), req.Email, req.Role)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Invito inviato", "member": m})
}

func (h *Handler) ChangeMemberRole(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req inviteRequest
	if !bindJSON(c, &req) {
		return
	}
	m, err := h.svc.Team.ChangeRole(c.Request.Context(), currentActor(c), id, req.Role)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Ruolo aggiornato", "member": m})
}

func (h *Handler) RemoveMember(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Team.Remove(c.Request.Context(), currentActor(c), id); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Membro rimosso"})
}
