package http

import (
	"net/http"

	"salesgenius/internal/usecases"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// AdminHandler serves the organization settings and the platform panel.
type AdminHandler struct {
	settings   *usecases.SettingsUsecase
	superadmin *usecases.SuperAdminUsecase
	log        zerolog.Logger
}

func NewAdminHandler(settings *usecases.SettingsUsecase, superadmin *usecases.SuperAdminUsecase, log zerolog.Logger) *AdminHandler {
	return &AdminHandler{
		settings:   settings,
		superadmin: superadmin,
		log:        log,
	}
}

func (h *AdminHandler) GetSettings(c *gin.Context) {
	st, err := h.settings.Get(c.Request.Context(), currentActor(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *AdminHandler) UpdateSettings(c *gin.Context) {
	var req usecases.SettingsInput
	if !bindJSON(c, &req) {
		return
	}
	req.CompanyName = SanitizeString(req.CompanyName)
	st, err := h.settings.Update(c.Request.Context(), currentActor(c), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Impostazioni aggiornate", "settings": st})
}

func (h *AdminHandler) GetAPIConfig(c *gin.Context) {
	c.JSON(http.StatusOK, h.settings.APIConfig())
}

// GetStats returns platform statistics
func (h *AdminHandler) GetStats(c *gin.Context) {
	stats, err := h.superadmin.Stats(c.Request.Context(), currentActor(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GetAllUsers returns list of all users
func (h *AdminHandler) GetAllUsers(c *gin.Context) {
	users, err := h.superadmin.Users(c.Request.Context(), currentActor(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *AdminHandler) GetCollections(c *gin.Context) {
	counts, err := h.superadmin.Collections(c.Request.Context(), currentActor(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, counts)
}

// DeleteUser removes a user, or the whole account when the user owns it.
func (h *AdminHandler) DeleteUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.superadmin.DeleteUser(c.Request.Context(), currentActor(c), id); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Utente eliminato"})
}
