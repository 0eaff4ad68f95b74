package apihandlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *APIHandler) GetSettingsHandler(c *gin.Context) {
	st, ok := h.loadSettings(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": st})
}

// SaveSettingsHandler applies the body on top of the stored settings, so
// omitted keys keep their current values.
func (h *APIHandler) SaveSettingsHandler(c *gin.Context) {
	st, ok := h.loadSettings(c)
	if !ok {
		return
	}
	if err := c.ShouldBindJSON(&st); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	saved, notices, err := h.App.Settings.Save(c.Request.Context(), st)
	if err != nil {
		serviceError(c, "SaveSettingsHandler", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": saved, "notices": notices})
}
