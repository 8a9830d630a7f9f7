package server

import (
	"github.com/gin-gonic/gin"
	settingsdomain "github.com/railzwaylabs/shopfaq/internal/settings/domain"
)

type settingsResponse struct {
	settingsdomain.ShopSettings
	HasAPIKey bool                                                       `json:"has_api_key"`
	Models    map[settingsdomain.AIProvider][]settingsdomain.ModelOption `json:"available_models"`
}

func newSettingsResponse(s settingsdomain.ShopSettings) settingsResponse {
	return settingsResponse{
		ShopSettings: s,
		HasAPIKey:    s.HasAPIKey(),
		Models:       settingsdomain.DefaultModels,
	}
}

// GetSettings never returns the stored API key, only whether one is set.
func (s *Server) GetSettings(c *gin.Context) {
	settings, err := s.settingsSvc.Get(c.Request.Context(), shopFrom(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, newSettingsResponse(settings))
}

func (s *Server) SaveSettings(c *gin.Context) {
	var req settingsdomain.SaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("body", "invalid_json", "request body must be JSON"))
		return
	}

	settings, err := s.settingsSvc.Save(c.Request.Context(), shopFrom(c), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, newSettingsResponse(settings))
}
