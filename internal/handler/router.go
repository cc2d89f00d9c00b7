package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"connecthub/integrations/internal/config"
	"connecthub/integrations/internal/handler/middleware"
)

// SetupRouter mounts each platform on static routes, one group per provider,
// matching the paths the frontend drives.
func SetupRouter(cfg *config.Config, logger *zap.Logger, h *IntegrationHandler) *gin.Engine {
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.CORS(cfg.CORS))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	for _, key := range []string{"hubspot", "airtable", "notion"} {
		g := r.Group("/integrations/" + key)
		g.POST("/authorize", h.Authorize(key))
		g.GET("/oauth2callback", h.Callback(key))
		g.POST("/credentials", h.Credentials(key))
		g.POST("/load", h.Load(key))
	}

	hubspot := r.Group("/integrations/hubspot")
	{
		// Legacy alias for /load kept for frontend compatibility.
		hubspot.POST("/get_hubspot_items", h.Load("hubspot"))
		hubspot.POST("/create_contact", h.CreateContact)
		hubspot.POST("/get_contact", h.GetContact)
		hubspot.POST("/update_contact", h.UpdateContact)
		hubspot.POST("/delete_contact", h.DeleteContact)
	}

	airtable := r.Group("/integrations/airtable")
	{
		airtable.POST("/bases", h.AirtableBases)
		airtable.POST("/create_record", h.CreateAirtableRecord)
	}

	return r
}
