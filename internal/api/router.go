// Package api is the HTTP front end of the onboarding wizard.
package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func NewRouter(h *Handler, allowedOrigins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	config := cors.DefaultConfig()
	if len(allowedOrigins) == 0 {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = allowedOrigins
	}
	config.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	r.Use(cors.New(config))

	v1 := r.Group("/api/v1")
	{
		v1.GET("/health", h.Health)
		v1.GET("/steps", h.ListSteps)

		v1.POST("/personas", h.CreatePersona)
		v1.GET("/personas/:id", h.GetPersona)

		wiz := v1.Group("/personas/:id/wizard")
		wiz.GET("", h.GetWizard)
		wiz.POST("/next", h.Next)
		wiz.POST("/back", h.Back)
		wiz.POST("/skip", h.Skip)
	}

	return r
}
