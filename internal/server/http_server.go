package server

import (
	"fmt"

	"github.com/amity-social/amity/internal/config"
	"github.com/gin-gonic/gin"
)

// StartHTTPServer boots the HTTP API and mounts all provided registrars.
func StartHTTPServer(cfg *config.Config, registrars ...Registrar) error {
	if cfg.App.Env != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	// register all services
	for _, r := range registrars {
		r.Register(router)
	}

	addr := fmt.Sprintf("%s:%s", cfg.HTTP.Host, cfg.HTTP.Port)
	return router.Run(addr)
}
