package server

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/wandergrowth/leadmux/utils/flag"
	gintrace "gopkg.in/DataDog/dd-trace-go.v1/contrib/gin-gonic/gin"
)

// NewRouter builds the admin router.
func NewRouter(deps AdminDeps) *gin.Engine {
	if !*flag.IsDevelopment {
		gin.SetMode(gin.ReleaseMode)
	}

	// Default With the Logger and Recovery middleware already attached
	router := gin.Default()

	router.Use(cors.Default())
	router.Use(gintrace.Middleware(*flag.ServiceName))

	router.POST("/admin/hunt", ForceHuntHandler(deps))
	router.PUT("/admin/autopublish", AutopublishHandler(deps))
	router.GET("/admin/status", StatusHandler(deps))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return router
}
