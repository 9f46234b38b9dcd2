package restapi

import (
	"net/http"

	"wallet_scanner/web"

	"github.com/gin-gonic/gin"
)

// RegisterSessionRoutes wires the session endpoints and the embedded page
// onto the router.
func RegisterSessionRoutes(router *gin.Engine, sessionHandler *SessionHandler) {
	v1 := router.Group("/api/v1")
	{
		v1.GET("/session", sessionHandler.GetSessionHandler)
		v1.POST("/session/connect", sessionHandler.ConnectHandler)
		v1.POST("/session/toggle", sessionHandler.ToggleHandler)
		v1.POST("/session/scan", sessionHandler.ScanHandler)
		v1.POST("/session/example", sessionHandler.ExampleHandler)
	}

	router.GET("/", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", web.IndexHTML)
	})
}
