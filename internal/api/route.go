package api

import (
	"OurSpace/internal/api/config"
	"OurSpace/internal/api/middleware"
	"OurSpace/internal/pkg/logger"
	"net/http"

	"github.com/gin-gonic/gin"
)

func SetupRouter(group *HandlersGroup, serverCfg config.ServerConfig, logCfg config.LogstashConfig) *gin.Engine {
	r := gin.New()
	_ = r.SetTrustedProxies([]string{"localhost"})

	// TraceId & Logger & CORS
	r.Use(middleware.TraceMiddleware())
	r.Use(middleware.AuditMiddleware())
	r.Use(middleware.CORSMiddleware(serverCfg.AllowOrigins))
	logger.SetupGin(r, logCfg)

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/ping", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"code":    200,
				"message": "pong",
				"data":    nil,
			})
		})

		imGroup := apiGroup.Group("/im")
		{
			wsGroup := imGroup.Group("")
			wsGroup.Use(middleware.AuthOptionalMiddleware())
			{
				wsGroup.GET("/ws", group.WSHandler.Connect)
			}

			authGroup := imGroup.Group("")
			authGroup.Use(middleware.AuthMiddleware())
			{
				authGroup.POST("/send", group.IMHandler.SendMessage)
				authGroup.GET("/list", group.IMHandler.GetConversationList)
				authGroup.GET("/conversation", group.IMHandler.GetConversation)
				authGroup.GET("/presence", group.IMHandler.GetPresence)
			}
		}
	}

	return r
}
