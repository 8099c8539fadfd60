package sessions

import (
	"github.com/gin-gonic/gin"
	"github.com/meetscribe/scribe-api/api/types"
)

// RegisterRoutes registers all session-related routes
func RegisterRoutes(router *gin.RouterGroup, deps *types.Dependencies) {
	router.POST("", Create(deps))
	router.GET("/:id", GetStatus(deps))
	router.GET("/:id/transcript", GetTranscript(deps))
}
