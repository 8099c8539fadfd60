package progress

import (
	"github.com/gin-gonic/gin"
	"github.com/meetscribe/scribe-api/api/types"
)

// RegisterRoutes registers all progress-related routes
func RegisterRoutes(router *gin.RouterGroup, deps *types.Dependencies) {
	router.GET("/:id", Get(deps))
	router.GET("/:id/stream", Stream(deps))
}
