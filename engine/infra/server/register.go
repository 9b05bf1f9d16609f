package server

import (
	"github.com/gin-gonic/gin"
	"github.com/k2brd/k2brd/engine/infra/server/routes"
)

// RegisterRoutes mounts every API route. Tracker routes are additionally
// exposed at the top of the API base for older clients.
func RegisterRoutes(r *gin.Engine) {
	r.GET("/health", CreateHealthHandler())
	api := r.Group(routes.Base())
	api.GET("/health", CreateHealthHandler())
	registerTrelloRoutes(api.Group("/trello"))
	registerTrelloRoutes(api)
	registerBRDRoutes(api.Group("/brd"))
	registerDebugRoutes(api.Group("/debug"))
	registerLabelRoutes(api.Group("/labels"))
}
