package server

import (
	"github.com/gin-gonic/gin"
	"github.com/k2brd/k2brd/engine/infra/server/router"
)

type MapLabelsRequest struct {
	Labels []string `json:"labels"`
}

func registerLabelRoutes(group *gin.RouterGroup) {
	group.GET("", getLabelTaxonomy)
	group.POST("/map", mapLabels)
}

func getLabelTaxonomy(c *gin.Context) {
	state := router.GetAppState(c)
	if state == nil {
		return
	}
	router.RespondOK(c, "Label taxonomy retrieved", state.Labels)
}

func mapLabels(c *gin.Context) {
	state := router.GetAppState(c)
	if state == nil {
		return
	}
	body := router.GetRequestBody[MapLabelsRequest](c)
	if body == nil {
		return
	}
	router.RespondOK(c, "Labels mapped", state.Labels.Map(body.Labels))
}
