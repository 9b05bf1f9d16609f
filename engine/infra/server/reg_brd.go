package server

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/k2brd/k2brd/engine/card"
	"github.com/k2brd/k2brd/engine/infra/server/router"
	"github.com/k2brd/k2brd/engine/llm"
)

type GenerateBRDRequest struct {
	Cards []*card.Record `json:"cards"`
}

func registerBRDRoutes(group *gin.RouterGroup) {
	group.POST("/generate", generateBRD)
}

// generateBRD checks provider health before anything else and hides
// generation failures behind one generic message.
func generateBRD(c *gin.Context) {
	state := router.GetAppState(c)
	if state == nil {
		return
	}
	body := router.GetRequestBody[GenerateBRDRequest](c)
	if body == nil {
		return
	}
	ctx := c.Request.Context()
	if !state.Provider.HealthCheck(ctx) {
		router.RespondWithError(c, router.NewRequestError(
			http.StatusServiceUnavailable,
			"LLM service is not available.",
			llm.ErrProviderUnavailable,
		))
		return
	}
	if len(body.Cards) == 0 {
		router.RespondWithError(c, router.NewRequestError(
			http.StatusBadRequest,
			"No card data provided for BRD generation.",
			nil,
		))
		return
	}
	if slices.Contains(body.Cards, nil) {
		router.RespondWithError(c, router.NewRequestError(
			http.StatusBadRequest,
			router.ErrMsgInvalidRequestBody,
			card.ErrMalformedRecord,
		))
		return
	}
	results, err := state.Generator.GenerateForCards(ctx, body.Cards)
	if err != nil {
		router.RespondWithServerError(c, "Failed to generate BRD.", err)
		return
	}
	router.RespondOK(c, "BRD generated", results)
}
