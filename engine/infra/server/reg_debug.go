package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/k2brd/k2brd/engine/infra/server/router"
	"github.com/k2brd/k2brd/pkg/logger"
	"github.com/tidwall/gjson"
)

func registerDebugRoutes(group *gin.RouterGroup) {
	group.POST("/log-selected-cards", logSelectedCards)
}

// logSelectedCards logs whatever the client sent as selectedCardIds.
func logSelectedCards(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		router.RespondWithServerError(c, "Failed to process debug log request.", err)
		return
	}
	if !gjson.ValidBytes(raw) {
		router.RespondWithError(c, router.NewRequestError(http.StatusBadRequest, router.ErrMsgInvalidRequestBody, nil))
		return
	}
	selected := "No Data"
	if ids := gjson.GetBytes(raw, "selectedCardIds"); ids.Exists() {
		selected = ids.Raw
	}
	logger.FromContext(c.Request.Context()).Info("Debug - selected card IDs", "selected_card_ids", selected)
	router.RespondOK(c, "Logged successfully", nil)
}
