package server

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/k2brd/k2brd/engine/card"
	"github.com/k2brd/k2brd/engine/infra/server/router"
	"github.com/k2brd/k2brd/engine/tracker"
	"github.com/k2brd/k2brd/pkg/logger"
)

type GetCardsRequest struct {
	CardIDs []string `json:"card_ids"`
}

type ExportRequest struct {
	BoardIDs []string `json:"board_ids"`
	Format   string   `json:"format"`
}

func registerTrelloRoutes(group *gin.RouterGroup) {
	group.GET("/boards", listBoards)
	group.GET("/boards/:board_id/cards", listBoardCards)
	group.POST("/cards", getCards)
	group.POST("/cards/export", exportCards)
}

func listBoards(c *gin.Context) {
	state := router.GetAppState(c)
	if state == nil {
		return
	}
	boards, err := state.Tracker.ListBoards(c.Request.Context())
	if err != nil {
		router.RespondWithServerError(c, "Failed to fetch Trello boards.", err)
		return
	}
	if boards == nil {
		boards = []tracker.Board{}
	}
	router.RespondOK(c, "Boards retrieved", boards)
}

func listBoardCards(c *gin.Context) {
	state := router.GetAppState(c)
	if state == nil {
		return
	}
	boardID := c.Param("board_id")
	cards, err := state.Tracker.ListBoardCards(c.Request.Context(), boardID)
	if err != nil {
		router.RespondWithServerError(c, fmt.Sprintf("Failed to fetch cards for board %s.", boardID), err)
		return
	}
	state.ObserveCards("board_cards", len(cards))
	logger.FromContext(c.Request.Context()).Info("Returning board cards", "board_id", boardID, "count", len(cards))
	router.RespondOK(c, "Cards retrieved", nonNilCards(cards))
}

func getCards(c *gin.Context) {
	state := router.GetAppState(c)
	if state == nil {
		return
	}
	body := router.GetRequestBody[GetCardsRequest](c)
	if body == nil {
		return
	}
	if len(body.CardIDs) == 0 {
		router.RespondWithError(c, router.NewRequestError(http.StatusBadRequest, "No card IDs provided.", nil))
		return
	}
	cards, err := state.Tracker.GetCards(c.Request.Context(), body.CardIDs)
	if errors.Is(err, tracker.ErrCardNotFound) {
		router.RespondWithError(c, router.NewRequestError(http.StatusNotFound, "Card not found.", err))
		return
	}
	if err != nil {
		router.RespondWithServerError(c, "Failed to retrieve card details.", err)
		return
	}
	state.ObserveCards("cards", len(cards))
	router.RespondOK(c, "Cards retrieved", nonNilCards(cards))
}

// exportCards answers with the export file itself rather than the JSON envelope.
func exportCards(c *gin.Context) {
	state := router.GetAppState(c)
	if state == nil {
		return
	}
	body := router.GetRequestBody[ExportRequest](c)
	if body == nil {
		return
	}
	if len(body.BoardIDs) == 0 {
		router.RespondWithError(c, router.NewRequestError(http.StatusBadRequest, "No board IDs provided.", nil))
		return
	}
	format, err := tracker.ParseFormat(body.Format)
	if err != nil {
		router.RespondWithError(c, router.NewRequestError(http.StatusBadRequest, "Unsupported export format.", err))
		return
	}
	cards, err := state.Tracker.ListCardsOnBoards(c.Request.Context(), body.BoardIDs)
	if err != nil {
		router.RespondWithServerError(c, "Failed to export cards.", err)
		return
	}
	state.ObserveCards("export", len(cards))
	var buf bytes.Buffer
	if err := tracker.Export(&buf, cards, format); err != nil {
		router.RespondWithServerError(c, "Failed to export cards.", err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="cards.%s"`, format))
	c.Data(http.StatusOK, format.ContentType(), buf.Bytes())
}

func nonNilCards(cards []*card.Record) []*card.Record {
	if cards == nil {
		return []*card.Record{}
	}
	return cards
}
