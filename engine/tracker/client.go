// Package tracker is a thin Trello REST client returning parsed card records.
package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/k2brd/k2brd/engine/card"
	"github.com/k2brd/k2brd/pkg/config"
	"github.com/k2brd/k2brd/pkg/logger"
	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"
)

const unknownList = "Unknown List"

// Board is the subset of board fields the API exposes.
type Board struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Desc   string `json:"desc"`
	URL    string `json:"url"`
	Closed bool   `json:"closed"`
}

// Client fetches boards, lists and cards. It is safe for concurrent use.
type Client struct {
	http     *resty.Client
	lists    *expirable.LRU[string, string]
	excluded map[string]struct{}
}

// NewClient creates a client authenticated with the configured key and token.
// Credentials travel in the Authorization header, never in request URLs.
func NewClient(cfg *config.TrackerConfig) *Client {
	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json").
		SetHeader("Authorization", authorization(cfg.APIKey.Value(), cfg.Token.Value()))
	excluded := make(map[string]struct{}, len(cfg.ExcludedCardNames))
	for _, name := range cfg.ExcludedCardNames {
		excluded[name] = struct{}{}
	}
	size := cfg.ListCacheSize
	if size <= 0 {
		size = 1
	}
	return &Client{
		http:     httpClient,
		lists:    expirable.NewLRU[string, string](size, nil, cfg.ListCacheTTL),
		excluded: excluded,
	}
}

func authorization(key, token string) string {
	return fmt.Sprintf("OAuth oauth_consumer_key=%q, oauth_token=%q", key, token)
}

// get performs an authenticated GET and returns the raw body.
func (c *Client) get(ctx context.Context, path string, params map[string]string) ([]byte, error) {
	log := logger.FromContext(ctx)
	log.Debug("Tracker request", "method", http.MethodGet, "path", path)
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get(path)
	if err != nil {
		return nil, fmt.Errorf("tracker request %s failed: %w", path, err)
	}
	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return nil, &RecordNotFoundError{Path: path}
	case resp.IsError():
		log.Error("Tracker request failed", "path", path, "status", resp.StatusCode())
		return nil, &StatusError{Path: path, StatusCode: resp.StatusCode(), Body: resp.String()}
	}
	return resp.Body(), nil
}

// ListBoards returns the boards of the authenticated member.
func (c *Client) ListBoards(ctx context.Context) ([]Board, error) {
	logger.FromContext(ctx).Info("Fetching boards for authenticated user")
	body, err := c.get(ctx, "/members/me/boards", nil)
	if err != nil {
		return nil, err
	}
	boards := []Board{}
	if err := json.Unmarshal(body, &boards); err != nil {
		return nil, fmt.Errorf("failed to decode boards: %w", err)
	}
	return boards, nil
}

// ListBoardCards returns the open cards of a board with their list names,
// using one lists call and one cards call. Closed cards, cards named after
// their list and excluded names are skipped.
func (c *Client) ListBoardCards(ctx context.Context, boardID string) ([]*card.Record, error) {
	log := logger.FromContext(ctx).With("board_id", boardID)
	log.Info("Fetching cards and lists for board")
	escaped := url.PathEscape(boardID)
	listsBody, err := c.get(ctx, "/boards/"+escaped+"/lists", map[string]string{"fields": "id,name"})
	if err != nil {
		return nil, err
	}
	listNames := make(map[string]string)
	gjson.ParseBytes(listsBody).ForEach(func(_, l gjson.Result) bool {
		id, name := l.Get("id").String(), l.Get("name").String()
		listNames[id] = name
		c.lists.Add(id, name)
		return true
	})
	cardsBody, err := c.get(ctx, "/boards/"+escaped+"/cards", map[string]string{"fields": "all"})
	if err != nil {
		return nil, err
	}
	cards := []*card.Record{}
	var parseErr error
	gjson.ParseBytes(cardsBody).ForEach(func(_, raw gjson.Result) bool {
		listName, ok := listNames[raw.Get("idList").String()]
		if !ok {
			listName = unknownList
		}
		if c.skip(raw, listName) {
			return true
		}
		rec, err := card.ParseResult(ctx, raw, listName)
		if err != nil {
			parseErr = err
			return false
		}
		cards = append(cards, rec)
		return true
	})
	if parseErr != nil {
		return nil, fmt.Errorf("board %s: %w", boardID, parseErr)
	}
	log.Debug("Board cards fetched", "count", len(cards))
	return cards, nil
}

func (c *Client) skip(raw gjson.Result, listName string) bool {
	if raw.Get("closed").Bool() {
		return true
	}
	name := raw.Get("name").String()
	if name == listName {
		return true
	}
	_, excluded := c.excluded[name]
	return excluded
}

// GetCard fetches one card and resolves its list name, served from the list
// cache when the list was seen recently.
func (c *Client) GetCard(ctx context.Context, cardID string) (*card.Record, error) {
	logger.FromContext(ctx).Info("Fetching card details", "card_id", cardID)
	escaped := url.PathEscape(cardID)
	body, err := c.get(ctx, "/cards/"+escaped, map[string]string{"fields": "all"})
	if err != nil {
		return nil, err
	}
	raw := gjson.ParseBytes(body)
	listName, err := c.listName(ctx, escaped, raw.Get("idList").String())
	if err != nil {
		return nil, err
	}
	return card.ParseResult(ctx, raw, listName)
}

func (c *Client) listName(ctx context.Context, escapedCardID, listID string) (string, error) {
	if listID != "" {
		if name, ok := c.lists.Get(listID); ok {
			return name, nil
		}
	}
	body, err := c.get(ctx, "/cards/"+escapedCardID+"/list", map[string]string{"fields": "name"})
	if err != nil {
		return "", err
	}
	name := gjson.GetBytes(body, "name").String()
	if listID != "" {
		c.lists.Add(listID, name)
	}
	return name, nil
}

// GetCards fetches cards one by one in order; the first failure aborts.
func (c *Client) GetCards(ctx context.Context, cardIDs []string) ([]*card.Record, error) {
	cards := make([]*card.Record, 0, len(cardIDs))
	for _, id := range cardIDs {
		rec, err := c.GetCard(ctx, id)
		if err != nil {
			return nil, err
		}
		cards = append(cards, rec)
	}
	return cards, nil
}

// ListCardsOnBoards fetches several boards concurrently and concatenates their
// cards in board order.
func (c *Client) ListCardsOnBoards(ctx context.Context, boardIDs []string) ([]*card.Record, error) {
	perBoard := make([][]*card.Record, len(boardIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, boardID := range boardIDs {
		g.Go(func() error {
			cards, err := c.ListBoardCards(gctx, boardID)
			if err != nil {
				return err
			}
			perBoard[i] = cards
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	all := []*card.Record{}
	for _, cards := range perBoard {
		all = append(all, cards...)
	}
	return all, nil
}
