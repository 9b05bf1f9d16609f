package appstate

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/k2brd/k2brd/engine/brd"
	"github.com/k2brd/k2brd/engine/card"
	"github.com/k2brd/k2brd/engine/labels"
	"github.com/k2brd/k2brd/engine/tracker"
	"github.com/k2brd/k2brd/pkg/config"
)

type contextKey string

const (
	stateKey contextKey = "app_state"
)

// Tracker is the subset of the tracker client the HTTP layer needs.
type Tracker interface {
	ListBoards(ctx context.Context) ([]tracker.Board, error)
	ListBoardCards(ctx context.Context, boardID string) ([]*card.Record, error)
	GetCards(ctx context.Context, cardIDs []string) ([]*card.Record, error)
	ListCardsOnBoards(ctx context.Context, boardIDs []string) ([]*card.Record, error)
}

// Generator produces one BRD per card.
type Generator interface {
	GenerateForCards(ctx context.Context, cards []*card.Record) ([]brd.Result, error)
}

// HealthChecker reports generation provider reachability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) bool
}

// CardObserver receives card counts per tracker operation.
type CardObserver interface {
	ObserveCards(operation string, n int)
}

type BaseDeps struct {
	Config    *config.Config
	Tracker   Tracker
	Generator Generator
	Provider  HealthChecker
	Labels    *labels.Taxonomy
}

func NewBaseDeps(
	cfg *config.Config,
	trackerClient Tracker,
	generator Generator,
	provider HealthChecker,
	taxonomy *labels.Taxonomy,
) BaseDeps {
	return BaseDeps{
		Config:    cfg,
		Tracker:   trackerClient,
		Generator: generator,
		Provider:  provider,
		Labels:    taxonomy,
	}
}

type State struct {
	BaseDeps
	Observer CardObserver
}

func NewState(deps BaseDeps, observer CardObserver) (*State, error) {
	if deps.Config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if deps.Tracker == nil {
		return nil, fmt.Errorf("tracker client is required")
	}
	if deps.Generator == nil {
		return nil, fmt.Errorf("generator is required")
	}
	if deps.Provider == nil {
		return nil, fmt.Errorf("provider health checker is required")
	}
	if deps.Labels == nil {
		deps.Labels = labels.Default()
	}
	return &State{BaseDeps: deps, Observer: observer}, nil
}

// ObserveCards forwards to the observer when one is configured.
func (s *State) ObserveCards(operation string, n int) {
	if s.Observer != nil {
		s.Observer.ObserveCards(operation, n)
	}
}

func WithState(ctx context.Context, state *State) context.Context {
	return context.WithValue(ctx, stateKey, state)
}

func GetState(ctx context.Context) (*State, error) {
	state, ok := ctx.Value(stateKey).(*State)
	if !ok {
		return nil, fmt.Errorf("app state not found in context")
	}
	return state, nil
}

func StateMiddleware(state *State) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := WithState(c.Request.Context(), state)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
