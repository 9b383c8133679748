package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/tolelom/consensusclash/core"
	"github.com/tolelom/consensusclash/indexer"
	"github.com/tolelom/consensusclash/query"
	"github.com/tolelom/consensusclash/vm"
)

// writeMethods maps RPC method names to contract methods. Their params are
// the call payload plus the issuing "caller".
var writeMethods = map[string]core.Method{
	"registerPlayer":      core.MethodRegisterPlayer,
	"generateWeeklyTopic": core.MethodGenerateTopic,
	"createGameRoom":      core.MethodCreateRoom,
	"joinGameRoom":        core.MethodJoinRoom,
	"startGame":           core.MethodStartGame,
	"submitArgument":      core.MethodSubmitArgument,
	"castVote":            core.MethodCastVote,
	"resetGame":           core.MethodResetGame,
}

// Handler holds all dependencies needed to serve RPC methods.
type Handler struct {
	exec    *vm.Executor
	indexer *indexer.Indexer
	now     func() time.Time
	logger  *slog.Logger
}

// HandlerOption customizes a Handler.
type HandlerOption func(*Handler)

// WithClock replaces the clock used to stamp calls and compute the week.
func WithClock(now func() time.Time) HandlerOption {
	return func(h *Handler) { h.now = now }
}

// WithHandlerLogger sets the handler's logger.
func WithHandlerLogger(l *slog.Logger) HandlerOption {
	return func(h *Handler) { h.logger = l }
}

// NewHandler creates an RPC Handler. idx may be nil, in which case
// getGamesByPlayer is unavailable.
func NewHandler(exec *vm.Executor, idx *indexer.Indexer, opts ...HandlerOption) *Handler {
	h := &Handler{exec: exec, indexer: idx, now: time.Now, logger: slog.Default()}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Dispatch routes an RPC request to the correct method.
func (h *Handler) Dispatch(ctx context.Context, req Request) Response {
	if m, ok := writeMethods[req.Method]; ok {
		return h.execute(ctx, req, m)
	}

	switch req.Method {
	case "getGameState":
		return h.read(req, func(f *query.Facade) (any, error) { return f.GameState() })
	case "getPlayerInfo":
		return h.withAddress(req, func(f *query.Facade, addr string) (any, error) { return f.Player(addr) })
	case "getRoomPlayers":
		return h.read(req, func(f *query.Facade) (any, error) { return f.RoomPlayers() })
	case "getArguments":
		return h.read(req, func(f *query.Facade) (any, error) { return f.Arguments() })
	case "getFinalRankings":
		return h.read(req, func(f *query.Facade) (any, error) { return f.FinalRankings() })
	case "getWeeklyLeaderboard":
		return h.read(req, func(f *query.Facade) (any, error) { return f.Leaderboard() })
	case "getWeeklyTopic":
		return h.read(req, func(f *query.Facade) (any, error) { return f.WeeklyTopic() })
	case "getContractStats":
		now := h.now().Unix()
		return h.read(req, func(f *query.Facade) (any, error) { return f.Stats(now) })
	case "canPlayThisWeek":
		return h.withAddress(req, func(f *query.Facade, addr string) (any, error) { return f.CanPlayThisWeek(addr), nil })
	case "getRoom":
		return h.getRoom(req)
	case "getGamesByPlayer":
		return h.getGamesByPlayer(req)
	default:
		return errResponse(req.ID, CodeMethodNotFound, fmt.Sprintf("method %q not found", req.Method))
	}
}

func (h *Handler) execute(ctx context.Context, req Request, method core.Method) Response {
	var params struct {
		Caller string `json:"caller"`
	}
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return errResponse(req.ID, CodeInvalidParams, "params: "+err.Error())
		}
	}
	if params.Caller == "" {
		return errResponse(req.ID, CodeInvalidParams, "caller is required")
	}

	call, err := core.NewCallAt(method, params.Caller, h.now().Unix(), nil)
	if err != nil {
		return errResponse(req.ID, CodeInternalError, err.Error())
	}
	call.Payload = req.Params

	receipt, err := h.exec.Execute(ctx, call)
	if err != nil {
		return callError(req.ID, err)
	}
	return okResponse(req.ID, receipt)
}

func (h *Handler) read(req Request, fn func(*query.Facade) (any, error)) Response {
	var result any
	err := h.exec.View(func(s core.State) error {
		var err error
		result, err = fn(query.New(s))
		return err
	})
	if err != nil {
		return callError(req.ID, err)
	}
	return okResponse(req.ID, result)
}

func (h *Handler) withAddress(req Request, fn func(*query.Facade, string) (any, error)) Response {
	var params struct {
		Address string `json:"address"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, "params: "+err.Error())
	}
	if params.Address == "" {
		return errResponse(req.ID, CodeInvalidParams, "address is required")
	}
	return h.read(req, func(f *query.Facade) (any, error) { return fn(f, params.Address) })
}

func (h *Handler) getRoom(req Request) Response {
	var params struct {
		GameID uint64 `json:"game_id"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, "params: "+err.Error())
	}
	if params.GameID == 0 {
		return errResponse(req.ID, CodeInvalidParams, "game_id is required")
	}
	return h.read(req, func(f *query.Facade) (any, error) { return f.Room(params.GameID) })
}

func (h *Handler) getGamesByPlayer(req Request) Response {
	if h.indexer == nil {
		return errResponse(req.ID, CodeMethodNotFound, "indexer disabled")
	}
	var params struct {
		Address string `json:"address"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, "params: "+err.Error())
	}
	if params.Address == "" {
		return errResponse(req.ID, CodeInvalidParams, "address is required")
	}
	ids, err := h.indexer.GetGamesByPlayer(params.Address)
	if err != nil {
		return callError(req.ID, err)
	}
	return okResponse(req.ID, ids)
}
