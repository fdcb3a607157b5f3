package rematch

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/blockblockers/Deadblock-sub003/internal/pkg/model"
	"github.com/rs/zerolog/log"
)

var (
	// ErrStoreUnavailable wraps transient store failures; callers retry on
	// their next poll tick.
	ErrStoreUnavailable = errors.New("rematch store unavailable")

	// ErrAlreadyResolved reports a lost race on a one-time transition: the
	// request left PENDING before this attempt landed. A normal outcome,
	// never an internal failure.
	ErrAlreadyResolved = errors.New("rematch request already resolved")

	ErrNotPermitted = errors.New("action not permitted on rematch request")
	ErrNotFound     = errors.New("rematch request not found")
)

type rematchService struct {
	store rematchStore

	// pickFirst draws the first player at request-creation time so both
	// clients observe the same turn assignment once the row exists.
	pickFirst func(a, b string) string
}

func newService(store rematchStore) *rematchService {
	return &rematchService{
		store: store,
		pickFirst: func(a, b string) string {
			if rand.Intn(2) == 0 {
				return a
			}
			return b
		},
	}
}

// AcceptResult carries the settled request together with the game created
// for it.
type AcceptResult struct {
	Request *model.RematchRequest `json:"request"`
	Game    *model.Game           `json:"game"`
}

// RequestOutcome is what a rematch request produced: either a (new or
// already existing) pending request, or — when the opponent had already
// asked — the accepted request plus the follow-up game.
type RequestOutcome struct {
	Request *model.RematchRequest `json:"request"`
	Game    *model.Game           `json:"game,omitempty"`
}

// Request starts or joins a rematch negotiation for a finished game.
// If the opponent's request is already pending, the caller's intent counts
// as an acceptance instead of a duplicate row (auto-accept). A repeated
// request from the same caller returns the existing row unchanged.
func (s *rematchService) Request(gameId, fromUserId, toUserId string) (*RequestOutcome, error) {
	game, err := s.store.GameById(gameId)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if game == nil {
		return nil, ErrNotFound
	}
	if fromUserId == toUserId || !game.HasPlayer(fromUserId) || !game.HasPlayer(toUserId) {
		return nil, ErrNotPermitted
	}
	if game.GameStatus == model.GameActive {
		// Negotiations only follow finished games.
		return nil, ErrNotPermitted
	}

	pending, err := s.store.PendingByGame(gameId)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if pending != nil {
		if pending.FromUserId == toUserId {
			// Both players asked independently; settle the existing
			// request instead of creating a duplicate.
			result, err := s.accept(pending)
			if err != nil {
				return nil, err
			}
			return &RequestOutcome{Request: result.Request, Game: result.Game}, nil
		}
		if pending.FromUserId == fromUserId {
			return &RequestOutcome{Request: pending}, nil
		}
	}

	now := time.Now().UTC()
	request := &model.RematchRequest{
		GameId:        gameId,
		FromUserId:    fromUserId,
		ToUserId:      toUserId,
		FirstPlayerId: s.pickFirst(fromUserId, toUserId),
		Status:        model.RematchPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.CreateRequest(request); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	log.Info().
		Str("game", gameId).
		Str("from", fromUserId).
		Str("to", toUserId).
		Str("request", request.Id).
		Msg("rematch requested")

	return &RequestOutcome{Request: request}, nil
}

// Accept settles a pending request and creates the follow-up game. Only
// the invited player accepts; the requester resolves through auto-accept.
func (s *rematchService) Accept(requestId, userId string) (*AcceptResult, error) {
	request, err := s.fetch(requestId)
	if err != nil {
		return nil, err
	}
	if request.ToUserId != userId {
		return nil, ErrNotPermitted
	}
	if request.Status != model.RematchPending {
		return nil, ErrAlreadyResolved
	}
	return s.accept(request)
}

// accept creates the new game first, then claims the request with a
// conditional update. If the claim affects zero rows another attempt won;
// the freshly created game is removed again so exactly one game survives.
func (s *rematchService) accept(request *model.RematchRequest) (*AcceptResult, error) {
	game := model.NewGame(request.FirstPlayerId, request.SecondPlayerId())
	if err := s.store.CreateGame(game); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	claimed, err := s.store.ResolveIfPending(request.Id, model.RematchAccepted, &game.Id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if claimed == 0 {
		if deleteErr := s.store.DeleteGame(game.Id); deleteErr != nil {
			log.Warn().Err(deleteErr).
				Str("game", game.Id).
				Msg("failed to remove game after lost accept race")
		}
		return nil, ErrAlreadyResolved
	}

	request.Status = model.RematchAccepted
	request.NewGameId = &game.Id
	request.UpdatedAt = game.TimeCreated

	log.Info().
		Str("request", request.Id).
		Str("game", game.Id).
		Str("firstPlayer", request.FirstPlayerId).
		Msg("rematch accepted")

	return &AcceptResult{Request: request, Game: game}, nil
}

// Decline settles a pending request without a game. Declining an already
// declined request is a no-op; any other settled state is a conflict.
func (s *rematchService) Decline(requestId, userId string) (*model.RematchRequest, error) {
	request, err := s.fetch(requestId)
	if err != nil {
		return nil, err
	}
	if request.ToUserId != userId {
		return nil, ErrNotPermitted
	}
	return s.resolve(request, model.RematchDeclined)
}

// Cancel withdraws a pending request; only the requester may cancel.
func (s *rematchService) Cancel(requestId, userId string) (*model.RematchRequest, error) {
	request, err := s.fetch(requestId)
	if err != nil {
		return nil, err
	}
	if request.FromUserId != userId {
		return nil, ErrNotPermitted
	}
	return s.resolve(request, model.RematchCancelled)
}

func (s *rematchService) resolve(request *model.RematchRequest, status model.RematchStatus) (*model.RematchRequest, error) {
	if request.Status == status {
		return request, nil
	}
	if request.Status != model.RematchPending {
		return nil, ErrAlreadyResolved
	}

	settled, err := s.store.ResolveIfPending(request.Id, status, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if settled == 0 {
		// Raced with another transition; re-read to distinguish an
		// idempotent repeat from a genuine conflict.
		current, err := s.fetch(request.Id)
		if err != nil {
			return nil, err
		}
		if current.Status == status {
			return current, nil
		}
		return nil, ErrAlreadyResolved
	}

	request.Status = status
	request.UpdatedAt = time.Now().UTC()
	return request, nil
}

// PendingFor lists pending requests where the user is either party. Pure
// read, no side effects.
func (s *rematchService) PendingFor(userId string) ([]PendingRematch, error) {
	pending, err := s.store.PendingForUser(userId)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return pending, nil
}

func (s *rematchService) fetch(requestId string) (*model.RematchRequest, error) {
	request, err := s.store.RequestById(requestId)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if request == nil {
		return nil, ErrNotFound
	}
	return request, nil
}
