package rematch

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/blockblockers/Deadblock-sub003/internal/pkg/model"
	"github.com/google/uuid"
)

// fakeStore mirrors the store's row-level atomicity: ResolveIfPending is a
// single conditional write, everything else is an independent operation,
// so concurrent accept attempts race the way independent clients would.
type fakeStore struct {
	mu       sync.Mutex
	games    map[string]model.Game
	requests map[string]model.RematchRequest
	profiles map[string]model.Profile

	failing bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		games:    map[string]model.Game{},
		requests: map[string]model.RematchRequest{},
		profiles: map[string]model.Profile{},
	}
}

var errStoreDown = errors.New("connection refused")

func (s *fakeStore) GameById(gameId string) (*model.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return nil, errStoreDown
	}
	game, ok := s.games[gameId]
	if !ok {
		return nil, nil
	}
	return &game, nil
}

func (s *fakeStore) CreateGame(game *model.Game) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return errStoreDown
	}
	if game.Id == "" {
		game.Id = uuid.NewString()
	}
	s.games[game.Id] = *game
	return nil
}

func (s *fakeStore) DeleteGame(gameId string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return errStoreDown
	}
	delete(s.games, gameId)
	return nil
}

func (s *fakeStore) CreateRequest(request *model.RematchRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return errStoreDown
	}
	if request.Id == "" {
		request.Id = uuid.NewString()
	}
	s.requests[request.Id] = *request
	return nil
}

func (s *fakeStore) RequestById(id string) (*model.RematchRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return nil, errStoreDown
	}
	request, ok := s.requests[id]
	if !ok {
		return nil, nil
	}
	return &request, nil
}

func (s *fakeStore) PendingByGame(gameId string) (*model.RematchRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return nil, errStoreDown
	}
	var oldest *model.RematchRequest
	for id := range s.requests {
		request := s.requests[id]
		if request.GameId != gameId || request.Status != model.RematchPending {
			continue
		}
		if oldest == nil || request.CreatedAt.Before(oldest.CreatedAt) {
			found := request
			oldest = &found
		}
	}
	return oldest, nil
}

func (s *fakeStore) ResolveIfPending(id string, status model.RematchStatus, newGameId *string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return 0, errStoreDown
	}
	request, ok := s.requests[id]
	if !ok || request.Status != model.RematchPending {
		return 0, nil
	}
	request.Status = status
	request.NewGameId = newGameId
	request.UpdatedAt = time.Now().UTC()
	s.requests[id] = request
	return 1, nil
}

func (s *fakeStore) PendingForUser(userId string) ([]PendingRematch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return nil, errStoreDown
	}
	pending := []PendingRematch{}
	for id := range s.requests {
		request := s.requests[id]
		if request.Status != model.RematchPending || !request.Involves(userId) {
			continue
		}
		opponent := s.profiles[request.OtherParty(userId)]
		pending = append(pending, PendingRematch{
			RematchRequest:   request,
			OpponentUsername: opponent.Username,
			OpponentRating:   opponent.Rating,
		})
	}
	return pending, nil
}

// finishedGame seeds a completed game between alice and bob.
func finishedGame(store *fakeStore) string {
	game := model.NewGame("alice", "bob")
	game.Id = uuid.NewString()
	game.GameStatus = model.GameCompleted
	store.games[game.Id] = *game
	store.profiles["alice"] = model.Profile{Id: "alice", Username: "alice", Rating: 1000}
	store.profiles["bob"] = model.Profile{Id: "bob", Username: "bob", Rating: 1020}
	return game.Id
}

func TestRequestCreatesPending(t *testing.T) {
	store := newFakeStore()
	gameId := finishedGame(store)
	service := newService(store)

	outcome, err := service.Request(gameId, "alice", "bob")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	request := outcome.Request
	if request.Status != model.RematchPending {
		t.Errorf("expected pending request, got %s", request.Status)
	}
	if request.FirstPlayerId != "alice" && request.FirstPlayerId != "bob" {
		t.Errorf("first player must be one of the participants, got %q", request.FirstPlayerId)
	}
	if outcome.Game != nil {
		t.Error("a fresh request must not create a game")
	}
}

func TestRequestIdempotentForSameSender(t *testing.T) {
	store := newFakeStore()
	gameId := finishedGame(store)
	service := newService(store)

	first, err := service.Request(gameId, "alice", "bob")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	second, err := service.Request(gameId, "alice", "bob")
	if err != nil {
		t.Fatalf("repeated request failed: %v", err)
	}

	if first.Request.Id != second.Request.Id {
		t.Errorf("duplicate request must return the same row, got %q and %q",
			first.Request.Id, second.Request.Id)
	}
	if len(store.requests) != 1 {
		t.Errorf("expected a single request row, got %d", len(store.requests))
	}
}

func TestBothRequestingAutoAccepts(t *testing.T) {
	store := newFakeStore()
	gameId := finishedGame(store)
	service := newService(store)

	first, err := service.Request(gameId, "alice", "bob")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	outcome, err := service.Request(gameId, "bob", "alice")
	if err != nil {
		t.Fatalf("crossing request failed: %v", err)
	}

	if outcome.Request.Id != first.Request.Id {
		t.Errorf("auto-accept must settle the existing request, got a new one")
	}
	if outcome.Request.Status != model.RematchAccepted {
		t.Errorf("expected accepted, got %s", outcome.Request.Status)
	}
	if outcome.Game == nil {
		t.Fatal("auto-accept must produce the follow-up game")
	}

	newGames := 0
	for id := range store.games {
		if id != gameId {
			newGames++
		}
	}
	if newGames != 1 {
		t.Errorf("both players requesting must yield exactly one game, got %d", newGames)
	}
}

func TestAcceptCreatesGameHonoringFirstPlayer(t *testing.T) {
	store := newFakeStore()
	gameId := finishedGame(store)
	service := newService(store)

	// The requester's client may be long gone by the time the opponent
	// accepts; the stored first player assignment still decides turns.
	outcome, err := service.Request(gameId, "alice", "bob")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	result, err := service.Accept(outcome.Request.Id, "bob")
	if err != nil {
		t.Fatalf("accept failed: %v", err)
	}

	if result.Game.Player1Id != outcome.Request.FirstPlayerId {
		t.Errorf("player1 must be the drawn first player %q, got %q",
			outcome.Request.FirstPlayerId, result.Game.Player1Id)
	}
	if result.Game.GameStatus != model.GameActive {
		t.Errorf("expected active game, got %s", result.Game.GameStatus)
	}
	if result.Request.NewGameId == nil || *result.Request.NewGameId != result.Game.Id {
		t.Error("accepted request must carry the new game id")
	}

	stored := store.requests[outcome.Request.Id]
	if stored.Status != model.RematchAccepted || stored.NewGameId == nil {
		t.Error("accepted state must be persisted")
	}
}

func TestDoubleAcceptFailsClosed(t *testing.T) {
	store := newFakeStore()
	gameId := finishedGame(store)
	service := newService(store)

	outcome, err := service.Request(gameId, "alice", "bob")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	var wg sync.WaitGroup
	results := make([]*AcceptResult, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = service.Accept(outcome.Request.Id, "bob")
		}(i)
	}
	wg.Wait()

	winners := 0
	for i := 0; i < 2; i++ {
		if errs[i] == nil {
			winners++
		} else if !errors.Is(errs[i], ErrAlreadyResolved) {
			t.Errorf("loser must see already-resolved, got %v", errs[i])
		}
	}
	if winners != 1 {
		t.Fatalf("exactly one accept must win, got %d", winners)
	}

	newGames := 0
	for id := range store.games {
		if id != gameId {
			newGames++
		}
	}
	if newGames != 1 {
		t.Errorf("double accept must leave exactly one new game, got %d", newGames)
	}
}

func TestDeclineClearsPendingForBothPlayers(t *testing.T) {
	store := newFakeStore()
	gameId := finishedGame(store)
	service := newService(store)

	outcome, err := service.Request(gameId, "alice", "bob")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	if _, err := service.Decline(outcome.Request.Id, "bob"); err != nil {
		t.Fatalf("decline failed: %v", err)
	}

	for _, user := range []string{"alice", "bob"} {
		pending, err := service.PendingFor(user)
		if err != nil {
			t.Fatalf("pending list failed: %v", err)
		}
		if len(pending) != 0 {
			t.Errorf("declined request must not appear in %s's pending list", user)
		}
	}

	// Declining again is a no-op, any other transition is a conflict.
	if _, err := service.Decline(outcome.Request.Id, "bob"); err != nil {
		t.Errorf("repeated decline must be idempotent, got %v", err)
	}
	if _, err := service.Accept(outcome.Request.Id, "bob"); !errors.Is(err, ErrAlreadyResolved) {
		t.Errorf("accept after decline must report already-resolved, got %v", err)
	}
}

func TestCancelOnlyByRequester(t *testing.T) {
	store := newFakeStore()
	gameId := finishedGame(store)
	service := newService(store)

	outcome, err := service.Request(gameId, "alice", "bob")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	if _, err := service.Cancel(outcome.Request.Id, "bob"); !errors.Is(err, ErrNotPermitted) {
		t.Errorf("cancelling someone else's request must be rejected, got %v", err)
	}
	if _, err := service.Cancel(outcome.Request.Id, "alice"); err != nil {
		t.Errorf("requester must be able to cancel, got %v", err)
	}
	if store.requests[outcome.Request.Id].Status != model.RematchCancelled {
		t.Error("cancelled state must be persisted")
	}
}

func TestAcceptByRequesterRejected(t *testing.T) {
	store := newFakeStore()
	gameId := finishedGame(store)
	service := newService(store)

	outcome, _ := service.Request(gameId, "alice", "bob")
	if _, err := service.Accept(outcome.Request.Id, "alice"); !errors.Is(err, ErrNotPermitted) {
		t.Errorf("requester resolves via auto-accept, direct accept must be rejected, got %v", err)
	}
}

func TestRequestValidation(t *testing.T) {
	store := newFakeStore()
	gameId := finishedGame(store)
	service := newService(store)

	if _, err := service.Request("missing-game", "alice", "bob"); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown game must be not-found, got %v", err)
	}
	if _, err := service.Request(gameId, "alice", "mallory"); !errors.Is(err, ErrNotPermitted) {
		t.Errorf("outsider must be rejected, got %v", err)
	}
	if _, err := service.Request(gameId, "alice", "alice"); !errors.Is(err, ErrNotPermitted) {
		t.Errorf("self-rematch must be rejected, got %v", err)
	}

	running := model.NewGame("alice", "bob")
	running.Id = "running"
	store.games[running.Id] = *running
	if _, err := service.Request("running", "alice", "bob"); !errors.Is(err, ErrNotPermitted) {
		t.Errorf("rematch for an unfinished game must be rejected, got %v", err)
	}
}

func TestStoreFailureIsTransient(t *testing.T) {
	store := newFakeStore()
	gameId := finishedGame(store)
	service := newService(store)

	store.failing = true
	if _, err := service.Request(gameId, "alice", "bob"); !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("expected ErrStoreUnavailable, got %v", err)
	}
	store.failing = false

	// The same call succeeds on the next tick; nothing was half-written.
	if _, err := service.Request(gameId, "alice", "bob"); err != nil {
		t.Errorf("retry after transient failure must succeed, got %v", err)
	}
}

func TestPendingForEnrichesOpponent(t *testing.T) {
	store := newFakeStore()
	gameId := finishedGame(store)
	service := newService(store)

	if _, err := service.Request(gameId, "alice", "bob"); err != nil {
		t.Fatalf("request failed: %v", err)
	}

	pending, err := service.PendingFor("alice")
	if err != nil {
		t.Fatalf("pending list failed: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected one pending rematch, got %d", len(pending))
	}
	if pending[0].OpponentUsername != "bob" || pending[0].OpponentRating != 1020 {
		t.Errorf("opponent metadata not enriched: %+v", pending[0])
	}
}
