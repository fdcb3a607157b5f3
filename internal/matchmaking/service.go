package matchmaking

import (
	"errors"
	"fmt"
	"time"

	"github.com/blockblockers/Deadblock-sub003/internal/pkg/model"
	"github.com/rs/zerolog/log"
)

// ErrQueueUnavailable wraps transient store failures. Callers treat it as
// "no progress this tick" and retry on their next poll; the service itself
// never retries.
var ErrQueueUnavailable = errors.New("matchmaking queue unavailable")

var ErrUnknownPlayer = errors.New("unknown player")

const defaultStaleAfter = 15 * time.Minute

type matchmakingService struct {
	store matchmakingStore

	// Entries older than this are skipped during candidate selection so a
	// client that died without leaving cannot be paired forever.
	staleAfter time.Duration

	now func() time.Time
}

func newService(store matchmakingStore, staleAfter time.Duration) *matchmakingService {
	if staleAfter <= 0 {
		staleAfter = defaultStaleAfter
	}
	return &matchmakingService{
		store:      store,
		staleAfter: staleAfter,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *matchmakingService) Join(userId string, rating int) error {
	entry := model.QueueEntry{
		UserId:   userId,
		Rating:   rating,
		JoinedAt: s.now(),
	}
	if err := s.store.UpsertEntry(entry); err != nil {
		return fmt.Errorf("%w: %v", ErrQueueUnavailable, err)
	}
	return nil
}

// Leave removes the caller's queue entry. Absence is not an error; leaving
// twice or after being paired is a no-op.
func (s *matchmakingService) Leave(userId string) error {
	if _, err := s.store.DeleteEntry(userId); err != nil {
		return fmt.Errorf("%w: %v", ErrQueueUnavailable, err)
	}
	return nil
}

// QueueSize is advisory, for display only. Pairing decisions always
// re-read the authoritative entry set.
func (s *matchmakingService) QueueSize() (int64, error) {
	count, err := s.store.EntryCount()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrQueueUnavailable, err)
	}
	return count, nil
}

// RatingOf resolves the pairing rating from the authoritative profile row
// rather than trusting the client.
func (s *matchmakingService) RatingOf(userId string) (int, error) {
	profile, err := s.store.ProfileById(userId)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrQueueUnavailable, err)
	}
	if profile == nil {
		return 0, ErrUnknownPlayer
	}
	return profile.Rating, nil
}

type PairingResult struct {
	Matched bool
	Game    *model.Game
}

var stillSearching = PairingResult{}

// AttemptPairing tries to turn the caller and the closest-rated waiting
// opponent into one game. Every client polls this independently, so the
// commit is guarded by affected-row counts: the game is created only if
// both queue rows were deleted by this caller. Losing either delete means
// some other poller committed first; the caller re-queues and keeps
// searching.
func (s *matchmakingService) AttemptPairing(userId string, rating int) (PairingResult, error) {
	entries, err := s.store.Entries()
	if err != nil {
		return stillSearching, fmt.Errorf("%w: %v", ErrQueueUnavailable, err)
	}

	own, candidate := s.selectCandidate(entries, userId, rating)
	if candidate == nil {
		return stillSearching, nil
	}

	deleted, err := s.store.DeleteEntry(userId)
	if err != nil {
		return stillSearching, fmt.Errorf("%w: %v", ErrQueueUnavailable, err)
	}
	if deleted == 0 {
		// Our row is gone: another poller claimed us. If their game commit
		// already landed we are matched; otherwise the poll loop re-joins.
		game, err := s.store.ActiveGameFor(userId)
		if err != nil {
			return stillSearching, fmt.Errorf("%w: %v", ErrQueueUnavailable, err)
		}
		if game != nil {
			return PairingResult{Matched: true, Game: game}, nil
		}
		return stillSearching, nil
	}

	taken, err := s.store.DeleteEntry(candidate.UserId)
	if err != nil || taken == 0 {
		// Opponent already consumed by a concurrent pairing. Put our row
		// back with its original timestamp and resume searching.
		s.requeue(own, userId, rating)
		if err != nil {
			return stillSearching, fmt.Errorf("%w: %v", ErrQueueUnavailable, err)
		}
		return stillSearching, nil
	}

	game := model.NewGame(userId, candidate.UserId)
	if err := s.store.CreateGame(game); err != nil {
		// Both rows are gone and no game exists. The poll loops on both
		// sides detect that state and re-join.
		log.Warn().Err(err).Msg("game creation failed after queue rows were claimed")
		return stillSearching, fmt.Errorf("%w: %v", ErrQueueUnavailable, err)
	}

	log.Info().
		Str("player1", game.Player1Id).
		Str("player2", game.Player2Id).
		Str("game", game.Id).
		Msg("paired players from queue")

	return PairingResult{Matched: true, Game: game}, nil
}

type SearchStatus struct {
	Queued bool        `json:"queued"`
	Game   *model.Game `json:"game"`
}

// Status reports whether the caller is still queued and whether an active
// game exists for them. Polling clients key change detection on this pair;
// "not queued and no game" is the self-heal signal to re-join.
func (s *matchmakingService) Status(userId string) (SearchStatus, error) {
	entries, err := s.store.Entries()
	if err != nil {
		return SearchStatus{}, fmt.Errorf("%w: %v", ErrQueueUnavailable, err)
	}
	status := SearchStatus{}
	for _, entry := range entries {
		if entry.UserId == userId {
			status.Queued = true
			break
		}
	}

	game, err := s.store.ActiveGameFor(userId)
	if err != nil {
		return SearchStatus{}, fmt.Errorf("%w: %v", ErrQueueUnavailable, err)
	}
	status.Game = game
	return status, nil
}

// selectCandidate picks the waiting opponent with the smallest absolute
// rating difference to the caller; ties go to the earliest joiner. Entries
// returns rows ordered by joined_at, so the first best match wins ties.
func (s *matchmakingService) selectCandidate(entries []model.QueueEntry, userId string, rating int) (own *model.QueueEntry, candidate *model.QueueEntry) {
	cutoff := s.now().Add(-s.staleAfter)
	bestDiff := 0

	for i := range entries {
		entry := &entries[i]
		if entry.UserId == userId {
			own = entry
			continue
		}
		if entry.JoinedAt.Before(cutoff) {
			continue
		}
		diff := entry.Rating - rating
		if diff < 0 {
			diff = -diff
		}
		if candidate == nil || diff < bestDiff {
			candidate = entry
			bestDiff = diff
		}
	}
	return own, candidate
}

func (s *matchmakingService) requeue(own *model.QueueEntry, userId string, rating int) {
	entry := model.QueueEntry{UserId: userId, Rating: rating, JoinedAt: s.now()}
	if own != nil {
		entry = *own
	}
	if err := s.store.UpsertEntry(entry); err != nil {
		// The poll loop will notice the missing entry and re-join.
		log.Warn().Err(err).Str("user", userId).Msg("failed to re-queue after lost pairing race")
	}
}
