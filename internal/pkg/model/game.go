package model

import (
	"time"
)

type GameStatus string

const (
	GameActive    GameStatus = "ACTIVE"
	GameCompleted GameStatus = "COMPLETED"
	GameAbandoned GameStatus = "ABANDONED"
)

type Game struct {
	Id            string          `gorm:"primaryKey"`
	Player1Id     string          `gorm:"column:player1_id"`
	Player2Id     string          `gorm:"column:player2_id"`
	Board         Board           `gorm:"type:jsonb"`
	BoardPieces   PiecePlacements `gorm:"type:jsonb"`
	UsedPieces    PieceList       `gorm:"type:jsonb"`
	CurrentPlayer int
	GameStatus    GameStatus
	TimeCreated   time.Time
}

func (Game) TableName() string {
	return "game"
}

// NewGame builds a fresh active game; player1 moves first.
func NewGame(player1Id, player2Id string) *Game {
	return &Game{
		Player1Id:     player1Id,
		Player2Id:     player2Id,
		Board:         EmptyBoard(),
		BoardPieces:   PiecePlacements{},
		UsedPieces:    PieceList{},
		CurrentPlayer: 1,
		GameStatus:    GameActive,
		TimeCreated:   time.Now().UTC(),
	}
}

func (g *Game) HasPlayer(userId string) bool {
	return g.Player1Id == userId || g.Player2Id == userId
}

func (g *Game) OpponentOf(userId string) string {
	if g.Player1Id == userId {
		return g.Player2Id
	}
	return g.Player1Id
}
