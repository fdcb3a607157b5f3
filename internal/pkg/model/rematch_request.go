package model

import (
	"time"
)

type RematchStatus string

const (
	RematchPending   RematchStatus = "PENDING"
	RematchAccepted  RematchStatus = "ACCEPTED"
	RematchDeclined  RematchStatus = "DECLINED"
	RematchCancelled RematchStatus = "CANCELLED"
)

// RematchRequest is one negotiation over a finished game. FirstPlayerId is
// drawn at creation time so both clients observe the same turn assignment
// as soon as the row exists.
type RematchRequest struct {
	Id            string `gorm:"primaryKey"`
	GameId        string
	FromUserId    string
	ToUserId      string
	FirstPlayerId string
	Status        RematchStatus
	NewGameId     *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (RematchRequest) TableName() string {
	return "rematch_request"
}

func (r *RematchRequest) Involves(userId string) bool {
	return r.FromUserId == userId || r.ToUserId == userId
}

func (r *RematchRequest) OtherParty(userId string) string {
	if r.FromUserId == userId {
		return r.ToUserId
	}
	return r.FromUserId
}

// SecondPlayerId is the participant not drawn as first player.
func (r *RematchRequest) SecondPlayerId() string {
	return r.OtherParty(r.FirstPlayerId)
}
