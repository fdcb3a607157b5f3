package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

const BoardSize = 8

// CellState marks who occupies a board cell: 0 free, 1 or 2 for the players.
type CellState int

const (
	CellEmpty   CellState = 0
	CellPlayer1 CellState = 1
	CellPlayer2 CellState = 2
)

type Board [BoardSize][BoardSize]CellState

func EmptyBoard() Board {
	return Board{}
}

func (b Board) Value() (driver.Value, error) {
	return json.Marshal(b)
}

func (b *Board) Scan(value any) error {
	bytes, err := jsonColumnBytes(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(bytes, b)
}

type Cell struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// PiecePlacement records where one pentomino piece sits and who placed it.
type PiecePlacement struct {
	Player int    `json:"player"`
	Cells  []Cell `json:"cells"`
}

type PiecePlacements map[string]PiecePlacement

func (p PiecePlacements) Value() (driver.Value, error) {
	if p == nil {
		return json.Marshal(PiecePlacements{})
	}
	return json.Marshal(p)
}

func (p *PiecePlacements) Scan(value any) error {
	bytes, err := jsonColumnBytes(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(bytes, p)
}

// PieceList holds the ids of pieces already placed by either player.
type PieceList []string

func (p PieceList) Value() (driver.Value, error) {
	if p == nil {
		return json.Marshal(PieceList{})
	}
	return json.Marshal(p)
}

func (p *PieceList) Scan(value any) error {
	bytes, err := jsonColumnBytes(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(bytes, p)
}

func jsonColumnBytes(value any) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, errors.New("unsupported source type for json column")
	}
}
