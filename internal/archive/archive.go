package archive

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"coppit-server/internal/game"
)

// Match is one finished game, flattened for querying. The full action log
// rides along as a JSON blob.
type Match struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	RoomID     string    `gorm:"index" json:"room_id"`
	Winners    string    `json:"winners"` // comma-free JSON array of player ids
	Turns      int       `json:"turns"`
	PlayerJSON string    `json:"-"`
	LogJSON    string    `json:"-"`
	FinishedAt time.Time `gorm:"index" json:"finished_at"`
}

// PlayerResult is the per-seat outcome embedded in PlayerJSON.
type PlayerResult struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
	Color    string `json:"color"`
	IsBot    bool   `json:"is_bot"`
	Score    int    `json:"score"`
	Points   int    `json:"points"`
}

// Archive stores finished matches in SQLite.
type Archive struct {
	db *gorm.DB
}

// Open creates or migrates the archive database at path. Use ":memory:"
// for tests.
func Open(path string) (*Archive, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", path, err)
	}
	if err := db.AutoMigrate(&Match{}); err != nil {
		return nil, fmt.Errorf("migrate archive: %w", err)
	}
	return &Archive{db: db}, nil
}

// Record persists one finished game. It is a no-op for unfinished states.
func (a *Archive) Record(s *game.State) error {
	if s.Phase != game.PhaseGameOver {
		return nil
	}
	results := make([]PlayerResult, 0, len(s.Players))
	for id, p := range s.Players {
		results = append(results, PlayerResult{
			PlayerID: id,
			Name:     p.Name,
			Color:    string(p.Color),
			IsBot:    p.IsBot,
			Score:    p.Score(),
			Points:   p.Points(),
		})
	}
	players, err := json.Marshal(results)
	if err != nil {
		return err
	}
	winners, err := json.Marshal(s.Winner)
	if err != nil {
		return err
	}
	logs, err := json.Marshal(s.Logs)
	if err != nil {
		return err
	}
	m := Match{
		RoomID:     s.RoomID,
		Winners:    string(winners),
		Turns:      s.TurnCount,
		PlayerJSON: string(players),
		LogJSON:    string(logs),
		FinishedAt: time.Now().UTC(),
	}
	return a.db.Create(&m).Error
}

// Recent returns the latest finished matches, newest first.
func (a *Archive) Recent(limit int) ([]Match, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var out []Match
	err := a.db.Order("finished_at desc").Limit(limit).Find(&out).Error
	return out, err
}

// ByRoom returns every archived match of one room id.
func (a *Archive) ByRoom(roomID string) ([]Match, error) {
	var out []Match
	err := a.db.Where("room_id = ?", roomID).Order("finished_at desc").Find(&out).Error
	return out, err
}

// Players decodes the per-seat results of a match.
func (m *Match) Players() ([]PlayerResult, error) {
	var out []PlayerResult
	err := json.Unmarshal([]byte(m.PlayerJSON), &out)
	return out, err
}
