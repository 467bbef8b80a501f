package store

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"coppit-server/internal/game"
)

// Cleaner periodically sweeps the active-room set: rooms whose state has
// expired or whose game ended long ago are dropped, together with their
// player index entries.
type Cleaner struct {
	store  Store
	log    *zap.Logger
	cron   *cron.Cron
	linger time.Duration // how long a finished game stays visible
}

func NewCleaner(s Store, log *zap.Logger, linger time.Duration) *Cleaner {
	if linger <= 0 {
		linger = 10 * time.Minute
	}
	return &Cleaner{store: s, log: log, cron: cron.New(), linger: linger}
}

// Start schedules the sweep. The spec uses the cron package's standard
// 5-field format.
func (c *Cleaner) Start(spec string) error {
	if spec == "" {
		spec = "@every 5m"
	}
	if _, err := c.cron.AddFunc(spec, c.Sweep); err != nil {
		return err
	}
	c.cron.Start()
	return nil
}

func (c *Cleaner) Stop() {
	c.cron.Stop()
}

// Sweep runs one pass. Exported so a shutdown hook or test can force it.
func (c *Cleaner) Sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	rooms, err := c.store.ActiveRooms(ctx)
	if err != nil {
		c.log.Warn("room sweep: listing failed", zap.Error(err))
		return
	}
	removed := 0
	for _, roomID := range rooms {
		s, err := c.store.Load(ctx, roomID)
		if errors.Is(err, ErrNotFound) {
			if err := c.store.Delete(ctx, roomID); err == nil {
				removed++
			}
			continue
		}
		if err != nil {
			c.log.Warn("room sweep: load failed", zap.String("room_id", roomID), zap.Error(err))
			continue
		}
		if s.Phase != game.PhaseGameOver {
			continue
		}
		if len(s.Logs) > 0 && time.Since(s.Logs[len(s.Logs)-1].Timestamp) < c.linger {
			continue
		}
		for playerID := range s.Players {
			_ = c.store.ClearPlayerRoom(ctx, playerID)
		}
		if err := c.store.Delete(ctx, roomID); err == nil {
			removed++
		}
	}
	if removed > 0 {
		c.log.Info("room sweep finished", zap.Int("removed", removed), zap.Int("scanned", len(rooms)))
	}
}
