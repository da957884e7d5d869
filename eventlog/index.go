package eventlog

import (
	"context"
	"encoding/json"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"perkledger/core/events"
)

// Entry is one persisted ledger event. Attributes are stored as a JSON
// document so ad-hoc analytics can filter on any emitted field.
type Entry struct {
	ID         string `gorm:"type:uuid;primaryKey"`
	Seq        uint64 `gorm:"uniqueIndex"`
	Type       string `gorm:"index"`
	Attributes string
	CreatedAt  time.Time `gorm:"index"`
}

// Index is the durable audit log of every event the ledger emits. It is the
// source for transaction-history and analytics reads outside the hot path.
type Index struct {
	db *gorm.DB
}

// Open creates or opens the sqlite-backed index at the given path. Use
// ":memory:" for tests.
func Open(path string) (*Index, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, err
	}
	return &Index{db: db}, nil
}

// Record persists one sequenced event.
func (i *Index) Record(evt events.Sequenced) error {
	if evt.Evt == nil {
		return nil
	}
	attrs, err := json.Marshal(evt.Evt.Attributes)
	if err != nil {
		return err
	}
	entry := &Entry{
		ID:         uuid.NewString(),
		Seq:        evt.Seq,
		Type:       evt.Evt.Type,
		Attributes: string(attrs),
		CreatedAt:  time.Now().UTC(),
	}
	return i.db.Create(entry).Error
}

// Recent returns the most recent entries, newest first.
func (i *Index) Recent(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	var out []Entry
	err := i.db.Order("seq desc").Limit(limit).Find(&out).Error
	return out, err
}

// ByType returns the most recent entries of one event type, newest first.
func (i *Index) ByType(eventType string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	var out []Entry
	err := i.db.Where("type = ?", eventType).Order("seq desc").Limit(limit).Find(&out).Error
	return out, err
}

// LastSeq returns the highest persisted sequence number, or zero when the
// index is empty.
func (i *Index) LastSeq() (uint64, error) {
	var entry Entry
	err := i.db.Order("seq desc").First(&entry).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return 0, nil
		}
		return 0, err
	}
	return entry.Seq, nil
}

// followResync bounds how long a dropped tail event can stay unpersisted
// before the backlog sweep picks it up.
const followResync = time.Second

// Follow consumes the bus subscription until the context is cancelled,
// persisting every event it sees. The subscription channel is lossy under
// bursts, so the follower resumes from the last persisted sequence on start,
// repairs any gap it observes between consecutive deliveries from the bus
// backlog, and sweeps the backlog periodically to catch dropped tail events.
// Intended to run on its own goroutine.
func (i *Index) Follow(ctx context.Context, bus *events.Bus) {
	ch, cancel := bus.Subscribe(256)
	defer cancel()

	lastSeq, err := i.LastSeq()
	if err != nil {
		lastSeq = 0
	}
	lastSeq = i.replayBacklog(bus, lastSeq)

	ticker := time.NewTicker(followResync)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			lastSeq = i.replayBacklog(bus, lastSeq)
		case evt, ok := <-ch:
			if !ok {
				return
			}
			if evt.Seq <= lastSeq {
				continue
			}
			if evt.Seq > lastSeq+1 {
				lastSeq = i.replayBacklog(bus, lastSeq)
				if evt.Seq <= lastSeq {
					continue
				}
			}
			if err := i.Record(evt); err == nil {
				lastSeq = evt.Seq
			}
		}
	}
}

// replayBacklog persists every retained event after afterSeq and returns the
// highest sequence persisted.
func (i *Index) replayBacklog(bus *events.Bus, afterSeq uint64) uint64 {
	for _, entry := range bus.Backlog(afterSeq) {
		if entry.Seq <= afterSeq {
			continue
		}
		if err := i.Record(entry); err != nil {
			return afterSeq
		}
		afterSeq = entry.Seq
	}
	return afterSeq
}
