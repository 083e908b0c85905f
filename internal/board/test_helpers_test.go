package board

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

type staticIDGenerator struct {
	ids   []string
	index int
}

func (g *staticIDGenerator) NewID() (string, error) {
	if g.index >= len(g.ids) {
		return "", errors.New("exhausted ids")
	}
	id := g.ids[g.index]
	g.index++
	return id, nil
}

type sequenceIDGenerator struct {
	prefix string
	next   int
}

func (g *sequenceIDGenerator) NewID() (string, error) {
	g.next++
	return fmt.Sprintf("%s-%04d", g.prefix, g.next), nil
}

type capturePublisher struct {
	mu     sync.Mutex
	events []Event
}

func (p *capturePublisher) Publish(event Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *capturePublisher) Events() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	captured := make([]Event, len(p.events))
	copy(captured, p.events)
	return captured
}

func (p *capturePublisher) Kinds() []EventKind {
	p.mu.Lock()
	defer p.mu.Unlock()
	kinds := make([]EventKind, 0, len(p.events))
	for _, event := range p.events {
		kinds = append(kinds, event.Kind)
	}
	return kinds
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	databasePath := filepath.Join(t.TempDir(), "board.db")
	db, err := gorm.Open(sqlite.Open(databasePath), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to access sql handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	if err := db.AutoMigrate(&Block{}, &Link{}, &Comment{}); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}
	store, err := NewStore(db)
	if err != nil {
		t.Fatalf("failed to construct store: %v", err)
	}
	return store
}

func newTestService(t *testing.T) (*Service, *capturePublisher, *fakeClock) {
	t.Helper()
	store := newTestStore(t)
	publisher := &capturePublisher{}
	clock := newFakeClock(time.Unix(1750000000, 0).UTC())
	service, err := NewService(ServiceConfig{
		Store:      store,
		Clock:      clock.Now,
		IDProvider: &sequenceIDGenerator{prefix: "id"},
		Publisher:  publisher,
	})
	if err != nil {
		t.Fatalf("failed to construct service: %v", err)
	}
	return service, publisher, clock
}

func mustCreateBlock(t *testing.T, service *Service, title string) Block {
	t.Helper()
	block, err := service.CreateBlock(context.Background(), CreateBlockInput{
		Title:      title,
		AuthorID:   "user-1",
		AuthorName: "Ada",
	})
	if err != nil {
		t.Fatalf("failed to create block %q: %v", title, err)
	}
	return block
}

func mustCreateLink(t *testing.T, service *Service, sourceID, targetID string) Link {
	t.Helper()
	link, err := service.CreateLink(context.Background(), CreateLinkInput{
		SourceID: sourceID,
		TargetID: targetID,
	})
	if err != nil {
		t.Fatalf("failed to create link %s -> %s: %v", sourceID, targetID, err)
	}
	return link
}

func mustCreateComment(t *testing.T, service *Service, blockID string, parentID *string, content string) Comment {
	t.Helper()
	comment, err := service.CreateComment(context.Background(), CreateCommentInput{
		BlockID:    blockID,
		Content:    content,
		AuthorID:   "user-1",
		AuthorName: "Ada",
		ParentID:   parentID,
	})
	if err != nil {
		t.Fatalf("failed to create comment on %s: %v", blockID, err)
	}
	return comment
}

func strPtr(value string) *string {
	return &value
}
