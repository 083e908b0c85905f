package board

import (
	"testing"
	"time"
)

func TestPartitionLinksSplitsByDirection(t *testing.T) {
	blocks := map[string]Block{
		"b": {ID: "b", Title: "B"},
		"c": {ID: "c", Title: "C"},
	}
	links := []Link{
		{ID: "l1", SourceID: "a", TargetID: "b"},
		{ID: "l2", SourceID: "c", TargetID: "a"},
	}

	outgoing, incoming := partitionLinks("a", links, blocks)
	if len(outgoing) != 1 || outgoing[0].Link.ID != "l1" || outgoing[0].Block.ID != "b" {
		t.Fatalf("unexpected outgoing set: %#v", outgoing)
	}
	if len(incoming) != 1 || incoming[0].Link.ID != "l2" || incoming[0].Block.ID != "c" {
		t.Fatalf("unexpected incoming set: %#v", incoming)
	}
}

func TestPartitionLinksDropsUnresolvableFarEnd(t *testing.T) {
	links := []Link{
		{ID: "l1", SourceID: "a", TargetID: "gone"},
		{ID: "l2", SourceID: "a", TargetID: "b"},
	}
	blocks := map[string]Block{"b": {ID: "b"}}

	outgoing, incoming := partitionLinks("a", links, blocks)
	if len(outgoing) != 1 || outgoing[0].Link.ID != "l2" {
		t.Fatalf("expected the dangling edge to be dropped, got %#v", outgoing)
	}
	if len(incoming) != 0 {
		t.Fatalf("expected no incoming edges, got %#v", incoming)
	}
}

func TestAssembleThreadsNestsReplies(t *testing.T) {
	base := time.Unix(1750000000, 0).UTC()
	comments := []Comment{
		{ID: "c1", BlockID: "a", Content: "root", CreatedAt: base},
		{ID: "c2", BlockID: "a", Content: "reply", ParentID: strPtr("c1"), CreatedAt: base.Add(time.Second)},
		{ID: "c3", BlockID: "a", Content: "second root", CreatedAt: base.Add(2 * time.Second)},
	}

	roots := assembleThreads(comments)
	if len(roots) != 2 {
		t.Fatalf("expected 2 roots, got %d", len(roots))
	}
	if roots[0].ID != "c1" || roots[1].ID != "c3" {
		t.Fatalf("unexpected root order: %s, %s", roots[0].ID, roots[1].ID)
	}
	if len(roots[0].Replies) != 1 || roots[0].Replies[0].ID != "c2" {
		t.Fatalf("expected c2 nested under c1, got %#v", roots[0].Replies)
	}
	if len(roots[0].Replies[0].Replies) != 0 {
		t.Fatalf("expected leaf reply list to be empty")
	}
}

func TestAssembleThreadsTreatsUnknownParentAsRoot(t *testing.T) {
	base := time.Unix(1750000000, 0).UTC()
	comments := []Comment{
		{ID: "c1", BlockID: "a", Content: "orphan", ParentID: strPtr("missing"), CreatedAt: base},
	}

	roots := assembleThreads(comments)
	if len(roots) != 1 || roots[0].ID != "c1" {
		t.Fatalf("expected orphan to surface as root, got %#v", roots)
	}
}

func TestAssembleThreadsCountsEveryCommentOnce(t *testing.T) {
	base := time.Unix(1750000000, 0).UTC()
	comments := []Comment{
		{ID: "c1", CreatedAt: base},
		{ID: "c2", ParentID: strPtr("c1"), CreatedAt: base.Add(time.Second)},
		{ID: "c3", ParentID: strPtr("c2"), CreatedAt: base.Add(2 * time.Second)},
		{ID: "c4", ParentID: strPtr("c1"), CreatedAt: base.Add(3 * time.Second)},
		{ID: "c5", CreatedAt: base.Add(4 * time.Second)},
	}

	roots := assembleThreads(comments)
	if total := countThread(roots); total != len(comments) {
		t.Fatalf("expected %d comments across all depths, got %d", len(comments), total)
	}
	if roots[0].Replies[0].ID != "c2" || roots[0].Replies[1].ID != "c4" {
		t.Fatalf("expected replies in creation order, got %#v", roots[0].Replies)
	}
	if roots[0].Replies[0].Replies[0].ID != "c3" {
		t.Fatalf("expected c3 nested under c2")
	}
}

func countThread(threads []*CommentThread) int {
	total := 0
	for _, thread := range threads {
		total += 1 + countThread(thread.Replies)
	}
	return total
}
