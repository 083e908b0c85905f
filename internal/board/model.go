package board

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	maxTitleLength      = 500
	maxIdentifierLength = 190

	// DefaultBlockType is applied when a create request omits the type tag.
	DefaultBlockType = "text"
)

var (
	// ErrInvalidTitle indicates that a block title is empty or exceeds storage bounds.
	ErrInvalidTitle = errors.New("board: invalid block title")
	// ErrInvalidAuthor indicates that an author identifier is empty or exceeds storage bounds.
	ErrInvalidAuthor = errors.New("board: invalid author id")
	// ErrInvalidContent indicates that a comment body is empty.
	ErrInvalidContent = errors.New("board: invalid comment content")
	// ErrBlockNotFound indicates that a referenced block identifier is absent.
	ErrBlockNotFound = errors.New("board: block not found")
	// ErrLinkNotFound indicates that a referenced link identifier is absent.
	ErrLinkNotFound = errors.New("board: link not found")
	// ErrCommentNotFound indicates that a referenced comment identifier is absent.
	ErrCommentNotFound = errors.New("board: comment not found")
	// ErrAlreadyLinked indicates that the two blocks are connected in either direction.
	ErrAlreadyLinked = errors.New("board: blocks already linked")
)

// Position is a 2D canvas coordinate used for optional spatial layout.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Block is a titled content unit and the graph's node type.
type Block struct {
	ID         string    `gorm:"column:id;primaryKey;size:190;not null" json:"id"`
	Title      string    `gorm:"column:title;size:500;not null" json:"title"`
	Content    string    `gorm:"column:content;type:text;not null" json:"content"`
	Type       string    `gorm:"column:type;size:64;not null;default:text" json:"type"`
	Position   Position  `gorm:"column:position;serializer:json" json:"position"`
	Tags       []string  `gorm:"column:tags;serializer:json" json:"tags"`
	CreatedAt  time.Time `gorm:"column:created_at;not null;autoCreateTime:false" json:"createdAt"`
	UpdatedAt  time.Time `gorm:"column:updated_at;not null;autoUpdateTime:false" json:"updatedAt"`
	AuthorID   string    `gorm:"column:author_id;size:190;not null" json:"authorId"`
	AuthorName string    `gorm:"column:author_name;size:190;not null" json:"authorName"`
}

// TableName provides the explicit table binding for GORM.
func (Block) TableName() string {
	return "blocks"
}

// Link is a directed edge between two blocks. Storage is directed; duplicate
// detection at creation treats the endpoint pair as unordered.
type Link struct {
	ID        string    `gorm:"column:id;primaryKey;size:190;not null" json:"id"`
	SourceID  string    `gorm:"column:source_id;size:190;not null;index:idx_links_source" json:"sourceId"`
	TargetID  string    `gorm:"column:target_id;size:190;not null;index:idx_links_target" json:"targetId"`
	CreatedAt time.Time `gorm:"column:created_at;not null;autoCreateTime:false" json:"createdAt"`
}

// TableName provides the explicit table binding for GORM.
func (Link) TableName() string {
	return "links"
}

// Comment is a threaded annotation on a block. ParentID, when set, names
// another comment; a comment with no parent is a thread root.
type Comment struct {
	ID         string    `gorm:"column:id;primaryKey;size:190;not null" json:"id"`
	BlockID    string    `gorm:"column:block_id;size:190;not null;index:idx_comments_block" json:"blockId"`
	Content    string    `gorm:"column:content;type:text;not null" json:"content"`
	AuthorID   string    `gorm:"column:author_id;size:190;not null" json:"authorId"`
	AuthorName string    `gorm:"column:author_name;size:190;not null" json:"authorName"`
	ParentID   *string   `gorm:"column:parent_id;size:190" json:"parentId,omitempty"`
	CreatedAt  time.Time `gorm:"column:created_at;not null;autoCreateTime:false" json:"createdAt"`
}

// TableName provides the explicit table binding for GORM.
func (Comment) TableName() string {
	return "comments"
}

// LinkedBlock pairs a link with its resolved far-end block.
type LinkedBlock struct {
	Link  Link  `json:"link"`
	Block Block `json:"block"`
}

// BlockWithLinks is the read view of a block joined with its incident edges.
// Outgoing and incoming are kept separate even though link creation treats the
// pair as unordered.
type BlockWithLinks struct {
	Block
	Outgoing  []LinkedBlock `json:"outgoing"`
	Incoming  []LinkedBlock `json:"incoming"`
	LinkCount int           `json:"linkCount"`
}

// CommentThread is a comment with its replies in creation-time order.
type CommentThread struct {
	Comment
	Replies []*CommentThread `json:"replies"`
}

// GraphData is the whole-graph snapshot used for visualization.
type GraphData struct {
	Nodes []Block `json:"nodes"`
	Edges []Link  `json:"edges"`
}

func normalizeTitle(rawInput string) (string, error) {
	trimmed := strings.TrimSpace(rawInput)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidTitle)
	}
	if len(trimmed) > maxTitleLength {
		return "", fmt.Errorf("%w: exceeds %d characters", ErrInvalidTitle, maxTitleLength)
	}
	return trimmed, nil
}

func normalizeAuthorID(rawInput string) (string, error) {
	trimmed := strings.TrimSpace(rawInput)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidAuthor)
	}
	if len(trimmed) > maxIdentifierLength {
		return "", fmt.Errorf("%w: exceeds %d characters", ErrInvalidAuthor, maxIdentifierLength)
	}
	return trimmed, nil
}

func normalizeBlockType(rawInput string) string {
	trimmed := strings.TrimSpace(rawInput)
	if trimmed == "" {
		return DefaultBlockType
	}
	return trimmed
}

func normalizeTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	normalized := make([]string, 0, len(tags))
	for _, tag := range tags {
		trimmed := strings.TrimSpace(tag)
		if trimmed == "" {
			continue
		}
		normalized = append(normalized, trimmed)
	}
	return normalized
}
