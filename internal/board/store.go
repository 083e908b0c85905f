package board

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
)

var errMissingDatabase = errors.New("database handle is required")

// Store owns the block, link, and comment tables. It performs direct table
// operations only; cross-entity invariants (endpoint existence, duplicate
// links) belong to the Service. All reads are point-in-time snapshots.
type Store struct {
	db *gorm.DB
}

// NewStore wraps an open database handle.
func NewStore(db *gorm.DB) (*Store, error) {
	if db == nil {
		return nil, errMissingDatabase
	}
	return &Store{db: db}, nil
}

// CreateBlock inserts a fully-populated block record.
func (s *Store) CreateBlock(ctx context.Context, block Block) error {
	return s.db.WithContext(ctx).Create(&block).Error
}

// GetBlock returns the block or ErrBlockNotFound.
func (s *Store) GetBlock(ctx context.Context, id string) (Block, error) {
	var block Block
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&block).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Block{}, ErrBlockNotFound
	}
	if err != nil {
		return Block{}, err
	}
	return block, nil
}

// ListBlocks returns every block in insertion order.
func (s *Store) ListBlocks(ctx context.Context) ([]Block, error) {
	var blocks []Block
	if err := s.db.WithContext(ctx).Order("created_at, id").Find(&blocks).Error; err != nil {
		return nil, err
	}
	return blocks, nil
}

// BlocksByID returns the subset of the requested blocks that exist, keyed by
// identifier. Absent identifiers are simply missing from the map.
func (s *Store) BlocksByID(ctx context.Context, ids []string) (map[string]Block, error) {
	resolved := make(map[string]Block, len(ids))
	if len(ids) == 0 {
		return resolved, nil
	}
	var blocks []Block
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&blocks).Error; err != nil {
		return nil, err
	}
	for _, block := range blocks {
		resolved[block.ID] = block
	}
	return resolved, nil
}

// SaveBlock persists an already-merged block record.
func (s *Store) SaveBlock(ctx context.Context, block Block) error {
	return s.db.WithContext(ctx).Save(&block).Error
}

// DeleteBlock removes the block together with every link touching it and every
// comment owned by it. The cascade runs in one transaction so a failure leaves
// all three tables untouched. Reports whether a block row was removed.
func (s *Store) DeleteBlock(ctx context.Context, id string) (bool, error) {
	removed := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("id = ?", id).Delete(&Block{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}
		removed = true
		if err := tx.Where("source_id = ? OR target_id = ?", id, id).Delete(&Link{}).Error; err != nil {
			return err
		}
		return tx.Where("block_id = ?", id).Delete(&Comment{}).Error
	})
	if err != nil {
		return false, err
	}
	return removed, nil
}

// SearchBlocks returns blocks whose title, content, or any tag contains the
// query, case-insensitively. An empty query matches everything. Results keep
// the table's insertion order; there is no relevance ranking.
func (s *Store) SearchBlocks(ctx context.Context, query string) ([]Block, error) {
	blocks, err := s.ListBlocks(ctx)
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return blocks, nil
	}
	matches := make([]Block, 0, len(blocks))
	for _, block := range blocks {
		if blockMatches(block, needle) {
			matches = append(matches, block)
		}
	}
	return matches, nil
}

func blockMatches(block Block, needle string) bool {
	if strings.Contains(strings.ToLower(block.Title), needle) {
		return true
	}
	if strings.Contains(strings.ToLower(block.Content), needle) {
		return true
	}
	for _, tag := range block.Tags {
		if strings.Contains(strings.ToLower(tag), needle) {
			return true
		}
	}
	return false
}

// CreateLink inserts a link record without endpoint or duplicate checks.
func (s *Store) CreateLink(ctx context.Context, link Link) error {
	return s.db.WithContext(ctx).Create(&link).Error
}

// DeleteLink removes the link and reports whether a row was removed.
func (s *Store) DeleteLink(ctx context.Context, id string) (bool, error) {
	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&Link{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// LinksBetween returns every link connecting the two blocks in either
// direction. The Service uses this for unordered duplicate detection.
func (s *Store) LinksBetween(ctx context.Context, a, b string) ([]Link, error) {
	var links []Link
	err := s.db.WithContext(ctx).
		Where("(source_id = ? AND target_id = ?) OR (source_id = ? AND target_id = ?)", a, b, b, a).
		Find(&links).Error
	if err != nil {
		return nil, err
	}
	return links, nil
}

// LinksForBlock returns every link whose source or target is the block.
func (s *Store) LinksForBlock(ctx context.Context, blockID string) ([]Link, error) {
	var links []Link
	err := s.db.WithContext(ctx).
		Where("source_id = ? OR target_id = ?", blockID, blockID).
		Order("created_at, id").
		Find(&links).Error
	if err != nil {
		return nil, err
	}
	return links, nil
}

// AllLinks returns the full edge set for the graph snapshot.
func (s *Store) AllLinks(ctx context.Context) ([]Link, error) {
	var links []Link
	if err := s.db.WithContext(ctx).Order("created_at, id").Find(&links).Error; err != nil {
		return nil, err
	}
	return links, nil
}

// CreateComment inserts a comment record. The parent identifier is stored as
// given; thread assembly degrades an unresolvable parent to a root.
func (s *Store) CreateComment(ctx context.Context, comment Comment) error {
	return s.db.WithContext(ctx).Create(&comment).Error
}

// DeleteComment removes the comment and reports whether a row was removed.
// Replies are left in place.
func (s *Store) DeleteComment(ctx context.Context, id string) (bool, error) {
	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&Comment{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// CommentsForBlock returns the block's comments in creation-time order.
func (s *Store) CommentsForBlock(ctx context.Context, blockID string) ([]Comment, error) {
	var comments []Comment
	err := s.db.WithContext(ctx).
		Where("block_id = ?", blockID).
		Order("created_at, id").
		Find(&comments).Error
	if err != nil {
		return nil, err
	}
	return comments, nil
}
