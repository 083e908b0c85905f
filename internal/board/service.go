package board

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

var (
	errMissingStore      = errors.New("record store is required")
	errMissingIDProvider = errors.New("id provider is required")
	noOpLogger           = zap.NewNop()
)

// ServiceError wraps a failure with a dot-separated operation code.
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

// Code returns the operation code, e.g. "board.create_link.already_linked".
func (e *ServiceError) Code() string {
	return e.code
}

const (
	opServiceNew    = "board.service.new"
	opCreateBlock   = "board.create_block"
	opUpdateBlock   = "board.update_block"
	opDeleteBlock   = "board.delete_block"
	opGetBlock      = "board.get_block"
	opListBlocks    = "board.list_blocks"
	opSearchBlocks  = "board.search_blocks"
	opBlockLinks    = "board.block_with_links"
	opGraphData     = "board.graph_data"
	opCreateLink    = "board.create_link"
	opDeleteLink    = "board.delete_link"
	opCreateComment = "board.create_comment"
	opDeleteComment = "board.delete_comment"
	opBlockComments = "board.block_comments"
)

func newServiceError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}

// IDProvider issues unique identifiers for new records.
type IDProvider interface {
	NewID() (string, error)
}

// ServiceConfig carries the gateway's dependencies. Store and IDProvider are
// required; Clock defaults to time.Now, Logger to a no-op logger, and
// Publisher to a sink that drops events.
type ServiceConfig struct {
	Store      *Store
	Clock      func() time.Time
	IDProvider IDProvider
	Logger     *zap.Logger
	Publisher  Publisher
}

// Service is the mutation gateway: it validates cross-entity invariants,
// drives the record store, and publishes one event per successful mutation.
// Reads and failed mutations publish nothing.
type Service struct {
	store      *Store
	clock      func() time.Time
	idProvider IDProvider
	logger     *zap.Logger
	publisher  Publisher
}

// NewService validates the configuration and constructs a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, newServiceError(opServiceNew, "missing_store", errMissingStore)
	}
	if cfg.IDProvider == nil {
		return nil, newServiceError(opServiceNew, "missing_id_provider", errMissingIDProvider)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	publisher := cfg.Publisher
	if publisher == nil {
		publisher = nopPublisher{}
	}

	return &Service{
		store:      cfg.Store,
		clock:      clock,
		idProvider: cfg.IDProvider,
		logger:     logger,
		publisher:  publisher,
	}, nil
}

// CreateBlockInput carries the caller-supplied fields for a new block.
type CreateBlockInput struct {
	Title      string
	Content    string
	Type       string
	Position   Position
	Tags       []string
	AuthorID   string
	AuthorName string
}

// CreateBlock assigns an identifier and both timestamps, inserts the block,
// and broadcasts block_created.
func (s *Service) CreateBlock(ctx context.Context, input CreateBlockInput) (Block, error) {
	title, err := normalizeTitle(input.Title)
	if err != nil {
		return Block{}, newServiceError(opCreateBlock, "invalid_title", err)
	}
	authorID, err := normalizeAuthorID(input.AuthorID)
	if err != nil {
		return Block{}, newServiceError(opCreateBlock, "invalid_author", err)
	}

	id, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opCreateBlock, "id_generation_failed", err)
		return Block{}, newServiceError(opCreateBlock, "id_generation_failed", err)
	}

	now := s.clock().UTC()
	block := Block{
		ID:         id,
		Title:      title,
		Content:    input.Content,
		Type:       normalizeBlockType(input.Type),
		Position:   input.Position,
		Tags:       normalizeTags(input.Tags),
		CreatedAt:  now,
		UpdatedAt:  now,
		AuthorID:   authorID,
		AuthorName: input.AuthorName,
	}
	if err := s.store.CreateBlock(ctx, block); err != nil {
		s.logError(opCreateBlock, "insert_failed", err, zap.String("block_id", id))
		return Block{}, newServiceError(opCreateBlock, "insert_failed", err)
	}

	s.publisher.Publish(blockCreatedEvent(block))
	return block, nil
}

// UpdateBlockInput carries a partial update; nil fields are left untouched.
type UpdateBlockInput struct {
	Title    *string
	Content  *string
	Type     *string
	Position *Position
	Tags     *[]string
}

// UpdateBlock merges the partial fields onto the stored block, refreshes
// updatedAt (never createdAt), and broadcasts block_updated.
func (s *Service) UpdateBlock(ctx context.Context, id string, input UpdateBlockInput) (Block, error) {
	block, err := s.store.GetBlock(ctx, id)
	if err != nil {
		if errors.Is(err, ErrBlockNotFound) {
			return Block{}, newServiceError(opUpdateBlock, "not_found", err)
		}
		s.logError(opUpdateBlock, "load_failed", err, zap.String("block_id", id))
		return Block{}, newServiceError(opUpdateBlock, "load_failed", err)
	}

	if input.Title != nil {
		title, err := normalizeTitle(*input.Title)
		if err != nil {
			return Block{}, newServiceError(opUpdateBlock, "invalid_title", err)
		}
		block.Title = title
	}
	if input.Content != nil {
		block.Content = *input.Content
	}
	if input.Type != nil {
		block.Type = normalizeBlockType(*input.Type)
	}
	if input.Position != nil {
		block.Position = *input.Position
	}
	if input.Tags != nil {
		block.Tags = normalizeTags(*input.Tags)
	}
	block.UpdatedAt = s.clock().UTC()

	if err := s.store.SaveBlock(ctx, block); err != nil {
		s.logError(opUpdateBlock, "save_failed", err, zap.String("block_id", id))
		return Block{}, newServiceError(opUpdateBlock, "save_failed", err)
	}

	s.publisher.Publish(blockUpdatedEvent(block))
	return block, nil
}

// DeleteBlock removes the block, cascading to its links and comments, and
// broadcasts block_deleted.
func (s *Service) DeleteBlock(ctx context.Context, id string) error {
	removed, err := s.store.DeleteBlock(ctx, id)
	if err != nil {
		s.logError(opDeleteBlock, "delete_failed", err, zap.String("block_id", id))
		return newServiceError(opDeleteBlock, "delete_failed", err)
	}
	if !removed {
		return newServiceError(opDeleteBlock, "not_found", ErrBlockNotFound)
	}

	s.publisher.Publish(blockDeletedEvent(id))
	return nil
}

// GetBlock returns the block or ErrBlockNotFound.
func (s *Service) GetBlock(ctx context.Context, id string) (Block, error) {
	block, err := s.store.GetBlock(ctx, id)
	if err != nil {
		if errors.Is(err, ErrBlockNotFound) {
			return Block{}, newServiceError(opGetBlock, "not_found", err)
		}
		s.logError(opGetBlock, "load_failed", err, zap.String("block_id", id))
		return Block{}, newServiceError(opGetBlock, "load_failed", err)
	}
	return block, nil
}

// ListBlocks returns every block in insertion order.
func (s *Service) ListBlocks(ctx context.Context) ([]Block, error) {
	blocks, err := s.store.ListBlocks(ctx)
	if err != nil {
		s.logError(opListBlocks, "query_failed", err)
		return nil, newServiceError(opListBlocks, "query_failed", err)
	}
	return blocks, nil
}

// SearchBlocks returns blocks matching the query substring.
func (s *Service) SearchBlocks(ctx context.Context, query string) ([]Block, error) {
	blocks, err := s.store.SearchBlocks(ctx, query)
	if err != nil {
		s.logError(opSearchBlocks, "query_failed", err)
		return nil, newServiceError(opSearchBlocks, "query_failed", err)
	}
	return blocks, nil
}

// GetBlockWithLinks joins the block with its resolved incident edges.
func (s *Service) GetBlockWithLinks(ctx context.Context, id string) (BlockWithLinks, error) {
	block, err := s.store.GetBlock(ctx, id)
	if err != nil {
		if errors.Is(err, ErrBlockNotFound) {
			return BlockWithLinks{}, newServiceError(opBlockLinks, "not_found", err)
		}
		s.logError(opBlockLinks, "load_failed", err, zap.String("block_id", id))
		return BlockWithLinks{}, newServiceError(opBlockLinks, "load_failed", err)
	}

	links, err := s.store.LinksForBlock(ctx, id)
	if err != nil {
		s.logError(opBlockLinks, "link_query_failed", err, zap.String("block_id", id))
		return BlockWithLinks{}, newServiceError(opBlockLinks, "link_query_failed", err)
	}

	farIDs := make([]string, 0, len(links))
	for _, link := range links {
		if link.SourceID == id {
			farIDs = append(farIDs, link.TargetID)
		} else {
			farIDs = append(farIDs, link.SourceID)
		}
	}
	farBlocks, err := s.store.BlocksByID(ctx, farIDs)
	if err != nil {
		s.logError(opBlockLinks, "block_resolve_failed", err, zap.String("block_id", id))
		return BlockWithLinks{}, newServiceError(opBlockLinks, "block_resolve_failed", err)
	}

	outgoing, incoming := partitionLinks(id, links, farBlocks)
	return BlockWithLinks{
		Block:     block,
		Outgoing:  outgoing,
		Incoming:  incoming,
		LinkCount: len(outgoing) + len(incoming),
	}, nil
}

// GetGraphData returns the full node and edge sets.
func (s *Service) GetGraphData(ctx context.Context) (GraphData, error) {
	blocks, err := s.store.ListBlocks(ctx)
	if err != nil {
		s.logError(opGraphData, "block_query_failed", err)
		return GraphData{}, newServiceError(opGraphData, "block_query_failed", err)
	}
	links, err := s.store.AllLinks(ctx)
	if err != nil {
		s.logError(opGraphData, "link_query_failed", err)
		return GraphData{}, newServiceError(opGraphData, "link_query_failed", err)
	}
	return GraphData{Nodes: blocks, Edges: links}, nil
}

// CreateLinkInput names the two endpoints of a new directed link.
type CreateLinkInput struct {
	SourceID string
	TargetID string
}

// CreateLink verifies both endpoints exist and that the pair is not already
// connected in either direction, then inserts the edge and broadcasts
// link_created. A duplicate surfaces as ErrAlreadyLinked with the link table
// unchanged.
func (s *Service) CreateLink(ctx context.Context, input CreateLinkInput) (Link, error) {
	if _, err := s.store.GetBlock(ctx, input.SourceID); err != nil {
		return Link{}, s.linkEndpointError(ctx, "source_missing", input.SourceID, err)
	}
	if _, err := s.store.GetBlock(ctx, input.TargetID); err != nil {
		return Link{}, s.linkEndpointError(ctx, "target_missing", input.TargetID, err)
	}

	existing, err := s.store.LinksBetween(ctx, input.SourceID, input.TargetID)
	if err != nil {
		s.logError(opCreateLink, "duplicate_check_failed", err)
		return Link{}, newServiceError(opCreateLink, "duplicate_check_failed", err)
	}
	if len(existing) > 0 {
		return Link{}, newServiceError(opCreateLink, "already_linked", ErrAlreadyLinked)
	}

	id, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opCreateLink, "id_generation_failed", err)
		return Link{}, newServiceError(opCreateLink, "id_generation_failed", err)
	}

	link := Link{
		ID:        id,
		SourceID:  input.SourceID,
		TargetID:  input.TargetID,
		CreatedAt: s.clock().UTC(),
	}
	if err := s.store.CreateLink(ctx, link); err != nil {
		s.logError(opCreateLink, "insert_failed", err, zap.String("link_id", id))
		return Link{}, newServiceError(opCreateLink, "insert_failed", err)
	}

	s.publisher.Publish(linkCreatedEvent(link))
	return link, nil
}

func (s *Service) linkEndpointError(_ context.Context, reason, blockID string, err error) error {
	if errors.Is(err, ErrBlockNotFound) {
		return newServiceError(opCreateLink, reason, err)
	}
	s.logError(opCreateLink, reason, err, zap.String("block_id", blockID))
	return newServiceError(opCreateLink, "endpoint_check_failed", err)
}

// DeleteLink removes the link and broadcasts link_deleted.
func (s *Service) DeleteLink(ctx context.Context, id string) error {
	removed, err := s.store.DeleteLink(ctx, id)
	if err != nil {
		s.logError(opDeleteLink, "delete_failed", err, zap.String("link_id", id))
		return newServiceError(opDeleteLink, "delete_failed", err)
	}
	if !removed {
		return newServiceError(opDeleteLink, "not_found", ErrLinkNotFound)
	}

	s.publisher.Publish(linkDeletedEvent(id))
	return nil
}

// CreateCommentInput carries the caller-supplied fields for a new comment.
type CreateCommentInput struct {
	BlockID    string
	Content    string
	AuthorID   string
	AuthorName string
	ParentID   *string
}

// CreateComment verifies the owning block exists, inserts the comment, and
// broadcasts comment_created. The parent identifier is stored without
// validation; thread assembly treats an unresolvable parent as a root.
func (s *Service) CreateComment(ctx context.Context, input CreateCommentInput) (Comment, error) {
	if input.Content == "" {
		return Comment{}, newServiceError(opCreateComment, "invalid_content", ErrInvalidContent)
	}
	authorID, err := normalizeAuthorID(input.AuthorID)
	if err != nil {
		return Comment{}, newServiceError(opCreateComment, "invalid_author", err)
	}
	if _, err := s.store.GetBlock(ctx, input.BlockID); err != nil {
		if errors.Is(err, ErrBlockNotFound) {
			return Comment{}, newServiceError(opCreateComment, "block_missing", err)
		}
		s.logError(opCreateComment, "block_check_failed", err, zap.String("block_id", input.BlockID))
		return Comment{}, newServiceError(opCreateComment, "block_check_failed", err)
	}

	id, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opCreateComment, "id_generation_failed", err)
		return Comment{}, newServiceError(opCreateComment, "id_generation_failed", err)
	}

	comment := Comment{
		ID:         id,
		BlockID:    input.BlockID,
		Content:    input.Content,
		AuthorID:   authorID,
		AuthorName: input.AuthorName,
		ParentID:   input.ParentID,
		CreatedAt:  s.clock().UTC(),
	}
	if err := s.store.CreateComment(ctx, comment); err != nil {
		s.logError(opCreateComment, "insert_failed", err, zap.String("comment_id", id))
		return Comment{}, newServiceError(opCreateComment, "insert_failed", err)
	}

	s.publisher.Publish(commentCreatedEvent(comment))
	return comment, nil
}

// DeleteComment removes the comment and broadcasts comment_deleted. Replies
// are not cascaded; they resurface as thread roots on the next assembly.
func (s *Service) DeleteComment(ctx context.Context, id string) error {
	removed, err := s.store.DeleteComment(ctx, id)
	if err != nil {
		s.logError(opDeleteComment, "delete_failed", err, zap.String("comment_id", id))
		return newServiceError(opDeleteComment, "delete_failed", err)
	}
	if !removed {
		return newServiceError(opDeleteComment, "not_found", ErrCommentNotFound)
	}

	s.publisher.Publish(commentDeletedEvent(id))
	return nil
}

// GetCommentsForBlock returns the block's comments assembled into threads.
func (s *Service) GetCommentsForBlock(ctx context.Context, blockID string) ([]*CommentThread, error) {
	if _, err := s.store.GetBlock(ctx, blockID); err != nil {
		if errors.Is(err, ErrBlockNotFound) {
			return nil, newServiceError(opBlockComments, "not_found", err)
		}
		s.logError(opBlockComments, "block_check_failed", err, zap.String("block_id", blockID))
		return nil, newServiceError(opBlockComments, "block_check_failed", err)
	}

	comments, err := s.store.CommentsForBlock(ctx, blockID)
	if err != nil {
		s.logError(opBlockComments, "query_failed", err, zap.String("block_id", blockID))
		return nil, newServiceError(opBlockComments, "query_failed", err)
	}
	return assembleThreads(comments), nil
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.logger.Error("board service error", attrs...)
}
