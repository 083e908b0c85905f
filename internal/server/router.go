package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mosaicworks/blockboard/internal/board"
)

var (
	errMissingBoardService = errors.New("board service dependency required")
	errMissingHub          = errors.New("hub dependency required")
)

// Dependencies carries the router's collaborators.
type Dependencies struct {
	BoardService *board.Service
	Hub          *Hub
	Logger       *zap.Logger
	CORSOrigins  []string
}

// NewHTTPHandler wires the REST and websocket surfaces onto a gin engine.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.BoardService == nil {
		return nil, errMissingBoardService
	}
	if deps.Hub == nil {
		return nil, errMissingHub
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	origins := deps.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))

	handler := &httpHandler{
		board:  deps.BoardService,
		hub:    deps.Hub,
		logger: logger,
	}

	router.GET("/healthz", handler.handleHealth)
	router.GET("/ws", handler.handleSocket)

	api := router.Group("/api")
	api.POST("/blocks", handler.handleCreateBlock)
	api.GET("/blocks", handler.handleListBlocks)
	api.GET("/blocks/search", handler.handleSearchBlocks)
	api.GET("/blocks/:id", handler.handleGetBlock)
	api.PATCH("/blocks/:id", handler.handleUpdateBlock)
	api.DELETE("/blocks/:id", handler.handleDeleteBlock)
	api.GET("/blocks/:id/comments", handler.handleBlockComments)
	api.POST("/links", handler.handleCreateLink)
	api.DELETE("/links/:id", handler.handleDeleteLink)
	api.POST("/comments", handler.handleCreateComment)
	api.DELETE("/comments/:id", handler.handleDeleteComment)
	api.GET("/graph", handler.handleGraph)

	return router, nil
}

type httpHandler struct {
	board  *board.Service
	hub    *Hub
	logger *zap.Logger
}

func (h *httpHandler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type createBlockRequest struct {
	Title      string          `json:"title" binding:"required"`
	Content    string          `json:"content"`
	Type       string          `json:"type"`
	Position   *board.Position `json:"position"`
	Tags       []string        `json:"tags"`
	AuthorID   string          `json:"authorId" binding:"required"`
	AuthorName string          `json:"authorName"`
}

func (h *httpHandler) handleCreateBlock(c *gin.Context) {
	var request createBlockRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	input := board.CreateBlockInput{
		Title:      request.Title,
		Content:    request.Content,
		Type:       request.Type,
		Tags:       request.Tags,
		AuthorID:   request.AuthorID,
		AuthorName: request.AuthorName,
	}
	if request.Position != nil {
		input.Position = *request.Position
	}

	block, err := h.board.CreateBlock(c.Request.Context(), input)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, block)
}

func (h *httpHandler) handleListBlocks(c *gin.Context) {
	blocks, err := h.board.ListBlocks(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, blocks)
}

func (h *httpHandler) handleSearchBlocks(c *gin.Context) {
	blocks, err := h.board.SearchBlocks(c.Request.Context(), c.Query("q"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, blocks)
}

func (h *httpHandler) handleGetBlock(c *gin.Context) {
	view, err := h.board.GetBlockWithLinks(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

type updateBlockRequest struct {
	Title    *string         `json:"title"`
	Content  *string         `json:"content"`
	Type     *string         `json:"type"`
	Position *board.Position `json:"position"`
	Tags     *[]string       `json:"tags"`
}

func (h *httpHandler) handleUpdateBlock(c *gin.Context) {
	var request updateBlockRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	block, err := h.board.UpdateBlock(c.Request.Context(), c.Param("id"), board.UpdateBlockInput{
		Title:    request.Title,
		Content:  request.Content,
		Type:     request.Type,
		Position: request.Position,
		Tags:     request.Tags,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, block)
}

func (h *httpHandler) handleDeleteBlock(c *gin.Context) {
	if err := h.board.DeleteBlock(c.Request.Context(), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleBlockComments(c *gin.Context) {
	threads, err := h.board.GetCommentsForBlock(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, threads)
}

type createLinkRequest struct {
	SourceID string `json:"sourceId" binding:"required"`
	TargetID string `json:"targetId" binding:"required"`
}

func (h *httpHandler) handleCreateLink(c *gin.Context) {
	var request createLinkRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	link, err := h.board.CreateLink(c.Request.Context(), board.CreateLinkInput{
		SourceID: request.SourceID,
		TargetID: request.TargetID,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, link)
}

func (h *httpHandler) handleDeleteLink(c *gin.Context) {
	if err := h.board.DeleteLink(c.Request.Context(), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type createCommentRequest struct {
	BlockID    string  `json:"blockId" binding:"required"`
	Content    string  `json:"content" binding:"required"`
	AuthorID   string  `json:"authorId" binding:"required"`
	AuthorName string  `json:"authorName"`
	ParentID   *string `json:"parentId"`
}

func (h *httpHandler) handleCreateComment(c *gin.Context) {
	var request createCommentRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	comment, err := h.board.CreateComment(c.Request.Context(), board.CreateCommentInput{
		BlockID:    request.BlockID,
		Content:    request.Content,
		AuthorID:   request.AuthorID,
		AuthorName: request.AuthorName,
		ParentID:   request.ParentID,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

func (h *httpHandler) handleDeleteComment(c *gin.Context) {
	if err := h.board.DeleteComment(c.Request.Context(), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleGraph(c *gin.Context) {
	graph, err := h.board.GetGraphData(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, graph)
}

// writeError maps the board error taxonomy onto HTTP statuses: validation to
// 400, absent identifiers to 404, duplicate links to 409, the rest to 500.
func (h *httpHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, board.ErrInvalidTitle),
		errors.Is(err, board.ErrInvalidAuthor),
		errors.Is(err, board.ErrInvalidContent):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
	case errors.Is(err, board.ErrBlockNotFound),
		errors.Is(err, board.ErrLinkNotFound),
		errors.Is(err, board.ErrCommentNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
	case errors.Is(err, board.ErrAlreadyLinked):
		c.JSON(http.StatusConflict, gin.H{"error": "already_linked"})
	default:
		h.logger.Error("request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
	}
}
