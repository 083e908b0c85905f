package integration_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/mosaicworks/blockboard/internal/board"
	"github.com/mosaicworks/blockboard/internal/database"
	"github.com/mosaicworks/blockboard/internal/server"
)

const jsonContentType = "application/json"

func startServer(testContext *testing.T) (*httptest.Server, *server.Hub) {
	testContext.Helper()
	gin.SetMode(gin.TestMode)

	databasePath := filepath.Join(testContext.TempDir(), "integration.db")
	db, err := database.OpenSQLite(databasePath, zap.NewNop())
	if err != nil {
		testContext.Fatalf("failed to open database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		testContext.Fatalf("failed to access sql handle: %v", err)
	}
	testContext.Cleanup(func() {
		_ = sqlDB.Close()
	})

	store, err := board.NewStore(db)
	if err != nil {
		testContext.Fatalf("failed to construct store: %v", err)
	}

	hub := server.NewHub(zap.NewNop())
	testContext.Cleanup(hub.Close)

	boardService, err := board.NewService(board.ServiceConfig{
		Store:      store,
		Clock:      time.Now,
		IDProvider: board.NewUUIDProvider(),
		Publisher:  hub,
	})
	if err != nil {
		testContext.Fatalf("failed to construct service: %v", err)
	}

	handler, err := server.NewHTTPHandler(server.Dependencies{
		BoardService: boardService,
		Hub:          hub,
		Logger:       zap.NewNop(),
	})
	if err != nil {
		testContext.Fatalf("failed to construct handler: %v", err)
	}

	testServer := httptest.NewServer(handler)
	testContext.Cleanup(testServer.Close)
	return testServer, hub
}

func postJSON(testContext *testing.T, baseURL, path string, body any) *http.Response {
	testContext.Helper()
	encoded, err := json.Marshal(body)
	if err != nil {
		testContext.Fatalf("failed to encode body: %v", err)
	}
	response, err := http.Post(baseURL+path, jsonContentType, bytes.NewReader(encoded))
	if err != nil {
		testContext.Fatalf("request failed: %v", err)
	}
	return response
}

func decodeInto(testContext *testing.T, response *http.Response, target any) {
	testContext.Helper()
	defer response.Body.Close()
	if err := json.NewDecoder(response.Body).Decode(target); err != nil {
		testContext.Fatalf("failed to decode response: %v", err)
	}
}

func TestBlockGraphFlow(testContext *testing.T) {
	testServer, hub := startServer(testContext)

	socketURL := "ws" + strings.TrimPrefix(testServer.URL, "http") + "/ws"
	socket, _, err := websocket.DefaultDialer.Dial(socketURL, nil)
	if err != nil {
		testContext.Fatalf("failed to dial websocket: %v", err)
	}
	testContext.Cleanup(func() {
		_ = socket.Close()
	})
	deadline := time.Now().Add(2 * time.Second)
	for hub.Clients() != 1 {
		if time.Now().After(deadline) {
			testContext.Fatal("websocket client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	var blockA, blockB board.Block
	response := postJSON(testContext, testServer.URL, "/api/blocks", map[string]any{
		"title": "A", "authorId": "user-1", "authorName": "Ada",
	})
	if response.StatusCode != http.StatusCreated {
		testContext.Fatalf("unexpected status %d", response.StatusCode)
	}
	decodeInto(testContext, response, &blockA)

	response = postJSON(testContext, testServer.URL, "/api/blocks", map[string]any{
		"title": "B", "authorId": "user-1", "authorName": "Ada",
	})
	decodeInto(testContext, response, &blockB)

	var link board.Link
	response = postJSON(testContext, testServer.URL, "/api/links", map[string]any{
		"sourceId": blockA.ID, "targetId": blockB.ID,
	})
	if response.StatusCode != http.StatusCreated {
		testContext.Fatalf("unexpected link status %d", response.StatusCode)
	}
	decodeInto(testContext, response, &link)

	// The reverse direction counts as the same relationship.
	response = postJSON(testContext, testServer.URL, "/api/links", map[string]any{
		"sourceId": blockB.ID, "targetId": blockA.ID,
	})
	if response.StatusCode != http.StatusConflict {
		testContext.Fatalf("expected 409 for reverse duplicate, got %d", response.StatusCode)
	}
	_ = response.Body.Close()

	response = postJSON(testContext, testServer.URL, "/api/comments", map[string]any{
		"blockId": blockA.ID, "content": "hello", "authorId": "user-2", "authorName": "Grace",
	})
	if response.StatusCode != http.StatusCreated {
		testContext.Fatalf("unexpected comment status %d", response.StatusCode)
	}
	_ = response.Body.Close()

	expectedKinds := []board.EventKind{
		board.EventBlockCreated,
		board.EventBlockCreated,
		board.EventLinkCreated,
		board.EventCommentCreated,
	}
	for _, expected := range expectedKinds {
		_ = socket.SetReadDeadline(time.Now().Add(3 * time.Second))
		_, payload, err := socket.ReadMessage()
		if err != nil {
			testContext.Fatalf("failed to read event: %v", err)
		}
		var envelope struct {
			Kind board.EventKind `json:"kind"`
		}
		if err := json.Unmarshal(payload, &envelope); err != nil {
			testContext.Fatalf("failed to decode event: %v", err)
		}
		if envelope.Kind != expected {
			testContext.Fatalf("expected event %s, got %s", expected, envelope.Kind)
		}
	}

	request, err := http.NewRequest(http.MethodDelete, testServer.URL+"/api/blocks/"+blockA.ID, http.NoBody)
	if err != nil {
		testContext.Fatalf("failed to construct delete request: %v", err)
	}
	response, err = http.DefaultClient.Do(request)
	if err != nil {
		testContext.Fatalf("delete request failed: %v", err)
	}
	if response.StatusCode != http.StatusNoContent {
		testContext.Fatalf("unexpected delete status %d", response.StatusCode)
	}
	_ = response.Body.Close()

	// The cascade removed the link, so B's view reports no edges.
	response, err = http.Get(testServer.URL + "/api/blocks/" + blockB.ID)
	if err != nil {
		testContext.Fatalf("get request failed: %v", err)
	}
	var view struct {
		LinkCount int `json:"linkCount"`
	}
	decodeInto(testContext, response, &view)
	if view.LinkCount != 0 {
		testContext.Fatalf("expected cascade to clear links, got count %d", view.LinkCount)
	}
}
