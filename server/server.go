package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/xhad/prove/internal/models"
	"github.com/xhad/prove/internal/types"
	"github.com/xhad/prove/pkg/llm"
	"github.com/xhad/prove/pkg/pipeline"
	"github.com/xhad/prove/pkg/sources"
	"github.com/xhad/prove/pkg/store"
	"github.com/xhad/prove/pkg/throttle"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Be careful with this in production
	},
}

type Message struct {
	Type    string      `json:"type"`
	Content string      `json:"content"`
	Page    int         `json:"page,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// wsConn serializes writes to a single websocket connection. Handlers run in
// their own goroutines and the connection allows only one concurrent writer.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsConn) writeJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

type Config struct {
	BaseURL          string
	DBUrl            string
	Model            string
	EmbedModel       string
	VectorDim        int
	TableName        string
	PageSize         int
	RateLimit        int
	RateWindowMillis int
	ResultsPerSource int
	TimeoutSeconds   int
	MaxTokens        int
	Temperature      float64
	MatchThreshold   float32
	MatchCount       int
}

// WSServer exposes the ingestion pipeline and both query modes over a
// websocket, leaving rendering to the client.
type WSServer struct {
	config     Config
	pipeline   *pipeline.Pipeline
	chatEngine *llm.ChatEngine
	embedder   *llm.Embedder
	studyStore *store.StudyStore
}

func NewWSServer(config Config) (*WSServer, error) {
	if config.PageSize == 0 {
		config.PageSize = 10
	}
	if config.ResultsPerSource == 0 {
		config.ResultsPerSource = 5
	}
	if config.Temperature == 0 {
		config.Temperature = 0.7
	}

	chatEngine, err := llm.NewWithConfig(llm.ChatConfig{
		Model:       config.Model,
		MaxTokens:   config.MaxTokens,
		BaseURL:     config.BaseURL,
		Temperature: config.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize chat engine: %v", err)
	}

	embedder, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{
		Model:   config.EmbedModel,
		BaseURL: config.BaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %v", err)
	}

	studyStore, err := store.NewWithConfig(store.StudyStoreConfig{
		ConnString:      config.DBUrl,
		TableName:       config.TableName,
		VectorDim:       config.VectorDim,
		PageSize:        config.PageSize,
		SearchLimit:     config.MatchCount,
		SearchThreshold: config.MatchThreshold,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize study store: %v", err)
	}

	limiter := throttle.NewWithConfig(throttle.ThrottleConfig{
		Limit:    config.RateLimit,
		Interval: time.Duration(config.RateWindowMillis) * time.Millisecond,
	})
	timeout := time.Duration(config.TimeoutSeconds) * time.Second

	pipe, err := pipeline.NewWithConfig(pipeline.PipelineConfig{
		Sources: []types.Source{
			sources.NewArxivWithConfig(sources.ArxivConfig{
				Timeout: timeout,
				Limiter: limiter,
			}),
			sources.NewPubMedWithConfig(sources.PubMedConfig{
				Timeout: timeout,
				Limiter: limiter,
			}),
		},
		Embedder:  embedder,
		Store:     studyStore,
		PerSource: config.ResultsPerSource,
		PageSize:  config.PageSize,
	})
	if err != nil {
		studyStore.Close()
		return nil, fmt.Errorf("failed to initialize pipeline: %v", err)
	}

	return &WSServer{
		config:     config,
		pipeline:   pipe,
		chatEngine: chatEngine,
		embedder:   embedder,
		studyStore: studyStore,
	}, nil
}

func (s *WSServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	wc := &wsConn{conn: conn}
	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			log.Printf("Error reading message: %v", err)
			break
		}

		go s.handleMessage(wc, msg)
	}
}

func (s *WSServer) handleMessage(conn *wsConn, msg Message) {
	ctx := context.Background()

	switch msg.Type {
	case "fetch":
		s.sendMessage(conn, "status", fmt.Sprintf("Fetching studies for: %s", msg.Content))
		page, err := s.pipeline.FetchAndStore(ctx, msg.Content, msg.Page)
		if err != nil {
			s.sendError(conn, err)
			return
		}
		s.sendData(conn, "studies", page)

	case "search":
		page, err := s.pipeline.QueryKeyword(ctx, msg.Content, msg.Page)
		if err != nil {
			s.sendError(conn, err)
			return
		}
		s.sendData(conn, "studies", page)

	case "analyze":
		s.handleAnalyze(conn, ctx, msg.Content)

	case "recent":
		studies, err := s.studyStore.Recent(ctx, s.config.PageSize)
		if err != nil {
			s.sendError(conn, err)
			return
		}
		s.sendData(conn, "studies", studies)

	default:
		s.sendMessage(conn, "error", fmt.Sprintf("Unknown message type: %s", msg.Type))
	}
}

func (s *WSServer) handleAnalyze(conn *wsConn, ctx context.Context, question string) {
	s.sendMessage(conn, "status", "Finding relevant studies...")

	embedding, err := s.embedder.EmbedQuery(ctx, question)
	if err != nil {
		s.sendError(conn, err)
		return
	}

	studies, err := s.pipeline.QuerySemantic(ctx, embedding,
		s.config.MatchThreshold, s.config.MatchCount)
	if err != nil {
		s.sendError(conn, err)
		return
	}
	if len(studies) == 0 {
		s.sendMessage(conn, "error", "No relevant studies found")
		return
	}

	s.sendMessage(conn, "status", "Building the argument...")
	answer, err := s.chatEngine.Analyze(question, studies)
	if err != nil {
		s.sendError(conn, err)
		return
	}

	s.sendData(conn, "answer", struct {
		Answer  string         `json:"answer"`
		Studies []models.Study `json:"studies"`
		Cited   []models.Study `json:"cited"`
	}{
		Answer:  answer,
		Studies: studies,
		Cited:   llm.MatchCitations(answer, studies),
	})
}

// sendError maps pipeline failure kinds onto client-facing messages.
func (s *WSServer) sendError(conn *wsConn, err error) {
	switch {
	case pipeline.IsValidation(err):
		s.sendMessage(conn, "error", fmt.Sprintf("Invalid request: %v", err))
	case pipeline.IsUpstream(err):
		s.sendMessage(conn, "error", "The literature sources are unavailable right now")
	case pipeline.IsStore(err):
		s.sendMessage(conn, "error", "The study database is unavailable right now")
	default:
		s.sendMessage(conn, "error", fmt.Sprintf("Error: %v", err))
	}
}

func (s *WSServer) sendMessage(conn *wsConn, msgType string, content string) {
	msg := Message{
		Type:    msgType,
		Content: content,
	}
	if err := conn.writeJSON(msg); err != nil {
		log.Printf("Error sending message: %v", err)
	}
}

func (s *WSServer) sendData(conn *wsConn, msgType string, data interface{}) {
	msg := Message{
		Type: msgType,
		Data: data,
	}
	if err := conn.writeJSON(msg); err != nil {
		log.Printf("Error sending message: %v", err)
	}
}

// Start blocks serving the websocket endpoint on addr.
func (s *WSServer) Start(addr string) error {
	http.HandleFunc("/ws", s.handleWebSocket)
	log.Printf("WebSocket server listening on %s", addr)
	return http.ListenAndServe(addr, nil)
}

// Close releases the server's store connections.
func (s *WSServer) Close() {
	s.studyStore.Close()
}
