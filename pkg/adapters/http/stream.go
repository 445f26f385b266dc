package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/aretw0/stepgraph/internal/logging"
	"github.com/aretw0/stepgraph/pkg/domain"
)

// allGraphs is the subscription key of clients that did not filter by graph.
const allGraphs = "*"

// StreamManager fans engine events out to SSE subscribers, keyed by graph id.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan<- string]struct{}
	logger      *slog.Logger
}

// NewStreamManager creates an empty StreamManager. A nil logger discards.
func NewStreamManager(logger *slog.Logger) *StreamManager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &StreamManager{
		subscribers: make(map[string]map[chan<- string]struct{}),
		logger:      logger,
	}
}

// Subscribe registers a channel for events of graphID ("" means every graph).
// The returned func unsubscribes and closes the channel.
func (sm *StreamManager) Subscribe(graphID string) (<-chan string, func()) {
	if graphID == "" {
		graphID = allGraphs
	}
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 32)
	if _, ok := sm.subscribers[graphID]; !ok {
		sm.subscribers[graphID] = make(map[chan<- string]struct{})
	}
	sm.subscribers[graphID][ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			sm.mu.Lock()
			defer sm.mu.Unlock()
			if subs, ok := sm.subscribers[graphID]; ok {
				delete(subs, ch)
				if len(subs) == 0 {
					delete(sm.subscribers, graphID)
				}
			}
			close(ch)
		})
	}
}

// Subscribers returns the number of open subscriptions.
func (sm *StreamManager) Subscribers() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	n := 0
	for _, subs := range sm.subscribers {
		n += len(subs)
	}
	return n
}

// Broadcast sends msg to subscribers of graphID and to unfiltered ones.
// Slow clients drop messages rather than block the engine.
func (sm *StreamManager) Broadcast(graphID string, msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for _, key := range []string{graphID, allGraphs} {
		for ch := range sm.subscribers[key] {
			select {
			case ch <- msg:
			default:
				sm.logger.Warn("SSE: client buffer full, dropping message", "graph_id", graphID)
			}
		}
	}
}

// Hooks returns lifecycle hooks that broadcast every engine event as JSON.
func (sm *StreamManager) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnRunStart: func(_ context.Context, e *domain.RunEvent) {
			sm.publish(e.GraphID, e)
		},
		OnRunEnd: func(_ context.Context, e *domain.RunEvent) {
			sm.publish(e.GraphID, e)
		},
		OnNodeEnter: func(_ context.Context, e *domain.NodeEvent) {
			sm.publish(e.GraphID, e)
		},
		OnNodeLeave: func(_ context.Context, e *domain.NodeEvent) {
			sm.publish(e.GraphID, e)
		},
		OnToolReturn: func(_ context.Context, e *domain.ToolEvent) {
			sm.publish(e.GraphID, e)
		},
	}
}

func (sm *StreamManager) publish(graphID string, event any) {
	data, err := json.Marshal(event)
	if err != nil {
		sm.logger.Error("SSE: failed to encode event", "err", err)
		return
	}
	sm.Broadcast(graphID, string(data))
}

// SubscribeEvents handles GET /events?graph_id=... (SSE).
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	graphID := r.URL.Query().Get("graph_id")
	ch, cancel := s.Streams.Subscribe(graphID)
	defer cancel()
	s.logger.Info("SSE: client subscribed", "graph_id", graphID)

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE: client disconnected", "graph_id", graphID)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}
