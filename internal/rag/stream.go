package rag

import (
	"sync"

	"github.com/HardikTIET/MUJ-RAGBOT/internal/models"
	"github.com/HardikTIET/MUJ-RAGBOT/internal/providers"
)

type State string

const (
	StateReceived   State = "received"
	StateEmbedding  State = "embedding"
	StateRetrieving State = "retrieving"
	StatePrompting  State = "prompting"
	StateGenerating State = "generating"
	StateComplete   State = "complete"
	StateFailed     State = "failed"
)

// Stream is one in-flight answer. Fragments arrive on the channel in order;
// once it closes, Text, Sources, Err and State hold the final outcome.
type Stream struct {
	fragments chan string

	mu       sync.RWMutex
	state    State
	text     string
	sources  []models.RetrievedChunk
	provider providers.ProviderInfo
	err      error
}

func newStream() *Stream {
	return &Stream{
		fragments: make(chan string, 16),
		state:     StateReceived,
	}
}

// Fragments yields answer text pieces as the model produces them. The
// channel is closed when the answer completes or fails.
func (s *Stream) Fragments() <-chan string {
	return s.fragments
}

func (s *Stream) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Text is the full accumulated answer. Stable once Fragments is closed.
func (s *Stream) Text() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.text
}

// Sources lists the chunks the answer was grounded on, in retrieval order.
func (s *Stream) Sources() []models.RetrievedChunk {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sources
}

func (s *Stream) Provider() providers.ProviderInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.provider
}

func (s *Stream) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

func (s *Stream) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func (s *Stream) setSources(chunks []models.RetrievedChunk) {
	s.mu.Lock()
	s.sources = chunks
	s.mu.Unlock()
}

func (s *Stream) appendText(fragment string) {
	s.mu.Lock()
	s.text += fragment
	s.mu.Unlock()
}

func (s *Stream) complete(info providers.ProviderInfo) {
	s.mu.Lock()
	s.state = StateComplete
	s.provider = info
	s.mu.Unlock()
	close(s.fragments)
}

func (s *Stream) fail(err error) {
	s.mu.Lock()
	s.state = StateFailed
	s.err = err
	s.mu.Unlock()
	close(s.fragments)
}
