package tryon

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// SessionConfig wires one try-on session together.
type SessionConfig struct {
	SurfaceWidth  int
	SurfaceHeight int
	Source        ImageSource
	StoreOptions  StoreOptions

	// from the device capability detector
	HighQuality     bool
	RealTimePreview bool
	RenderDebounce  time.Duration

	CountdownTicks int
	TickInterval   time.Duration
}

// Session is one user's active try-on: the layer store, compositor, render
// loop, interaction controller, and capturer. One outfit is active per
// session.
type Session struct {
	ID        string
	CreatedAt time.Time

	Store      *LayerStore
	Engine     *Compositor
	Loop       *RenderLoop
	Controller *Controller
	Capturer   *Capturer
}

// NewSession assembles a session. The store drives the render loop through a
// change subscription: transform events take the debounced path, everything
// else renders immediately.
func NewSession(cfg SessionConfig) *Session {
	store := NewLayerStore(cfg.StoreOptions)
	engine := NewCompositor(cfg.SurfaceWidth, cfg.SurfaceHeight, cfg.Source)
	engine.SetHighQuality(cfg.HighQuality)

	loop := NewRenderLoop(func() {
		engine.Render(store.Snapshot())
	}, cfg.RenderDebounce, cfg.RealTimePreview)

	store.Subscribe(func(ev Event) {
		if ev.Kind == EventTransform {
			loop.RequestDebounced()
		} else {
			loop.Request()
		}
	})

	return &Session{
		ID:         uuid.NewString(),
		CreatedAt:  time.Now(),
		Store:      store,
		Engine:     engine,
		Loop:       loop,
		Controller: NewController(store, loop, cfg.SurfaceWidth, cfg.SurfaceHeight),
		Capturer:   NewCapturer(cfg.CountdownTicks, cfg.TickInterval),
	}
}

// SessionManager tracks active sessions by id.
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewSessionManager() *SessionManager {
	return &SessionManager{sessions: make(map[string]*Session)}
}

func (m *SessionManager) Add(s *Session) {
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
}

func (m *SessionManager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

func (m *SessionManager) Remove(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}
