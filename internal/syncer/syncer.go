// Package syncer keeps a front-end's session in step with the session
// service.
//
// Every write is fire-and-forget: it runs in its own goroutine, failures
// are logged and counted but never reach the caller, and no write waits
// for another. When the service cannot start a session the synchronizer
// carries on under a local id and skips remote writes from then on.
package syncer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/HendryAvila/aluconfig/internal/engine"
	"github.com/HendryAvila/aluconfig/internal/logging"
	"github.com/HendryAvila/aluconfig/internal/session"
)

// timeNow is a package-level var to allow test injection.
var timeNow = time.Now

// Write operations, as reported to the Recorder.
const (
	OpStart           = "start_session"
	OpUpdateSelection = "update_selection"
	OpSaveUserData    = "save_user_data"
	OpAppendMessage   = "append_message"
)

// Recorder counts session writes. observability.Metrics implements it.
type Recorder interface {
	SessionWrite(op, status string)
}

// Option configures a Synchronizer.
type Option func(*Synchronizer)

// WithRecorder reports every write outcome to r.
func WithRecorder(r Recorder) Option {
	return func(s *Synchronizer) { s.recorder = r }
}

// WithPlatform sets the platform recorded on new sessions.
func WithPlatform(p string) Option {
	return func(s *Synchronizer) { s.platform = p }
}

// Synchronizer mirrors one session to a Remote.
type Synchronizer struct {
	remote   Remote
	logger   *slog.Logger
	recorder Recorder
	platform string

	mu      sync.RWMutex
	id      string
	offline bool

	wg sync.WaitGroup
}

// New creates a Synchronizer. A nil remote means offline from the start.
func New(remote Remote, logger *slog.Logger, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		remote:   remote,
		logger:   logging.Or(logger),
		platform: session.DefaultPlatform,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Start asks the remote for a new session. On any failure it falls back
// to a local id; the returned id is always usable.
func (s *Synchronizer) Start(ctx context.Context) string {
	if s.remote == nil {
		return s.goOffline(nil)
	}
	id, err := s.remote.StartSession(ctx, s.platform)
	if err != nil {
		s.record(OpStart, err)
		return s.goOffline(err)
	}
	s.record(OpStart, nil)

	s.mu.Lock()
	s.id, s.offline = id, false
	s.mu.Unlock()
	s.logger.Info("session started", "session_id", id)
	return id
}

// Resume attaches to an existing session id. Local ids stay offline.
func (s *Synchronizer) Resume(id string) {
	s.mu.Lock()
	s.id = id
	s.offline = s.remote == nil || session.IsLocalID(id)
	s.mu.Unlock()
}

func (s *Synchronizer) goOffline(cause error) string {
	id := session.NewLocalID()
	s.mu.Lock()
	s.id, s.offline = id, true
	s.mu.Unlock()
	if cause != nil {
		s.logger.Error("session start failed, continuing offline", "session_id", id, "error", cause)
	} else {
		s.logger.Warn("no session service configured, continuing offline", "session_id", id)
	}
	return id
}

// Fetch reads the current session back from the remote. It returns
// nil, nil when offline.
func (s *Synchronizer) Fetch(ctx context.Context) (*session.Session, error) {
	id := s.ID()
	if s.Offline() || id == "" {
		return nil, nil
	}
	return s.remote.Session(ctx, id)
}

// ID returns the current session id, or "" before Start/Resume.
func (s *Synchronizer) ID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.id
}

// Offline reports whether writes are skipped.
func (s *Synchronizer) Offline() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.offline
}

// UpdateSelection persists sel in the background.
func (s *Synchronizer) UpdateSelection(sel engine.Selections) {
	s.fire(OpUpdateSelection, func(ctx context.Context, r Remote, id string) error {
		return r.UpdateSelection(ctx, id, sel)
	})
}

// SaveUserData persists contact data in the background.
func (s *Synchronizer) SaveUserData(data session.UserData) {
	s.fire(OpSaveUserData, func(ctx context.Context, r Remote, id string) error {
		return r.SaveUserData(ctx, id, data)
	})
}

// AppendMessage records a transcript line in the background. Empty text
// is ignored.
func (s *Synchronizer) AppendMessage(role, text string) {
	if text == "" {
		return
	}
	msg := session.Message{
		Role:      role,
		Text:      text,
		Timestamp: timeNow().UTC().Format(time.RFC3339),
	}
	s.fire(OpAppendMessage, func(ctx context.Context, r Remote, id string) error {
		return r.AppendMessage(ctx, id, msg)
	})
}

// Wait blocks until every write issued so far has finished.
func (s *Synchronizer) Wait() {
	s.wg.Wait()
}

func (s *Synchronizer) fire(op string, call func(context.Context, Remote, string) error) {
	s.mu.RLock()
	id, offline := s.id, s.offline
	s.mu.RUnlock()
	if offline || id == "" || s.remote == nil {
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		err := call(context.Background(), s.remote, id)
		s.record(op, err)
		if err != nil {
			s.logger.Error("session write failed", "op", op, "session_id", id, "error", err)
		}
	}()
}

func (s *Synchronizer) record(op string, err error) {
	if s.recorder == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	s.recorder.SessionWrite(op, status)
}

// Watch streams snapshots of the current session pushed by the remote,
// logging every selection change. It returns nil when offline.
func (s *Synchronizer) Watch(ctx context.Context) (<-chan session.Session, error) {
	id := s.ID()
	if s.Offline() || id == "" {
		return nil, nil
	}
	in, err := s.remote.Watch(ctx, id)
	if err != nil {
		s.logger.Warn("session watch unavailable", "session_id", id, "error", err)
		return nil, err
	}

	out := make(chan session.Session, cap(in))
	go func() {
		defer close(out)
		var last engine.Selections
		for snap := range in {
			for _, c := range Diff(last, snap.Selection) {
				s.logger.Debug("selection changed", "session_id", id, "facet", c.Facet, "from", c.From, "to", c.To)
			}
			last = snap.Selection
			select {
			case out <- snap:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
