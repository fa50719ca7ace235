package syncer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/HendryAvila/aluconfig/internal/engine"
	"github.com/HendryAvila/aluconfig/internal/session"
	"github.com/gorilla/websocket"
)

// Remote is the session service as seen by a front-end.
type Remote interface {
	StartSession(ctx context.Context, platform string) (string, error)
	Session(ctx context.Context, id string) (*session.Session, error)
	UpdateSelection(ctx context.Context, id string, sel engine.Selections) error
	SaveUserData(ctx context.Context, id string, data session.UserData) error
	AppendMessage(ctx context.Context, id string, msg session.Message) error
	Watch(ctx context.Context, id string) (<-chan session.Session, error)
}

// StartResponse is the body of a successful start-session call.
type StartResponse struct {
	SessionID string `json:"sessionId"`
	DebugID   string `json:"debugId"`
	Debug     bool   `json:"debug"`
}

// ─── HTTP ────────────────────────────────────────────────────────────────────

// HTTPRemote talks to the session service over HTTP, and over a websocket
// for snapshots.
type HTTPRemote struct {
	baseURL string
	client  *http.Client
	dialer  *websocket.Dialer
}

// NewHTTPRemote creates a client for the service at baseURL.
func NewHTTPRemote(baseURL string, timeout time.Duration) *HTTPRemote {
	return &HTTPRemote{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		dialer:  &websocket.Dialer{HandshakeTimeout: timeout},
	}
}

// StartSession implements Remote.
func (r *HTTPRemote) StartSession(ctx context.Context, platform string) (string, error) {
	var resp StartResponse
	if err := r.do(ctx, http.MethodPost, "/api/session/start", map[string]string{"platform": platform}, &resp); err != nil {
		return "", err
	}
	if resp.SessionID == "" {
		return "", fmt.Errorf("syncer: start session: empty session id")
	}
	return resp.SessionID, nil
}

// Session implements Remote.
func (r *HTTPRemote) Session(ctx context.Context, id string) (*session.Session, error) {
	var sess session.Session
	if err := r.do(ctx, http.MethodGet, "/api/session/"+url.PathEscape(id), nil, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

// UpdateSelection implements Remote.
func (r *HTTPRemote) UpdateSelection(ctx context.Context, id string, sel engine.Selections) error {
	body := map[string]any{"selection": sel}
	return r.do(ctx, http.MethodPut, "/api/session/"+url.PathEscape(id)+"/product-choice", body, nil)
}

// SaveUserData implements Remote.
func (r *HTTPRemote) SaveUserData(ctx context.Context, id string, data session.UserData) error {
	body := map[string]any{"userData": data}
	return r.do(ctx, http.MethodPut, "/api/session/"+url.PathEscape(id)+"/user-data", body, nil)
}

// AppendMessage implements Remote.
func (r *HTTPRemote) AppendMessage(ctx context.Context, id string, msg session.Message) error {
	body := map[string]any{"message": map[string]string{
		"role":      msg.Role,
		"text":      msg.Text,
		"timestamp": msg.Timestamp,
	}}
	return r.do(ctx, http.MethodPost, "/api/session/"+url.PathEscape(id)+"/messages", body, nil)
}

// Watch dials the session's websocket and streams snapshots until ctx is
// done or the connection drops.
func (r *HTTPRemote) Watch(ctx context.Context, id string) (<-chan session.Session, error) {
	wsURL := r.baseURL + "/api/session/" + url.PathEscape(id) + "/watch"
	switch {
	case strings.HasPrefix(wsURL, "https://"):
		wsURL = "wss://" + strings.TrimPrefix(wsURL, "https://")
	case strings.HasPrefix(wsURL, "http://"):
		wsURL = "ws://" + strings.TrimPrefix(wsURL, "http://")
	}

	conn, resp, err := r.dialer.DialContext(ctx, wsURL, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("syncer: watch %s: %w", id, err)
	}

	out := make(chan session.Session, 8)
	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()
	go func() {
		defer close(out)
		for {
			var snap session.Session
			if err := conn.ReadJSON(&snap); err != nil {
				return
			}
			select {
			case out <- snap:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (r *HTTPRemote) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("syncer: encode %s: %w", path, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("syncer: build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("syncer: %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("syncer: %s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("syncer: decode %s: %w", path, err)
	}
	return nil
}

// ─── Local store ─────────────────────────────────────────────────────────────

// StoreRemote persists straight into a local session store, for
// front-ends running in the same process as the database.
type StoreRemote struct {
	store    *session.Store
	notifier session.Notifier
}

// NewStoreRemote wraps store. notifier may be nil, in which case Watch
// is unsupported.
func NewStoreRemote(store *session.Store, notifier session.Notifier) *StoreRemote {
	return &StoreRemote{store: store, notifier: notifier}
}

// StartSession implements Remote.
func (r *StoreRemote) StartSession(ctx context.Context, platform string) (string, error) {
	sess, err := r.store.Create(ctx, platform)
	if err != nil {
		return "", err
	}
	return sess.ID, nil
}

// Session implements Remote.
func (r *StoreRemote) Session(ctx context.Context, id string) (*session.Session, error) {
	return r.store.Get(ctx, id)
}

// UpdateSelection implements Remote.
func (r *StoreRemote) UpdateSelection(ctx context.Context, id string, sel engine.Selections) error {
	_, err := r.store.UpdateSelection(ctx, id, sel)
	return err
}

// SaveUserData implements Remote.
func (r *StoreRemote) SaveUserData(ctx context.Context, id string, data session.UserData) error {
	_, err := r.store.UpdateUserData(ctx, id, data)
	return err
}

// AppendMessage implements Remote.
func (r *StoreRemote) AppendMessage(ctx context.Context, id string, msg session.Message) error {
	_, err := r.store.AppendMessage(ctx, id, msg)
	return err
}

// Watch implements Remote.
func (r *StoreRemote) Watch(ctx context.Context, id string) (<-chan session.Session, error) {
	if r.notifier == nil {
		return nil, fmt.Errorf("syncer: watch not supported without a notifier")
	}
	return r.notifier.Subscribe(ctx, id)
}
