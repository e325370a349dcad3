// Package localsocket implements the local control protocol (spec §6.2): a
// line-delimited JSON request/response server over a UNIX-domain socket,
// plus a client for the CLI's one-shot `ctl` command.
package localsocket

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"time"

	"golang.org/x/time/rate"

	"github.com/mehroj-r/ym-bridge/internal/models"
)

const feedbackCooldown = 800 * time.Millisecond

// controller is the subset of facade.Facade the local control socket drives.
type controller interface {
	State() models.PlayerState
	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	PlayPause(ctx context.Context) error
	Next(ctx context.Context) error
	Previous(ctx context.Context) error
	LikeCurrent(ctx context.Context) error
	DislikeCurrent(ctx context.Context) error
	GetSeeds() models.SeedSet
	SetSeeds(ctx context.Context, seeds []string) error
}

type request struct {
	Action string   `json:"action"`
	Seeds  []string `json:"seeds"`
}

// Server listens on a UNIX-domain socket and dispatches one JSON-line
// request per connection to the façade.
type Server struct {
	ctrl       controller
	socketPath string
	feedback   *rate.Limiter

	listener net.Listener
}

// New builds a Server. Call Start to begin listening.
func New(ctrl controller, socketPath string) *Server {
	return &Server{
		ctrl:       ctrl,
		socketPath: socketPath,
		feedback:   rate.NewLimiter(rate.Every(feedbackCooldown), 1),
	}
}

// Start removes any stale socket file, listens, and begins accepting
// connections in a background goroutine.
func (s *Server) Start() error {
	_ = os.Remove(s.socketPath)

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("localsocket: listen: %w", err)
	}
	s.listener = listener

	go s.acceptLoop()
	return nil
}

// Stop closes the listener and removes the socket file.
func (s *Server) Stop() error {
	if s.listener == nil {
		return nil
	}
	err := s.listener.Close()
	_ = os.Remove(s.socketPath)
	return err
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			slog.Warn("localsocket: accept failed", "err", err)
			return
		}
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	reader := bufio.NewReader(conn)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return
	}

	var req request
	response := func() map[string]any {
		if err := json.Unmarshal([]byte(line), &req); err != nil {
			return map[string]any{"ok": false, "error": err.Error()}
		}
		return s.dispatch(context.Background(), req)
	}()

	encoded, err := json.Marshal(response)
	if err != nil {
		slog.Warn("localsocket: failed to encode response", "err", err)
		return
	}
	encoded = append(encoded, '\n')
	if _, err := conn.Write(encoded); err != nil {
		slog.Warn("localsocket: failed to write response", "err", err)
	}
}

func (s *Server) dispatch(ctx context.Context, req request) map[string]any {
	switch req.Action {
	case "status":
		return s.ok()
	case "play":
		return s.afterVerb(s.ctrl.Play(ctx))
	case "pause":
		return s.afterVerb(s.ctrl.Pause(ctx))
	case "play_pause":
		return s.afterVerb(s.ctrl.PlayPause(ctx))
	case "next":
		return s.afterVerb(s.ctrl.Next(ctx))
	case "previous":
		return s.afterVerb(s.ctrl.Previous(ctx))
	case "like":
		if !s.feedback.Allow() {
			return s.rateLimited()
		}
		return s.afterVerb(s.ctrl.LikeCurrent(ctx))
	case "dislike":
		if !s.feedback.Allow() {
			return s.rateLimited()
		}
		return s.afterVerb(s.ctrl.DislikeCurrent(ctx))
	case "get_vibe":
		return map[string]any{"ok": true, "seeds": []string(s.ctrl.GetSeeds())}
	case "set_vibe":
		if err := s.ctrl.SetSeeds(ctx, req.Seeds); err != nil {
			return map[string]any{"ok": false, "error": err.Error()}
		}
		return s.ok()
	default:
		return map[string]any{"ok": false, "error": "unknown action: " + req.Action}
	}
}

func (s *Server) afterVerb(err error) map[string]any {
	if err != nil {
		return map[string]any{"ok": false, "error": err.Error()}
	}
	return s.ok()
}

func (s *Server) rateLimited() map[string]any {
	resp := s.ok()
	resp["skipped"] = "rate_limited"
	return resp
}

func (s *Server) ok() map[string]any {
	return map[string]any{"ok": true, "state": s.statePayload()}
}

func (s *Server) statePayload() map[string]any {
	payload := statePayload(s.ctrl.State())
	payload["vibe"] = map[string]any{"seeds": []string(s.ctrl.GetSeeds())}
	return payload
}

func statePayload(state models.PlayerState) map[string]any {
	return map[string]any{
		"status":      string(state.Status),
		"position_us": state.PositionUS,
		"volume":      state.Volume,
		"track": map[string]any{
			"id":     state.Track.ID,
			"title":  state.Track.Title,
			"artist": state.Track.Artist,
			"album":  state.Track.Album,
			"liked":  state.Track.Liked,
		},
	}
}

// Send is the `ctl` client: it opens a single connection, sends one request
// line, reads one response line, and closes the connection.
func Send(ctx context.Context, socketPath, action string, seeds []string) (map[string]any, error) {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "unix", socketPath)
	if err != nil {
		return map[string]any{"ok": false, "error": "daemon socket not found"}, nil
	}
	defer conn.Close()

	encoded, err := json.Marshal(request{Action: action, Seeds: seeds})
	if err != nil {
		return nil, fmt.Errorf("localsocket: encode request: %w", err)
	}
	encoded = append(encoded, '\n')
	if _, err := conn.Write(encoded); err != nil {
		return nil, fmt.Errorf("localsocket: write request: %w", err)
	}

	reader := bufio.NewReader(conn)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return nil, fmt.Errorf("localsocket: read response: %w", err)
	}

	var response map[string]any
	if err := json.Unmarshal([]byte(line), &response); err != nil {
		return nil, fmt.Errorf("localsocket: decode response: %w", err)
	}
	return response, nil
}
