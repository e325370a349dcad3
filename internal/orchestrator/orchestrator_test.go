package orchestrator_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/mehroj-r/ym-bridge/internal/media"
	"github.com/mehroj-r/ym-bridge/internal/models"
	"github.com/mehroj-r/ym-bridge/internal/orchestrator"
)

// fakeTransport is an in-memory httpClient collaborator. Responses are
// queued per endpoint; every call is recorded for assertions.
type fakeTransport struct {
	mu        sync.Mutex
	responses map[string][]map[string]any
	errs      map[string]error
	requests  []fakeRequest
}

type fakeRequest struct {
	method, endpoint string
	body             any
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		responses: make(map[string][]map[string]any),
		errs:      make(map[string]error),
	}
}

func (f *fakeTransport) queue(endpoint string, resp map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[endpoint] = append(f.responses[endpoint], resp)
}

func (f *fakeTransport) failNext(endpoint string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[endpoint] = err
}

func (f *fakeTransport) countCalls(endpoint string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, r := range f.requests {
		if r.endpoint == endpoint {
			n++
		}
	}
	return n
}

func (f *fakeTransport) RequestJSON(_ context.Context, method, endpoint string, body any, _ map[string]string) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, fakeRequest{method: method, endpoint: endpoint, body: body})
	if err, ok := f.errs[endpoint]; ok {
		delete(f.errs, endpoint)
		return nil, err
	}
	queue := f.responses[endpoint]
	if len(queue) == 0 {
		return map[string]any{"result": map[string]any{}}, nil
	}
	resp := queue[0]
	f.responses[endpoint] = queue[1:]
	return resp, nil
}

func resultOf(payload map[string]any) map[string]any {
	if result, ok := payload["result"].(map[string]any); ok {
		return result
	}
	return payload
}

// fakeResolver resolves deterministically from the track id, so loaded URLs
// in tests are predictable.
type fakeResolver struct{}

func (fakeResolver) Resolve(_ context.Context, trackID string) (string, error) {
	return "https://stream.example/" + trackID, nil
}

// fakeMedia is an in-memory mediaEngine collaborator.
type fakeMedia struct {
	mu    sync.Mutex
	state media.State
	loads []string
}

func (f *fakeMedia) Load(_ context.Context, url string, paused bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads = append(f.loads, url)
	f.state.Pause = paused
	f.state.IdleActive = false
	f.state.TimePos = 0
	return nil
}
func (f *fakeMedia) Play(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state.Pause = false
	return nil
}
func (f *fakeMedia) Pause(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state.Pause = true
	return nil
}
func (f *fakeMedia) PlayPause(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state.Pause = !f.state.Pause
	return nil
}
func (f *fakeMedia) Stop(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state.IdleActive = true
	return nil
}
func (f *fakeMedia) SeekRelative(_ context.Context, offsetUS int64) error   { return nil }
func (f *fakeMedia) SeekAbsolute(_ context.Context, positionUS int64) error { return nil }
func (f *fakeMedia) SetVolume(_ context.Context, v float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state.Volume = v * 100
	return nil
}
func (f *fakeMedia) State(_ context.Context) (media.State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state, nil
}
func (f *fakeMedia) setIdleFinished(playedSeconds float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state.IdleActive = true
	f.state.TimePos = playedSeconds
}
func (f *fakeMedia) Close() error { return nil }

func rawTrack(id, title string) map[string]any {
	return map[string]any{
		"track": map[string]any{
			"id":         id,
			"title":      title,
			"durationMs": float64(200000),
			"artists":    []any{map[string]any{"name": "Someone"}},
			"albums":     []any{map[string]any{"id": "album-" + id, "title": "An Album"}},
		},
	}
}

func sampleSequence(ids ...string) []any {
	seq := make([]any, 0, len(ids))
	for _, id := range ids {
		seq = append(seq, rawTrack(id, "Track "+id))
	}
	return seq
}

const (
	endpointSessionNew    = "/rotor/session/new"
	endpointSessionTracks = "/rotor/session/{session_id}/tracks"
	endpointLikesAdd      = "/users/{user_id}/likes/tracks/actions/add"
	endpointLikesRemove   = "/users/{user_id}/likes/tracks/actions/remove"
	endpointAccountAbout  = "/account/about"
	endpointPlays         = "/plays"
)

func testConfig(tokenConfigured, autoplay bool) orchestrator.Config {
	return orchestrator.Config{
		OAuthTokenConfigured:       tokenConfigured,
		AutoplayOnStart:            autoplay,
		RotorSeeds:                 []string{"seed-1"},
		EndpointRotorSessionNew:    endpointSessionNew,
		EndpointRotorSessionTracks: endpointSessionTracks,
		EndpointLikesAdd:           endpointLikesAdd,
		EndpointLikesRemove:        endpointLikesRemove,
		EndpointAccountAbout:       endpointAccountAbout,
		EndpointPlays:              endpointPlays,
	}
}

func newHarness(t *testing.T, tokenConfigured, autoplay bool) (*orchestrator.Orchestrator, *fakeTransport, *fakeMedia) {
	t.Helper()
	transport := newFakeTransport()
	fm := &fakeMedia{}
	seeds, err := models.NewSeedSet([]string{"seed-1"})
	if err != nil {
		t.Fatalf("NewSeedSet: %v", err)
	}
	o := orchestrator.New(testConfig(tokenConfigured, autoplay), transport, fakeResolver{}, fm, resultOf, seeds)
	return o, transport, fm
}

func sessionResponse(sessionID, batchID string, ids ...string) map[string]any {
	return map[string]any{
		"result": map[string]any{
			"radioSessionId": sessionID,
			"batchId":        batchID,
			"wave":           map[string]any{"idForFrom": "abc123"},
			"sequence":       sampleSequence(ids...),
		},
	}
}

func TestFetchState_NoTokenReturnsPlaceholder(t *testing.T) {
	o, transport, _ := newHarness(t, false, false)
	state, err := o.FetchState(context.Background())
	if err != nil {
		t.Fatalf("FetchState: %v", err)
	}
	if state.Status != models.StatusPaused || state.Track.ID != "demo" {
		t.Fatalf("unexpected placeholder state: %+v", state)
	}
	if len(transport.requests) != 0 {
		t.Fatalf("expected no network calls without a configured token, got %d", len(transport.requests))
	}
}

func TestFetchState_OpensSessionWithAutoplayOff(t *testing.T) {
	o, transport, fm := newHarness(t, true, false)
	transport.queue(endpointSessionNew, sessionResponse("sess-1", "batch-1", "t1", "t2", "t3"))

	state, err := o.FetchState(context.Background())
	if err != nil {
		t.Fatalf("FetchState: %v", err)
	}
	if state.Status != models.StatusPaused {
		t.Fatalf("expected Paused with autoplay off, got %v", state.Status)
	}
	if state.Track.ID != "t1" {
		t.Fatalf("expected first sequence track loaded, got %q", state.Track.ID)
	}
	if len(fm.loads) != 1 || fm.loads[0] != "https://stream.example/t1" {
		t.Fatalf("unexpected loads: %v", fm.loads)
	}
}

func TestFetchState_EmptySequenceIsSessionEmptyError(t *testing.T) {
	o, transport, _ := newHarness(t, true, false)
	transport.queue(endpointSessionNew, map[string]any{
		"result": map[string]any{"radioSessionId": "sess-1", "sequence": []any{}},
	})

	_, err := o.FetchState(context.Background())
	if err == nil {
		t.Fatal("expected SessionEmptyError, got nil")
	}
	var appErr *orchestrator.AppError
	if !errors.As(err, &appErr) || appErr.Code != "SESSION_EMPTY" {
		t.Fatalf("expected SESSION_EMPTY, got %v", err)
	}
}

func TestFetchState_NaturalFinishAdvancesAndReportsOnce(t *testing.T) {
	o, transport, fm := newHarness(t, true, true)
	transport.queue(endpointSessionNew, sessionResponse("sess-1", "batch-1", "t1", "t2"))

	if _, err := o.FetchState(context.Background()); err != nil {
		t.Fatalf("initial FetchState: %v", err)
	}
	if len(fm.loads) != 1 || fm.loads[0] != "https://stream.example/t1" {
		t.Fatalf("expected t1 loaded with autoplay on, got %v", fm.loads)
	}

	fm.setIdleFinished(199.5)
	state, err := o.FetchState(context.Background())
	if err != nil {
		t.Fatalf("FetchState after finish: %v", err)
	}
	if state.Track.ID != "t2" {
		t.Fatalf("expected advance to t2, got %q", state.Track.ID)
	}
	if n := transport.countCalls(endpointPlays); n != 1 {
		t.Fatalf("expected exactly one play-finish report, got %d", n)
	}
	if n := transport.countCalls("/rotor/session/sess-1/tracks"); n != 1 {
		t.Fatalf("expected exactly one finish+start feedback call, got %d", n)
	}

	// A second poll with the subprocess no longer idle must not re-report.
	transport.queue(endpointPlays, map[string]any{"result": map[string]any{}})
	if _, err := o.FetchState(context.Background()); err != nil {
		t.Fatalf("FetchState steady-state: %v", err)
	}
	if n := transport.countCalls(endpointPlays); n != 1 {
		t.Fatalf("expected play-finish report to stay idempotent, got %d calls", n)
	}
}

func TestNext_SendsSkipFeedbackAndAdvances(t *testing.T) {
	o, transport, fm := newHarness(t, true, true)
	transport.queue(endpointSessionNew, sessionResponse("sess-1", "batch-1", "t1", "t2", "t3"))

	if _, err := o.FetchState(context.Background()); err != nil {
		t.Fatalf("FetchState: %v", err)
	}

	if err := o.Next(context.Background()); err != nil {
		t.Fatalf("Next: %v", err)
	}
	if len(fm.loads) != 2 || fm.loads[1] != "https://stream.example/t2" {
		t.Fatalf("expected t2 loaded after next, got %v", fm.loads)
	}
	if n := transport.countCalls("/rotor/session/sess-1/tracks"); n != 1 {
		t.Fatalf("expected one skip+start feedback call, got %d", n)
	}
}

func TestNext_OnEmptySessionOpensWithoutSkipFeedback(t *testing.T) {
	o, transport, _ := newHarness(t, true, true)
	transport.queue(endpointSessionNew, sessionResponse("sess-1", "batch-1", "t1", "t2"))

	if err := o.Next(context.Background()); err != nil {
		t.Fatalf("Next on empty session: %v", err)
	}
	if n := transport.countCalls(endpointSessionTracks); n != 0 {
		t.Fatalf("expected no skip feedback when opening session fresh, got %d calls", n)
	}
}

func TestLikeCurrent_PostsQueueRefAndSetsLiked(t *testing.T) {
	o, transport, _ := newHarness(t, true, true)
	transport.queue(endpointSessionNew, sessionResponse("sess-1", "batch-1", "t1", "t2"))
	transport.queue(endpointAccountAbout, map[string]any{"result": map[string]any{"uid": float64(555)}})

	if _, err := o.FetchState(context.Background()); err != nil {
		t.Fatalf("FetchState: %v", err)
	}
	if err := o.LikeCurrent(context.Background()); err != nil {
		t.Fatalf("LikeCurrent: %v", err)
	}

	const likesAddForUID = "/users/555/likes/tracks/actions/add"
	if n := transport.countCalls(likesAddForUID); n != 1 {
		t.Fatalf("expected one likes/add call, got %d", n)
	}
	// The like feedback is posted after likes/add, so find the likes/add
	// request by endpoint rather than taking the last one recorded.
	var req fakeRequest
	for _, r := range transport.requests {
		if r.endpoint == likesAddForUID {
			req = r
		}
	}
	body, ok := req.body.(map[string]any)
	if !ok {
		t.Fatalf("expected map body, got %T", req.body)
	}
	tracks, ok := body["tracks"].([]any)
	if !ok || len(tracks) != 1 {
		t.Fatalf("expected one track in likes payload, got %v", body)
	}
	entry := tracks[0].(map[string]any)
	if entry["trackId"] != "t1:album-t1" {
		t.Fatalf("expected queue-ref trackId, got %v", entry["trackId"])
	}
}

func TestLikeCurrent_MissingAccountUIDFails(t *testing.T) {
	o, transport, _ := newHarness(t, true, true)
	transport.queue(endpointSessionNew, sessionResponse("sess-1", "batch-1", "t1"))
	transport.queue(endpointAccountAbout, map[string]any{"result": map[string]any{}})

	if _, err := o.FetchState(context.Background()); err != nil {
		t.Fatalf("FetchState: %v", err)
	}
	err := o.LikeCurrent(context.Background())
	if !errors.Is(err, orchestrator.ErrAccountUIDMissing) {
		t.Fatalf("expected ErrAccountUIDMissing, got %v", err)
	}
}

func TestSetSeeds_ClearsSessionAndStopsMedia(t *testing.T) {
	o, transport, fm := newHarness(t, true, true)
	transport.queue(endpointSessionNew, sessionResponse("sess-1", "batch-1", "t1", "t2"))

	if _, err := o.FetchState(context.Background()); err != nil {
		t.Fatalf("FetchState: %v", err)
	}

	if err := o.SetSeeds(context.Background(), []string{"new-seed"}); err != nil {
		t.Fatalf("SetSeeds: %v", err)
	}
	if got := o.GetSeeds(); len(got) != 1 || got[0] != "new-seed" {
		t.Fatalf("expected replaced seed set, got %v", got)
	}

	state, err := fm.State(context.Background())
	if err != nil {
		t.Fatalf("media.State: %v", err)
	}
	if !state.IdleActive {
		t.Fatal("expected media to be stopped after seed change")
	}

	transport.queue(endpointSessionNew, sessionResponse("sess-2", "batch-2", "u1"))
	state2, err := o.FetchState(context.Background())
	if err != nil {
		t.Fatalf("FetchState after reseed: %v", err)
	}
	if state2.Track.ID != "u1" {
		t.Fatalf("expected new session's first track, got %q", state2.Track.ID)
	}
}

func TestSetSeeds_RejectsAllBlankSeeds(t *testing.T) {
	o, _, _ := newHarness(t, true, true)
	err := o.SetSeeds(context.Background(), []string{"  ", ""})
	var appErr *orchestrator.AppError
	if !errors.As(err, &appErr) || appErr.Code != "INVALID_SEEDS" {
		t.Fatalf("expected INVALID_SEEDS, got %v", err)
	}
}

func TestSetPosition_MismatchedTrackIsNoOp(t *testing.T) {
	o, transport, fm := newHarness(t, true, true)
	transport.queue(endpointSessionNew, sessionResponse("sess-1", "batch-1", "t1"))
	if _, err := o.FetchState(context.Background()); err != nil {
		t.Fatalf("FetchState: %v", err)
	}

	if err := o.SetPosition(context.Background(), "not-the-current-track", 5_000_000); err != nil {
		t.Fatalf("SetPosition mismatch should be a no-op, got err: %v", err)
	}
	_ = fm
}
