// Package orchestrator implements the Radio Session Orchestrator: the state
// machine that opens a personalized radio session, maintains the rolling
// track sequence, resolves stream URLs, drives the media subprocess, and
// emits feedback and play-report telemetry at the transitions the cloud
// service demands.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mehroj-r/ym-bridge/internal/media"
	"github.com/mehroj-r/ym-bridge/internal/models"
)

const defaultFeedbackFrom = "radio-mobile-user-onyourwave-default"

// httpClient is the subset of transport.Client the orchestrator depends on.
// Accepting an interface, rather than the concrete type, is what lets tests
// substitute a fake collaborator instead of standing up an httptest server.
type httpClient interface {
	RequestJSON(ctx context.Context, method, endpoint string, body any, extraParams map[string]string) (map[string]any, error)
}

// resultExtractor matches transport.Result's signature without importing
// the transport package into orchestrator's test-facing surface.
type resultExtractor func(payload map[string]any) map[string]any

// mediaEngine is the subset of media.Engine the orchestrator drives.
type mediaEngine interface {
	Load(ctx context.Context, url string, paused bool) error
	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	PlayPause(ctx context.Context) error
	Stop(ctx context.Context) error
	SeekRelative(ctx context.Context, offsetUS int64) error
	SeekAbsolute(ctx context.Context, positionUS int64) error
	SetVolume(ctx context.Context, v float64) error
	State(ctx context.Context) (media.State, error)
	Close() error
}

// resolver is the subset of stream.Resolver the orchestrator depends on.
type resolver interface {
	Resolve(ctx context.Context, trackID string) (string, error)
}

// Config carries the cloud endpoint templates and session defaults. Header
// and auth concerns live in transport.Config; this Config holds only what
// the orchestrator itself needs to template requests and gate network use.
type Config struct {
	OAuthTokenConfigured bool
	AutoplayOnStart      bool
	RotorSeeds           []string

	EndpointRotorSessionNew    string
	EndpointRotorSessionTracks string
	EndpointLikesAdd           string
	EndpointLikesRemove        string
	EndpointAccountAbout       string
	EndpointPlays              string
}

// ErrAccountUIDMissing is returned when /account/about does not carry a
// usable integer uid, which both like and dislike require.
var ErrAccountUIDMissing = errors.New("orchestrator: could not resolve account uid")

// ErrNoCurrentTrack is returned by verbs that need a current sequence item's
// track id when the session has none (an empty or malformed slot).
var ErrNoCurrentTrack = errors.New("orchestrator: current sequence item has no track id")

// Orchestrator is the single-writer radio session state machine described
// in spec §4.4. All exported verbs acquire mu for their full duration so
// that side effects (media + telemetry) are never interleaved with a
// concurrent verb or with the façade's poll loop.
type Orchestrator struct {
	cfg       Config
	transport httpClient
	resolve   resolver
	media     mediaEngine
	result    resultExtractor

	mu        sync.Mutex
	seeds     models.SeedSet
	session   models.RadioSession
	playCtx   models.PlayReportContext
	accountID *int
}

// New builds an Orchestrator. seeds must already satisfy
// models.NewSeedSet's non-empty invariant.
func New(cfg Config, transport httpClient, resolve resolver, engine mediaEngine, result resultExtractor, seeds models.SeedSet) *Orchestrator {
	return &Orchestrator{
		cfg:       cfg,
		transport: transport,
		resolve:   resolve,
		media:     engine,
		result:    result,
		seeds:     seeds,
	}
}

// Close releases the media subprocess and its socket. Safe to call once
// during shutdown.
func (o *Orchestrator) Close() error {
	return o.media.Close()
}

// GetSeeds returns the current rotor seed set.
func (o *Orchestrator) GetSeeds() models.SeedSet {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make(models.SeedSet, len(o.seeds))
	copy(out, o.seeds)
	return out
}

// SetSeeds atomically replaces the seed set and invalidates the current
// session (spec invariant: replacing seed_set clears session, sequence,
// batch, feedback tag, and play-report context before any new session is
// opened).
func (o *Orchestrator) SetSeeds(ctx context.Context, seeds []string) error {
	next, err := models.NewSeedSet(seeds)
	if err != nil {
		return InvalidSeedsError(err.Error())
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.media.Stop(ctx); err != nil {
		slog.Warn("orchestrator: stop media before seed change failed", "err", err)
	}
	o.seeds = next
	o.session = models.RadioSession{}
	o.playCtx.Clear()
	return nil
}

// FetchState is the pull-read adapters call periodically (spec §4.4.2).
func (o *Orchestrator) FetchState(ctx context.Context) (models.PlayerState, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.cfg.OAuthTokenConfigured {
		return models.PlayerState{
			Status: models.StatusPaused,
			Track:  models.Track{ID: "demo", Title: "Connect Yandex account", Artist: "ym-bridge"},
		}, nil
	}

	if err := o.ensureSessionLocked(ctx, nil); err != nil {
		return models.PlayerState{}, err
	}

	state, err := o.media.State(ctx)
	if err != nil {
		return models.PlayerState{}, err
	}

	if state.IdleActive && !o.session.Empty() {
		o.reportPlayFinishedIfNeeded(ctx, state.TimePos)

		finished, _ := o.session.Current()
		next, _ := o.session.Peek(1)
		finishedTrack := finished.Track()
		nextTrack := next.Track()
		if finishedTrack.ID != "" && nextTrack.ID != "" {
			o.sendFinishAndStartFeedback(ctx, finishedTrack.ID, float64(finishedTrack.Duration)/1000.0, nextTrack.ID, state.TimePos)
		}

		o.session.Advance(1)
		if err := o.playCurrentLocked(ctx, false); err != nil {
			slog.Warn("orchestrator: play next track after finish failed", "err", err)
		}

		state, err = o.media.State(ctx)
		if err != nil {
			return models.PlayerState{}, err
		}
	}

	return o.composeState(state), nil
}

func (o *Orchestrator) composeState(state media.State) models.PlayerState {
	status := models.StatusPlaying
	switch {
	case state.IdleActive:
		status = models.StatusStopped
	case state.Pause:
		status = models.StatusPaused
	}

	volume := state.Volume / 100.0
	if volume < 0 {
		volume = 0
	} else if volume > 1 {
		volume = 1
	}

	track := models.Track{}
	if item, ok := o.session.Current(); ok {
		track = item.Track()
	}

	hasSequence := !o.session.Empty()
	return models.PlayerState{
		Status:        status,
		PositionUS:    int64(state.TimePos * 1_000_000),
		Volume:        volume,
		CanControl:    true,
		CanSeek:       true,
		CanPlay:       true,
		CanPause:      true,
		CanGoNext:     hasSequence,
		CanGoPrevious: hasSequence,
		Track:         track,
	}
}

// Play is the play verb (spec §4.4.3).
func (o *Orchestrator) Play(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.session.Empty() {
		autoplay := false
		if err := o.ensureSessionLocked(ctx, &autoplay); err != nil {
			return err
		}
	}

	state, err := o.media.State(ctx)
	if err != nil {
		return err
	}
	if state.IdleActive {
		return o.playCurrentLocked(ctx, false)
	}

	if err := o.media.Play(ctx); err != nil {
		return err
	}
	if state.Pause && o.playCtx.PlayID == "" {
		o.markPlayStarted()
	}
	return nil
}

// Pause is the pause verb. play_id is retained so the eventual finish
// report carries the same id.
func (o *Orchestrator) Pause(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.media.Pause(ctx)
}

// PlayPause is the play_pause verb.
func (o *Orchestrator) PlayPause(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	state, err := o.media.State(ctx)
	if err != nil {
		return err
	}
	if err := o.media.PlayPause(ctx); err != nil {
		return err
	}
	if state.Pause && o.playCtx.PlayID == "" {
		o.markPlayStarted()
	}
	return nil
}

// Stop is the stop verb.
func (o *Orchestrator) Stop(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.media.Stop(ctx)
}

// Next is the next verb: advance forward and send skip feedback.
func (o *Orchestrator) Next(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.advanceLocked(ctx, 1, true)
}

// Previous is the previous verb: advance backward without skip feedback.
func (o *Orchestrator) Previous(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.advanceLocked(ctx, -1, false)
}

// Seek forwards a relative seek to the media subprocess.
func (o *Orchestrator) Seek(ctx context.Context, offsetUS int64) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.media.SeekRelative(ctx, offsetUS)
}

// SetPosition is a no-op if trackID disagrees with the current track's id;
// otherwise it forwards an absolute seek.
func (o *Orchestrator) SetPosition(ctx context.Context, trackID string, positionUS int64) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	current := models.Track{}
	if item, ok := o.session.Current(); ok {
		current = item.Track()
	}
	if current.ID != "" && trackID != "" && trackID != current.ID {
		return nil
	}
	return o.media.SeekAbsolute(ctx, positionUS)
}

// SetVolume forwards a normalized [0,1] volume to the media subprocess.
func (o *Orchestrator) SetVolume(ctx context.Context, v float64) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.media.SetVolume(ctx, v)
}

// LikeCurrent is the like verb (spec §4.4.7).
func (o *Orchestrator) LikeCurrent(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.session.Empty() {
		if err := o.ensureSessionLocked(ctx, nil); err != nil {
			return err
		}
	}

	item, ok := o.session.Current()
	if !ok {
		return LikeRequirementMissingError("no current track to like")
	}
	track := item.Track()
	queueRef := item.QueueRef()
	if track.ID == "" || queueRef == "" {
		return LikeRequirementMissingError("current track is missing ids required for like")
	}

	uid, err := o.ensureAccountUIDLocked(ctx)
	if err != nil {
		return err
	}

	timestamp := isoMilli()
	endpoint := strings.ReplaceAll(o.cfg.EndpointLikesAdd, "{user_id}", strconv.Itoa(uid))
	body := map[string]any{
		"tracks": []any{
			map[string]any{"clientTimestamp": timestamp, "trackId": queueRef},
		},
	}
	if _, err := o.transport.RequestJSON(ctx, "POST", endpoint, body, nil); err != nil {
		return err
	}

	o.sendRotorFeedback(ctx, track.ID, timestamp, "like")
	o.session.SetCurrentLiked(true)
	return nil
}

// DislikeCurrent is the dislike (unlike) verb.
func (o *Orchestrator) DislikeCurrent(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.session.Empty() {
		if err := o.ensureSessionLocked(ctx, nil); err != nil {
			return err
		}
	}

	item, ok := o.session.Current()
	if !ok {
		return LikeRequirementMissingError("no current track to dislike")
	}
	track := item.Track()
	if track.ID == "" {
		return LikeRequirementMissingError("current track is missing id required for dislike")
	}

	uid, err := o.ensureAccountUIDLocked(ctx)
	if err != nil {
		return err
	}

	timestamp := isoMilli()
	endpoint := strings.ReplaceAll(o.cfg.EndpointLikesRemove, "{user_id}", strconv.Itoa(uid))
	body := map[string]any{
		"tracks": []any{
			map[string]any{"clientTimestamp": timestamp, "trackId": track.ID},
		},
	}
	if _, err := o.transport.RequestJSON(ctx, "POST", endpoint, body, nil); err != nil {
		return err
	}

	o.sendRotorFeedback(ctx, track.ID, timestamp, "unlike")
	o.session.SetCurrentLiked(false)
	return nil
}

func (o *Orchestrator) ensureAccountUIDLocked(ctx context.Context) (int, error) {
	if o.accountID != nil {
		return *o.accountID, nil
	}
	payload, err := o.transport.RequestJSON(ctx, "GET", o.cfg.EndpointAccountAbout, nil, nil)
	if err != nil {
		return 0, err
	}
	result := o.result(payload)
	uidRaw, ok := result["uid"]
	if !ok {
		return 0, ErrAccountUIDMissing
	}
	uidFloat, ok := uidRaw.(float64)
	if !ok {
		return 0, ErrAccountUIDMissing
	}
	uid := int(uidFloat)
	o.accountID = &uid
	return uid, nil
}

// ensureSessionLocked is ensure_session (spec §4.4.1). autoplay nil means
// "use the configured autoplay_on_start default", matching the source's
// autoplay=None sentinel.
func (o *Orchestrator) ensureSessionLocked(ctx context.Context, autoplay *bool) error {
	if !o.session.Empty() {
		return nil
	}

	body := map[string]any{
		"includeTracksInResponse": true,
		"includeWaveModel":        true,
		"interactive":             true,
		"seeds":                   []string(o.seeds),
	}
	payload, err := o.transport.RequestJSON(ctx, "POST", o.cfg.EndpointRotorSessionNew, body, nil)
	if err != nil {
		return err
	}
	result := o.result(payload)

	sessionID, _ := result["radioSessionId"].(string)
	batchID, _ := result["batchId"].(string)

	feedbackFrom := ""
	if wave, ok := result["wave"].(map[string]any); ok {
		if fromID, ok := wave["idForFrom"].(string); ok && strings.TrimSpace(fromID) != "" {
			feedbackFrom = fmt.Sprintf("radio-mobile-%s-default", strings.TrimSpace(fromID))
		}
	}

	rawSeq, _ := result["sequence"].([]any)
	var sequence []models.SequenceItem
	for _, raw := range rawSeq {
		if item, ok := raw.(map[string]any); ok {
			sequence = append(sequence, models.SequenceItem{Raw: item})
		}
	}
	if len(sequence) == 0 {
		return SessionEmptyError("rotor session returned empty sequence")
	}

	o.session = models.RadioSession{
		SessionID:    sessionID,
		BatchID:      batchID,
		FeedbackFrom: feedbackFrom,
		Sequence:     sequence,
		Index:        0,
	}

	shouldAutoplay := o.cfg.AutoplayOnStart
	if autoplay != nil {
		shouldAutoplay = *autoplay
	}
	return o.playCurrentLocked(ctx, !shouldAutoplay)
}

// advanceLocked is advance (spec §4.4.4).
func (o *Orchestrator) advanceLocked(ctx context.Context, delta int, sendSkipFeedback bool) error {
	if o.session.Empty() {
		autoplay := true
		return o.ensureSessionLocked(ctx, &autoplay)
	}

	previous, _ := o.session.Current()
	state, err := o.media.State(ctx)
	if err != nil {
		return err
	}
	played := state.TimePos

	o.session.Advance(delta)

	current, _ := o.session.Current()
	if sendSkipFeedback {
		prevTrack := previous.Track()
		curTrack := current.Track()
		if prevTrack.ID != "" && curTrack.ID != "" {
			o.sendSkipAndStartFeedback(ctx, prevTrack.ID, curTrack.ID, played)
		}
	}

	return o.playCurrentLocked(ctx, false)
}

// playCurrentLocked is play_current (spec §4.4.8).
func (o *Orchestrator) playCurrentLocked(ctx context.Context, paused bool) error {
	item, ok := o.session.Current()
	if !ok {
		return ErrNoCurrentTrack
	}
	track := item.Track()
	if track.ID == "" {
		return ErrNoCurrentTrack
	}

	url, err := o.resolve.Resolve(ctx, track.ID)
	if err != nil {
		return err
	}
	if err := o.media.Load(ctx, url, paused); err != nil {
		return MediaEngineGoneError(err.Error())
	}

	if paused {
		o.playCtx.Clear()
		return nil
	}
	o.markPlayStarted()
	return nil
}

func (o *Orchestrator) markPlayStarted() {
	o.playCtx.PlayID = uuid.NewString()
	o.playCtx.PlayStartTimestamp = isoMilli()
	o.playCtx.ReportedFinishPlayID = ""
}

func (o *Orchestrator) feedbackFrom() string {
	if o.session.FeedbackFrom != "" {
		return o.session.FeedbackFrom
	}
	return defaultFeedbackFrom
}

func (o *Orchestrator) feedbackBatchID() string {
	if o.session.BatchID != "" {
		return o.session.BatchID
	}
	return uuid.NewString() + ".local"
}

// sendRotorFeedback sends a single like/unlike feedback event. Best-effort:
// failures are logged, never returned (spec §7).
func (o *Orchestrator) sendRotorFeedback(ctx context.Context, trackID, timestamp, eventType string) {
	if o.session.SessionID == "" {
		return
	}
	endpoint := strings.ReplaceAll(o.cfg.EndpointRotorSessionTracks, "{session_id}", o.session.SessionID)
	body := map[string]any{
		"feedbacks": []any{
			map[string]any{
				"batchId": o.feedbackBatchID(),
				"event": map[string]any{
					"timestamp": timestamp,
					"trackId":   trackID,
					"type":      eventType,
				},
				"from": o.feedbackFrom(),
			},
		},
		"queue": o.session.QueueRefs(2, 0),
	}
	resp, err := o.transport.RequestJSON(ctx, "POST", endpoint, body, nil)
	if err != nil {
		slog.Warn("orchestrator: rotor feedback failed", "type", eventType, "err", err)
		return
	}
	o.session.AppendFromFeedback(o.result(resp))
}

// sendFinishAndStartFeedback sends the trackFinished+trackStarted pair.
func (o *Orchestrator) sendFinishAndStartFeedback(ctx context.Context, finishedTrackID string, finishedLengthSeconds float64, startedTrackID string, totalPlayedSeconds float64) {
	if o.session.SessionID == "" || finishedTrackID == "" || startedTrackID == "" {
		return
	}
	endpoint := strings.ReplaceAll(o.cfg.EndpointRotorSessionTracks, "{session_id}", o.session.SessionID)
	timestamp := isoMilli()
	batchID := o.feedbackBatchID()
	from := o.feedbackFrom()
	body := map[string]any{
		"feedbacks": []any{
			map[string]any{
				"batchId": batchID,
				"event": map[string]any{
					"timestamp":          timestamp,
					"totalPlayedSeconds": round3(maxFloat(totalPlayedSeconds, 0)),
					"trackId":            finishedTrackID,
					"trackLengthSeconds": round3(maxFloat(finishedLengthSeconds, 0)),
					"type":               "trackFinished",
				},
				"from": from,
			},
			map[string]any{
				"batchId": batchID,
				"event": map[string]any{
					"timestamp": timestamp,
					"trackId":   startedTrackID,
					"type":      "trackStarted",
				},
				"from": from,
			},
		},
		"queue": o.session.QueueRefs(2, 1),
	}
	resp, err := o.transport.RequestJSON(ctx, "POST", endpoint, body, nil)
	if err != nil {
		slog.Warn("orchestrator: finish+start feedback failed", "err", err)
		return
	}
	o.session.AppendFromFeedback(o.result(resp))
}

// sendSkipAndStartFeedback sends the skip+trackStarted pair.
func (o *Orchestrator) sendSkipAndStartFeedback(ctx context.Context, skippedTrackID, startedTrackID string, totalPlayedSeconds float64) {
	if o.session.SessionID == "" {
		return
	}
	endpoint := strings.ReplaceAll(o.cfg.EndpointRotorSessionTracks, "{session_id}", o.session.SessionID)
	timestamp := isoMilli()
	from := o.feedbackFrom()
	body := map[string]any{
		"feedbacks": []any{
			map[string]any{
				"batchId": uuid.NewString() + ".local",
				"event": map[string]any{
					"timestamp": timestamp,
					"trackId":   startedTrackID,
					"type":      "trackStarted",
				},
				"from": from,
			},
			map[string]any{
				"batchId": o.feedbackBatchID(),
				"event": map[string]any{
					"timestamp":          timestamp,
					"totalPlayedSeconds": round3(maxFloat(totalPlayedSeconds, 0)),
					"trackId":            skippedTrackID,
					"type":               "skip",
				},
				"from": from,
			},
		},
		"queue": o.session.QueueRefs(1, 0),
	}
	resp, err := o.transport.RequestJSON(ctx, "POST", endpoint, body, nil)
	if err != nil {
		slog.Warn("orchestrator: skip+start feedback failed", "err", err)
		return
	}
	o.session.AppendFromFeedback(o.result(resp))
}

// reportPlayFinishedIfNeeded sends the finish play-report (spec §4.4.5).
// Best-effort and idempotent per play_id.
func (o *Orchestrator) reportPlayFinishedIfNeeded(ctx context.Context, playedSeconds float64) {
	if !o.playCtx.NeedsFinishReport() {
		return
	}
	item, ok := o.session.Current()
	if !ok {
		return
	}
	track := item.Track()
	if track.ID == "" {
		return
	}

	trackLengthSeconds := float64(track.Duration) / 1000.0
	endedSeconds := round3(maxFloat(playedSeconds, trackLengthSeconds))
	nowISO := isoMilli()
	startTimestamp := o.playCtx.PlayStartTimestamp
	if startTimestamp == "" {
		startTimestamp = nowISO
	}

	payload := map[string]any{
		"plays": []any{
			map[string]any{
				"albumId":                    item.AlbumID(),
				"audioAuto":                  "none",
				"audioOutputName":            "Phone",
				"audioOutputType":            "other",
				"isFromAutoflow":             false,
				"batchId":                    o.feedbackBatchID(),
				"changeReason":               "finish",
				"context":                    "radio",
				"contextItem":                "user:onyourwave",
				"isRestored":                 false,
				"endPositionSeconds":         endedSeconds,
				"expectedTrackLengthSeconds": round3(trackLengthSeconds),
				"fadeMode":                   "crossfade",
				"from":                       o.feedbackFrom(),
				"fromCache":                  false,
				"listenActivity":             "END",
				"maxPlayerStage":             "play",
				"navigationId":               "ym-bridge_" + uuid.NewString(),
				"isFromOfflineWave":          false,
				"pause":                      false,
				"playbackActionId":           uuid.NewString(),
				"isFromPumpkin":              false,
				"radioSessionId":             o.session.SessionID,
				"isRepeated":                 false,
				"seek":                       false,
				"smartPreview":               false,
				"startPositionSeconds":       0.0,
				"startTimestamp":             startTimestamp,
				"timestamp":                  nowISO,
				"totalPlayedSeconds":         endedSeconds,
				"trackId":                    track.ID,
				"trackLengthSeconds":         round3(trackLengthSeconds),
				"playId":                     o.playCtx.PlayID,
			},
		},
	}

	_, err := o.transport.RequestJSON(ctx, "POST", o.cfg.EndpointPlays, payload, map[string]string{"client-now": nowISO})
	if err != nil {
		slog.Warn("orchestrator: play finish report failed", "err", err)
		return
	}
	o.playCtx.ReportedFinishPlayID = o.playCtx.PlayID
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func isoMilli() string {
	return time.Now().Format("2006-01-02T15:04:05.000-07:00")
}
