// Soundmap - Similarity-Driven Smart Shuffle
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/soundmap

package shuffle

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"github.com/tomtom215/soundmap/internal/coordstore"
	"github.com/tomtom215/soundmap/internal/jobs"
	"github.com/tomtom215/soundmap/internal/metrics"
	"github.com/tomtom215/soundmap/internal/track"
)

// mockPlayer records the calls the engine makes.
type mockPlayer struct {
	mu       sync.Mutex
	current  NowPlaying
	version  string
	enqueued []string
	plays    []int
	clears   int
}

func (p *mockPlayer) Current(ctx context.Context) (NowPlaying, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current, nil
}

func (p *mockPlayer) Enqueue(ctx context.Context, path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.enqueued = append(p.enqueued, path)
	return nil
}

func (p *mockPlayer) Clear(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clears++
	return nil
}

func (p *mockPlayer) Play(ctx context.Context, position int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.plays = append(p.plays, position)
	return nil
}

func (p *mockPlayer) Stop(ctx context.Context) error { return nil }

func (p *mockPlayer) Version(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.version, nil
}

func (p *mockPlayer) setCurrent(np NowPlaying) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = np
}

func (p *mockPlayer) lastEnqueued() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.enqueued) == 0 {
		return ""
	}
	return p.enqueued[len(p.enqueued)-1]
}

func (p *mockPlayer) lastPlay() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.plays) == 0 {
		return -1
	}
	return p.plays[len(p.plays)-1]
}

type mockUI struct {
	mu      sync.Mutex
	enabled []bool
}

func (u *mockUI) SetControlsEnabled(enabled bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.enabled = append(u.enabled, enabled)
}

func (u *mockUI) Confirm(ctx context.Context, title, question string) bool { return true }
func (u *mockUI) Notify(ctx context.Context, title, message string)       {}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type mockMaintainer struct {
	calls atomic.Int32
}

func (m *mockMaintainer) Rescan(ctx context.Context) error {
	m.calls.Add(1)
	return nil
}

type testEngine struct {
	*Engine
	store  *coordstore.Store
	player *mockPlayer
	ui     *mockUI
	clock  *fakeClock
}

func trackPath(i int) string {
	return fmt.Sprintf("/music/t%02d.mp3", i)
}

// newLineStore places n tracks at (i, 0), each 200 seconds long.
func newLineStore(t *testing.T, n int) *coordstore.Store {
	t.Helper()
	cfg := coordstore.DefaultConfig()
	cfg.Dimensions = 2
	store, err := coordstore.New(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("coordstore.New() error = %v", err)
	}
	for i := 0; i < n; i++ {
		tr := track.New(trackPath(i))
		tr.Length = 200
		id := store.Insert(tr)
		if err := store.ApplyResolution(id, coordstore.Resolution{
			Status:     track.AllFound,
			ArtistDBID: uint64(i + 1),
			TitleDBID:  uint64(i + 1),
			Coords:     []float64{float64(i), 0},
		}); err != nil {
			t.Fatalf("ApplyResolution(%d) error = %v", i, err)
		}
	}
	store.Rebuild()
	return store
}

func newTestEngine(t *testing.T, store *coordstore.Store, mutate ...func(*Config)) *testEngine {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Seed = 1
	for _, m := range mutate {
		m(&cfg)
	}

	runner := jobs.NewRunner(context.Background(), zerolog.Nop())
	t.Cleanup(func() { _ = runner.Close() })

	player := &mockPlayer{version: "0.23.5"}
	ui := &mockUI{}
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}

	e, err := New(cfg, store, runner, player, ui, zerolog.Nop(), WithClock(clock))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return &testEngine{Engine: e, store: store, player: player, ui: ui, clock: clock}
}

func (te *testEngine) command(t *testing.T, kind CommandKind) error {
	t.Helper()
	return te.Handle(context.Background(), CommandInvoked{Command: kind})
}

// startTrack makes the player report track i at playlist position pos and
// delivers TrackStarted, then waits for the prepare job.
func (te *testEngine) startTrack(t *testing.T, i, pos, length int) {
	t.Helper()
	te.player.setCurrent(NowPlaying{
		Playing:  true,
		Path:     trackPath(i),
		Duration: 200 * time.Second,
		Position: pos,
		Length:   length,
	})
	if err := te.Handle(context.Background(), TrackStarted{}); err != nil {
		t.Fatalf("TrackStarted error = %v", err)
	}
	if err := te.runner.Wait(jobs.PrepareNextTrack); err != nil {
		t.Fatalf("prepare job error = %v", err)
	}
}

func TestNew_Validation(t *testing.T) {
	store := newLineStore(t, 1)
	runner := jobs.NewRunner(context.Background(), zerolog.Nop())
	defer runner.Close()

	bad := DefaultConfig()
	bad.RemoteAnchor = "elsewhere"
	if _, err := New(bad, store, runner, &mockPlayer{}, &mockUI{}, zerolog.Nop()); err == nil {
		t.Error("Expected error for invalid anchor")
	}
	if _, err := New(DefaultConfig(), nil, runner, &mockPlayer{}, &mockUI{}, zerolog.Nop()); err == nil {
		t.Error("Expected error for missing store")
	}
}

func TestEngine_ActivationFromPlayingTrack(t *testing.T) {
	te := newTestEngine(t, newLineStore(t, 10))
	te.player.setCurrent(NowPlaying{Playing: true, Path: trackPath(4)})

	if err := te.command(t, ToggleLibrary); err != nil {
		t.Fatalf("ToggleLibrary error = %v", err)
	}

	if te.Mode() != ModeLibrary {
		t.Errorf("Mode() = %s, want library", te.Mode())
	}
	if te.player.clears != 1 || te.player.lastEnqueued() != trackPath(4) || te.player.lastPlay() != 0 {
		t.Errorf("Expected playlist restart with %s, got clears=%d enqueued=%v plays=%v",
			trackPath(4), te.player.clears, te.player.enqueued, te.player.plays)
	}
	if te.Status().SessionID == "" {
		t.Error("Expected a session id")
	}
}

func TestEngine_ActivationPicksRandomTrack(t *testing.T) {
	te := newTestEngine(t, newLineStore(t, 10))

	if err := te.command(t, ToggleLibrary); err != nil {
		t.Fatalf("ToggleLibrary error = %v", err)
	}
	path := te.player.lastEnqueued()
	if _, ok := te.store.FindByPath(path); !ok {
		t.Errorf("Activation enqueued %q, not a library track", path)
	}
}

func TestEngine_ActivationOnEmptyStore(t *testing.T) {
	te := newTestEngine(t, newLineStore(t, 0))
	if err := te.command(t, ToggleLibrary); !errors.Is(err, ErrEmptyStore) {
		t.Errorf("ToggleLibrary on empty store = %v, want ErrEmptyStore", err)
	}
	if te.Mode() != ModeOff {
		t.Errorf("Mode() = %s, want off", te.Mode())
	}
}

func TestEngine_ToggleModes(t *testing.T) {
	te := newTestEngine(t, newLineStore(t, 10))

	if err := te.command(t, ToggleLibrary); err != nil {
		t.Fatal(err)
	}
	id := te.Status().SessionID

	t.Run("other mode switches in place", func(t *testing.T) {
		if err := te.command(t, TogglePlaylist); err != nil {
			t.Fatal(err)
		}
		if te.Mode() != ModePlaylist {
			t.Errorf("Mode() = %s, want playlist", te.Mode())
		}
		if te.Status().SessionID != id {
			t.Error("Switching modes must keep the session")
		}
		if te.player.clears != 1 {
			t.Errorf("Switching modes restarted the playlist (%d clears)", te.player.clears)
		}
	})

	t.Run("same mode turns off", func(t *testing.T) {
		te.startTrack(t, 2, 0, 1)
		if err := te.command(t, TogglePlaylist); err != nil {
			t.Fatal(err)
		}
		if te.Mode() != ModeOff {
			t.Errorf("Mode() = %s, want off", te.Mode())
		}
		if te.store.AlreadyPlayed(2) {
			t.Error("Turning off must clear history flags")
		}
	})

	t.Run("events are ignored while off", func(t *testing.T) {
		plays := len(te.player.plays)
		te.startTrack(t, 3, 0, 1)
		if err := te.Handle(context.Background(), TrackStopped{EndOfTrack: true}); err != nil {
			t.Fatal(err)
		}
		if len(te.player.plays) != plays {
			t.Error("Engine acted while off")
		}
		if te.store.AlreadyPlayed(3) {
			t.Error("History changed while off")
		}
	})
}

func TestEngine_ControlsDisabled(t *testing.T) {
	te := newTestEngine(t, newLineStore(t, 5))
	if err := te.command(t, ToggleLibrary); err != nil {
		t.Fatal(err)
	}

	te.SetControlsEnabled(false)
	if te.Mode() != ModeOff {
		t.Error("Disabling controls must end the session")
	}
	if err := te.command(t, ToggleLibrary); !errors.Is(err, ErrControlsDisabled) {
		t.Errorf("ToggleLibrary while disabled = %v, want ErrControlsDisabled", err)
	}

	te.SetControlsEnabled(true)
	if err := te.command(t, ToggleLibrary); err != nil {
		t.Errorf("ToggleLibrary after enable = %v", err)
	}
	if len(te.ui.enabled) != 2 || te.ui.enabled[0] || !te.ui.enabled[1] {
		t.Errorf("UI saw %v, want [false true]", te.ui.enabled)
	}
}

func TestEngine_CapabilityDisablesPlaylistOnly(t *testing.T) {
	te := newTestEngine(t, newLineStore(t, 5))
	te.player.version = "0.19.12"

	if err := te.CheckCapability(context.Background()); !errors.Is(err, ErrCapability) {
		t.Fatalf("CheckCapability() = %v, want ErrCapability", err)
	}
	if err := te.command(t, TogglePlaylist); !errors.Is(err, ErrCapability) {
		t.Errorf("TogglePlaylist = %v, want ErrCapability", err)
	}
	if err := te.command(t, ToggleLibrary); err != nil {
		t.Errorf("ToggleLibrary = %v, library mode must keep working", err)
	}
	if te.Status().PlaylistMode {
		t.Error("Status must report playlist mode unavailable")
	}
}

func TestCompareVersions(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"0.23.5", "0.20.0", 1},
		{"0.20.0", "0.20.0", 0},
		{"0.19.12", "0.20.0", -1},
		{"v0.21", "0.20.0", 1},
	}
	for _, tt := range tests {
		if got := compareVersions(tt.a, tt.b); got != tt.want {
			t.Errorf("compareVersions(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestEngine_HistoryBoundedAndFlagsCleared(t *testing.T) {
	te := newTestEngine(t, newLineStore(t, 10)) // capacity ceil(ln 10)+1 = 4
	if err := te.command(t, ToggleLibrary); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 6; i++ {
		te.startTrack(t, i, i, i+1)
		if h := te.Status().History; h > 4 {
			t.Fatalf("history size %d exceeds capacity 4", h)
		}
	}

	for i := 0; i < 6; i++ {
		want := i >= 2
		if got := te.store.AlreadyPlayed(track.ID(i)); got != want {
			t.Errorf("AlreadyPlayed(%d) = %v, want %v", i, got, want)
		}
	}
}

func TestEngine_HostDurationUpdatesLength(t *testing.T) {
	te := newTestEngine(t, newLineStore(t, 3))
	if err := te.command(t, ToggleLibrary); err != nil {
		t.Fatal(err)
	}
	te.player.setCurrent(NowPlaying{Playing: true, Path: trackPath(1), Duration: 241400 * time.Millisecond})
	if err := te.Handle(context.Background(), TrackStarted{}); err != nil {
		t.Fatal(err)
	}
	tr, _ := te.store.Track(1)
	if tr.Length != 241 {
		t.Errorf("Length = %d, want 241", tr.Length)
	}
}

func TestEngine_LocalCandidateIsNearestUnplayed(t *testing.T) {
	te := newTestEngine(t, newLineStore(t, 10))
	if err := te.command(t, ToggleLibrary); err != nil {
		t.Fatal(err)
	}

	te.startTrack(t, 5, 0, 1)
	st := te.Status()
	if st.LocalCandidate == nil || (st.LocalCandidate.ID != 4 && st.LocalCandidate.ID != 6) {
		t.Fatalf("LocalCandidate = %+v, want a neighbor of track 5", st.LocalCandidate)
	}

	// Play both neighbors; the next nearest unplayed is at distance 2.
	te.startTrack(t, 4, 0, 1)
	te.startTrack(t, 6, 0, 1)
	te.startTrack(t, 5, 0, 1)
	st = te.Status()
	if st.LocalCandidate == nil || (st.LocalCandidate.ID != 3 && st.LocalCandidate.ID != 7) {
		t.Errorf("LocalCandidate = %+v, want track 3 or 7", st.LocalCandidate)
	}
}

func TestEngine_ListenedFractionBoundary(t *testing.T) {
	tests := []struct {
		name   string
		heard  time.Duration
		source string
	}{
		{"half counts as liked", 100 * time.Second, "local"},
		{"just under half branches out", 99 * time.Second, "remote"},
		{"full listen", 200 * time.Second, "local"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			te := newTestEngine(t, newLineStore(t, 10))
			if err := te.command(t, ToggleLibrary); err != nil {
				t.Fatal(err)
			}
			te.startTrack(t, 2, 0, 1)
			te.startTrack(t, 5, 0, 1)

			st := te.Status()
			want := st.LocalCandidate
			if tt.source == "remote" {
				want = st.RemoteCandidate
			}
			if want == nil {
				t.Fatal("Candidates not prepared")
			}

			te.clock.Advance(tt.heard)
			if err := te.Handle(context.Background(), TrackStopped{EndOfTrack: true}); err != nil {
				t.Fatal(err)
			}
			if got := te.player.lastEnqueued(); got != want.Path {
				t.Errorf("Enqueued %q, want %s candidate %q", got, tt.source, want.Path)
			}
			if te.player.lastPlay() != 1 {
				t.Errorf("Expected playback advanced to slot 1, got %d", te.player.lastPlay())
			}
		})
	}
}

func TestEngine_PausedTimeIsNotListened(t *testing.T) {
	te := newTestEngine(t, newLineStore(t, 10))
	if err := te.command(t, ToggleLibrary); err != nil {
		t.Fatal(err)
	}
	te.startTrack(t, 2, 0, 1)
	te.startTrack(t, 5, 0, 1)
	remote := te.Status().RemoteCandidate

	ctx := context.Background()
	te.clock.Advance(40 * time.Second)
	_ = te.Handle(ctx, PlaybackStateChanged{State: StatePaused})
	te.clock.Advance(100 * time.Second)
	_ = te.Handle(ctx, PlaybackStateChanged{State: StatePlaying})
	te.clock.Advance(50 * time.Second)

	// 90 of 200 seconds heard
	if err := te.Handle(ctx, TrackStopped{EndOfTrack: true}); err != nil {
		t.Fatal(err)
	}
	if got := te.player.lastEnqueued(); got != remote.Path {
		t.Errorf("Enqueued %q, want remote candidate %q", got, remote.Path)
	}
}

func TestEngine_EndOfTrackNotAtLastSlot(t *testing.T) {
	te := newTestEngine(t, newLineStore(t, 10))
	if err := te.command(t, ToggleLibrary); err != nil {
		t.Fatal(err)
	}
	te.startTrack(t, 5, 0, 3)
	enqueued := len(te.player.enqueued)

	if err := te.Handle(context.Background(), TrackStopped{EndOfTrack: true}); err != nil {
		t.Fatal(err)
	}
	if len(te.player.enqueued) != enqueued {
		t.Error("Engine enqueued although the playlist continues")
	}
}

func TestEngine_FullStopDoesNotContinue(t *testing.T) {
	te := newTestEngine(t, newLineStore(t, 10))
	if err := te.command(t, ToggleLibrary); err != nil {
		t.Fatal(err)
	}
	te.startTrack(t, 5, 0, 1)
	enqueued := len(te.player.enqueued)

	if err := te.Handle(context.Background(), TrackStopped{EndOfTrack: false}); err != nil {
		t.Fatal(err)
	}
	if len(te.player.enqueued) != enqueued {
		t.Error("A full stop must not enqueue a continuation")
	}
}

func TestEngine_EndOfTrackWaitsForPreparation(t *testing.T) {
	te := newTestEngine(t, newLineStore(t, 10))
	if err := te.command(t, ToggleLibrary); err != nil {
		t.Fatal(err)
	}

	var prepared atomic.Bool
	te.beforePrepare = func() {
		time.Sleep(50 * time.Millisecond)
		prepared.Store(true)
	}

	te.player.setCurrent(NowPlaying{Playing: true, Path: trackPath(0), Position: 0, Length: 1})
	if err := te.Handle(context.Background(), TrackStarted{}); err != nil {
		t.Fatal(err)
	}
	te.clock.Advance(200 * time.Second)

	// No explicit wait: the handler itself must join the job.
	if err := te.Handle(context.Background(), TrackStopped{EndOfTrack: true}); err != nil {
		t.Fatal(err)
	}
	if !prepared.Load() {
		t.Fatal("Continuation read candidates before preparation finished")
	}
	if got := te.player.lastEnqueued(); got != trackPath(1) {
		t.Errorf("Enqueued %q, want the prepared neighbor %q", got, trackPath(1))
	}
}

func TestEngine_LocalContinuationReanchorsRadius(t *testing.T) {
	te := newTestEngine(t, newLineStore(t, 10))
	if err := te.command(t, ToggleLibrary); err != nil {
		t.Fatal(err)
	}
	te.startTrack(t, 0, 0, 1)
	te.clock.Advance(200 * time.Second)
	if err := te.Handle(context.Background(), TrackStopped{EndOfTrack: true}); err != nil {
		t.Fatal(err)
	}
	// Track 0 continues to track 1 at distance 1.
	if r := te.Status().RemoteRadius; math.Abs(r-1) > 1e-9 {
		t.Errorf("RemoteRadius = %f, want 1", r)
	}
}

func TestEngine_RemoteContinuationReanchorsRadius(t *testing.T) {
	te := newTestEngine(t, newLineStore(t, 10))
	if err := te.command(t, ToggleLibrary); err != nil {
		t.Fatal(err)
	}
	te.startTrack(t, 2, 0, 1)
	te.startTrack(t, 5, 0, 1)

	st := te.Status()
	if st.LocalCandidate == nil || st.RemoteCandidate == nil {
		t.Fatal("Candidates not prepared")
	}
	want, err := te.store.Distance(5, st.LocalCandidate.ID)
	if err != nil {
		t.Fatal(err)
	}

	// 10 of 200 seconds takes the remote branch.
	te.clock.Advance(10 * time.Second)
	if err := te.Handle(context.Background(), TrackStopped{EndOfTrack: true}); err != nil {
		t.Fatal(err)
	}
	if got := te.player.lastEnqueued(); got != st.RemoteCandidate.Path {
		t.Fatalf("Enqueued %q, want remote candidate %q", got, st.RemoteCandidate.Path)
	}
	if r := te.Status().RemoteRadius; math.Abs(r-want) > 1e-9 {
		t.Errorf("RemoteRadius = %f, want distance to the local candidate %f", r, want)
	}
}

func TestEngine_ManualNavigation(t *testing.T) {
	te := newTestEngine(t, newLineStore(t, 10))
	if err := te.command(t, ToggleLibrary); err != nil {
		t.Fatal(err)
	}

	t.Run("next inside the playlist skips", func(t *testing.T) {
		te.startTrack(t, 3, 1, 4)
		if err := te.command(t, Next); err != nil {
			t.Fatal(err)
		}
		if te.player.lastPlay() != 2 {
			t.Errorf("Play(%d), want Play(2)", te.player.lastPlay())
		}
	})

	t.Run("previous resets the measurement", func(t *testing.T) {
		te.startTrack(t, 2, 0, 1)
		local := te.Status().LocalCandidate
		if err := te.command(t, Previous); err != nil {
			t.Fatal(err)
		}
		// Unmeasured tracks continue locally regardless of elapsed time.
		te.clock.Advance(5 * time.Second)
		if err := te.Handle(context.Background(), TrackStopped{EndOfTrack: true}); err != nil {
			t.Fatal(err)
		}
		if got := te.player.lastEnqueued(); got != local.Path {
			t.Errorf("Enqueued %q, want local %q", got, local.Path)
		}
	})

	t.Run("next at the last slot enqueues by listened fraction", func(t *testing.T) {
		te.startTrack(t, 2, 0, 1)
		te.startTrack(t, 7, 0, 1)
		remote := te.Status().RemoteCandidate
		te.clock.Advance(10 * time.Second)
		if err := te.command(t, Next); err != nil {
			t.Fatal(err)
		}
		if got := te.player.lastEnqueued(); got != remote.Path {
			t.Errorf("Enqueued %q, want remote %q", got, remote.Path)
		}
	})
}

func TestEngine_Rescan(t *testing.T) {
	te := newTestEngine(t, newLineStore(t, 3))
	if err := te.command(t, Rescan); !errors.Is(err, ErrNoMaintainer) {
		t.Errorf("Rescan without maintainer = %v, want ErrNoMaintainer", err)
	}

	m := &mockMaintainer{}
	te.SetMaintainer(m)
	if err := te.command(t, Rescan); err != nil {
		t.Errorf("Rescan error = %v", err)
	}
	if m.calls.Load() != 1 {
		t.Errorf("Maintainer called %d times, want 1", m.calls.Load())
	}
}

func TestEngine_RunLoop(t *testing.T) {
	te := newTestEngine(t, newLineStore(t, 5))
	events := make(chan Event, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- te.Run(ctx, events) }()

	before := testutil.ToFloat64(metrics.EngineEvents.WithLabelValues("command_invoked"))
	events <- CommandInvoked{Command: ToggleLibrary}
	close(events)

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() = %v, want nil on closed channel", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}
	if te.Mode() != ModeLibrary {
		t.Errorf("Mode() = %s, want library", te.Mode())
	}
	if got := testutil.ToFloat64(metrics.EngineEvents.WithLabelValues("command_invoked")) - before; got != 1 {
		t.Errorf("Expected 1 recorded event, got %v", got)
	}
}

func TestEngine_LocalCandidateWidensWindow(t *testing.T) {
	store := newLineStore(t, 10)
	te := newTestEngine(t, store)
	s := newSession(ModeLibrary, 3, zerolog.Nop())

	for i := 0; i < 9; i++ {
		_ = store.SetAlreadyPlayed(track.ID(i), true)
	}
	in := prepareInput{session: s, playing: 0, history: []track.ID{0}}

	got, err := te.localCandidate(in)
	if err != nil {
		t.Fatal(err)
	}
	if got != 9 {
		t.Errorf("localCandidate = %d, want 9 found by widening", got)
	}

	t.Run("without widening falls back to random unplayed", func(t *testing.T) {
		te.cfg.MaxWidenings = 0
		before := testutil.ToFloat64(metrics.CandidateFallbacks.WithLabelValues("window_exhausted"))
		got, err := te.localCandidate(in)
		if err != nil {
			t.Fatal(err)
		}
		if got != 9 {
			t.Errorf("localCandidate = %d, want the only unplayed track 9", got)
		}
		if testutil.ToFloat64(metrics.CandidateFallbacks.WithLabelValues("window_exhausted"))-before != 1 {
			t.Error("Expected a window_exhausted fallback")
		}
	})
}

func TestEngine_RemoteCandidate(t *testing.T) {
	store := newLineStore(t, 10)
	s := newSession(ModeLibrary, 5, zerolog.Nop())

	t.Run("short history is random", func(t *testing.T) {
		te := newTestEngine(t, store)
		before := testutil.ToFloat64(metrics.CandidateFallbacks.WithLabelValues("no_reference"))
		if _, err := te.remoteCandidate(prepareInput{session: s, playing: 5, history: []track.ID{5}}, 1); err != nil {
			t.Fatal(err)
		}
		if testutil.ToFloat64(metrics.CandidateFallbacks.WithLabelValues("no_reference"))-before != 1 {
			t.Error("Expected a no_reference fallback")
		}
	})

	t.Run("anchored on the current track", func(t *testing.T) {
		te := newTestEngine(t, store, func(c *Config) { c.RemoteAnchor = AnchorCurrent })
		got, err := te.remoteCandidate(prepareInput{session: s, playing: 5, history: []track.ID{4, 5}}, 0.1)
		if err != nil {
			t.Fatal(err)
		}
		if got == 5 {
			t.Fatal("Remote candidate must not be the playing track")
		}
		if d, _ := store.Distance(5, got); d != 1 {
			t.Errorf("Remote candidate %d at distance %f, want a neighbor at 1", got, d)
		}
	})

	t.Run("origin anchored target", func(t *testing.T) {
		te := newTestEngine(t, store)
		// Radius 0.1 around the origin lands next to track 0 or 1.
		got, err := te.remoteCandidate(prepareInput{session: s, playing: 5, history: []track.ID{4, 5}}, 0.1)
		if err != nil {
			t.Fatal(err)
		}
		if got != 0 && got != 1 {
			t.Errorf("Remote candidate = %d, want 0 or 1", got)
		}
	})
}

func TestEngine_UnlocatedTrackGetsRandomCandidates(t *testing.T) {
	store := newLineStore(t, 5)
	id := store.Insert(track.New("/music/unknown.mp3"))
	_ = store.ApplyResolution(id, coordstore.Resolution{Status: track.NothingFound})

	te := newTestEngine(t, store)
	if err := te.command(t, ToggleLibrary); err != nil {
		t.Fatal(err)
	}
	te.player.setCurrent(NowPlaying{Playing: true, Path: "/music/unknown.mp3", Length: 1})
	if err := te.Handle(context.Background(), TrackStarted{}); err != nil {
		t.Fatal(err)
	}
	_ = te.runner.Wait(jobs.PrepareNextTrack)

	st := te.Status()
	if st.LocalCandidate == nil || st.RemoteCandidate == nil || st.LocalCandidate.ID != st.RemoteCandidate.ID {
		t.Errorf("Expected identical random candidates, got %+v and %+v", st.LocalCandidate, st.RemoteCandidate)
	}
}
