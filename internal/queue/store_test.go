package queue_test

import (
	"context"
	"testing"
	"time"

	"mixdown/internal/queue"
	"mixdown/internal/testsupport"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to queue.Status
		want     bool
	}{
		{queue.StatusPending, queue.StatusProcessing, true},
		{queue.StatusPending, queue.StatusError, true},
		{queue.StatusPending, queue.StatusProcessed, false},
		{queue.StatusProcessing, queue.StatusProcessed, true},
		{queue.StatusProcessing, queue.StatusPending, true},
		{queue.StatusProcessing, queue.StatusError, true},
		{queue.StatusProcessed, queue.StatusPublished, true},
		{queue.StatusProcessed, queue.StatusPending, false},
		{queue.StatusError, queue.StatusPending, true},
		{queue.StatusError, queue.StatusProcessing, false},
		{queue.StatusPublished, queue.StatusPending, false},
		{queue.StatusPublished, queue.StatusError, false},
		{queue.StatusProcessing, queue.StatusProcessing, true},
	}

	for _, tc := range cases {
		if got := queue.CanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestParseStatus(t *testing.T) {
	if status, ok := queue.ParseStatus("  Processing "); !ok || status != queue.StatusProcessing {
		t.Fatalf("ParseStatus normalized = %q, %v", status, ok)
	}
	if _, ok := queue.ParseStatus("unknown"); ok {
		t.Fatal("expected unknown status to be rejected")
	}
	if _, ok := queue.ParseStatus(""); ok {
		t.Fatal("expected empty status to be rejected")
	}
}

func TestNewEpisodeDefaults(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	episode, err := store.NewEpisode(ctx, "alice", "Pilot", "weekly", "artifact://alice/sources/pilot.wav")
	if err != nil {
		t.Fatalf("NewEpisode: %v", err)
	}
	if episode.ID == 0 {
		t.Fatal("expected persisted episode to have an id")
	}
	if episode.Status != queue.StatusPending {
		t.Fatalf("status = %s, want pending", episode.Status)
	}

	loaded, err := store.GetByID(ctx, episode.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if loaded == nil {
		t.Fatal("expected episode to round trip")
	}
	if loaded.UserID != "alice" || loaded.Title != "Pilot" || loaded.TemplateID != "weekly" {
		t.Fatalf("unexpected episode fields: %+v", loaded)
	}
	if loaded.SourceAudioURI != "artifact://alice/sources/pilot.wav" {
		t.Fatalf("source uri = %q", loaded.SourceAudioURI)
	}
	if loaded.CancelRequested {
		t.Fatal("new episode should not request cancel")
	}
}

func TestGetByIDMissingReturnsNil(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	episode, err := store.GetByID(context.Background(), 9999)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if episode != nil {
		t.Fatalf("expected nil for missing episode, got %+v", episode)
	}
}

func TestUpdateEnforcesLifecycle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	episode := testsupport.NewEpisode(t, store, "alice", "Lifecycle")

	// pending -> processed skips a state and must be rejected.
	episode.Status = queue.StatusProcessed
	if err := store.Update(ctx, episode); err == nil {
		t.Fatal("expected invalid transition pending -> processed to fail")
	}

	episode.Status = queue.StatusProcessing
	if err := store.Update(ctx, episode); err != nil {
		t.Fatalf("pending -> processing: %v", err)
	}
	episode.Status = queue.StatusProcessed
	episode.FinalAudioURI = "artifact://alice/episodes/1/final/final.wav"
	if err := store.Update(ctx, episode); err != nil {
		t.Fatalf("processing -> processed: %v", err)
	}
	episode.Status = queue.StatusPublished
	if err := store.Update(ctx, episode); err != nil {
		t.Fatalf("processed -> published: %v", err)
	}

	// Published is terminal.
	episode.Status = queue.StatusPending
	if err := store.Update(ctx, episode); err == nil {
		t.Fatal("expected published -> pending to fail")
	}

	loaded, err := store.GetByID(ctx, episode.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if loaded.Status != queue.StatusPublished {
		t.Fatalf("status after failed update = %s, want published", loaded.Status)
	}
	if loaded.FinalAudioURI == "" {
		t.Fatal("expected final audio uri to persist")
	}
}

func TestUpdateErrorBackToPending(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	episode := testsupport.NewEpisode(t, store, "alice", "Retryable")

	episode.SetFailed("transcription endpoint unreachable")
	if err := store.Update(ctx, episode); err != nil {
		t.Fatalf("pending -> error: %v", err)
	}

	loaded, err := store.GetByID(ctx, episode.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if loaded.Status != queue.StatusError {
		t.Fatalf("status = %s, want error", loaded.Status)
	}
	if loaded.ErrorMessage != "transcription endpoint unreachable" {
		t.Fatalf("error message = %q", loaded.ErrorMessage)
	}

	loaded.Status = queue.StatusPending
	loaded.ErrorMessage = ""
	if err := store.Update(ctx, loaded); err != nil {
		t.Fatalf("error -> pending: %v", err)
	}
}

func TestTransitionClaimsAtomically(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	episode := testsupport.NewEpisode(t, store, "alice", "Claim")

	claimed, err := store.Transition(ctx, episode.ID, queue.StatusPending, queue.StatusProcessing)
	if err != nil {
		t.Fatalf("Transition: %v", err)
	}
	if !claimed {
		t.Fatal("expected first claim to succeed")
	}

	// A second poller racing for the same episode must lose.
	claimed, err = store.Transition(ctx, episode.ID, queue.StatusPending, queue.StatusProcessing)
	if err != nil {
		t.Fatalf("Transition: %v", err)
	}
	if claimed {
		t.Fatal("expected second claim to fail on status mismatch")
	}

	if _, err := store.Transition(ctx, episode.ID, queue.StatusProcessing, queue.StatusPublished); err == nil {
		t.Fatal("expected invalid transition to error before touching the row")
	}

	loaded, err := store.GetByID(ctx, episode.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if loaded.Status != queue.StatusProcessing {
		t.Fatalf("status = %s, want processing", loaded.Status)
	}
	if loaded.LastHeartbeat == nil {
		t.Fatal("expected claim to stamp a heartbeat")
	}
}

func TestListAndNextForStatuses(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	first := testsupport.NewEpisode(t, store, "alice", "First")
	second := testsupport.NewEpisode(t, store, "alice", "Second")
	third := testsupport.NewEpisode(t, store, "bob", "Third")

	if ok, err := store.Transition(ctx, second.ID, queue.StatusPending, queue.StatusProcessing); err != nil || !ok {
		t.Fatalf("claim second: %v %v", ok, err)
	}

	all, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("List returned %d episodes, want 3", len(all))
	}

	pending, err := store.List(ctx, queue.StatusPending)
	if err != nil {
		t.Fatalf("List pending: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("pending count = %d, want 2", len(pending))
	}

	next, err := store.NextForStatuses(ctx, queue.StatusPending)
	if err != nil {
		t.Fatalf("NextForStatuses: %v", err)
	}
	if next == nil || next.ID != first.ID {
		t.Fatalf("next pending = %+v, want episode %d", next, first.ID)
	}

	none, err := store.NextForStatuses(ctx, queue.StatusPublished)
	if err != nil {
		t.Fatalf("NextForStatuses published: %v", err)
	}
	if none != nil {
		t.Fatalf("expected nil when no episode matches, got %+v", none)
	}
	_ = third
}

func TestRequestCancelOnlyInFlight(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	episode := testsupport.NewEpisode(t, store, "alice", "Cancelable")

	ok, err := store.RequestCancel(ctx, episode.ID)
	if err != nil {
		t.Fatalf("RequestCancel: %v", err)
	}
	if !ok {
		t.Fatal("expected cancel request on pending episode to succeed")
	}

	loaded, err := store.GetByID(ctx, episode.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !loaded.CancelRequested {
		t.Fatal("expected cancel flag to persist")
	}

	loaded.Status = queue.StatusError
	loaded.ErrorMessage = "cancelled"
	if err := store.Update(ctx, loaded); err != nil {
		t.Fatalf("Update: %v", err)
	}
	ok, err = store.RequestCancel(ctx, episode.ID)
	if err != nil {
		t.Fatalf("RequestCancel: %v", err)
	}
	if ok {
		t.Fatal("expected cancel request on errored episode to be refused")
	}
}

func TestRemove(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	episode := testsupport.NewEpisode(t, store, "alice", "Gone")

	ok, err := store.Remove(ctx, episode.ID)
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if !ok {
		t.Fatal("expected removal to report a deleted row")
	}

	ok, err = store.Remove(ctx, episode.ID)
	if err != nil {
		t.Fatalf("Remove again: %v", err)
	}
	if ok {
		t.Fatal("expected second removal to find nothing")
	}
}

func TestReclaimStaleProcessing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	stale := testsupport.NewEpisode(t, store, "alice", "Stale")
	fresh := testsupport.NewEpisode(t, store, "alice", "Fresh")
	for _, episode := range []*queue.Episode{stale, fresh} {
		if ok, err := store.Transition(ctx, episode.ID, queue.StatusPending, queue.StatusProcessing); err != nil || !ok {
			t.Fatalf("claim %d: %v %v", episode.ID, ok, err)
		}
	}

	// Only the stale episode's heartbeat predates the cutoff.
	cutoff := time.Now().UTC().Add(time.Minute)
	if err := store.UpdateHeartbeat(ctx, fresh.ID); err != nil {
		t.Fatalf("UpdateHeartbeat: %v", err)
	}
	loaded, err := store.GetByID(ctx, fresh.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	future := time.Now().UTC().Add(time.Hour)
	loaded.LastHeartbeat = &future
	if err := store.Update(ctx, loaded); err != nil {
		t.Fatalf("Update: %v", err)
	}

	staleList, err := store.StaleProcessing(ctx, cutoff)
	if err != nil {
		t.Fatalf("StaleProcessing: %v", err)
	}
	if len(staleList) != 1 || staleList[0].ID != stale.ID {
		t.Fatalf("StaleProcessing = %+v, want only episode %d", staleList, stale.ID)
	}

	reclaimed, err := store.ReclaimStaleProcessing(ctx, cutoff)
	if err != nil {
		t.Fatalf("ReclaimStaleProcessing: %v", err)
	}
	if reclaimed != 1 {
		t.Fatalf("reclaimed = %d, want 1", reclaimed)
	}

	back, err := store.GetByID(ctx, stale.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if back.Status != queue.StatusPending {
		t.Fatalf("stale episode status = %s, want pending", back.Status)
	}
	if back.LastHeartbeat != nil {
		t.Fatal("expected reclaim to clear the heartbeat")
	}

	untouched, err := store.GetByID(ctx, fresh.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if untouched.Status != queue.StatusProcessing {
		t.Fatalf("fresh episode status = %s, want processing", untouched.Status)
	}
}

func TestResetStuckProcessing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	episode := testsupport.NewEpisode(t, store, "alice", "Interrupted")
	if ok, err := store.Transition(ctx, episode.ID, queue.StatusPending, queue.StatusProcessing); err != nil || !ok {
		t.Fatalf("claim: %v %v", ok, err)
	}
	testsupport.NewEpisode(t, store, "alice", "Untouched")

	reset, err := store.ResetStuckProcessing(ctx)
	if err != nil {
		t.Fatalf("ResetStuckProcessing: %v", err)
	}
	if reset != 1 {
		t.Fatalf("reset = %d, want 1", reset)
	}

	loaded, err := store.GetByID(ctx, episode.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if loaded.Status != queue.StatusPending {
		t.Fatalf("status = %s, want pending", loaded.Status)
	}
	if loaded.ProgressStage != queue.DaemonStopReason {
		t.Fatalf("progress stage = %q, want %q", loaded.ProgressStage, queue.DaemonStopReason)
	}
}

func TestRetryErrored(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	failEpisode := func(title string) *queue.Episode {
		episode := testsupport.NewEpisode(t, store, "alice", title)
		episode.SetFailed("mixing failed")
		if err := store.Update(ctx, episode); err != nil {
			t.Fatalf("Update: %v", err)
		}
		return episode
	}

	first := failEpisode("First failure")
	second := failEpisode("Second failure")
	pending := testsupport.NewEpisode(t, store, "alice", "Still pending")

	retried, err := store.RetryErrored(ctx, first.ID)
	if err != nil {
		t.Fatalf("RetryErrored selected: %v", err)
	}
	if retried != 1 {
		t.Fatalf("retried = %d, want 1", retried)
	}

	loaded, err := store.GetByID(ctx, first.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if loaded.Status != queue.StatusPending || loaded.ErrorMessage != "" {
		t.Fatalf("retried episode = status %s error %q", loaded.Status, loaded.ErrorMessage)
	}

	retried, err = store.RetryErrored(ctx)
	if err != nil {
		t.Fatalf("RetryErrored all: %v", err)
	}
	if retried != 1 {
		t.Fatalf("retried all = %d, want 1 (only episode %d remained errored)", retried, second.ID)
	}

	stillPending, err := store.GetByID(ctx, pending.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stillPending.Status != queue.StatusPending {
		t.Fatalf("pending episode status = %s", stillPending.Status)
	}
}

func TestStatsAndHealth(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.NewEpisode(t, store, "alice", "One")
	errored := testsupport.NewEpisode(t, store, "alice", "Two")
	errored.SetFailed("boom")
	if err := store.Update(ctx, errored); err != nil {
		t.Fatalf("Update: %v", err)
	}
	queued := testsupport.NewEpisode(t, store, "alice", "Three")
	if _, err := store.EnqueueJob(ctx, queued.ID, "alice", "tpl-default", queued.SourceAudioURI); err != nil {
		t.Fatalf("EnqueueJob: %v", err)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats[queue.StatusPending] != 2 || stats[queue.StatusError] != 1 {
		t.Fatalf("stats = %+v", stats)
	}

	health, err := store.Health(ctx)
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if health.Total != 3 || health.Pending != 2 || health.Errored != 1 {
		t.Fatalf("health = %+v", health)
	}
	if health.QueuedJobs != 1 {
		t.Fatalf("queued jobs = %d, want 1", health.QueuedJobs)
	}
}

func TestCheckHealth(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	testsupport.NewEpisode(t, store, "alice", "Healthy")

	health, err := store.CheckHealth(context.Background())
	if err != nil {
		t.Fatalf("CheckHealth: %v", err)
	}
	if !health.DatabaseExists || !health.DatabaseReadable || !health.TableExists {
		t.Fatalf("health = %+v", health)
	}
	if !health.IntegrityCheck {
		t.Fatal("expected integrity check to pass")
	}
	if health.TotalEpisodes != 1 {
		t.Fatalf("total episodes = %d, want 1", health.TotalEpisodes)
	}
	if health.DBPath != store.Path() {
		t.Fatalf("db path = %q, want %q", health.DBPath, store.Path())
	}
}
