package ipc_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"mixdown/internal/config"
	"mixdown/internal/daemon"
	"mixdown/internal/ipc"
	"mixdown/internal/queue"
	"mixdown/internal/stage"
	"mixdown/internal/testsupport"
	"mixdown/internal/workflow"
)

type passHandler struct{}

func (passHandler) Prepare(ctx context.Context, episode *queue.Episode) error { return nil }

func (passHandler) Execute(ctx context.Context, episode *queue.Episode) error {
	episode.SetProgressComplete("Processed", "Assembly complete")
	return nil
}

func (passHandler) HealthCheck(ctx context.Context) stage.Health {
	return stage.Healthy("assembly")
}

func newTestServer(t *testing.T, cfg *config.Config, store *queue.Store) *ipc.Client {
	t.Helper()

	manager := workflow.NewManager(cfg, store, passHandler{}, nil)
	d, err := daemon.New(cfg, store, manager, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	server, err := ipc.NewServer(ctx, cfg.Paths.SocketPath, d, nil)
	if err != nil {
		cancel()
		t.Fatalf("ipc.NewServer: %v", err)
	}
	server.Serve()
	t.Cleanup(func() {
		d.Stop()
		server.Close()
		cancel()
	})

	client, err := ipc.Dial(cfg.Paths.SocketPath)
	if err != nil {
		t.Fatalf("ipc.Dial: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestControlPlaneRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	episode := testsupport.NewEpisode(t, store, "alice", "Over the wire")
	client := newTestServer(t, cfg, store)

	status, err := client.Status()
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.Running {
		t.Fatal("workflow has not been started")
	}
	if status.QueueDBPath != store.Path() {
		t.Fatalf("queue db path = %q, want %q", status.QueueDBPath, store.Path())
	}
	if status.QueueStats["pending"] != 1 {
		t.Fatalf("queue stats = %+v", status.QueueStats)
	}

	// A stopped daemon refuses assembly hand-offs.
	if _, err := client.Assemble(ipc.AssembleRequest{EpisodeID: episode.ID}); err == nil {
		t.Fatal("expected Assemble to fail while the daemon is stopped")
	}

	list, err := client.EpisodeList([]string{"pending"})
	if err != nil {
		t.Fatalf("EpisodeList: %v", err)
	}
	if len(list.Episodes) != 1 || list.Episodes[0].ID != episode.ID {
		t.Fatalf("episodes = %+v", list.Episodes)
	}

	describe, err := client.EpisodeDescribe(episode.ID)
	if err != nil {
		t.Fatalf("EpisodeDescribe: %v", err)
	}
	if describe.Episode.Title != "Over the wire" || describe.Episode.Status != "pending" {
		t.Fatalf("episode = %+v", describe.Episode)
	}

	cancelResp, err := client.EpisodeCancel(episode.ID)
	if err != nil {
		t.Fatalf("EpisodeCancel: %v", err)
	}
	if !cancelResp.Cancelled {
		t.Fatal("expected pending episode to accept the cancel flag")
	}

	health, err := client.QueueHealth()
	if err != nil {
		t.Fatalf("QueueHealth: %v", err)
	}
	if health.Total != 1 || health.Pending != 1 {
		t.Fatalf("health = %+v", health)
	}

	dbHealth, err := client.DatabaseHealth()
	if err != nil {
		t.Fatalf("DatabaseHealth: %v", err)
	}
	if !dbHealth.DatabaseExists || !dbHealth.IntegrityCheck {
		t.Fatalf("db health = %+v", dbHealth)
	}

	removed, err := client.EpisodeRemove([]int64{episode.ID})
	if err != nil {
		t.Fatalf("EpisodeRemove: %v", err)
	}
	if removed.Removed != 1 {
		t.Fatalf("removed = %d, want 1", removed.Removed)
	}
}

func TestStartStopLifecycle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Workflow.QueuePollInterval = 1
	store := testsupport.MustOpenStore(t, cfg)
	episode := testsupport.NewEpisode(t, store, "alice", "Daemon lifecycle")
	client := newTestServer(t, cfg, store)

	started, err := client.Start()
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !started.Started {
		t.Fatalf("start response = %+v", started)
	}

	again, err := client.Start()
	if err != nil {
		t.Fatalf("Start again: %v", err)
	}
	if again.Started {
		t.Fatal("expected second start to be refused")
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		loaded, err := store.GetByID(context.Background(), episode.ID)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if loaded.Status == queue.StatusProcessed {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("episode never processed, status = %s", loaded.Status)
		}
		time.Sleep(20 * time.Millisecond)
	}

	stopped, err := client.Stop()
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if !stopped.Stopped {
		t.Fatal("expected stop to succeed")
	}

	status, err := client.Status()
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.Running {
		t.Fatal("expected daemon to report stopped")
	}
}

func TestAssembleVerifiesRequestPayload(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	episode := testsupport.NewEpisode(t, store, "alice", "Self-contained request")
	client := newTestServer(t, cfg, store)

	// Payload consistency is checked before the running gate, so the
	// mismatch surfaces even on a stopped daemon.
	_, err := client.Assemble(ipc.AssembleRequest{EpisodeID: episode.ID, UserID: "mallory"})
	if err == nil || !strings.Contains(err.Error(), "belongs to user") {
		t.Fatalf("mismatched user: %v", err)
	}
	_, err = client.Assemble(ipc.AssembleRequest{EpisodeID: episode.ID, TemplateID: "tpl-other"})
	if err == nil || !strings.Contains(err.Error(), "uses template") {
		t.Fatalf("mismatched template: %v", err)
	}
	_, err = client.Assemble(ipc.AssembleRequest{EpisodeID: episode.ID, SourceAudioRef: "artifact://alice/other.wav"})
	if err == nil || !strings.Contains(err.Error(), "source audio") {
		t.Fatalf("mismatched source: %v", err)
	}

	// A consistent payload clears verification and reaches the running
	// gate instead.
	_, err = client.Assemble(ipc.AssembleRequest{
		EpisodeID:      episode.ID,
		TemplateID:     episode.TemplateID,
		SourceAudioRef: episode.SourceAudioURI,
		UserID:         episode.UserID,
	})
	if err == nil || !strings.Contains(err.Error(), "not processing") {
		t.Fatalf("full payload: %v", err)
	}
}
