package queue_test

import (
	"context"
	"testing"

	"mixdown/internal/queue"
	"mixdown/internal/testsupport"
)

func TestEnqueueJobRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	episode := testsupport.NewEpisode(t, store, "alice", "Deferred")

	job, err := store.EnqueueJob(ctx, episode.ID, "alice", "weekly", episode.SourceAudioURI)
	if err != nil {
		t.Fatalf("EnqueueJob: %v", err)
	}
	if job.ID == 0 {
		t.Fatal("expected persisted job to have an id")
	}
	if job.State != queue.JobQueued {
		t.Fatalf("state = %s, want queued", job.State)
	}
	if job.Attempts != 0 {
		t.Fatalf("attempts = %d, want 0", job.Attempts)
	}

	loaded, err := store.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if loaded.EpisodeID != episode.ID || loaded.TemplateID != "weekly" {
		t.Fatalf("unexpected job fields: %+v", loaded)
	}
	if loaded.SourceAudio != episode.SourceAudioURI {
		t.Fatalf("source audio = %q", loaded.SourceAudio)
	}
	if loaded.LastAttemptAt != nil {
		t.Fatal("new job should have no attempt timestamp")
	}
}

func TestQueuedJobsOrderedByCreation(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	first := testsupport.NewEpisode(t, store, "alice", "First")
	second := testsupport.NewEpisode(t, store, "alice", "Second")

	firstJob, err := store.EnqueueJob(ctx, first.ID, "alice", "tpl-default", first.SourceAudioURI)
	if err != nil {
		t.Fatalf("EnqueueJob: %v", err)
	}
	secondJob, err := store.EnqueueJob(ctx, second.ID, "alice", "tpl-default", second.SourceAudioURI)
	if err != nil {
		t.Fatalf("EnqueueJob: %v", err)
	}

	if err := store.ResolveJob(ctx, firstJob.ID, queue.JobDone, ""); err != nil {
		t.Fatalf("ResolveJob: %v", err)
	}

	queued, err := store.QueuedJobs(ctx)
	if err != nil {
		t.Fatalf("QueuedJobs: %v", err)
	}
	if len(queued) != 1 || queued[0].ID != secondJob.ID {
		t.Fatalf("QueuedJobs = %+v, want only job %d", queued, secondJob.ID)
	}
}

func TestMarkJobAttempt(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	episode := testsupport.NewEpisode(t, store, "alice", "Retrying")

	job, err := store.EnqueueJob(ctx, episode.ID, "alice", "tpl-default", episode.SourceAudioURI)
	if err != nil {
		t.Fatalf("EnqueueJob: %v", err)
	}

	if err := store.MarkJobAttempt(ctx, job.ID, "worker busy"); err != nil {
		t.Fatalf("MarkJobAttempt: %v", err)
	}
	if err := store.MarkJobAttempt(ctx, job.ID, "worker busy again"); err != nil {
		t.Fatalf("MarkJobAttempt: %v", err)
	}

	loaded, err := store.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if loaded.Attempts != 2 {
		t.Fatalf("attempts = %d, want 2", loaded.Attempts)
	}
	if loaded.LastError != "worker busy again" {
		t.Fatalf("last error = %q", loaded.LastError)
	}
	if loaded.LastAttemptAt == nil {
		t.Fatal("expected attempt timestamp")
	}
	if loaded.State != queue.JobQueued {
		t.Fatalf("state = %s, attempts must not resolve the job", loaded.State)
	}
}

func TestResolveJobRejectsQueuedState(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	episode := testsupport.NewEpisode(t, store, "alice", "Terminal")

	job, err := store.EnqueueJob(ctx, episode.ID, "alice", "tpl-default", episode.SourceAudioURI)
	if err != nil {
		t.Fatalf("EnqueueJob: %v", err)
	}

	if err := store.ResolveJob(ctx, job.ID, queue.JobQueued, ""); err == nil {
		t.Fatal("expected resolving back to queued to be rejected")
	}

	if err := store.ResolveJob(ctx, job.ID, queue.JobAbandoned, "no worker for 24h"); err != nil {
		t.Fatalf("ResolveJob: %v", err)
	}
	loaded, err := store.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if loaded.State != queue.JobAbandoned {
		t.Fatalf("state = %s, want abandoned", loaded.State)
	}
	if loaded.LastError != "no worker for 24h" {
		t.Fatalf("last error = %q", loaded.LastError)
	}
}

func TestQueuedJobForEpisode(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	episode := testsupport.NewEpisode(t, store, "alice", "Lookup")

	none, err := store.QueuedJobForEpisode(ctx, episode.ID)
	if err != nil {
		t.Fatalf("QueuedJobForEpisode: %v", err)
	}
	if none != nil {
		t.Fatalf("expected nil before enqueue, got %+v", none)
	}

	job, err := store.EnqueueJob(ctx, episode.ID, "alice", "tpl-default", episode.SourceAudioURI)
	if err != nil {
		t.Fatalf("EnqueueJob: %v", err)
	}

	found, err := store.QueuedJobForEpisode(ctx, episode.ID)
	if err != nil {
		t.Fatalf("QueuedJobForEpisode: %v", err)
	}
	if found == nil || found.ID != job.ID {
		t.Fatalf("found = %+v, want job %d", found, job.ID)
	}

	if err := store.ResolveJob(ctx, job.ID, queue.JobDone, ""); err != nil {
		t.Fatalf("ResolveJob: %v", err)
	}
	resolved, err := store.QueuedJobForEpisode(ctx, episode.ID)
	if err != nil {
		t.Fatalf("QueuedJobForEpisode: %v", err)
	}
	if resolved != nil {
		t.Fatalf("expected nil after resolve, got %+v", resolved)
	}
}
