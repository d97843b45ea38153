package chunker

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"mixdown/internal/artifacts"
	"mixdown/internal/audio"
	"mixdown/internal/config"
	"mixdown/internal/editing"
	"mixdown/internal/logging"
	"mixdown/internal/services"
	"mixdown/internal/transcript"
)

// StageName is the artifact-store stage under which chunk outputs persist.
const StageName = "chunks"

// Result is the reassembled output of chunked processing.
type Result struct {
	Clip       *audio.Clip
	Transcript *transcript.Transcript
	Chunks     int
	Warnings   []editing.Warning
}

type chunkOutcome struct {
	chunk    Chunk
	clip     *audio.Clip
	tr       *transcript.Transcript
	warnings []editing.Warning
	err      error
}

// Processor runs the edit engine per chunk under a bounded worker pool.
type Processor struct {
	cfg    config.Assembly
	engine *editing.Engine
	store  artifacts.Store
	logger *slog.Logger
}

// NewProcessor constructs a chunked processor.
func NewProcessor(cfg config.Assembly, engine *editing.Engine, store artifacts.Store, logger *slog.Logger) *Processor {
	return &Processor{
		cfg:    cfg,
		engine: engine,
		store:  store,
		logger: logging.NewComponentLogger(logger, "chunker"),
	}
}

// Process splits, edits, and reassembles one recording. Peak memory is
// bounded by pool size times the per-chunk decode buffer. A failed chunk
// never aborts siblings; their artifacts stay in the store for diagnosis,
// and the stage fails with a partial-stage error naming the failed chunks.
func (p *Processor) Process(ctx context.Context, ownerID string, episodeID int64, clip *audio.Clip, tr *transcript.Transcript) (*Result, error) {
	chunks := Plan(tr, clip.DurationMs(), int64(p.cfg.ChunkSeconds)*1000)
	logger := logging.WithContext(ctx, p.logger)
	logger.Info("chunk plan ready",
		logging.Int("chunks", len(chunks)),
		logging.Int("pool", p.cfg.WorkerPool),
		logging.Int64("total_ms", clip.DurationMs()),
	)

	outcomes := make([]chunkOutcome, len(chunks))
	var group errgroup.Group
	group.SetLimit(p.cfg.WorkerPool)
	for i, chunk := range chunks {
		i, chunk := i, chunk
		group.Go(func() error {
			outcomes[i] = p.processChunk(ctx, ownerID, episodeID, chunk, clip, tr)
			return nil
		})
	}
	_ = group.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var failed []int
	var firstErr error
	for _, outcome := range outcomes {
		if outcome.err != nil {
			failed = append(failed, outcome.chunk.Index)
			if firstErr == nil {
				firstErr = outcome.err
			}
		}
	}
	if len(failed) > 0 {
		sort.Ints(failed)
		return nil, services.Wrap(services.ErrPartialStage, "chunker", "process",
			fmt.Sprintf("chunks %s failed; sibling artifacts preserved under stage %q", formatIndexes(failed), StageName),
			firstErr)
	}

	return p.reassemble(outcomes)
}

func (p *Processor) processChunk(ctx context.Context, ownerID string, episodeID int64, chunk Chunk, clip *audio.Clip, tr *transcript.Transcript) chunkOutcome {
	outcome := chunkOutcome{chunk: chunk}
	if err := ctx.Err(); err != nil {
		outcome.err = err
		return outcome
	}

	part := clip.SliceMs(chunk.StartMs, chunk.EndMs)
	localTr := tr.Slice(chunk.StartMs, chunk.EndMs)

	edited, err := p.engine.Apply(part, localTr)
	if err != nil {
		outcome.err = fmt.Errorf("chunk %d: %w", chunk.Index, err)
		return outcome
	}

	trimmed := p.trimTail(edited.Clip, edited.Transcript)

	if err := p.persistChunk(ctx, ownerID, episodeID, chunk.Index, trimmed, edited.Transcript); err != nil {
		outcome.err = fmt.Errorf("chunk %d: %w", chunk.Index, err)
		return outcome
	}

	outcome.clip = trimmed
	outcome.tr = edited.Transcript
	outcome.warnings = edited.Warnings
	return outcome
}

// trimTail removes trailing silence but never audio covered by the transcript.
func (p *Processor) trimTail(clip *audio.Clip, tr *transcript.Transcript) *audio.Clip {
	trimmed := audio.TrimTrailingSilence(clip, p.cfg.SilenceFloor, p.cfg.TrailingKeepMs)
	if trimmed.DurationMs() < tr.DurationMs() {
		return clip.SliceMs(0, tr.DurationMs())
	}
	return trimmed
}

func (p *Processor) persistChunk(ctx context.Context, ownerID string, episodeID int64, index int, clip *audio.Clip, tr *transcript.Transcript) error {
	wavPath := filepath.Join(os.TempDir(), fmt.Sprintf("mixdown-chunk-%d-%03d.wav", episodeID, index))
	if err := audio.EncodeWAVFile(wavPath, clip); err != nil {
		return err
	}
	defer os.Remove(wavPath)

	audioKey := artifacts.StageArtifactKey(ownerID, episodeID, StageName, fmt.Sprintf("chunk_%03d.wav", index))
	if _, err := artifacts.StoreFile(ctx, p.store, audioKey, wavPath); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := tr.Encode(&buf); err != nil {
		return fmt.Errorf("encode chunk transcript: %w", err)
	}
	trKey := artifacts.StageArtifactKey(ownerID, episodeID, StageName, fmt.Sprintf("chunk_%03d.json", index))
	if _, err := p.store.Put(ctx, trKey, &buf); err != nil {
		return err
	}
	return nil
}

// reassemble joins chunk outputs strictly in plan order. The join applies
// in-place declick ramps, so output frames must equal the sum of kept chunk
// frames; a mismatch is a defect, not a tolerance.
func (p *Processor) reassemble(outcomes []chunkOutcome) (*Result, error) {
	clips := make([]*audio.Clip, 0, len(outcomes))
	var warnings []editing.Warning
	keptFrames := 0
	for _, outcome := range outcomes {
		clips = append(clips, outcome.clip)
		keptFrames += outcome.clip.Frames()
		warnings = append(warnings, outcome.warnings...)
	}

	joined, err := audio.JoinDeclick(clips, p.cfg.SeamFadeMillis)
	if err != nil {
		return nil, services.Wrap(services.ErrUnknown, "chunker", "reassemble", "join chunks", err)
	}
	if joined.Frames() != keptFrames {
		return nil, services.Wrap(services.ErrUnknown, "chunker", "reassemble",
			fmt.Sprintf("sample accounting mismatch: joined %d frames, chunks kept %d", joined.Frames(), keptFrames), nil)
	}

	combined := &transcript.Transcript{}
	var offsetMs int64
	for _, outcome := range outcomes {
		combined.Append(outcome.tr.Shift(offsetMs))
		offsetMs += outcome.clip.DurationMs()
	}

	return &Result{
		Clip:       joined,
		Transcript: combined,
		Chunks:     len(outcomes),
		Warnings:   warnings,
	}, nil
}

func formatIndexes(indexes []int) string {
	parts := make([]string, len(indexes))
	for i, idx := range indexes {
		parts[i] = fmt.Sprintf("%d", idx)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
