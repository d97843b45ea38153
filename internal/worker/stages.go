package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"mixdown/internal/artifacts"
	"mixdown/internal/audio"
	"mixdown/internal/chunker"
	"mixdown/internal/editing"
	"mixdown/internal/logging"
	"mixdown/internal/mixer"
	"mixdown/internal/queue"
	"mixdown/internal/services"
	"mixdown/internal/template"
	"mixdown/internal/transcript"
)

// assemblyState carries intermediate results between substages. Every
// durable artifact it references is also recorded on the episode row, so a
// restarted daemon can rebuild this state from the store.
type assemblyState struct {
	episode *queue.Episode
	workDir string

	sourcePath string
	sourceClip *audio.Clip
	tr         *transcript.Transcript
	edited     *audio.Clip
	editedTr   *transcript.Transcript
	warnings   []string
	final      *audio.Clip
}

func (r *Runtime) fetchSource(ctx context.Context, state *assemblyState) error {
	episode := state.episode
	asset := artifacts.MediaAsset{URI: episode.SourceAudioURI}
	path, err := asset.Resolve(ctx, r.artifacts, state.workDir)
	if err != nil {
		return services.Wrap(services.ErrTransientStorage, "assembly", "fetch",
			"source audio missing from artifact store; re-upload the recording", err)
	}
	clip, err := audio.DecodeWAVFile(path)
	if err != nil {
		return err
	}
	state.sourcePath = path
	state.sourceClip = clip
	return nil
}

// transcribe obtains the word-level transcript, reusing a previously stored
// one when the episode already carries its URI.
func (r *Runtime) transcribe(ctx context.Context, state *assemblyState) error {
	episode := state.episode
	if strings.TrimSpace(episode.TranscriptURI) != "" {
		tr, err := r.loadTranscript(ctx, episode.TranscriptURI)
		if err == nil {
			state.tr = tr
			return nil
		}
		logging.WithContext(ctx, r.logger).Warn("stored transcript unreadable, re-transcribing",
			logging.String("uri", episode.TranscriptURI),
			logging.Error(err))
	}

	tr, err := r.transcriber.Transcribe(ctx, state.sourcePath)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := tr.Encode(&buf); err != nil {
		return fmt.Errorf("encode transcript: %w", err)
	}
	key := artifacts.StageArtifactKey(episode.UserID, episode.ID, "transcribe", "transcript.json")
	uri, err := r.artifacts.Put(ctx, key, &buf)
	if err != nil {
		return services.Wrap(services.ErrTransientStorage, "assembly", "transcribe",
			"persisting transcript artifact", err)
	}
	episode.TranscriptURI = uri
	state.tr = tr
	return nil
}

// edit runs marker-driven cuts over bounded-concurrency chunks and persists
// the reassembled result as the edited master.
func (r *Runtime) edit(ctx context.Context, state *assemblyState) error {
	episode := state.episode
	engine := editing.NewEngine(r.cfg.Assembly, r.logger)
	processor := chunker.NewProcessor(r.cfg.Assembly, engine, r.artifacts, r.logger)

	result, err := processor.Process(ctx, episode.UserID, episode.ID, state.sourceClip, state.tr)
	if err != nil {
		return err
	}
	for _, warning := range result.Warnings {
		state.warnings = append(state.warnings, warning.Message)
	}

	editedPath := filepath.Join(state.workDir, "edited.wav")
	if err := audio.EncodeWAVFile(editedPath, result.Clip); err != nil {
		return err
	}
	key := artifacts.StageArtifactKey(episode.UserID, episode.ID, "edit", "edited.wav")
	asset, err := artifacts.StoreFile(ctx, r.artifacts, key, editedPath)
	if err != nil {
		return services.Wrap(services.ErrTransientStorage, "assembly", "edit",
			"persisting edited master", err)
	}
	episode.EditedAudioURI = asset.URI
	state.edited = result.Clip
	state.editedTr = result.Transcript
	return nil
}

func (r *Runtime) mix(ctx context.Context, state *assemblyState) error {
	episode := state.episode
	tpl, err := template.Load(ctx, r.artifacts, episode.UserID, episode.TemplateID)
	if err != nil {
		return services.Wrap(services.ErrValidation, "assembly", "mix",
			fmt.Sprintf("loading template %s", episode.TemplateID), err)
	}

	mx := mixer.New(r.cfg.Assembly, r.artifacts, r.synth, r.logger)
	result, err := mx.Mix(ctx, state.workDir, state.edited, state.editedTr, tpl)
	if err != nil {
		return err
	}
	state.warnings = append(state.warnings, result.Warnings...)
	state.final = result.Clip
	return nil
}

// finalize encodes the mixed episode, uploads it under its canonical final
// key, and records accumulated warnings on the episode row.
func (r *Runtime) finalize(ctx context.Context, state *assemblyState) error {
	episode := state.episode
	finalPath := filepath.Join(state.workDir, "final.wav")
	if err := audio.EncodeWAVFile(finalPath, state.final); err != nil {
		return err
	}
	key := artifacts.FinalKey(episode.UserID, episode.ID, "episode.wav")
	asset, err := artifacts.StoreFile(ctx, r.artifacts, key, finalPath)
	if err != nil {
		return services.Wrap(services.ErrTransientStorage, "assembly", "finalize",
			"persisting final episode audio", err)
	}
	episode.FinalAudioURI = asset.URI

	if len(state.warnings) > 0 {
		encoded, err := json.Marshal(state.warnings)
		if err != nil {
			return fmt.Errorf("marshal warnings: %w", err)
		}
		episode.WarningsJSON = string(encoded)
	}
	return nil
}

func (r *Runtime) loadTranscript(ctx context.Context, uri string) (*transcript.Transcript, error) {
	key, err := artifacts.URIToKey(uri)
	if err != nil {
		return nil, err
	}
	rc, err := r.artifacts.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return transcript.Decode(rc)
}
