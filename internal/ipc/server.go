package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"

	"mixdown/internal/api"
	"mixdown/internal/daemon"
	"mixdown/internal/logging"
	"mixdown/internal/queue"
)

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	daemon    *daemon.Daemon
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	srv := &service{daemon: d, logger: logger, ctx: ctx}
	if err := rpcServer.RegisterName("Mixdown", srv); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		daemon:    d,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				s.logger.Warn("accept failed",
					logging.Error(err),
					logging.String(logging.FieldEventType, "ipc_accept_failed"),
					logging.String(logging.FieldErrorHint, "check socket permissions and restart the daemon if needed"))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldEventType, "ipc_socket_cleanup_failed"),
			logging.String(logging.FieldErrorHint, "remove the socket file manually or rerun mixdown daemon stop"))
	}
}

type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

func (s *service) log() *slog.Logger {
	if s.logger == nil {
		return logging.NewNop()
	}
	return s.logger.With(logging.String(logging.FieldComponent, "ipc"))
}

func (s *service) Start(_ StartRequest, resp *StartResponse) error {
	s.log().Debug("daemon start requested")
	if err := s.daemon.Start(s.ctx); err != nil {
		resp.Started = false
		resp.Message = err.Error()
		return nil
	}
	resp.Started = true
	resp.Message = "daemon started"
	s.log().Info("daemon started via IPC",
		logging.String(logging.FieldEventType, "daemon_start"))
	return nil
}

func (s *service) Stop(_ StopRequest, resp *StopResponse) error {
	s.log().Debug("daemon stop requested")
	s.daemon.Stop()
	resp.Stopped = true
	s.log().Info("daemon stopped via IPC",
		logging.String(logging.FieldEventType, "daemon_stop"))
	return nil
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status := s.daemon.Status(s.ctx)
	resp.Running = status.Running
	resp.QueueDBPath = status.QueueDBPath
	resp.LockPath = status.LockFilePath
	resp.PID = status.PID
	resp.QueueStats = make(map[string]int, len(status.Workflow.QueueStats))
	for k, v := range status.Workflow.QueueStats {
		resp.QueueStats[string(k)] = v
	}
	resp.LastError = status.Workflow.LastError
	if status.Workflow.LastEpisode != nil {
		dto := api.FromEpisode(status.Workflow.LastEpisode)
		resp.LastEpisode = &dto
	}
	if health := status.Workflow.StageHealth; health.Name != "" {
		resp.StageHealth = []StageHealth{{
			Name:   health.Name,
			Ready:  health.Ready,
			Detail: health.Detail,
		}}
	}
	return nil
}

func (s *service) Assemble(req AssembleRequest, resp *AssembleResponse) error {
	if req.EpisodeID <= 0 {
		return fmt.Errorf("invalid episode id %d", req.EpisodeID)
	}
	if err := s.verifyAssemblePayload(req); err != nil {
		resp.Accepted = false
		resp.Message = err.Error()
		return err
	}
	s.log().Debug("assembly requested", logging.Int64(logging.FieldEpisodeID, req.EpisodeID))
	if err := s.daemon.Accept(s.ctx, req.EpisodeID); err != nil {
		resp.Accepted = false
		resp.Message = err.Error()
		return err
	}
	resp.Accepted = true
	resp.Message = "assembly accepted"
	s.log().Info("assembly accepted",
		logging.Int64(logging.FieldEpisodeID, req.EpisodeID),
		logging.String(logging.FieldEventType, "assembly_accepted"))
	return nil
}

// verifyAssemblePayload rejects a request whose optional fields disagree
// with the stored episode row. The row stays authoritative; the payload
// only has to be consistent with it.
func (s *service) verifyAssemblePayload(req AssembleRequest) error {
	if req.UserID == "" && req.TemplateID == "" && req.SourceAudioRef == "" {
		return nil
	}
	episode, err := s.daemon.GetEpisode(s.ctx, req.EpisodeID)
	if err != nil {
		return err
	}
	if episode == nil {
		return fmt.Errorf("episode %d not found", req.EpisodeID)
	}
	if req.UserID != "" && req.UserID != episode.UserID {
		return fmt.Errorf("episode %d belongs to user %s, not %s", req.EpisodeID, episode.UserID, req.UserID)
	}
	if req.TemplateID != "" && req.TemplateID != episode.TemplateID {
		return fmt.Errorf("episode %d uses template %s, not %s", req.EpisodeID, episode.TemplateID, req.TemplateID)
	}
	if req.SourceAudioRef != "" && req.SourceAudioRef != episode.SourceAudioURI {
		return fmt.Errorf("episode %d source audio does not match the request", req.EpisodeID)
	}
	return nil
}

func (s *service) EpisodeList(req EpisodeListRequest, resp *EpisodeListResponse) error {
	statuses := make([]queue.Status, 0, len(req.Statuses))
	for _, status := range req.Statuses {
		parsed, ok := queue.ParseStatus(status)
		if !ok {
			continue
		}
		statuses = append(statuses, parsed)
	}
	episodes, err := s.daemon.ListEpisodes(s.ctx, statuses)
	if err != nil {
		return err
	}
	resp.Episodes = api.FromEpisodes(episodes)
	return nil
}

func (s *service) EpisodeDescribe(req EpisodeDescribeRequest, resp *EpisodeDescribeResponse) error {
	if req.ID <= 0 {
		return fmt.Errorf("invalid episode id %d", req.ID)
	}
	episode, err := s.daemon.GetEpisode(s.ctx, req.ID)
	if err != nil {
		return err
	}
	if episode == nil {
		return fmt.Errorf("episode %d not found", req.ID)
	}
	dto := api.FromEpisode(episode)
	if job, err := s.daemon.QueuedJobForEpisode(s.ctx, req.ID); err == nil {
		dto.QueuedJob = api.FromQueuedJob(job)
	}
	resp.Episode = dto
	return nil
}

func (s *service) EpisodeRetry(req EpisodeRetryRequest, resp *EpisodeRetryResponse) error {
	s.log().Debug("episode retry requested", logging.Int("episode_count", len(req.IDs)))
	updated, err := s.daemon.RetryErrored(s.ctx, req.IDs)
	if err != nil {
		return err
	}
	resp.Updated = updated
	s.log().Info("episodes retried",
		logging.String(logging.FieldEventType, "episode_retry"),
		logging.Int64("updated_count", updated))
	return nil
}

func (s *service) EpisodeCancel(req EpisodeCancelRequest, resp *EpisodeCancelResponse) error {
	if req.ID <= 0 {
		return fmt.Errorf("invalid episode id %d", req.ID)
	}
	cancelled, err := s.daemon.CancelEpisode(s.ctx, req.ID)
	if err != nil {
		return err
	}
	resp.Cancelled = cancelled
	s.log().Info("episode cancel requested",
		logging.Int64(logging.FieldEpisodeID, req.ID),
		logging.String(logging.FieldEventType, "episode_cancel"),
		logging.Bool("cancelled", cancelled))
	return nil
}

func (s *service) EpisodeRemove(req EpisodeRemoveRequest, resp *EpisodeRemoveResponse) error {
	if len(req.IDs) == 0 {
		return errors.New("episode remove requires at least one id")
	}
	removed, err := s.daemon.RemoveEpisodes(s.ctx, req.IDs)
	if err != nil {
		return err
	}
	resp.Removed = removed
	s.log().Info("episodes removed",
		logging.String(logging.FieldEventType, "episode_remove"),
		logging.Int64("removed_count", removed))
	return nil
}

func (s *service) QueueReset(_ QueueResetRequest, resp *QueueResetResponse) error {
	s.log().Debug("queue reset requested")
	updated, err := s.daemon.ResetStuck(s.ctx)
	if err != nil {
		return err
	}
	resp.Updated = updated
	s.log().Info("stuck episodes reset",
		logging.String(logging.FieldEventType, "queue_reset_stuck"),
		logging.Int64("updated_count", updated))
	return nil
}

func (s *service) QueueHealth(_ QueueHealthRequest, resp *QueueHealthResponse) error {
	health, err := s.daemon.QueueHealth(s.ctx)
	if err != nil {
		return err
	}
	resp.Total = health.Total
	resp.Pending = health.Pending
	resp.Processing = health.Processing
	resp.Processed = health.Processed
	resp.Published = health.Published
	resp.Errored = health.Errored
	resp.QueuedJobs = health.QueuedJobs
	return nil
}

func (s *service) DatabaseHealth(_ DatabaseHealthRequest, resp *DatabaseHealthResponse) error {
	health, err := s.daemon.DatabaseHealth(s.ctx)
	if err != nil && health.Error == "" {
		return err
	}
	resp.DBPath = health.DBPath
	resp.DatabaseExists = health.DatabaseExists
	resp.DatabaseReadable = health.DatabaseReadable
	resp.TableExists = health.TableExists
	resp.IntegrityCheck = health.IntegrityCheck
	resp.TotalEpisodes = health.TotalEpisodes
	resp.Error = health.Error
	return err
}
