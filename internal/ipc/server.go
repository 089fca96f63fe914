package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"path/filepath"
	"sync"
	"time"

	"log/slog"

	"reelforge/internal/batch"
	"reelforge/internal/config"
	"reelforge/internal/daemon"
	"reelforge/internal/logging"
	"reelforge/internal/logs"
	"reelforge/internal/queue"
)

// SocketFileName is the Unix socket the daemon serves IPC on.
const SocketFileName = "reelforged.sock"

// SocketPath returns the daemon socket location for a configuration.
func SocketPath(cfg *config.Config) string {
	return filepath.Join(cfg.Paths.LogDir, SocketFileName)
}

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

// NewServer configures the IPC server at the given socket path. The shutdown
// callback is invoked after a stop request so the hosting process can exit;
// it may be nil when the host handles termination some other way.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger, shutdown func()) (*Server, error) {
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
	srv := &service{daemon: d, logger: logger, ctx: ctx, shutdown: shutdown}
	if err := rpcServer.RegisterName("Reelforge", srv); err != nil {
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
					logging.String(logging.FieldImpact, "IPC clients may fail to connect"),
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
			logging.String(logging.FieldImpact, "stale IPC socket may block future starts"),
			logging.String(logging.FieldErrorHint, "remove the socket file manually or rerun reelforge stop"))
	}
}

type service struct {
	daemon   *daemon.Daemon
	logger   *slog.Logger
	ctx      context.Context
	shutdown func()
}

func (s *service) log() *slog.Logger {
	if s.logger == nil {
		return logging.NewNop()
	}
	return s.logger.With(logging.String(logging.FieldComponent, "ipc"))
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status, err := s.daemon.Status(s.ctx)
	if err != nil {
		return err
	}
	resp.Running = status.Running
	resp.PID = status.PID
	resp.StartedAt = formatTime(status.Started)
	resp.UptimeSeconds = status.Uptime.Seconds()
	resp.Workers = status.Workers
	resp.LockPath = status.LockPath
	resp.QueueDBPath = status.QueueDBPath
	resp.Queue = FromHealthSummary(status.Queue)
	resp.Checks = FromPreflightResults(status.Checks)
	return nil
}

func (s *service) Stop(_ StopRequest, resp *StopResponse) error {
	s.log().Debug("daemon stop requested")
	s.daemon.Stop()
	resp.Stopped = true
	s.log().Info("daemon stopped via IPC",
		logging.String(logging.FieldEventType, "daemon_stop"))
	if s.shutdown != nil {
		s.shutdown()
	}
	return nil
}

func (s *service) QueueList(req QueueListRequest, resp *QueueListResponse) error {
	statuses := make([]queue.Status, 0, len(req.Statuses))
	for _, raw := range req.Statuses {
		parsed, ok := queue.ParseStatus(raw)
		if !ok {
			return fmt.Errorf("unknown status %q", raw)
		}
		statuses = append(statuses, parsed)
	}
	jobs, err := s.daemon.QueueList(s.ctx, statuses, req.Category)
	if err != nil {
		return err
	}
	resp.Jobs = FromQueueJobs(jobs)
	return nil
}

func (s *service) QueueStats(_ QueueStatsRequest, resp *QueueStatsResponse) error {
	summary, err := s.daemon.QueueStats(s.ctx)
	if err != nil {
		return err
	}
	resp.Stats = FromHealthSummary(summary)
	return nil
}

func (s *service) QueueHealth(_ QueueHealthRequest, resp *QueueHealthResponse) error {
	health, err := s.daemon.QueueHealth(s.ctx)
	if err != nil && health.Error == "" {
		return err
	}
	*resp = FromDatabaseHealth(health)
	return err
}

func (s *service) Enqueue(req EnqueueRequest, resp *EnqueueResponse) error {
	s.log().Debug("enqueue requested", logging.String("topic", req.Topic))
	job, err := s.daemon.Enqueue(s.ctx, req.Topic, req.Category, req.PromptHash, req.MetaJSON)
	if err != nil {
		return err
	}
	resp.Job = FromQueueJob(job)
	s.log().Info("job enqueued via IPC",
		logging.String(logging.FieldJobID, resp.Job.ID),
		logging.String("topic", resp.Job.Topic),
		logging.String(logging.FieldEventType, "job_enqueued"))
	return nil
}

func (s *service) EnqueueBatch(req EnqueueBatchRequest, resp *EnqueueBatchResponse) error {
	s.log().Debug("batch enqueue requested", logging.String("file", req.Path))
	report, err := s.daemon.EnqueueBatch(s.ctx, req.Path, batch.Options{
		Category: req.Category,
		Resume:   req.Resume,
	})
	if err != nil {
		return err
	}
	resp.Report = FromBatchReport(report)
	s.log().Info("batch enqueued via IPC",
		logging.String("file", req.Path),
		logging.Int("topics", len(resp.Report.Entries)),
		logging.String(logging.FieldEventType, "batch_enqueued"))
	return nil
}

func (s *service) QueueRetry(req QueueRetryRequest, resp *QueueRetryResponse) error {
	s.log().Debug("queue retry requested", logging.String("category", req.Category))
	reset, err := s.daemon.RetryFailed(s.ctx, req.Category)
	if err != nil {
		return err
	}
	resp.Reset = reset
	s.log().Info("failed jobs reset",
		logging.String(logging.FieldEventType, "queue_retry"),
		logging.Int("reset_count", reset))
	return nil
}

func (s *service) QueueReset(req QueueResetRequest, resp *QueueResetResponse) error {
	if req.ID == "" {
		return errors.New("queue reset requires a job id")
	}
	s.log().Debug("queue reset requested", logging.String(logging.FieldJobID, req.ID))
	if err := s.daemon.ResetJob(s.ctx, req.ID); err != nil {
		return err
	}
	resp.Reset = true
	s.log().Info("job reset",
		logging.String(logging.FieldJobID, req.ID),
		logging.String(logging.FieldEventType, "queue_reset"))
	return nil
}

func (s *service) FailStuck(req FailStuckRequest, resp *FailStuckResponse) error {
	s.log().Debug("fail stuck requested", logging.Int("timeout_seconds", req.TimeoutSeconds))
	failed, err := s.daemon.FailStuck(s.ctx, time.Duration(req.TimeoutSeconds)*time.Second)
	if err != nil {
		return err
	}
	resp.Failed = failed
	s.log().Info("stuck jobs failed",
		logging.String(logging.FieldEventType, "queue_fail_stuck"),
		logging.Int64("failed_count", failed))
	return nil
}

func (s *service) Rate(req RateRequest, resp *RateResponse) error {
	if req.ID == "" {
		return errors.New("rate requires a job id")
	}
	if err := s.daemon.Rate(s.ctx, req.ID, req.Rating); err != nil {
		return err
	}
	resp.Rated = true
	s.log().Info("job rated",
		logging.String(logging.FieldJobID, req.ID),
		logging.Int("rating", req.Rating),
		logging.String(logging.FieldEventType, "job_rated"))
	return nil
}

func (s *service) QueueDelete(req QueueDeleteRequest, resp *QueueDeleteResponse) error {
	if req.ID == "" {
		return errors.New("queue delete requires a job id")
	}
	s.log().Debug("queue delete requested", logging.String(logging.FieldJobID, req.ID))
	removed, err := s.daemon.DeleteJob(s.ctx, req.ID)
	if err != nil {
		return err
	}
	resp.Removed = removed
	s.log().Info("job deleted",
		logging.String(logging.FieldJobID, req.ID),
		logging.Bool("removed", removed),
		logging.String(logging.FieldEventType, "queue_delete"))
	return nil
}

func (s *service) QueueClear(req QueueClearRequest, resp *QueueClearResponse) error {
	s.log().Debug("queue clear requested", logging.String("status", req.Status))
	removed, err := s.daemon.ClearStatus(s.ctx, req.Status)
	if err != nil {
		return err
	}
	resp.Removed = removed
	s.log().Info("queue cleared",
		logging.String("status", req.Status),
		logging.String(logging.FieldEventType, "queue_clear"),
		logging.Int64("removed_count", removed))
	return nil
}

func (s *service) CacheClearExpired(_ CacheClearExpiredRequest, resp *CacheClearExpiredResponse) error {
	s.log().Debug("cache clear expired requested")
	removed, err := s.daemon.CacheClearExpired(s.ctx)
	if err != nil {
		return err
	}
	resp.Removed = removed
	s.log().Info("expired cache entries cleared",
		logging.String(logging.FieldEventType, "cache_clear_expired"),
		logging.Int64("removed_count", removed))
	return nil
}

func (s *service) TestNotification(_ TestNotificationRequest, resp *TestNotificationResponse) error {
	if err := s.daemon.TestNotification(s.ctx); err != nil {
		return err
	}
	resp.Sent = true
	return nil
}

func (s *service) LogTail(req LogTailRequest, resp *LogTailResponse) error {
	logPath := s.daemon.LogPath()
	if logPath == "" {
		resp.Offset = 0
		return nil
	}
	wait := time.Duration(req.WaitMillis) * time.Millisecond
	if wait <= 0 && req.Follow {
		wait = time.Second
	}
	options := logs.TailOptions{
		Offset: req.Offset,
		Limit:  req.Limit,
		Follow: req.Follow,
		Wait:   wait,
	}
	ctx := s.ctx
	if req.Follow && wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(s.ctx, wait+500*time.Millisecond)
		defer cancel()
	}
	result, err := logs.Tail(ctx, logPath, options)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			resp.Offset = result.Offset
			return nil
		}
		return err
	}
	resp.Lines = result.Lines
	resp.Offset = result.Offset
	return nil
}
