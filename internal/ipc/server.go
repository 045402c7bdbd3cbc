package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"
	"time"

	"log/slog"

	"upkeep/internal/config"
	"upkeep/internal/daemon"
	"upkeep/internal/logging"
	"upkeep/internal/logs"
	"upkeep/internal/notifications"
	"upkeep/internal/runner"
	"upkeep/internal/schedule"
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
func NewServer(ctx context.Context, cfg *config.Config, d *daemon.Daemon, logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	path := cfg.Paths.SocketPath
	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	srv := &service{cfg: cfg, daemon: d, logger: logger, ctx: ctx}
	if err := rpcServer.RegisterName("Upkeep", srv); err != nil {
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
					logging.String(logging.FieldErrorHint, "Check socket permissions and restart the daemon if needed"))
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
			logging.String(logging.FieldErrorHint, "Remove the socket file manually or rerun upkeep daemon stop"))
	}
}

type service struct {
	cfg    *config.Config
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

func (s *service) DaemonStatus(_ DaemonStatusRequest, resp *DaemonStatusResponse) error {
	status := s.daemon.Status()
	resp.Running = status.Running
	resp.PID = status.PID
	resp.QueueDir = status.QueueDir
	resp.LockFilePath = status.LockFilePath
	resp.PendingJobs = status.PendingJobs
	resp.Run = status.Run
	resp.HasRun = status.HasRun
	return nil
}

func (s *service) Operations(_ OperationsRequest, resp *OperationsResponse) error {
	registry := s.daemon.Registry()
	resp.Operations = registry.All()
	resp.Categories = registry.Categories()
	return nil
}

func (s *service) RunStart(req RunStartRequest, resp *RunStartResponse) error {
	epoch, err := s.daemon.Coordinator().StartRun(req.Operations)
	if err != nil {
		return err
	}
	resp.Epoch = epoch
	s.log().Info("run started via IPC",
		logging.Uint64(logging.FieldEpoch, epoch),
		logging.Int("operations", len(req.Operations)))
	return nil
}

func (s *service) RunSkip(req RunSkipRequest, resp *RunSkipResponse) error {
	if err := s.daemon.Coordinator().SkipCurrent(req.Epoch); err != nil {
		return err
	}
	resp.Skipped = true
	return nil
}

func (s *service) RunCancel(req RunCancelRequest, resp *RunCancelResponse) error {
	if err := s.daemon.Coordinator().Cancel(req.Epoch); err != nil {
		return err
	}
	resp.Cancelled = true
	return nil
}

func (s *service) RunStatus(req RunStatusRequest, resp *RunStatusResponse) error {
	coordinator := s.daemon.Coordinator()
	epoch := req.Epoch
	if epoch == 0 {
		current, ok := coordinator.Current()
		if !ok {
			return runner.ErrNoRun
		}
		resp.Run = current
		return nil
	}
	status, err := coordinator.Status(epoch)
	if err != nil {
		return err
	}
	resp.Run = status
	return nil
}

func (s *service) StreamFetch(req StreamFetchRequest, resp *StreamFetchResponse) error {
	ctx := s.ctx
	if req.WaitMS > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(req.WaitMS)*time.Millisecond)
		defer cancel()
	}
	events, next, err := s.daemon.Hub().Fetch(ctx, req.Epoch, req.Since, req.Limit, req.WaitMS > 0)
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	resp.Events = events
	resp.Next = next
	return nil
}

func (s *service) JobResult(req JobResultRequest, resp *JobResultResponse) error {
	result, err := s.daemon.Store().ReadResult(req.JobID)
	if err != nil {
		return err
	}
	resp.Result = result
	return nil
}

func (s *service) LogTail(req LogTailRequest, resp *LogTailResponse) error {
	ctx := s.ctx
	if req.Follow && req.WaitMS > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(req.WaitMS)*time.Millisecond)
		defer cancel()
	}
	tailer := logs.NewTailer(logs.DaemonLogPath(s.cfg.Paths.LogDir))
	chunk, err := tailer.Tail(ctx, logs.Request{
		Offset: req.Offset,
		Limit:  req.Limit,
		Follow: req.Follow,
		Wait:   time.Duration(req.WaitMS) * time.Millisecond,
	})
	if err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
		return err
	}
	resp.Lines = chunk.Lines
	resp.Next = chunk.Next
	return nil
}

func (s *service) TestNotification(_ TestNotificationRequest, resp *TestNotificationResponse) error {
	if s.cfg.Notifications.NtfyTopic == "" {
		resp.Message = "Notifications disabled; set ntfy_topic in the config"
		return nil
	}
	ctx := s.ctx
	if s.cfg.Notifications.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(s.cfg.Notifications.RequestTimeout)*time.Second)
		defer cancel()
	}
	if err := notifications.NewService(s.cfg).TestNotification(ctx); err != nil {
		return err
	}
	resp.Sent = true
	return nil
}

func (s *service) ScheduleList(_ ScheduleListRequest, resp *ScheduleListResponse) error {
	schedules, err := s.daemon.Schedules().List(s.ctx)
	if err != nil {
		return err
	}
	resp.Schedules = schedules
	return nil
}

func (s *service) ScheduleGet(req ScheduleGetRequest, resp *ScheduleGetResponse) error {
	def, err := s.daemon.Schedules().Get(s.ctx, req.ID)
	if err != nil {
		return err
	}
	resp.Schedule = def
	return nil
}

func (s *service) ScheduleCreate(req ScheduleCreateRequest, resp *ScheduleCreateResponse) error {
	conflicts, err := s.conflicts(req.Schedule)
	if err != nil {
		return err
	}
	resp.Conflicts = conflicts
	if len(conflicts) > 0 && !req.Force {
		return nil
	}
	stored, err := s.daemon.Schedules().Create(s.ctx, req.Schedule)
	if err != nil {
		return err
	}
	resp.Schedule = stored
	resp.Created = true
	s.log().Info("schedule created via IPC",
		logging.String(logging.FieldScheduleID, stored.ID),
		logging.String("name", stored.Name))
	return nil
}

func (s *service) ScheduleUpdate(req ScheduleUpdateRequest, resp *ScheduleUpdateResponse) error {
	conflicts, err := s.conflicts(req.Schedule)
	if err != nil {
		return err
	}
	resp.Conflicts = conflicts
	if len(conflicts) > 0 && !req.Force {
		return nil
	}
	stored, err := s.daemon.Schedules().Update(s.ctx, req.Schedule)
	if err != nil {
		return err
	}
	resp.Schedule = stored
	resp.Updated = true
	return nil
}

func (s *service) ScheduleDelete(req ScheduleDeleteRequest, resp *ScheduleDeleteResponse) error {
	if err := s.daemon.Schedules().Delete(s.ctx, req.ID); err != nil {
		return err
	}
	resp.Deleted = true
	return nil
}

func (s *service) ScheduleRunNow(req ScheduleRunNowRequest, resp *ScheduleRunNowResponse) error {
	if scheduler := s.daemon.Scheduler(); scheduler != nil {
		epoch, err := scheduler.RunNow(s.ctx, req.ID)
		if err != nil {
			return err
		}
		resp.Epoch = epoch
		return nil
	}
	def, err := s.daemon.Schedules().Get(s.ctx, req.ID)
	if err != nil {
		return err
	}
	epoch, err := s.daemon.Coordinator().StartRun(def.Operations)
	if err != nil {
		return err
	}
	resp.Epoch = epoch
	return nil
}

func (s *service) conflicts(candidate Schedule) ([]string, error) {
	existing, err := s.daemon.Schedules().List(s.ctx)
	if err != nil {
		return nil, err
	}
	tolerance := time.Duration(s.cfg.Scheduler.FireWindowTolerance) * time.Minute
	return schedule.Conflicts(candidate, existing, tolerance), nil
}
