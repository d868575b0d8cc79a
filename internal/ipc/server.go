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

	"mediabutler/internal/batch"
	"mediabutler/internal/daemon"
	"mediabutler/internal/logging"
	"mediabutler/internal/logs"
	"mediabutler/internal/queue"
	"mediabutler/internal/store"
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
	srv := &service{daemon: d, logger: logging.NewComponentLogger(logger, "ipc"), ctx: ctx}
	if err := rpcServer.RegisterName("MediaButler", srv); err != nil {
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
	s.logger.Debug("ipc server listening", slog.String("socket", s.path))
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
				s.logger.Warn("accept failed", slog.String("error", err.Error()))
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
			slog.String("socket", s.path),
			slog.String("error", err.Error()))
	}
}

type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status := s.daemon.Status(s.ctx)
	resp.Running = status.Running
	resp.PID = status.PID
	resp.DatabasePath = status.DatabasePath
	resp.LockPath = status.LockFilePath
	resp.APIBind = status.APIBind
	resp.FilesByStatus = status.FilesByStatus
	resp.QueueDepth = status.Queue.Depth
	resp.QueueCapacity = status.Queue.Capacity
	resp.JobsInFlight = status.Queue.InFlight
	resp.JobsCompleted = status.Queue.Completed
	resp.JobsFailed = status.Queue.Failed
	return nil
}

func (s *service) Stop(_ StopRequest, resp *StopResponse) error {
	s.logger.Info("daemon stop requested over ipc")
	s.daemon.Stop()
	resp.Stopped = true
	return nil
}

func (s *service) ReloadLibrary(_ ReloadLibraryRequest, resp *ReloadLibraryResponse) error {
	count, err := s.daemon.ReloadLibrary(s.ctx)
	if err != nil {
		return err
	}
	resp.Titles = count
	return nil
}

func (s *service) Rollback(req RollbackRequest, resp *RollbackResponse) error {
	if req.FileHash == "" {
		return errors.New("rollback requires a file hash")
	}
	if err := s.daemon.Rollback().RollbackLast(s.ctx, req.FileHash, req.Force); err != nil {
		return err
	}
	resp.Restored = true
	return nil
}

func (s *service) CleanupRollback(req CleanupRollbackRequest, resp *CleanupRollbackResponse) error {
	maxAge := time.Duration(req.MaxAgeHours) * time.Hour
	if maxAge <= 0 {
		maxAge = 30 * 24 * time.Hour
	}
	removed, err := s.daemon.CleanupRollbackPoints(s.ctx, maxAge)
	if err != nil {
		return err
	}
	resp.Removed = removed
	return nil
}

func (s *service) ListFiles(req ListFilesRequest, resp *ListFilesResponse) error {
	opts := store.ListOptions{
		Skip:     req.Skip,
		Take:     req.Take,
		Category: req.Category,
	}
	for _, status := range req.Statuses {
		opts.Statuses = append(opts.Statuses, store.Status(status))
	}
	tracked, total, err := s.daemon.Store().List(s.ctx, opts)
	if err != nil {
		return err
	}
	resp.Files = FileSummariesFrom(tracked)
	resp.Total = total
	return nil
}

func (s *service) ListPending(_ ListPendingRequest, resp *ListPendingResponse) error {
	tracked, err := s.daemon.Files().ListPending(s.ctx)
	if err != nil {
		return err
	}
	resp.Files = FileSummariesFrom(tracked)
	return nil
}

func (s *service) SearchFiles(req SearchFilesRequest, resp *SearchFilesResponse) error {
	if req.Pattern == "" {
		return errors.New("search requires a pattern")
	}
	tracked, err := s.daemon.Store().Search(s.ctx, req.Pattern)
	if err != nil {
		return err
	}
	resp.Files = FileSummariesFrom(tracked)
	return nil
}

func (s *service) ShowFile(req ShowFileRequest, resp *ShowFileResponse) error {
	file, err := s.daemon.Files().Get(s.ctx, req.Hash)
	if err != nil {
		return err
	}
	logRows, err := s.daemon.Store().LogsForFile(s.ctx, req.Hash)
	if err != nil {
		return err
	}
	resp.File = FileSummaryFrom(file)
	resp.Logs = make([]LogEntry, 0, len(logRows))
	for _, row := range logRows {
		resp.Logs = append(resp.Logs, LogEntryFrom(row))
	}
	return nil
}

func (s *service) Confirm(req ConfirmRequest, resp *FileResponse) error {
	file, err := s.daemon.Files().Confirm(s.ctx, req.Hash, req.Category)
	if err != nil {
		return err
	}
	resp.File = FileSummaryFrom(file)
	return nil
}

func (s *service) Ignore(req IgnoreRequest, resp *FileResponse) error {
	file, err := s.daemon.Files().Ignore(s.ctx, req.Hash)
	if err != nil {
		return err
	}
	resp.File = FileSummaryFrom(file)
	return nil
}

func (s *service) ResetFile(req ResetFileRequest, resp *FileResponse) error {
	file, err := s.daemon.Files().ResetError(s.ctx, req.Hash)
	if err != nil {
		return err
	}
	resp.File = FileSummaryFrom(file)
	return nil
}

func (s *service) Organize(req OrganizeRequest, resp *OrganizeResponse) error {
	if _, err := s.daemon.Files().Get(s.ctx, req.Hash); err != nil {
		return err
	}
	job := queue.NewJob(queue.KindOrganize, req.Hash)
	job.Category = req.Category
	if err := s.daemon.Enqueue(job); err != nil {
		return err
	}
	resp.JobID = job.ID
	return nil
}

func (s *service) Preview(req PreviewRequest, resp *PreviewResponse) error {
	preview, err := s.daemon.Organizer().Preview(s.ctx, req.Hash, req.Category)
	if err != nil {
		return err
	}
	resp.TargetPath = preview.TargetPath
	resp.IsSafe = preview.IsSafe
	resp.SafetyIssues = preview.SafetyIssues
	resp.Siblings = preview.Siblings
	resp.RequiredBytes = preview.RequiredBytes
	resp.AvailableBytes = preview.AvailableBytes
	return nil
}

func (s *service) BatchSubmit(req BatchSubmitRequest, resp *BatchSubmitResponse) error {
	requests := make([]batch.Request, 0, len(req.Files))
	for _, file := range req.Files {
		requests = append(requests, batch.Request{Hash: file.Hash, Category: file.Category})
	}
	batchID, err := s.daemon.Batches().Submit(s.ctx, requests)
	if err != nil {
		return err
	}
	job := queue.NewJob(queue.KindBatchOrganize, "")
	job.BatchID = batchID
	if err := s.daemon.Enqueue(job); err != nil {
		_ = s.daemon.Batches().Cancel(s.ctx, batchID)
		return err
	}
	resp.BatchID = batchID
	return nil
}

func (s *service) BatchStatus(req BatchStatusRequest, resp *BatchStatusResponse) error {
	progress, err := s.daemon.Batches().Status(req.ID)
	if err != nil {
		return err
	}
	resp.Batch = BatchSummaryFrom(progress)
	return nil
}

func (s *service) BatchList(_ BatchListRequest, resp *BatchListResponse) error {
	for _, progress := range s.daemon.Batches().List() {
		resp.Batches = append(resp.Batches, BatchSummaryFrom(progress))
	}
	return nil
}

func (s *service) BatchCancel(req BatchCancelRequest, resp *BatchCancelResponse) error {
	if err := s.daemon.Batches().Cancel(s.ctx, req.ID); err != nil {
		return err
	}
	resp.Cancelled = true
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

