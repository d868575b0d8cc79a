package api

import (
	"net/http"
	"strconv"
	"strings"

	"mediabutler/internal/batch"
	"mediabutler/internal/queue"
	"mediabutler/internal/recovery"
	"mediabutler/internal/store"
)

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	stats, err := s.files.Store().Stats(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	byStatus := make(map[string]int, len(stats))
	for status, count := range stats {
		byStatus[string(status)] = count
	}

	resp := StatusResponse{
		Stats:            byStatus,
		AutoThreshold:    s.files.AutoThreshold(),
		SuggestThreshold: s.files.SuggestThreshold(),
	}
	if s.pool != nil {
		poolStats := s.pool.Stats()
		resp.Running = s.pool.Running()
		resp.QueueDepth = poolStats.Depth
		resp.QueueCapacity = poolStats.Capacity
		resp.JobsInFlight = poolStats.InFlight
		resp.JobsCompleted = poolStats.Completed
		resp.JobsFailed = poolStats.Failed
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	opts := store.ListOptions{
		Category: strings.TrimSpace(query.Get("category")),
	}
	opts.Skip, _ = strconv.Atoi(query.Get("skip"))
	opts.Take, _ = strconv.Atoi(query.Get("take"))
	if opts.Take <= 0 {
		opts.Take = 50
	}
	for _, raw := range query["status"] {
		status, ok := store.ParseStatus(strings.TrimSpace(raw))
		if !ok {
			s.writeBadRequest(w, "unknown status "+raw)
			return
		}
		opts.Statuses = append(opts.Statuses, status)
	}

	tracked, total, err := s.files.Store().List(r.Context(), opts)
	if err != nil {
		s.writeError(w, err)
		return
	}
	views := make([]FileView, 0, len(tracked))
	for _, file := range tracked {
		views = append(views, FromTrackedFile(file))
	}
	s.writeJSON(w, http.StatusOK, FileListResponse{
		Files: views,
		Total: total,
		Skip:  opts.Skip,
		Take:  opts.Take,
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	pattern := strings.TrimSpace(r.URL.Query().Get("q"))
	if pattern == "" {
		s.writeBadRequest(w, "query parameter q is required")
		return
	}
	tracked, err := s.files.Store().Search(r.Context(), pattern)
	if err != nil {
		s.writeError(w, err)
		return
	}
	views := make([]FileView, 0, len(tracked))
	for _, file := range tracked {
		views = append(views, FromTrackedFile(file))
	}
	s.writeJSON(w, http.StatusOK, FileListResponse{Files: views, Total: len(views), Take: len(views)})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeBadRequest(w, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Path) == "" {
		s.writeBadRequest(w, "path is required")
		return
	}
	file, err := s.files.Register(r.Context(), req.Path)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, FromTrackedFile(file))
}

func (s *Server) handleGetFile(w http.ResponseWriter, r *http.Request) {
	hash := r.PathValue("hash")
	file, err := s.files.Get(r.Context(), hash)
	if err != nil {
		s.writeError(w, err)
		return
	}
	logs, err := s.files.Store().LogsForFile(r.Context(), hash)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, FileDetailResponse{
		File: FromTrackedFile(file),
		Logs: logsToViews(logs),
	})
}

func (s *Server) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	hash := r.PathValue("hash")
	var req DeleteRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeBadRequest(w, "invalid JSON body")
		return
	}
	reason := req.Reason
	if reason == "" {
		reason = "deleted via api"
	}
	if err := s.files.SoftDelete(r.Context(), hash, reason); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	hash := r.PathValue("hash")
	var req ConfirmRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeBadRequest(w, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Category) == "" {
		s.writeBadRequest(w, "category is required")
		return
	}
	file, err := s.files.Confirm(r.Context(), hash, req.Category)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, FromTrackedFile(file))
}

func (s *Server) handleIgnore(w http.ResponseWriter, r *http.Request) {
	file, err := s.files.Ignore(r.Context(), r.PathValue("hash"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, FromTrackedFile(file))
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	file, err := s.files.ResetError(r.Context(), r.PathValue("hash"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, FromTrackedFile(file))
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	hash := r.PathValue("hash")
	category := strings.TrimSpace(r.URL.Query().Get("category"))
	preview, err := s.organizer.Preview(r.Context(), hash, category)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, PreviewResponse{
		TargetPath:     preview.TargetPath,
		IsSafe:         preview.IsSafe,
		SafetyIssues:   preview.SafetyIssues,
		Warnings:       preview.Report.Warnings,
		Siblings:       preview.Siblings,
		RequiredBytes:  preview.RequiredBytes,
		AvailableBytes: preview.AvailableBytes,
	})
}

func (s *Server) handleOrganize(w http.ResponseWriter, r *http.Request) {
	if !s.requirePool(w) {
		return
	}
	hash := r.PathValue("hash")
	var req OrganizeRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeBadRequest(w, "invalid JSON body")
		return
	}
	// Eligibility is checked up front so the caller gets an immediate
	// verdict instead of a queued failure.
	if _, err := s.files.Get(r.Context(), hash); err != nil {
		s.writeError(w, err)
		return
	}

	job := queue.NewJob(queue.KindOrganize, hash)
	job.Category = req.Category
	if err := s.queue.Enqueue(job); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]string{"job_id": job.ID})
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.files.Store().DistinctCategories(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, CategoriesResponse{Categories: categories})
}

func (s *Server) handleBatchSubmit(w http.ResponseWriter, r *http.Request) {
	if s.batches == nil {
		s.writeError(w, recovery.Wrap(recovery.ErrUnavailable, "api", "batch submit", "batch processing is not enabled", nil))
		return
	}
	if !s.requirePool(w) {
		return
	}
	var requests []batch.Request
	if err := decodeBody(r, &requests); err != nil {
		s.writeBadRequest(w, "invalid JSON body")
		return
	}
	id, err := s.batches.Submit(r.Context(), requests)
	if err != nil {
		s.writeError(w, err)
		return
	}

	job := queue.NewJob(queue.KindBatchOrganize, "")
	job.BatchID = id
	if err := s.queue.Enqueue(job); err != nil {
		// The batch stays pending; cancel it so it does not linger.
		_ = s.batches.Cancel(r.Context(), id)
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, BatchSubmitResponse{BatchID: id})
}

func (s *Server) handleBatchValidate(w http.ResponseWriter, r *http.Request) {
	if s.batches == nil {
		s.writeError(w, recovery.Wrap(recovery.ErrUnavailable, "api", "batch validate", "batch processing is not enabled", nil))
		return
	}
	var requests []batch.Request
	if err := decodeBody(r, &requests); err != nil {
		s.writeBadRequest(w, "invalid JSON body")
		return
	}
	if err := s.batches.Validate(r.Context(), requests); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"valid": true})
}

func (s *Server) handleBatchList(w http.ResponseWriter, _ *http.Request) {
	if s.batches == nil {
		s.writeJSON(w, http.StatusOK, []*batch.Progress{})
		return
	}
	s.writeJSON(w, http.StatusOK, s.batches.List())
}

func (s *Server) handleBatchStatus(w http.ResponseWriter, r *http.Request) {
	if s.batches == nil {
		s.writeError(w, recovery.Wrap(recovery.ErrNotFound, "api", "batch status", "batch processing is not enabled", nil))
		return
	}
	progress, err := s.batches.Status(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, progress)
}

func (s *Server) handleBatchCancel(w http.ResponseWriter, r *http.Request) {
	if s.batches == nil {
		s.writeError(w, recovery.Wrap(recovery.ErrNotFound, "api", "batch cancel", "batch processing is not enabled", nil))
		return
	}
	if err := s.batches.Cancel(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, err)
		return
	}
	progress, err := s.batches.Status(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, progress)
}
