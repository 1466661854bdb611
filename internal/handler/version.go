package handler

import (
	"io"
	"log/slog"
	"net/http"

	"docvault/internal/domain/services"
	"docvault/internal/httputil"
)

// VersionHandler handles version lifecycle HTTP requests
type VersionHandler struct {
	versionService services.VersionService
	fileStore      services.FileStore
	logger         *slog.Logger
}

// NewVersionHandler creates a new version handler
func NewVersionHandler(versionService services.VersionService, fileStore services.FileStore, logger *slog.Logger) *VersionHandler {
	return &VersionHandler{
		versionService: versionService,
		fileStore:      fileStore,
		logger:         logger,
	}
}

// CreateVersion commits uploaded content as a new version on a branch.
// POST /api/documents/{id}/versions (multipart: file, branch, comment)
//
// The upload is stored first, outside any version transaction; the
// transaction then only records the returned handle.
func (h *VersionHandler) CreateVersion(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "expected multipart form upload")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	mime := header.Header.Get("Content-Type")
	if mime == "" {
		mime = "application/octet-stream"
	}

	ref, err := h.fileStore.Store(r.Context(), header.Filename, mime, file)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	req := &services.CreateVersionRequest{
		DocumentID: r.PathValue("id"),
		ActorID:    httputil.GetActorID(r),
		Branch:     r.FormValue("branch"),
		Comment:    r.FormValue("comment"),
		File:       *ref,
	}

	version, err := h.versionService.CreateVersion(r.Context(), req)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, version)
}

// CreateBranch cuts a new branch from a version
// POST /api/versions/{id}/branches
func (h *VersionHandler) CreateBranch(w http.ResponseWriter, r *http.Request) {
	var req services.CreateBranchRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.SourceVersionID = r.PathValue("id")
	req.ActorID = httputil.GetActorID(r)

	version, err := h.versionService.CreateBranch(r.Context(), &req)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, version)
}

// Merge merges a version into a target branch
// POST /api/versions/{id}/merge
func (h *VersionHandler) Merge(w http.ResponseWriter, r *http.Request) {
	var req services.MergeRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.SourceVersionID = r.PathValue("id")
	req.ActorID = httputil.GetActorID(r)

	version, err := h.versionService.MergeTo(r.Context(), &req)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, version)
}

// Restore points the document at an historical version
// POST /api/documents/{id}/restore
func (h *VersionHandler) Restore(w http.ResponseWriter, r *http.Request) {
	var req services.RestoreRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.DocumentID = r.PathValue("id")
	req.ActorID = httputil.GetActorID(r)

	if err := h.versionService.RestoreVersion(r.Context(), &req); err != nil {
		handleError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetVersion retrieves a single version
// GET /api/versions/{id}
func (h *VersionHandler) GetVersion(w http.ResponseWriter, r *http.Request) {
	version, err := h.versionService.GetVersion(r.Context(), r.PathValue("id"))
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, version)
}

// DownloadVersion streams a version's stored file content
// GET /api/versions/{id}/file
func (h *VersionHandler) DownloadVersion(w http.ResponseWriter, r *http.Request) {
	version, err := h.versionService.GetVersion(r.Context(), r.PathValue("id"))
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	content, err := h.fileStore.Open(r.Context(), version.File.Handle)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	defer content.Close()

	w.Header().Set("Content-Type", version.File.Mime)
	if _, err := io.Copy(w, content); err != nil {
		// Headers already sent, nothing recoverable; log and give up
		h.logger.Error("stream version file failed", "version_id", version.ID, "error", err)
	}
}

// History lists a branch's versions ascending by number
// GET /api/documents/{id}/history?branch=main
func (h *VersionHandler) History(w http.ResponseWriter, r *http.Request) {
	versions, err := h.versionService.GetBranchHistory(r.Context(), r.PathValue("id"), r.URL.Query().Get("branch"))
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, versions)
}

// ListBranches summarizes a document's branches
// GET /api/documents/{id}/branches
func (h *VersionHandler) ListBranches(w http.ResponseWriter, r *http.Request) {
	branches, err := h.versionService.ListBranches(r.Context(), r.PathValue("id"))
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, branches)
}

// Compare returns a metadata diff between two versions
// GET /api/versions/compare?left={id}&right={id}
func (h *VersionHandler) Compare(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	comparison, err := h.versionService.CompareVersions(r.Context(), q.Get("left"), q.Get("right"))
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, comparison)
}
