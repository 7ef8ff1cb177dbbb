package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/agent-chat/internal/model"
	"github.com/ashwinyue/agent-chat/internal/service"
	filesvc "github.com/ashwinyue/agent-chat/internal/service/file"
	"github.com/ashwinyue/agent-chat/internal/service/ingest"
)

// FileHandler 文件处理器
type FileHandler struct {
	svc *service.Services
}

// NewFileHandler 创建文件处理器
func NewFileHandler(svc *service.Services) *FileHandler {
	return &FileHandler{svc: svc}
}

// Upload 上传文件并入库
// POST /files/upload (multipart/form-data: session_id 可选, files 一个或多个)
//
// 落盘与入库相互独立：落盘失败返回 500，入库失败仍返回 200，
// 通过 ingest_error 字段报告。
func (h *FileHandler) Upload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		BadRequest(c, "invalid multipart form: "+err.Error())
		return
	}

	fileHeaders := form.File["files"]
	if len(fileHeaders) == 0 {
		fileHeaders = form.File["file"]
	}
	if len(fileHeaders) == 0 {
		BadRequest(c, "at least one file is required")
		return
	}

	for _, fh := range fileHeaders {
		if err := filesvc.ValidateFileName(fh.Filename); err != nil {
			BadRequest(c, fh.Filename+": "+err.Error())
			return
		}
	}

	sessionID, err := h.svc.SessionMgr.Resolve(c.PostForm("session_id"))
	if err != nil {
		InternalServerError(c, "failed to resolve session: "+err.Error())
		return
	}

	stored := make([]model.StoredFile, 0, len(fileHeaders))
	uploads := make([]ingest.StoredUpload, 0, len(fileHeaders))
	for _, fh := range fileHeaders {
		f, err := fh.Open()
		if err != nil {
			InternalServerError(c, "failed to open "+fh.Filename+": "+err.Error())
			return
		}

		saved, err := h.svc.Storage.Save(c.Request.Context(), sessionID, fh.Filename, f)
		f.Close()
		if err != nil {
			InternalServerError(c, "failed to store "+fh.Filename+": "+err.Error())
			return
		}

		contentType := fh.Header.Get("Content-Type")
		stored = append(stored, model.StoredFile{
			Filename:    fh.Filename,
			Bytes:       saved.Size,
			ContentType: contentType,
		})
		uploads = append(uploads, ingest.StoredUpload{
			FileName:    fh.Filename,
			Path:        saved.Path,
			ContentType: contentType,
			Size:        saved.Size,
		})
	}

	resp := model.UploadResponse{
		SessionID: sessionID,
		Stored:    stored,
	}

	summary, err := h.svc.Ingest.IngestStored(c.Request.Context(), sessionID, uploads)
	resp.Ingest = summary
	if err != nil {
		resp.IngestError = err.Error()
	}

	c.JSON(http.StatusOK, resp)
}

// ListFiles 列出会话文件
// GET /files?session_id=xxx
func (h *FileHandler) ListFiles(c *gin.Context) {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		BadRequest(c, "session_id is required")
		return
	}

	exists, err := h.svc.SessionMgr.Exists(sessionID)
	if err != nil {
		InternalServerError(c, "failed to check session: "+err.Error())
		return
	}
	if !exists {
		NotFound(c, "session not found: "+sessionID)
		return
	}

	files, err := h.svc.SessionMgr.ListFiles(c.Request.Context(), sessionID)
	if err != nil {
		InternalServerError(c, "failed to list files: "+err.Error())
		return
	}

	c.JSON(http.StatusOK, model.ListFilesResponse{
		SessionID: sessionID,
		Files:     files,
	})
}
