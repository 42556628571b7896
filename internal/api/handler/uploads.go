package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/kiranshivaraju/batchpulse/internal/api/response"
	"github.com/kiranshivaraju/batchpulse/internal/store"
	"github.com/kiranshivaraju/batchpulse/internal/upload"
	"github.com/kiranshivaraju/batchpulse/pkg/models"
)

type Uploader interface {
	Upload(ctx context.Context, req upload.Request) (*upload.Result, error)
}

type UploadLister interface {
	ListFileUploads(ctx context.Context, filter store.UploadFilter) ([]*models.FileUpload, int, error)
}

// multipart parts above this stay on disk instead of memory.
const multipartMemory = 8 << 20

// NewUploadHandler returns an http.HandlerFunc for POST /api/v1/uploads.
// The body is a multipart form with file, customer_id, product and file_type.
func NewUploadHandler(u Uploader, maxBytes int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				response.Error(w, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE",
					"Upload exceeds the maximum allowed size", map[string]int64{"max_bytes": maxBytes})
				return
			}
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Expected a multipart form", nil)
			return
		}
		defer r.MultipartForm.RemoveAll()

		req := upload.Request{
			CustomerID: r.FormValue("customer_id"),
			Product:    r.FormValue("product"),
			FileType:   r.FormValue("file_type"),
		}
		file, header, err := r.FormFile("file")
		if err == nil {
			defer file.Close()
			req.FileName = header.Filename
			req.Body = file
		}

		res, err := u.Upload(r.Context(), req)
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.JSON(w, res)
	}
}

// NewListUploadsHandler returns an http.HandlerFunc for GET /api/v1/uploads.
func NewListUploadsHandler(s UploadLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := newQuery(r)
		f := store.UploadFilter{
			CustomerID: q.uuid("customer_id"),
			FileType: models.FileType(q.oneOf("file_type",
				string(models.FileBatchPerformance), string(models.FileVolumetrics),
				string(models.FileSLATracking), string(models.FileBatchSchedule))),
			Page: q.page(),
		}
		if !q.valid(w) {
			return
		}

		items, total, err := s.ListFileUploads(r.Context(), f)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writePage(w, items, total, f.Page)
	}
}
