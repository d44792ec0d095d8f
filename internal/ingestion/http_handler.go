package ingestion

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rpattn/crmdash/internal/auth"
	"github.com/rpattn/crmdash/internal/domain"
	"github.com/rpattn/crmdash/internal/httpx"

	"github.com/go-chi/chi/v5"
)

// JobLister reads import history.
type JobLister interface {
	List(ctx context.Context, filter domain.ImportJobFilter) ([]domain.ImportJob, error)
}

// Handler exposes imports over HTTP.
type Handler struct {
	service *Service
	jobs    JobLister
}

// NewHTTPHandler wraps the service.
func NewHTTPHandler(service *Service, jobs JobLister) *Handler {
	return &Handler{service: service, jobs: jobs}
}

// Routes mounts the import endpoints. Uploads require an authenticated actor.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.With(auth.RequireActor).Post("/upload", h.upload)
	r.Post("/preview", h.preview)
	r.Get("/template/{dataType}", h.template)
	r.Get("/history", h.history)
	return r
}

type uploadBody struct {
	DataType   string `json:"dataType"`
	FileName   string `json:"fileName"`
	FileBase64 string `json:"fileData"`
	Limit      int    `json:"limit,omitempty"`
}

// readUpload accepts a JSON body with base64 file data or a multipart form with a file part.
func readUpload(r *http.Request) (uploadBody, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			return uploadBody{}, fmt.Errorf("invalid form data: %w", err)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			return uploadBody{}, fmt.Errorf("file required: %w", err)
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			return uploadBody{}, fmt.Errorf("failed to read file: %w", err)
		}
		return uploadBody{
			DataType:   r.FormValue("dataType"),
			FileName:   header.Filename,
			FileBase64: base64.StdEncoding.EncodeToString(data),
		}, nil
	}

	var body uploadBody
	if err := httpx.DecodeJSON(r, &body); err != nil {
		return uploadBody{}, err
	}
	return body, nil
}

func (h *Handler) upload(w http.ResponseWriter, r *http.Request) {
	body, err := readUpload(r)
	if err != nil {
		httpx.WriteError(w, r, http.StatusBadRequest, "invalid_request", err.Error(), nil)
		return
	}
	dataType, err := domain.ParseDataType(body.DataType)
	if err != nil {
		httpx.WriteError(w, r, http.StatusBadRequest, "invalid_request", err.Error(), nil)
		return
	}
	actor, _ := auth.ActorFromContext(r.Context())

	result, err := h.service.Import(r.Context(), Request{
		DataType:   dataType,
		FileName:   body.FileName,
		FileBase64: body.FileBase64,
		Actor:      actor,
	})
	if err != nil {
		var decode *DecodeFailure
		if errors.As(err, &decode) {
			httpx.WriteError(w, r, http.StatusUnprocessableEntity, "import_failed", err.Error(), nil)
			return
		}
		httpx.WriteStoreError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) preview(w http.ResponseWriter, r *http.Request) {
	body, err := readUpload(r)
	if err != nil {
		httpx.WriteError(w, r, http.StatusBadRequest, "invalid_request", err.Error(), nil)
		return
	}
	dataType, err := domain.ParseDataType(body.DataType)
	if err != nil {
		httpx.WriteError(w, r, http.StatusBadRequest, "invalid_request", err.Error(), nil)
		return
	}
	limit, err := httpx.QueryInt(r, "limit", body.Limit)
	if err != nil {
		httpx.WriteError(w, r, http.StatusBadRequest, "invalid_request", err.Error(), nil)
		return
	}

	result, err := h.service.Preview(r.Context(), PreviewRequest{
		DataType:   dataType,
		FileName:   body.FileName,
		FileBase64: body.FileBase64,
		Limit:      limit,
	})
	if err != nil {
		httpx.WriteError(w, r, http.StatusUnprocessableEntity, "invalid_file", err.Error(), nil)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) template(w http.ResponseWriter, r *http.Request) {
	dataType, err := domain.ParseDataType(chi.URLParam(r, "dataType"))
	if err != nil {
		httpx.WriteError(w, r, http.StatusNotFound, "not_found", err.Error(), nil)
		return
	}
	data, err := Template(dataType)
	if err != nil {
		httpx.WriteStoreError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", TemplateFileName(dataType)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	limit, err := httpx.QueryInt(r, "limit", 50)
	if err != nil {
		httpx.WriteError(w, r, http.StatusBadRequest, "invalid_request", err.Error(), nil)
		return
	}
	offset, err := httpx.QueryInt(r, "offset", 0)
	if err != nil {
		httpx.WriteError(w, r, http.StatusBadRequest, "invalid_request", err.Error(), nil)
		return
	}
	status := domain.ImportStatus(r.URL.Query().Get("status"))
	switch status {
	case "", domain.ImportStatusPending, domain.ImportStatusProcessing, domain.ImportStatusCompleted, domain.ImportStatusFailed:
	default:
		httpx.WriteError(w, r, http.StatusBadRequest, "invalid_request", fmt.Sprintf("unknown status %q", status), nil)
		return
	}

	jobs, err := h.jobs.List(r.Context(), domain.ImportJobFilter{Status: status, Limit: limit, Offset: offset})
	if err != nil {
		httpx.WriteStoreError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, jobs)
}
