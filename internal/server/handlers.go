package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/attribute"

	"github.com/signalsfoundry/memory-orbs/internal/ingest"
	"github.com/signalsfoundry/memory-orbs/internal/input"
	"github.com/signalsfoundry/memory-orbs/internal/logging"
	"github.com/signalsfoundry/memory-orbs/internal/observability"
	"github.com/signalsfoundry/memory-orbs/internal/scene"
	"github.com/signalsfoundry/memory-orbs/kb"
	"github.com/signalsfoundry/memory-orbs/model"
)

// FrameResponse is the body of GET /v1/frame. World is the column-major
// matrix that carries layout positions into camera space.
type FrameResponse struct {
	State  scene.State      `json:"state"`
	Frames []model.OrbFrame `json:"frames"`
	World  [16]float64      `json:"world"`
}

// NewFrameResponse converts a scene view for the wire.
func NewFrameResponse(v scene.View) FrameResponse {
	return FrameResponse{State: v.State, Frames: v.Frames, World: v.World}
}

// UploadFile is one file in a JSON upload. Data is base64 in JSON.
type UploadFile struct {
	Name     string `json:"name" validate:"required,max=255"`
	MIMEType string `json:"mime_type" validate:"required"`
	Data     []byte `json:"data"`
}

// UploadRequest is the JSON form of POST /v1/uploads.
type UploadRequest struct {
	Files []UploadFile `json:"files" validate:"required,min=1,dive"`
}

// UploadResponse lists the memories created by an upload.
type UploadResponse struct {
	Added   []model.Memory `json:"added"`
	Skipped int            `json:"skipped"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleFrame(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, NewFrameResponse(s.scene.View()))
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.scene.Snapshot())
}

func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	var ev input.Event
	if err := decodeJSON(r, &ev); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := validate.Struct(ev); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.controller.Handle(ev); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.scene.Snapshot())
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if s.ingestor == nil {
		s.writeError(w, r, ingest.ErrClosed)
		return
	}
	ctx, span := observability.Tracer().Start(r.Context(), "http.upload")
	defer span.End()

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	files, err := readUpload(r)
	if err != nil {
		span.RecordError(err)
		s.writeError(w, r, err)
		return
	}
	span.SetAttributes(attribute.Int("upload.files", len(files)))

	added, err := s.ingestor.Upload(ctx, files)
	if err != nil {
		span.RecordError(err)
		s.writeError(w, r, err)
		return
	}
	if added == nil {
		added = []model.Memory{}
	}
	writeJSON(w, http.StatusAccepted, UploadResponse{Added: added, Skipped: len(files) - len(added)})
}

func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.scene.RemoveMemory(id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleFocus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := s.scene.Store().Get(id); !ok {
		s.writeError(w, r, fmt.Errorf("%w: %q", kb.ErrMemoryNotFound, id))
		return
	}
	s.scene.SetMode(model.ViewGallery)
	s.scene.FocusMemory(id)
	writeJSON(w, http.StatusOK, s.scene.Snapshot())
}

var errBadRequest = errors.New("bad request")

// readUpload accepts multipart/form-data (any file parts) or a JSON
// UploadRequest.
func readUpload(r *http.Request) ([]ingest.Image, error) {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("%w: content type: %v", errBadRequest, err)
	}

	switch mediaType {
	case "multipart/form-data":
		return readMultipart(r)
	case "application/json":
		var req UploadRequest
		if err := decodeJSON(r, &req); err != nil {
			return nil, err
		}
		if err := validate.Struct(req); err != nil {
			return nil, err
		}
		files := make([]ingest.Image, 0, len(req.Files))
		for _, f := range req.Files {
			files = append(files, ingest.Image{Name: f.Name, MIMEType: f.MIMEType, Data: f.Data})
		}
		return files, nil
	default:
		return nil, fmt.Errorf("%w: unsupported content type %q", errBadRequest, mediaType)
	}
}

func readMultipart(r *http.Request) ([]ingest.Image, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	var files []ingest.Image
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: read part: %w", errBadRequest, err)
		}
		if part.FileName() == "" {
			_ = part.Close()
			continue
		}
		data, err := io.ReadAll(part)
		_ = part.Close()
		if err != nil {
			return nil, fmt.Errorf("%w: read %s: %w", errBadRequest, part.FileName(), err)
		}
		mimeType := part.Header.Get("Content-Type")
		if mimeType == "" || mimeType == "application/octet-stream" {
			mimeType = http.DetectContentType(data)
		}
		files = append(files, ingest.Image{Name: part.FileName(), MIMEType: mimeType, Data: data})
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no files in upload", errBadRequest)
	}
	return files, nil
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: decode body: %w", errBadRequest, err)
	}
	return nil
}

// statusFor maps scene and ingest errors onto HTTP status codes.
func statusFor(err error) int {
	var verrs validator.ValidationErrors
	var tooLarge *http.MaxBytesError
	switch {
	case scene.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, kb.ErrMemoryExists):
		return http.StatusConflict
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, errBadRequest),
		errors.Is(err, input.ErrUnknownEvent),
		errors.Is(err, kb.ErrMemoryInvalid),
		errors.As(err, &verrs):
		return http.StatusBadRequest
	case errors.Is(err, ingest.ErrClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	log := logging.LoggerFromContext(r.Context())
	if log == nil {
		log = s.log
	}
	if code >= http.StatusInternalServerError {
		log.Error(r.Context(), "request failed", logging.Int("status", code), logging.Err(err))
	} else {
		log.Debug(r.Context(), "request rejected", logging.Int("status", code), logging.Err(err))
	}
	writeJSON(w, code, errorResponse{Error: strings.TrimSpace(err.Error())})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
