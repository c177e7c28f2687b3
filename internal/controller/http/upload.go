package http

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hyptrb/messaging/internal/domain/messaging/entity"
	"github.com/hyptrb/messaging/internal/httpx/response"
	"github.com/hyptrb/messaging/internal/storage"
)

// MaxUploadSize is the maximum allowed upload size (50MB)
const MaxUploadSize = 50 << 20

// AttachmentUploader defines the interface for storing and discarding
// attachment payloads
type AttachmentUploader interface {
	Upload(ctx context.Context, in storage.UploadInput) (*storage.UploadOutput, error)
	Delete(ctx context.Context, key string) error
}

// UploadHandler handles attachment upload HTTP requests
type UploadHandler struct {
	uploader AttachmentUploader
}

// NewUploadHandler creates a new upload handler
func NewUploadHandler(uploader AttachmentUploader) *UploadHandler {
	return &UploadHandler{uploader: uploader}
}

// RegisterRoutes registers upload routes
func (h *UploadHandler) RegisterRoutes(r chi.Router) {
	r.Post("/uploads", h.Upload())
	r.Delete("/uploads/*", h.Delete())
}

// UploadResponse represents the response from the upload endpoint. The
// fields mirror an attachment reference so the client can pass them
// straight into a message append.
type UploadResponse struct {
	StorageKey string `json:"storage_key"`
	URL        string `json:"url"`
	Kind       string `json:"kind"`
	SizeBytes  int64  `json:"size_bytes"`
	Width      *int   `json:"width,omitempty"`
	Height     *int   `json:"height,omitempty"`
}

// Upload handles POST /uploads
func (h *UploadHandler) Upload() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Limit request body size
		r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize)

		if err := r.ParseMultipartForm(MaxUploadSize); err != nil {
			response.BadRequest(w, "file too large or invalid multipart form")
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			response.BadRequest(w, "missing file in request")
			return
		}
		defer file.Close()

		contentType := header.Header.Get("Content-Type")
		if !isAllowedAttachmentType(contentType) {
			response.BadRequest(w, fmt.Sprintf("unsupported attachment type: %s", contentType))
			return
		}

		kind := attachmentKind(contentType)

		var reader io.Reader = file
		var width, height *int
		if kind == entity.AttachmentKindImage {
			// Dimensions are best-effort: an undecodable image still uploads
			data, err := io.ReadAll(file)
			if err != nil {
				response.InternalError(w, "reading upload")
				return
			}
			if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
				width, height = &cfg.Width, &cfg.Height
			}
			reader = bytes.NewReader(data)
		}

		result, err := h.uploader.Upload(r.Context(), storage.UploadInput{
			Reader:      reader,
			ContentType: contentType,
			Size:        header.Size,
			Filename:    header.Filename,
		})
		if err != nil {
			response.InternalError(w, "failed to store attachment")
			return
		}

		response.Created(w, UploadResponse{
			StorageKey: result.Key,
			URL:        result.URL,
			Kind:       string(kind),
			SizeBytes:  result.Size,
			Width:      width,
			Height:     height,
		})
	}
}

// Delete handles DELETE /uploads/{key}. It discards an uploaded
// attachment that was never referenced by a message; storage keys are
// date-prefixed, so the route takes the rest of the path.
func (h *UploadHandler) Delete() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "*")
		if key == "" {
			response.BadRequest(w, "missing storage key")
			return
		}

		if err := h.uploader.Delete(r.Context(), key); err != nil {
			response.InternalError(w, "failed to delete attachment")
			return
		}

		response.NoContent(w)
	}
}

func attachmentKind(contentType string) entity.AttachmentKind {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return entity.AttachmentKindImage
	case strings.HasPrefix(contentType, "video/"):
		return entity.AttachmentKindVideo
	default:
		return entity.AttachmentKindFile
	}
}

// isAllowedAttachmentType checks if the content type is allowed for upload
func isAllowedAttachmentType(contentType string) bool {
	allowed := []string{
		"image/jpeg",
		"image/png",
		"image/gif",
		"image/webp",
		"video/mp4",
		"video/quicktime",
		"application/pdf",
	}

	for _, a := range allowed {
		if strings.EqualFold(contentType, a) {
			return true
		}
	}
	return false
}
