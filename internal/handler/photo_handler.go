package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/hitoshi/medconfirm/internal/model"
	"github.com/hitoshi/medconfirm/internal/storage"
)

// PhotoSaver は服薬写真を保存し、写真参照を返す。
type PhotoSaver interface {
	Save(ctx context.Context, dependantID string, r io.Reader, size int64, contentType string) (string, error)
}

// PhotoHandler は服薬写真アップロードのHTTPハンドラー。
type PhotoHandler struct {
	store    PhotoSaver
	maxBytes int64
}

// NewPhotoHandler はPhotoHandlerを生成する。storeがnilの場合アップロードは503になる。
func NewPhotoHandler(store PhotoSaver, maxBytes int64) *PhotoHandler {
	return &PhotoHandler{store: store, maxBytes: maxBytes}
}

type photoResponse struct {
	PhotoPath string `json:"photoPath"`
}

// Upload はmultipartの photo フィールドを保存する。
// POST /photos
func (h *PhotoHandler) Upload(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	if h.store == nil {
		handleServiceError(w, r, model.NewStorageUnavailableError())
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+1024)
	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			handleServiceError(w, r, model.NewValidationError("Photo is too large"))
			return
		}
		handleServiceError(w, r, model.NewValidationError("Photo upload must be multipart form data"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("photo")
	if err != nil {
		handleServiceError(w, r, model.NewValidationError("Photo is required"))
		return
	}
	defer file.Close()
	if header.Size > h.maxBytes {
		handleServiceError(w, r, model.NewValidationError("Photo is too large"))
		return
	}

	contentType, err := detectContentType(file, header.Header.Get("Content-Type"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	photoPath, err := h.store.Save(r.Context(), p.UserID, file, header.Size, contentType)
	if err != nil {
		if errors.Is(err, storage.ErrUnsupportedType) {
			handleServiceError(w, r, model.NewValidationError("Photo must be a JPEG, PNG, HEIC or WebP image"))
			return
		}
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, photoResponse{PhotoPath: photoPath})
}

// detectContentType は宣言されたContent-Typeが無いか汎用の場合、先頭バイトから判定する。
func detectContentType(file io.ReadSeeker, declared string) (string, error) {
	if declared != "" && declared != "application/octet-stream" {
		return declared, nil
	}
	head := make([]byte, 512)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", err
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	return http.DetectContentType(head[:n]), nil
}
