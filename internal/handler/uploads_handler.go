package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/boddenberg/spendlog/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ============================================================
// Attachments
// ============================================================

func uploadHandler(files *service.FileService, maxBytes int64, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /receipts/upload")
		defer span.End()

		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
		file, header, err := r.FormFile("file")
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeError(w, http.StatusRequestEntityTooLarge, "file too large")
				return
			}
			writeError(w, http.StatusBadRequest, "multipart field \"file\" is required")
			return
		}
		defer file.Close()

		res, err := files.Upload(ctx, header.Filename, file)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, res)
	}
}

func deleteUploadHandler(files *service.FileService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /receipts/upload/{filename}")
		defer span.End()

		name, err := url.PathUnescape(chi.URLParam(r, "filename"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid filename")
			return
		}

		if err := files.Delete(ctx, name); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"message": "File deleted successfully"})
	}
}
