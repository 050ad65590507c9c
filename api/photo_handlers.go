package api

import (
	"fmt"
	"io"
	"net/http"

	"couple-journal/upload"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const (
	maxUploadRequest = 200 << 20 // 200 MB
	multipartMemory  = 32 << 20
)

type uploadResponse struct {
	Files []upload.Result `json:"files"`
}

func (s *Server) handleUploadPhotos(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > maxUploadRequest {
		s.Log.Warn("upload exceeds request limit", zap.Int64("content_length", r.ContentLength))
		respondWithError(w, http.StatusRequestEntityTooLarge, "upload exceeds size limit")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadRequest)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		s.Log.Warn("failed to parse upload form", zap.Error(err))
		respondWithError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	fileHeaders := r.MultipartForm.File["file"]
	if len(fileHeaders) == 0 {
		s.fail(w, r, upload.ErrNoFiles)
		return
	}

	files := make([]upload.File, 0, len(fileHeaders))
	for _, fileHeader := range fileHeaders {
		f, err := fileHeader.Open()
		if err != nil {
			s.fail(w, r, fmt.Errorf("open %s: %w", fileHeader.Filename, err))
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			s.fail(w, r, fmt.Errorf("read %s: %w", fileHeader.Filename, err))
			return
		}
		files = append(files, upload.File{
			Name:        fileHeader.Filename,
			ContentType: fileHeader.Header.Get("Content-Type"),
			Data:        data,
		})
	}

	results, err := s.Uploader.UploadBatch(r.Context(), viewer(r).UserID, r.FormValue("folder"), files)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, uploadResponse{Files: results})
}

func (s *Server) handleDeleteUpload(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		respondWithError(w, http.StatusBadRequest, "path is required")
		return
	}
	if err := s.Uploader.Remove(r.Context(), viewer(r).UserID, path); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleAlbumZip streams every photo of a province album as one download.
func (s *Server) handleAlbumZip(w http.ResponseWriter, r *http.Request) {
	provinceID, err := s.Journal.Provinces.Resolve(mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, r, err)
		return
	}
	photos, err := s.Journal.Provinces.Album(r.Context(), viewer(r), provinceID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if len(photos) == 0 {
		respondWithError(w, http.StatusNotFound, "album is empty")
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", provinceID+".zip"))
	w.WriteHeader(http.StatusOK)

	added, err := s.Archiver.WriteZip(r.Context(), w, photos)
	if err != nil {
		// Headers are out; all that is left is to log.
		s.Log.Error("album download interrupted", zap.String("province_id", provinceID), zap.Int("added", added), zap.Error(err))
		return
	}
	s.Log.Info("album downloaded", zap.String("province_id", provinceID), zap.Int("photos", added))
}
