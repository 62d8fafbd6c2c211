package internal

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"webchat/internal/storage"
)

// HandleUpload accepts the out-of-band multipart upload: stores the binary,
// records the audit row, then persists and broadcasts the file message. Only
// the resulting reference travels over the realtime channel.
func (s *Server) HandleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	if !s.uploadLimiter.Allow(s.clientIP(r)) {
		http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.ingress.MaxFileSize())
	if err := r.ParseMultipartForm(s.ingress.MaxFileSize()); err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, errors.New("file too large"))
		return
	}

	username := r.FormValue("username")
	if username == "" {
		writeError(w, http.StatusBadRequest, errors.New("username required"))
		return
	}
	caption := r.FormValue("message")

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("no file provided"))
		return
	}
	defer file.Close()

	ref, written, err := s.ingress.Receive(file, header)
	if err != nil {
		log.Printf("file ingress: %v", err)
		writeError(w, http.StatusInternalServerError, errors.New("failed to store file"))
		return
	}

	audit := storage.UploadedFile{
		Filename:  ref.Filename,
		Path:      ref.Path,
		Mimetype:  ref.Mimetype,
		SizeBytes: written,
	}
	if err := s.store.RecordUploadedFile(r.Context(), audit); err != nil {
		log.Printf("uploaded file audit: %v", err)
		writeError(w, http.StatusInternalServerError, errors.New("failed to record upload"))
		return
	}

	if _, err := s.coordinator.NewFileMessage(username, caption, ref); err != nil {
		log.Printf("file message: %v", err)
		writeError(w, http.StatusInternalServerError, errors.New("failed to persist message"))
		return
	}
	s.metrics.IncUpload()

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("file uploaded"))
}

// HandleMessages serves the bulk endpoint; DELETE clears the entire log and
// broadcasts allMessagesDeleted.
func (s *Server) HandleMessages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		methodNotAllowed(w, http.MethodDelete)
		return
	}
	if err := s.coordinator.ClearAll(); err != nil {
		log.Printf("clear all: %v", err)
		writeError(w, http.StatusInternalServerError, errors.New("failed to clear messages"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("all messages deleted"))
}

// HandleHealth reports whether the store is reachable.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.store.Ping(ctx); err != nil {
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func writeError(w http.ResponseWriter, status int, err error) {
	http.Error(w, err.Error(), status)
}

func methodNotAllowed(w http.ResponseWriter, allowed string) {
	w.Header().Set("Allow", allowed)
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}
