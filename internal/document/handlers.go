package document

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
)

const maxUploadSize = int64(50 << 20) // high-resolution phone photos

// writeJSON writes v as a JSON response with the given status code
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// writeError writes a JSON error body
func writeError(w http.ResponseWriter, message string, code int) {
	writeJSON(w, code, map[string]string{"error": message})
}

// kindFromPath resolves the {kind} path segment, writing a 404 when it is unknown
func kindFromPath(w http.ResponseWriter, r *http.Request) (Kind, bool) {
	kind, err := ParseKind(r.PathValue("kind"))
	if err != nil {
		writeError(w, "Unknown document kind", http.StatusNotFound)
		return "", false
	}
	return kind, true
}

// recordStatus is the response code for a freshly processed record
func recordStatus(record *Record, success int) int {
	if record.Status == StatusFailed {
		return http.StatusUnprocessableEntity
	}
	return success
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleList returns all records of a kind
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindFromPath(w, r)
	if !ok {
		return
	}

	records, err := s.service.List(kind)
	if err != nil {
		slog.Error("Error listing records", "kind", kind, "error", err)
		writeError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []*Record{}
	}

	writeJSON(w, http.StatusOK, records)
}

// handleUpload stores and extracts an uploaded invoice or receipt
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindFromPath(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, "File is too large. Maximum size is 50MB.", http.StatusRequestEntityTooLarge)
			return
		}
		writeError(w, "Error parsing form", http.StatusBadRequest)
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		slog.Error("Error getting file from form", "error", err)
		writeError(w, "No file was provided. Send the document in the \"file\" field.", http.StatusBadRequest)
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		writeError(w, "Error reading file. Please try again.", http.StatusInternalServerError)
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = contentTypeFromExt(header.Filename)
	}
	contentType = strings.ToLower(strings.TrimSpace(contentType))

	record, err := s.service.Process(r.Context(), kind, header.Filename, data, contentType)
	if err != nil {
		slog.Error("Error processing document", "kind", kind, "filename", header.Filename, "error", err)
		writeError(w, "Error storing document", http.StatusInternalServerError)
		return
	}

	writeJSON(w, recordStatus(record, http.StatusCreated), record)
}

// contentTypeFromExt guesses the content type of an upload sent without one
func contentTypeFromExt(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".pdf":
		return "application/pdf"
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	case ".txt":
		return "text/plain"
	}
	return "application/octet-stream"
}

// handleExtract extracts already-read text without storing it
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindFromPath(w, r)
	if !ok {
		return
	}

	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxUploadSize)).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, "text is required", http.StatusBadRequest)
		return
	}

	record, err := s.service.Extract(r.Context(), kind, req.Text)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, recordStatus(record, http.StatusOK), record)
}

// handleGet returns a single record
func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindFromPath(w, r)
	if !ok {
		return
	}

	record, err := s.service.Get(kind, r.PathValue("id"))
	if err != nil {
		s.notFoundOrError(w, err, "Record not found")
		return
	}

	writeJSON(w, http.StatusOK, record)
}

// handleGetFile returns the original upload of a record
func (s *Server) handleGetFile(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindFromPath(w, r)
	if !ok {
		return
	}

	data, contentType, err := s.service.GetFile(kind, r.PathValue("id"))
	if err != nil {
		s.notFoundOrError(w, err, "File not found")
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

// handleDelete deletes a record and its file
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindFromPath(w, r)
	if !ok {
		return
	}

	if err := s.service.Delete(kind, r.PathValue("id")); err != nil {
		s.notFoundOrError(w, err, "Record not found")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) notFoundOrError(w http.ResponseWriter, err error, notFound string) {
	if errors.Is(err, ErrNotFound) {
		writeError(w, notFound, http.StatusNotFound)
		return
	}
	slog.Error("Error handling request", "error", err)
	writeError(w, "Internal server error", http.StatusInternalServerError)
}
