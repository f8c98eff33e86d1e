package http

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"github.com/w-h-a/docchat/chat/memory"
	"github.com/w-h-a/docchat/extractor"
	"github.com/w-h-a/docchat/internal/service/session"
)

// Server is the thin presentation shim over one session: file staging,
// the indexing action, chat, and history. All failures come back as
// JSON messages.
type Server struct {
	session *session.Session
	router  *mux.Router

	staged []extractor.UploadedFile
	mtx    sync.Mutex
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Run(addr string) error {
	slog.Info("docchat http server listening", "addr", addr)
	return http.ListenAndServe(addr, s.router)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	var staged []string

	for _, headers := range r.MultipartForm.File {
		for _, header := range headers {
			if !extractor.IsSupported(header.Filename) {
				writeError(w, http.StatusBadRequest, "unsupported file type: "+header.Filename)
				return
			}

			file, err := header.Open()
			if err != nil {
				writeError(w, http.StatusBadRequest, "failed to read "+header.Filename)
				return
			}

			raw, err := io.ReadAll(file)
			file.Close()
			if err != nil {
				writeError(w, http.StatusBadRequest, "failed to read "+header.Filename)
				return
			}

			s.mtx.Lock()
			s.staged = append(s.staged, extractor.UploadedFile{Name: header.Filename, Bytes: raw})
			s.mtx.Unlock()

			staged = append(staged, header.Filename)
		}
	}

	if len(staged) == 0 {
		writeError(w, http.StatusBadRequest, "please upload at least one file")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"staged": staged})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.mtx.Lock()
	files := s.staged
	s.mtx.Unlock()

	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, "please upload at least one file")
		return
	}

	report, err := s.session.Index(r.Context(), files)
	if err != nil {
		status := http.StatusBadGateway
		if report != nil && len(report.Errors) == report.Files {
			status = http.StatusUnprocessableEntity
		}
		body := map[string]any{"error": err.Error()}
		if report != nil {
			body["report"] = report
		}
		writeJSON(w, status, body)
		return
	}

	// Staged files are consumed by a successful indexing action.
	s.mtx.Lock()
	s.staged = nil
	s.mtx.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"report": report})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query string `json:"query"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	answer, err := s.session.Ask(r.Context(), req.Query)
	if err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"answer": answer})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	history := s.session.History()
	if history == nil {
		history = []memory.Turn{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": history})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg})
}

func NewServer(sess *session.Session) *Server {
	s := &Server{
		session: sess,
		router:  mux.NewRouter(),
	}

	s.router.HandleFunc("/api/v1/files", s.handleUpload).Methods(http.MethodPost)
	s.router.HandleFunc("/api/v1/index", s.handleIndex).Methods(http.MethodPost)
	s.router.HandleFunc("/api/v1/chat", s.handleChat).Methods(http.MethodPost)
	s.router.HandleFunc("/api/v1/history", s.handleHistory).Methods(http.MethodGet)

	return s
}
