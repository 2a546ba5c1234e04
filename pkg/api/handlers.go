package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/dd0wney/cluso-pipenet/pkg/api/middleware"
	"github.com/dd0wney/cluso-pipenet/pkg/logging"
	"github.com/dd0wney/cluso-pipenet/pkg/tools"
)

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("encode response", logging.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, r *http.Request, status int, message string) {
	middleware.WriteError(w, r, status, message)
}

// current returns the live state, answering 503 when there is none.
func (s *Server) current(w http.ResponseWriter, r *http.Request) (*state, bool) {
	st := s.state.Load()
	if st == nil {
		s.respondError(w, r, http.StatusServiceUnavailable, ErrNoDataset.Error())
		return nil, false
	}
	return st, true
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	st, ok := s.current(w, r)
	if !ok {
		return
	}
	idx := st.svc.Index()
	s.respondJSON(w, http.StatusOK, InfoResponse{
		Version:    s.cfg.Version,
		Uptime:     time.Since(s.startTime).Round(time.Second).String(),
		Dataset:    st.dataset,
		Shapes:     idx.Len(),
		PipeGroups: idx.GroupCount(),
		Skipped:    len(idx.Skipped()),
	})
}

func (s *Server) handleListTools(w http.ResponseWriter, r *http.Request) {
	st, ok := s.current(w, r)
	if !ok {
		return
	}
	defs := st.dispatcher.Registry().Definitions()
	s.respondJSON(w, http.StatusOK, ToolsResponse{Tools: defs, Count: len(defs)})
}

func (s *Server) handleDescribeTool(w http.ResponseWriter, r *http.Request) {
	st, ok := s.current(w, r)
	if !ok {
		return
	}
	def, _, found := st.dispatcher.Registry().Lookup(r.PathValue("name"))
	if !found {
		s.respondError(w, r, http.StatusNotFound, "unknown tool")
		return
	}
	s.respondJSON(w, http.StatusOK, def)
}

// handleCallTool runs one tool. The body is the argument object; an empty
// body means no arguments. Tool failures are reported in the Result with
// status 200 so the caller can read the error kind; only an unknown tool
// name is a 404.
func (s *Server) handleCallTool(w http.ResponseWriter, r *http.Request) {
	st, ok := s.current(w, r)
	if !ok {
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(w, r, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		s.respondError(w, r, http.StatusBadRequest, "failed to read request body")
		return
	}

	args := bytes.TrimSpace(body)
	if len(args) == 0 {
		args = []byte("{}")
	}
	if args[0] != '{' || !json.Valid(args) {
		s.respondError(w, r, http.StatusBadRequest, "arguments must be a JSON object")
		return
	}

	res := st.dispatcher.Call(r.Context(), r.PathValue("name"), args)

	status := http.StatusOK
	if res.ErrorKind == tools.ErrorKindUnknownTool {
		status = http.StatusNotFound
	}
	s.respondJSON(w, status, res)
}

func (s *Server) handleGraphQL(w http.ResponseWriter, r *http.Request) {
	st, ok := s.current(w, r)
	if !ok {
		return
	}
	st.graphql.ServeHTTP(w, r)
}
