package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"

	"go.uber.org/zap"

	"github.com/hyperjump/tansaku/internal/fsnav"
	"github.com/hyperjump/tansaku/internal/index"
	"github.com/hyperjump/tansaku/internal/models"
)

// defaultTopK is applied when a search request omits topK.
const defaultTopK = 10

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req models.SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.TopK == 0 {
		req.TopK = defaultTopK
	}
	s.logger.Debug("search request", zap.String("query", req.Query), zap.Int("topK", req.TopK))
	matches, err := s.index.Search(r.Context(), req.Query, req.TopK)
	if err != nil {
		if errors.Is(err, index.ErrEmptyQuery) {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, models.SearchResponse{Matches: matches})
}

func (s *Server) handleRead(w http.ResponseWriter, r *http.Request) {
	var req models.ReadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required")
		return
	}
	abs, err := fsnav.ResolveWithinRoot(s.root, req.Path)
	if err != nil {
		s.respondError(w, http.StatusForbidden, err.Error())
		return
	}

	if s.extractor.CacheServed(req.Path) {
		// Extracted formats are answered from the cache only; a miss means the
		// file has not been indexed since its last change.
		info, err := os.Stat(abs)
		if err != nil {
			if os.IsNotExist(err) {
				s.respondError(w, http.StatusNotFound, "file not found")
				return
			}
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		text, ok := s.extractor.CachedText(abs, info.Size())
		if !ok {
			s.respondError(w, http.StatusConflict, "file not indexed, trigger a reindex first")
			return
		}
		s.respondJSON(w, http.StatusOK, models.ReadResponse{
			Path:    req.Path,
			Content: fsnav.NarrowRange(text, req.StartLine, req.EndLine),
		})
		return
	}

	content, err := fsnav.ReadRange(abs, req.StartLine, req.EndLine)
	if err != nil {
		if os.IsNotExist(err) {
			s.respondError(w, http.StatusNotFound, "file not found")
			return
		}
		s.logger.Error("read failed", zap.String("path", req.Path), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, models.ReadResponse{Path: req.Path, Content: content})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	var req models.ListRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	maxDepth := req.MaxDepth
	if req.Recursive && maxDepth == 0 {
		maxDepth = -1
	}
	entries, err := fsnav.ListDirectory(s.root, req.Dir, req.Recursive, maxDepth, req.IncludeExtensions, req.Limit)
	if err != nil {
		if errors.Is(err, fsnav.ErrOutOfBounds) {
			s.respondError(w, http.StatusForbidden, err.Error())
			return
		}
		if os.IsNotExist(err) {
			s.respondError(w, http.StatusNotFound, "directory not found")
			return
		}
		s.logger.Error("list failed", zap.String("dir", req.Dir), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if entries == nil {
		entries = []models.Entry{}
	}
	s.respondJSON(w, http.StatusOK, models.ListResponse{Entries: entries})
}

func (s *Server) handleReindex(w http.ResponseWriter, r *http.Request) {
	if !s.TriggerReindex() {
		s.respondJSON(w, http.StatusAccepted, map[string]string{"status": "already running"})
		return
	}
	s.respondJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.index.Status().Snapshot())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
