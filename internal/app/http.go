package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"easel/api/internal/board"
	"easel/api/internal/search"
)

type HTTPServer struct {
	service    *Service
	corsOrigin string
}

func NewHTTPServer(service *Service, corsOrigin string) *HTTPServer {
	return &HTTPServer{service: service, corsOrigin: corsOrigin}
}

func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(http.HandlerFunc(s.handle))
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		writeJSON(w, http.StatusNoContent, map[string]any{})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/health" {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	// The hydration gate: clients poll this until hydrated is true and
	// must not render (or mutate) stateful content before then.
	if r.Method == http.MethodGet && r.URL.Path == "/api/board/status" {
		writeJSON(w, http.StatusOK, s.service.Status())
		return
	}

	// Everything below operates on board state, which does not exist
	// until the startup load completes.
	if !s.service.Hydrated() {
		writeError(w, http.StatusServiceUnavailable, "NOT_HYDRATED", "Board state is still loading", nil)
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/board" {
		items, maxZIndex := s.service.Board()
		writeJSON(w, http.StatusOK, map[string]any{
			"items":     items,
			"maxZIndex": maxZIndex,
		})
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/board/notes" {
		var body struct {
			X       float64 `json:"x"`
			Y       float64 `json:"y"`
			Width   float64 `json:"width"`
			Height  float64 `json:"height"`
			Content string  `json:"content"`
			Color   string  `json:"color"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		item := s.service.AddNote(body.X, body.Y, body.Width, body.Height, body.Content, body.Color)
		writeJSON(w, http.StatusCreated, item)
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/board/images" {
		var body struct {
			X       float64 `json:"x"`
			Y       float64 `json:"y"`
			Width   float64 `json:"width"`
			Height  float64 `json:"height"`
			Content string  `json:"content"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		item, err := s.service.AddImage(body.X, body.Y, body.Width, body.Height, body.Content)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, item)
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/board/drag" {
		var body struct {
			Dragging bool `json:"dragging"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		s.service.SetDragging(body.Dragging)
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/board/undo" {
		writeJSON(w, http.StatusOK, map[string]any{"applied": s.service.Undo()})
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/board/redo" {
		writeJSON(w, http.StatusOK, map[string]any{"applied": s.service.Redo()})
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/board/search" {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		response := s.service.Search(search.Query{
			Text:  r.URL.Query().Get("q"),
			Limit: limit,
		})
		writeJSON(w, http.StatusOK, response)
		return
	}

	if id, rest, ok := itemRoute(r.URL.Path); ok {
		s.handleItem(w, r, id, rest)
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/snapshots" {
		names, err := s.service.ListSnapshots(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "SNAPSHOT_LIST_FAILED", "Could not list snapshots", nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"snapshots": names})
		return
	}

	if name, rest, ok := snapshotRoute(r.URL.Path); ok {
		s.handleSnapshot(w, r, name, rest)
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
}

func (s *HTTPServer) handleItem(w http.ResponseWriter, r *http.Request, id, rest string) {
	switch {
	case rest == "" && r.Method == http.MethodPatch:
		var patch board.ItemPatch
		if err := decodeBody(r, &patch); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		s.service.UpdateItem(id, patch)
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})

	case rest == "" && r.Method == http.MethodDelete:
		s.service.DeleteItem(id)
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})

	case rest == "move" && r.Method == http.MethodPost:
		var body struct {
			AnchorX float64 `json:"anchorX"`
			AnchorY float64 `json:"anchorY"`
			DX      float64 `json:"dx"`
			DY      float64 `json:"dy"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		s.service.MoveItem(id, body.AnchorX, body.AnchorY, body.DX, body.DY)
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})

	case rest == "front" && r.Method == http.MethodPost:
		var body struct {
			DuringDrag bool `json:"duringDrag"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		if body.DuringDrag {
			s.service.PressItem(id)
		} else {
			s.service.BringToFront(id)
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
	}
}

func (s *HTTPServer) handleSnapshot(w http.ResponseWriter, r *http.Request, name, rest string) {
	switch {
	case rest == "" && r.Method == http.MethodPut:
		if err := s.service.SaveSnapshot(r.Context(), name); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "name": name})

	case rest == "" && r.Method == http.MethodDelete:
		if err := s.service.DeleteSnapshot(r.Context(), name); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})

	case rest == "load" && r.Method == http.MethodPost:
		if err := s.service.LoadSnapshot(r.Context(), name); err != nil {
			writeDomainError(w, err)
			return
		}
		items, maxZIndex := s.service.Board()
		writeJSON(w, http.StatusOK, map[string]any{
			"ok":        true,
			"items":     items,
			"maxZIndex": maxZIndex,
		})

	case rest == "history" && r.Method == http.MethodGet:
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		commits, err := s.service.SnapshotHistory(name, limit)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"commits": commits})

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
	}
}

// itemRoute matches /api/board/items/{id} and /api/board/items/{id}/{rest}.
func itemRoute(path string) (id, rest string, ok bool) {
	return subRoute(path, "/api/board/items/")
}

// snapshotRoute matches /api/snapshots/{name} and /api/snapshots/{name}/{rest}.
func snapshotRoute(path string) (name, rest string, ok bool) {
	return subRoute(path, "/api/snapshots/")
}

func subRoute(path, prefix string) (first, rest string, ok bool) {
	if !strings.HasPrefix(path, prefix) {
		return "", "", false
	}
	parts := strings.SplitN(strings.TrimPrefix(path, prefix), "/", 2)
	if parts[0] == "" {
		return "", "", false
	}
	if len(parts) == 2 {
		return parts[0], parts[1], true
	}
	return parts[0], "", true
}

func writeDomainError(w http.ResponseWriter, err error) {
	var domain *DomainError
	if errors.As(err, &domain) {
		writeError(w, domain.Status, domain.Code, domain.Message, nil)
		return
	}
	writeError(w, http.StatusInternalServerError, "STORAGE_FAILED", err.Error(), nil)
}

type requestIDKey struct{}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = randomRequestID()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.corsOrigin)
		writer.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(writer, r)

		log.Printf(`{"request_id":"%s","method":"%s","path":"%s","status":%d,"duration_ms":%d}`,
			requestID,
			r.Method,
			r.URL.Path,
			writer.status,
			time.Since(started).Milliseconds(),
		)
	})
}

func randomRequestID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
	header.Set("Access-Control-Allow-Methods", "GET,POST,PUT,PATCH,DELETE,OPTIONS")
	header.Set("Cache-Control", "no-store")
	header.Set("Content-Type", "application/json")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, http.ErrBodyReadAfterClose) {
			return nil
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}
