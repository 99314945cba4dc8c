package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	"github.com/banshee-data/caption.review/internal/db"
	"github.com/banshee-data/caption.review/internal/layout"
)

type createLayoutRequest struct {
	VideoID     string `json:"video_id"`
	FrameWidth  int    `json:"frame_width"`
	FrameHeight int    `json:"frame_height"`
}

type updateLayoutRequest struct {
	VideoID string `json:"video_id"`
	db.LayoutUpdate
}

type resetLayoutRequest struct {
	VideoID string `json:"video_id"`
}

type approveLayoutRequest struct {
	VideoID  string `json:"video_id"`
	Approved *bool  `json:"approved"`
}

// layoutResponse optionally carries the visualization PNG alongside the
// config. The blob is base64 under JSON encoding.
type layoutResponse struct {
	*db.LayoutConfig
	Visualization []byte `json:"visualization,omitempty"`
}

func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.showLayout(w, r)
	case http.MethodPost:
		s.createLayout(w, r)
	default:
		w.Header().Set("Content-Type", "application/json")
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (s *Server) showLayout(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	videoID := r.URL.Query().Get("video_id")
	if videoID == "" {
		s.writeJSONError(w, http.StatusBadRequest, "Missing 'video_id' parameter")
		return
	}

	cfg, err := s.db.GetLayoutConfig(videoID)
	if errors.Is(err, db.ErrConfigNotFound) {
		s.writeJSONError(w, http.StatusNotFound, "No layout config for video")
		return
	}
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to retrieve layout config: %v", err))
		return
	}

	resp := layoutResponse{LayoutConfig: cfg}
	if v := r.URL.Query().Get("include_visualization"); v == "1" || v == "true" {
		blob, err := s.db.GetVisualization(videoID)
		if err != nil && !errors.Is(err, db.ErrConfigNotFound) {
			s.writeJSONError(w, http.StatusInternalServerError,
				fmt.Sprintf("Failed to retrieve visualization: %v", err))
			return
		}
		resp.Visualization = blob
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write layout config")
		return
	}
}

func (s *Server) createLayout(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var req createLayoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if _, err := uuid.Parse(req.VideoID); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "Parameter 'video_id' must be a UUID")
		return
	}
	if req.FrameWidth <= 0 || req.FrameHeight <= 0 {
		s.writeJSONError(w, http.StatusBadRequest, "Frame dimensions must be positive")
		return
	}

	cfg, err := s.db.CreateLayoutConfig(req.VideoID, req.FrameWidth, req.FrameHeight)
	if errors.Is(err, db.ErrConfigExists) {
		s.writeJSONError(w, http.StatusConflict, "Layout config already exists for video")
		return
	}
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to create layout config: %v", err))
		return
	}

	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(cfg); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write layout config")
		return
	}
}

func (s *Server) updateLayout(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodPost && r.Method != http.MethodPatch {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req updateLayoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.VideoID == "" {
		s.writeJSONError(w, http.StatusBadRequest, "Missing 'video_id' field")
		return
	}

	result, err := s.updater.UpdateLayoutConfig(r.Context(), req.VideoID, req.LayoutUpdate)
	if errors.Is(err, db.ErrConfigNotFound) {
		s.writeJSONError(w, http.StatusNotFound, "No layout config for video")
		return
	}
	if errors.Is(err, db.ErrInvalidUpdate) {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to update layout: %v", err))
		return
	}

	if err := json.NewEncoder(w).Encode(result); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write update result")
		return
	}
}

func (s *Server) resetLayout(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodPost {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req resetLayoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.VideoID == "" {
		s.writeJSONError(w, http.StatusBadRequest, "Missing 'video_id' field")
		return
	}

	outcome, err := s.resets.ResetCropBounds(r.Context(), req.VideoID)
	if errors.Is(err, db.ErrConfigNotFound) {
		s.writeJSONError(w, http.StatusNotFound, "No layout config for video")
		return
	}
	if errors.Is(err, layout.ErrNoBoxesFound) {
		s.writeJSONError(w, http.StatusUnprocessableEntity, "No OCR boxes stored for video")
		return
	}
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to reset crop bounds: %v", err))
		return
	}

	if err := json.NewEncoder(w).Encode(outcome); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write reset outcome")
		return
	}
}

func (s *Server) approveLayout(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodPost {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req approveLayoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.VideoID == "" {
		s.writeJSONError(w, http.StatusBadRequest, "Missing 'video_id' field")
		return
	}
	if req.Approved == nil {
		s.writeJSONError(w, http.StatusBadRequest, "Missing 'approved' field")
		return
	}

	err := s.db.SetLayoutApproved(req.VideoID, *req.Approved)
	if errors.Is(err, db.ErrConfigNotFound) {
		s.writeJSONError(w, http.StatusNotFound, "No layout config for video")
		return
	}
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to set approval: %v", err))
		return
	}

	resp := map[string]interface{}{
		"video_id": req.VideoID,
		"approved": *req.Approved,
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write approval")
		return
	}
}

// showVisualization serves the stored overlay PNG, optionally scaled down to
// a requested width. Upscaling is never done.
func (s *Server) showVisualization(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Content-Type", "application/json")
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	videoID := r.URL.Query().Get("video_id")
	if videoID == "" {
		w.Header().Set("Content-Type", "application/json")
		s.writeJSONError(w, http.StatusBadRequest, "Missing 'video_id' parameter")
		return
	}

	width := 0
	if v := r.URL.Query().Get("width"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 || parsed > 4096 {
			w.Header().Set("Content-Type", "application/json")
			s.writeJSONError(w, http.StatusBadRequest, "Invalid 'width' parameter")
			return
		}
		width = parsed
	}

	blob, err := s.db.GetVisualization(videoID)
	if errors.Is(err, db.ErrConfigNotFound) {
		w.Header().Set("Content-Type", "application/json")
		s.writeJSONError(w, http.StatusNotFound, "No layout config for video")
		return
	}
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to retrieve visualization: %v", err))
		return
	}
	if len(blob) == 0 {
		w.Header().Set("Content-Type", "application/json")
		s.writeJSONError(w, http.StatusNotFound, "No visualization rendered yet")
		return
	}

	if width > 0 {
		img, err := imaging.Decode(bytes.NewReader(blob))
		if err != nil {
			w.Header().Set("Content-Type", "application/json")
			s.writeJSONError(w, http.StatusInternalServerError,
				fmt.Sprintf("Failed to decode visualization: %v", err))
			return
		}
		if width < img.Bounds().Dx() {
			resized := imaging.Fit(img, width, img.Bounds().Dy(), imaging.Lanczos)
			var buf bytes.Buffer
			if err := imaging.Encode(&buf, resized, imaging.PNG); err != nil {
				w.Header().Set("Content-Type", "application/json")
				s.writeJSONError(w, http.StatusInternalServerError,
					fmt.Sprintf("Failed to encode visualization: %v", err))
				return
			}
			blob = buf.Bytes()
		}
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(blob)))
	w.Write(blob)
}
