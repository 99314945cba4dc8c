package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/banshee-data/caption.review/internal/db"
)

type frameCacheResponse struct {
	VideoID           string               `json:"video_id"`
	CropBoundsVersion int                  `json:"crop_bounds_version"`
	Count             int                  `json:"count"`
	Entries           []db.FrameCacheEntry `json:"entries"`
}

type registerFrameRequest struct {
	VideoID     string `json:"video_id"`
	FrameIndex  int    `json:"frame_index"`
	CropVersion int    `json:"crop_version"`
	ImagePath   string `json:"image_path"`
}

func (s *Server) handleFrameCache(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listFrameCache(w, r)
	case http.MethodPost:
		s.registerCachedFrame(w, r)
	default:
		w.Header().Set("Content-Type", "application/json")
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (s *Server) listFrameCache(w http.ResponseWriter, r *http.Request) {
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

	entries, err := s.db.ListFrameCache(videoID)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to list frame cache: %v", err))
		return
	}
	if entries == nil {
		entries = []db.FrameCacheEntry{}
	}

	resp := frameCacheResponse{
		VideoID:           videoID,
		CropBoundsVersion: cfg.CropBoundsVersion,
		Count:             len(entries),
		Entries:           entries,
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write frame cache")
		return
	}
}

// registerCachedFrame records an externally cropped frame. Frames cut with a
// crop version other than the current one are refused; they would be
// invalidated on the next bounds change anyway and serving them mixes crops.
func (s *Server) registerCachedFrame(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var req registerFrameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.VideoID == "" {
		s.writeJSONError(w, http.StatusBadRequest, "Missing 'video_id' field")
		return
	}
	if req.FrameIndex < 0 {
		s.writeJSONError(w, http.StatusBadRequest, "Invalid 'frame_index' field")
		return
	}
	if req.ImagePath == "" {
		s.writeJSONError(w, http.StatusBadRequest, "Missing 'image_path' field")
		return
	}

	cfg, err := s.db.GetLayoutConfig(req.VideoID)
	if errors.Is(err, db.ErrConfigNotFound) {
		s.writeJSONError(w, http.StatusNotFound, "No layout config for video")
		return
	}
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to retrieve layout config: %v", err))
		return
	}
	if req.CropVersion != cfg.CropBoundsVersion {
		s.writeJSONError(w, http.StatusConflict,
			fmt.Sprintf("Crop version %d is stale; current is %d", req.CropVersion, cfg.CropBoundsVersion))
		return
	}

	entry := db.FrameCacheEntry{
		VideoID:     req.VideoID,
		FrameIndex:  req.FrameIndex,
		CropVersion: req.CropVersion,
		ImagePath:   req.ImagePath,
	}
	if err := s.db.UpsertFrameCache(&entry); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to register cached frame: %v", err))
		return
	}

	if err := json.NewEncoder(w).Encode(entry); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write cache entry")
		return
	}
}
