package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/banshee-data/caption.review/internal/db"
	"github.com/banshee-data/caption.review/internal/layout"
)

// boxResponse decorates a stored box with the color the review UI draws it
// in.
type boxResponse struct {
	db.OCRBoxRecord
	DisplayColor string `json:"display_color"`
}

type labelBoxRequest struct {
	BoxID int64  `json:"box_id"`
	Label string `json:"label"`
}

type ingestBoxPayload struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

type ingestFramePayload struct {
	FrameIndex int                `json:"frame_index"`
	Boxes      []ingestBoxPayload `json:"boxes"`
}

type ingestRequest struct {
	VideoID string               `json:"video_id"`
	Frames  []ingestFramePayload `json:"frames"`
}

func (s *Server) listBoxes(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	videoID := r.URL.Query().Get("video_id")
	if videoID == "" {
		s.writeJSONError(w, http.StatusBadRequest, "Missing 'video_id' parameter")
		return
	}

	// Confirm the video exists so an empty list is distinguishable from an
	// unknown video.
	if _, err := s.db.GetLayoutConfig(videoID); err != nil {
		if errors.Is(err, db.ErrConfigNotFound) {
			s.writeJSONError(w, http.StatusNotFound, "No layout config for video")
			return
		}
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to retrieve layout config: %v", err))
		return
	}

	var records []db.OCRBoxRecord
	var err error
	if f := r.URL.Query().Get("frame"); f != "" {
		frame, parseErr := strconv.Atoi(f)
		if parseErr != nil || frame < 0 {
			s.writeJSONError(w, http.StatusBadRequest, "Invalid 'frame' parameter")
			return
		}
		records, err = s.db.BoxesForFrame(videoID, frame)
	} else {
		records, err = s.db.BoxesForVideo(videoID)
	}
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to retrieve boxes: %v", err))
		return
	}

	boxes := make([]boxResponse, 0, len(records))
	for i := range records {
		boxes = append(boxes, boxResponse{
			OCRBoxRecord: records[i],
			DisplayColor: records[i].DisplayColor(),
		})
	}

	if err := json.NewEncoder(w).Encode(boxes); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write boxes")
		return
	}
}

func (s *Server) labelBox(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodPost {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req labelBoxRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.BoxID <= 0 {
		s.writeJSONError(w, http.StatusBadRequest, "Missing 'box_id' field")
		return
	}
	switch req.Label {
	case "", db.UserLabelCaption, db.UserLabelNotCaption:
	default:
		s.writeJSONError(w, http.StatusBadRequest,
			"Label must be 'caption', 'not_caption', or empty to clear")
		return
	}

	err := s.db.LabelOCRBox(req.BoxID, req.Label)
	if errors.Is(err, db.ErrBoxNotFound) {
		s.writeJSONError(w, http.StatusNotFound, "No box with that id")
		return
	}
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to label box: %v", err))
		return
	}

	resp := map[string]interface{}{
		"box_id": req.BoxID,
		"label":  req.Label,
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write label")
		return
	}
}

// validIngestBox rejects non-finite numbers, origins outside the frame, and
// empty boxes. All geometry is fractional relative to the frame, y measured
// from the bottom edge.
func validIngestBox(b ingestBoxPayload) bool {
	for _, v := range []float64{b.X, b.Y, b.Width, b.Height, b.Confidence} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	if b.X < 0 || b.X > 1 || b.Y < 0 || b.Y > 1 {
		return false
	}
	if b.Width <= 0 || b.Height <= 0 {
		return false
	}
	return true
}

func (s *Server) ingestBoxes(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodPost {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.VideoID == "" {
		s.writeJSONError(w, http.StatusBadRequest, "Missing 'video_id' field")
		return
	}
	if len(req.Frames) == 0 {
		s.writeJSONError(w, http.StatusBadRequest, "No frames given")
		return
	}

	if _, err := s.db.GetLayoutConfig(req.VideoID); err != nil {
		if errors.Is(err, db.ErrConfigNotFound) {
			s.writeJSONError(w, http.StatusNotFound, "No layout config for video")
			return
		}
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to retrieve layout config: %v", err))
		return
	}

	var boxes []layout.OCRBox
	for _, frame := range req.Frames {
		if frame.FrameIndex < 0 {
			s.writeJSONError(w, http.StatusBadRequest,
				fmt.Sprintf("Invalid frame index %d", frame.FrameIndex))
			return
		}
		for _, b := range frame.Boxes {
			if !validIngestBox(b) {
				s.writeJSONError(w, http.StatusBadRequest,
					fmt.Sprintf("Invalid box geometry in frame %d", frame.FrameIndex))
				return
			}
			boxes = append(boxes, layout.OCRBox{
				FrameIndex: frame.FrameIndex,
				X:          b.X,
				Y:          b.Y,
				Width:      b.Width,
				Height:     b.Height,
				Text:       b.Text,
				Confidence: b.Confidence,
			})
		}
	}
	if len(boxes) == 0 {
		s.writeJSONError(w, http.StatusBadRequest, "No boxes given")
		return
	}

	if err := s.db.InsertOCRBoxes(req.VideoID, boxes); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to ingest boxes: %v", err))
		return
	}

	resp := map[string]interface{}{
		"video_id": req.VideoID,
		"inserted": len(boxes),
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write ingest result")
		return
	}
}
