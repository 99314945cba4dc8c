package api

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/banshee-data/caption.review/internal/db"
	"github.com/banshee-data/caption.review/internal/layout"
)

func captionBox(x, y float64) ingestBoxPayload {
	return ingestBoxPayload{
		X:          x,
		Y:          y,
		Width:      0.2,
		Height:     0.05,
		Text:       "caption text",
		Confidence: 0.9,
	}
}

func TestIngestAndListBoxes(t *testing.T) {
	server, _ := newTestServer(t)
	mux := server.ServeMux()
	videoID := newVideoID(t)

	if w := doJSON(t, mux, http.MethodPost, "/api/layout", createLayoutRequest{videoID, 1920, 1080}); w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}

	w := doJSON(t, mux, http.MethodPost, "/api/boxes/ingest", ingestRequest{
		VideoID: videoID,
		Frames: []ingestFramePayload{
			{FrameIndex: 0, Boxes: []ingestBoxPayload{captionBox(0.4, 0.1), captionBox(0.42, 0.1)}},
			{FrameIndex: 1, Boxes: []ingestBoxPayload{captionBox(0.41, 0.1)}},
		},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var ingest map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&ingest); err != nil {
		t.Fatalf("Failed to decode ingest response: %v", err)
	}
	if got, ok := ingest["inserted"].(float64); !ok || got != 3 {
		t.Errorf("expected 3 inserted, got %v", ingest["inserted"])
	}

	w = doJSON(t, mux, http.MethodGet, "/api/layout/boxes?video_id="+videoID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var boxes []boxResponse
	if err := json.NewDecoder(w.Body).Decode(&boxes); err != nil {
		t.Fatalf("Failed to decode boxes: %v", err)
	}
	if len(boxes) != 3 {
		t.Fatalf("expected 3 boxes, got %d", len(boxes))
	}
	for _, b := range boxes {
		if b.DisplayColor != layout.DisplayColor(false, "") {
			t.Errorf("fresh boxes should carry the neutral color, got %s", b.DisplayColor)
		}
	}

	w = doJSON(t, mux, http.MethodGet, "/api/layout/boxes?video_id="+videoID+"&frame=0", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	boxes = nil
	if err := json.NewDecoder(w.Body).Decode(&boxes); err != nil {
		t.Fatalf("Failed to decode boxes: %v", err)
	}
	if len(boxes) != 2 {
		t.Errorf("expected 2 boxes in frame 0, got %d", len(boxes))
	}
}

func TestListBoxesRejections(t *testing.T) {
	server, database := newTestServer(t)
	mux := server.ServeMux()
	videoID := newVideoID(t)
	seedVideo(t, database, videoID, 1)

	t.Run("bad frame parameter", func(t *testing.T) {
		w := doJSON(t, mux, http.MethodGet, "/api/layout/boxes?video_id="+videoID+"&frame=abc", nil)
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected 400 for non-numeric frame, got %d", w.Code)
		}
	})

	t.Run("unknown video", func(t *testing.T) {
		w := doJSON(t, mux, http.MethodGet, "/api/layout/boxes?video_id="+newVideoID(t), nil)
		if w.Code != http.StatusNotFound {
			t.Errorf("expected 404 for unknown video, got %d", w.Code)
		}
	})
}

func TestIngestRejections(t *testing.T) {
	server, database := newTestServer(t)
	mux := server.ServeMux()
	videoID := newVideoID(t)
	seedVideo(t, database, videoID, 0)

	cases := []struct {
		name string
		req  ingestRequest
	}{
		{"no frames", ingestRequest{VideoID: videoID}},
		{"negative frame index", ingestRequest{
			VideoID: videoID,
			Frames:  []ingestFramePayload{{FrameIndex: -1, Boxes: []ingestBoxPayload{captionBox(0.4, 0.1)}}},
		}},
		{"x outside frame", ingestRequest{
			VideoID: videoID,
			Frames:  []ingestFramePayload{{FrameIndex: 0, Boxes: []ingestBoxPayload{captionBox(1.5, 0.1)}}},
		}},
		{"empty box", ingestRequest{
			VideoID: videoID,
			Frames: []ingestFramePayload{{FrameIndex: 0, Boxes: []ingestBoxPayload{{
				X: 0.4, Y: 0.1, Width: 0, Height: 0.05,
			}}}},
		}},
		{"frames without boxes", ingestRequest{
			VideoID: videoID,
			Frames:  []ingestFramePayload{{FrameIndex: 0}},
		}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			w := doJSON(t, mux, http.MethodPost, "/api/boxes/ingest", c.req)
			if w.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d: %s", w.Code, w.Body.String())
			}
		})
	}

	t.Run("unknown video", func(t *testing.T) {
		w := doJSON(t, mux, http.MethodPost, "/api/boxes/ingest", ingestRequest{
			VideoID: newVideoID(t),
			Frames:  []ingestFramePayload{{FrameIndex: 0, Boxes: []ingestBoxPayload{captionBox(0.4, 0.1)}}},
		})
		if w.Code != http.StatusNotFound {
			t.Errorf("expected 404 for unknown video, got %d", w.Code)
		}
	})
}

func TestLabelBoxEndpoint(t *testing.T) {
	server, database := newTestServer(t)
	mux := server.ServeMux()
	videoID := newVideoID(t)
	seedVideo(t, database, videoID, 1)

	records, err := database.BoxesForVideo(videoID)
	if err != nil || len(records) != 1 {
		t.Fatalf("Failed to load seeded box: %v", err)
	}
	boxID := records[0].ID

	w := doJSON(t, mux, http.MethodPost, "/api/boxes/label", labelBoxRequest{BoxID: boxID, Label: db.UserLabelCaption})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var boxes []boxResponse
	w = doJSON(t, mux, http.MethodGet, "/api/layout/boxes?video_id="+videoID, nil)
	if err := json.NewDecoder(w.Body).Decode(&boxes); err != nil {
		t.Fatalf("Failed to decode boxes: %v", err)
	}
	if boxes[0].DisplayColor != layout.DisplayColor(false, db.UserLabelCaption) {
		t.Errorf("user-confirmed box should show the caption color, got %s", boxes[0].DisplayColor)
	}

	// Empty label clears the verdict
	if w := doJSON(t, mux, http.MethodPost, "/api/boxes/label", labelBoxRequest{BoxID: boxID}); w.Code != http.StatusOK {
		t.Fatalf("expected 200 clearing label, got %d", w.Code)
	}
	w = doJSON(t, mux, http.MethodGet, "/api/layout/boxes?video_id="+videoID, nil)
	boxes = nil
	if err := json.NewDecoder(w.Body).Decode(&boxes); err != nil {
		t.Fatalf("Failed to decode boxes: %v", err)
	}
	if boxes[0].UserLabel != nil {
		t.Errorf("expected label cleared, got %v", *boxes[0].UserLabel)
	}

	t.Run("invalid label", func(t *testing.T) {
		w := doJSON(t, mux, http.MethodPost, "/api/boxes/label", labelBoxRequest{BoxID: boxID, Label: "maybe"})
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected 400 for invalid label, got %d", w.Code)
		}
	})

	t.Run("unknown box", func(t *testing.T) {
		w := doJSON(t, mux, http.MethodPost, "/api/boxes/label", labelBoxRequest{BoxID: 99999, Label: db.UserLabelCaption})
		if w.Code != http.StatusNotFound {
			t.Errorf("expected 404 for unknown box, got %d", w.Code)
		}
	})
}
