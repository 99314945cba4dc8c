package predict

import (
	"sync"

	"github.com/banshee-data/caption.review/internal/monitoring"
)

// Dispatcher sends recalculation requests in the background so a layout
// update never waits on the prediction service. Each notification is
// dispatched at most once; a failed request is logged and counted but not
// retried, since the next parameter change supersedes it anyway.
type Dispatcher struct {
	client *Client

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher creates a dispatcher around the given client.
func NewDispatcher(client *Client) *Dispatcher {
	return &Dispatcher{client: client}
}

// NotifyParamsChanged dispatches a recalculation request for the video.
// It returns immediately; the request runs in its own goroutine.
func (d *Dispatcher) NotifyParamsChanged(videoID string) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		monitoring.Logf("warning: prediction dispatch dropped for video %s: dispatcher closed", videoID)
		return
	}
	d.wg.Add(1)
	d.mu.Unlock()

	go func() {
		defer d.wg.Done()
		if err := d.client.RecalculatePredictions(videoID); err != nil {
			monitoring.PredictDispatchFailures.Inc()
			monitoring.Logf("warning: prediction recalculation request failed for video %s: %v", videoID, err)
		}
	}()
}

// Close waits for in-flight dispatches to finish. Notifications arriving
// after Close are dropped.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.wg.Wait()
}
