package notify

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsalo/fieldscan/internal/conf"
)

func settingsWithURLs(urls ...string) *conf.Settings {
	s := &conf.Settings{}
	s.Notify.Enabled = true
	s.Notify.URLs = urls
	return s
}

func TestNewNotifierRequiresURLs(t *testing.T) {
	t.Parallel()

	_, err := NewNotifier(settingsWithURLs())
	require.Error(t, err, "enabling notify without URLs should fail at startup")
}

func TestNewNotifierRejectsUnknownService(t *testing.T) {
	t.Parallel()

	_, err := NewNotifier(settingsWithURLs("carrierpigeon://loft/42"))
	require.Error(t, err, "unknown service scheme should fail validation")
}

func TestSendDeliversToWebhook(t *testing.T) {
	t.Parallel()

	var received atomic.Int32
	var lastBody atomic.Value

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		lastBody.Store(string(body))
		received.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	// shoutrrr's generic webhook service, pointed at the test server.
	url := "generic://" + strings.TrimPrefix(server.URL, "http://") + "?disabletls=yes"

	n, err := NewNotifier(settingsWithURLs(url))
	require.NoError(t, err)

	err = n.Send(t.Context(), "fieldscan run complete", "10 files, 42 detections")
	require.NoError(t, err)

	assert.Equal(t, int32(1), received.Load(), "exactly one webhook delivery expected")
	body, _ := lastBody.Load().(string)
	assert.Contains(t, body, "42 detections")
}

func TestSendReportsServerFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	url := "generic://" + strings.TrimPrefix(server.URL, "http://") + "?disabletls=yes"

	n, err := NewNotifier(settingsWithURLs(url))
	require.NoError(t, err)

	err = n.Send(t.Context(), "title", "message")
	require.Error(t, err, "HTTP 500 from the service should surface as a send error")
}

func TestSendHonorsCancelledContext(t *testing.T) {
	t.Parallel()

	n, err := NewNotifier(settingsWithURLs("generic://localhost:9/hook?disabletls=yes"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = n.Send(ctx, "title", "message")
	require.Error(t, err, "cancelled context should abort the send")
}

func TestNilNotifierSendIsNoop(t *testing.T) {
	t.Parallel()

	var n *Notifier
	assert.NoError(t, n.Send(context.Background(), "title", "message"))
}
