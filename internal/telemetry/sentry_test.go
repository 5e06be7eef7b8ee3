package telemetry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsalo/fieldscan/internal/conf"
)

func TestInstallIDCreatedOnFirstUse(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	id, err := installIDAt(dir)
	require.NoError(t, err, "first call should create an install ID")
	_, err = uuid.Parse(id)
	require.NoError(t, err, "install ID should be a valid UUID")

	data, err := os.ReadFile(filepath.Join(dir, installIDFile))
	require.NoError(t, err, "install ID should be persisted to disk")
	assert.Contains(t, string(data), id)
}

func TestInstallIDStableAcrossCalls(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	first, err := installIDAt(dir)
	require.NoError(t, err)

	second, err := installIDAt(dir)
	require.NoError(t, err)
	assert.Equal(t, first, second, "repeat calls should return the persisted ID")
}

func TestInstallIDRegeneratedWhenCorrupt(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	idPath := filepath.Join(dir, installIDFile)
	require.NoError(t, os.WriteFile(idPath, []byte("not-a-uuid\n"), 0o644))

	id, err := installIDAt(dir)
	require.NoError(t, err)
	_, err = uuid.Parse(id)
	require.NoError(t, err, "corrupt file should be replaced with a valid UUID")
	assert.NotEqual(t, "not-a-uuid", id)
}

func TestScrubEventRemovesIdentifyingData(t *testing.T) {
	t.Parallel()

	event := sentry.NewEvent()
	event.Message = "failed to read /srv/recordings/site-14/dawn.wav"
	event.ServerName = "station-7.example.org"
	event.User = sentry.User{ID: "someone", IPAddress: "10.0.0.3"}
	event.Exception = []sentry.Exception{
		{Type: "error", Value: "dial broker.example.com:1883: connection refused"},
	}
	event.Breadcrumbs = []*sentry.Breadcrumb{
		{Message: "opening /data/output/master.csv"},
	}

	got := scrubEvent(event, nil)
	require.NotNil(t, got)

	assert.NotContains(t, got.Message, "/srv/recordings", "paths should be scrubbed from messages")
	assert.Empty(t, got.ServerName, "server name should be cleared")
	assert.Empty(t, got.User.ID, "user identity should be cleared")
	assert.NotContains(t, got.Exception[0].Value, "broker.example.com:1883",
		"host:port pairs should be scrubbed from exception values")
	assert.NotContains(t, got.Breadcrumbs[0].Message, "/data/output",
		"paths should be scrubbed from breadcrumbs")
}

func TestScrubEventNilEvent(t *testing.T) {
	t.Parallel()

	assert.Nil(t, scrubEvent(nil, nil))
}

func TestInitSentryDisabledByDefault(t *testing.T) {
	settings := &conf.Settings{}

	err := InitSentry(settings)
	require.NoError(t, err, "disabled telemetry should be a silent no-op")
	assert.False(t, initialized, "SDK should not initialize without opt-in")
}

func TestCaptureErrorBeforeInit(t *testing.T) {
	// Must not panic or send anything when the SDK was never initialized.
	CaptureError(assert.AnError, "test")
	assert.True(t, Flush(0), "flush without init should report success")
}
