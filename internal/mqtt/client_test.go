package mqtt

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsalo/fieldscan/internal/conf"
)

func testSettings() *conf.Settings {
	s := &conf.Settings{}
	s.Main.Name = "fieldscan-test"
	s.MQTT.Enabled = true
	s.MQTT.Broker = "tcp://localhost:1883"
	s.MQTT.Topic = "fieldscan/results"
	return s
}

func TestNewClientMapsSettings(t *testing.T) {
	t.Parallel()

	s := testSettings()
	s.MQTT.Username = "station"
	s.MQTT.Password = "secret"
	s.MQTT.Retain = true

	c, err := NewClient(s)
	require.NoError(t, err)

	impl, ok := c.(*client)
	require.True(t, ok, "NewClient should return the paho-backed implementation")
	assert.Equal(t, "tcp://localhost:1883", impl.config.Broker)
	assert.Equal(t, "fieldscan-test", impl.config.ClientID)
	assert.Equal(t, "station", impl.config.Username)
	assert.Equal(t, "fieldscan/results", impl.config.Topic)
	assert.True(t, impl.config.Retain)
	assert.Equal(t, 30*time.Second, impl.config.ConnectTimeout, "defaults should be applied")
}

func TestNewClientRequiresBroker(t *testing.T) {
	t.Parallel()

	s := testSettings()
	s.MQTT.Broker = ""

	_, err := NewClient(s)
	require.Error(t, err, "empty broker address should be rejected")
}

func TestConnectInvalidBrokerURL(t *testing.T) {
	t.Parallel()

	s := testSettings()
	s.MQTT.Broker = "://not-a-url"

	c, err := NewClient(s)
	require.NoError(t, err)

	err = c.Connect(t.Context())
	require.Error(t, err, "malformed broker URL should fail fast")
}

func TestConnectCooldown(t *testing.T) {
	t.Parallel()

	c := &client{config: DefaultConfig()}
	c.config.Broker = "tcp://"
	c.lastConnAttempt = time.Now()

	err := c.Connect(t.Context())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too recent", "rapid reconnects should be throttled")
}

func TestPublishWithoutConnection(t *testing.T) {
	t.Parallel()

	s := testSettings()
	c, err := NewClient(s)
	require.NoError(t, err)

	err = c.Publish(t.Context(), "fieldscan/results", "{}")
	require.Error(t, err, "publish before connect should fail")
	assert.False(t, c.IsConnected())
}

func TestDisconnectWithoutConnection(t *testing.T) {
	t.Parallel()

	s := testSettings()
	c, err := NewClient(s)
	require.NoError(t, err)

	// Must be safe to call on a client that never connected.
	c.Disconnect()
}

func TestFileSummaryEncode(t *testing.T) {
	t.Parallel()

	payload, err := FileSummary{
		RunID:         "2b6a1f9e",
		File:          "dawn_chorus.wav",
		Detections:    3,
		TopLabel:      "Eurasian Wren",
		TopConfidence: 0.91,
	}.Encode()
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(payload), &decoded))
	assert.Equal(t, "dawn_chorus.wav", decoded["file"])
	assert.InDelta(t, 0.91, decoded["top_confidence"], 1e-9)
}

func TestBatchSummaryEncodeOmitsNothingRequired(t *testing.T) {
	t.Parallel()

	payload, err := BatchSummary{
		RunID:       "2b6a1f9e",
		Node:        "station-1",
		Files:       10,
		Failed:      1,
		Detections:  42,
		Duration:    "1m30s",
		CompletedAt: time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC),
	}.Encode()
	require.NoError(t, err)

	assert.Contains(t, payload, `"files":10`)
	assert.Contains(t, payload, `"failed":1`)
	assert.Contains(t, payload, `"completed_at"`)
}
