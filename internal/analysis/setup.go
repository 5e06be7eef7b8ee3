package analysis

import (
	"context"

	"github.com/tsalo/fieldscan/internal/conf"
	"github.com/tsalo/fieldscan/internal/datastore"
	"github.com/tsalo/fieldscan/internal/mqtt"
	"github.com/tsalo/fieldscan/internal/notify"
	"github.com/tsalo/fieldscan/internal/observability"
)

// openStore opens the configured result database. Returns nil with no error
// when persistence is disabled.
func openStore(settings *conf.Settings) (datastore.Interface, error) {
	store := datastore.New(settings)
	if store == nil {
		return nil, nil
	}
	if err := store.Open(); err != nil {
		return nil, err
	}
	return store, nil
}

// closeDataStore closes the database connection, logging rather than
// propagating failures since the analysis work is already done.
func closeDataStore(store datastore.Interface) {
	if store == nil {
		return
	}
	if err := store.Close(); err != nil {
		GetLogger().Warn("failed to close database", "error", err)
	}
}

// connectPublisher builds and connects the MQTT client when publishing is
// enabled. A misconfigured client is a startup error; a broker that is
// merely unreachable downgrades to a warning and the run continues without
// publishing.
func connectPublisher(ctx context.Context, settings *conf.Settings) (mqtt.Client, error) {
	if !settings.MQTT.Enabled {
		return nil, nil
	}

	client, err := mqtt.NewClient(settings)
	if err != nil {
		return nil, err
	}

	if err := client.Connect(ctx); err != nil {
		GetLogger().Warn("mqtt broker unreachable, continuing without publishing", "error", err)
		return nil, nil
	}
	return client, nil
}

// startMetrics builds the Prometheus registry and serves it on the
// configured listen address until ctx is cancelled. Returns nil with no
// error when the metrics endpoint is disabled.
func startMetrics(ctx context.Context, settings *conf.Settings) (*observability.Metrics, error) {
	if !settings.Metrics.Enabled {
		return nil, nil
	}

	m, err := observability.NewMetrics()
	if err != nil {
		return nil, err
	}
	observability.NewEndpoint(settings.Metrics.Listen, m).Start(ctx)
	return m, nil
}

// newNotifier validates the notification URLs when notifications are
// enabled. Returns nil with no error when they are not; Notifier methods
// are nil-safe so callers need no further guards.
func newNotifier(settings *conf.Settings) (*notify.Notifier, error) {
	if !settings.Notify.Enabled {
		return nil, nil
	}
	return notify.NewNotifier(settings)
}
