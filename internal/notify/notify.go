// Package notify sends run completion notifications through shoutrrr.
package notify

import (
	"context"
	"io"
	"log"
	"slices"
	"time"

	shoutrrr "github.com/nicholas-fedor/shoutrrr"
	router "github.com/nicholas-fedor/shoutrrr/pkg/router"
	stypes "github.com/nicholas-fedor/shoutrrr/pkg/types"

	"github.com/tsalo/fieldscan/internal/conf"
	"github.com/tsalo/fieldscan/internal/errors"
)

// defaultSendTimeout bounds a single notification delivery.
const defaultSendTimeout = 30 * time.Second

// Notifier delivers short status messages to the configured services.
type Notifier struct {
	urls    []string
	sender  *router.ServiceRouter
	timeout time.Duration
}

// NewNotifier validates the configured service URLs and returns a ready
// Notifier. Bad URLs fail here, at startup, rather than mid-run.
func NewNotifier(settings *conf.Settings) (*Notifier, error) {
	urls := slices.Clone(settings.Notify.URLs)
	if len(urls) == 0 {
		return nil, errors.Newf("notify is enabled but no service URLs are configured").
			Component("notify").
			Category(errors.CategoryConfiguration).
			Build()
	}

	sender, err := shoutrrr.CreateSender(urls...)
	if err != nil {
		// Scrub before wrapping: shoutrrr errors echo the URL, which can
		// carry tokens and credentials.
		return nil, errors.Newf("invalid notification URL: %s", errors.ScrubMessage(err.Error())).
			Component("notify").
			Category(errors.CategoryConfiguration).
			Build()
	}
	sender.Timeout = defaultSendTimeout
	sender.SetLogger(log.New(io.Discard, "", 0))

	return &Notifier{
		urls:    urls,
		sender:  sender,
		timeout: defaultSendTimeout,
	}, nil
}

// Send delivers one message to every configured service. Per-service
// failures are collapsed into a single error; delivery is best effort and
// callers treat failures as non-fatal.
func (n *Notifier) Send(ctx context.Context, title, message string) error {
	if n == nil || n.sender == nil {
		return nil
	}

	select {
	case <-ctx.Done():
		return errors.New(ctx.Err()).
			Component("notify").
			Category(errors.CategoryCancellation).
			Build()
	default:
	}

	params := stypes.Params{}
	if title != "" {
		params.SetTitle(title)
	}

	errs := n.sender.Send(message, &params)
	for _, err := range errs {
		if err != nil {
			return errors.Newf("notification delivery failed: %s", errors.ScrubMessage(err.Error())).
				Component("notify").
				Category(errors.CategoryNetwork).
				Build()
		}
	}

	GetLogger().Info("notification sent", "services", len(n.urls), "title", title)
	return nil
}
