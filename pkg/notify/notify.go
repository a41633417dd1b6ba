// Package notify delivers run summaries. Delivery is best effort: a failed
// send is logged and reported, never retried.
package notify

import (
	"fmt"
	"strings"

	"github.com/danielstefank/goodwill-alert/pkg/model"
	"github.com/rs/zerolog"
)

// previewItems is how many items are listed in a run message
const previewItems = 3

// Notifier is a push transport
type Notifier interface {
	Send(message, title string) error
}

// Dispatcher fans a message out to all configured notifiers
type Dispatcher struct {
	notifiers []Notifier
	log       zerolog.Logger
}

// NewDispatcher creates a Dispatcher. With no notifiers every Notify call
// is logged and returns false.
func NewDispatcher(log zerolog.Logger, notifiers ...Notifier) *Dispatcher {
	return &Dispatcher{notifiers: notifiers, log: log}
}

// Notify sends to every notifier and reports whether at least one succeeded
func (d *Dispatcher) Notify(message, title string) bool {
	if len(d.notifiers) == 0 {
		d.log.Info().Str("title", title).Msg("no notifier configured, skipping notification")
		return false
	}

	delivered := false
	for _, n := range d.notifiers {
		if err := n.Send(message, title); err != nil {
			d.log.Error().Err(err).Str("title", title).Str("notifier", fmt.Sprintf("%T", n)).Msg("notification failed")
			continue
		}
		delivered = true
	}
	if delivered {
		d.log.Debug().Str("title", title).Msg("notification sent")
	}
	return delivered
}

// NotifyRun announces the new items of one search run. Runs without new
// items are not announced.
func (d *Dispatcher) NotifyRun(searchName string, items []model.Item) bool {
	if len(items) == 0 {
		return false
	}
	message, title := FormatRun(searchName, items)
	return d.Notify(message, title)
}

// FormatRun builds the message and title for a run with new items
func FormatRun(searchName string, items []model.Item) (string, string) {
	var b strings.Builder
	f := fmt.Sprintf
	b.WriteString(f("Found %d new items in %s!", len(items), searchName))
	for i, item := range items {
		if i == previewItems {
			break
		}
		b.WriteString(f("\n%d. %s - $%.2f", i+1, item.Title, item.CurrentPrice))
	}

	return b.String(), f("New %s Items!", searchName)
}
