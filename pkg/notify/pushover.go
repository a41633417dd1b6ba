package notify

import (
	"errors"
	"fmt"
	"time"

	"github.com/gocolly/colly"
)

// PushoverURL is the Pushover message endpoint
const PushoverURL = "https://api.pushover.net/1/messages.json"

// PushoverNotifier sends messages through Pushover
type PushoverNotifier struct {
	token    string
	user     string
	endpoint string
	timeout  time.Duration
}

// NewPushoverNotifier creates a notifier for an application token and user key
func NewPushoverNotifier(token, user string) *PushoverNotifier {
	return &PushoverNotifier{
		token:    token,
		user:     user,
		endpoint: PushoverURL,
		timeout:  10 * time.Second,
	}
}

// WithEndpoint points the notifier at another url
func (p *PushoverNotifier) WithEndpoint(url string) *PushoverNotifier {
	p.endpoint = url
	return p
}

// Send posts the message as a form
func (p *PushoverNotifier) Send(message, title string) error {
	if p.token == "" || p.user == "" {
		return errors.New("pushover: token and user are required")
	}

	c := colly.NewCollector(colly.AllowURLRevisit())
	c.SetRequestTimeout(p.timeout)

	err := c.Post(p.endpoint, map[string]string{
		"token":   p.token,
		"user":    p.user,
		"message": message,
		"title":   title,
	})
	if err != nil {
		return fmt.Errorf("pushover: %w", err)
	}
	return nil
}
