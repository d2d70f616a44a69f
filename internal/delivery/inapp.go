package delivery

import (
	"context"
	"sync"
	"time"

	"alertcast/internal/alert"
	"alertcast/internal/clock"
	"alertcast/internal/directory"
	logx "alertcast/pkg/logx"
)

// Message is one in-app notification as the user would see it.
type Message struct {
	AlertID  string
	Title    string
	Body     string
	Severity alert.Severity
	At       time.Time
}

// InApp is the in-process channel: each delivery lands in the user's inbox.
type InApp struct {
	log logx.Logger

	mu      sync.Mutex
	inboxes map[string][]Message
	max     int
}

var _ Channel = (*InApp)(nil)

// NewInApp keeps at most maxPerUser messages per inbox (oldest dropped first).
func NewInApp(log logx.Logger, maxPerUser int) *InApp {
	if log.IsZero() {
		log = logx.Nop()
	}
	if maxPerUser <= 0 {
		maxPerUser = 1000
	}
	return &InApp{log: log, inboxes: map[string][]Message{}, max: maxPerUser}
}

func (c *InApp) Tag() alert.DeliveryTag { return alert.DeliveryInApp }

func (c *InApp) Send(ctx context.Context, u directory.User, a alert.Alert) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m := Message{AlertID: a.ID, Title: a.Title, Body: a.Body, Severity: a.Severity, At: clock.Now(ctx)}

	c.mu.Lock()
	box := append(c.inboxes[u.ID], m)
	if len(box) > c.max {
		box = box[len(box)-c.max:]
	}
	c.inboxes[u.ID] = box
	c.mu.Unlock()

	c.log.Info("in-app notification",
		logx.String("user_id", u.ID),
		logx.String("email", u.Email),
		logx.String("alert_id", a.ID),
		logx.String("severity", string(a.Severity)),
		logx.String("title", a.Title))
	return nil
}

// Inbox returns a copy of the user's delivered messages, oldest first.
func (c *InApp) Inbox(userID string) []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Message(nil), c.inboxes[userID]...)
}
