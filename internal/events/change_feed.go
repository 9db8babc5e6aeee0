package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/lib/pq"
)

const (
	changeTopic          = "store.changes"
	listenerPingInterval = 90 * time.Second
)

// Tables broadcast on the change channel
const (
	TablePolls     = "polls"
	TableResponses = "poll_responses"
	TableStudents  = "students"
)

// Change is one row-level write reported by the database
type Change struct {
	Table string          `json:"table"`
	Op    string          `json:"op"`
	Row   json.RawMessage `json:"row"`

	Keys ChangeKeys `json:"-"`
}

// ChangeKeys are the identifying columns extracted from the changed row
type ChangeKeys struct {
	ID           uint   `json:"id"`
	PollID       uint   `json:"poll_id"`
	ClassID      uint   `json:"class_id"`
	StudentRegNo string `json:"student_reg_no"`
	RegNo        string `json:"reg_no"`
	Department   string `json:"department"`
}

// ParseChange decodes a notification payload
func ParseChange(payload string) (Change, error) {
	var change Change
	if err := json.Unmarshal([]byte(payload), &change); err != nil {
		return change, fmt.Errorf("invalid change payload: %w", err)
	}
	if change.Table == "" {
		return change, fmt.Errorf("invalid change payload: missing table")
	}
	if len(change.Row) > 0 {
		if err := json.Unmarshal(change.Row, &change.Keys); err != nil {
			return change, fmt.Errorf("invalid change row: %w", err)
		}
	}
	return change, nil
}

// PollID returns the poll the change belongs to, or 0
func (c Change) PollID() uint {
	switch c.Table {
	case TablePolls:
		return c.Keys.ID
	case TableResponses:
		return c.Keys.PollID
	}
	return 0
}

// StudentRegNo returns the student the change belongs to, or ""
func (c Change) StudentRegNo() string {
	switch c.Table {
	case TableResponses:
		return c.Keys.StudentRegNo
	case TableStudents:
		return c.Keys.RegNo
	}
	return ""
}

// ChangeHandler reacts to a change; it runs on the feed goroutine
type ChangeHandler func(ctx context.Context, change Change)

// notificationSource is the part of pq.Listener the feed relies on
type notificationSource interface {
	Listen(channel string) error
	NotificationChannel() <-chan *pq.Notification
	Ping() error
	Close() error
}

// ChangeFeed turns Postgres NOTIFY messages into an in-process stream of Changes.
// Subscribers each get every change published after they subscribe.
type ChangeFeed struct {
	source  notificationSource
	channel string
	pubsub  *gochannel.GoChannel
	logger  *slog.Logger

	mu       sync.RWMutex
	handlers []ChangeHandler
}

// NewChangeFeed connects a pq listener to dsn; reconnects are handled by the listener
func NewChangeFeed(dsn, channel string, minReconnect, maxReconnect time.Duration, logger *slog.Logger) *ChangeFeed {
	listener := pq.NewListener(dsn, minReconnect, maxReconnect, func(ev pq.ListenerEventType, err error) {
		switch ev {
		case pq.ListenerEventConnected:
			logger.Info("Change feed connected", "channel", channel)
		case pq.ListenerEventDisconnected:
			logger.Warn("Change feed disconnected", "channel", channel, "error", err)
		case pq.ListenerEventReconnected:
			logger.Info("Change feed reconnected", "channel", channel)
		case pq.ListenerEventConnectionAttemptFailed:
			logger.Error("Change feed connection attempt failed", "channel", channel, "error", err)
		}
	})

	return newChangeFeed(listener, channel, logger)
}

func newChangeFeed(source notificationSource, channel string, logger *slog.Logger) *ChangeFeed {
	return &ChangeFeed{
		source:  source,
		channel: channel,
		pubsub: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: 64,
		}, watermill.NewSlogLogger(logger)),
		logger: logger,
	}
}

// OnChange registers a handler called for every change before subscribers see it
func (f *ChangeFeed) OnChange(handler ChangeHandler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers = append(f.handlers, handler)
}

// Run listens until ctx is cancelled
func (f *ChangeFeed) Run(ctx context.Context) error {
	if err := f.source.Listen(f.channel); err != nil {
		return fmt.Errorf("failed to listen on %s: %w", f.channel, err)
	}

	ticker := time.NewTicker(listenerPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case n, ok := <-f.source.NotificationChannel():
			if !ok {
				return fmt.Errorf("change feed %s closed", f.channel)
			}
			// nil after a reconnect: notifications may have been missed
			if n == nil {
				f.dispatch(ctx, Change{Table: "*", Op: "RESYNC"})
				continue
			}
			change, err := ParseChange(n.Extra)
			if err != nil {
				f.logger.Warn("Dropping change notification", "error", err)
				continue
			}
			f.dispatch(ctx, change)
		case <-ticker.C:
			if err := f.source.Ping(); err != nil {
				f.logger.Warn("Change feed ping failed", "error", err)
			}
		}
	}
}

func (f *ChangeFeed) dispatch(ctx context.Context, change Change) {
	f.mu.RLock()
	handlers := f.handlers
	f.mu.RUnlock()

	for _, handler := range handlers {
		handler(ctx, change)
	}

	payload, err := json.Marshal(change)
	if err != nil {
		f.logger.Error("Failed to encode change", "error", err)
		return
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("table", change.Table)
	msg.Metadata.Set("op", change.Op)
	if err := f.pubsub.Publish(changeTopic, msg); err != nil {
		f.logger.Error("Failed to fan out change", "error", err)
	}
}

// Subscribe returns a stream of changes that closes when ctx is done
func (f *ChangeFeed) Subscribe(ctx context.Context) (<-chan Change, error) {
	messages, err := f.pubsub.Subscribe(ctx, changeTopic)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to changes: %w", err)
	}

	out := make(chan Change)
	go func() {
		defer close(out)
		for msg := range messages {
			change, err := decodeChange(msg)
			msg.Ack()
			if err != nil {
				f.logger.Warn("Dropping undecodable change", "error", err)
				continue
			}
			select {
			case out <- change:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

func decodeChange(msg *message.Message) (Change, error) {
	var change Change
	if err := json.Unmarshal(msg.Payload, &change); err != nil {
		return change, err
	}
	if len(change.Row) > 0 {
		if err := json.Unmarshal(change.Row, &change.Keys); err != nil {
			return change, err
		}
	}
	return change, nil
}

func (f *ChangeFeed) Close() error {
	pubErr := f.pubsub.Close()
	if err := f.source.Close(); err != nil {
		return err
	}
	return pubErr
}

// String is used in logs
func (c Change) String() string {
	key := strconv.FormatUint(uint64(c.Keys.ID), 10)
	if c.Table == TableStudents {
		key = c.Keys.RegNo
	}
	return c.Table + ":" + c.Op + ":" + key
}
