package events

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/poll-service/internal/cache"
)

type fakeListener struct {
	notifications chan *pq.Notification
	listened      string
	listenErr     error
	closed        bool
}

func newFakeListener() *fakeListener {
	return &fakeListener{notifications: make(chan *pq.Notification, 8)}
}

func (f *fakeListener) Listen(channel string) error {
	f.listened = channel
	return f.listenErr
}
func (f *fakeListener) NotificationChannel() <-chan *pq.Notification { return f.notifications }
func (f *fakeListener) Ping() error                                  { return nil }
func (f *fakeListener) Close() error {
	f.closed = true
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func TestParseChange(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		wantErr  bool
		pollID   uint
		regNo    string
		wantText string
	}{
		{
			name:     "poll insert",
			payload:  `{"table":"polls","op":"INSERT","row":{"id":12,"class_id":3,"title":"Q"}}`,
			pollID:   12,
			wantText: "polls:INSERT:12",
		},
		{
			name:     "response update",
			payload:  `{"table":"poll_responses","op":"UPDATE","row":{"id":40,"poll_id":12,"student_reg_no":"21CS001"}}`,
			pollID:   12,
			regNo:    "21CS001",
			wantText: "poll_responses:UPDATE:40",
		},
		{
			name:     "student delete",
			payload:  `{"table":"students","op":"DELETE","row":{"reg_no":"21CS002","department":"CSE"}}`,
			regNo:    "21CS002",
			wantText: "students:DELETE:21CS002",
		},
		{name: "not json", payload: `hello`, wantErr: true},
		{name: "missing table", payload: `{"op":"INSERT"}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			change, err := ParseChange(tt.payload)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.pollID, change.PollID())
			assert.Equal(t, tt.regNo, change.StudentRegNo())
			assert.Equal(t, tt.wantText, change.String())
		})
	}
}

func TestChangeFeed_DeliversToHandlersAndSubscribers(t *testing.T) {
	listener := newFakeListener()
	feed := newChangeFeed(listener, "poll_changes", testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handled := make(chan Change, 4)
	feed.OnChange(func(ctx context.Context, change Change) { handled <- change })

	changes, err := feed.Subscribe(ctx)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- feed.Run(ctx) }()

	listener.notifications <- &pq.Notification{Extra: `not json`}
	listener.notifications <- &pq.Notification{Extra: `{"table":"poll_responses","op":"INSERT","row":{"id":1,"poll_id":5,"student_reg_no":"R1"}}`}

	select {
	case change := <-changes:
		assert.Equal(t, TableResponses, change.Table)
		assert.Equal(t, uint(5), change.PollID())
		assert.Equal(t, "R1", change.StudentRegNo())
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber did not receive change")
	}

	select {
	case change := <-handled:
		assert.Equal(t, "INSERT", change.Op)
	case <-time.After(time.Second):
		t.Fatal("handler was not called")
	}

	// reconnect marker
	listener.notifications <- nil
	select {
	case change := <-changes:
		assert.Equal(t, "RESYNC", change.Op)
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber did not receive resync")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("feed did not stop")
	}
	assert.Equal(t, "poll_changes", listener.listened)
	require.NoError(t, feed.Close())
	assert.True(t, listener.closed)
}

func TestChangeFeed_ListenError(t *testing.T) {
	listener := newFakeListener()
	listener.listenErr = errors.New("no connection")
	feed := newChangeFeed(listener, "poll_changes", testLogger())

	err := feed.Run(context.Background())
	assert.ErrorContains(t, err, "no connection")
}

func TestCacheInvalidationHandler(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	cm := cache.NewCacheManager(client)
	ctx := context.Background()
	handler := CacheInvalidationHandler(cm)

	require.NoError(t, cm.Poll.Set(ctx, cache.PollKey(5), map[string]int{"id": 5}, time.Minute))
	require.NoError(t, cm.Response.Set(ctx, cache.ResponsesByPollKey(5), []int{1}, time.Minute))
	require.NoError(t, cm.Response.Set(ctx, cache.ResponsesByStudentKey("R1"), []int{1}, time.Minute))
	require.NoError(t, cm.Directory.Set(ctx, cache.EmailKey("student", "a@b.c"), "x", time.Minute))

	change, err := ParseChange(`{"table":"poll_responses","op":"INSERT","row":{"poll_id":5,"student_reg_no":"R1"}}`)
	require.NoError(t, err)
	handler(ctx, change)

	assert.True(t, mr.Exists("poll:id:5"))
	assert.False(t, mr.Exists("response:poll:5"))
	assert.False(t, mr.Exists("response:student:R1"))

	change, err = ParseChange(`{"table":"students","op":"UPDATE","row":{"reg_no":"R1"}}`)
	require.NoError(t, err)
	handler(ctx, change)
	assert.False(t, mr.Exists("directory:"+cache.EmailKey("student", "a@b.c")))
	assert.True(t, mr.Exists("poll:id:5"))

	handler(ctx, Change{Table: "*", Op: "RESYNC"})
	assert.False(t, mr.Exists("poll:id:5"))
}
