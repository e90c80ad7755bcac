package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ghmirror/pkg/crawler"
	"ghmirror/pkg/logger"
)

func testSummary() *crawler.Summary {
	start := time.Date(2020, 3, 2, 10, 0, 0, 0, time.UTC)
	return &crawler.Summary{
		Statistics: []crawler.Statistic{
			{Resource: "issues", Count: 2, SizeInBytes: 2000},
			{Resource: "releases", Count: 1, SizeInBytes: 500, Err: errors.New("timeout")},
		},
		FirstError:      &crawler.ResourceError{Resource: "releases", Err: errors.New("timeout")},
		DestinationRoot: "/tmp/mirror",
		StartedAt:       start,
		FinishedAt:      start.Add(time.Second),
	}
}

func TestNewEvent(t *testing.T) {
	e := NewEvent("mui-org/pickers", testSummary())

	assert.False(t, e.Succeeded)
	assert.Equal(t, 3, e.TotalCount)
	assert.Equal(t, int64(2500), e.TotalBytes)
	require.Len(t, e.Resources, 2)
	assert.Equal(t, "timeout", e.Resources[1].Error)
	assert.Equal(t, "Mirror of mui-org/pickers failed", e.Title())
	assert.Equal(t, "3 new items, 2.5 kB; releases: timeout", e.Message())
}

type fakeSender struct {
	title, message string
	err            error
}

func (f *fakeSender) Send(_ context.Context, title, message string) error {
	f.title, f.message = title, message
	return f.err
}

func TestDesktopNotify(t *testing.T) {
	s := &fakeSender{}
	e := NewEvent("a/b", &crawler.Summary{Statistics: []crawler.Statistic{{Resource: "issues", Count: 1, SizeInBytes: 10}}})

	require.NoError(t, NewDesktopWithSender(s).Notify(context.Background(), e))
	assert.Equal(t, "Mirror of a/b updated", s.title)
	assert.Equal(t, "1 new items, 10 B", s.message)

	s.err = errors.New("notify-send: not found")
	assert.ErrorContains(t, NewDesktopWithSender(s).Notify(context.Background(), e), "desktop notification")

	assert.NoError(t, NewDesktopWithSender(nil).Notify(context.Background(), e))
}

func TestSenderForOS(t *testing.T) {
	assert.IsType(t, LinuxSender{}, SenderForOS("linux"))
	assert.IsType(t, MacOSSender{}, SenderForOS("darwin"))
	assert.IsType(t, WindowsSender{}, SenderForOS("windows"))
	assert.Nil(t, SenderForOS("plan9"))
}

func TestXMLEscape(t *testing.T) {
	assert.Equal(t, "&lt;b&gt; &amp; &quot;q&quot;", xmlEscape(`<b> & "q"`))
}

type fakeChannel struct {
	exchange, key string
	msg           amqp.Publishing
	err           error
	closed        bool
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	f.exchange, f.key, f.msg = exchange, key, msg
	return f.err
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func TestAMQPPublisherNotify(t *testing.T) {
	ch := &fakeChannel{}
	log := logger.NewTestLogger()
	p := newAMQPPublisher(ch, "ghmirror", "crawl.summary", log)

	require.NoError(t, p.Notify(context.Background(), NewEvent("mui-org/pickers", testSummary())))
	assert.Equal(t, "ghmirror", ch.exchange)
	assert.Equal(t, "crawl.summary", ch.key)
	assert.Equal(t, "application/json", ch.msg.ContentType)
	assert.Equal(t, uint8(amqp.Persistent), ch.msg.DeliveryMode)

	var got Event
	require.NoError(t, json.Unmarshal(ch.msg.Body, &got))
	assert.Equal(t, "mui-org/pickers", got.Repository)
	assert.Equal(t, 3, got.TotalCount)
	assert.True(t, log.HasMessage("published crawl event"))

	require.NoError(t, p.Close())
	assert.True(t, ch.closed)
}

func TestAMQPPublisherError(t *testing.T) {
	ch := &fakeChannel{err: amqp.ErrClosed}
	p := newAMQPPublisher(ch, "x", "y", logger.NewNopLogger())
	err := p.Notify(context.Background(), Event{})
	assert.ErrorIs(t, err, amqp.ErrClosed)
}

type countingNotifier struct {
	calls int
	err   error
}

func (c *countingNotifier) Notify(context.Context, Event) error {
	c.calls++
	return c.err
}

func TestMultiNotifiesEveryone(t *testing.T) {
	first := &countingNotifier{err: errors.New("broker down")}
	second := &countingNotifier{}

	err := Multi{first, second}.Notify(context.Background(), Event{})
	assert.ErrorContains(t, err, "broker down")
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 1, second.calls)

	assert.NoError(t, Multi{}.Notify(context.Background(), Event{}))
}
