package notifier

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	domainmail "github.com/NordCoder/crewcruise/internal/domain/mail"
	"github.com/NordCoder/crewcruise/internal/obs/retry"
	kafkax "github.com/NordCoder/crewcruise/internal/repository/kafka"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSender struct {
	mu    sync.Mutex
	fails map[string]int
	sent  []string
}

func (f *fakeSender) Send(_ context.Context, to string, _ domainmail.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fails[to] > 0 {
		f.fails[to]--
		return errors.New("smtp 451")
	}
	f.sent = append(f.sent, to)
	return nil
}

type memLog struct {
	entries []*domainmail.LogEntry
}

func (m *memLog) Create(_ context.Context, e *domainmail.LogEntry) error {
	m.entries = append(m.entries, e)
	return nil
}

func (m *memLog) ListByRecipient(_ context.Context, recipient string, _ int) ([]*domainmail.LogEntry, error) {
	var out []*domainmail.LogEntry
	for _, e := range m.entries {
		if e.Recipient == recipient {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memLog) Delivered(_ context.Context, messageID, recipient string) (bool, error) {
	for _, e := range m.entries {
		if e.MessageID == messageID && e.Recipient == recipient {
			return true, nil
		}
	}
	return false, nil
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func newHandler(out *fakeSender, store *memLog, attempts int) *Handler {
	return &Handler{
		Out:    out,
		Store:  store,
		Clock:  fixedClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)},
		Policy: retry.Policy{Name: "test_smtp", Attempts: attempts, Backoff: retry.ExpoJitter{Base: time.Millisecond}},
		Log:    zap.NewNop(),
	}
}

func TestHandleMailRequested_SendsAndLogs(t *testing.T) {
	out := &fakeSender{fails: map[string]int{"b@x.com": 1}}
	store := &memLog{}
	h := newHandler(out, store, 2)

	err := h.HandleMailRequested(context.Background(), domainmail.Message{
		ID: "m-1", To: []string{"a@x.com", "b@x.com"}, Subject: "Verify your email",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a@x.com", "b@x.com"}, out.sent)

	require.Len(t, store.entries, 2)
	assert.Equal(t, "m-1", store.entries[1].MessageID)
	assert.Equal(t, "b@x.com", store.entries[1].Recipient)
	assert.Equal(t, "Verify your email", store.entries[1].Subject)
}

func TestHandleMailRequested_ReportsFailedRecipients(t *testing.T) {
	out := &fakeSender{fails: map[string]int{"b@x.com": 5}}
	store := &memLog{}
	h := newHandler(out, store, 2)

	err := h.HandleMailRequested(context.Background(), domainmail.Message{ID: "m-2", To: []string{"a@x.com", "b@x.com"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "b@x.com")

	logged, err := store.ListByRecipient(context.Background(), "a@x.com", 10)
	require.NoError(t, err)
	assert.Len(t, logged, 1)
	assert.Len(t, store.entries, 1)
}

func TestHandleMailRequested_RedeliverySkipsLoggedRecipients(t *testing.T) {
	out := &fakeSender{fails: map[string]int{"b@x.com": 5}}
	store := &memLog{}
	h := newHandler(out, store, 1)
	msg := domainmail.Message{ID: "m-4", To: []string{"a@x.com", "b@x.com"}}

	require.Error(t, h.HandleMailRequested(context.Background(), msg))
	assert.Equal(t, []string{"a@x.com"}, out.sent)

	out.fails = nil
	require.NoError(t, h.HandleMailRequested(context.Background(), msg))
	assert.Equal(t, []string{"a@x.com", "b@x.com"}, out.sent)
	require.Len(t, store.entries, 2)
	assert.Equal(t, "b@x.com", store.entries[1].Recipient)
}

func TestController_DropsEmptyRequests(t *testing.T) {
	c := NewController(zap.NewNop(), nil, newHandler(&fakeSender{}, &memLog{}, 1), nil)
	require.NoError(t, c.Handle(context.Background(), nil, &kafkax.MailRequested{}))
}

func TestBuildMessage_MultipartAlternative(t *testing.T) {
	raw, err := buildMessage("noreply@crew.dev", "a@x.com", "[Crew] Verify your email", domainmail.Message{
		ID:   "m-3",
		Text: "Hi A,\nopen the link",
		HTML: "<p>Hi A,</p>",
	}, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	msg, err := mail.ReadMessage(bufio.NewReader(strings.NewReader(string(raw))))
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", msg.Header.Get("To"))
	assert.Equal(t, "m-3", msg.Header.Get("X-Message-Id"))

	dec := new(mime.WordDecoder)
	subj, err := dec.DecodeHeader(msg.Header.Get("Subject"))
	require.NoError(t, err)
	assert.Equal(t, "[Crew] Verify your email", subj)

	mediaType, params, err := mime.ParseMediaType(msg.Header.Get("Content-Type"))
	require.NoError(t, err)
	assert.Equal(t, "multipart/alternative", mediaType)

	mr := multipart.NewReader(msg.Body, params["boundary"])
	var types, bodies []string
	for {
		p, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		b, err := io.ReadAll(p)
		require.NoError(t, err)
		types = append(types, p.Header.Get("Content-Type"))
		bodies = append(bodies, string(b))
	}
	assert.Equal(t, []string{"text/plain; charset=utf-8", "text/html; charset=utf-8"}, types)
	assert.Equal(t, "Hi A,\r\nopen the link", bodies[0])
	assert.Equal(t, "<p>Hi A,</p>", bodies[1])
}

func TestHost(t *testing.T) {
	assert.Equal(t, "smtp.example.com", host("smtp.example.com:587"))
	assert.Equal(t, "localhost", host("localhost"))
}

func TestClassify(t *testing.T) {
	rejected := &textproto.Error{Code: 550, Msg: "mailbox unavailable"}
	busy := &textproto.Error{Code: 451, Msg: "try again later"}

	assert.True(t, retry.IsPermanent(classify(fmt.Errorf("RCPT TO: %w", rejected))))
	assert.False(t, retry.IsPermanent(classify(fmt.Errorf("RCPT TO: %w", busy))))
	assert.False(t, retry.IsPermanent(classify(errors.New("dial: connection refused"))))
}
