package live

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/eventup/live/go/internal/models"
	"github.com/eventup/live/go/internal/notify"
)

const waitTimeout = 2 * time.Second

// eventually polls cond until it holds or the test times out
func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(waitTimeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting: %s", msg)
}

type readResult struct {
	data []byte
	err  error
}

// fakeConn is an in-memory Conn driven by the test
type fakeConn struct {
	incoming chan readResult
	closed   chan struct{}
	once     sync.Once

	mu      sync.Mutex
	written [][]byte
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		incoming: make(chan readResult, 16),
		closed:   make(chan struct{}),
	}
}

func (c *fakeConn) ReadMessage() ([]byte, error) {
	select {
	case r := <-c.incoming:
		return r.data, r.err
	case <-c.closed:
		return nil, errors.New("use of closed connection")
	}
}

func (c *fakeConn) WriteMessage(data []byte) error {
	select {
	case <-c.closed:
		return errors.New("use of closed connection")
	default:
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.written = append(c.written, append([]byte(nil), data...))
	return nil
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

func (c *fakeConn) push(t *testing.T, v interface{}) {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	c.incoming <- readResult{data: data}
}

func (c *fakeConn) closeWith(code int) {
	c.incoming <- readResult{err: &CloseError{Code: code, Text: "abnormal closure"}}
}

func (c *fakeConn) writes() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.written...)
}

// fakeTransport hands out fake connections, or fails while failDial is set
type fakeTransport struct {
	mu       sync.Mutex
	failDial bool
	urls     []string
	conns    []*fakeConn
}

func (tr *fakeTransport) Dial(ctx context.Context, rawURL string) (Conn, error) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.urls = append(tr.urls, rawURL)
	if tr.failDial {
		return nil, errors.New("connection refused")
	}
	conn := newFakeConn()
	tr.conns = append(tr.conns, conn)
	return conn, nil
}

func (tr *fakeTransport) setFailDial(fail bool) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.failDial = fail
}

func (tr *fakeTransport) dials() int {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return len(tr.urls)
}

func (tr *fakeTransport) lastConn() *fakeConn {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	if len(tr.conns) == 0 {
		return nil
	}
	return tr.conns[len(tr.conns)-1]
}

// recordingListener records connection signals in arrival order
type recordingListener struct {
	events chan string

	mu       sync.Mutex
	messages [][]byte
}

func newRecordingListener() *recordingListener {
	return &recordingListener{events: make(chan string, 64)}
}

func (l *recordingListener) OnOpened() { l.events <- "opened" }

func (l *recordingListener) OnMessage(payload []byte) {
	l.mu.Lock()
	l.messages = append(l.messages, payload)
	l.mu.Unlock()
	l.events <- "message"
}

func (l *recordingListener) OnError(err error) { l.events <- "error" }

func (l *recordingListener) OnClosed(code int) { l.events <- fmt.Sprintf("closed:%d", code) }

func (l *recordingListener) OnRetryScheduled(attempt int, delay time.Duration) {
	l.events <- fmt.Sprintf("retry:%d", attempt)
}

func (l *recordingListener) OnExhausted() { l.events <- "exhausted" }

func (l *recordingListener) OnAuthMissing() { l.events <- "auth_missing" }

// expect asserts the next recorded signals, in order
func (l *recordingListener) expect(t *testing.T, want ...string) {
	t.Helper()
	for _, w := range want {
		select {
		case got := <-l.events:
			if got != w {
				t.Fatalf("signal = %q, want %q", got, w)
			}
		case <-time.After(waitTimeout):
			t.Fatalf("timed out waiting for signal %q", w)
		}
	}
}

// expectNone asserts that no signal arrives for a short while
func (l *recordingListener) expectNone(t *testing.T) {
	t.Helper()
	select {
	case got := <-l.events:
		t.Fatalf("unexpected signal %q", got)
	case <-time.After(50 * time.Millisecond):
	}
}

// fakeAPI is an in-memory API. Hooks, when set, replace the default behaviour.
type fakeAPI struct {
	mu sync.Mutex

	polls     []models.Poll
	questions []models.Question
	votes     []models.UserVote
	event     *models.Event
	related   *models.EventPage

	pollsErr   error
	relatedErr error

	pollsHook     func(ctx context.Context) ([]models.Poll, error)
	questionsHook func(ctx context.Context) ([]models.Question, error)
	voteHook      func(ctx context.Context, pollID, choiceID string) (models.Poll, error)

	voteCalls      int
	userVotesCalls int
	lastToken      string
	createdPolls   []string
}

func (a *fakeAPI) ListPolls(ctx context.Context, eventID, token string) ([]models.Poll, error) {
	a.mu.Lock()
	hook, polls, err := a.pollsHook, a.polls, a.pollsErr
	a.mu.Unlock()
	if hook != nil {
		return hook(ctx)
	}
	return append([]models.Poll(nil), polls...), err
}

func (a *fakeAPI) ListQuestions(ctx context.Context, eventID, token string) ([]models.Question, error) {
	a.mu.Lock()
	hook, questions := a.questionsHook, a.questions
	a.mu.Unlock()
	if hook != nil {
		return hook(ctx)
	}
	return append([]models.Question(nil), questions...), nil
}

func (a *fakeAPI) ListUserVotes(ctx context.Context, token string) ([]models.UserVote, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.userVotesCalls++
	return append([]models.UserVote(nil), a.votes...), nil
}

func (a *fakeAPI) Vote(ctx context.Context, pollID, choiceID, token string) (models.Poll, error) {
	a.mu.Lock()
	a.voteCalls++
	a.lastToken = token
	hook := a.voteHook
	a.mu.Unlock()
	if hook != nil {
		return hook(ctx, pollID, choiceID)
	}
	return models.Poll{}, nil
}

func (a *fakeAPI) CreatePoll(ctx context.Context, eventID, text string, choices []string, token string) (models.Poll, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.createdPolls = append(a.createdPolls, text)
	poll := models.Poll{ID: "new-poll", Text: text}
	for i, choice := range choices {
		poll.Choices = append(poll.Choices, models.Choice{ID: fmt.Sprintf("nc%d", i+1), Text: choice})
	}
	return poll, nil
}

func (a *fakeAPI) CreateQuestion(ctx context.Context, eventID, text, token string) (models.Question, error) {
	return models.Question{ID: "new-question", Text: text, Answers: []models.Answer{}}, nil
}

func (a *fakeAPI) GetEvent(ctx context.Context, eventID string) (*models.Event, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.event == nil {
		return nil, &FetchFailure{Method: "GET", Endpoint: "/events/" + eventID + "/event/", Status: 404, Message: "Not found."}
	}
	return a.event, nil
}

func (a *fakeAPI) GetRelatedEvents(ctx context.Context, categoryID, eventID string, page, limit int) (*models.EventPage, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.related, a.relatedErr
}

func (a *fakeAPI) calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.voteCalls
}

// recordingNotifier keeps every notification
type recordingNotifier struct {
	mu    sync.Mutex
	items []notify.Notification
}

func (n *recordingNotifier) Notify(item notify.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.items = append(n.items, item)
}

func (n *recordingNotifier) count(message string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	count := 0
	for _, item := range n.items {
		if item.Message == message {
			count++
		}
	}
	return count
}

func (n *recordingNotifier) has(message string) bool {
	return n.count(message) > 0
}
