package tracker_test

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"sync"
	"testing"
	"time"

	"pix360/internal/cards"
	"pix360/internal/client"
	"pix360/internal/history"
	"pix360/internal/job"
	"pix360/internal/notifications"
	"pix360/internal/schedule"
	"pix360/internal/tracker"
)

type statusReply struct {
	resp *client.StatusResponse
	err  error
}

func reply(status, contentType string) statusReply {
	return statusReply{resp: &client.StatusResponse{Status: status, ContentType: contentType}}
}

func replyCode(code int) statusReply {
	return statusReply{err: &client.StatusError{Code: code}}
}

// stubClient answers from scripted replies. The last reply for an id repeats.
type stubClient struct {
	mu        sync.Mutex
	nextID    int
	startErr  error
	startGate chan struct{}
	replies   map[string][]statusReply
	retryIDs  map[string]string
	retryErr  error
	listed    []client.Conversion
	deleteErr error
	forms     []url.Values
	calls     map[string]int
}

func newStubClient() *stubClient {
	return &stubClient{
		replies:  make(map[string][]statusReply),
		retryIDs: make(map[string]string),
		calls:    make(map[string]int),
	}
}

func (s *stubClient) script(id string, replies ...statusReply) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies[id] = replies
}

func (s *stubClient) count(call string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[call]
}

func (s *stubClient) Start(ctx context.Context, form url.Values) (string, error) {
	s.mu.Lock()
	s.calls["start"]++
	s.forms = append(s.forms, form)
	gate := s.startGate
	s.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.startErr != nil {
		return "", s.startErr
	}
	s.nextID++
	return "job-" + strconv.Itoa(s.nextID), nil
}

func (s *stubClient) Status(_ context.Context, id string) (*client.StatusResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["status:"+id]++
	queue := s.replies[id]
	if len(queue) == 0 {
		return &client.StatusResponse{Status: "processing"}, nil
	}
	next := queue[0]
	if len(queue) > 1 {
		s.replies[id] = queue[1:]
	}
	return next.resp, next.err
}

func (s *stubClient) Retry(_ context.Context, id string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["retry:"+id]++
	if s.retryErr != nil {
		return "", s.retryErr
	}
	return s.retryIDs[id], nil
}

func (s *stubClient) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["delete:"+id]++
	return s.deleteErr
}

func (s *stubClient) List(context.Context) ([]client.Conversion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["list"]++
	return s.listed, nil
}

// countingBoard wraps a board and counts terminal renders.
type countingBoard struct {
	*cards.Board
	mu        sync.Mutex
	completed int
	failed    int
}

func (b *countingBoard) RenderCompleted(id, title string, media job.MediaKind) {
	b.mu.Lock()
	b.completed++
	b.mu.Unlock()
	b.Board.RenderCompleted(id, title, media)
}

func (b *countingBoard) RenderFailed(id, title string) {
	b.mu.Lock()
	b.failed++
	b.mu.Unlock()
	b.Board.RenderFailed(id, title)
}

type published struct {
	event notifications.Event
	title string
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []published
}

func (n *recordingNotifier) Publish(_ context.Context, event notifications.Event, payload notifications.Payload) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	title, _ := payload["title"].(string)
	n.events = append(n.events, published{event: event, title: title})
	return nil
}

func (n *recordingNotifier) snapshot() []published {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]published(nil), n.events...)
}

type recordingJournal struct {
	mu      sync.Mutex
	entries []history.Entry
}

func (j *recordingJournal) Record(_ context.Context, entry history.Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, entry)
	return nil
}

func (j *recordingJournal) events() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]string, 0, len(j.entries))
	for _, entry := range j.entries {
		out = append(out, entry.JobID+":"+entry.Event)
	}
	return out
}

type harness struct {
	t         *testing.T
	clock     *schedule.VirtualClock
	client    *stubClient
	board     *countingBoard
	notifier  *recordingNotifier
	journal   *recordingJournal
	navigated []string
	tracker   *tracker.Tracker
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		t:        t,
		clock:    schedule.NewVirtualClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)),
		client:   newStubClient(),
		board:    &countingBoard{Board: cards.NewBoard()},
		notifier: &recordingNotifier{},
		journal:  &recordingJournal{},
	}
	h.tracker = tracker.New(h.client, h.board,
		tracker.WithClock(h.clock),
		tracker.WithNotifier(h.notifier),
		tracker.WithJournal(h.journal),
		tracker.WithNavigator(tracker.NavigatorFunc(func(path string) {
			h.navigated = append(h.navigated, path)
		})),
	)
	t.Cleanup(h.tracker.Close)
	return h
}

func (h *harness) submit(title string) job.Job {
	h.t.Helper()
	submitted, err := h.tracker.Submit(context.Background(), tracker.Submission{URL: "https://example.com/pano", Title: title})
	if err != nil {
		h.t.Fatalf("Submit: %v", err)
	}
	return submitted
}

func (h *harness) tick() {
	h.clock.Advance(tracker.DefaultInterval)
}

func (h *harness) card(id string) cards.Card {
	h.t.Helper()
	card, ok := h.board.Card(id)
	if !ok {
		h.t.Fatalf("expected card %s", id)
	}
	return card
}

var errTransport = errors.New("connection reset by peer")
