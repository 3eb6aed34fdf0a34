package tracker_test

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"pix360/internal/cards"
	"pix360/internal/client"
	"pix360/internal/history"
	"pix360/internal/job"
	"pix360/internal/schedule"
	"pix360/internal/testsupport"
	"pix360/internal/tracker"
)

func TestTrackerAgainstServer(t *testing.T) {
	server := testsupport.NewFakeServer(t)
	cfg := testsupport.NewConfig(t, testsupport.WithServer(server))
	journal, err := history.Open(cfg)
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	t.Cleanup(func() { _ = journal.Close() })

	clock := schedule.NewVirtualClock(time.Unix(0, 0))
	board := cards.NewBoard(cards.WithDownloadBase(server.URL()))
	var navigated []string
	tr := tracker.New(client.New(cfg), board,
		tracker.WithClock(clock),
		tracker.WithInterval(cfg.PollInterval()),
		tracker.WithJournal(journal),
		tracker.WithSessionID("run-7"),
		tracker.WithNavigator(tracker.NavigatorFunc(func(path string) { navigated = append(navigated, path) })),
	)
	t.Cleanup(tr.Close)

	ctx := context.Background()
	sunset, err := tr.Submit(ctx, tracker.Submission{URL: "https://example.com/sunset", Title: "Sunset"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	tour, err := tr.Submit(ctx, tracker.Submission{URL: "https://example.com/tour", Title: "Tour"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	clock.Advance(cfg.PollInterval())
	if got, _ := tr.Get(sunset.ID); got.State != job.StatePending {
		t.Fatalf("expected pending, got %s", got.State)
	}

	server.SetStatus(sunset.ID, "completed", "image/jpeg")
	server.SetStatus(tour.ID, "completed", "video/mp4")
	clock.Advance(cfg.PollInterval())

	markup, err := board.HTML()
	if err != nil {
		t.Fatalf("HTML: %v", err)
	}
	if !strings.Contains(markup, `data-viewer="panorama"`) || !strings.Contains(markup, "<video") {
		t.Fatalf("expected image and video cards:\n%s", markup)
	}
	if tr.Active() != 0 {
		t.Fatalf("expected pollers stopped, got %d", tr.Active())
	}
	statusCalls := server.Calls(http.MethodGet, "/status/"+sunset.ID)
	clock.Advance(3 * cfg.PollInterval())
	if server.Calls(http.MethodGet, "/status/"+sunset.ID) != statusCalls {
		t.Fatal("expected polling to stop after completion")
	}

	tr.Delete(ctx, sunset.ID)
	if server.Calls(http.MethodGet, "/delete/"+sunset.ID) != 1 {
		t.Fatal("expected one delete request")
	}

	entries, err := journal.ForJob(ctx, sunset.ID)
	if err != nil {
		t.Fatalf("ForJob: %v", err)
	}
	if len(entries) != 3 || entries[2].Event != history.EventRemoved || entries[0].SessionID != "run-7" {
		t.Fatalf("unexpected journal %+v", entries)
	}

	late, err := tr.Submit(ctx, tracker.Submission{URL: "https://example.com/late", Title: "Late"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	server.ExpireSession()
	clock.Advance(cfg.PollInterval())
	if !tr.Expired() || len(navigated) != 1 || navigated[0] != "/" {
		t.Fatalf("expected session expiry, navigated=%v", navigated)
	}
	if got, _ := tr.Get(late.ID); got.State != job.StatePending {
		t.Fatalf("expected job left pending, got %s", got.State)
	}
}

func TestRestoreAgainstServer(t *testing.T) {
	server := testsupport.NewFakeServer(t)
	server.Add(testsupport.FakeConversion{ID: "a1", Title: "Old", Status: "completed", ContentType: "image/png"})
	server.Add(testsupport.FakeConversion{ID: "a2", Title: "Gone", ListStatus: -1})
	server.Add(testsupport.FakeConversion{ID: "a3", Status: "stitching"})
	cfg := testsupport.NewConfig(t, testsupport.WithServer(server))

	clock := schedule.NewVirtualClock(time.Unix(0, 0))
	board := cards.NewBoard()
	tr := tracker.New(client.New(cfg), board, tracker.WithClock(clock))
	t.Cleanup(tr.Close)

	restored, err := tr.Restore(context.Background())
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if restored != 2 {
		t.Fatalf("expected 2 restored, got %d", restored)
	}
	snapshot := tr.Snapshot()
	if snapshot[0].ID != "a1" || snapshot[1].Title != job.DefaultTitle {
		t.Fatalf("unexpected snapshot %+v", snapshot)
	}

	clock.Advance(tracker.DefaultInterval)
	if card, _ := board.Card("a1"); card.State != job.StateCompleted {
		t.Fatalf("expected a1 completed, got %s", card.State)
	}
	if card, _ := board.Card("a3"); card.State != job.StatePending {
		t.Fatalf("expected a3 pending, got %s", card.State)
	}
}
