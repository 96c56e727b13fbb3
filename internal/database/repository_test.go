package database

import (
	"testing"
	"time"

	"github.com/inputsum/inputsum/internal/models"
	"github.com/inputsum/inputsum/pkg/event"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()

	db, err := Connect(":memory:")
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	return NewRepository(db)
}

func TestCreateNormalizesAppName(t *testing.T) {
	repo := newTestRepo(t)

	err := repo.Create(&models.InputEvent{
		Timestamp: time.Now(),
		AppName:   "Firefox",
		Kind:      event.KindKeyPress,
		Detail:    38,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	latest, err := repo.GetLatest()
	if err != nil {
		t.Fatalf("GetLatest: %v", err)
	}
	if latest.AppName != "firefox" {
		t.Errorf("AppName = %s, want firefox", latest.AppName)
	}
	if latest.Detail != 38 {
		t.Errorf("Detail = %d, want 38", latest.Detail)
	}
}

func TestGetEventsSince(t *testing.T) {
	repo := newTestRepo(t)
	now := time.Now()

	for i, ts := range []time.Time{now.Add(-2 * time.Hour), now.Add(-30 * time.Minute), now.Add(-time.Minute)} {
		err := repo.Create(&models.InputEvent{
			Timestamp: ts,
			AppName:   "terminal",
			Kind:      event.KindKeyPress,
			Detail:    uint32(i),
		})
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	events, err := repo.GetEventsSince(now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("GetEventsSince: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if !events[0].Timestamp.Before(events[1].Timestamp) {
		t.Error("events are not in ascending timestamp order")
	}
}

func TestGetRecent(t *testing.T) {
	repo := newTestRepo(t)
	now := time.Now()

	for i := 0; i < 5; i++ {
		err := repo.Create(&models.InputEvent{
			Timestamp: now.Add(time.Duration(i) * time.Second),
			AppName:   "terminal",
			Kind:      event.KindKeyPress,
			Detail:    uint32(i),
		})
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	events, err := repo.GetRecent(3)
	if err != nil {
		t.Fatalf("GetRecent: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3", len(events))
	}
	if events[0].Detail != 4 {
		t.Errorf("newest event detail = %d, want 4", events[0].Detail)
	}
}

func TestGetAppSummarySince(t *testing.T) {
	repo := newTestRepo(t)
	now := time.Now()

	seed := []struct {
		app  string
		kind string
	}{
		{"terminal", event.KindKeyPress},
		{"terminal", event.KindKeyPress},
		{"terminal", event.KindPointerPress},
		{"browser", event.KindPointerMove},
		{"browser", event.KindFocusIn},
		{"browser", event.KindFocusOut},
		{"browser", event.KindKeyPress},
	}
	for _, s := range seed {
		err := repo.Create(&models.InputEvent{Timestamp: now, AppName: s.app, Kind: s.kind})
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	summaries, err := repo.GetAppSummarySince(now.Add(-time.Minute))
	if err != nil {
		t.Fatalf("GetAppSummarySince: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("got %d summaries, want 2", len(summaries))
	}

	// Ordered by event count descending.
	browser := summaries[0]
	if browser.AppName != "browser" || browser.EventCount != 4 {
		t.Fatalf("top summary = %+v, want browser with 4 events", browser)
	}
	if browser.KeyPresses != 1 || browser.PointerMoves != 1 || browser.FocusChanges != 2 {
		t.Errorf("browser kind counts = %+v, want 1 key, 1 move, 2 focus", browser)
	}

	terminal := summaries[1]
	if terminal.KeyPresses != 2 || terminal.PointerPress != 1 {
		t.Errorf("terminal kind counts = %+v, want 2 keys, 1 click", terminal)
	}
}

func TestDeleteOldEvents(t *testing.T) {
	repo := newTestRepo(t)
	now := time.Now()

	repo.Create(&models.InputEvent{Timestamp: now.Add(-48 * time.Hour), AppName: "old", Kind: event.KindKeyPress})
	repo.Create(&models.InputEvent{Timestamp: now, AppName: "new", Kind: event.KindKeyPress})

	deleted, err := repo.DeleteOldEvents(now.Add(-24 * time.Hour))
	if err != nil {
		t.Fatalf("DeleteOldEvents: %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted %d events, want 1", deleted)
	}

	events, err := repo.GetEventsSince(now.Add(-72 * time.Hour))
	if err != nil {
		t.Fatalf("GetEventsSince: %v", err)
	}
	if len(events) != 1 || events[0].AppName != "new" {
		t.Errorf("remaining events = %+v, want only the new one", events)
	}
}

func TestClear(t *testing.T) {
	repo := newTestRepo(t)

	repo.Create(&models.InputEvent{Timestamp: time.Now(), AppName: "terminal", Kind: event.KindKeyPress})
	if err := repo.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	latest, err := repo.GetLatest()
	if err != nil {
		t.Fatalf("GetLatest: %v", err)
	}
	if latest != nil {
		t.Errorf("GetLatest = %+v after Clear, want nil", latest)
	}
}

func TestCreateErrorLog(t *testing.T) {
	repo := newTestRepo(t)

	err := repo.CreateErrorLog(&models.ErrorLog{
		Timestamp: time.Now(),
		Source:    "recorder",
		ErrorMsg:  "test failure",
	})
	if err != nil {
		t.Fatalf("CreateErrorLog: %v", err)
	}
}
