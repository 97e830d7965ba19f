package subscriber

import (
	"errors"
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"

	"profile_watch_bot/internal/extractor"
	"profile_watch_bot/internal/model"
)

const testProfile = "http://knigilub.ru/users/42"

var (
	ivanov  = model.NewsRecord{Name: "Иванов Иван", URL: "http://samlib.ru/i/ivanov/", LastChanges: "12/03/2015", SizeChanges: "1234k"}
	petrov  = model.NewsRecord{Name: "Петров Петр", URL: "http://samlib.ru/p/petrov/", LastChanges: "02/03/2015", SizeChanges: "88k"}
	sidorov = model.NewsRecord{Name: "Сидоров Сидор", URL: "http://samlib.ru/s/sidorov/", LastChanges: "14/03/2015", SizeChanges: "512k"}
)

func loadFixture(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile("../../testdata/" + name) //nolint:gosec // test-only fixture loading
	if err != nil {
		t.Fatalf("read fixture %s: %v", name, err)
	}
	return string(data)
}

func newTestSubscriber(strict bool) *Subscriber {
	return New(42, testProfile, &extractor.Extractor{Strict: strict})
}

func TestDiffBaselineDoesNotQueue(t *testing.T) {
	s := newTestSubscriber(false)

	if err := s.Diff(loadFixture(t, "profile_updated.html")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff(StateBaseline, s.State()); diff != "" {
		t.Errorf("state mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(3, s.SeenLen()); diff != "" {
		t.Errorf("seen count mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(0, s.PendingLen()); diff != "" {
		t.Errorf("baseline must not queue notifications (-want +got):\n%s", diff)
	}
}

func TestDiffEmptyBaseline(t *testing.T) {
	s := newTestSubscriber(false)

	err := s.Diff("<html><body>no entries</body></html>")
	if !errors.Is(err, ErrEmptyBaseline) {
		t.Fatalf("expected ErrEmptyBaseline, got %v", err)
	}
	if diff := cmp.Diff(StateFailed, s.State()); diff != "" {
		t.Errorf("state mismatch (-want +got):\n%s", diff)
	}

	// A failed subscriber stays failed even if the page recovers.
	if err := s.Diff(loadFixture(t, "profile.html")); !errors.Is(err, ErrFailed) {
		t.Errorf("expected ErrFailed, got %v", err)
	}
	if diff := cmp.Diff(0, s.SeenLen()); diff != "" {
		t.Errorf("failed subscriber must not record entries (-want +got):\n%s", diff)
	}
}

func TestDiffQueuesNewRecordsInPageOrder(t *testing.T) {
	s := newTestSubscriber(false)

	if err := s.Diff(onlyEntry(t, petrov)); err != nil {
		t.Fatalf("baseline: %v", err)
	}
	if err := s.Diff(loadFixture(t, "profile_updated.html")); err != nil {
		t.Fatalf("diff: %v", err)
	}

	want := []string{sidorov.Notification(), ivanov.Notification()}
	if diff := cmp.Diff(want, s.Pending()); diff != "" {
		t.Errorf("pending mismatch (-want +got):\n%s", diff)
	}
}

func TestDiffIdempotent(t *testing.T) {
	s := newTestSubscriber(false)
	base := loadFixture(t, "profile.html")
	updated := loadFixture(t, "profile_updated.html")

	for _, page := range []string{base, updated, updated, updated} {
		if err := s.Diff(page); err != nil {
			t.Fatalf("diff: %v", err)
		}
	}

	want := []string{sidorov.Notification()}
	if diff := cmp.Diff(want, s.Pending()); diff != "" {
		t.Errorf("pending mismatch (-want +got):\n%s", diff)
	}

	// Draining the queue and feeding the same page again queues nothing.
	if _, ok := s.Pop(); !ok {
		t.Fatal("expected a queued notification")
	}
	if err := s.Diff(updated); err != nil {
		t.Fatalf("diff: %v", err)
	}
	if diff := cmp.Diff(0, s.PendingLen()); diff != "" {
		t.Errorf("seen records must not be re-queued (-want +got):\n%s", diff)
	}
}

func TestDiffChangedDateIsNewRecord(t *testing.T) {
	s := newTestSubscriber(false)
	if err := s.Diff(onlyEntry(t, ivanov)); err != nil {
		t.Fatalf("baseline: %v", err)
	}

	changed := ivanov
	changed.LastChanges = "20/03/2015"
	if err := s.Diff(onlyEntry(t, changed)); err != nil {
		t.Fatalf("diff: %v", err)
	}

	if diff := cmp.Diff([]string{changed.Notification()}, s.Pending()); diff != "" {
		t.Errorf("pending mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(2, s.SeenLen()); diff != "" {
		t.Errorf("seen count mismatch (-want +got):\n%s", diff)
	}
}

func TestDiffStrictErrorLeavesStateUntouched(t *testing.T) {
	s := newTestSubscriber(true)

	err := s.Diff(loadFixture(t, "profile_broken.html"))
	var extractErr *extractor.ExtractionError
	if !errors.As(err, &extractErr) {
		t.Fatalf("expected *extractor.ExtractionError, got %v", err)
	}
	if diff := cmp.Diff(StateUninitialized, s.State()); diff != "" {
		t.Errorf("state mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(0, s.SeenLen()); diff != "" {
		t.Errorf("seen count mismatch (-want +got):\n%s", diff)
	}

	// The next clean page still captures the baseline.
	if err := s.Diff(loadFixture(t, "profile.html")); err != nil {
		t.Fatalf("diff: %v", err)
	}
	if diff := cmp.Diff(StateBaseline, s.State()); diff != "" {
		t.Errorf("state mismatch (-want +got):\n%s", diff)
	}
}

func TestPeekPop(t *testing.T) {
	s := newTestSubscriber(false)

	if _, ok := s.Peek(); ok {
		t.Error("Peek on empty queue should report false")
	}
	if _, ok := s.Pop(); ok {
		t.Error("Pop on empty queue should report false")
	}

	if err := s.Diff(onlyEntry(t, petrov)); err != nil {
		t.Fatalf("baseline: %v", err)
	}
	if err := s.Diff(loadFixture(t, "profile_updated.html")); err != nil {
		t.Fatalf("diff: %v", err)
	}

	head, ok := s.Peek()
	if !ok {
		t.Fatal("expected queued notification")
	}
	if diff := cmp.Diff(sidorov.Notification(), head); diff != "" {
		t.Errorf("Peek mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(2, s.PendingLen()); diff != "" {
		t.Errorf("Peek must not consume (-want +got):\n%s", diff)
	}

	var popped []string
	for {
		text, ok := s.Pop()
		if !ok {
			break
		}
		popped = append(popped, text)
	}
	want := []string{sidorov.Notification(), ivanov.Notification()}
	if diff := cmp.Diff(want, popped); diff != "" {
		t.Errorf("Pop order mismatch (-want +got):\n%s", diff)
	}
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateUninitialized, "uninitialized"},
		{StateBaseline, "baseline"},
		{StateFailed, "failed"},
		{State(9), "State(9)"},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, tt.state.String()); diff != "" {
			t.Errorf("String() mismatch (-want +got):\n%s", diff)
		}
	}
}

// onlyEntry renders a minimal profile page containing a single entry.
func onlyEntry(t *testing.T, r model.NewsRecord) string {
	t.Helper()
	return `<ul><li><a rel="nofollow" href="/users/1"><font color="#000000">` + r.Name +
		` </a> <a href=/go?u1=` + r.URL + ` target=_blank>СИ</a>` +
		` <acronym title="Дата последнего изменения">` + r.LastChanges + `</acronym>` +
		` <acronym title="Объем произведений автора на СИ в килобайтах">` + r.SizeChanges + `</acronym>` +
		` <acronym title="Количество произведений у автора на СИ">1</acronym></li></ul>`
}
