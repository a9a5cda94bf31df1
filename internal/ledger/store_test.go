package ledger_test

import (
	"context"
	"fmt"
	"testing"

	"podscribe/internal/ledger"
	"podscribe/internal/testsupport"
)

func TestRegisterAndFetch(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)

	ctx := context.Background()
	row, err := store.Register(ctx, "run-1", ledger.Episode{
		Podcast:     "Security Now",
		EpisodeGUID: "guid-1041",
		Title:       "SN 1041: The Quantum Question",
		Identifier:  "SN_1041",
		AudioURL:    "https://cdn.example.com/sn1041.mp3",
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if row.ID == 0 {
		t.Fatal("expected row ID to be assigned")
	}
	if row.Status != ledger.StatusPending {
		t.Fatalf("expected pending status, got %s", row.Status)
	}
	if row.RunID != "run-1" || row.Identifier != "SN_1041" {
		t.Fatalf("unexpected row: %#v", row)
	}
	if row.CreatedAt.IsZero() || row.UpdatedAt.IsZero() {
		t.Fatalf("expected timestamps to be set: %#v", row)
	}

	fetched, err := store.GetByID(ctx, row.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched == nil || fetched.Title != "SN 1041: The Quantum Question" {
		t.Fatalf("unexpected fetched row: %#v", fetched)
	}

	byKey, err := store.GetByKey(ctx, "Security Now", "guid-1041")
	if err != nil {
		t.Fatalf("GetByKey failed: %v", err)
	}
	if byKey == nil || byKey.ID != row.ID {
		t.Fatalf("expected to find registered row, got %#v", byKey)
	}
}

func TestRegisterRefreshesExistingRow(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)

	ctx := context.Background()
	first, err := store.Register(ctx, "run-1", ledger.Episode{
		Podcast:     "Security Now",
		EpisodeGUID: "guid-1041",
		Title:       "SN 1041",
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := store.SetStatus(ctx, first.ID, ledger.StatusCompleted); err != nil {
		t.Fatalf("SetStatus failed: %v", err)
	}

	second, err := store.Register(ctx, "run-2", ledger.Episode{
		Podcast:     "Security Now",
		EpisodeGUID: "guid-1041",
		Title:       "SN 1041: The Quantum Question",
		AudioURL:    "https://cdn.example.com/sn1041.mp3",
	})
	if err != nil {
		t.Fatalf("Register again failed: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected same row, got %d and %d", first.ID, second.ID)
	}
	if second.Status != ledger.StatusCompleted {
		t.Fatalf("re-registration must not reset status, got %s", second.Status)
	}
	if second.Title != "SN 1041: The Quantum Question" || second.RunID != "run-2" {
		t.Fatalf("expected refreshed metadata: %#v", second)
	}
}

func TestRegisterRequiresKey(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)

	ctx := context.Background()
	if _, err := store.Register(ctx, "run-1", ledger.Episode{Podcast: "Security Now"}); err == nil {
		t.Fatal("expected error when guid missing")
	}
	if _, err := store.Register(ctx, "run-1", ledger.Episode{EpisodeGUID: "guid-1"}); err == nil {
		t.Fatal("expected error when podcast missing")
	}
}

func TestSetStatusClearsFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)

	ctx := context.Background()
	row := testsupport.RegisterEpisode(t, store, "run-1", "Security Now", "guid-1", "SN 1")
	if err := store.MarkFailed(ctx, row.ID, "transcription timed out"); err != nil {
		t.Fatalf("MarkFailed failed: %v", err)
	}

	failed, err := store.GetByID(ctx, row.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if failed.Status != ledger.StatusFailed || failed.ErrorMessage != "transcription timed out" {
		t.Fatalf("unexpected failed row: %#v", failed)
	}

	if err := store.SetStatus(ctx, row.ID, ledger.StatusDownloading); err != nil {
		t.Fatalf("SetStatus failed: %v", err)
	}
	retried, err := store.GetByID(ctx, row.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if retried.Status != ledger.StatusDownloading {
		t.Fatalf("expected downloading, got %s", retried.Status)
	}
	if retried.ErrorMessage != "" {
		t.Fatalf("expected error message cleared, got %q", retried.ErrorMessage)
	}
}

func TestSetStatusRejectsUnknown(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)

	row := testsupport.RegisterEpisode(t, store, "run-1", "Security Now", "guid-1", "SN 1")
	if err := store.SetStatus(context.Background(), row.ID, ledger.Status("paused")); err == nil {
		t.Fatal("expected error for unknown status")
	}
}

func TestListSupportsStatusFilter(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)

	ctx := context.Background()
	a := testsupport.RegisterEpisode(t, store, "run-1", "Security Now", "guid-a", "Episode A")
	b := testsupport.RegisterEpisode(t, store, "run-1", "Security Now", "guid-b", "Episode B")
	if err := store.SetStatus(ctx, b.ID, ledger.StatusCompleted); err != nil {
		t.Fatalf("SetStatus failed: %v", err)
	}

	all, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 2 || all[0].ID != a.ID {
		t.Fatalf("expected both rows oldest first, got %#v", all)
	}

	completed, err := store.List(ctx, ledger.StatusCompleted)
	if err != nil {
		t.Fatalf("List filtered failed: %v", err)
	}
	if len(completed) != 1 || completed[0].Title != "Episode B" {
		t.Fatalf("expected Episode B only, got %#v", completed)
	}
}

func TestRecentOrdersByUpdate(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)

	ctx := context.Background()
	a := testsupport.RegisterEpisode(t, store, "run-1", "Security Now", "guid-a", "Episode A")
	testsupport.RegisterEpisode(t, store, "run-1", "Security Now", "guid-b", "Episode B")
	if err := store.SetStatus(ctx, a.ID, ledger.StatusCompleted); err != nil {
		t.Fatalf("SetStatus failed: %v", err)
	}

	recent, err := store.Recent(ctx, 1)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(recent) != 1 || recent[0].ID != a.ID {
		t.Fatalf("expected most recently updated row, got %#v", recent)
	}
}

func TestSummarizeCounts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)

	ctx := context.Background()
	statuses := []ledger.Status{
		ledger.StatusPending,
		ledger.StatusTranscribing,
		ledger.StatusNaming,
		ledger.StatusCompleted,
		ledger.StatusFailed,
	}
	for i, status := range statuses {
		row := testsupport.RegisterEpisode(t, store, "run-1", "Security Now", fmt.Sprintf("guid-%d", i), fmt.Sprintf("Episode %d", i))
		if status == ledger.StatusPending {
			continue
		}
		if status == ledger.StatusFailed {
			if err := store.MarkFailed(ctx, row.ID, "boom"); err != nil {
				t.Fatalf("MarkFailed failed: %v", err)
			}
			continue
		}
		if err := store.SetStatus(ctx, row.ID, status); err != nil {
			t.Fatalf("SetStatus failed: %v", err)
		}
	}

	summary, err := store.Summarize(ctx)
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if summary.Total != 5 || summary.Pending != 1 || summary.Processing != 2 || summary.Completed != 1 || summary.Failed != 1 {
		t.Fatalf("unexpected summary: %#v", summary)
	}
}

func TestResetStaleFailsInFlightRows(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)

	ctx := context.Background()
	stuck := testsupport.RegisterEpisode(t, store, "run-1", "Security Now", "guid-stuck", "Episode Stuck")
	if err := store.SetStatus(ctx, stuck.ID, ledger.StatusTranscribing); err != nil {
		t.Fatalf("SetStatus failed: %v", err)
	}
	done := testsupport.RegisterEpisode(t, store, "run-1", "Security Now", "guid-done", "Episode Done")
	if err := store.SetStatus(ctx, done.ID, ledger.StatusCompleted); err != nil {
		t.Fatalf("SetStatus failed: %v", err)
	}

	count, err := store.ResetStale(ctx, "interrupted by shutdown")
	if err != nil {
		t.Fatalf("ResetStale failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one stale row, got %d", count)
	}

	updated, err := store.GetByID(ctx, stuck.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if updated.Status != ledger.StatusFailed || updated.ErrorMessage != "interrupted by shutdown" {
		t.Fatalf("unexpected stale row: %#v", updated)
	}

	untouched, err := store.GetByID(ctx, done.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if untouched.Status != ledger.StatusCompleted {
		t.Fatalf("completed row must not change, got %s", untouched.Status)
	}
}

func TestRunLifecycle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)

	ctx := context.Background()
	run, err := store.StartRun(ctx, "5f0c9f4e-run", "process")
	if err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}
	if run.ID == 0 || run.Mode != "process" || run.FinishedAt != nil {
		t.Fatalf("unexpected run: %#v", run)
	}

	if err := store.FinishRun(ctx, "5f0c9f4e-run", 3, 2, 1); err != nil {
		t.Fatalf("FinishRun failed: %v", err)
	}

	last, err := store.LastRun(ctx)
	if err != nil {
		t.Fatalf("LastRun failed: %v", err)
	}
	if last == nil || last.RunID != "5f0c9f4e-run" {
		t.Fatalf("unexpected last run: %#v", last)
	}
	if last.Processed != 3 || last.Skipped != 2 || last.Failed != 1 {
		t.Fatalf("unexpected counts: %#v", last)
	}
	if last.FinishedAt == nil {
		t.Fatal("expected finished timestamp")
	}
}

func TestParseStatus(t *testing.T) {
	if status, ok := ledger.ParseStatus(" Transcribing "); !ok || status != ledger.StatusTranscribing {
		t.Fatalf("ParseStatus = %q, %v", status, ok)
	}
	if _, ok := ledger.ParseStatus("paused"); ok {
		t.Fatal("expected unknown status to be rejected")
	}
	if _, ok := ledger.ParseStatus(""); ok {
		t.Fatal("expected empty status to be rejected")
	}
}
