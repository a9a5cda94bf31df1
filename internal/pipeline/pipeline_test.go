package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"podscribe/internal/config"
	"podscribe/internal/export"
	"podscribe/internal/feed"
	"podscribe/internal/ledger"
	"podscribe/internal/logging"
	"podscribe/internal/pipeline"
	"podscribe/internal/services"
	"podscribe/internal/speakers"
	"podscribe/internal/testsupport"
	"podscribe/internal/transcript"
)

type fakeFetcher struct {
	mu       sync.Mutex
	podcasts map[string]*feed.Podcast
	errs     map[string]error
	calls    int
}

func (f *fakeFetcher) Fetch(_ context.Context, feedCfg config.Feed) (*feed.Podcast, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if err := f.errs[feedCfg.Name]; err != nil {
		return nil, err
	}
	if podcast := f.podcasts[feedCfg.Name]; podcast != nil {
		return podcast, nil
	}
	return nil, fmt.Errorf("no fixture for feed %q", feedCfg.Name)
}

type fakeDownloader struct {
	cfg     *config.Config
	mu      sync.Mutex
	calls   int
	failFor map[string]error
}

func (d *fakeDownloader) StagedPath(episode feed.Episode) string {
	return filepath.Join(d.cfg.Paths.StagingDir, export.Prefix(episode)+".mp3")
}

func (d *fakeDownloader) Download(_ context.Context, episode feed.Episode) (string, error) {
	d.mu.Lock()
	d.calls++
	d.mu.Unlock()
	if err := d.failFor[episode.Title]; err != nil {
		return "", services.Wrap(services.ErrAcquisition, "downloading", "stage audio",
			"Failed to download episode audio", err)
	}
	path := d.StagedPath(episode)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte("audio"), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func (d *fakeDownloader) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

type fakeExtractor struct {
	err error
}

func (e *fakeExtractor) Extract(_ context.Context, _, destination string) error {
	if e.err != nil {
		return e.err
	}
	return os.WriteFile(destination, []byte("wav"), 0o644)
}

type fakeEngine struct {
	mu            sync.Mutex
	calls         int
	transcription *transcript.Transcription
	err           error
	onTranscribe  func()
}

func (e *fakeEngine) Name() string { return "fake-whisper" }

func (e *fakeEngine) Transcribe(ctx context.Context, _ string) (*transcript.Transcription, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	if e.onTranscribe != nil {
		e.onTranscribe()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if e.err != nil {
		return nil, e.err
	}
	result := *e.transcription
	return &result, nil
}

type fakeDiarizer struct {
	enabled bool
	turns   []transcript.Turn
	err     error
}

func (d *fakeDiarizer) Enabled() bool { return d.enabled }

func (d *fakeDiarizer) Diarize(context.Context, string) ([]transcript.Turn, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.turns, nil
}

type fakeIdentifier struct {
	mu       sync.Mutex
	calls    int
	mapping  transcript.SpeakerMapping
	err      error
	lastMeta speakers.Metadata
	lastIDs  []string
}

func (f *fakeIdentifier) Identify(_ context.Context, _ string, ids []string, meta speakers.Metadata) (transcript.SpeakerMapping, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastMeta = meta
	f.lastIDs = append([]string(nil), ids...)
	if f.err != nil {
		return nil, f.err
	}
	return f.mapping, nil
}

func (f *fakeIdentifier) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeIdentifier) meta() speakers.Metadata {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastMeta
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *fakeNotifier) record(event string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *fakeNotifier) NotifyRunStarted(context.Context, string, int) error {
	n.record("run_started")
	return nil
}

func (n *fakeNotifier) NotifyRunCompleted(context.Context, string, int, int, int, time.Duration) error {
	n.record("run_completed")
	return nil
}

func (n *fakeNotifier) NotifyEpisodeCompleted(context.Context, string, string) error {
	n.record("episode_completed")
	return nil
}

func (n *fakeNotifier) NotifyEpisodeFailed(context.Context, string, string, error) error {
	n.record("episode_failed")
	return nil
}

func (n *fakeNotifier) TestNotification(context.Context) error {
	n.record("test")
	return nil
}

func (n *fakeNotifier) saw(event string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, e := range n.events {
		if e == event {
			return true
		}
	}
	return false
}

func (n *fakeNotifier) all() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.events...)
}

type harness struct {
	cfg        *config.Config
	store      *ledger.Store
	pipe       *pipeline.Pipeline
	fetcher    *fakeFetcher
	downloader *fakeDownloader
	extractor  *fakeExtractor
	engine     *fakeEngine
	diarizer   *fakeDiarizer
	identifier *fakeIdentifier
	notifier   *fakeNotifier
	exporter   *export.Exporter
}

const testFeedName = "Security Now"

func testTranscription() *transcript.Transcription {
	return &transcript.Transcription{
		Language: "en",
		Segments: []transcript.Segment{
			{Start: 0, End: 2, Text: "Welcome back to the show."},
			{Start: 2, End: 5, Text: "Thanks, great to be here."},
		},
	}
}

func testTurns() []transcript.Turn {
	return []transcript.Turn{
		{Start: 0, End: 2, Speaker: "SPEAKER_00"},
		{Start: 2, End: 5, Speaker: "SPEAKER_01"},
	}
}

func testMapping() transcript.SpeakerMapping {
	return transcript.SpeakerMapping{
		"SPEAKER_00": "Leo Laporte",
		"SPEAKER_01": "Steve Gibson",
	}
}

func testEpisode(number int) feed.Episode {
	return feed.Episode{
		Title:       fmt.Sprintf("SN %d: Listener Feedback", number),
		PodcastName: testFeedName,
		Identifier:  fmt.Sprintf("SN_%d", number),
		Number:      strconv.Itoa(number),
		GUID:        fmt.Sprintf("sn-%d", number),
		AudioURL:    fmt.Sprintf("https://media.example.com/sn-%d.mp3", number),
		Description: "Steve Gibson and Leo Laporte cover the week in security news.",
		Hosts:       []string{"Steve Gibson", "Leo Laporte"},
	}
}

func newHarness(t *testing.T, episodes ...feed.Episode) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithFeed(config.Feed{
		Name: testFeedName,
		URL:  "https://feeds.example.com/sn.xml",
	}))
	cfg.Workflow.PauseSeconds = 0
	store := testsupport.MustOpenLedger(t, cfg)

	podcast := &feed.Podcast{
		Name:        testFeedName,
		Description: "A weekly security podcast.",
		Episodes:    episodes,
	}
	h := &harness{
		cfg:        cfg,
		store:      store,
		fetcher:    &fakeFetcher{podcasts: map[string]*feed.Podcast{testFeedName: podcast}},
		downloader: &fakeDownloader{cfg: cfg},
		extractor:  &fakeExtractor{},
		engine:     &fakeEngine{transcription: testTranscription()},
		diarizer:   &fakeDiarizer{enabled: true, turns: testTurns()},
		identifier: &fakeIdentifier{mapping: testMapping()},
		notifier:   &fakeNotifier{},
	}
	h.pipe = pipeline.New(cfg, store, logging.NewNop(),
		pipeline.WithFetcher(h.fetcher),
		pipeline.WithDownloader(h.downloader),
		pipeline.WithExtractor(h.extractor),
		pipeline.WithEngine(h.engine),
		pipeline.WithDiarizer(h.diarizer),
		pipeline.WithIdentifier(h.identifier, "openai"),
		pipeline.WithNotifier(h.notifier),
	)
	h.exporter = export.NewExporter(cfg, logging.NewNop())
	return h
}

func (h *harness) artifactPath(episode feed.Episode, suffix string) string {
	return filepath.Join(h.exporter.EpisodeDir(episode), export.Prefix(episode)+suffix)
}

func readText(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func TestRunProcessesEpisodeEndToEnd(t *testing.T) {
	episode := testEpisode(1041)
	h := newHarness(t, episode)

	summary, err := h.pipe.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Processed != 1 || summary.Skipped != 0 || summary.Failed != 0 {
		t.Fatalf("summary = %d/%d/%d, want 1/0/0", summary.Processed, summary.Skipped, summary.Failed)
	}
	if summary.RunID == "" || summary.Mode != pipeline.ModeProcess {
		t.Fatalf("unexpected run identity: %q mode %q", summary.RunID, summary.Mode)
	}

	enhanced := readText(t, h.artifactPath(episode, "_enhanced.txt"))
	if !strings.Contains(enhanced, "Leo Laporte: Welcome back to the show.") {
		t.Fatalf("enhanced transcript missing mapped speaker:\n%s", enhanced)
	}
	if !strings.Contains(enhanced, "Steve Gibson: Thanks, great to be here.") {
		t.Fatalf("enhanced transcript missing second speaker:\n%s", enhanced)
	}
	raw := readText(t, h.artifactPath(episode, "_raw.txt"))
	if strings.Contains(raw, "Leo Laporte") {
		t.Fatalf("raw transcript should not carry speaker names:\n%s", raw)
	}
	if _, err := os.Stat(h.exporter.DiarizedJSONPath(episode)); err != nil {
		t.Fatalf("diarized artifact missing: %v", err)
	}

	doc, err := export.ReadMetadata(h.exporter.MetadataPath(episode))
	if err != nil {
		t.Fatalf("read metadata: %v", err)
	}
	if doc.Processing["naming_provider"] != "openai" {
		t.Fatalf("naming_provider = %v", doc.Processing["naming_provider"])
	}
	if doc.Processing["diarization_enabled"] != true {
		t.Fatalf("diarization_enabled = %v", doc.Processing["diarization_enabled"])
	}
	if doc.Processing["speaker_mappings_applied"] != true {
		t.Fatalf("speaker_mappings_applied = %v", doc.Processing["speaker_mappings_applied"])
	}
	if doc.Processing["language_detected"] != "en" {
		t.Fatalf("language_detected = %v", doc.Processing["language_detected"])
	}

	record, err := h.store.GetByKey(context.Background(), testFeedName, episode.GUID)
	if err != nil {
		t.Fatalf("GetByKey: %v", err)
	}
	if record == nil || record.Status != ledger.StatusCompleted {
		t.Fatalf("ledger record = %+v, want completed", record)
	}
	run, err := h.store.LastRun(context.Background())
	if err != nil {
		t.Fatalf("LastRun: %v", err)
	}
	if run == nil || run.Processed != 1 || run.Mode != pipeline.ModeProcess || run.FinishedAt == nil {
		t.Fatalf("run row = %+v, want finished process run with 1 processed", run)
	}

	staged := h.downloader.StagedPath(episode)
	if _, err := os.Stat(staged); err != nil {
		t.Fatalf("staged audio should be retained: %v", err)
	}
	if _, err := os.Stat(staged + ".wav"); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("intermediate wav should be removed, stat err = %v", err)
	}

	for _, event := range []string{"run_started", "episode_completed", "run_completed"} {
		if !h.notifier.saw(event) {
			t.Fatalf("missing notification %q (saw %v)", event, h.notifier.all())
		}
	}
}

func TestRunSkipsEpisodesWithArtifacts(t *testing.T) {
	episode := testEpisode(1042)
	h := newHarness(t, episode)

	seed := []transcript.DiarizedSegment{{Start: 0, End: 2, Text: "Prior run.", Speaker: "SPEAKER_00"}}
	if err := h.exporter.WriteDiarized(episode, seed); err != nil {
		t.Fatalf("seed diarized artifact: %v", err)
	}

	summary, err := h.pipe.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Skipped != 1 || summary.Processed != 0 || summary.Failed != 0 {
		t.Fatalf("summary = %d/%d/%d, want 0 processed 1 skipped", summary.Processed, summary.Skipped, summary.Failed)
	}
	if h.downloader.callCount() != 0 {
		t.Fatalf("downloader ran %d times for a skipped episode", h.downloader.callCount())
	}
	record, err := h.store.GetByKey(context.Background(), testFeedName, episode.GUID)
	if err != nil {
		t.Fatalf("GetByKey: %v", err)
	}
	if record != nil {
		t.Fatalf("skipped episode should not be registered, got %+v", record)
	}
}

func TestRunIsolatesEpisodeFailures(t *testing.T) {
	bad := testEpisode(2001)
	good := testEpisode(2002)
	h := newHarness(t, bad, good)
	h.downloader.failFor = map[string]error{bad.Title: errors.New("server returned 503")}

	summary, err := h.pipe.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Processed != 1 || summary.Failed != 1 {
		t.Fatalf("summary = %d/%d/%d, want 1 processed 1 failed", summary.Processed, summary.Skipped, summary.Failed)
	}
	if len(summary.Failures) != 1 {
		t.Fatalf("expected one failure record, got %v", summary.Failures)
	}
	failure := summary.Failures[0]
	if failure.Episode != bad.Title || failure.Stage != string(ledger.StatusDownloading) {
		t.Fatalf("failure record = %+v", failure)
	}
	if !strings.Contains(failure.Message, "503") {
		t.Fatalf("failure message should carry the cause: %q", failure.Message)
	}

	ctx := context.Background()
	badRecord, err := h.store.GetByKey(ctx, testFeedName, bad.GUID)
	if err != nil {
		t.Fatalf("GetByKey bad: %v", err)
	}
	if badRecord == nil || badRecord.Status != ledger.StatusFailed || badRecord.ErrorMessage == "" {
		t.Fatalf("bad record = %+v, want failed with message", badRecord)
	}
	goodRecord, err := h.store.GetByKey(ctx, testFeedName, good.GUID)
	if err != nil {
		t.Fatalf("GetByKey good: %v", err)
	}
	if goodRecord == nil || goodRecord.Status != ledger.StatusCompleted {
		t.Fatalf("good record = %+v, want completed", goodRecord)
	}
	if !h.notifier.saw("episode_failed") {
		t.Fatalf("expected failure notification, saw %v", h.notifier.all())
	}
	if _, err := os.Stat(h.exporter.DiarizedJSONPath(good)); err != nil {
		t.Fatalf("surviving episode artifacts missing: %v", err)
	}
}

func TestRunFallsBackToRotationWhenDiarizerFails(t *testing.T) {
	episode := testEpisode(3001)
	h := newHarness(t, episode)
	h.diarizer.err = errors.New("sidecar unavailable")

	summary, err := h.pipe.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Processed != 1 || summary.Failed != 0 {
		t.Fatalf("summary = %d/%d/%d, diarizer failure must not fail the episode",
			summary.Processed, summary.Skipped, summary.Failed)
	}

	segments, err := export.ReadDiarizedSegments(h.exporter.DiarizedJSONPath(episode))
	if err != nil {
		t.Fatalf("read diarized: %v", err)
	}
	if len(segments) != 1 {
		t.Fatalf("rotation over adjacent segments should coalesce to one, got %d", len(segments))
	}
	if segments[0].Speaker != "SPEAKER_01" {
		t.Fatalf("rotation speaker = %q", segments[0].Speaker)
	}
	doc, err := export.ReadMetadata(h.exporter.MetadataPath(episode))
	if err != nil {
		t.Fatalf("read metadata: %v", err)
	}
	if doc.Processing["diarization_enabled"] != false {
		t.Fatalf("diarization_enabled = %v, want false", doc.Processing["diarization_enabled"])
	}
}

func TestRunUsesFallbackNamesWhenIdentifierFails(t *testing.T) {
	episode := testEpisode(3002)
	h := newHarness(t, episode)
	h.identifier.err = errors.New("oracle quota exhausted")

	summary, err := h.pipe.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Processed != 1 || summary.Failed != 0 {
		t.Fatalf("summary = %d/%d/%d, naming failure must not fail the episode",
			summary.Processed, summary.Skipped, summary.Failed)
	}

	enhanced := readText(t, h.artifactPath(episode, "_enhanced.txt"))
	if !strings.Contains(enhanced, "Speaker_1:") || !strings.Contains(enhanced, "Speaker_2:") {
		t.Fatalf("expected deterministic fallback names:\n%s", enhanced)
	}
	doc, err := export.ReadMetadata(h.exporter.MetadataPath(episode))
	if err != nil {
		t.Fatalf("read metadata: %v", err)
	}
	if doc.Processing["naming_provider"] != "fallback" {
		t.Fatalf("naming_provider = %v, want fallback", doc.Processing["naming_provider"])
	}
	if doc.Processing["speaker_mappings_applied"] != false {
		t.Fatalf("speaker_mappings_applied = %v, want false", doc.Processing["speaker_mappings_applied"])
	}
}

func TestRunRequiresConfiguredFeeds(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)
	pipe := pipeline.New(cfg, store, logging.NewNop())

	if _, err := pipe.Run(context.Background()); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestRunRecordsFeedFetchFailure(t *testing.T) {
	episode := testEpisode(4001)
	h := newHarness(t, episode)
	h.cfg.Feeds = append(h.cfg.Feeds, config.Feed{Name: "Broken Feed", URL: "https://feeds.example.com/broken.xml"})
	h.fetcher.errs = map[string]error{"Broken Feed": errors.New("rss returned 500")}

	summary, err := h.pipe.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Processed != 1 || summary.Failed != 1 {
		t.Fatalf("summary = %d/%d/%d, want healthy feed processed and broken feed failed",
			summary.Processed, summary.Skipped, summary.Failed)
	}
	if len(summary.Failures) != 1 || summary.Failures[0].Podcast != "Broken Feed" {
		t.Fatalf("failures = %v", summary.Failures)
	}
}

func TestRunStopsWhenContextCanceled(t *testing.T) {
	episode := testEpisode(5001)
	h := newHarness(t, episode)
	ctx, cancel := context.WithCancel(context.Background())
	h.engine.onTranscribe = cancel

	summary, err := h.pipe.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if summary == nil {
		t.Fatal("expected a partial summary on cancellation")
	}
	if summary.Processed != 0 || summary.Failed != 0 {
		t.Fatalf("canceled episode must not count as processed or failed, got %d/%d",
			summary.Processed, summary.Failed)
	}
	run, lastErr := h.store.LastRun(context.Background())
	if lastErr != nil {
		t.Fatalf("LastRun: %v", lastErr)
	}
	if run == nil || run.FinishedAt == nil {
		t.Fatalf("run outcome should persist despite cancellation, got %+v", run)
	}
}
