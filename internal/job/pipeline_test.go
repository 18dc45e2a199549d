package job

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/subs2srs/backend/internal/cards"
	"github.com/subs2srs/backend/internal/segment"
	"github.com/subs2srs/backend/internal/transcribe"
)

type fakeFetcher struct {
	err      error
	thumbErr error
}

func (f *fakeFetcher) Fetch(_ context.Context, _, workDir string) (string, string, error) {
	if f.err != nil {
		return "", "", f.err
	}
	path := filepath.Join(workDir, "video.mp4")
	os.WriteFile(path, []byte("media"), 0644)
	return path, "テスト動画", nil
}

func (f *fakeFetcher) FetchThumbnail(_ context.Context, _, outPath string) error {
	if f.thumbErr != nil {
		return f.thumbErr
	}
	return os.WriteFile(outPath, []byte("jpg"), 0644)
}

type fakeAudioExtractor struct {
	err error
}

func (f *fakeAudioExtractor) ExtractAudio(_ context.Context, _, workDir string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	path := filepath.Join(workDir, "audio.mp3")
	os.WriteFile(path, []byte("mp3"), 0644)
	return path, nil
}

type fakeTranscriber struct {
	submitErr error
	pollErr   error
	results   []*transcribe.PollResult
	submits   int
	polls     int
}

func (f *fakeTranscriber) Submit(_ context.Context, _, _ string) (string, error) {
	f.submits++
	if f.submitErr != nil {
		return "", f.submitErr
	}
	return "ext-1", nil
}

func (f *fakeTranscriber) Poll(_ context.Context, _ string) (*transcribe.PollResult, error) {
	if f.pollErr != nil {
		return nil, f.pollErr
	}
	i := f.polls
	if i >= len(f.results) {
		i = len(f.results) - 1
	}
	f.polls++
	return f.results[i], nil
}

type fakePackager struct {
	err   error
	built int
}

func (f *fakePackager) BuildPackage(cardList []cards.Card, _, outPath string) error {
	if f.err != nil {
		return f.err
	}
	f.built = len(cardList)
	return os.WriteFile(outPath, []byte("apkg"), 0644)
}

type nopClipSource struct{}

func (nopClipSource) ExtractClip(_ context.Context, _, _ float64, outPath string) error {
	return os.WriteFile(outPath, []byte("clip"), 0644)
}

type nopImageSource struct{}

func (nopImageSource) ExtractImage(_ context.Context, _ float64, outPath string) error {
	return os.WriteFile(outPath, []byte("img"), 0644)
}

type fakeCache struct {
	words map[string][]segment.Word
	puts  int
}

func (c *fakeCache) Get(url string) ([]segment.Word, bool) {
	w, ok := c.words[url]
	return w, ok
}

func (c *fakeCache) Put(url, _ string, words []segment.Word) error {
	if c.words == nil {
		c.words = make(map[string][]segment.Word)
	}
	c.words[url] = words
	c.puts++
	return nil
}

func transcriptWords() []segment.Word {
	return []segment.Word{
		{Text: "あ", Start: 0.0, End: 0.5, Speaker: "A"},
		{Text: "り", Start: 0.5, End: 0.9, Speaker: "A"},
		{Text: "が", Start: 0.9, End: 1.2, Speaker: "A"},
		{Text: "と", Start: 1.2, End: 1.6, Speaker: "A"},
		{Text: "う", Start: 1.6, End: 2.0, Speaker: "A"},
		{Text: "。", Start: 2.0, End: 2.1, Speaker: "A"},
	}
}

func testDeps(tr transcribe.Transcriber, pk Packager) Deps {
	return Deps{
		Fetcher:     &fakeFetcher{},
		Audio:       &fakeAudioExtractor{},
		Transcriber: tr,
		Packager:    pk,
		ClipSource:  func(string) cards.AudioSource { return nopClipSource{} },
		FrameSource: func(string) cards.ImageSource { return nopImageSource{} },
		StillSource: func(string) cards.ImageSource { return nopImageSource{} },
	}
}

func testConfig() Config {
	return Config{
		Segmenter:    segment.DefaultJapanese(),
		PollInterval: time.Millisecond,
		PollTimeout:  time.Second,
	}
}

func newTestJob(t *testing.T, params Params) *Job {
	t.Helper()
	r := NewRegistry(t.TempDir())
	j, err := r.Create(params)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return j
}

func TestPipelineHappyPath(t *testing.T) {
	tr := &fakeTranscriber{results: []*transcribe.PollResult{
		{Status: transcribe.StatusPending},
		{Status: transcribe.StatusComplete, Words: transcriptWords()},
	}}
	pk := &fakePackager{}
	p := NewPipeline(testDeps(tr, pk), testConfig())
	j := newTestJob(t, Params{URL: "https://example.com/v"})

	p.Run(context.Background(), j)

	st := j.Status()
	if st.State != StateComplete {
		t.Fatalf("state = %s (%s), want complete", st.State, st.Error)
	}
	if st.Progress != 100 {
		t.Errorf("progress = %d, want 100", st.Progress)
	}
	if st.CardCount != 1 || pk.built != 1 {
		t.Errorf("card count = %d (packager built %d), want 1", st.CardCount, pk.built)
	}
	if st.Title != "テスト動画" {
		t.Errorf("title = %q, want テスト動画", st.Title)
	}
	if j.PackagePath() == "" {
		t.Error("package path unset after completion")
	}
	if _, err := os.Stat(j.PackagePath()); err != nil {
		t.Errorf("package file missing: %v", err)
	}
	if got := j.Cards(); len(got) != 1 || got[0].Sentence != "ありがとう。" {
		t.Errorf("cards = %+v, want one ありがとう。 card", got)
	}
}

// TestPipelineProgressMonotonic polls the job status concurrently for the
// whole run and checks progress never decreases.
func TestPipelineProgressMonotonic(t *testing.T) {
	tr := &fakeTranscriber{results: []*transcribe.PollResult{
		{Status: transcribe.StatusPending},
		{Status: transcribe.StatusPending},
		{Status: transcribe.StatusComplete, Words: transcriptWords()},
	}}
	p := NewPipeline(testDeps(tr, &fakePackager{}), testConfig())
	j := newTestJob(t, Params{URL: "u"})

	done := make(chan struct{})
	var polls []Status
	go func() {
		defer close(done)
		for {
			st := j.Status()
			polls = append(polls, st)
			if st.State.Terminal() {
				return
			}
			time.Sleep(100 * time.Microsecond)
		}
	}()

	p.Run(context.Background(), j)
	<-done

	last := -1
	for _, st := range polls {
		if st.Progress < last {
			t.Fatalf("progress decreased: %d -> %d (state %s)", last, st.Progress, st.State)
		}
		last = st.Progress
	}
}

func TestPipelineTranscriptionFailed(t *testing.T) {
	tr := &fakeTranscriber{results: []*transcribe.PollResult{
		{Status: transcribe.StatusFailed, ErrorMessage: "audio too quiet"},
	}}
	p := NewPipeline(testDeps(tr, &fakePackager{}), testConfig())
	j := newTestJob(t, Params{URL: "u"})

	p.Run(context.Background(), j)

	st := j.Status()
	if st.State != StateError {
		t.Fatalf("state = %s, want error", st.State)
	}
	if !strings.HasPrefix(st.Error, string(FailTranscription)) {
		t.Errorf("error = %q, want %s tag", st.Error, FailTranscription)
	}
	if !strings.Contains(st.Error, "audio too quiet") {
		t.Errorf("error = %q, want verbatim service message", st.Error)
	}
	if j.PackagePath() != "" {
		t.Error("package path set on failed job")
	}
}

func TestPipelinePollTimeout(t *testing.T) {
	tr := &fakeTranscriber{results: []*transcribe.PollResult{
		{Status: transcribe.StatusPending},
	}}
	cfg := testConfig()
	cfg.PollTimeout = 5 * time.Millisecond
	p := NewPipeline(testDeps(tr, &fakePackager{}), cfg)
	j := newTestJob(t, Params{URL: "u"})

	p.Run(context.Background(), j)

	st := j.Status()
	if st.State != StateError {
		t.Fatalf("state = %s, want error after poll timeout", st.State)
	}
	if !strings.HasPrefix(st.Error, string(FailTranscription)) {
		t.Errorf("error = %q, want %s tag", st.Error, FailTranscription)
	}
}

func TestPipelineSegmentationEmpty(t *testing.T) {
	// Only Latin filler: everything is dropped by the script filter.
	words := []segment.Word{
		{Text: "uh", Start: 0, End: 0.5, Speaker: "A"},
		{Text: "hm", Start: 0.5, End: 1.0, Speaker: "A"},
		{Text: "yeah", Start: 1.0, End: 1.5, Speaker: "A"},
	}
	tr := &fakeTranscriber{results: []*transcribe.PollResult{
		{Status: transcribe.StatusComplete, Words: words},
	}}
	p := NewPipeline(testDeps(tr, &fakePackager{}), testConfig())
	j := newTestJob(t, Params{URL: "u"})

	p.Run(context.Background(), j)

	st := j.Status()
	if st.State != StateError {
		t.Fatalf("state = %s, want error", st.State)
	}
	if !strings.HasPrefix(st.Error, string(FailSegmentationEmpty)) {
		t.Errorf("error = %q, want %s tag", st.Error, FailSegmentationEmpty)
	}
}

func TestPipelineDownloadFailure(t *testing.T) {
	deps := testDeps(&fakeTranscriber{}, &fakePackager{})
	deps.Fetcher = &fakeFetcher{err: errors.New("404 not found")}
	p := NewPipeline(deps, testConfig())
	j := newTestJob(t, Params{URL: "u"})

	p.Run(context.Background(), j)

	st := j.Status()
	if st.State != StateError {
		t.Fatalf("state = %s, want error", st.State)
	}
	if !strings.HasPrefix(st.Error, string(FailSourceUnavailable)) {
		t.Errorf("error = %q, want %s tag", st.Error, FailSourceUnavailable)
	}
}

func TestPipelinePackagingFailure(t *testing.T) {
	tr := &fakeTranscriber{results: []*transcribe.PollResult{
		{Status: transcribe.StatusComplete, Words: transcriptWords()},
	}}
	p := NewPipeline(testDeps(tr, &fakePackager{err: errors.New("disk full")}), testConfig())
	j := newTestJob(t, Params{URL: "u"})

	p.Run(context.Background(), j)

	st := j.Status()
	if !strings.HasPrefix(st.Error, string(FailPackaging)) {
		t.Errorf("error = %q, want %s tag", st.Error, FailPackaging)
	}
	if j.PackagePath() != "" {
		t.Error("package path exposed after packaging failure")
	}
}

// TestPipelineCache verifies a cached transcript skips the transcription
// service entirely, and a fresh transcription is stored for the next run.
func TestPipelineCache(t *testing.T) {
	tr := &fakeTranscriber{results: []*transcribe.PollResult{
		{Status: transcribe.StatusComplete, Words: transcriptWords()},
	}}
	cache := &fakeCache{}
	deps := testDeps(tr, &fakePackager{})
	deps.Cache = cache
	p := NewPipeline(deps, testConfig())

	j1 := newTestJob(t, Params{URL: "https://example.com/v"})
	p.Run(context.Background(), j1)
	if st := j1.Status(); st.State != StateComplete {
		t.Fatalf("first run: state = %s (%s)", st.State, st.Error)
	}
	if tr.submits != 1 || cache.puts != 1 {
		t.Fatalf("first run: submits = %d, cache puts = %d, want 1/1", tr.submits, cache.puts)
	}

	j2 := newTestJob(t, Params{URL: "https://example.com/v"})
	p.Run(context.Background(), j2)
	if st := j2.Status(); st.State != StateComplete {
		t.Fatalf("second run: state = %s (%s)", st.State, st.Error)
	}
	if tr.submits != 1 {
		t.Errorf("second run hit the transcription service (%d submits)", tr.submits)
	}
}

// TestPipelineSharedImage checks the shared-thumbnail mode fetches one
// thumbnail and reuses it on every card.
func TestPipelineSharedImage(t *testing.T) {
	words := append(transcriptWords(),
		segment.Word{Text: "元", Start: 3.0, End: 3.4, Speaker: "B"},
		segment.Word{Text: "気", Start: 3.4, End: 3.8, Speaker: "B"},
		segment.Word{Text: "で", Start: 3.8, End: 4.0, Speaker: "B"},
		segment.Word{Text: "す", Start: 4.0, End: 4.2, Speaker: "B"},
	)
	tr := &fakeTranscriber{results: []*transcribe.PollResult{
		{Status: transcribe.StatusComplete, Words: words},
	}}
	p := NewPipeline(testDeps(tr, &fakePackager{}), testConfig())
	j := newTestJob(t, Params{URL: "u", SharedImage: true})

	p.Run(context.Background(), j)

	st := j.Status()
	if st.State != StateComplete {
		t.Fatalf("state = %s (%s), want complete", st.State, st.Error)
	}
	cardList := j.Cards()
	if len(cardList) != 2 {
		t.Fatalf("got %d cards, want 2", len(cardList))
	}
	if cardList[0].ImagePath != cardList[1].ImagePath {
		t.Error("cards do not share the thumbnail image")
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := []struct{ in, want string }{
		{"日本語のタイトル", "日本語のタイトル"},
		{"a/b:c*d", "a_b_c_d"},
		{"  ", "deck"},
		{"", "deck"},
	}
	for _, c := range cases {
		if got := sanitizeFilename(c.in); got != c.want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestStageErrorMessage(t *testing.T) {
	err := stageErr(StateTranscribing, FailTranscription, fmt.Errorf("boom"))
	want := "TranscriptionFailure: transcribing: boom"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if !errors.Is(err, err.Err) {
		t.Error("Unwrap does not expose the cause")
	}
}
