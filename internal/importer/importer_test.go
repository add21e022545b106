package importer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/jonathan/profile-importer/internal/avatar"
	"github.com/jonathan/profile-importer/internal/db"
	"github.com/jonathan/profile-importer/internal/extraction"
	"github.com/jonathan/profile-importer/internal/fetch"
	"github.com/jonathan/profile-importer/internal/metrics"
	"github.com/jonathan/profile-importer/internal/notion"
	"github.com/jonathan/profile-importer/internal/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExtractor struct {
	mu       sync.Mutex
	profile  types.ExtractedProfile
	err      error
	contents []string
}

func (f *fakeExtractor) Extract(_ context.Context, content string) (*types.ExtractedProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.contents = append(f.contents, content)
	if f.err != nil {
		return nil, f.err
	}
	p := f.profile
	return &p, nil
}

func (f *fakeExtractor) Configured() bool { return true }

type fakeSaver struct {
	mu    sync.Mutex
	saved []types.ExtractedProfile
	err   error
}

func (f *fakeSaver) Save(_ context.Context, p *types.ExtractedProfile) (*types.SavedPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.saved = append(f.saved, *p)
	id := fmt.Sprintf("page-%d", len(f.saved))
	return &types.SavedPage{PageID: id, URL: "https://www.notion.so/" + id}, nil
}

func (f *fakeSaver) Configured() bool { return true }

type stubLocator string

func (s stubLocator) Locate(*fetch.Snapshot) string { return string(s) }

func newHistory(t *testing.T) *db.SQLite {
	t.Helper()
	store, err := db.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(store.Close)
	return store
}

func TestImport_Saved(t *testing.T) {
	ext := &fakeExtractor{profile: types.ExtractedProfile{Name: "张三", Email: "zs@example.com"}}
	saver := &fakeSaver{}
	history := newHistory(t)
	m := metrics.NewForRegistry(prometheus.NewRegistry())
	var events []ProgressEvent

	imp := New(ext, saver, Options{
		Locator:    stubLocator("https://cdn.example.com/zs.jpg"),
		History:    history,
		Metrics:    m,
		OnProgress: func(e ProgressEvent) { events = append(events, e) },
	})

	snap := &fetch.Snapshot{URL: "https://www.linkedin.com/in/zs", Text: "张三 zs@example.com"}
	res, err := imp.Import(context.Background(), snap)
	require.NoError(t, err)

	assert.Equal(t, types.ImportStatusSaved, res.Status)
	assert.True(t, res.AvatarFound)
	assert.Equal(t, "page-1", res.Page.PageID)
	assert.Equal(t, []string{"张三 zs@example.com"}, ext.contents)

	require.Len(t, saver.saved, 1)
	assert.Equal(t, "https://cdn.example.com/zs.jpg", saver.saved[0].Avatar)
	assert.Equal(t, "https://www.linkedin.com/in/zs", saver.saved[0].URL)

	records, err := history.ListImports(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "page-1", records[0].NotionPageID)
	assert.Equal(t, "张三", records[0].Name)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ImportsTotal.WithLabelValues("saved")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AvatarsTotal.WithLabelValues("true")))

	steps := make([]string, 0, len(events))
	for _, e := range events {
		steps = append(steps, e.Step)
	}
	assert.Equal(t, []string{StepAvatar, StepExtract, StepSave, StepDone}, steps)
}

func TestImport_NoAvatarKeepsExtractedValue(t *testing.T) {
	ext := &fakeExtractor{profile: types.ExtractedProfile{Name: "Li"}}
	saver := &fakeSaver{}
	imp := New(ext, saver, Options{Locator: stubLocator("")})

	res, err := imp.Import(context.Background(), &fetch.Snapshot{URL: "https://example.com/li"})
	require.NoError(t, err)
	assert.False(t, res.AvatarFound)
	assert.Empty(t, saver.saved[0].Avatar)
}

func TestImport_Duplicate(t *testing.T) {
	ext := &fakeExtractor{profile: types.ExtractedProfile{Email: "dup@example.com"}}
	saver := &fakeSaver{err: fmt.Errorf("%w: %s", notion.ErrDuplicate, notion.DuplicateMessage)}
	history := newHistory(t)
	imp := New(ext, saver, Options{Locator: stubLocator(""), History: history})

	res, err := imp.Import(context.Background(), &fetch.Snapshot{URL: "https://example.com/dup"})
	require.ErrorIs(t, err, notion.ErrDuplicate)
	assert.Equal(t, types.ImportStatusDuplicate, res.Status)
	assert.Contains(t, res.Error, notion.DuplicateMessage)

	rec, err := history.FindByURL(context.Background(), "https://example.com/dup")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, types.ImportStatusDuplicate, rec.Status)
	assert.Equal(t, "dup@example.com", rec.Email)
}

func TestImport_ExtractionFailure(t *testing.T) {
	ext := &fakeExtractor{err: extraction.ErrMissingAPIKey}
	saver := &fakeSaver{}
	history := newHistory(t)
	imp := New(ext, saver, Options{Locator: stubLocator("https://cdn/x.jpg"), History: history})

	res, err := imp.Import(context.Background(), &fetch.Snapshot{URL: "https://example.com/x"})
	require.ErrorIs(t, err, extraction.ErrMissingAPIKey)
	assert.Equal(t, types.ImportStatusFailed, res.Status)
	assert.Nil(t, res.Profile)
	assert.Empty(t, saver.saved)

	rec, err := history.FindByURL(context.Background(), "https://example.com/x")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, types.ImportStatusFailed, rec.Status)
}

func TestExtract_SetsURL(t *testing.T) {
	ext := &fakeExtractor{profile: types.ExtractedProfile{Name: "A", URL: "ignored"}}
	imp := New(ext, &fakeSaver{}, Options{})

	p, err := imp.Extract(context.Background(), "text", "  https://example.com/a ")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/a", p.URL)
}

func TestSave_NilProfile(t *testing.T) {
	imp := New(&fakeExtractor{}, &fakeSaver{}, Options{})
	_, err := imp.Save(context.Background(), nil)
	assert.Error(t, err)
}

func newPageServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/in/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprintf(w, `<html><body>
			<img class="site-logo" src="/logo.png" width="120" height="40">
			<div><img alt="profile photo" src="/img/%s.jpg" width="200" height="200"></div>
			<h1>Candidate %s</h1><p>Engineer at ACME</p>
		</body></html>`, r.URL.Path[len("/in/"):], r.URL.Path[len("/in/"):])
	})
	mux.HandleFunc("/missing", http.NotFound)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestImportURL(t *testing.T) {
	server := newPageServer(t)
	ext := &fakeExtractor{profile: types.ExtractedProfile{Name: "Candidate"}}
	saver := &fakeSaver{}
	imp := New(ext, saver, Options{Locator: avatar.NewLocator()})

	res, err := imp.ImportURL(context.Background(), server.URL+"/in/alice")
	require.NoError(t, err)
	assert.Equal(t, types.ImportStatusSaved, res.Status)
	assert.True(t, res.AvatarFound)
	assert.Equal(t, server.URL+"/img/alice.jpg", saver.saved[0].Avatar)
	require.Len(t, ext.contents, 1)
	assert.Contains(t, ext.contents[0], "Engineer at ACME")
}

func TestImportURL_FetchFailureIsRecorded(t *testing.T) {
	server := newPageServer(t)
	history := newHistory(t)
	imp := New(&fakeExtractor{}, &fakeSaver{}, Options{Locator: avatar.NewLocator(), History: history})

	res, err := imp.ImportURL(context.Background(), server.URL+"/missing")
	require.Error(t, err)
	var fetchErr *fetch.Error
	assert.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, types.ImportStatusFailed, res.Status)

	rec, err := history.FindByURL(context.Background(), server.URL+"/missing")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Contains(t, rec.Error, "HTTP status 404")
}
