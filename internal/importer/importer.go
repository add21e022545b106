// Package importer runs the full import: locate the avatar, extract the
// profile, save it to Notion and record the outcome.
package importer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jonathan/profile-importer/internal/db"
	"github.com/jonathan/profile-importer/internal/fetch"
	"github.com/jonathan/profile-importer/internal/logging"
	"github.com/jonathan/profile-importer/internal/metrics"
	"github.com/jonathan/profile-importer/internal/notion"
	"github.com/jonathan/profile-importer/internal/types"
	"go.uber.org/zap"
)

// Import steps reported through ProgressEvent.
const (
	StepFetch   = "fetch"
	StepAvatar  = "avatar"
	StepExtract = "extract"
	StepSave    = "save"
	StepDone    = "done"
)

// ProfileExtractor turns page text into a profile.
type ProfileExtractor interface {
	Extract(ctx context.Context, content string) (*types.ExtractedProfile, error)
	Configured() bool
}

// ProfileSaver writes a profile to the contact database.
type ProfileSaver interface {
	Save(ctx context.Context, p *types.ExtractedProfile) (*types.SavedPage, error)
	Configured() bool
}

// AvatarLocator picks the profile photo from a snapshot.
type AvatarLocator interface {
	Locate(snap *fetch.Snapshot) string
}

// ProgressEvent represents a progress update during an import
type ProgressEvent struct {
	Step    string `json:"step"`
	URL     string `json:"url,omitempty"`
	Message string `json:"message"`
}

// ProgressCallback is called when import progress occurs. Batch imports
// call it from several goroutines.
type ProgressCallback func(event ProgressEvent)

// Options holds the optional collaborators of an Importer.
type Options struct {
	Locator    AvatarLocator
	History    db.Store
	Fetch      *fetch.Options
	Metrics    *metrics.Metrics
	Logger     *zap.Logger
	OnProgress ProgressCallback
}

// Importer wires extraction, avatar location and saving together.
type Importer struct {
	extractor ProfileExtractor
	saver     ProfileSaver
	locator   AvatarLocator
	history   db.Store
	fetchOpts *fetch.Options
	metrics   *metrics.Metrics
	logger    *zap.Logger
	progress  ProgressCallback
}

// New creates an importer. Locator is required for Import; History and
// Metrics may be nil.
func New(extractor ProfileExtractor, saver ProfileSaver, opts Options) *Importer {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Importer{
		extractor: extractor,
		saver:     saver,
		locator:   opts.Locator,
		history:   opts.History,
		fetchOpts: opts.Fetch,
		metrics:   opts.Metrics,
		logger:    logger,
		progress:  opts.OnProgress,
	}
}

// WithProgress returns a copy of the importer reporting to cb. The copy
// shares every collaborator with i.
func (i *Importer) WithProgress(cb ProgressCallback) *Importer {
	cp := *i
	cp.progress = cb
	return &cp
}

// Readiness reports which collaborators are configured.
type Readiness struct {
	Extraction bool `json:"extraction"`
	Notion     bool `json:"notion"`
	History    bool `json:"history"`
}

// Ready reports which parts of the pipeline can run.
func (i *Importer) Ready() Readiness {
	return Readiness{
		Extraction: i.extractor != nil && i.extractor.Configured(),
		Notion:     i.saver != nil && i.saver.Configured(),
		History:    i.history != nil,
	}
}

// History returns the configured history store, or nil.
func (i *Importer) History() db.Store {
	return i.history
}

// Extract extracts a profile from content and stamps it with pageURL.
func (i *Importer) Extract(ctx context.Context, content, pageURL string) (*types.ExtractedProfile, error) {
	profile, err := i.extractor.Extract(ctx, content)
	if err != nil {
		return nil, err
	}
	profile.URL = strings.TrimSpace(pageURL)
	return profile, nil
}

// Save writes p to Notion.
func (i *Importer) Save(ctx context.Context, p *types.ExtractedProfile) (*types.SavedPage, error) {
	if p == nil {
		return nil, errors.New("no profile to save")
	}
	return i.saver.Save(ctx, p)
}

// Import runs the pipeline over an already captured page. The returned result
// is never nil; err is set whenever the status is not saved.
func (i *Importer) Import(ctx context.Context, snap *fetch.Snapshot) (*types.ImportResult, error) {
	result := &types.ImportResult{StartedAt: time.Now()}
	logger := logging.FromContext(ctx, i.logger).With(zap.String("url", snap.URL))

	err := i.run(ctx, logger, snap, result)
	i.finish(ctx, logger, snap.URL, result, err)
	return result, err
}

func (i *Importer) run(ctx context.Context, logger *zap.Logger, snap *fetch.Snapshot, result *types.ImportResult) error {
	var avatarURL string
	if i.locator != nil {
		avatarURL = i.locator.Locate(snap)
	}
	result.AvatarFound = avatarURL != ""
	if result.AvatarFound {
		i.emit(StepAvatar, snap.URL, "Found avatar: "+avatarURL)
	} else {
		i.emit(StepAvatar, snap.URL, "No avatar found")
	}

	profile, err := i.Extract(ctx, snap.Text, snap.URL)
	if err != nil {
		return err
	}
	if avatarURL != "" {
		profile.Avatar = avatarURL
	}
	result.Profile = profile
	i.emit(StepExtract, snap.URL, fmt.Sprintf("Extracted profile: %s", displayName(profile)))
	logger.Debug("extracted profile", zap.String("name", profile.Name), zap.Bool("avatar", result.AvatarFound))

	page, err := i.Save(ctx, profile)
	if err != nil {
		return err
	}
	result.Page = page
	i.emit(StepSave, snap.URL, "Saved to Notion: "+page.URL)
	return nil
}

// finish classifies the outcome, then records history and metrics.
func (i *Importer) finish(ctx context.Context, logger *zap.Logger, pageURL string, result *types.ImportResult, err error) {
	result.FinishedAt = time.Now()
	switch {
	case err == nil:
		result.Status = types.ImportStatusSaved
	case errors.Is(err, notion.ErrDuplicate):
		result.Status = types.ImportStatusDuplicate
		result.Error = err.Error()
	default:
		result.Status = types.ImportStatusFailed
		result.Error = err.Error()
	}

	if result.Status == types.ImportStatusFailed {
		logger.Warn("import failed", zap.Error(err))
	} else {
		logger.Info("import finished",
			zap.String("status", string(result.Status)),
			zap.Duration("elapsed", result.Duration()),
		)
	}
	i.emit(StepDone, pageURL, "Import "+string(result.Status))

	if i.metrics != nil {
		i.metrics.ObserveImport(string(result.Status), result.AvatarFound, result.Duration())
	}
	if i.history != nil {
		if herr := i.history.RecordImport(ctx, db.RecordFromResult(pageURL, result)); herr != nil {
			logger.Warn("failed to record import history", zap.Error(herr))
		}
	}
}

// ImportURL captures url and imports it.
func (i *Importer) ImportURL(ctx context.Context, url string) (*types.ImportResult, error) {
	started := time.Now()
	i.emit(StepFetch, url, "Fetching page")
	snap, err := fetch.Take(ctx, url, i.fetchOpts)
	if err != nil {
		result := &types.ImportResult{StartedAt: started}
		logger := logging.FromContext(ctx, i.logger).With(zap.String("url", url))
		i.finish(ctx, logger, url, result, err)
		return result, err
	}
	i.emit(StepFetch, url, snap.Describe())
	return i.Import(ctx, snap)
}

func (i *Importer) emit(step, url, message string) {
	if i.progress != nil {
		i.progress(ProgressEvent{Step: step, URL: url, Message: message})
	}
}

func displayName(p *types.ExtractedProfile) string {
	if p.Name != "" {
		return p.Name
	}
	return "(unnamed)"
}
