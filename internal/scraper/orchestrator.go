package scraper

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"jobmate/internship-crawler/internal/crawlstate"
	"jobmate/internship-crawler/internal/model"
)

const (
	DefaultPolitenessDelay = 3 * time.Second
	DefaultTestModeLimit   = 3
)

// RobotsPolicy vetoes careers pages a site does not want crawled.
type RobotsPolicy interface {
	Check(ctx context.Context, url string) error
}

// PageExtractor turns a fetched careers page into candidate postings.
// *Extractor is the production implementation.
type PageExtractor interface {
	Extract(pageURL, html string) ([]model.ExtractedPosting, error)
}

// RunLog receives the summary of every finished run.
type RunLog interface {
	AppendRun(ctx context.Context, r model.RunRecord) error
}

// Locker keeps two runs from overlapping.
type Locker interface {
	Acquire(ctx context.Context) (release func(context.Context) error, err error)
}

// RunObserver records run-level metrics.
type RunObserver interface {
	ObserveRun(stats model.RunStatistics, skippedCompanies int, took time.Duration)
}

// Options tunes an Orchestrator.
type Options struct {
	// PolitenessDelay is the pause between companies. With Concurrency > 1
	// it becomes the minimum spacing between requests to one origin.
	PolitenessDelay time.Duration
	// TestModeLimit caps the number of enabled companies in test mode.
	TestModeLimit int
	// Concurrency is the number of companies crawled at once. 1 is the
	// sequential, politeness-first default.
	Concurrency int
}

// Deps are the orchestrator's collaborators. Fetchers, Extractor and
// Persister are required; the rest are optional.
type Deps struct {
	Fetchers  Fetchers
	Extractor PageExtractor
	Persister *Persister
	Robots    RobotsPolicy
	RunLogs   []RunLog
	Locker    Locker
	Observer  RunObserver
}

// Orchestrator drives one run over the company list:
// fetch → extract → classify → persist per company, then a summary.
type Orchestrator struct {
	deps    Deps
	opts    Options
	limiter *HostLimiter
	logger  *zap.Logger
	sleep   func(ctx context.Context, d time.Duration) error
	now     func() time.Time
}

// NewOrchestrator constructs an Orchestrator.
func NewOrchestrator(deps Deps, opts Options, logger *zap.Logger) *Orchestrator {
	if opts.TestModeLimit <= 0 {
		opts.TestModeLimit = DefaultTestModeLimit
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	o := &Orchestrator{
		deps:   deps,
		opts:   opts,
		logger: logger.With(zap.String("component", "orchestrator")),
		sleep:  sleepCtx,
		now:    time.Now,
	}
	if opts.Concurrency > 1 {
		o.limiter = NewHostLimiter(opts.PolitenessDelay)
	}
	return o
}

// RunOptions selects per-run behavior.
type RunOptions struct {
	// TestMode restricts the run to the first Options.TestModeLimit enabled
	// companies.
	TestMode bool
}

// companyResult is what one company contributes to the run.
type companyResult struct {
	stats model.RunStatistics
	state crawlstate.State
}

// Run crawls every enabled company and returns the run record. Per-company
// failures never abort the run; they land in the record's Errors. A non-nil
// error means the run did not start (lock held) or was cancelled, in which
// case the partial record is still returned.
func (o *Orchestrator) Run(ctx context.Context, companies []model.CompanyTarget, ro RunOptions) (model.RunRecord, error) {
	if o.deps.Locker != nil {
		release, err := o.deps.Locker.Acquire(ctx)
		if err != nil {
			return model.RunRecord{}, err
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				o.logger.Warn("release run lock failed", zap.Error(err))
			}
		}()
	}

	runState := crawlstate.RunIdle
	targets := o.selectTargets(companies, ro.TestMode)
	record := model.RunRecord{
		RunID:     uuid.NewString(),
		TestMode:  ro.TestMode,
		StartedAt: o.now().UTC(),
	}
	runState, _ = crawlstate.NextRunState(runState)
	log := o.logger.With(zap.String("run_id", record.RunID))
	log.Info("run started",
		zap.String("state", string(runState)),
		zap.Int("companies", len(targets)),
		zap.Bool("test_mode", ro.TestMode),
		zap.Int("concurrency", o.opts.Concurrency))

	var results []companyResult
	if o.opts.Concurrency > 1 {
		results = o.runParallel(ctx, targets, log)
	} else {
		results = o.runSequential(ctx, targets, log)
	}

	// Results are merged in input order so counts and the error list are
	// deterministic regardless of concurrency.
	skipped := 0
	for _, r := range results {
		record.Merge(r.stats)
		if r.state == crawlstate.StateSkipped {
			skipped++
		}
	}
	if record.Errors == nil {
		record.Errors = []model.CompanyError{}
	}

	runState, _ = crawlstate.NextRunState(runState)
	record.FinishedAt = o.now().UTC()
	record.Status = model.RunStatusCompleted
	runErr := ctx.Err()
	if runErr != nil {
		record.Status = model.RunStatusFailed
	}

	o.report(ctx, log, record, runState, skipped)
	return record, runErr
}

func (o *Orchestrator) selectTargets(companies []model.CompanyTarget, testMode bool) []model.CompanyTarget {
	targets := make([]model.CompanyTarget, 0, len(companies))
	for _, c := range companies {
		if c.Enabled {
			targets = append(targets, c)
		}
	}
	if testMode && len(targets) > o.opts.TestModeLimit {
		targets = targets[:o.opts.TestModeLimit]
	}
	return targets
}

func (o *Orchestrator) runSequential(ctx context.Context, targets []model.CompanyTarget, log *zap.Logger) []companyResult {
	results := make([]companyResult, 0, len(targets))
	for i, c := range targets {
		if ctx.Err() != nil {
			log.Warn("run cancelled", zap.Int("remaining", len(targets)-i))
			break
		}
		results = append(results, o.processCompany(ctx, c, log))

		if i < len(targets)-1 && o.opts.PolitenessDelay > 0 {
			if err := o.sleep(ctx, o.opts.PolitenessDelay); err != nil {
				log.Warn("run cancelled during politeness delay", zap.Int("remaining", len(targets)-i-1))
				break
			}
		}
	}
	return results
}

func (o *Orchestrator) runParallel(ctx context.Context, targets []model.CompanyTarget, log *zap.Logger) []companyResult {
	results := make([]companyResult, len(targets))
	done := make([]bool, len(targets))

	// Workers never return errors: one company's failure must not cancel
	// the others through the group context.
	var g errgroup.Group
	g.SetLimit(o.opts.Concurrency)
	for i, c := range targets {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			results[i] = o.processCompany(ctx, c, log)
			done[i] = true
			return nil
		})
	}
	_ = g.Wait()

	out := results[:0]
	for i := range results {
		if done[i] {
			out = append(out, results[i])
		}
	}
	return out
}

// processCompany runs one company's pipeline. It never returns an error:
// failures are recorded in the result and the company is SKIPPED.
func (o *Orchestrator) processCompany(ctx context.Context, c model.CompanyTarget, runLog *zap.Logger) companyResult {
	log := runLog.With(zap.String("company", c.Name))
	tr := crawlstate.NewTracker(c.Name)
	var res companyResult

	advance := func(next crawlstate.State) {
		if err := tr.Advance(next); err != nil {
			log.DPanic("invalid crawl state transition", zap.Error(err))
		}
	}
	skip := func(stage model.Stage, err error) companyResult {
		from := tr.State()
		tr.Skip()
		res.stats.AddError(c.Name, &model.StageError{Stage: stage, Err: err})
		res.state = tr.State()
		log.Warn("company skipped",
			zap.String("stage", string(stage)),
			zap.String("from_state", string(from)),
			zap.Error(err))
		return res
	}

	companyID, err := o.deps.Persister.ResolveCompany(ctx, c)
	if err != nil {
		return skip(model.StageResolve, err)
	}

	// ── Fetch ──────────────────────────────────────────
	advance(crawlstate.StateFetching)
	if o.deps.Robots != nil {
		if err := o.deps.Robots.Check(ctx, c.CareersURL); err != nil {
			return skip(model.StageRobots, err)
		}
	}
	fetcher, err := o.deps.Fetchers.For(c.Render)
	if err != nil {
		return skip(model.StageFetch, err)
	}
	if err := o.limiter.Wait(ctx, c.CareersURL); err != nil {
		return skip(model.StageFetch, err)
	}
	html, err := fetcher.Fetch(ctx, c.CareersURL)
	if err != nil {
		return skip(model.StageFetch, err)
	}

	// ── Extract ────────────────────────────────────────
	advance(crawlstate.StateExtracting)
	postings, err := o.deps.Extractor.Extract(c.CareersURL, html)
	if err != nil {
		return skip(model.StageExtract, err)
	}
	res.stats.JobsFound += len(postings)

	// ── Classify ───────────────────────────────────────
	advance(crawlstate.StateClassifying)
	accepted := make([]model.ClassifiedPosting, 0, len(postings))
	for _, p := range postings {
		cp := model.ClassifiedPosting{ExtractedPosting: p, IsInternship: IsInternship(p.Title, p.Description)}
		if !cp.IsInternship {
			res.stats.JobsRejected++
			log.Debug("posting rejected by internship rule", zap.String("title", p.Title))
			continue
		}
		accepted = append(accepted, cp)
	}

	// ── Persist ────────────────────────────────────────
	advance(crawlstate.StatePersisting)
	for _, cp := range accepted {
		if err := o.deps.Persister.Persist(ctx, companyID, cp, &res.stats); err != nil {
			res.stats.AddError(c.Name, &model.StageError{Stage: model.StagePersist, Err: fmt.Errorf("%q: %w", cp.Title, err)})
		}
	}

	advance(crawlstate.StateDone)
	res.stats.CompaniesProcessed = 1
	res.state = tr.State()
	log.Info("company done",
		zap.Int("found", res.stats.JobsFound),
		zap.Int("accepted", len(accepted)),
		zap.Int("added", res.stats.JobsAdded),
		zap.Int("skipped", res.stats.JobsSkipped),
		zap.Int("rejected", res.stats.JobsRejected))
	return res
}

// report logs the summary and hands the record to the run logs and metrics.
// Sink failures are logged and never change the run's outcome.
func (o *Orchestrator) report(ctx context.Context, log *zap.Logger, r model.RunRecord, state crawlstate.RunState, skipped int) {
	took := r.FinishedAt.Sub(r.StartedAt)
	log.Info("run complete",
		zap.String("state", string(state)),
		zap.String("status", r.Status),
		zap.Int("companies_processed", r.CompaniesProcessed),
		zap.Int("companies_skipped", skipped),
		zap.Int("jobs_found", r.JobsFound),
		zap.Int("jobs_added", r.JobsAdded),
		zap.Int("jobs_skipped", r.JobsSkipped),
		zap.Int("jobs_rejected", r.JobsRejected),
		zap.Duration("took", took))
	for _, e := range r.Errors {
		log.Info("run error", zap.String("company", e.Company), zap.String("stage", string(e.Stage)), zap.String("message", e.Message))
	}

	sinkCtx := context.WithoutCancel(ctx)
	for _, rl := range o.deps.RunLogs {
		if err := rl.AppendRun(sinkCtx, r); err != nil {
			log.Warn("append run log failed", zap.Error(err))
		}
	}
	if o.deps.Observer != nil {
		o.deps.Observer.ObserveRun(r.RunStatistics, skipped, took)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
