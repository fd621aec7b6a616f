package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/scipunch/readmefeed/fetcher"
	"github.com/scipunch/readmefeed/filter"
	"github.com/scipunch/readmefeed/history"
	"github.com/scipunch/readmefeed/parser"
	"github.com/scipunch/readmefeed/readme"
)

// ErrTimedOut is returned when the fetch outlives the wait allowance and
// the pipeline is configured to fail on it
var ErrTimedOut = errors.New("feed fetch did not complete within the wait allowance")

// Recorder stores the outcome of a run
type Recorder interface {
	Record(ctx context.Context, run history.Run) error
}

type Options struct {
	FeedURL           string
	ReadmePath        string
	Marker            string
	MaxPosts          int
	WaitTimeout       time.Duration
	FailOnTimeout     bool
	ClearOnFetchError bool   // Write an empty section when the feed can't be fetched
	DryRun            bool   // Print the new document instead of writing it
	HTMLPath          string // Optional HTML preview of the updated document
}

// Pipeline performs one fetch, one parse and one document update
type Pipeline struct {
	opts     Options
	fetcher  fetcher.FeedFetcher
	parser   parser.Parser
	filters  *filter.FilterPipeline
	recorder Recorder
	out      io.Writer
}

// Result describes what a run did
type Result struct {
	RunID    string
	Lines    []string
	Document string
	Updated  bool
	TimedOut bool
	FetchErr error
}

func New(opts Options, f fetcher.FeedFetcher, p parser.Parser, filters *filter.FilterPipeline) *Pipeline {
	if filters == nil {
		filters = filter.NewFilterPipeline(nil, nil)
	}
	return &Pipeline{
		opts:    opts,
		fetcher: f,
		parser:  p,
		filters: filters,
		out:     os.Stdout,
	}
}

// WithHistory records every run with r
func (p *Pipeline) WithHistory(r Recorder) *Pipeline {
	p.recorder = r
	return p
}

// WithOutput redirects dry-run output
func (p *Pipeline) WithOutput(w io.Writer) *Pipeline {
	p.out = w
	return p
}

// Run fetches the feed and rewrites the document, blocking until both are
// done or the wait allowance expires. Feed failures are tolerated according
// to the options; document failures are returned.
func (p *Pipeline) Run(ctx context.Context) (Result, error) {
	res := Result{RunID: uuid.NewString()}
	started := time.Now()
	log := slog.With("run_id", res.RunID)

	waitCtx, cancel := context.WithTimeout(ctx, p.opts.WaitTimeout)
	defer cancel()

	g, gctx := errgroup.WithContext(waitCtx)
	g.Go(func() error {
		return p.fetchAndUpdate(gctx, log, &res)
	})
	err := g.Wait()

	if res.TimedOut {
		log.Warn("feed fetch did not complete in time, document left unchanged",
			"url", p.opts.FeedURL, "wait", p.opts.WaitTimeout)
		if p.opts.FailOnTimeout {
			err = fmt.Errorf("%w after %s", ErrTimedOut, p.opts.WaitTimeout)
		}
	}

	p.record(context.WithoutCancel(ctx), log, res, started, err)
	return res, err
}

func (p *Pipeline) fetchAndUpdate(ctx context.Context, log *slog.Logger, res *Result) error {
	content, err := p.fetcher.Fetch(ctx, p.opts.FeedURL)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			res.TimedOut = true
			return nil
		}
		if ctx.Err() != nil {
			return fmt.Errorf("fetch interrupted with %w", ctx.Err())
		}
		res.FetchErr = err
		if !p.opts.ClearOnFetchError {
			log.Warn("failed to fetch feed, document left unchanged", "url", p.opts.FeedURL, "error", err)
			return nil
		}
		log.Warn("failed to fetch feed, continuing with no posts", "url", p.opts.FeedURL, "error", err)
		content = ""
	}

	posts := p.filters.Apply(p.parser.Parse(content))
	res.Lines = parser.Lines(posts, p.opts.MaxPosts)
	log.Info("feed parsed", "url", p.opts.FeedURL, "valid", len(posts), "posts", len(res.Lines))

	if p.opts.DryRun {
		text, err := readme.Read(p.opts.ReadmePath)
		if err != nil {
			return err
		}
		res.Document = readme.Splice(text, p.opts.Marker, res.Lines)
		if _, err := io.WriteString(p.out, res.Document); err != nil {
			return fmt.Errorf("failed to print document with %w", err)
		}
	} else {
		res.Document, err = readme.Update(p.opts.ReadmePath, p.opts.Marker, res.Lines)
		if err != nil {
			return err
		}
		res.Updated = true
		log.Info("document updated", "path", p.opts.ReadmePath, "posts", len(res.Lines))
	}

	if p.opts.HTMLPath != "" {
		page, err := readme.RenderPage(p.opts.Marker, res.Document)
		if err != nil {
			return err
		}
		if err := readme.WriteAtomic(p.opts.HTMLPath, string(page)); err != nil {
			return err
		}
		log.Info("HTML preview generated", "path", p.opts.HTMLPath)
	}
	return nil
}

func (p *Pipeline) record(ctx context.Context, log *slog.Logger, res Result, started time.Time, err error) {
	if p.recorder == nil {
		return
	}

	run := history.Run{
		ID:         res.RunID,
		StartedAt:  started,
		FinishedAt: time.Now(),
		FeedURL:    p.opts.FeedURL,
		ReadmePath: p.opts.ReadmePath,
		Posts:      len(res.Lines),
		Status:     history.StatusOK,
	}
	switch {
	case err != nil && !res.TimedOut:
		run.Status = history.StatusFailed
		run.Error = err.Error()
	case res.TimedOut:
		run.Status = history.StatusTimeout
	case res.FetchErr != nil:
		run.Status = history.StatusFetchFailed
		run.Error = res.FetchErr.Error()
	case p.opts.DryRun:
		run.Status = history.StatusDryRun
	}

	if err := p.recorder.Record(ctx, run); err != nil {
		log.Warn("failed to record run", "error", err)
	}
}
