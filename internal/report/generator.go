package report

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"sentinel-cli/internal/api"
)

// Fetcher performs one domain lookup. *api.Client satisfies it.
type Fetcher interface {
	LookupDomain(ctx context.Context, domain string) (*api.Document, error)
}

type Mode int

const (
	ModeTable Mode = iota
	ModeJSON
)

type Request struct {
	Domain   string
	Sections Sections
	Mode     Mode

	// Retries is the total number of attempts; values below one mean one.
	Retries    int
	RetryDelay time.Duration
}

type State int

const (
	StateAttempting State = iota
	StatePartialFailure
	StateSuccess
	StateExhaustedRetries
	// StateAborted means a fetch failed; it is never retried.
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateAttempting:
		return "attempting"
	case StatePartialFailure:
		return "partial-failure"
	case StateSuccess:
		return "success"
	case StateExhaustedRetries:
		return "exhausted-retries"
	case StateAborted:
		return "aborted"
	}
	return "unknown"
}

// Outcome summarises a Run. Failed holds the sections that still failed on
// the last attempt.
type Outcome struct {
	State    State
	Attempts int
	Failed   []Section
}

type Generator struct {
	Fetcher  Fetcher
	Renderer *Renderer
	Logger   *slog.Logger

	// Sleep waits between attempts. Tests replace it to avoid real delays.
	Sleep func(ctx context.Context, d time.Duration) error
}

func NewGenerator(f Fetcher, r *Renderer, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{Fetcher: f, Renderer: r, Logger: logger, Sleep: sleepContext}
}

// Run performs the lookup. A fetch error aborts immediately and is returned;
// extraction failures are retried up to req.Retries attempts in total, and the
// sections that succeeded on the last attempt are always rendered.
func (g *Generator) Run(ctx context.Context, req Request) (Outcome, error) {
	if req.Mode == ModeJSON {
		return g.runJSON(ctx, req)
	}

	sel := req.Sections.Resolve()
	maxAttempts := max(req.Retries, 1)
	out := Outcome{State: StateAttempting}

	for attempt := 1; ; attempt++ {
		out.Attempts = attempt
		g.Logger.Debug("lookup attempt", "domain", req.Domain, "attempt", attempt, "max", maxAttempts)

		doc, err := g.Fetcher.LookupDomain(ctx, req.Domain)
		if err != nil {
			out.State = StateAborted
			return out, err
		}

		res := Extract(doc, sel)
		out.Failed = res.Failed()
		for _, s := range out.Failed {
			g.Renderer.Warn(s, res.Errors[s])
		}

		switch {
		case len(out.Failed) == 0:
			out.State = StateSuccess
			g.Renderer.Result(res, sel)
			return out, nil
		case attempt >= maxAttempts:
			out.State = StateExhaustedRetries
			g.Renderer.Result(res, sel)
			g.Renderer.Status(fmt.Sprintf("Could not load: %s after %d attempts.", joinSections(out.Failed), attempt))
			return out, nil
		}

		out.State = StatePartialFailure
		g.Logger.Debug("sections failed", "domain", req.Domain, "attempt", attempt, "failed", joinSections(out.Failed))
		g.Renderer.Status(fmt.Sprintf("Attempt %d/%d: some sections failed to load, retrying in %s...",
			attempt, maxAttempts, req.RetryDelay))
		if err := g.Sleep(ctx, req.RetryDelay); err != nil {
			return out, err
		}
	}
}

func (g *Generator) runJSON(ctx context.Context, req Request) (Outcome, error) {
	out := Outcome{State: StateAttempting, Attempts: 1}
	doc, err := g.Fetcher.LookupDomain(ctx, req.Domain)
	if err != nil {
		out.State = StateAborted
		return out, err
	}
	if err := g.Renderer.JSON(doc.Raw); err != nil {
		out.State = StateAborted
		return out, err
	}
	out.State = StateSuccess
	return out, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
