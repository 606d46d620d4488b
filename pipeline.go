package nxgraph

import (
	"context"
	"errors"
	"time"

	"github.com/hupe1980/nxgraph/blobstore"
	"github.com/hupe1980/nxgraph/dataio"
	"github.com/hupe1980/nxgraph/filter"
	"github.com/hupe1980/nxgraph/graph"
	"github.com/hupe1980/nxgraph/internal/progress"
	"github.com/hupe1980/nxgraph/internal/resource"
	"github.com/hupe1980/nxgraph/result"
)

// Step is one filter invocation.
type Step struct {
	Filter filter.Filter
	Args   filter.Arguments
}

// Pipeline runs filters in order against a data structure.
//
// Execute preflights every step first and only runs when all of them
// pass. Execution stops at the first failing step; the data structure
// keeps the changes of the steps before it.
type Pipeline struct {
	steps      []Step
	opts       options
	controller *resource.Controller
	write      dataio.WriteOptions
}

// NewPipeline creates an empty pipeline.
func NewPipeline(opts ...Option) (*Pipeline, error) {
	o := options{
		logger:           NoopLogger(),
		metricsCollector: NoopMetricsCollector{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.config == nil {
		o.config = DefaultConfig()
	}
	if err := o.config.Validate(); err != nil {
		return nil, err
	}
	write, err := o.config.WriteOptions()
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		opts:       o,
		controller: resource.NewController(o.config.resourceConfig()),
		write:      write,
	}, nil
}

// Append adds a step and returns p for chaining.
func (p *Pipeline) Append(f filter.Filter, args filter.Arguments) *Pipeline {
	p.steps = append(p.steps, Step{Filter: f, Args: args.Clone()})
	return p
}

// Steps returns the steps in order.
func (p *Pipeline) Steps() []Step {
	out := make([]Step, len(p.steps))
	copy(out, p.steps)
	return out
}

// NewDataStructure returns an empty data structure whose allocations are
// charged to the pipeline's memory budget.
func (p *Pipeline) NewDataStructure() *graph.DataStructure {
	return graph.New(graph.WithMemoryAcquirer(p.controller))
}

// StepReport holds the diagnostics of one step.
type StepReport struct {
	Step     int
	Filter   string
	Errors   result.Errors
	Warnings []result.Warning
}

// Report collects the step reports of a preflight or execution.
type Report struct {
	Steps []StepReport
}

// Valid reports whether no step failed.
func (r *Report) Valid() bool {
	for _, s := range r.Steps {
		if len(s.Errors) > 0 {
			return false
		}
	}
	return true
}

// Warnings returns the warnings of all steps in order.
func (r *Report) Warnings() []result.Warning {
	var out []result.Warning
	for _, s := range r.Steps {
		out = append(out, s.Warnings...)
	}
	return out
}

// Err joins a StepError for every failed step, or returns nil.
func (r *Report) Err(phase error) error {
	var errs []error
	for _, s := range r.Steps {
		if len(s.Errors) > 0 {
			errs = append(errs, &StepError{Step: s.Step, Filter: s.Filter, Errors: s.Errors, phase: phase})
		}
	}
	return errors.Join(errs...)
}

// Preflight runs every step's preflight on a structural copy of ds and
// reports the errors and warnings of all steps. ds is not modified.
func (p *Pipeline) Preflight(ds *graph.DataStructure) *Report {
	ctx := context.Background()
	work := ds.StructuralCopy()
	rep := &Report{Steps: make([]StepReport, 0, len(p.steps))}
	for i, step := range p.steps {
		name := step.Filter.Name()
		log := p.opts.logger.WithStep(i).WithFilter(name)

		start := time.Now()
		res := filter.RunPreflight(step.Filter, work, step.Args)
		p.opts.metricsCollector.RecordPreflight(name, time.Since(start), res.Err())
		log.LogPreflight(ctx, res.Errors, res.Warnings)

		rep.Steps = append(rep.Steps, StepReport{Step: i, Filter: name, Errors: res.Errors, Warnings: res.Warnings})
	}
	return rep
}

// Execute preflights the pipeline and, if every step passed, executes the
// steps in order against ds. A set cancel flag stops execution between
// and inside steps without an error. The returned report covers the
// preflight when it failed and the executed steps otherwise.
func (p *Pipeline) Execute(ctx context.Context, ds *graph.DataStructure, cancel *filter.CancelFlag) (*Report, error) {
	if pre := p.Preflight(ds); !pre.Valid() {
		err := pre.Err(ErrPreflightFailed)
		p.opts.logger.ErrorContext(ctx, "pipeline preflight failed", "error", err)
		return pre, err
	}

	ctx = resource.NewContext(ctx, p.controller)
	rep := &Report{Steps: make([]StepReport, 0, len(p.steps))}
	for i, step := range p.steps {
		if cancel.Canceled() {
			p.opts.logger.InfoContext(ctx, "pipeline canceled", "step", i)
			return rep, nil
		}
		name := step.Filter.Name()
		log := p.opts.logger.WithStep(i).WithFilter(name)
		log.DebugContext(ctx, "execute started")

		start := time.Now()
		res := filter.RunExecute(ctx, step.Filter, ds, step.Args, p.messages(ctx, log), cancel)
		d := time.Since(start)
		p.opts.metricsCollector.RecordExecute(name, d, res.Err())
		log.LogExecute(ctx, res.Errors, res.Warnings, d)

		rep.Steps = append(rep.Steps, StepReport{Step: i, Filter: name, Errors: res.Errors, Warnings: res.Warnings})
		if !res.Valid() {
			return rep, &StepError{Step: i, Filter: name, Errors: res.Errors, phase: ErrExecuteFailed}
		}
	}
	p.opts.logger.InfoContext(ctx, "pipeline completed", "steps", len(p.steps))
	return rep, nil
}

// messages forwards filter messages to the logger and to the user
// handler, throttling progress messages.
func (p *Pipeline) messages(ctx context.Context, log *Logger) filter.MessageHandler {
	user := p.opts.messages
	var rep *progress.Reporter
	if user != nil {
		rep = progress.New(func(text string) {
			user(filter.Message{Type: filter.MessageProgress, Text: text})
		}, p.opts.config.Progress.Interval)
	}
	return func(m filter.Message) {
		log.LogMessage(ctx, m)
		if user == nil {
			return
		}
		if m.Type == filter.MessageProgress {
			rep.Report("%s", m.Text)
			return
		}
		user(m)
	}
}

// Save writes ds as container name to store with the configured storage
// settings.
func (p *Pipeline) Save(ctx context.Context, store blobstore.BlobStore, name string, ds *graph.DataStructure) (int64, error) {
	opts := p.write
	opts.Controller = p.controller
	start := time.Now()
	n, err := dataio.Save(ctx, store, name, ds, opts)
	p.opts.metricsCollector.RecordSave(n, time.Since(start), err)
	p.opts.logger.LogSave(ctx, name, n, err)
	return n, err
}
