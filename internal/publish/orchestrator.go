// Package publish sequences a document update and the version-control steps
// that land it: branch, stage, commit, push, pull request, auto-merge.
//
// The pipeline is linear. The first failing step ends the run; nothing is
// retried and earlier steps are not rolled back, so an operator can resume
// from whatever state the repository and hosting platform were left in.
package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/starford/dailynote/internal/apperr"
	"github.com/starford/dailynote/internal/models"
	"github.com/starford/dailynote/internal/notebook"
	"github.com/starford/dailynote/internal/runner"
)

// Step is one state of the publish pipeline.
type Step int

const (
	StepUpdateDocument Step = iota
	StepCreateBranch
	StepStageChanges
	StepCommit
	StepPush
	StepOpenRequest
	StepAutoMerge
)

// Steps lists the pipeline in execution order.
var Steps = []Step{
	StepUpdateDocument,
	StepCreateBranch,
	StepStageChanges,
	StepCommit,
	StepPush,
	StepOpenRequest,
	StepAutoMerge,
}

var stepNames = map[Step]string{
	StepUpdateDocument: "update-document",
	StepCreateBranch:   "create-branch",
	StepStageChanges:   "stage-changes",
	StepCommit:         "commit",
	StepPush:           "push",
	StepOpenRequest:    "open-request",
	StepAutoMerge:      "auto-merge",
}

func (s Step) String() string {
	if n, ok := stepNames[s]; ok {
		return n
	}
	return fmt.Sprintf("step(%d)", int(s))
}

// State is the orchestrator's terminal or current state.
type State string

const (
	StatePending   State = "pending"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)

// Outcome of a single step.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
)

// StepRecord is the ephemeral trace of one executed step.
type StepRecord struct {
	Step        Step
	Description string
	Outcome     Outcome
	Output      string
}

// Result is the trace of one orchestration run.
type Result struct {
	Branch string
	// Entry is the archive entry created by the update step, if any.
	Entry *models.ArchiveEntry
	Steps []StepRecord
	State State
}

// StepError is the Failed(step, cause) terminal state.
type StepError struct {
	Step Step
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("publish: step %s failed: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// DocumentUpdater performs the UpdateDocument step.
type DocumentUpdater interface {
	UpdateToday(ctx context.Context, content string) (*notebook.UpdateResult, error)
}

// Orchestrator runs the publish pipeline.
type Orchestrator struct {
	cfg     WorkflowConfig
	updater DocumentUpdater
	runner  runner.Runner
	clock   func() time.Time
	logger  *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithClock overrides time.Now for branch names and request titles.
func WithClock(clock func() time.Time) Option {
	return func(o *Orchestrator) {
		o.clock = clock
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// New creates an Orchestrator. cfg is validated here so a bad configuration
// fails before anything touches the repository.
func New(cfg WorkflowConfig, updater DocumentUpdater, r runner.Runner, opts ...Option) (*Orchestrator, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("publish: invalid workflow config: %w", err)
	}
	o := &Orchestrator{
		cfg:     cfg,
		updater: updater,
		runner:  r,
		clock:   time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Run publishes content. The returned Result is non-nil even on failure and
// records every step that executed.
func (o *Orchestrator) Run(ctx context.Context, content string) (*Result, error) {
	res := &Result{State: StatePending}
	if strings.TrimSpace(content) == "" {
		res.State = StateFailed
		return res, &StepError{Step: StepUpdateDocument, Err: apperr.ErrEmptyContent}
	}

	now := o.clock()
	res.Branch = o.cfg.BranchName(now)
	log := o.logger.With(slog.String("branch", res.Branch))

	upd, err := o.updater.UpdateToday(ctx, content)
	if err != nil {
		return o.fail(log, res, StepUpdateDocument, "update "+o.cfg.DocumentPath, "", err)
	}
	res.Entry = upd.Entry
	o.record(log, res, StepUpdateDocument, "update "+o.cfg.DocumentPath, upd.Checksum)

	for _, st := range Steps[1:] {
		cmd := o.command(st, res, now)
		out, err := o.runner.Run(ctx, cmd)
		if err != nil {
			return o.fail(log, res, st, cmd.String(), joinOutput(out), err)
		}
		o.record(log, res, st, cmd.String(), joinOutput(out))
	}

	res.State = StateSucceeded
	log.Info("publish succeeded", slog.Int("steps", len(res.Steps)))
	return res, nil
}

func (o *Orchestrator) record(log *slog.Logger, res *Result, st Step, desc, output string) {
	res.Steps = append(res.Steps, StepRecord{Step: st, Description: desc, Outcome: OutcomeSucceeded, Output: output})
	log.Info("step succeeded", slog.String("step", st.String()), slog.String("action", desc))
}

func (o *Orchestrator) fail(log *slog.Logger, res *Result, st Step, desc, output string, err error) (*Result, error) {
	res.Steps = append(res.Steps, StepRecord{Step: st, Description: desc, Outcome: OutcomeFailed, Output: output})
	res.State = StateFailed

	attrs := []any{slog.String("step", st.String()), slog.String("action", desc), slog.String("error", err.Error())}
	var cmdErr *runner.CommandError
	if errors.As(err, &cmdErr) {
		attrs = append(attrs, slog.Int("exit_code", cmdErr.ExitCode))
	}
	log.Error("step failed", attrs...)
	return res, &StepError{Step: st, Err: err}
}

// command builds the argument list for an external step.
func (o *Orchestrator) command(st Step, res *Result, now time.Time) runner.Command {
	c := o.cfg
	branch := res.Branch
	git := func(args ...string) runner.Command {
		return runner.Command{Name: c.GitBin, Args: args, Dir: c.RepoDir}
	}
	gh := func(args ...string) runner.Command {
		return runner.Command{Name: c.GHBin, Args: args, Dir: c.RepoDir}
	}

	switch st {
	case StepCreateBranch:
		return git("checkout", "-b", branch)
	case StepStageChanges:
		args := []string{"add", "--", c.DocumentPath}
		if res.Entry != nil {
			args = append(args, res.Entry.Path)
		}
		return git(args...)
	case StepCommit:
		return git("commit", "-m", c.CommitMessage)
	case StepPush:
		return git("push", c.Remote, branch)
	case StepOpenRequest:
		return gh("pr", "create",
			"--title", c.RequestTitle(now),
			"--body", c.RequestBody,
			"--base", c.BaseBranch,
			"--head", branch)
	case StepAutoMerge:
		return gh("pr", "merge", branch, "--auto", "--"+c.MergeStrategy)
	}
	panic(fmt.Sprintf("publish: no command for %s", st))
}

func joinOutput(out runner.Output) string {
	switch {
	case out.Stdout == "":
		return out.Stderr
	case out.Stderr == "":
		return out.Stdout
	}
	return out.Stdout + "\n" + out.Stderr
}
