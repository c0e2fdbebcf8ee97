package publish

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/starford/dailynote/internal/apperr"
	"github.com/starford/dailynote/internal/archive"
	"github.com/starford/dailynote/internal/notebook"
	"github.com/starford/dailynote/internal/runner"
	"github.com/starford/dailynote/internal/storage"
	"github.com/starford/dailynote/internal/testutil"
)

var runAt = time.Date(2024, 6, 1, 12, 30, 45, 0, time.UTC)

// fakeRunner records commands and fails the first one whose rendered form
// starts with failPrefix.
type fakeRunner struct {
	calls      []runner.Command
	failPrefix string
	failCode   int
}

func (f *fakeRunner) Run(_ context.Context, cmd runner.Command) (runner.Output, error) {
	f.calls = append(f.calls, cmd)
	if f.failPrefix != "" && strings.HasPrefix(cmd.String(), f.failPrefix) {
		return runner.Output{Stderr: "boom"}, &runner.CommandError{Command: cmd, ExitCode: f.failCode, Stderr: "boom"}
	}
	return runner.Output{Stdout: "ok"}, nil
}

type countingUpdater struct {
	calls int
	err   error
	next  DocumentUpdater
}

func (u *countingUpdater) UpdateToday(ctx context.Context, content string) (*notebook.UpdateResult, error) {
	u.calls++
	if u.err != nil {
		return nil, u.err
	}
	return u.next.UpdateToday(ctx, content)
}

func setup(t *testing.T, readme string, r runner.Runner) (*Orchestrator, *countingUpdater, *storage.FS) {
	t.Helper()
	dir, store := testutil.TestRepo(t, readme)
	a := archive.NewArchiver(store, "archive", func() time.Time { return runAt })
	svc := notebook.NewService(store, a, nil, "README.md", testutil.Logger())
	upd := &countingUpdater{next: svc}

	cfg := DefaultWorkflowConfig()
	cfg.RepoDir = dir
	o, err := New(cfg, upd, r, WithClock(func() time.Time { return runAt }), WithLogger(testutil.Logger()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return o, upd, store
}

func args(cmds []runner.Command) [][]string {
	out := make([][]string, 0, len(cmds))
	for _, c := range cmds {
		out = append(out, append([]string{c.Name}, c.Args...))
	}
	return out
}

func TestRun_Success(t *testing.T) {
	r := &fakeRunner{}
	o, _, store := setup(t, "# Today's Content\n\nhello\n\n# Archive\n", r)

	res, err := o.Run(context.Background(), "new content")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.State != StateSucceeded {
		t.Errorf("state = %s", res.State)
	}
	if res.Branch != "content-update-20240601123045" {
		t.Errorf("branch = %s", res.Branch)
	}

	want := [][]string{
		{"git", "checkout", "-b", "content-update-20240601123045"},
		{"git", "add", "--", "README.md", "archive/2024-06-01_12-30-45.md"},
		{"git", "commit", "-m", "Update README with new content"},
		{"git", "push", "origin", "content-update-20240601123045"},
		{"gh", "pr", "create",
			"--title", "Automated README update for 2024-06-01",
			"--body", "This is an automated update of the README content.",
			"--base", "main",
			"--head", "content-update-20240601123045"},
		{"gh", "pr", "merge", "content-update-20240601123045", "--auto", "--squash"},
	}
	if got := args(r.calls); !reflect.DeepEqual(got, want) {
		t.Errorf("commands =\n%v\nwant\n%v", got, want)
	}
	for _, c := range r.calls {
		if c.Dir == "" {
			t.Errorf("%s: no working directory", c)
		}
	}

	if len(res.Steps) != len(Steps) {
		t.Fatalf("steps = %d, want %d", len(res.Steps), len(Steps))
	}
	for i, rec := range res.Steps {
		if rec.Step != Steps[i] || rec.Outcome != OutcomeSucceeded {
			t.Errorf("steps[%d] = %+v", i, rec)
		}
	}

	data, _ := store.Read("README.md")
	if !strings.Contains(string(data), "new content") {
		t.Errorf("README not updated: %q", data)
	}
}

func TestRun_StagesOnlyDocumentWhenNothingArchived(t *testing.T) {
	r := &fakeRunner{}
	o, _, _ := setup(t, "# Today's Content\n", r)

	res, err := o.Run(context.Background(), "first")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Entry != nil {
		t.Errorf("entry = %+v, want nil", res.Entry)
	}
	want := []string{"git", "add", "--", "README.md"}
	if got := args(r.calls)[1]; !reflect.DeepEqual(got, want) {
		t.Errorf("stage = %v, want %v", got, want)
	}
}

func TestRun_PushFailureStopsPipeline(t *testing.T) {
	r := &fakeRunner{failPrefix: "git push", failCode: 128}
	o, _, _ := setup(t, "# Today's Content\n\nhello\n", r)

	res, err := o.Run(context.Background(), "content")
	var stepErr *StepError
	if !errors.As(err, &stepErr) {
		t.Fatalf("err = %v, want StepError", err)
	}
	if stepErr.Step != StepPush {
		t.Errorf("failed step = %s, want push", stepErr.Step)
	}
	var cmdErr *runner.CommandError
	if !errors.As(err, &cmdErr) || cmdErr.ExitCode != 128 {
		t.Errorf("command error = %v", cmdErr)
	}

	if res.State != StateFailed {
		t.Errorf("state = %s", res.State)
	}
	for _, c := range r.calls {
		if c.Name == "gh" {
			t.Errorf("ran %s after failed push", c)
		}
	}
	last := res.Steps[len(res.Steps)-1]
	if last.Step != StepPush || last.Outcome != OutcomeFailed || last.Output != "boom" {
		t.Errorf("last record = %+v", last)
	}
}

func TestRun_EmptyContentHasNoSideEffects(t *testing.T) {
	readme := "# Today's Content\n\nkeep\n"
	r := &fakeRunner{}
	o, upd, store := setup(t, readme, r)

	_, err := o.Run(context.Background(), "  \n ")
	if !errors.Is(err, apperr.ErrEmptyContent) {
		t.Fatalf("err = %v, want ErrEmptyContent", err)
	}
	var stepErr *StepError
	if !errors.As(err, &stepErr) || stepErr.Step != StepUpdateDocument {
		t.Errorf("err = %v, want update-document step", err)
	}
	if upd.calls != 0 || len(r.calls) != 0 {
		t.Errorf("updater calls = %d, runner calls = %d", upd.calls, len(r.calls))
	}
	data, _ := store.Read("README.md")
	if string(data) != readme {
		t.Errorf("README changed: %q", data)
	}
}

func TestRun_UpdateFailureRunsNoCommands(t *testing.T) {
	r := &fakeRunner{}
	o, upd, _ := setup(t, "# Today's Content\n", r)
	upd.err = apperr.ErrMalformedDocument

	res, err := o.Run(context.Background(), "content")
	if !errors.Is(err, apperr.ErrMalformedDocument) {
		t.Fatalf("err = %v", err)
	}
	if len(r.calls) != 0 {
		t.Errorf("runner calls = %d, want 0", len(r.calls))
	}
	if len(res.Steps) != 1 || res.Steps[0].Outcome != OutcomeFailed {
		t.Errorf("steps = %+v", res.Steps)
	}
}

func TestNew_RejectsBadConfig(t *testing.T) {
	cfg := DefaultWorkflowConfig()
	cfg.MergeStrategy = "fast-forward"
	if _, err := New(cfg, &countingUpdater{}, &fakeRunner{}); err == nil {
		t.Error("expected error for unknown merge strategy")
	}

	cfg = DefaultWorkflowConfig()
	cfg.Remote = "--force"
	if _, err := New(cfg, &countingUpdater{}, &fakeRunner{}); err == nil {
		t.Error("expected error for flag-like remote")
	}
}

func TestWorkflowConfig_Names(t *testing.T) {
	c := DefaultWorkflowConfig()
	if got := c.BranchName(runAt); got != "content-update-20240601123045" {
		t.Errorf("BranchName = %s", got)
	}
	if got := c.RequestTitle(runAt); got != "Automated README update for 2024-06-01" {
		t.Errorf("RequestTitle = %s", got)
	}
	c.RequestTitleFormat = "Daily note"
	if got := c.RequestTitle(runAt); got != "Daily note" {
		t.Errorf("RequestTitle = %s", got)
	}
}

func TestStepString(t *testing.T) {
	if StepOpenRequest.String() != "open-request" {
		t.Errorf("got %s", StepOpenRequest)
	}
	if Step(99).String() != "step(99)" {
		t.Errorf("got %s", Step(99))
	}
}
