package publish

import (
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Merge strategies accepted by gh pr merge.
const (
	MergeSquash = "squash"
	MergeMerge  = "merge"
	MergeRebase = "rebase"
)

// WorkflowConfig parameterizes one orchestrator. It is passed explicitly;
// nothing is read from globals.
type WorkflowConfig struct {
	RepoDir       string
	DocumentPath  string
	ArchiveDir    string
	Remote        string
	BaseBranch    string
	BranchPrefix  string
	CommitMessage string
	// RequestTitle is a format string receiving the run date (YYYY-MM-DD).
	RequestTitleFormat string
	RequestBody        string
	MergeStrategy      string
	GitBin             string
	GHBin              string
}

// DefaultWorkflowConfig mirrors the defaults of the CLI configuration.
func DefaultWorkflowConfig() WorkflowConfig {
	return WorkflowConfig{
		RepoDir:            ".",
		DocumentPath:       "README.md",
		ArchiveDir:         "archive",
		Remote:             "origin",
		BaseBranch:         "main",
		BranchPrefix:       "content-update",
		CommitMessage:      "Update README with new content",
		RequestTitleFormat: "Automated README update for %s",
		RequestBody:        "This is an automated update of the README content.",
		MergeStrategy:      MergeSquash,
		GitBin:             "git",
		GHBin:              "gh",
	}
}

// withDefaults fills empty fields from DefaultWorkflowConfig.
func (c WorkflowConfig) withDefaults() WorkflowConfig {
	d := DefaultWorkflowConfig()
	fill := func(v *string, def string) {
		if *v == "" {
			*v = def
		}
	}
	fill(&c.RepoDir, d.RepoDir)
	fill(&c.DocumentPath, d.DocumentPath)
	fill(&c.ArchiveDir, d.ArchiveDir)
	fill(&c.Remote, d.Remote)
	fill(&c.BaseBranch, d.BaseBranch)
	fill(&c.BranchPrefix, d.BranchPrefix)
	fill(&c.CommitMessage, d.CommitMessage)
	fill(&c.RequestTitleFormat, d.RequestTitleFormat)
	fill(&c.RequestBody, d.RequestBody)
	fill(&c.MergeStrategy, d.MergeStrategy)
	fill(&c.GitBin, d.GitBin)
	fill(&c.GHBin, d.GHBin)
	return c
}

// Validate validates the workflow configuration.
func (c *WorkflowConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.DocumentPath, validation.Required),
		validation.Field(&c.ArchiveDir, validation.Required),
		validation.Field(&c.Remote, validation.Required, validation.By(noLeadingDash)),
		validation.Field(&c.BaseBranch, validation.Required, validation.By(noLeadingDash)),
		validation.Field(&c.BranchPrefix, validation.Required, validation.By(noLeadingDash)),
		validation.Field(&c.CommitMessage, validation.Required),
		validation.Field(&c.MergeStrategy, validation.Required, validation.In(MergeSquash, MergeMerge, MergeRebase)),
	)
}

// noLeadingDash keeps ref-like values from being read as command flags.
func noLeadingDash(v any) error {
	if s, _ := v.(string); strings.HasPrefix(s, "-") {
		return fmt.Errorf("must not start with '-'")
	}
	return nil
}

// BranchName returns the run-scoped branch for a run started at now.
func (c WorkflowConfig) BranchName(now time.Time) string {
	return c.BranchPrefix + "-" + now.Format("20060102150405")
}

// RequestTitle returns the pull request title for a run started at now.
func (c WorkflowConfig) RequestTitle(now time.Time) string {
	if !strings.Contains(c.RequestTitleFormat, "%s") {
		return c.RequestTitleFormat
	}
	return fmt.Sprintf(c.RequestTitleFormat, now.Format("2006-01-02"))
}
