package internal

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/dailynote/internal/publish"
)

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	Repo     RepoConfig        `yaml:"repo"`
	Document DocumentConfig    `yaml:"document"`
	Archive  ArchiveConfig     `yaml:"archive"`
	Git      GitConfig         `yaml:"git"`
	Publish  PublishConfig     `yaml:"publish"`
	Index    IndexConfig       `yaml:"index"`
	Inbox    InboxConfig       `yaml:"inbox"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	for _, v := range []interface{ Validate() error }{
		&c.Repo, &c.Document, &c.Archive, &c.Git, &c.Publish, &c.Inbox,
	} {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
}

// RepoConfig points at the working copy that holds the document.
type RepoConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the repository configuration.
func (c *RepoConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// DocumentConfig holds the document path, relative to the repository.
type DocumentConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the document configuration.
func (c *DocumentConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required, validation.By(relativePath)),
	)
}

// ArchiveConfig holds the archive directory, relative to the repository.
type ArchiveConfig struct {
	Dir string `yaml:"dir"`
}

// Validate validates the archive configuration.
func (c *ArchiveConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Dir, validation.Required, validation.By(relativePath)),
	)
}

// GitConfig holds the version-control and hosting settings of a publish run.
type GitConfig struct {
	Remote        string `yaml:"remote"`
	Base          string `yaml:"base"`
	BranchPrefix  string `yaml:"branch_prefix"`
	CommitMessage string `yaml:"commit_message"`
	PRTitle       string `yaml:"pr_title"`
	PRBody        string `yaml:"pr_body"`
	MergeStrategy string `yaml:"merge_strategy"`
	GitBin        string `yaml:"git_bin"`
	GHBin         string `yaml:"gh_bin"`
}

// Validate validates the git configuration.
func (c *GitConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Remote, validation.Required),
		validation.Field(&c.Base, validation.Required),
		validation.Field(&c.BranchPrefix, validation.Required),
		validation.Field(&c.CommitMessage, validation.Required),
		validation.Field(&c.MergeStrategy, validation.Required,
			validation.In(publish.MergeSquash, publish.MergeMerge, publish.MergeRebase)),
		validation.Field(&c.GitBin, validation.Required),
		validation.Field(&c.GHBin, validation.Required),
	)
}

// PublishConfig bounds a single publish run.
type PublishConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

// Validate validates the publish configuration.
func (c *PublishConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
	)
}

// IndexConfig holds the archive catalog location. An empty path disables
// the catalog.
type IndexConfig struct {
	Path string `yaml:"path"`
}

// InboxConfig configures the watch command.
type InboxConfig struct {
	Path     string        `yaml:"path"`
	Debounce time.Duration `yaml:"debounce"`
}

// Validate validates the inbox configuration.
func (c *InboxConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.Debounce, validation.Min(time.Duration(0))),
	)
}

// Workflow returns the publish workflow derived from the configuration.
func (c *Config) Workflow() publish.WorkflowConfig {
	return publish.WorkflowConfig{
		RepoDir:            c.Repo.Path,
		DocumentPath:       filepath.ToSlash(c.Document.Path),
		ArchiveDir:         filepath.ToSlash(c.Archive.Dir),
		Remote:             c.Git.Remote,
		BaseBranch:         c.Git.Base,
		BranchPrefix:       c.Git.BranchPrefix,
		CommitMessage:      c.Git.CommitMessage,
		RequestTitleFormat: c.Git.PRTitle,
		RequestBody:        c.Git.PRBody,
		MergeStrategy:      c.Git.MergeStrategy,
		GitBin:             c.Git.GitBin,
		GHBin:              c.Git.GHBin,
	}
}

// IndexPath resolves the catalog path against the repository when relative.
func (c *Config) IndexPath() string {
	if c.Index.Path == "" || filepath.IsAbs(c.Index.Path) {
		return c.Index.Path
	}
	return filepath.Join(c.Repo.Path, c.Index.Path)
}

// InboxPath resolves the inbox path against the repository when relative.
func (c *Config) InboxPath() string {
	if filepath.IsAbs(c.Inbox.Path) {
		return c.Inbox.Path
	}
	return filepath.Join(c.Repo.Path, c.Inbox.Path)
}

func relativePath(v any) error {
	p, _ := v.(string)
	if filepath.IsAbs(p) {
		return fmt.Errorf("must be relative to the repository")
	}
	clean := filepath.ToSlash(filepath.Clean(p))
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return fmt.Errorf("must stay inside the repository")
	}
	return nil
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	wf := publish.DefaultWorkflowConfig()
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
		},
		Repo:     RepoConfig{Path: "."},
		Document: DocumentConfig{Path: wf.DocumentPath},
		Archive:  ArchiveConfig{Dir: wf.ArchiveDir},
		Git: GitConfig{
			Remote:        wf.Remote,
			Base:          wf.BaseBranch,
			BranchPrefix:  wf.BranchPrefix,
			CommitMessage: wf.CommitMessage,
			PRTitle:       wf.RequestTitleFormat,
			PRBody:        wf.RequestBody,
			MergeStrategy: wf.MergeStrategy,
			GitBin:        wf.GitBin,
			GHBin:         wf.GHBin,
		},
		Publish: PublishConfig{Timeout: 10 * time.Minute},
		Index:   IndexConfig{Path: ".dailynote/index.db"},
		Inbox: InboxConfig{
			Path:     "inbox.md",
			Debounce: 500 * time.Millisecond,
		},
	}
}
