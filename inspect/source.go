// Package inspect reads a student project without running it: file
// existence, file contents, and token or regex presence in source text.
package inspect

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/go-github/v60/github"
	"golang.org/x/oauth2"
)

// Source gives read-only access to a project's files. Implementations never
// fail: a missing or unreadable file is reported as absent.
type Source interface {
	// Name describes where the files come from.
	Name() string
	// Exists reports whether the file is present.
	Exists(path string) bool
	// Read returns the file contents, or false when it cannot be read.
	Read(path string) (string, bool)
}

// FirstExisting returns the first path in paths that exists in src.
func FirstExisting(src Source, paths ...string) (string, bool) {
	for _, p := range paths {
		if src.Exists(p) {
			return p, true
		}
	}
	return "", false
}

// ReadFirst reads the first existing path in paths.
func ReadFirst(src Source, paths ...string) (path, content string, ok bool) {
	for _, p := range paths {
		if c, ok := src.Read(p); ok {
			return p, c, true
		}
	}
	return "", "", false
}

// LocalSource reads files below a directory on disk.
type LocalSource struct {
	Root string
}

// NewLocalSource creates a LocalSource rooted at dir.
func NewLocalSource(dir string) *LocalSource {
	return &LocalSource{Root: dir}
}

func (s *LocalSource) Name() string {
	abs, err := filepath.Abs(s.Root)
	if err != nil {
		return s.Root
	}
	return abs
}

func (s *LocalSource) Exists(path string) bool {
	_, err := os.Stat(filepath.Join(s.Root, filepath.FromSlash(path)))
	return err == nil
}

func (s *LocalSource) Read(path string) (string, bool) {
	data, err := os.ReadFile(filepath.Join(s.Root, filepath.FromSlash(path)))
	if err != nil {
		return "", false
	}
	return string(data), true
}

// GitHubSource reads files from a GitHub repository through the contents API.
// Lookups are cached, so Exists followed by Read costs one request.
type GitHubSource struct {
	client *github.Client
	owner  string
	repo   string
	ref    string
	ctx    context.Context
	logger *slog.Logger
	cache  map[string]*string
}

// ParseRepo splits "owner/name[@ref]".
func ParseRepo(spec string) (owner, repo, ref string, err error) {
	spec = strings.TrimSpace(spec)
	if at := strings.LastIndex(spec, "@"); at >= 0 {
		ref = spec[at+1:]
		spec = spec[:at]
	}
	parts := strings.Split(spec, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", "", fmt.Errorf("invalid repository %q: expected owner/name[@ref]", spec)
	}
	return parts[0], parts[1], ref, nil
}

// NewGitHubSource creates a source for owner/repo at ref (default branch when
// empty). An empty token makes unauthenticated requests.
func NewGitHubSource(ctx context.Context, token, owner, repo, ref string, logger *slog.Logger) *GitHubSource {
	var client *github.Client
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		client = github.NewClient(oauth2.NewClient(ctx, ts))
	} else {
		client = github.NewClient(nil)
	}
	return newGitHubSource(ctx, client, owner, repo, ref, logger)
}

func newGitHubSource(ctx context.Context, client *github.Client, owner, repo, ref string, logger *slog.Logger) *GitHubSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &GitHubSource{
		client: client,
		owner:  owner,
		repo:   repo,
		ref:    ref,
		ctx:    ctx,
		logger: logger,
		cache:  make(map[string]*string),
	}
}

func (s *GitHubSource) Name() string {
	name := fmt.Sprintf("github.com/%s/%s", s.owner, s.repo)
	if s.ref != "" {
		name += "@" + s.ref
	}
	return name
}

func (s *GitHubSource) Exists(path string) bool {
	_, ok := s.Read(path)
	return ok
}

func (s *GitHubSource) Read(path string) (string, bool) {
	if c, seen := s.cache[path]; seen {
		if c == nil {
			return "", false
		}
		return *c, true
	}
	content := s.fetch(path)
	s.cache[path] = content
	if content == nil {
		return "", false
	}
	return *content, true
}

func (s *GitHubSource) fetch(path string) *string {
	var opts *github.RepositoryContentGetOptions
	if s.ref != "" {
		opts = &github.RepositoryContentGetOptions{Ref: s.ref}
	}
	file, _, _, err := s.client.Repositories.GetContents(s.ctx, s.owner, s.repo, path, opts)
	if err != nil {
		s.logger.Debug("github lookup failed", "repo", s.Name(), "path", path, "error", err)
		return nil
	}
	if file == nil {
		// path is a directory
		return nil
	}
	decoded, err := file.GetContent()
	if err != nil {
		s.logger.Debug("github content decode failed", "repo", s.Name(), "path", path, "error", err)
		return nil
	}
	return &decoded
}
