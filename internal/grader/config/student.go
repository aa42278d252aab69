package config

import (
	"context"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// UnknownStudent is used when no name can be detected.
const UnknownStudent = "Unknown student"

// templateFolder is the folder name of the unmodified assignment template;
// it says nothing about who the student is.
const templateFolder = "projeto-3bimestre"

// GitUserName returns `git config user.name` run in dir, or "".
func GitUserName(dir string) string {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	cmd := exec.CommandContext(ctx, "git", "config", "user.name")
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

// DetectStudent picks the student name: the git user name, then the project
// folder name with dashes and underscores as spaces, then UnknownStudent.
// gitName may be nil.
func DetectStudent(folder string, gitName func() string) string {
	if gitName != nil {
		if name := gitName(); name != "" && name != "unknown" {
			return name
		}
	}
	if name := FolderStudent(folder); name != "" {
		return name
	}
	return UnknownStudent
}

// FolderStudent derives a name from a folder path, or "" when the folder
// carries no name.
func FolderStudent(folder string) string {
	if folder == "" {
		return ""
	}
	if abs, err := filepath.Abs(folder); err == nil {
		folder = abs
	}
	base := filepath.Base(folder)
	switch base {
	case "", ".", string(filepath.Separator), templateFolder:
		return ""
	}
	return strings.TrimSpace(strings.NewReplacer("-", " ", "_", " ").Replace(base))
}
