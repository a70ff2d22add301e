package fsutil

import (
	"fmt"
	"path/filepath"
	"strings"
)

// CanonicalizeUnder resolves candidate (possibly relative, possibly
// containing "..") against root and reports whether the result lies inside
// root. It never touches the filesystem; resolution is purely lexical,
// which matches the spec's requirement to reject unsafe output_files
// templates before any directory is created.
func CanonicalizeUnder(root, candidate string) (resolved string, ok bool, err error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", false, fmt.Errorf("fsutil: resolve root %s: %w", root, err)
	}
	absRoot = filepath.Clean(absRoot)

	var absCandidate string
	if filepath.IsAbs(candidate) {
		absCandidate = filepath.Clean(candidate)
	} else {
		absCandidate = filepath.Clean(filepath.Join(absRoot, candidate))
	}

	if absCandidate == absRoot {
		return absCandidate, true, nil
	}

	prefix := absRoot + string(filepath.Separator)
	if !strings.HasPrefix(absCandidate, prefix) {
		return absCandidate, false, nil
	}
	return absCandidate, true, nil
}

// IsPrefixPath reports whether candidate lies within root, trailing-slash
// safe, using canonicalized absolute paths. Used by the workspace guard
// (§4.7) to check shared_workspaces membership.
func IsPrefixPath(root, candidate string) (bool, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return false, err
	}
	absCandidate, err := filepath.Abs(candidate)
	if err != nil {
		return false, err
	}
	absRoot = filepath.Clean(absRoot)
	absCandidate = filepath.Clean(absCandidate)

	if absCandidate == absRoot {
		return true, nil
	}
	return strings.HasPrefix(absCandidate, absRoot+string(filepath.Separator)), nil
}
