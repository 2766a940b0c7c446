// Package security keeps user-supplied paths inside a workspace directory.
package security

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ValidatePathWithinBoundary ensures that targetPath is within or equal to boundaryPath.
// This prevents path traversal where a build file path escapes the workspace using "../".
//
// Example:
//
//	boundary := "/home/me/site"
//	target := "/home/me/site/build.yaml"          // valid
//	target := "/home/me/site/../../../etc/passwd" // invalid
func ValidatePathWithinBoundary(boundaryPath, targetPath string) error {
	_, err := resolve(boundaryPath, targetPath, false)
	return err
}

// ValidatePathsWithinBoundary validates multiple target paths against a single boundary.
// Returns the first validation error encountered.
func ValidatePathsWithinBoundary(boundaryPath string, targetPaths ...string) error {
	for _, target := range targetPaths {
		if err := ValidatePathWithinBoundary(boundaryPath, target); err != nil {
			return err
		}
	}
	return nil
}

// ResolveWithinBoundary returns the absolute form of targetPath, where a relative
// targetPath is taken relative to boundaryPath, or an error if it escapes boundaryPath.
func ResolveWithinBoundary(boundaryPath, targetPath string) (string, error) {
	return resolve(boundaryPath, targetPath, true)
}

// Guard returns a resolver bound to boundaryPath, suitable as an HTTP path guard.
func Guard(boundaryPath string) func(string) (string, error) {
	return func(targetPath string) (string, error) {
		return ResolveWithinBoundary(boundaryPath, targetPath)
	}
}

func resolve(boundaryPath, targetPath string, relativeToBoundary bool) (string, error) {
	absBoundary, err := filepath.Abs(boundaryPath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve boundary path %q: %w", boundaryPath, err)
	}

	if relativeToBoundary && !filepath.IsAbs(targetPath) {
		targetPath = filepath.Join(absBoundary, targetPath)
	}
	absTarget, err := filepath.Abs(targetPath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve target path %q: %w", targetPath, err)
	}

	rel, err := filepath.Rel(absBoundary, absTarget)
	if err != nil {
		return "", fmt.Errorf("invalid path relationship between %q and %q: %w", absBoundary, absTarget, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path traversal detected: %q escapes boundary %q", targetPath, boundaryPath)
	}

	return absTarget, nil
}
