package safety

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cmake-clean/internal/config"
)

var (
	ErrInvalidPath   = errors.New("invalid path")
	ErrProtectedPath = errors.New("protected path")
	ErrOutsideRoot   = errors.New("outside target root")
	ErrTraversal     = errors.New("path traversal detected")
	ErrPrunedPath    = errors.New("path inside pruned directory")
	ErrRootRemoval   = errors.New("target root removal not allowed")
)

// ViolationError wraps a safety sentinel with the offending path
type ViolationError struct {
	Path string
	Err  error
}

func (e *ViolationError) Error() string {
	return fmt.Sprintf("safety violation: %s: %v", e.Path, e.Err)
}

func (e *ViolationError) Unwrap() error { return e.Err }

// IsViolation reports whether err carries a ViolationError
func IsViolation(err error) bool {
	var v *ViolationError
	return errors.As(err, &v)
}

// Validator enforces the safety contract for all delete operations under one target root
type Validator struct {
	Root      string
	AllowRoot bool
	rules     config.Rules
}

// NewValidator creates a validator for the given root. The root itself may
// only be deleted when the rules allow removing an empty root.
func NewValidator(root string, rules config.Rules) (*Validator, error) {
	if strings.TrimSpace(root) == "" {
		return nil, &ViolationError{Path: root, Err: ErrInvalidPath}
	}
	return &Validator{
		Root:      filepath.Clean(root),
		AllowRoot: rules.RemoveEmptyRoot(),
		rules:     rules,
	}, nil
}

// ValidateDeleteTarget is the single-source-of-truth for delete authorization
// Returns *ViolationError on safety violation
func (v *Validator) ValidateDeleteTarget(path string) error {
	if strings.TrimSpace(path) == "" {
		return &ViolationError{Path: path, Err: ErrInvalidPath}
	}

	// 1. Detect path traversal below the root; the root itself may be
	// given as "../build"
	if DetectTraversal(v.belowRoot(path)) {
		return &ViolationError{Path: path, Err: ErrTraversal}
	}

	// 2. Ensure within the target root
	rel, ok := relativeTo(v.Root, filepath.Clean(path))
	if !ok {
		return &ViolationError{Path: path, Err: ErrOutsideRoot}
	}

	// 3. Root itself
	if rel == "." {
		if !v.AllowRoot {
			return &ViolationError{Path: path, Err: ErrRootRemoval}
		}
		return nil
	}

	// 4. Never touch anything named like, or inside, a pruned directory
	for _, comp := range strings.Split(rel, string(os.PathSeparator)) {
		if v.rules.IsPruned(comp) {
			return &ViolationError{Path: path, Err: ErrPrunedPath}
		}
	}

	return nil
}

// belowRoot strips the root prefix from a raw path when present
func (v *Validator) belowRoot(path string) string {
	prefix := v.Root + string(os.PathSeparator)
	if v.Root == string(os.PathSeparator) {
		prefix = v.Root
	}
	if v.Root != "." && strings.HasPrefix(path, prefix) {
		return path[len(prefix):]
	}
	return path
}

// ValidateRoot refuses to sweep system-critical directories
func ValidateRoot(root string, extraProtected []string) error {
	p, err := NormalizePath(root)
	if err != nil {
		return &ViolationError{Path: root, Err: err}
	}
	if IsProtectedRoot(p, defaultProtected(extraProtected)) {
		return &ViolationError{Path: root, Err: ErrProtectedPath}
	}
	return nil
}

// NormalizePath converts path to absolute, cleaned form
func NormalizePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", ErrInvalidPath
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", ErrInvalidPath
	}
	return filepath.Clean(abs), nil
}

// DetectTraversal blocks any ".." segment in raw input
func DetectTraversal(raw string) bool {
	parts := strings.Split(filepath.ToSlash(raw), "/")
	for _, p := range parts {
		if p == ".." {
			return true
		}
	}
	return false
}

// IsProtectedRoot checks for an exact match against protected system paths.
// Build trees below them (e.g. /usr/src/project) are allowed.
func IsProtectedRoot(path string, protected []string) bool {
	p := filepath.Clean(path)

	// Hard block: "/" exact
	if p == string(os.PathSeparator) {
		return true
	}

	for _, prot := range protected {
		if prot == "" {
			continue
		}
		if p == filepath.Clean(prot) {
			return true
		}
	}
	return false
}

// relativeTo returns path relative to root, and false when path escapes root
func relativeTo(root, path string) (string, bool) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return "", false
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return "", false
	}
	return rel, true
}

// defaultProtected returns the base set of protected paths plus any extras
func defaultProtected(extra []string) []string {
	base := []string{
		"/",
		"/etc",
		"/bin",
		"/usr",
		"/boot",
		"/lib",
		"/lib64",
		"/sbin",
		"/var",
		"/home",
	}
	return append(base, extra...)
}
