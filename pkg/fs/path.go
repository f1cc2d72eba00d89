package fs

import "strings"

// splitPath breaks an absolute, slash-separated path into its non-empty
// components. "/" and "" both resolve to the root (no components).
func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	parts := strings.Split(trimmed, "/")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parentPath rejoins every component but the last into an absolute path.
func parentPath(parts []string) string {
	if len(parts) <= 1 {
		return "/"
	}
	return "/" + strings.Join(parts[:len(parts)-1], "/")
}

// isUnder reports whether candidate is equal to base or nested under it,
// component-wise — used by rename's "to under from" check.
func isUnder(base, candidate []string) bool {
	if len(candidate) < len(base) {
		return false
	}
	for i, b := range base {
		if candidate[i] != b {
			return false
		}
	}
	return true
}
