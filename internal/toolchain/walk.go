package toolchain

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

const DefaultMaxDepth = 5

// DefaultSearchRoots lists the platform install locations walked when a tool
// is neither cached nor on PATH.
func DefaultSearchRoots() []string {
	var roots []string
	if runtime.GOOS == "windows" {
		roots = append(roots,
			envOr("ProgramFiles", `C:\Program Files`),
			envOr("ProgramFiles(x86)", `C:\Program Files (x86)`),
		)
		if local := os.Getenv("LOCALAPPDATA"); local != "" {
			roots = append(roots, local)
		} else if home, err := os.UserHomeDir(); err == nil {
			roots = append(roots, filepath.Join(home, "AppData", "Local"))
		}
		return roots
	}

	roots = append(roots, "/usr/local", "/opt")
	if home, err := os.UserHomeDir(); err == nil {
		roots = append(roots, filepath.Join(home, ".local"))
	}
	return roots
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

type walkEntry struct {
	dir   string
	depth int
}

// findInTree searches root breadth-first for a regular file named
// executable, never descending more than maxDepth levels below root.
func findInTree(ctx context.Context, root, executable string, maxDepth int) (string, bool) {
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return "", false
	}

	queue := []walkEntry{{dir: root, depth: 0}}
	for len(queue) > 0 {
		if ctx.Err() != nil {
			return "", false
		}
		current := queue[0]
		queue = queue[1:]

		entries, err := os.ReadDir(current.dir)
		if err != nil {
			continue
		}

		for _, entry := range entries {
			full := filepath.Join(current.dir, entry.Name())
			if entry.IsDir() {
				if current.depth < maxDepth {
					queue = append(queue, walkEntry{dir: full, depth: current.depth + 1})
				}
				continue
			}
			if matchesExecutable(entry.Name(), executable) && isRegularFile(full) {
				return full, true
			}
		}
	}
	return "", false
}

func matchesExecutable(name, executable string) bool {
	if runtime.GOOS == "windows" {
		return strings.EqualFold(name, executable)
	}
	return name == executable
}

func isRegularFile(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

