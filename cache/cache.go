package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
)

const cacheRoot = "cache/pages"

// pagePath returns the cache file for a public route.
func pagePath(route string) string {
	hash := xxhash.Sum64String(route)
	return filepath.Join(cacheRoot, fmt.Sprintf("%016x.html", hash))
}

func ensureCacheDir() error {
	return os.MkdirAll(cacheRoot, 0755)
}

// Write stores the rendered HTML of a route.
func Write(route, html string) error {
	if err := ensureCacheDir(); err != nil {
		return err
	}
	return os.WriteFile(pagePath(route), []byte(html), 0644)
}

// Read returns the cached HTML for a route if present and fresher than
// maxAge.
func Read(route string, maxAge time.Duration) (string, bool) {
	p := pagePath(route)

	info, err := os.Stat(p)
	if err != nil {
		return "", false
	}

	if time.Since(info.ModTime()) > maxAge {
		return "", false
	}

	content, err := os.ReadFile(p)
	if err != nil {
		return "", false
	}

	return string(content), true
}

// Invalidate marks the given routes stale by removing their cache
// files. Routes that were never cached are no-ops. Mutating handlers
// call this once per affected public route.
func Invalidate(routes ...string) {
	for _, route := range routes {
		err := os.Remove(pagePath(route))
		if err != nil && !os.IsNotExist(err) {
			// Best effort: a lingering entry only lives until maxAge.
			continue
		}
	}
}

// ClearAll drops the whole page cache.
func ClearAll() error {
	return os.RemoveAll(cacheRoot)
}

// ClearExpired removes cache files older than maxAge. Run periodically
// from the cron scheduler in main.
func ClearExpired(maxAge time.Duration) error {
	return filepath.Walk(cacheRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}

		if info.IsDir() || !strings.HasSuffix(path, ".html") {
			return nil
		}

		if time.Since(info.ModTime()) > maxAge {
			os.Remove(path)
		}

		return nil
	})
}
