package history

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"

	"ghmirror/pkg/crawler"
)

// ErrNotFound is returned when no matching run was recorded
var ErrNotFound = errors.New("no run recorded")

// ResourceResult is the stored outcome of one resource
type ResourceResult struct {
	Resource      string `json:"resource"`
	Count         int    `json:"count"`
	SizeInBytes   int64  `json:"size_in_bytes"`
	ElapsedMillis int64  `json:"elapsed_ms"`
	Error         string `json:"error,omitempty"`
}

// Run is one finished crawl of a repository
type Run struct {
	ID              string           `json:"id"`
	Repository      string           `json:"repository"`
	Watermark       time.Time        `json:"watermark"`
	StartedAt       time.Time        `json:"started_at"`
	FinishedAt      time.Time        `json:"finished_at"`
	Succeeded       bool             `json:"succeeded"`
	DestinationRoot string           `json:"destination_root"`
	Resources       []ResourceResult `json:"resources"`
}

// NewRun converts a crawl summary into a Run with a fresh ID
func NewRun(repository string, s *crawler.Summary) Run {
	run := Run{
		ID:              uuid.NewString(),
		Repository:      repository,
		Watermark:       s.Watermark,
		StartedAt:       s.StartedAt,
		FinishedAt:      s.FinishedAt,
		Succeeded:       s.Succeeded(),
		DestinationRoot: s.DestinationRoot,
		Resources:       make([]ResourceResult, 0, len(s.Statistics)),
	}
	for _, st := range s.Statistics {
		run.Resources = append(run.Resources, ResourceResult{
			Resource:      st.Resource,
			Count:         st.Count,
			SizeInBytes:   st.SizeInBytes,
			ElapsedMillis: st.ElapsedMillis(),
			Error:         st.ErrorMessage(),
		})
	}
	return run
}

// TotalCount sums the records written by every resource
func (r Run) TotalCount() int {
	n := 0
	for _, res := range r.Resources {
		n += res.Count
	}
	return n
}

// Result returns the stored outcome of resource in r
func (r Run) Result(resource string) (ResourceResult, bool) {
	for _, res := range r.Resources {
		if res.Resource == resource {
			return res, true
		}
	}
	return ResourceResult{}, false
}

// ResumeWatermark returns the watermark from which every one of resources
// can resume into destinationRoot: the earliest start among the latest runs
// that crawled each resource there without error. A resource that was never
// crawled there successfully resumes from the beginning, as does an empty
// resource list.
func ResumeWatermark(ctx context.Context, store Store, repository, destinationRoot string, resources []string) (time.Time, error) {
	runs, err := store.List(ctx, repository, 0)
	if err != nil {
		return time.Time{}, err
	}

	var watermark time.Time
	for i, resource := range resources {
		started, ok := lastCovered(runs, destinationRoot, resource)
		if !ok {
			return time.Time{}, nil
		}
		if i == 0 || started.Before(watermark) {
			watermark = started
		}
	}
	return watermark, nil
}

// lastCovered scans runs newest first
func lastCovered(runs []Run, destinationRoot, resource string) (time.Time, bool) {
	for _, run := range runs {
		if destinationRoot != "" && run.DestinationRoot != destinationRoot {
			continue
		}
		if res, ok := run.Result(resource); ok && res.Error == "" {
			return run.StartedAt, true
		}
	}
	return time.Time{}, false
}

// Store persists runs
type Store interface {
	Record(ctx context.Context, run Run) error
	// LastSuccessful returns the most recently started successful run of
	// repository, or ErrNotFound
	LastSuccessful(ctx context.Context, repository string) (*Run, error)
	// List returns up to limit runs, newest first. An empty repository
	// lists every repository; limit <= 0 means no limit.
	List(ctx context.Context, repository string, limit int) ([]Run, error)
	Close() error
}

// Open opens the store backend ("bolt" or "sqlite") at path. An empty path
// uses a file in DataDir.
func Open(backend, path string) (Store, error) {
	backend = strings.ToLower(backend)
	if path == "" {
		dir, err := DataDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get data directory: %w", err)
		}
		switch backend {
		case "sqlite":
			path = filepath.Join(dir, "history.db")
		default:
			path = filepath.Join(dir, "history.bolt")
		}
	}

	switch backend {
	case "", "bolt":
		return OpenBolt(path)
	case "sqlite":
		return OpenSQLite(path)
	default:
		return nil, fmt.Errorf("unknown history backend %q", backend)
	}
}

// DataDir returns the per-user data directory for ghmirror, creating it
func DataDir() (string, error) {
	var dataDir string

	switch runtime.GOOS {
	case "linux":
		if xdgDataHome := os.Getenv("XDG_DATA_HOME"); xdgDataHome != "" {
			dataDir = filepath.Join(xdgDataHome, "ghmirror")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			dataDir = filepath.Join(home, ".local", "share", "ghmirror")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dataDir = filepath.Join(home, "Library", "Application Support", "ghmirror")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", fmt.Errorf("APPDATA environment variable not set")
		}
		dataDir = filepath.Join(appData, "ghmirror")
	default:
		return "", fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}
	return dataDir, nil
}
