package history

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.etcd.io/bbolt"
)

const boltBucketRuns = "runs" // nested bucket per repository, key: start time + ID -> Run JSON

// BoltStore keeps runs in a bbolt file
type BoltStore struct {
	db *bbolt.DB
}

var _ Store = (*BoltStore)(nil)

// OpenBolt opens or creates the bbolt file at path
func OpenBolt(path string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening history: %w", err)
	}

	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(boltBucketRuns))
		return err
	}); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// runKey sorts runs of a repository by start time
func runKey(run Run) []byte {
	return []byte(run.StartedAt.UTC().Format("20060102T150405.000000000") + "/" + run.ID)
}

func (b *BoltStore) Record(ctx context.Context, run Run) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if run.Repository == "" {
		return fmt.Errorf("run has no repository")
	}

	data, err := json.Marshal(&run)
	if err != nil {
		return err
	}

	return b.db.Update(func(tx *bbolt.Tx) error {
		repo, err := tx.Bucket([]byte(boltBucketRuns)).CreateBucketIfNotExists([]byte(run.Repository))
		if err != nil {
			return err
		}
		return repo.Put(runKey(run), data)
	})
}

func (b *BoltStore) LastSuccessful(ctx context.Context, repository string) (*Run, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var found *Run
	err := b.db.View(func(tx *bbolt.Tx) error {
		repo := tx.Bucket([]byte(boltBucketRuns)).Bucket([]byte(repository))
		if repo == nil {
			return nil
		}

		c := repo.Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			var run Run
			if err := json.Unmarshal(v, &run); err != nil {
				return fmt.Errorf("decoding run %s: %w", k, err)
			}
			if run.Succeeded {
				found = &run
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, fmt.Errorf("%w for %s", ErrNotFound, repository)
	}
	return found, nil
}

func (b *BoltStore) List(ctx context.Context, repository string, limit int) ([]Run, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var runs []Run
	err := b.db.View(func(tx *bbolt.Tx) error {
		root := tx.Bucket([]byte(boltBucketRuns))
		collect := func(repo *bbolt.Bucket) error {
			return repo.ForEach(func(k, v []byte) error {
				var run Run
				if err := json.Unmarshal(v, &run); err != nil {
					return fmt.Errorf("decoding run %s: %w", k, err)
				}
				runs = append(runs, run)
				return nil
			})
		}

		if repository != "" {
			repo := root.Bucket([]byte(repository))
			if repo == nil {
				return nil
			}
			return collect(repo)
		}
		return root.ForEachBucket(func(k []byte) error {
			return collect(root.Bucket(k))
		})
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

func (b *BoltStore) Close() error {
	return b.db.Close()
}
