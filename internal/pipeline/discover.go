package pipeline

import (
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/spamfilter/internal/processor"
	"github.com/Adithya-Monish-Kumar-K/spamfilter/pkg/errors"
)

// Discover walks root and returns a job for every regular file ending in
// suffix, in lexical path order. Leftover temp outputs are never picked up.
func Discover(root, suffix string) ([]processor.Job, error) {
	var jobs []processor.Job
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() || !strings.HasSuffix(d.Name(), suffix) {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		jobs = append(jobs, processor.Job{Path: path, RelPath: rel})
		return nil
	})
	if err != nil {
		return nil, errors.Newf(errors.ErrIO, "discovering submissions under %s: %v", root, err)
	}
	return jobs, nil
}
