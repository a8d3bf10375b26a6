package engine

import (
	"context"
	"path"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/lumenworks/shuttle/provider"
)

// enumerate resolves a job's sources into the flat list of TransferUnits
// for one run, fixing the file and byte totals up front. Directories are
// walked iteratively (stack-based) to avoid deep recursion on very deep
// trees. A source that cannot be stat'ed or listed fails the enumeration
// with ErrInvalidInput.
//
// Destination layout: a plain file lands directly under destRoot; a
// directory source is recreated as destRoot/<dirname>/... so multiple
// sources never collide.
func enumerate(ctx context.Context, src provider.Provider, sources []string, destRoot string) ([]TransferUnit, int64, error) {
	if len(sources) == 0 {
		return nil, 0, errors.WithMessage(ErrInvalidInput, "no sources given")
	}

	var units []TransferUnit
	var totalBytes int64

	for _, source := range sources {
		stat, err := src.Stat(ctx, source)
		if err != nil {
			return nil, 0, errors.WithMessagef(ErrInvalidInput, "stat source %s: %v", source, err)
		}

		if !stat.IsDir() {
			units = append(units, TransferUnit{
				SourcePath: source,
				DestPath:   path.Join(destRoot, stat.Name()),
				Size:       stat.Size(),
			})
			totalBytes += stat.Size()
			continue
		}

		dirDest := path.Join(destRoot, filepath.Base(source))
		stack := []string{""}

		for len(stack) > 0 {
			select {
			case <-ctx.Done():
				return nil, 0, ctx.Err()
			default:
			}

			rel := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			dir := source
			if rel != "" {
				dir = filepath.Join(source, rel)
			}

			entries, err := src.List(ctx, dir)
			if err != nil {
				return nil, 0, errors.WithMessagef(ErrInvalidInput, "list %s: %v", dir, err)
			}

			for _, entry := range entries {
				entryRel := entry.Name()
				if rel != "" {
					entryRel = filepath.Join(rel, entry.Name())
				}

				if entry.IsDir() {
					stack = append(stack, entryRel)
					continue
				}

				units = append(units, TransferUnit{
					SourcePath: filepath.Join(source, entryRel),
					DestPath:   path.Join(dirDest, filepath.ToSlash(entryRel)),
					Size:       entry.Size(),
				})
				totalBytes += entry.Size()
			}
		}
	}

	return units, totalBytes, nil
}
