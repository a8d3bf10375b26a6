package engine

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/lumenworks/shuttle/provider"
)

// HistoryAppender records terminal snapshots of finished jobs. The durable
// implementation lives in the history package; tests use a recorder.
type HistoryAppender interface {
	Append(rec HistoryRecord) error
}

// ProjectMarker flags the originating project as archived once an archive
// job has fully succeeded. The project registry itself is an external
// collaborator.
type ProjectMarker interface {
	MarkArchived(ctx context.Context, project string) error
}

// NopMarker is the default ProjectMarker when no registry is attached.
type NopMarker struct{}

func (NopMarker) MarkArchived(context.Context, string) error { return nil }

// failureMode decides what an exhausted-retry unit failure does to the job.
type failureMode int

const (
	// skipFile records the file as skipped and continues; the job can
	// still end Completed with a nonzero skip count.
	skipFile failureMode = iota

	// abortJob fails the whole job with the triggering error and abandons
	// the remaining files.
	abortJob
)

// kindPolicy is the small capability set that distinguishes job kinds, so a
// single runner serves all of them.
type kindPolicy struct {
	parallel bool
	failure  failureMode
	finalize func(ctx context.Context, r *Runner, env *runEnv) error
}

// runEnv carries everything finalizers need about a finished run.
type runEnv struct {
	snapshot Job // terminal snapshot; status and error already decided
	units    []TransferUnit
	src      provider.Provider
	srcPaths []string
	dst      provider.Provider
	destRoot string
}

func policyFor(kind Kind) (kindPolicy, error) {
	switch kind {
	case KindBackup:
		return kindPolicy{failure: skipFile, finalize: finalizeBackup}, nil
	case KindDelivery:
		return kindPolicy{failure: abortJob, finalize: finalizeDelivery}, nil
	case KindArchive:
		return kindPolicy{failure: abortJob, finalize: finalizeArchive}, nil
	case KindCopy:
		return kindPolicy{parallel: true, failure: skipFile}, nil
	default:
		return kindPolicy{}, errors.WithMessagef(ErrInvalidInput, "unknown job kind %q", kind)
	}
}

// finalizeBackup appends the terminal snapshot to the history log. The log
// is best-effort bookkeeping: an append failure never flips a finished job.
func finalizeBackup(ctx context.Context, r *Runner, env *runEnv) error {
	if r.history == nil {
		return nil
	}
	if err := r.history.Append(snapshotRecord(env.snapshot)); err != nil {
		r.log.WithError(err).WithField("job_id", env.snapshot.ID).Warn("history append failed")
	}
	return nil
}

// finalizeDelivery writes the plain-text manifest next to the delivered
// files. The manifest is part of the deliverable, so failing to write it
// fails the job.
func finalizeDelivery(ctx context.Context, r *Runner, env *runEnv) error {
	if env.snapshot.Status != StatusCompleted {
		return nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Delivery: %s\n", env.snapshot.Spec.Project)
	fmt.Fprintf(&b, "Date: %s\n", time.Now().Format(time.RFC3339))

	var total int64
	for _, u := range env.units {
		total += u.Size
	}
	fmt.Fprintf(&b, "Files: %d\n", len(env.units))
	fmt.Fprintf(&b, "Total: %d bytes\n\n", total)

	for _, u := range env.units {
		fmt.Fprintf(&b, "%s -> %s (%d bytes)\n", u.SourcePath, u.DestPath, u.Size)
	}

	w, err := env.dst.OpenWrite(ctx, path.Join(env.destRoot, "MANIFEST.txt"), nil)
	if err != nil {
		return errors.WithMessagef(ErrIoFailure, "open manifest: %v", err)
	}
	if _, err := w.Write([]byte(b.String())); err != nil {
		w.Close()
		return errors.WithMessagef(ErrIoFailure, "write manifest: %v", err)
	}
	if err := w.Close(); err != nil {
		return errors.WithMessagef(ErrIoFailure, "close manifest: %v", err)
	}
	return nil
}

// finalizeArchive removes the source trees and marks the project archived,
// but only after every file made it over intact. On any failure the sources
// stay untouched.
func finalizeArchive(ctx context.Context, r *Runner, env *runEnv) error {
	if env.snapshot.Status != StatusCompleted {
		return nil
	}

	for _, source := range env.srcPaths {
		if err := env.src.RemoveAll(ctx, source); err != nil {
			return errors.WithMessagef(ErrIoFailure, "remove archived source %s: %v", source, err)
		}
	}

	if env.snapshot.Spec.Project != "" {
		if err := r.projects.MarkArchived(ctx, env.snapshot.Spec.Project); err != nil {
			// The copy and the source removal both succeeded; a registry
			// hiccup is logged, not fatal.
			r.log.WithError(err).WithField("project", env.snapshot.Spec.Project).Warn("mark archived failed")
		}
	}
	return nil
}
