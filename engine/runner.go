package engine

import (
	"context"
	"path"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/lumenworks/shuttle/provider"
)

// ResolveFunc maps a raw location string to a Provider and the path within
// it. The default is provider.Resolve; tests inject fakes through it.
type ResolveFunc func(ctx context.Context, raw string) (provider.Provider, string, error)

// Config wires a Runner. Zero-value fields get working defaults.
type Config struct {
	Store    *Store
	Limiter  *Limiter
	Reporter Reporter
	History  HistoryAppender
	Projects ProjectMarker
	Resolve  ResolveFunc

	ChunkSize int
	Retry     RetryConfig
	Log       *logrus.Logger
}

// Runner drives jobs end-to-end: enumerate the files, copy and verify each
// under the retry policy and the process-wide limiter, keep the store and
// the progress observer up to date, then run kind-specific finalization.
type Runner struct {
	store    *Store
	limiter  *Limiter
	copier   *Copier
	verifier *Verifier
	reporter Reporter
	history  HistoryAppender
	projects ProjectMarker
	resolve  ResolveFunc
	retry    RetryConfig
	log      *logrus.Logger

	progressMu sync.Mutex
	progress   map[string]progressMark
}

// progressMark is the per-job high-water mark of published counters.
type progressMark struct {
	bytes   int64
	files   int
	skipped int
}

// NewRunner creates a Runner from the given config.
func NewRunner(cfg Config) *Runner {
	if cfg.Store == nil {
		cfg.Store = NewStore()
	}
	if cfg.Limiter == nil {
		cfg.Limiter = NewLimiter(0)
	}
	if cfg.Projects == nil {
		cfg.Projects = NopMarker{}
	}
	if cfg.Resolve == nil {
		cfg.Resolve = provider.Resolve
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = DefaultRetryConfig
	}
	if cfg.Log == nil {
		cfg.Log = logrus.StandardLogger()
	}

	return &Runner{
		store:    cfg.Store,
		limiter:  cfg.Limiter,
		copier:   NewCopier(cfg.ChunkSize),
		verifier: NewVerifier(cfg.ChunkSize),
		reporter: cfg.Reporter,
		history:  cfg.History,
		projects: cfg.Projects,
		resolve:  cfg.Resolve,
		retry:    cfg.Retry,
		log:      cfg.Log,
		progress: make(map[string]progressMark),
	}
}

// Store exposes the job store the runner was built around.
func (r *Runner) Store() *Store { return r.store }

// Submit validates a spec, enumerates its inputs to precompute totals, and
// registers a Pending job. Compression is declared but unsupported.
func (r *Runner) Submit(ctx context.Context, spec JobSpec) (Job, error) {
	if spec.Compress {
		return Job{}, errors.WithMessage(ErrUnimplemented, "compression is not supported")
	}
	if _, err := policyFor(spec.Kind); err != nil {
		return Job{}, err
	}
	if spec.Destination == "" {
		return Job{}, errors.WithMessage(ErrInvalidInput, "no destination given")
	}

	env, err := r.resolveEndpoints(ctx, spec)
	if err != nil {
		return Job{}, err
	}

	units, bytesTotal, err := enumerate(ctx, env.src, env.srcPaths, env.destRoot)
	if err != nil {
		return Job{}, err
	}

	job := r.store.Create(spec, len(units), bytesTotal)
	r.log.WithFields(logrus.Fields{
		"job_id": job.ID,
		"kind":   spec.Kind,
		"files":  job.FilesTotal,
		"bytes":  job.BytesTotal,
	}).Info("job submitted")
	return job, nil
}

// Start launches the job's run loop in its own task. The Pending check is
// synchronous so callers get ErrInvalidState immediately; the authoritative
// transition happens inside Run.
func (r *Runner) Start(ctx context.Context, id string) error {
	job, err := r.store.Get(id)
	if err != nil {
		return err
	}
	if job.Status != StatusPending {
		return errors.WithMessagef(ErrInvalidState, "cannot start %s job %s", job.Status, id)
	}

	go func() {
		if err := r.Run(ctx, id); err != nil {
			r.log.WithError(err).WithField("job_id", id).Error("job run failed")
		}
	}()
	return nil
}

// Cancel cancels a Pending job.
func (r *Runner) Cancel(id string) error { return r.store.Cancel(id) }

// Remove deletes a job that is not InProgress.
func (r *Runner) Remove(id string) error { return r.store.Remove(id) }

// List returns all jobs, newest first.
func (r *Runner) List() []Job { return r.store.List() }

// ListKind returns jobs of one kind, newest first.
func (r *Runner) ListKind(kind Kind) []Job { return r.store.ListKind(kind) }

// Get returns one job snapshot.
func (r *Runner) Get(id string) (Job, error) { return r.store.Get(id) }

// Run executes one job to a terminal state. It is synchronous; Start wraps
// it in a task. The unit loop holds no store lock across I/O and checks the
// context only between files, so cancellation latency is bounded by one
// file's copy time.
func (r *Runner) Run(ctx context.Context, id string) error {
	job, err := r.store.Get(id)
	if err != nil {
		return err
	}

	pol, err := policyFor(job.Spec.Kind)
	if err != nil {
		return err
	}

	env, err := r.resolveEndpoints(ctx, job.Spec)
	if err != nil {
		return r.failEarly(id, err)
	}

	// Enumerating up front fixes the totals for the whole run.
	units, bytesTotal, err := enumerate(ctx, env.src, env.srcPaths, env.destRoot)
	if err != nil {
		return r.failEarly(id, err)
	}

	if job.Spec.Kind == KindDelivery && job.Spec.NameTemplate != "" {
		for i := range units {
			dir := path.Dir(units[i].DestPath)
			base := renderName(job.Spec.NameTemplate, i+1, path.Base(units[i].DestPath))
			units[i].DestPath = path.Join(dir, base)
		}
	}

	job, err = r.store.Start(id, len(units), bytesTotal)
	if err != nil {
		return err
	}
	r.log.WithFields(logrus.Fields{"job_id": id, "kind": job.Spec.Kind, "files": len(units)}).Info("job started")

	started := job.StartedAt
	var runErr error
	if pol.parallel {
		runErr = r.runParallel(ctx, id, units, env, started)
	} else {
		runErr = r.runSequential(ctx, id, units, env, started, pol)
	}

	return r.finish(ctx, id, pol, env, units, runErr)
}

// runSequential processes units in order within the job's own task.
func (r *Runner) runSequential(ctx context.Context, id string, units []TransferUnit, env *runEnv, started time.Time, pol kindPolicy) error {
	for i, unit := range units {
		// Cooperative cancellation point; never inside a file's chunk loop.
		if err := ctx.Err(); err != nil {
			return err
		}

		err := r.processUnit(ctx, id, i, unit, env, started)
		if err == nil {
			continue
		}
		if pol.failure == abortJob {
			return err
		}
		r.skipUnit(id, i, unit, started, err)
	}
	return nil
}

// runParallel fans units out across a fixed worker pool; used by the copy
// kind, where failed files are skipped.
func (r *Runner) runParallel(ctx context.Context, id string, units []TransferUnit, env *runEnv, started time.Time) error {
	tasks := make(chan unitTask)
	pool := newWorkerPool(r.limiter.Capacity(), func(ctx context.Context, t unitTask) {
		if err := r.processUnit(ctx, id, t.index, t.unit, env, started); err != nil {
			r.skipUnit(id, t.index, t.unit, started, err)
		}
	})

	go func() {
		defer close(tasks)
		for i, unit := range units {
			select {
			case <-ctx.Done():
				return
			case tasks <- unitTask{index: i, unit: unit}:
			}
		}
	}()

	pool.run(ctx, tasks)
	return ctx.Err()
}

// processUnit runs copy+verify for one file as a single retriable unit. It
// holds exactly one limiter permit for the whole attempt sequence and
// releases it on every exit path.
func (r *Runner) processUnit(ctx context.Context, id string, index int, unit TransferUnit, env *runEnv, started time.Time) error {
	if err := r.limiter.Acquire(ctx); err != nil {
		return err
	}
	defer r.limiter.Release()

	meta, _ := env.src.Stat(ctx, unit.SourcePath)
	fileName := path.Base(unit.DestPath)

	cleanup := func() {
		if err := env.dst.Remove(ctx, unit.DestPath); err != nil {
			r.log.WithError(err).WithField("path", unit.DestPath).Warn("partial destination cleanup failed")
		}
	}

	err := Retry(ctx, r.retry, cleanup, func(attempt int) error {
		if attempt > 1 {
			r.log.WithFields(logrus.Fields{"job_id": id, "file": unit.SourcePath, "attempt": attempt}).Info("retrying file")
		}

		var attemptBytes int64
		_, err := r.copier.Copy(ctx, env.src, unit.SourcePath, env.dst, unit.DestPath, meta, func(delta int64) {
			attemptBytes += delta
			r.emitSample(id, fileName, index, attemptBytes, started)
		})
		if err != nil {
			return err
		}

		ok, err := r.verifier.Verify(ctx, env.src, unit.SourcePath, env.dst, unit.DestPath)
		if err != nil {
			return err
		}
		if !ok {
			return errors.WithMessagef(ErrIntegrityMismatch, "digest mismatch for %s", unit.DestPath)
		}
		return nil
	})
	if err != nil {
		// Never leave a half-written file behind as done.
		cleanup()
		return err
	}

	r.store.Update(id, func(j *Job) {
		j.FilesDone++
		j.BytesDone += unit.Size
	})
	r.emitSample(id, fileName, index, 0, started)
	return nil
}

// skipUnit records an exhausted-retry failure as a skipped file.
func (r *Runner) skipUnit(id string, index int, unit TransferUnit, started time.Time, err error) {
	r.log.WithError(err).WithFields(logrus.Fields{"job_id": id, "file": unit.SourcePath}).Warn("file skipped")
	r.store.Update(id, func(j *Job) { j.FilesSkipped++ })
	r.emitSample(id, path.Base(unit.DestPath), index, 0, started)
	if r.reporter != nil {
		r.reporter.EmitError(id, errors.WithMessagef(err, "skipped %s", unit.SourcePath).Error())
	}
}

// finish decides the terminal status, runs kind finalization, and records
// the outcome in the store.
func (r *Runner) finish(ctx context.Context, id string, pol kindPolicy, env *runEnv, units []TransferUnit, runErr error) error {
	snapshot, err := r.store.Get(id)
	if err != nil {
		return err
	}

	status := StatusCompleted
	errMsg := ""
	if runErr != nil {
		status = StatusFailed
		errMsg = runErr.Error()
	}

	snapshot.Status = status
	snapshot.CompletedAt = time.Now()
	snapshot.Error = errMsg

	env.snapshot = snapshot
	env.units = units

	if pol.finalize != nil {
		if ferr := pol.finalize(ctx, r, env); ferr != nil && runErr == nil {
			runErr = ferr
			status = StatusFailed
			errMsg = ferr.Error()
		}
	}

	r.store.Finish(id, status, errMsg)

	r.progressMu.Lock()
	delete(r.progress, id)
	r.progressMu.Unlock()

	entry := r.log.WithFields(logrus.Fields{
		"job_id":  id,
		"status":  status,
		"files":   snapshot.FilesDone,
		"skipped": snapshot.FilesSkipped,
	})
	if runErr != nil {
		entry.WithField("error", errMsg).Warn("job finished")
		if r.reporter != nil {
			r.reporter.EmitError(id, errMsg)
		}
	} else {
		entry.Info("job finished")
	}
	return runErr
}

// failEarly marks a job that never left Pending as Failed.
func (r *Runner) failEarly(id string, err error) error {
	r.store.Finish(id, StatusFailed, err.Error())
	if r.reporter != nil {
		r.reporter.EmitError(id, err.Error())
	}
	return err
}

// emitSample recomputes and publishes a progress sample from the current
// job state. Published counters never move backwards: a failed attempt
// resets its in-flight byte count and parallel workers snapshot the store
// at different points, so each sample is clamped to the job's high-water
// mark and emitted under the same lock. Publishing is fire-and-forget; a
// slow or absent observer never blocks the transfer.
func (r *Runner) emitSample(id, fileName string, index int, inFlight int64, started time.Time) {
	if r.reporter == nil {
		return
	}
	job, err := r.store.Get(id)
	if err != nil {
		return
	}
	bytesDone := job.BytesDone + inFlight

	r.progressMu.Lock()
	defer r.progressMu.Unlock()

	mark := r.progress[id]
	if bytesDone < mark.bytes {
		bytesDone = mark.bytes
	} else {
		mark.bytes = bytesDone
	}
	if job.FilesDone < mark.files {
		job.FilesDone = mark.files
	} else {
		mark.files = job.FilesDone
	}
	if job.FilesSkipped < mark.skipped {
		job.FilesSkipped = mark.skipped
	} else {
		mark.skipped = job.FilesSkipped
	}
	r.progress[id] = mark

	r.reporter.Emit(computeSample(job, fileName, index, bytesDone, time.Since(started)))
}

// resolveEndpoints maps the spec's locations onto providers. All sources
// must live on the same backend; S3 sources must share a bucket.
func (r *Runner) resolveEndpoints(ctx context.Context, spec JobSpec) (*runEnv, error) {
	if len(spec.Sources) == 0 {
		return nil, errors.WithMessage(ErrInvalidInput, "no sources given")
	}

	src, first, err := r.resolve(ctx, spec.Sources[0])
	if err != nil {
		return nil, errors.WithMessagef(ErrInvalidInput, "resolve source %s: %v", spec.Sources[0], err)
	}

	firstBucket, _, firstS3 := provider.SplitS3Path(spec.Sources[0])
	srcPaths := []string{first}
	for _, raw := range spec.Sources[1:] {
		bucket, key, isS3 := provider.SplitS3Path(raw)
		if isS3 != firstS3 || bucket != firstBucket {
			return nil, errors.WithMessagef(ErrInvalidInput, "source %s is not on the same backend as %s", raw, spec.Sources[0])
		}
		if isS3 {
			srcPaths = append(srcPaths, key)
		} else {
			srcPaths = append(srcPaths, raw)
		}
	}

	dst, destRoot, err := r.resolve(ctx, spec.Destination)
	if err != nil {
		return nil, errors.WithMessagef(ErrInvalidInput, "resolve destination %s: %v", spec.Destination, err)
	}

	return &runEnv{src: src, srcPaths: srcPaths, dst: dst, destRoot: destRoot}, nil
}
