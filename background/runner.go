// Package background drives the deferred work of a flash disk opened
// with fdisk.BackgroundErase or fdisk.BackgroundCompact.
package background

import (
	"context"
	"sync/atomic"
	"time"
)

import (
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

import (
	"github.com/timtadh/flashdisk/errors"
)

// Disk is the part of *fdisk.Disk the runner calls.
type Disk interface {
	EraseUsed() error
	Compact() error
}

type Runner struct {
	disk    Disk
	log     logrus.FieldLogger
	erase   *rate.Limiter
	compact *rate.Limiter

	erasePasses   int64
	compactPasses int64
}

// New runs an erase pass every eraseEvery and a compaction pass every
// compactEvery. A zero interval disables that loop.
func New(disk Disk, eraseEvery, compactEvery time.Duration, log logrus.FieldLogger) *Runner {
	if log == nil {
		log = logrus.StandardLogger()
	}
	r := &Runner{disk: disk, log: log}
	if eraseEvery > 0 {
		r.erase = rate.NewLimiter(rate.Every(eraseEvery), 1)
	}
	if compactEvery > 0 {
		r.compact = rate.NewLimiter(rate.Every(compactEvery), 1)
	}
	return r
}

// Run blocks until ctx is done, which is not an error, or a pass fails
// with anything other than ErrNoSpace or ErrIO. Those two are logged and
// the next pass tries again; a failed segment is already out of use.
func (r *Runner) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	if r.erase != nil {
		g.Go(func() error {
			return r.loop(gctx, "erase", r.erase, r.disk.EraseUsed, &r.erasePasses)
		})
	}
	if r.compact != nil {
		g.Go(func() error {
			return r.loop(gctx, "compact", r.compact, r.disk.Compact, &r.compactPasses)
		})
	}
	err := g.Wait()
	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return nil
	}
	return err
}

func (r *Runner) loop(ctx context.Context, name string, limit *rate.Limiter, pass func() error, passes *int64) error {
	for {
		if err := limit.Wait(ctx); err != nil {
			// the next pass would land past the deadline
			<-ctx.Done()
			return ctx.Err()
		}
		err := pass()
		atomic.AddInt64(passes, 1)
		if errors.Is(err, errors.ErrNoSpace) || errors.Is(err, errors.ErrIO) {
			r.log.WithField("pass", name).Warnf("background %v: %v", name, err)
			continue
		} else if err != nil {
			r.log.WithField("pass", name).Errorf("background %v: %v", name, err)
			return err
		}
	}
}

func (r *Runner) ErasePasses() int64 {
	return atomic.LoadInt64(&r.erasePasses)
}

func (r *Runner) CompactPasses() int64 {
	return atomic.LoadInt64(&r.compactPasses)
}
