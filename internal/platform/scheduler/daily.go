package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrAlreadyStarted は Start が二重に呼ばれたことを表します。
var ErrAlreadyStarted = errors.New("scheduler: already started")

// Job はスケジューラーが起動する処理です。ctx は Stop でキャンセルされます。
type Job func(ctx context.Context)

// Options は Daily の設定です。
type Options struct {
	Hour     int
	Minute   int
	Location *time.Location
	Logger   *zap.Logger
	// Now は現在時刻の取得に使います。nil の場合は time.Now です。
	Now func() time.Time
}

// Daily は毎日決まった時刻に Job を 1 回実行します。
// 実行のたびに次回時刻を計算し直してワンショットタイマーを張り直します。
type Daily struct {
	job    Job
	hour   int
	minute int
	loc    *time.Location
	now    func() time.Time
	log    *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewDaily は Daily を生成します。
func NewDaily(job Job, opts Options) (*Daily, error) {
	if job == nil {
		return nil, fmt.Errorf("scheduler: job is required")
	}
	if opts.Hour < 0 || opts.Hour > 23 || opts.Minute < 0 || opts.Minute > 59 {
		return nil, fmt.Errorf("scheduler: invalid time %02d:%02d", opts.Hour, opts.Minute)
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Daily{
		job:    job,
		hour:   opts.Hour,
		minute: opts.Minute,
		loc:    opts.Location,
		now:    opts.Now,
		log:    opts.Logger.Named("scheduler"),
	}, nil
}

// NextRun は now より後で最初に到来する実行時刻を返します。
func (d *Daily) NextRun(now time.Time) time.Time {
	local := now.In(d.loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), d.hour, d.minute, 0, 0, d.loc)
	if !next.After(local) {
		next = time.Date(local.Year(), local.Month(), local.Day()+1, d.hour, d.minute, 0, 0, d.loc)
	}
	return next
}

// Start はバックグラウンドでスケジュールを開始します。
func (d *Daily) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cancel != nil {
		return ErrAlreadyStarted
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.done = make(chan struct{})

	go d.loop(runCtx, d.done)
	return nil
}

// Stop はタイマーを解除し、実行中の Job が戻るまで待ちます。
func (d *Daily) Stop() {
	d.mu.Lock()
	cancel, done := d.cancel, d.done
	d.cancel, d.done = nil, nil
	d.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	d.log.Info("scheduler stopped")
}

func (d *Daily) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		now := d.now()
		next := d.NextRun(now)
		wait := next.Sub(now)
		d.log.Info("next sync scheduled", zap.Time("at", next), zap.Duration("in", wait))

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		d.run(ctx)
	}
}

func (d *Daily) run(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("scheduled job panicked", zap.Any("panic", r))
		}
	}()

	start := d.now()
	d.job(ctx)
	d.log.Info("scheduled job finished", zap.Duration("elapsed", d.now().Sub(start)))
}
