package input

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Moonlight-Companies/gologger/logger"
)

// worker runs work every period on its own goroutine, sleeping only what is left
// of the period after the work returns.
type worker struct {
	name   string
	period time.Duration
	work   func()
	log    *logger.Logger

	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func startWorker(name string, period time.Duration, log *logger.Logger, work func()) *worker {
	ctx, cancel := context.WithCancel(context.Background())
	w := &worker{
		name:   name,
		period: period,
		work:   work,
		log:    log,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go w.run(ctx)
	return w
}

func (w *worker) run(ctx context.Context) {
	defer close(w.done)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		start := time.Now()
		w.step()

		sleep := w.period - time.Since(start)
		if sleep < time.Millisecond {
			sleep = time.Millisecond
		}
		timer.Reset(sleep)
	}
}

// step runs one iteration; a panic is logged and the loop continues.
func (w *worker) step() {
	defer func() {
		if rec := recover(); rec != nil {
			w.log.Warn(w.name, " iteration panicked: ", fmt.Sprint(rec))
		}
	}()
	w.work()
}

// stop cancels the loop and waits for the current iteration to finish.
func (w *worker) stop() {
	w.once.Do(func() {
		w.cancel()
		<-w.done
	})
}
