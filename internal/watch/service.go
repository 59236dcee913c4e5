// Package watch keeps a base directory renamed: after one normal batch
// pass it waits for new matching files and renames each one once it has
// stopped changing.
package watch

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"pkgbatch/internal/batch"
	"pkgbatch/internal/config"
	"pkgbatch/internal/log"
	"pkgbatch/pkg/types"
)

// Status is a snapshot of a running watch session.
type Status struct {
	Directory    string
	Renamed      int
	Failed       int
	LastActivity time.Time
}

// Service runs watch mode for one base directory.
type Service struct {
	runner *batch.Runner
	settle time.Duration

	mutex     sync.Mutex
	processed map[string]struct{}
	known     map[string]struct{}
	status    Status
}

// NewService creates a watch service from cfg. opts are passed on to the
// batch runner.
func NewService(cfg *config.Config, opts ...batch.Option) (*Service, error) {
	s := &Service{
		settle:    cfg.Watch.Settle,
		processed: make(map[string]struct{}),
		known:     make(map[string]struct{}),
	}
	runner, err := batch.New(cfg, append(opts, batch.WithObserver(s.observe))...)
	if err != nil {
		return nil, err
	}
	s.runner = runner
	s.status.Directory = runner.BaseDirectory()
	return s, nil
}

// Run performs the initial batch pass and then renames arriving files
// until ctx is cancelled. Only a failure to list or watch the base
// directory is returned; cancellation is a normal stop.
func (s *Service) Run(ctx context.Context) error {
	w, err := NewWatcher(s.runner.BaseDirectory(), s.runner.Scanner())
	if err != nil {
		return err
	}
	if err := w.Start(); err != nil {
		return err
	}
	defer w.Stop()

	s.remember()
	if _, err := s.runner.RunBatch(ctx, ""); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}

	s.Consume(ctx, w.Events())
	return nil
}

// Consume renames the files named by events, one at a time in arrival
// order, once no event has been seen for a name during the settle delay.
// A file still settling holds back the ones queued after it.
// It returns when ctx is cancelled or events is closed; names still
// pending then are dropped.
func (s *Service) Consume(ctx context.Context, events <-chan FileEvent) {
	var (
		pending = make(map[string]time.Time)
		order   []string
	)
	timer := time.NewTimer(s.settle)
	timer.Stop()
	defer timer.Stop()

	arm := func() {
		if len(order) > 0 {
			timer.Reset(time.Until(pending[order[0]].Add(s.settle)))
		}
	}

	for {
		select {
		case <-ctx.Done():
			log.LogWithFields(log.F("pending", len(order))).Debug("watch cancelled")
			return

		case ev, ok := <-events:
			if !ok {
				return
			}
			if s.isProcessed(ev.Name) {
				continue
			}
			if _, queued := pending[ev.Name]; !queued {
				order = append(order, ev.Name)
				log.LogWithFields(log.F("file", ev.Name)).Debug("queued")
			}
			pending[ev.Name] = ev.Timestamp
			s.seen(ev.Name, ev.Timestamp)
			arm()

		case <-timer.C:
			for len(order) > 0 && time.Since(pending[order[0]]) >= s.settle {
				name := order[0]
				order = order[1:]
				delete(pending, name)
				s.process(ctx, name)
				if ctx.Err() != nil {
					return
				}
			}
			arm()
		}
	}
}

func (s *Service) process(ctx context.Context, name string) {
	if ctx.Err() != nil || s.isProcessed(name) {
		return
	}
	if !s.runner.Scanner().IsCandidate(filepath.Join(s.runner.BaseDirectory(), name)) {
		log.LogWithFields(log.F("file", name)).Debug("file vanished before renaming")
		return
	}
	s.runner.Rename(ctx, name)
}

// observe is called after every rename attempt, including those of the
// initial pass. It marks name as processed and, when the source is gone
// and exactly one new matching name appeared, takes that to be the tool's
// output and marks it as well.
func (s *Service) observe(name string, res types.RenameResult) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.processed[name] = struct{}{}
	if res.OK() {
		s.status.Renamed++
	} else {
		s.status.Failed++
	}
	s.status.LastActivity = time.Now()

	names, err := s.runner.Scanner().ListMatchingFiles(s.runner.BaseDirectory())
	if err != nil {
		return
	}
	var (
		newcomers []string
		present   bool
	)
	for _, n := range names {
		if n == name {
			present = true
		}
		if _, ok := s.known[n]; !ok {
			newcomers = append(newcomers, n)
			s.known[n] = struct{}{}
		}
	}
	if res.OK() && !present && len(newcomers) == 1 {
		s.processed[newcomers[0]] = struct{}{}
		log.LogWithFields(log.F("file", name), log.F("renamed_to", newcomers[0])).Debug("tracked tool output")
	}
}

// remember records the names currently in the base directory.
func (s *Service) remember() {
	names, err := s.runner.Scanner().ListMatchingFiles(s.runner.BaseDirectory())
	if err != nil {
		return
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	for _, n := range names {
		s.known[n] = struct{}{}
	}
}

func (s *Service) isProcessed(name string) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	_, ok := s.processed[name]
	return ok
}

func (s *Service) seen(name string, t time.Time) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.known[name] = struct{}{}
	s.status.LastActivity = t
}

// Status returns a snapshot of the session counters.
func (s *Service) Status() Status {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.status
}
