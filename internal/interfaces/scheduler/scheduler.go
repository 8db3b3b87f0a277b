package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ScheduleTime is a time of day at which the scheduler fires.
type ScheduleTime struct {
	Hour   int
	Minute int
}

func (st ScheduleTime) String() string {
	return fmt.Sprintf("%02d:%02d", st.Hour, st.Minute)
}

// ParseScheduleTime parses HH:MM.
func ParseScheduleTime(s string) (ScheduleTime, error) {
	var hour, minute int
	if _, err := fmt.Sscanf(s, "%d:%d", &hour, &minute); err != nil {
		return ScheduleTime{}, fmt.Errorf("invalid time format (expected HH:MM): %w", err)
	}
	if hour < 0 || hour > 23 {
		return ScheduleTime{}, fmt.Errorf("invalid hour: %d (must be 0-23)", hour)
	}
	if minute < 0 || minute > 59 {
		return ScheduleTime{}, fmt.Errorf("invalid minute: %d (must be 0-59)", minute)
	}
	return ScheduleTime{Hour: hour, Minute: minute}, nil
}

type jobSubmitter interface {
	SubmitBatch(jobs []Job) int
}

// Config configures the daily scheduler.
type Config struct {
	ScheduleTimes []string
	RunOnStartup  bool
	JobProvider   func(context.Context) ([]Job, error)
}

// Scheduler asks JobProvider for jobs at each configured time of day and
// hands them to the pool.
type Scheduler struct {
	pool          jobSubmitter
	scheduleTimes []ScheduleTime
	runOnStartup  bool
	jobProvider   func(context.Context) ([]Job, error)
	log           zerolog.Logger
	now           func() time.Time

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	lastRun string
}

func NewScheduler(pool jobSubmitter, cfg Config, log zerolog.Logger) (*Scheduler, error) {
	times := make([]ScheduleTime, 0, len(cfg.ScheduleTimes))
	for _, s := range cfg.ScheduleTimes {
		st, err := ParseScheduleTime(s)
		if err != nil {
			return nil, fmt.Errorf("failed to parse schedule time %q: %w", s, err)
		}
		times = append(times, st)
	}
	if len(times) == 0 {
		return nil, fmt.Errorf("at least one schedule time is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		pool:          pool,
		scheduleTimes: times,
		runOnStartup:  cfg.RunOnStartup,
		jobProvider:   cfg.JobProvider,
		log:           log.With().Str("component", "scheduler").Logger(),
		now:           time.Now,
		ctx:           ctx,
		cancel:        cancel,
	}, nil
}

func (s *Scheduler) Start() {
	if s.runOnStartup {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.RunNow()
		}()
	}

	s.wg.Add(1)
	go s.loop()

	s.log.Info().Strs("times", s.timeStrings()).Time("next", s.NextRun()).Msg("scheduler started")
}

func (s *Scheduler) loop() {
	defer s.wg.Done()

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case now := <-ticker.C:
			if s.shouldRun(now) {
				s.RunNow()
			}
		}
	}
}

// shouldRun reports whether now falls on a scheduled minute that has not
// fired yet.
func (s *Scheduler) shouldRun(now time.Time) bool {
	key := now.Format("2006-01-02T15:04")

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lastRun == key {
		return false
	}
	for _, st := range s.scheduleTimes {
		if now.Hour() == st.Hour && now.Minute() == st.Minute {
			s.lastRun = key
			return true
		}
	}
	return false
}

// RunNow fetches jobs and submits them, returning how many were queued.
func (s *Scheduler) RunNow() int {
	if s.jobProvider == nil {
		return 0
	}

	ctx, cancel := context.WithTimeout(s.ctx, 5*time.Minute)
	defer cancel()

	jobs, err := s.jobProvider(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to fetch scheduled jobs")
		return 0
	}
	if len(jobs) == 0 {
		s.log.Info().Msg("no scheduled jobs to run")
		return 0
	}
	return s.pool.SubmitBatch(jobs)
}

// NextRun returns the next scheduled time after now.
func (s *Scheduler) NextRun() time.Time {
	now := s.now()
	var next time.Time
	for _, st := range s.scheduleTimes {
		t := time.Date(now.Year(), now.Month(), now.Day(), st.Hour, st.Minute, 0, 0, now.Location())
		if !t.After(now) {
			t = t.AddDate(0, 0, 1)
		}
		if next.IsZero() || t.Before(next) {
			next = t
		}
	}
	return next
}

// Shutdown stops the loop. It does not stop the pool.
func (s *Scheduler) Shutdown(timeout time.Duration) {
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.log.Info().Msg("scheduler stopped")
	case <-time.After(timeout):
		s.log.Warn().Msg("timed out waiting for scheduler to stop")
	}
}

func (s *Scheduler) timeStrings() []string {
	out := make([]string, len(s.scheduleTimes))
	for i, st := range s.scheduleTimes {
		out[i] = st.String()
	}
	return out
}
