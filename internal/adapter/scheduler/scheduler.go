package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// JobFunc представляет функцию задачи планировщика.
type JobFunc func(ctx context.Context) error

// JobID идентифицирует задачу.
type JobID = cron.EntryID

// OverlapPolicy определяет, что делать, если предыдущий запуск ещё идёт.
type OverlapPolicy int

const (
	// AllowOverlap разрешает параллельное выполнение (по умолчанию).
	AllowOverlap OverlapPolicy = iota
	// SkipIfRunning пропускает запуск.
	SkipIfRunning
)

func (p OverlapPolicy) String() string {
	switch p {
	case SkipIfRunning:
		return "skip"
	default:
		return "allow"
	}
}

// JobOptions содержит опции задачи.
type JobOptions struct {
	Name          string
	Timeout       time.Duration
	OverlapPolicy OverlapPolicy
	// RunOnStart выполняет задачу сразу после Start, не дожидаясь расписания.
	RunOnStart bool
}

// JobHooks содержит необязательные хуки для наблюдаемости.
type JobHooks struct {
	OnJobFinish func(jobName string, duration time.Duration, err error)
}

// Config содержит конфигурацию планировщика.
type Config struct {
	Logger   *slog.Logger
	JobHooks JobHooks
}

type job struct {
	fn      JobFunc
	opts    JobOptions
	running sync.Mutex
}

// Scheduler управляет периодическими задачами.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger
	hooks  JobHooks

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	onStart []*job

	startOnce sync.Once
	stopOnce  sync.Once
}

var parser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// New создаёт планировщик.
func New(cfg Config) *Scheduler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithParser(parser),
			cron.WithLogger(cronLogger{logger: logger.With("component", "cron")}),
		),
		logger: logger,
		hooks:  cfg.JobHooks,
		ctx:    ctx,
		cancel: cancel,
	}
}

// ValidateSchedule сообщает, разберёт ли планировщик выражение expr.
func ValidateSchedule(expr string) error {
	_, err := parser.Parse(expr)
	return err
}

// AddJob добавляет задачу по cron-расписанию.
// Примеры расписаний: "@hourly", "@every 5m", "0 */30 * * * *".
func (s *Scheduler) AddJob(schedule string, fn JobFunc, opts JobOptions) (JobID, error) {
	if opts.Name == "" {
		opts.Name = "unnamed"
	}
	j := &job{fn: fn, opts: opts}
	id, err := s.cron.AddFunc(schedule, func() { s.run(j) })
	if err != nil {
		return 0, fmt.Errorf("add job %q: %w", opts.Name, err)
	}
	if opts.RunOnStart {
		s.mu.Lock()
		s.onStart = append(s.onStart, j)
		s.mu.Unlock()
	}
	s.logger.Info("job added", "name", opts.Name, "schedule", schedule, "overlap_policy", opts.OverlapPolicy.String(), "id", id)
	return id, nil
}

// Remove удаляет задачу.
func (s *Scheduler) Remove(id JobID) {
	s.cron.Remove(id)
}

// Len возвращает число зарегистрированных задач.
func (s *Scheduler) Len() int {
	return len(s.cron.Entries())
}

// Start запускает планировщик. Повторный вызов ничего не делает.
func (s *Scheduler) Start() {
	s.startOnce.Do(func() {
		s.logger.Info("starting scheduler", "jobs", s.Len())
		s.cron.Start()

		s.mu.Lock()
		initial := s.onStart
		s.mu.Unlock()
		for _, j := range initial {
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				s.run(j)
			}()
		}
	})
}

// Run запускает планировщик и блокируется до отмены ctx, затем
// останавливает его, ожидая текущие задачи не дольше grace.
func (s *Scheduler) Run(ctx context.Context, grace time.Duration) error {
	s.Start()
	<-ctx.Done()
	stopCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	return s.StopContext(stopCtx)
}

// Stop останавливает планировщик и ждёт завершения всех задач.
func (s *Scheduler) Stop() {
	s.cancel()
	s.stopOnce.Do(s.stop)
}

// StopContext останавливает планировщик. Если ctx истекает раньше, чем
// завершатся задачи, возвращается ctx.Err(); остановка всё равно доводится
// до конца в фоне.
func (s *Scheduler) StopContext(ctx context.Context) error {
	s.cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.stopOnce.Do(s.stop)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		s.logger.Warn("scheduler stop deadline exceeded")
		return ctx.Err()
	}
}

func (s *Scheduler) stop() {
	<-s.cron.Stop().Done()
	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

// IsRunning возвращает false после Stop.
func (s *Scheduler) IsRunning() bool {
	return s.ctx.Err() == nil
}

func (s *Scheduler) run(j *job) {
	name := j.opts.Name
	if j.opts.OverlapPolicy == SkipIfRunning {
		if !j.running.TryLock() {
			s.logger.Debug("skipping job, already running", "name", name)
			return
		}
		defer j.running.Unlock()
	}

	ctx := s.ctx
	if j.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	err := s.call(ctx, j)
	duration := time.Since(start)

	if s.hooks.OnJobFinish != nil {
		s.hooks.OnJobFinish(name, duration, err)
	}
	if err != nil {
		s.logger.Error("job failed", "name", name, "error", err, "duration", duration)
		return
	}
	s.logger.Debug("job completed", "name", name, "duration", duration)
}

func (s *Scheduler) call(ctx context.Context, j *job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return j.fn(ctx)
}

// cronLogger адаптирует cron.Logger к slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append([]any{"error", err}, keysAndValues...)...)
}
