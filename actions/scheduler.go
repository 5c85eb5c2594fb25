package actions

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/pkg/errors"
	"github.com/relloyd/batchetl/constants"
	"github.com/relloyd/batchetl/helper"
	"github.com/relloyd/batchetl/logger"
	"github.com/robfig/cron/v3"
)

// Notifier tells an operator that a scheduled run failed after all retries.
type Notifier interface {
	Notify(ctx context.Context, date string, err error)
}

// LogNotifier notifies by writing an error entry with field notify=true.
type LogNotifier struct {
	Log *logger.LoggerImpl
}

func (n LogNotifier) Notify(ctx context.Context, date string, err error) {
	n.Log.WithFields(map[string]interface{}{"notify": true, "date": date}).Error("scheduled run failed: ", err)
}

type SchedulerConfig struct {
	LogLevel         string `errorTxt:"log level" mandatory:"yes"`
	Cron             string `errorTxt:"cron schedule" mandatory:"yes"`
	Retries          int
	RetryDelay       time.Duration
	StackDumpOnPanic bool
	Run              *RunConfig // template for each run; the date is set per tick
	Notifier         Notifier   // defaults to LogNotifier
}

// Scheduler runs the pipeline on a cron schedule for the day before each tick.
type Scheduler struct {
	cfg   SchedulerConfig
	log   logger.Logger
	cron  *cron.Cron
	run   runFunc
	sleep func(ctx context.Context, d time.Duration) error
}

// NewScheduler validates cfg and returns a Scheduler that is not yet started.
func NewScheduler(log *logger.LoggerImpl, cfg SchedulerConfig) (*Scheduler, error) {
	if err := helper.ValidateStructIsPopulated(cfg); err != nil {
		return nil, err
	}
	if cfg.Run == nil {
		return nil, errors.New("nil pointer to run config supplied")
	}
	if cfg.Retries < 0 {
		return nil, fmt.Errorf("retries must not be negative; got %v", cfg.Retries)
	}
	if _, err := cron.ParseStandard(cfg.Cron); err != nil {
		return nil, errors.Wrapf(err, "invalid cron schedule %q", cfg.Cron)
	}
	if cfg.Notifier == nil {
		cfg.Notifier = LogNotifier{Log: log}
	}
	cl := cronLogger{log: log}
	return &Scheduler{
		cfg:   cfg,
		log:   log,
		cron:  cron.New(cron.WithLogger(cl), cron.WithChain(cron.SkipIfStillRunning(cl))),
		run:   RunPipeline,
		sleep: sleepContext,
	}, nil
}

// LogicalDateForTick returns the calendar day before tick, in tick's location.
func LogicalDateForTick(tick time.Time) string {
	return tick.AddDate(0, 0, -1).Format(constants.LogicalDateFormat)
}

// RunOnce runs the pipeline for the logical date of tick, retrying failures.
// After the final failure the Notifier is called and the error returned.
func (s *Scheduler) RunOnce(ctx context.Context, tick time.Time) error {
	date := LogicalDateForTick(tick)
	c := *s.cfg.Run
	c.Pipeline.LogicalDate = date
	c.Step = constants.StepAll
	var err error
	for attempt := 0; attempt <= s.cfg.Retries; attempt++ { // for each try...
		if attempt > 0 {
			s.log.Warn(fmt.Sprintf("retrying run for %v in %v (attempt %v of %v)", date, s.cfg.RetryDelay, attempt+1, s.cfg.Retries+1))
			if e := s.sleep(ctx, s.cfg.RetryDelay); e != nil {
				err = e
				break
			}
		}
		if err = s.run(ctx, &c); err == nil {
			s.log.Info("scheduled run for ", date, " complete")
			return nil
		}
		s.log.Error("scheduled run for ", date, " failed: ", err)
	}
	s.cfg.Notifier.Notify(ctx, date, err)
	return err
}

// Start adds the job to cron and starts it. Jobs use ctx and are skipped while a previous one runs.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.cfg.Cron, func() {
		_ = s.RunOnce(ctx, time.Now())
	}); err != nil {
		return errors.Wrap(err, "failed to add cron job")
	}
	s.cron.Start()
	if entries := s.cron.Entries(); len(entries) > 0 {
		s.log.Info("next run scheduled at: ", entries[0].Next.Format(time.RFC3339))
	}
	return nil
}

// Stop stops cron and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// RunScheduler starts the scheduler and blocks until SIGINT.
func RunScheduler(cfg SchedulerConfig) error {
	if err := helper.ValidateStructIsPopulated(cfg); err != nil {
		return err
	}
	log := logger.NewLogger(constants.ServiceName, cfg.LogLevel, cfg.StackDumpOnPanic)
	s, err := NewScheduler(log, cfg)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err = s.Start(ctx); err != nil {
		return err
	}
	chanOS := make(chan os.Signal, 1)
	signal.Notify(chanOS, os.Interrupt)
	defer signal.Stop(chanOS)
	<-chanOS
	log.Info("Shutting down scheduler...")
	cancel()
	s.Stop()
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// cronLogger adapts logger.Logger to cron.Logger.
type cronLogger struct {
	log logger.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.log.Debug(append([]interface{}{"cron: ", msg, " "}, keysAndValues...)...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.log.Error(append([]interface{}{"cron: ", msg, ": ", err, " "}, keysAndValues...)...)
}
