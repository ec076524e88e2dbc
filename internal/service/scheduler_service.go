package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// SchedulerService runs the daily reminder job on a cron clock.
type SchedulerService struct {
	cron   *cron.Cron
	logger *zerolog.Logger
}

func NewSchedulerService(loc *time.Location, logger *zerolog.Logger) *SchedulerService {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	cl := cronLogger{logger: logger}
	return &SchedulerService{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithSeconds(),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		logger: logger,
	}
}

// ScheduleDaily registers job to run every day at timeStr (HH:MM). The job
// context is cancelled after timeout.
func (s *SchedulerService) ScheduleDaily(timeStr string, timeout time.Duration, job func(ctx context.Context) error) (cron.EntryID, error) {
	spec, err := buildDailySpec(timeStr)
	if err != nil {
		return 0, err
	}
	return s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		started := time.Now()
		if err := job(ctx); err != nil {
			s.logger.Error().Err(err).Str("at", timeStr).Msg("daily job failed")
			return
		}
		s.logger.Info().Dur("took", time.Since(started)).Str("at", timeStr).Msg("daily job done")
	})
}

// Next reports when the entry runs next; zero before Start.
func (s *SchedulerService) Next(id cron.EntryID) time.Time {
	return s.cron.Entry(id).Next
}

func (s *SchedulerService) Start() {
	s.cron.Start()
}

func (s *SchedulerService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// ValidateDailyTime reports whether timeStr is a usable HH:MM value.
func ValidateDailyTime(timeStr string) error {
	_, err := buildDailySpec(timeStr)
	return err
}

func buildDailySpec(timeStr string) (string, error) {
	hourPart, minutePart, ok := strings.Cut(strings.TrimSpace(timeStr), ":")
	if !ok {
		return "", fmt.Errorf("invalid time %q, expected HH:MM", timeStr)
	}
	hour, err := strconv.Atoi(hourPart)
	if err != nil || hour < 0 || hour > 23 {
		return "", fmt.Errorf("invalid hour in %q", timeStr)
	}
	minute, err := strconv.Atoi(minutePart)
	if err != nil || minute < 0 || minute > 59 {
		return "", fmt.Errorf("invalid minute in %q", timeStr)
	}
	// second minute hour dom month dow
	return fmt.Sprintf("0 %d %d * * *", minute, hour), nil
}

// cronLogger routes cron's own logging into zerolog.
type cronLogger struct {
	logger *zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
