// Package scheduler runs the background reminder job: an hourly sweep that
// tells users how many cards are waiting for them.
package scheduler

import (
	"context"
	"os"
	"strconv"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/example/studyengine/internal/database"
)

// Default reminder window, overridable via NOTIFICATION_START_HOUR and
// NOTIFICATION_END_HOUR.
const (
	DefaultStartHour = 8
	DefaultEndHour   = 22
)

// Notifier delivers a due-card reminder to a user. The engine ships a
// LogNotifier; the surrounding platform plugs in its own delivery channel.
type Notifier interface {
	SendReminder(userID string, dueCount int) error
}

// LogNotifier writes reminders to the structured log. Useful as a default and
// in development.
type LogNotifier struct {
	Logger *zap.Logger
}

func (n *LogNotifier) SendReminder(userID string, dueCount int) error {
	n.Logger.Info("due cards reminder",
		zap.String("user_id", userID),
		zap.Int("due_count", dueCount),
	)
	return nil
}

// Reminders manages the scheduled reminder sweep.
type Reminders struct {
	scheduler *gocron.Scheduler
	states    *database.ReviewStateRepository
	notifier  Notifier
	logger    *zap.Logger
}

// New creates a reminder runner.
func New(states *database.ReviewStateRepository, notifier Notifier, logger *zap.Logger) *Reminders {
	return &Reminders{
		scheduler: gocron.NewScheduler(time.UTC),
		states:    states,
		notifier:  notifier,
		logger:    logger,
	}
}

// Start begins the hourly sweep without blocking.
func (r *Reminders) Start() {
	r.scheduler.Every(1).Hour().Do(r.checkAndSendReminders)
	r.scheduler.StartAsync()
}

// Stop terminates the sweep.
func (r *Reminders) Stop() {
	r.scheduler.Stop()
}

func (r *Reminders) checkAndSendReminders() {
	now := time.Now()
	startHour := hourFromEnv("NOTIFICATION_START_HOUR", DefaultStartHour)
	endHour := hourFromEnv("NOTIFICATION_END_HOUR", DefaultEndHour)

	if now.Hour() < startHour || now.Hour() > endHour {
		r.logger.Debug("outside notification window, skipping reminders",
			zap.Int("hour", now.Hour()),
			zap.Int("start", startHour),
			zap.Int("end", endHour),
		)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	counts, err := r.states.CountDueByUser(ctx, now.UTC())
	if err != nil {
		r.logger.Error("failed to count due cards", zap.Error(err))
		return
	}
	for _, c := range counts {
		if err := r.notifier.SendReminder(c.UserID, c.Due); err != nil {
			r.logger.Error("failed to send reminder",
				zap.String("user_id", c.UserID),
				zap.Error(err),
			)
		}
	}
}

// RunManualCheck forces a reminder for one user, ignoring the window.
func (r *Reminders) RunManualCheck(ctx context.Context, userID string) error {
	counts, err := r.states.CountDueByUser(ctx, time.Now().UTC())
	if err != nil {
		return err
	}
	for _, c := range counts {
		if c.UserID == userID && c.Due > 0 {
			return r.notifier.SendReminder(c.UserID, c.Due)
		}
	}
	return nil
}

func hourFromEnv(name string, fallback int) int {
	if raw := os.Getenv(name); raw != "" {
		if h, err := strconv.Atoi(raw); err == nil && h >= 0 && h <= 23 {
			return h
		}
	}
	return fallback
}
