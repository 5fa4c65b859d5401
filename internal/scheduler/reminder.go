package scheduler

import (
	"context"
	"fmt"
	"iter"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/Dan9191/payzen/internal/models"
	"github.com/Dan9191/payzen/internal/notification"
)

// DueBillScanner yields outstanding bills due within a window of today
type DueBillScanner interface {
	ScanDueBills(ctx context.Context, windowDays int) iter.Seq2[models.DueBill, error]
}

// Options configures the reminder cadence
type Options struct {
	Hour        int
	WindowDays  int
	SendTimeout time.Duration
	Location    *time.Location
}

// RunSummary describes one reminder pass
type RunSummary struct {
	RunID   uuid.UUID `json:"run_id"`
	Scanned int       `json:"scanned"`
	Sent    int       `json:"sent"`
	Failed  int       `json:"failed"`
}

// ReminderScheduler emails the owners of bills that are due soon or overdue, once a day
type ReminderScheduler struct {
	scanner  DueBillScanner
	sender   notification.Sender
	renderer *notification.Renderer
	log      *logrus.Logger
	opts     Options

	// runs are serialized so a manual trigger never overlaps the daily one
	mu sync.Mutex
}

func NewReminderScheduler(scanner DueBillScanner, sender notification.Sender, renderer *notification.Renderer, log *logrus.Logger, opts Options) *ReminderScheduler {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = 15 * time.Second
	}
	return &ReminderScheduler{
		scanner:  scanner,
		sender:   sender,
		renderer: renderer,
		log:      log,
		opts:     opts,
	}
}

// Spec returns the cron expression of the daily run
func (s *ReminderScheduler) Spec() string {
	return fmt.Sprintf("0 %d * * *", s.opts.Hour)
}

// Start schedules the daily run. The returned function stops the schedule and waits for
// an in-flight run to finish. Runs do not observe cancellation of ctx, so a run caught by
// shutdown still completes its scan.
func (s *ReminderScheduler) Start(ctx context.Context) (func(), error) {
	cronLog := cron.PrintfLogger(s.log)
	c := cron.New(
		cron.WithLocation(s.opts.Location),
		cron.WithLogger(cronLog),
		cron.WithChain(cron.Recover(cronLog)),
	)

	_, err := c.AddFunc(s.Spec(), s.scheduledRun(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to schedule reminders: %w", err)
	}

	c.Start()
	s.log.Infof("Reminder scheduler started, runs daily at %02d:00 %s", s.opts.Hour, s.opts.Location)

	return func() {
		s.log.Info("Stopping reminder scheduler")
		<-c.Stop().Done()
	}, nil
}

// scheduledRun is the cron job body. It keeps ctx values but drops its cancellation.
func (s *ReminderScheduler) scheduledRun(ctx context.Context) func() {
	runCtx := context.WithoutCancel(ctx)
	return func() {
		if _, err := s.RunOnce(runCtx); err != nil {
			s.log.Errorf("Reminder run failed: %v", err)
		}
	}
}

// RunOnce scans due bills and sends one reminder per bill. A failed send is counted and the
// scan continues; a scan error ends the run and is returned with the partial summary.
func (s *ReminderScheduler) RunOnce(ctx context.Context) (RunSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	summary := RunSummary{RunID: uuid.New()}
	runLog := s.log.WithField("run_id", summary.RunID)
	started := time.Now()
	runLog.Info("Reminder run started")

	for due, err := range s.scanner.ScanDueBills(ctx, s.opts.WindowDays) {
		if err != nil {
			runLog.WithFields(logrus.Fields{
				"scanned": summary.Scanned,
				"sent":    summary.Sent,
				"failed":  summary.Failed,
			}).Errorf("Reminder scan aborted: %v", err)
			return summary, fmt.Errorf("scan due bills: %w", err)
		}
		summary.Scanned++

		if err := s.remind(ctx, due); err != nil {
			summary.Failed++
			runLog.WithFields(logrus.Fields{
				"bill_id":     due.Bill.ID,
				"destination": due.Owner.Email,
			}).Warnf("Failed to send reminder: %v", err)
			continue
		}
		summary.Sent++
	}

	runLog.WithFields(logrus.Fields{
		"scanned":  summary.Scanned,
		"sent":     summary.Sent,
		"failed":   summary.Failed,
		"duration": time.Since(started).String(),
	}).Info("Reminder run completed")
	return summary, nil
}

func (s *ReminderScheduler) remind(ctx context.Context, due models.DueBill) error {
	intent := notification.BillReminder(due)
	msg, err := s.renderer.Render(intent)
	if err != nil {
		return err
	}
	return notification.Deliver(ctx, s.sender, s.opts.SendTimeout, intent.Destination, msg)
}
