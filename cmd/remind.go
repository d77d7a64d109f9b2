package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okeeper/okeeper/internal/logger"
	"github.com/okeeper/okeeper/internal/metrics"
	"github.com/okeeper/okeeper/internal/outreach"
	"github.com/okeeper/okeeper/internal/reminder"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// rescanInterval is how often the host re-reads the store to pick up
// records tracked while it is running.
const rescanInterval = time.Minute

var remindCmd = &cobra.Command{
	Use:   "remind",
	Short: "Host follow-up reminders: arm wake-ups for open records and deliver them when due",
	Run: func(_ *cobra.Command, _ []string) {
		remind()
	},
}

func init() {
	rootCmd.AddCommand(remindCmd)
}

func remind() {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	owner, err := ownerID(config)
	if err != nil {
		logger.Fatal("resolving owner", zap.Error(err))
	}

	if config.Metrics != nil && config.Metrics.Enabled {
		go func() {
			if err := metrics.Serve(config.Metrics.Port, config.Metrics.Path); err != nil {
				logger.Warn("metrics endpoint failed", zap.Error(err))
			}
		}()
	}

	st, err := openStore(ctx, config)
	if err != nil {
		logger.Fatal("opening the record store", zap.Error(err))
	}

	scheduler := reminder.NewScheduler(logger)
	defer scheduler.Stop()

	lifecycle := outreach.New(st, logger,
		outreach.WithScheduler(scheduler),
		outreach.WithFollowUpDelay(followUpDelay(config)),
	)

	notifier, err := newNotifier(config, logger)
	if err != nil {
		logger.Fatal("building notifier", zap.Error(err))
	}

	delivered := make(map[string]bool)

	armed, err := armOpenRecords(ctx, lifecycle, scheduler, owner, followUpDelay(config), delivered)
	if err != nil {
		logger.Fatal("arming reminders for open records", zap.Error(err))
	}

	logger.Info("reminder host started",
		zap.String("owner", owner),
		zap.Int("armed", armed),
	)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	rescan := time.NewTicker(rescanInterval)
	defer rescan.Stop()

	for {
		select {
		case event, ok := <-scheduler.Fired():
			if !ok {
				return
			}
			delivered[event.RecordID] = true
			deliver(ctx, lifecycle, notifier, owner, event, logger)
		case <-rescan.C:
			// Pick up records tracked while the host is running. A store
			// hiccup here must not kill the host.
			if _, err := armOpenRecords(ctx, lifecycle, scheduler, owner, followUpDelay(config), delivered); err != nil {
				logger.Warn("rescanning open records", zap.Error(err))
			}
		case <-stop:
			logger.Info("exiting", zap.String("reason", "signal received"))
			return
		}
	}
}

// armOpenRecords arms a wake-up for every record still waiting on a
// follow-up. In-process timers do not survive restarts, so the host
// re-derives them from the store on startup and on every rescan. Records
// whose reminder already fired this session are skipped so rescans do not
// nag about them again.
func armOpenRecords(ctx context.Context, lifecycle *outreach.Lifecycle, scheduler *reminder.Scheduler, owner string, delay time.Duration, delivered map[string]bool) (int, error) {
	records, err := lifecycle.ListOutreach(ctx, owner)
	if err != nil {
		return 0, err
	}

	armed := 0
	for _, rec := range records {
		if rec.FollowedUp || delivered[rec.ID] {
			continue
		}

		// Past-due records get the scheduler's minimum delay via clamping.
		remaining := time.Until(rec.SentAt.Add(delay))
		if err := scheduler.Arm(rec.ID, rec.ContactName, remaining); err != nil {
			return armed, err
		}
		armed++
	}

	return armed, nil
}

// deliver re-checks the record before presenting the reminder. A reminder
// that fired for an already followed-up record is stale and dropped.
func deliver(ctx context.Context, lifecycle *outreach.Lifecycle, notifier reminder.Notifier, owner string, event reminder.Event, logger *zap.Logger) {
	recordID, ok := reminder.ResolveWakeUp(event.Payload)
	if !ok {
		logger.Warn("dropping wake-up with foreign payload", zap.String("payload", event.Payload))
		return
	}

	rec, err := lifecycle.Get(ctx, owner, recordID)
	if err != nil {
		logger.Warn("fetching record for fired reminder", zap.String("record_id", recordID), zap.Error(err))
		return
	}

	if rec.FollowedUp {
		metrics.RemindersStale.Inc()
		logger.Debug("dropping stale reminder", zap.String("record_id", recordID))
		return
	}

	if err := notifier.Notify(event); err != nil {
		logger.Warn("delivering reminder failed",
			zap.String("record_id", recordID),
			zap.Error(err),
		)
	}
}
