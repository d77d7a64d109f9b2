package cmd

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/okeeper/okeeper/internal/logger"
	"github.com/okeeper/okeeper/internal/outreach"
	"github.com/okeeper/okeeper/internal/reminder"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var followUpCmd = &cobra.Command{
	Use:   "followup [record-id|deep-link]",
	Short: "Record a follow-up for a tracked outreach",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		followUp(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(followUpCmd)

	followUpCmd.Flags().StringP("message", "m", "", "the follow-up message that was sent")
	followUpCmd.Flags().BoolP("force", "f", false, "record the follow-up even before the send threshold")
}

func followUp(cmd *cobra.Command, args []string) {
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

	st, err := openStore(ctx, config)
	if err != nil {
		logger.Fatal("opening the record store", zap.Error(err))
	}

	lifecycle := outreach.New(st, logger)

	id := ""
	if len(args) == 1 {
		id = resolveRecordArg(args[0])
	}

	if id == "" {
		id, err = selectEligibleRecord(ctx, lifecycle, owner, sendAfterDays(config))
		if err != nil {
			logger.Fatal("selecting a record", zap.Error(err))
		}
	}

	rec, err := lifecycle.Get(ctx, owner, id)
	if err != nil {
		logger.Fatal("fetching the record", zap.String("record_id", id), zap.Error(err))
	}

	force := strings.EqualFold(cmd.Flag("force").Value.String(), "true")
	if !force && !rec.FollowedUp && !lifecycle.IsFollowUpEligible(rec, sendAfterDays(config), time.Now()) {
		logger.Fatal("record is not yet eligible for a follow-up",
			zap.String("record_id", id),
			zap.Int("days_since_contact", lifecycle.DaysSinceContact(rec, time.Now())),
			zap.Int("send_after_days", sendAfterDays(config)),
			zap.String("hint", "pass --force to record it anyway"),
		)
	}

	message := cmd.Flag("message").Value.String()
	if message == "" {
		logger.Fatal("message is required (--message)")
	}

	if err := lifecycle.RecordFollowUp(ctx, owner, id, message); err != nil {
		logger.Fatal("recording follow-up", zap.String("record_id", id), zap.Error(err))
	}

	logger.Info("follow-up tracked",
		zap.String("record_id", id),
		zap.String("contact", rec.ContactName),
	)
}

// resolveRecordArg accepts either a raw record ID or a reminder deep link
// (okeeper://followup?recordId=<id>).
func resolveRecordArg(arg string) string {
	if id, ok := reminder.ResolveWakeUp(arg); ok {
		return id
	}

	return strings.TrimSpace(arg)
}

func selectEligibleRecord(ctx context.Context, lifecycle *outreach.Lifecycle, owner string, minimumDays int) (string, error) {
	records, err := lifecycle.ListOutreach(ctx, owner)
	if err != nil {
		return "", err
	}

	now := time.Now()
	eligible := make([]*outreach.Record, 0, len(records))
	items := make([]string, 0, len(records))

	for _, rec := range records {
		if !lifecycle.IsFollowUpEligible(rec, minimumDays, now) {
			continue
		}

		eligible = append(eligible, rec)
		items = append(items, fmt.Sprintf("%s / sent %s / %d days ago",
			rec.ContactName,
			rec.SentAt.Format("2006-01-02"),
			lifecycle.DaysSinceContact(rec, now),
		))
	}

	if len(eligible) == 0 {
		return "", fmt.Errorf("no records are eligible for a follow-up")
	}

	prompt := promptui.Select{
		Label: "Choose a contact to follow up with and press ENTER",
		Items: items,
	}

	idx, _, err := prompt.Run()
	if err != nil {
		return "", err
	}

	return eligible[idx].ID, nil
}
