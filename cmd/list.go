package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/okeeper/okeeper/internal/logger"
	"github.com/okeeper/okeeper/internal/outreach"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List tracked outreach records, most recent first",
	Run: func(_ *cobra.Command, _ []string) {
		list()
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func list() {
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

	records, err := lifecycle.ListOutreach(ctx, owner)
	if err != nil {
		logger.Fatal("listing outreach records", zap.Error(err))
	}

	if len(records) == 0 {
		logger.Info("no outreach records yet")
		return
	}

	now := time.Now()
	promptDays := promptAfterDays(config)

	for _, rec := range records {
		status := "sent"
		if rec.FollowedUp {
			status = "followed up"
		} else if lifecycle.IsFollowUpEligible(rec, promptDays, now) {
			status = "follow-up due"
		}

		fmt.Printf("%s  %-24s  %s  (%d days ago)  [%s]\n",
			rec.SentAt.Format("2006-01-02"),
			rec.ContactName,
			rec.ID,
			lifecycle.DaysSinceContact(rec, now),
			status,
		)
	}

	logger.Info("listed outreach records", zap.Int("count", len(records)))
}
