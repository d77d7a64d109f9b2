package cmd

import (
	"context"
	"log"

	"github.com/okeeper/okeeper/internal/logger"
	"github.com/okeeper/okeeper/internal/outreach"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var trackCmd = &cobra.Command{
	Use:   "track",
	Short: "Record an outreach message you sent to a contact",
	Run: func(cmd *cobra.Command, _ []string) {
		track(cmd)
	},
}

func init() {
	rootCmd.AddCommand(trackCmd)

	trackCmd.Flags().String("contact-id", "", "stable id of the contacted party")
	trackCmd.Flags().String("contact", "", "display name of the contacted party")
	trackCmd.Flags().StringP("message", "m", "", "the message that was sent")
	trackCmd.Flags().String("url", "", "optional link to the contact's public profile")
}

func track(cmd *cobra.Command) {
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

	contact := outreach.Contact{
		ID:           cmd.Flag("contact-id").Value.String(),
		Name:         cmd.Flag("contact").Value.String(),
		ReferenceURL: cmd.Flag("url").Value.String(),
	}
	message := cmd.Flag("message").Value.String()

	if contact.Name == "" {
		logger.Fatal("contact name is required (--contact)")
	}
	if contact.ID == "" {
		contact.ID = contact.Name
	}
	if message == "" {
		logger.Fatal("message is required (--message)")
	}

	st, err := openStore(ctx, config)
	if err != nil {
		logger.Fatal("opening the record store", zap.Error(err))
	}

	lifecycle := outreach.New(st, logger, outreach.WithFollowUpDelay(followUpDelay(config)))

	id, err := lifecycle.RecordOutreach(ctx, owner, contact, message)
	if err != nil {
		logger.Fatal("recording outreach", zap.Error(err))
	}

	logger.Info("outreach tracked",
		zap.String("record_id", id),
		zap.String("contact", contact.Name),
		zap.String("hint", "run 'okeeper remind' to host follow-up reminders"),
	)
}
