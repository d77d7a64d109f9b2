package cmd

import (
	"context"
	"encoding/json"
	"log"
	"os"

	"github.com/okeeper/okeeper/internal/logger"
	"github.com/okeeper/okeeper/internal/outreach"
	"github.com/okeeper/okeeper/internal/ranking"
	"github.com/okeeper/okeeper/internal/recommend"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Rank a candidate pool against a profile and print the best matches",
	Run: func(cmd *cobra.Command, _ []string) {
		runRecommend(cmd)
	},
}

func init() {
	rootCmd.AddCommand(recommendCmd)

	recommendCmd.Flags().String("profile-file", "", "file with the free-text profile to match against")
	recommendCmd.Flags().String("candidates-file", "", "json file with the candidate pool")
	recommendCmd.Flags().String("school", "", "keep only candidates with this affiliation")
	recommendCmd.Flags().IntP("top-k", "k", 0, "how many candidates to recommend (default from config)")
	recommendCmd.Flags().Bool("include-contacted", false, "do not drop candidates you already have outreach records for")
}

func runRecommend(cmd *cobra.Command) {
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

	profileFile := cmd.Flag("profile-file").Value.String()
	candidatesFile := cmd.Flag("candidates-file").Value.String()
	if profileFile == "" || candidatesFile == "" {
		logger.Fatal("both --profile-file and --candidates-file are required")
	}

	profile, err := os.ReadFile(profileFile)
	if err != nil {
		logger.Fatal("reading profile", zap.Error(err))
	}

	candidates, err := loadCandidates(candidatesFile)
	if err != nil {
		logger.Fatal("reading candidates", zap.Error(err))
	}

	logger.Info("loaded candidate pool", zap.Int("count", len(candidates)))

	st, err := openStore(ctx, config)
	if err != nil {
		logger.Fatal("opening the record store", zap.Error(err))
	}
	lifecycle := outreach.New(st, logger)

	steps := []recommend.Filter{
		recommend.NewAffiliation(cmd.Flag("school").Value.String()),
		recommend.NewAlreadyContacted(lifecycle, owner),
	}
	if cmd.Flag("include-contacted").Value.String() == "true" {
		recommend.DisableByName(steps, "already_contacted", "flag is set")
	}

	filtered, err := recommend.Run(ctx, logger, steps, candidates)
	if err != nil {
		logger.Fatal("filtering candidates", zap.Error(err))
	}

	if len(filtered) == 0 {
		logger.Info("exiting", zap.String("reason", "no candidates left after filters"))
		return
	}

	client, err := newRankingClient(ctx, config.Ranking, logger)
	if err != nil {
		logger.Fatal("building ranking client", zap.Error(err))
	}

	k, _ := cmd.Flags().GetInt("top-k")
	if k <= 0 {
		k = topK(config)
	}

	engine := recommend.NewEngine(client, logger)
	recommended := engine.Recommend(ctx, string(profile), filtered, k)

	pretty, _ := json.MarshalIndent(recommended, "", "  ")
	os.Stdout.Write(append(pretty, '\n'))

	logger.Info("recommendations ready", zap.Int("count", len(recommended)))
}

// loadCandidates accepts either a bare json array or an object with a
// top-level "candidates" key.
func loadCandidates(path string) ([]ranking.Candidate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var decoded any
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, err
	}

	if wrapper, ok := decoded.(map[string]any); ok {
		decoded = wrapper["candidates"]
	}

	var candidates []ranking.Candidate
	if err := mapstructure.Decode(decoded, &candidates); err != nil {
		return nil, err
	}

	return candidates, nil
}
