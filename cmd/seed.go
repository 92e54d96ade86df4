package cmd

import (
	"fmt"

	"drivendev/content"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Write the bundled week content into the configured store",
	Long: `seed replaces the questions, prompts and content blocks of every bundled
week in the store selected by STORE_DRIVER. Conversations and progress are
left alone.`,
	RunE: runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a := bootstrap(ctx)
	defer a.close()

	if a.cfg.StoreDriver == driverMemory {
		return fmt.Errorf("nothing to seed: STORE_DRIVER is %q", driverMemory)
	}
	if err := a.openStores(ctx); err != nil {
		a.logger.Logger(ctx).Error("[Seed] Could not open stores", zap.Error(err))
		return err
	}

	n, err := content.SeedStore(ctx, a.writer)
	if err != nil {
		a.logger.Logger(ctx).Error("[Seed] Could not seed content", zap.Error(err))
		return err
	}
	a.logger.Logger(ctx).Info("[Seed] Week content written", zap.Int("weeks", n))
	fmt.Fprintf(cmd.OutOrStdout(), "seeded %d weeks\n", n)
	return nil
}
