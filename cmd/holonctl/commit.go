package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cuemby/holontx/pkg/commit"
	"github.com/cuemby/holontx/pkg/log"
)

var commitCmd = &cobra.Command{
	Use:   "commit",
	Short: "Run the two-pass commit over every staged holon in the Nursery",
	Long: `commit restores the pool state left by prior "stage"/"load"
invocations, runs the Commit Engine's two passes (persist nodes, then
persist relationships), and reports how many holons were saved or
abandoned.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openEngine(cmd)
		if err != nil {
			return err
		}
		defer eng.close()

		resp, err := commit.Run(context.Background(), eng.facade.Context(), eng.adapter, eng.router)
		if err != nil {
			return fmt.Errorf("commit failed: %w", err)
		}

		if err := eng.save(nil); err != nil {
			return fmt.Errorf("saving session state: %w", err)
		}

		log.WithComponent("holonctl").Info().
			Str("status", string(resp.Status)).
			Int("attempted", resp.CommitsAttempted).
			Int("saved", len(resp.SavedHolons)).
			Int("abandoned", len(resp.AbandonedHolons)).
			Msg("commit finished")

		fmt.Printf("status: %s\n", resp.Status)
		fmt.Printf("attempted: %d\n", resp.CommitsAttempted)
		fmt.Printf("saved: %d\n", len(resp.SavedHolons))
		for _, h := range resp.SavedHolons {
			key, _ := h.Key()
			if h.SavedID != nil {
				fmt.Printf("  + %s -> %s\n", key, h.SavedID)
			}
		}
		fmt.Printf("abandoned: %d\n", len(resp.AbandonedHolons))
		for _, h := range resp.AbandonedHolons {
			key, _ := h.Key()
			fmt.Printf("  - %s\n", key)
		}

		if !resp.IsComplete() {
			return fmt.Errorf("commit incomplete: %d holons abandoned", len(resp.AbandonedHolons))
		}
		return nil
	},
}
