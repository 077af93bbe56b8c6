package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cuemby/holontx/pkg/holon"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [LOCAL_ID]",
	Short: "Read persisted holon state directly from the adapter",
	Long: `inspect reads the persistence adapter directly, bypassing any
in-flight transaction: with no argument it lists every persisted node,
with a LOCAL_ID it prints that node's properties and lineage.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := openEngine(cmd)
		if err != nil {
			return err
		}
		defer eng.close()

		ctx := context.Background()

		if len(args) == 1 {
			id := holon.Local(args[0])
			h, err := eng.adapter.GetNode(ctx, id)
			if err != nil {
				return fmt.Errorf("reading node %s: %w", id, err)
			}
			if h == nil {
				return fmt.Errorf("no such node: %s", id)
			}
			printHolon(h)
			return nil
		}

		nodes, err := eng.adapter.GetAllNodes(ctx)
		if err != nil {
			return fmt.Errorf("listing nodes: %w", err)
		}
		for _, n := range nodes {
			key := ""
			if v, ok := n.Properties["key"]; ok {
				key = v.String()
			}
			fmt.Printf("%s  key=%s\n", n.ID, key)
		}
		return nil
	},
}

func printHolon(h *holon.Holon) {
	if h.SavedID != nil {
		fmt.Printf("id: %s\n", h.SavedID)
	}
	if h.OriginalID != nil {
		fmt.Printf("predecessor: %s\n", h.OriginalID)
	}
	fmt.Printf("phase: %s  version: %d\n", h.Phase, h.Version)
	for name, value := range h.PropertyMap {
		fmt.Printf("  %s = %s\n", name, value.String())
	}
}
