// Command holonctl is a single-node CLI driving the holon engine:
// stage holons and relationships, run the two-pass commit, bulk-load
// a bundle, inspect persisted state, and serve health/metrics
// endpoints for a space.
//
// Each invocation is its own process. Staged/transient pool contents
// that need to survive between invocations (stage now, commit later)
// are round-tripped through a state file via pkg/session; nothing else
// about a TransactionContext is persisted, since a fresh tx_id per
// invocation is sufficient — references are never serialized, only
// resolved within the process that builds them.
package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/cuemby/holontx/pkg/cache"
	"github.com/cuemby/holontx/pkg/holon"
	"github.com/cuemby/holontx/pkg/log"
	"github.com/cuemby/holontx/pkg/session"
	"github.com/cuemby/holontx/pkg/storage"
	"github.com/cuemby/holontx/pkg/txctx"
)

var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "holonctl",
	Short:   "Drive a single holon transaction engine from the command line",
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("holonctl version %s\nCommit: %s\n", Version, Commit))

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	rootCmd.PersistentFlags().String("data-dir", "./holonctl-data", "Data directory for the persistence adapter")
	rootCmd.PersistentFlags().Bool("memory", false, "Use an in-memory adapter instead of bbolt (state is lost on exit)")
	rootCmd.PersistentFlags().String("state-file", "./holonctl-data/session.json", "Where staged/transient pool state is round-tripped between invocations")
	rootCmd.PersistentFlags().String("cache-routing-policy", string(cache.BlockExternal), "Cache routing policy (BlockExternal, Combined, ProxyExternal)")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(stageCmd)
	rootCmd.AddCommand(commitCmd)
	rootCmd.AddCommand(loadCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(serveHealthCmd)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")

	log.Init(log.Config{
		Level:      log.Level(logLevel),
		JSONOutput: logJSON,
	})
}

// engine bundles together everything a subcommand needs to drive one
// transaction: the mutation facade plus the shared adapter/router it
// was built against, and where to persist its pool state on exit.
type engine struct {
	facade      *txctx.MutationFacade
	adapter     storage.Adapter
	router      *cache.CacheRequestRouter
	invalidator *cache.Invalidator
	stateFile   string
}

// openEngine builds a TransactionContext bound to a fresh tx_id,
// restoring any staged/transient pool state left by a previous
// invocation against the same state file.
func openEngine(cmd *cobra.Command) (*engine, error) {
	dataDir, _ := cmd.Flags().GetString("data-dir")
	memory, _ := cmd.Flags().GetBool("memory")
	stateFile, _ := cmd.Flags().GetString("state-file")
	policyFlag, _ := cmd.Flags().GetString("cache-routing-policy")

	var adapter storage.Adapter
	if memory {
		adapter = storage.NewMemAdapter()
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		boltAdapter, err := storage.OpenBoltAdapter(dataDir)
		if err != nil {
			return nil, fmt.Errorf("opening bolt adapter: %w", err)
		}
		adapter = boltAdapter
	}

	invalidator := cache.NewInvalidator()
	invalidator.Start()
	localCache := cache.New(adapter, invalidator)
	router := cache.NewCacheRequestRouter(localCache, cache.ServiceRoutingPolicy(policyFlag))

	tc := txctx.New(uuid.NewString(), router, adapter)
	facade := txctx.NewMutationFacade(tc)

	if f, err := os.Open(stateFile); err == nil {
		defer f.Close()
		state, err := session.Restore(f)
		if err != nil {
			return nil, fmt.Errorf("restoring state file %s: %w", stateFile, err)
		}
		session.Import(tc, state)
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("opening state file %s: %w", stateFile, err)
	}

	return &engine{facade: facade, adapter: adapter, router: router, invalidator: invalidator, stateFile: stateFile}, nil
}

// save persists e's current pool state so a later invocation can pick
// it back up. localSpaceHolon may be nil.
func (e *engine) save(localSpaceHolon *holon.HolonId) error {
	state := session.Export(e.facade.Context(), localSpaceHolon)
	if err := os.MkdirAll(parentDir(e.stateFile), 0o755); err != nil {
		return err
	}
	f, err := os.Create(e.stateFile)
	if err != nil {
		return err
	}
	defer f.Close()
	return session.Persist(f, state)
}

func (e *engine) close() error {
	e.invalidator.Stop()
	if boltAdapter, ok := e.adapter.(*storage.BoltAdapter); ok {
		return boltAdapter.Close()
	}
	return nil
}

func parentDir(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[:i]
		}
	}
	return "."
}
