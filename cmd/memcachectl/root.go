package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dropbox/gomemcache/dlog"
	"github.com/dropbox/gomemcache/memcache"
	"github.com/dropbox/gomemcache/stats"
)

var (
	client       *memcache.ShardedClient
	statsFactory *stats.VictoriaMetricsStatsFactory
)

var RootCmd = &cobra.Command{
	Use:   "memcachectl",
	Short: "Run memcache commands against a sharded server pool",
	Long: `memcachectl routes every key to one server of the configured pool
(--servers, in shard order) and runs the requested command on it.

Options can also be set with MEMCACHECTL_<FLAG> environment variables
(e.g. MEMCACHECTL_SERVERS) or in a .env / .env.local file.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupClient(cmd)
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return teardownClient(cmd.OutOrStdout())
	},
}

func init() {
	cobra.OnInitialize(initConfig)
	setupPoolFlags(RootCmd)

	RootCmd.AddCommand(
		getCmd,
		mgetCmd,
		newStoreCmd("set", "Store a value unconditionally", (*memcache.ShardedClient).Set),
		newStoreCmd("add", "Store a value only if the key is absent", (*memcache.ShardedClient).Add),
		newStoreCmd("replace", "Store a value only if the key exists", (*memcache.ShardedClient).Replace),
		deleteCmd,
		newCountCmd("incr", "Increment a counter", (*memcache.ShardedClient).Increment),
		newCountCmd("decr", "Decrement a counter (floors at 0)", (*memcache.ShardedClient).Decrement),
		flushCmd,
		versionCmd,
		statsCmd)
}

func setupClient(cmd *cobra.Command) error {
	if err := bindFlags(cmd); err != nil {
		return err
	}
	if err := configureLogging(memcache.Logger()); err != nil {
		return err
	}

	config, err := loadPoolConfig()
	if err != nil {
		return err
	}

	statsFactory = stats.NewVictoriaMetricsStatsFactory(nil)
	client, err = memcache.NewShardedClientFromConfig(config, statsFactory)
	return err
}

func teardownClient(out io.Writer) error {
	if client == nil {
		return nil
	}
	if viper.GetBool("metrics") {
		statsFactory.WritePrometheus(out)
	}
	err := client.Close()
	client = nil
	return err
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	err := RootCmd.Execute()
	_ = dlog.Flush()
	if err != nil {
		os.Exit(1)
	}
}
