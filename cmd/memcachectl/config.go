package main

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/dropbox/gomemcache/dlog"
	"github.com/dropbox/gomemcache/errors"
	"github.com/dropbox/gomemcache/memcache"
	"github.com/dropbox/gomemcache/net2"
)

const defaultPort = 11211

// Registers the pool flags shared by every command.
func setupPoolFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.String("servers", "localhost:11211",
		"Comma separated host:port list; the order defines the shard ids")
	flags.String("shard-func", "modulo", "Key to shard mapping (modulo, jump)")
	flags.Duration("dial-timeout", time.Second, "Timeout for connecting to a server")
	flags.Duration("read-timeout", 0, "Timeout for every socket read (0 disables)")
	flags.Duration("write-timeout", 0, "Timeout for every socket write (0 disables)")
	flags.Duration("tcp-user-timeout", 0, "TCP_USER_TIMEOUT for every socket (linux only, 0 disables)")
	flags.Bool("eager-connect", false, "Connect to every server before running the command")
	flags.String("log-level", "WARN", "Log level (DEBUG, INFO, WARN, ERROR)")
	flags.Bool("metrics", false, "Print client metrics in the Prometheus format after the command")
}

// Loads .env files and binds MEMCACHECTL_* environment variables.
func initConfig() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	viper.SetEnvPrefix("memcachectl")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// Binds the command's flags (including inherited ones) to viper.
func bindFlags(cmd *cobra.Command) error {
	var bindErr error
	cmd.Flags().VisitAll(func(flag *pflag.Flag) {
		if err := viper.BindPFlag(flag.Name, flag); err != nil && bindErr == nil {
			bindErr = errors.Wrapf(err, "Failed to bind flag %s", flag.Name)
		}
	})
	return bindErr
}

// Builds the pool configuration from viper.
func loadPoolConfig() (memcache.Config, error) {
	config := memcache.Config{
		Options: net2.ConnectionOptions{
			DialTimeout:    viper.GetDuration("dial-timeout"),
			ReadTimeout:    viper.GetDuration("read-timeout"),
			WriteTimeout:   viper.GetDuration("write-timeout"),
			TCPUserTimeout: viper.GetDuration("tcp-user-timeout"),
		},
		EagerConnect: viper.GetBool("eager-connect"),
	}

	for _, hostPort := range strings.Split(viper.GetString("servers"), ",") {
		hostPort = strings.TrimSpace(hostPort)
		if hostPort == "" {
			continue
		}
		host, port, err := net2.SplitHostPortWithDefault(hostPort, defaultPort)
		if err != nil {
			return memcache.Config{}, err
		}
		config.Servers = append(
			config.Servers,
			memcache.ServerAddress{Host: host, Port: port})
	}

	switch shardFunc := strings.ToLower(viper.GetString("shard-func")); shardFunc {
	case "", "modulo":
		config.ShardFunc = memcache.ModuloShardFunc
	case "jump":
		config.ShardFunc = memcache.JumpShardFunc
	default:
		return memcache.Config{}, errors.Newf("Unknown shard function %q", shardFunc)
	}

	if err := config.Validate(); err != nil {
		return memcache.Config{}, err
	}
	return config, nil
}

// Applies the configured log level to the client's loggers.
func configureLogging(loggers ...*dlog.Logger) error {
	level, err := dlog.ParseLevel(viper.GetString("log-level"))
	if err != nil {
		return err
	}
	for _, logger := range loggers {
		logger.SetLevel(level)
	}
	return nil
}
