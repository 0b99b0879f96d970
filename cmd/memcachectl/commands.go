package main

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"

	"github.com/dropbox/gomemcache/errors"
	"github.com/dropbox/gomemcache/memcache"
)

var dumper = spew.ConfigState{
	Indent:                  "  ",
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
}

var getCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Fetch a value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		resp := client.Get(args[0])
		if resp.Error() != nil {
			return resp.Error()
		}
		out := cmd.OutOrStdout()
		if !resp.Found() {
			fmt.Fprintf(out, "%s: not found\n", resp.Key())
			return nil
		}
		fmt.Fprintf(out, "%s (%s): ", resp.Key(), resp.Tag())
		writeValue(out, resp.Value())
		return nil
	},
}

var mgetCmd = &cobra.Command{
	Use:   "mget <key>...",
	Short: "Fetch several values in one round trip per server",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		resp := client.GetMulti(args)
		if resp.Error() != nil {
			return resp.Error()
		}
		out := cmd.OutOrStdout()
		values := resp.Values()
		for _, key := range args {
			value, ok := values[key]
			if !ok {
				fmt.Fprintf(out, "%s: not found\n", key)
				continue
			}
			fmt.Fprintf(out, "%s: ", key)
			writeValue(out, value)
		}
		return nil
	},
}

func newStoreCmd(
	name string,
	short string,
	store func(*memcache.ShardedClient, *memcache.Item) memcache.MutateResponse) *cobra.Command {

	cmd := &cobra.Command{
		Use:   name + " <key> <value>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			valueType, _ := cmd.Flags().GetString("type")
			expiration, _ := cmd.Flags().GetUint32("exp")

			value, err := parseValue(valueType, args[1])
			if err != nil {
				return err
			}

			resp := store(client, &memcache.Item{
				Key:        args[0],
				Value:      value,
				Expiration: expiration,
			})
			if resp.Error() != nil {
				return resp.Error()
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", resp.Key(), resp.Status())
			return nil
		},
	}
	cmd.Flags().StringP("type", "t", "string",
		"Value type (string, bytes, int, uint, float, bool)")
	cmd.Flags().Uint32P("exp", "e", 0,
		"Expiration in seconds, or a unix timestamp (0 never expires)")
	return cmd
}

var deleteCmd = &cobra.Command{
	Use:   "delete <key>",
	Short: "Remove a key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		resp := client.Delete(args[0])
		if resp.Error() != nil {
			return resp.Error()
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", resp.Key(), resp.Status())
		return nil
	},
}

func newCountCmd(
	name string,
	short string,
	count func(*memcache.ShardedClient, string, uint64) memcache.CountResponse) *cobra.Command {

	return &cobra.Command{
		Use:   name + " <key> [delta]",
		Short: short,
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			delta := uint64(1)
			if len(args) == 2 {
				var err error
				delta, err = strconv.ParseUint(args[1], 10, 64)
				if err != nil {
					return errors.Wrapf(err, "Invalid delta %q", args[1])
				}
			}

			resp := count(client, args[0], delta)
			if resp.Error() != nil {
				return resp.Error()
			}
			out := cmd.OutOrStdout()
			if !resp.Found() {
				fmt.Fprintf(out, "%s: not found\n", resp.Key())
				return nil
			}
			fmt.Fprintf(out, "%s: %d\n", resp.Key(), resp.Count())
			return nil
		},
	}
}

var flushCmd = &cobra.Command{
	Use:   "flush [delay]",
	Short: "Invalidate every item on every server, optionally after a delay in seconds",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var delay uint64
		if len(args) == 1 {
			var err error
			delay, err = strconv.ParseUint(args[0], 10, 32)
			if err != nil {
				return errors.Wrapf(err, "Invalid delay %q", args[0])
			}
		}
		if err := client.Flush(uint32(delay)).Error(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "OK")
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print every server's version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		resp := client.Version()
		out := cmd.OutOrStdout()
		pool := client.Pool()
		versions := resp.Versions()
		for id := 0; id < pool.NumShards(); id++ {
			if version, ok := versions[id]; ok {
				fmt.Fprintf(out, "%d %s: %s\n", id, pool.Address(id), version)
			}
		}
		return resp.Error()
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print every server's general statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		resp := client.Stat()
		out := cmd.OutOrStdout()
		pool := client.Pool()
		entries := resp.Entries()
		for id := 0; id < pool.NumShards(); id++ {
			if _, ok := entries[id]; !ok {
				continue
			}
			fmt.Fprintf(out, "%d %s:\n", id, pool.Address(id))
			names := make([]string, 0, len(entries[id]))
			for name := range entries[id] {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Fprintf(out, "  %s %s\n", name, entries[id][name])
			}
		}
		return resp.Error()
	},
}

// Converts a command line value into the Go type stored under the requested
// type.
func parseValue(valueType string, raw string) (interface{}, error) {
	switch strings.ToLower(valueType) {
	case "", "string", "str":
		return raw, nil
	case "bytes":
		return []byte(raw), nil
	case "int":
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "Invalid int value %q", raw)
		}
		return v, nil
	case "uint":
		v, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "Invalid uint value %q", raw)
		}
		return v, nil
	case "float":
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "Invalid float value %q", raw)
		}
		return v, nil
	case "bool":
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, errors.Wrapf(err, "Invalid bool value %q", raw)
		}
		return v, nil
	default:
		return nil, errors.Newf("Unknown value type %q", valueType)
	}
}

// Strings are printed as is, everything else is dumped.
func writeValue(out io.Writer, value interface{}) {
	if s, ok := value.(string); ok {
		fmt.Fprintln(out, s)
		return
	}
	dumper.Fdump(out, value)
}
