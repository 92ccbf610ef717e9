package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/kvops/cache"
)

var errKeyNotFound = errors.New("key not found")

func (r *rootCommand) cacheCommand() *cobra.Command {
	var opts cacheOptions

	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Store, read and replay values in the instrumented cache",
	}
	cmd.PersistentFlags().StringVar(&opts.backend, "backend", "redis", "store backend: redis or memory (memory is per process)")
	cmd.PersistentFlags().BoolVar(&opts.instrumentReads, "instrument-reads", false,
		"also count and record get calls as "+cache.DefaultNamespace+"."+cache.OpRetrieve)

	cmd.AddCommand(
		r.cacheStoreCommand(&opts),
		r.cacheGetCommand(&opts),
		r.cacheReplayCommand(&opts),
	)
	return cmd
}

func (r *rootCommand) cacheStoreCommand(opts *cacheOptions) *cobra.Command {
	var typed, replay bool

	cmd := &cobra.Command{
		Use:   "store VALUE...",
		Short: "Store each value under a new key and print the keys",
		Long: `Store each value under a freshly generated key and print one key per line.

The Redis database is flushed first, which removes every key in it and resets
all call counters and history. Use --keep to append to an existing session.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := r.openCache(ctx, *opts)
			if err != nil {
				return err
			}
			defer c.Close()

			for _, arg := range args {
				key, err := c.Store(ctx, parseValue(arg, typed))
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), key)
			}
			if replay {
				return cache.Replay(ctx, cmd.OutOrStdout(), c, cache.OpStore)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&opts.keep, "keep", false, "do not flush the Redis database first")
	cmd.Flags().BoolVar(&typed, "typed", false, "store integer and float arguments as numbers")
	cmd.Flags().BoolVar(&replay, "replay", false, "print the store call history afterwards")
	return cmd
}

// parseValue returns arg as a string, or as int64 or float64 when typed is set
// and arg parses as one.
func parseValue(arg string, typed bool) any {
	if !typed {
		return arg
	}
	if n, err := strconv.ParseInt(arg, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(arg, 64); err == nil {
		return f
	}
	return arg
}

func (r *rootCommand) cacheGetCommand(opts *cacheOptions) *cobra.Command {
	var as string

	cmd := &cobra.Command{
		Use:   "get KEY",
		Short: "Print the value stored under KEY",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			o := *opts
			o.keep = true
			c, err := r.openCache(ctx, o)
			if err != nil {
				return err
			}
			defer c.Close()

			key := args[0]
			var (
				out any
				ok  bool
			)
			switch as {
			case "raw":
				var b []byte
				b, ok, err = c.Retrieve(ctx, key)
				out = strconv.Quote(string(b))
			case "text":
				out, ok, err = c.RetrieveText(ctx, key)
			case "int":
				out, ok, err = c.RetrieveInt(ctx, key)
			case "float":
				out, ok, err = c.RetrieveFloat(ctx, key)
			default:
				return fmt.Errorf("unknown --as %q: want raw, text, int or float", as)
			}
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: %s", errKeyNotFound, key)
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&as, "as", "text", "decode the value as raw, text, int or float")
	return cmd
}

func (r *rootCommand) cacheReplayCommand(opts *cacheOptions) *cobra.Command {
	var op string

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Print the call count and input/output history of an operation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			o := *opts
			o.keep = true
			c, err := r.openCache(ctx, o)
			if err != nil {
				return err
			}
			defer c.Close()

			return cache.Replay(ctx, cmd.OutOrStdout(), c, op)
		},
	}
	cmd.Flags().StringVar(&op, "op", cache.OpStore, "operation to replay: store, or retrieve with --instrument-reads")
	return cmd
}
