package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lionzhd/lionz/internal/cache"
	"github.com/lionzhd/lionz/internal/data"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the upstream metadata cache",
	}
	cacheCmd.AddCommand(newCacheInvalidateCommand(ctx))
	cacheCmd.AddCommand(newCachePurgeCommand(ctx))
	return cacheCmd
}

func newCacheInvalidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "invalidate <movie|series> <id>",
		Short: "Drop the cached metadata of one item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := data.ParseMediaKind(args[0])
			if err != nil {
				return err
			}
			ids, err := parseInts(args[1:])
			if err != nil {
				return err
			}
			a, err := ctx.ensureApp(cmd.Context())
			if err != nil {
				return err
			}
			if err := a.metadata.Invalidate(cmd.Context(), kind, ids[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "invalidated %s %d\n", kind, ids[0])
			return nil
		},
	}
}

func newCachePurgeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "Delete expired entries from the SQL cache backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.ensureApp(cmd.Context())
			if err != nil {
				return err
			}
			store, ok := a.store.(*cache.SQLStore)
			if !ok {
				return errors.New("cache purge requires CACHE_BACKEND=sql; the memory cache expires entries on read")
			}
			n, err := store.Purge(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "purged %d expired entries\n", n)
			return nil
		},
	}
}
