package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lionzhd/lionz/internal/catalog"
	"github.com/lionzhd/lionz/internal/service"
)

func newLaunchCommand(ctx *commandContext) *cobra.Command {
	var opts []string
	launchCmd := &cobra.Command{
		Use:   "launch",
		Short: "Start downloads on the daemon",
	}
	launchCmd.PersistentFlags().StringArrayVarP(&opts, "option", "o", nil, "Daemon option override key=value (repeatable)")

	launchCmd.AddCommand(&cobra.Command{
		Use:   "movie <vod-id>",
		Short: "Download one movie",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseInts(args)
			if err != nil {
				return err
			}
			overrides, err := parseOptions(opts)
			if err != nil {
				return err
			}
			a, err := ctx.ensureApp(cmd.Context())
			if err != nil {
				return err
			}
			item, err := a.resolver.Movie(cmd.Context(), ids[0])
			if err != nil {
				return err
			}
			res, err := a.svc.Launch(cmd.Context(), item, overrides)
			if err != nil {
				return err
			}
			printLaunch(cmd.OutOrStdout(), res)
			return nil
		},
	})

	launchCmd.AddCommand(&cobra.Command{
		Use:   "episodes <series-id> <season:episode>...",
		Short: "Download one or more episodes of a series in a single batch",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseInts(args[:1])
			if err != nil {
				return err
			}
			refs, err := parseEpisodeRefs(args[1:])
			if err != nil {
				return err
			}
			overrides, err := parseOptions(opts)
			if err != nil {
				return err
			}
			a, err := ctx.ensureApp(cmd.Context())
			if err != nil {
				return err
			}
			items, resolveErrs, err := a.resolver.Episodes(cmd.Context(), ids[0], refs)
			if err != nil {
				return err
			}
			outcomes, err := service.LaunchResolved(cmd.Context(), a.svc, items, resolveErrs, overrides)
			if err != nil {
				return err
			}
			failed := 0
			for _, o := range outcomes {
				if !o.OK() {
					failed++
					fmt.Fprintf(cmd.OutOrStdout(), "%s: error: %v\n", args[1+o.Index], o.Err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: ", args[1+o.Index])
				printLaunch(cmd.OutOrStdout(), o.Result)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d episodes failed", failed, len(outcomes))
			}
			return nil
		},
	})
	return launchCmd
}

func printLaunch(out io.Writer, res *service.LaunchResult) {
	if res.AlreadyActive {
		fmt.Fprintf(out, "already active %s (%s)\n", res.GID, res.Path)
		return
	}
	fmt.Fprintf(out, "started %s -> %s\n", res.GID, res.Path)
}

func parseInts(args []string) ([]int, error) {
	out := make([]int, len(args))
	for i, a := range args {
		v, err := strconv.Atoi(a)
		if err != nil || v <= 0 {
			return nil, fmt.Errorf("invalid id %q", a)
		}
		out[i] = v
	}
	return out, nil
}

// parseEpisodeRefs reads "season:episode" pairs.
func parseEpisodeRefs(args []string) ([]catalog.EpisodeRef, error) {
	out := make([]catalog.EpisodeRef, 0, len(args))
	for _, a := range args {
		s, e, ok := strings.Cut(a, ":")
		season, err1 := strconv.Atoi(s)
		episode, err2 := strconv.Atoi(e)
		if !ok || err1 != nil || err2 != nil {
			return nil, fmt.Errorf("invalid episode %q (want season:episode)", a)
		}
		out = append(out, catalog.EpisodeRef{Season: season, Episode: episode})
	}
	return out, nil
}

// parseOptions reads key=value overrides. Values stay strings; the daemon
// takes every option as a string.
func parseOptions(kvs []string) (map[string]any, error) {
	if len(kvs) == 0 {
		return nil, nil
	}
	out := make(map[string]any, len(kvs))
	for _, kv := range kvs {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("invalid option %q (want key=value)", kv)
		}
		out[strings.TrimSpace(k)] = v
	}
	return out, nil
}
