package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/lionzhd/lionz/internal/data"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var (
		gids   []string
		limit  int
		offset int
	)
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show persisted downloads with their live daemon state",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.ensureApp(cmd.Context())
			if err != nil {
				return err
			}
			if len(gids) > 0 {
				views, err := a.svc.StatusFor(cmd.Context(), gids)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderStatusTable(views))
				return nil
			}
			rows, err := a.svc.Downloads(cmd.Context(), limit, offset)
			if err != nil {
				return err
			}
			printDownloads(cmd.OutOrStdout(), rows)
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&gids, "gid", nil, "Look up these GIDs instead of listing refs")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum refs to list (0 for all)")
	cmd.Flags().IntVar(&offset, "offset", 0, "Refs to skip")
	return cmd
}

func printDownloads(out io.Writer, rows []data.RefWithStatus) {
	if len(rows) == 0 {
		fmt.Fprintln(out, "No downloads")
		return
	}
	table := make([][]string, len(rows))
	for i, r := range rows {
		episode := ""
		if r.Episode != nil {
			episode = strconv.Itoa(*r.Episode)
		}
		table[i] = []string{
			strconv.FormatInt(r.ID, 10),
			string(r.MediaKind),
			strconv.Itoa(r.MediaID),
			episode,
			r.GID,
			stateLabel(r.Status),
			progressLabel(r.Status),
			humanize.Time(r.CreatedAt),
		}
	}
	fmt.Fprintln(out, renderTable(
		[]string{"ID", "Kind", "Media", "Ep", "GID", "State", "Progress", "Created"},
		table,
		[]columnAlignment{alignRight, alignLeft, alignRight, alignRight, alignLeft, alignLeft, alignRight, alignLeft},
	))
}

func renderStatusTable(views []data.StatusView) string {
	rows := make([][]string, len(views))
	for i, v := range views {
		rows[i] = []string{v.GID, stateLabel(v), progressLabel(v), speedLabel(v)}
	}
	return renderTable(
		[]string{"GID", "State", "Progress", "Speed"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight},
	)
}

func stateLabel(v data.StatusView) string {
	if v.Failed() {
		return string(v.State) + " (" + v.Err + ")"
	}
	if v.ErrorMessage != "" {
		return string(v.State) + ": " + v.ErrorMessage
	}
	return string(v.State)
}

func progressLabel(v data.StatusView) string {
	if v.TotalBytes <= 0 {
		return "-"
	}
	return fmt.Sprintf("%s / %s (%.0f%%)",
		humanize.Bytes(uint64(v.Completed)), humanize.Bytes(uint64(v.TotalBytes)), v.Progress()*100)
}

func speedLabel(v data.StatusView) string {
	if v.Speed <= 0 {
		return "-"
	}
	return humanize.Bytes(uint64(v.Speed)) + "/s"
}
