package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func newCatalogCommand(ctx *commandContext) *cobra.Command {
	var filter string
	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "Browse the upstream catalog",
	}
	catalogCmd.PersistentFlags().StringVar(&filter, "filter", "", "Case-insensitive name filter")

	catalogCmd.AddCommand(&cobra.Command{
		Use:   "movies",
		Short: "List movies",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.ensureApp(cmd.Context())
			if err != nil {
				return err
			}
			streams, err := a.metadata.VodStreams(cmd.Context())
			if err != nil {
				return err
			}
			var rows [][]string
			for _, s := range streams {
				if !matches(s.Name.String(), filter) {
					continue
				}
				rows = append(rows, []string{strconv.Itoa(s.StreamID.Int()), s.Name.String(), s.ContainerExtension.String()})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"ID", "Name", "Ext"}, rows, []columnAlignment{alignRight}))
			return nil
		},
	})

	catalogCmd.AddCommand(&cobra.Command{
		Use:   "series",
		Short: "List series",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.ensureApp(cmd.Context())
			if err != nil {
				return err
			}
			listing, err := a.metadata.Series(cmd.Context())
			if err != nil {
				return err
			}
			var rows [][]string
			for _, s := range listing {
				if !matches(s.Name.String(), filter) {
					continue
				}
				rows = append(rows, []string{strconv.Itoa(s.SeriesID.Int()), s.Name.String(), s.Genre.String()})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"ID", "Name", "Genre"}, rows, []columnAlignment{alignRight}))
			return nil
		},
	})
	return catalogCmd
}

func matches(name, filter string) bool {
	return filter == "" || strings.Contains(strings.ToLower(name), strings.ToLower(filter))
}
