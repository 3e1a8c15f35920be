package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/lionzhd/lionz/internal/data"
)

func newControlCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "control <ref-id> <pause|resume|cancel|remove|retry>",
		Short: "Apply an action to a persisted download",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid ref id %q", args[0])
			}
			action, ok := data.ParseAction(args[1])
			if !ok {
				return fmt.Errorf("unknown action %q", args[1])
			}
			a, err := ctx.ensureApp(cmd.Context())
			if err != nil {
				return err
			}
			res, err := a.svc.Control(cmd.Context(), id, action)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (was %s)\n", res.Action, res.Ref.GID, res.PreviousState)
			if res.Launch != nil {
				printLaunch(cmd.OutOrStdout(), res.Launch)
			}
			return nil
		},
	}
}

func newDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <ref-id>",
		Short: "Delete a ref and purge the daemon's result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid ref id %q", args[0])
			}
			a, err := ctx.ensureApp(cmd.Context())
			if err != nil {
				return err
			}
			if err := a.svc.Delete(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted ref %d\n", id)
			return nil
		},
	}
}
