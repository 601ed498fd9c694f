package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/espelita/portfolio/backend/internal/service/session"
)

func newSessionCmd(a *app) *cobra.Command {
	var reset bool

	cmd := &cobra.Command{
		Use:   "session",
		Short: "Print (or reset) the persisted chat session id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			scope, err := a.fileScope()
			if err != nil {
				return err
			}

			if reset {
				if err := scope.Clear(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "cleared %s\n", scope.Path())
				return nil
			}

			id, err := session.NewAccessor(scope).SessionID(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}
	cmd.Flags().BoolVar(&reset, "reset", false, "forget the stored id so the next ask starts a new conversation")
	return cmd
}
