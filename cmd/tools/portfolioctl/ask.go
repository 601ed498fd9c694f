package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/espelita/portfolio/backend/internal/service/chat"
	"github.com/espelita/portfolio/backend/internal/service/flowise"
	"github.com/espelita/portfolio/backend/internal/service/session"
)

func newAskCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask the portfolio assistant one question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.Join(args, " ")

			scope, err := a.fileScope()
			if err != nil {
				return err
			}
			sessionID, err := session.NewAccessor(scope).SessionID(cmd.Context())
			if err != nil {
				return err
			}

			client, err := flowise.NewClient(a.cfg.Flowise, a.logger)
			if err != nil {
				return err
			}

			p := chat.NewPipeline(client, sessionID, "", a.logger)
			return printResult(cmd, p.SendMessage(cmd.Context(), question))
		},
	}
}

func printResult(cmd *cobra.Command, res chat.Result) error {
	out := cmd.OutOrStdout()
	switch {
	case res.Skipped:
		return errors.New("question is empty")
	case res.Aborted:
		fmt.Fprintln(cmd.ErrOrStderr(), "aborted")
		return nil
	case res.Error != "":
		fmt.Fprintln(cmd.ErrOrStderr(), errorStyle.Render(res.Error))
		return errors.New(res.Error)
	default:
		fmt.Fprintln(out, botStyle.Render(res.Reply.Text))
		return nil
	}
}
