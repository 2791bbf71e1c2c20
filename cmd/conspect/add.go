package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newAddCommand(cli *cliContext) *cobra.Command {
	var title string

	cmd := &cobra.Command{
		Use:   "add <video-link>",
		Short: "Submit a shared video link for conversion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.loadConfig()
			if err != nil {
				return err
			}

			view, err := newDaemonClient(cfg).createTask(cmd.Context(), title, args[0])
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "task %s created (%s)\n", view.TaskID, view.Title)
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "document title (derived from the link when omitted)")
	return cmd
}
