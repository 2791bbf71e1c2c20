package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newShowCommand(cli *cliContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <task-id>",
		Short: "Show one task in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.loadConfig()
			if err != nil {
				return err
			}

			view, err := newDaemonClient(cfg).getTask(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Task:       %s\n", view.TaskID)
			fmt.Fprintf(out, "Title:      %s\n", view.Title)
			fmt.Fprintf(out, "Link:       %s\n", view.VideoLink)
			fmt.Fprintf(out, "Status:     %s\n", view.Status)
			fmt.Fprintf(out, "Created:    %s\n", view.CreatedAt.Local().Format(time.DateTime))
			fmt.Fprintf(out, "Updated:    %s\n", view.UpdatedAt.Local().Format(time.DateTime))
			if view.ErrorMessage != "" {
				fmt.Fprintf(out, "Error:      %s\n", view.ErrorMessage)
			}
			if view.DownloadURL != "" {
				fmt.Fprintf(out, "Download:   %s\n", view.DownloadURL)
			}
			return nil
		},
	}
}
