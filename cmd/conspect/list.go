package main

import (
	"io"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"conspect/internal/api"
)

func newListCommand(cli *cliContext) *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List conversion tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.loadConfig()
			if err != nil {
				return err
			}

			tasks, err := newDaemonClient(cfg).listTasks(cmd.Context(), status)
			if err != nil {
				return err
			}

			renderTaskTable(cmd.OutOrStdout(), tasks)
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "filter by status (queued, processing, completed, error)")
	return cmd
}

func renderTaskTable(out io.Writer, tasks []api.TaskView) {
	tw := table.NewWriter()
	tw.SetOutputMirror(out)
	tw.AppendHeader(table.Row{"ID", "Title", "Status", "Updated", "Detail"})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Title", WidthMax: 40},
		{Name: "Detail", WidthMax: 60},
	})

	for _, task := range tasks {
		detail := ""
		switch {
		case task.ErrorMessage != "":
			detail = task.ErrorMessage
		case task.DownloadURL != "":
			detail = task.DownloadURL
		}
		tw.AppendRow(table.Row{
			task.TaskID,
			task.Title,
			task.Status,
			task.UpdatedAt.Local().Format(time.DateTime),
			detail,
		})
	}

	if isatty.IsTerminal(os.Stdout.Fd()) {
		tw.SetStyle(table.StyleRounded)
	} else {
		style := table.StyleDefault
		style.Format.Header = text.FormatDefault
		tw.SetStyle(style)
	}
	tw.Render()
}
