package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"lectern/internal/config"
	"lectern/internal/deps"
	"lectern/internal/lessons"
	"lectern/internal/queue"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show queue health, lesson counts, and tool availability",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStores(func(cfg *config.Config, store *queue.Store, lessonStore *lessons.Store) error {
				out := cmd.OutOrStdout()

				health, err := store.Health(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(out, renderTable(out,
					[]string{"Jobs", "Count"},
					[][]string{
						{"pending", strconv.Itoa(health.Pending)},
						{"running", strconv.Itoa(health.Running)},
						{"completed", strconv.Itoa(health.Completed)},
						{"failed", strconv.Itoa(health.Failed)},
						{"total", strconv.Itoa(health.Total)},
					},
					[]columnAlignment{alignLeft, alignRight},
				))

				stats, err := lessonStore.Stats(cmd.Context())
				if err != nil {
					return err
				}
				lessonRows := make([][]string, 0, len(lessons.AllStatuses()))
				for _, status := range lessons.AllStatuses() {
					lessonRows = append(lessonRows, []string{string(status), strconv.Itoa(stats[status])})
				}
				fmt.Fprintln(out, renderTable(out,
					[]string{"Lessons", "Count"},
					lessonRows,
					[]columnAlignment{alignLeft, alignRight},
				))

				toolRows := make([][]string, 0, 2)
				for _, status := range deps.CheckBinaries(deps.Requirements(cfg)) {
					detail := status.Detail
					if status.Available {
						detail = "ok"
					}
					toolRows = append(toolRows, []string{status.Name, status.Command, detail})
				}
				fmt.Fprintln(out, renderTable(out,
					[]string{"Tool", "Command", "Status"},
					toolRows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}
}
