package main

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"lectern/internal/config"
	"lectern/internal/lessons"
	"lectern/internal/queue"
)

// newEnqueueCommand injects an upload-confirmed event: it registers the lesson
// record when needed and queues the transcode job.
func newEnqueueCommand(ctx *commandContext) *cobra.Command {
	var lessonID string

	cmd := &cobra.Command{
		Use:   "enqueue <source-key>",
		Short: "Queue a confirmed lesson upload for processing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sourceKey := strings.TrimSpace(args[0])
			if sourceKey == "" {
				return fmt.Errorf("source key is required")
			}
			if strings.TrimSpace(lessonID) == "" {
				lessonID = uuid.NewString()
			}

			return ctx.withStores(func(cfg *config.Config, store *queue.Store, lessonStore *lessons.Store) error {
				lesson, err := lessonStore.GetByID(cmd.Context(), lessonID)
				if err != nil {
					return err
				}
				if lesson == nil {
					if _, err := lessonStore.Create(cmd.Context(), lessonID, sourceKey); err != nil {
						return err
					}
				}

				job, err := store.Enqueue(cmd.Context(), lessonID, sourceKey)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "queued job %d for lesson %s (%s)\n", job.ID, lessonID, sourceKey)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&lessonID, "lesson", "", "Lesson id to process (a new id is generated when omitted)")
	return cmd
}
