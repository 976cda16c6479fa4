package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"pagebin/app/internal/domain/pages"
	"pagebin/app/internal/infrastructure/events"
	"pagebin/app/internal/platform/config"
)

func newWatchCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Stream page lifecycle events from NATS",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return eris.Wrap(err, "failure loading configuration")
			}
			if cfg.NATS.URL == "" {
				return eris.New("NATS_URL is required to watch page events")
			}

			subscriber, err := events.NewSubscriber(events.Options{
				URL:           cfg.NATS.URL,
				SubjectPrefix: cfg.NATS.SubjectPrefix,
				Name:          "pagebin-watch",
			})
			if err != nil {
				return eris.Wrap(err, "connecting to NATS")
			}
			defer subscriber.Close()

			out := cmd.OutOrStdout()
			return watchEvents(cmd.Context(), subscriber, func(msg events.Message) {
				printEvent(out, msg, root.jsonOutput)
			})
		},
	}
}

type eventSource interface {
	Watch(ctx context.Context, handle func(events.Message)) error
}

func watchEvents(ctx context.Context, source eventSource, handle func(events.Message)) error {
	err := source.Watch(ctx, handle)
	if err != nil && ctx.Err() == nil {
		return eris.Wrap(err, "watching page events")
	}
	return nil
}

func printEvent(out io.Writer, msg events.Message, raw bool) {
	if raw {
		fmt.Fprintf(out, "%s\n", msg.Data)
		return
	}

	var event pages.PageEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		fmt.Fprintf(out, "%s\t(undecodable payload: %v)\n", msg.Topic, err)
		return
	}

	if event.Page != nil {
		fmt.Fprintf(out, "%s\t%s\t%s\n", msg.Topic, event.Slug, event.Page.Name)
		return
	}
	fmt.Fprintf(out, "%s\t%s\n", msg.Topic, event.Slug)
}
