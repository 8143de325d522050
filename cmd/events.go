/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/userhub/apiserver/config"
	"github.com/userhub/apiserver/internal/logging"
	"github.com/userhub/apiserver/internal/mq"
	"github.com/userhub/apiserver/internal/services"
	"github.com/userhub/apiserver/types"
)

// eventsCmd groups account event tooling.
var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect account lifecycle events",
}

var eventsTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Print account events as JSON lines until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cfg := config.LoadConfig()
		logger := logging.New(cfg.Log)

		queue, err := mq.Open(ctx, cfg.MQ)
		if err != nil {
			return err
		}
		if queue == nil {
			return services.ErrEventsDisabled
		}
		defer queue.Close()

		encoder := json.NewEncoder(cmd.OutOrStdout())
		events := services.NewAccountEvents(queue, cfg.MQ.Topic, logger)
		err = events.Tail(ctx, func(event types.AccountEvent) error {
			return encoder.Encode(event)
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("tail events: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(eventsTailCmd)
}
