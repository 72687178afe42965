package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/frahmantamala/credential-vault/internal/core/events"
	"github.com/frahmantamala/credential-vault/internal/core/ids"
	"github.com/frahmantamala/credential-vault/pkg/logger"
	"github.com/spf13/cobra"
)

var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Event management commands",
	Long:  `Inspect the share lifecycle events and the audit log subscriber`,
}

var publishEventCmd = &cobra.Command{
	Use:       "publish [event-type]",
	Short:     "Publish a sample share lifecycle event",
	Long:      `Publish a sample credential.shared, share.redeemed or share.consumed event through the audit log subscriber`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{events.EventTypeCredentialShared, events.EventTypeShareRedeemed, events.EventTypeShareConsumed},
	RunE: func(cmd *cobra.Command, args []string) error {
		return publishSampleEvent(args[0])
	},
}

var eventTarget string

func sampleEvent(eventType, target string) (events.Event, error) {
	credentialID, tokenID := ids.New(), ids.New()
	switch eventType {
	case events.EventTypeCredentialShared:
		return events.NewCredentialSharedEvent(credentialID, tokenID, ids.New(), target, 1, 1, false), nil
	case events.EventTypeShareRedeemed:
		return events.NewShareRedeemedEvent(tokenID, credentialID, ids.New(), target, 1, 1), nil
	case events.EventTypeShareConsumed:
		return events.NewShareConsumedEvent(tokenID, credentialID, target), nil
	}
	return nil, fmt.Errorf("unknown event type %q", eventType)
}

func publishSampleEvent(eventType string) error {
	logger := logger.LoggerWrapper()

	eventBus := events.NewEventBus(logger)
	events.RegisterAuditLog(eventBus, logger)

	event, err := sampleEvent(eventType, eventTarget)
	if err != nil {
		return err
	}

	logger.Info("publishing sample event", "event_type", eventType, "event_id", event.EventID())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := eventBus.Publish(ctx, event); err != nil {
		logger.Error("failed to publish event", "error", err)
		return err
	}
	if err := eventBus.Drain(ctx); err != nil {
		return err
	}

	logger.Info("sample event published successfully")
	return nil
}

func init() {
	publishEventCmd.Flags().StringVar(&eventTarget, "target", events.TargetDepartment, "Share target kind (email or department)")

	eventCmd.AddCommand(publishEventCmd)

	rootCmd.AddCommand(eventCmd)
}
