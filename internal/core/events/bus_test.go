package events_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/frahmantamala/credential-vault/internal/core/events"
	"github.com/frahmantamala/credential-vault/pkg/logger"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("EventBus", func() {
	var bus *events.EventBus

	BeforeEach(func() {
		bus = events.NewEventBus(logger.Discard())
	})

	It("delivers to every subscriber of the type", func() {
		var calls int32
		for i := 0; i < 3; i++ {
			bus.Subscribe(events.EventTypeShareConsumed, func(ctx context.Context, e events.Event) error {
				atomic.AddInt32(&calls, 1)
				return nil
			})
		}
		bus.Subscribe(events.EventTypeShareRedeemed, func(ctx context.Context, e events.Event) error {
			atomic.AddInt32(&calls, 100)
			return nil
		})

		Expect(bus.Publish(context.Background(), events.NewShareConsumedEvent("t", "c", events.TargetEmail))).To(Succeed())
		Expect(bus.Drain(context.Background())).To(Succeed())
		Expect(atomic.LoadInt32(&calls)).To(Equal(int32(3)))
	})

	It("keeps handlers running after the request context is cancelled", func() {
		ctx, cancel := context.WithCancel(context.Background())
		var sawCancel atomic.Bool
		bus.Subscribe(events.EventTypeShareConsumed, func(hctx context.Context, e events.Event) error {
			time.Sleep(10 * time.Millisecond)
			sawCancel.Store(hctx.Err() != nil)
			return nil
		})

		Expect(bus.Publish(ctx, events.NewShareConsumedEvent("t", "c", events.TargetEmail))).To(Succeed())
		cancel()
		Expect(bus.Drain(context.Background())).To(Succeed())
		Expect(sawCancel.Load()).To(BeFalse())
	})

	It("surfaces handler errors on synchronous publish", func() {
		bus.Subscribe(events.EventTypeShareRedeemed, func(ctx context.Context, e events.Event) error {
			return errors.New("boom")
		})
		err := bus.PublishSync(context.Background(), events.NewShareRedeemedEvent("t", "c", "u", events.TargetDepartment, 1, 2))
		Expect(err).To(MatchError(ContainSubstring("boom")))
	})

	It("writes an audit line per lifecycle event", func() {
		var buf bytes.Buffer
		events.RegisterAuditLog(bus, slog.New(slog.NewTextHandler(&buf, nil)))

		err := bus.PublishSync(context.Background(), events.NewCredentialSharedEvent("cred", "tok", "owner", events.TargetDepartment, 2, 2, false))
		Expect(err).NotTo(HaveOccurred())
		Expect(buf.String()).To(ContainSubstring("component=audit"))
		Expect(buf.String()).To(ContainSubstring("event_type=credential.shared"))
		Expect(buf.String()).To(ContainSubstring("credential_id=cred"))
	})
})
