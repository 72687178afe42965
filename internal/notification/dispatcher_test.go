package notification_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/frahmantamala/credential-vault/internal/notification"
	"github.com/frahmantamala/credential-vault/pkg/logger"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type slowSender struct {
	delay    time.Duration
	inFlight atomic.Int32
	peak     atomic.Int32

	mu   sync.Mutex
	sent []string
}

func (s *slowSender) SendShareLink(ctx context.Context, data notification.ShareLink) error {
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		peak := s.peak.Load()
		if n <= peak || s.peak.CompareAndSwap(peak, n) {
			break
		}
	}

	time.Sleep(s.delay)
	if data.RecipientEmail == "bounce@acme.io" {
		return errors.New("mailbox unavailable")
	}
	s.mu.Lock()
	s.sent = append(s.sent, data.RecipientEmail)
	s.mu.Unlock()
	return nil
}

func links(emails ...string) []notification.ShareLink {
	out := make([]notification.ShareLink, 0, len(emails))
	for _, e := range emails {
		out = append(out, notification.ShareLink{RecipientEmail: e, CredentialName: "GitHub", Token: "t"})
	}
	return out
}

var _ = Describe("Dispatcher", func() {
	var sender *slowSender

	BeforeEach(func() {
		sender = &slowSender{delay: 20 * time.Millisecond}
	})

	It("reports each outcome at the index of its link", func() {
		d := notification.NewDispatcher(sender, notification.DispatcherConfig{Workers: 3}, logger.Discard())
		defer d.Shutdown()

		errs := d.SendShareLinks(context.Background(), links("a@acme.io", "bounce@acme.io", "c@acme.io"))
		Expect(errs).To(HaveLen(3))
		Expect(errs[0]).NotTo(HaveOccurred())
		Expect(errs[1]).To(MatchError("mailbox unavailable"))
		Expect(errs[2]).NotTo(HaveOccurred())
		Expect(sender.sent).To(ConsistOf("a@acme.io", "c@acme.io"))
	})

	It("never runs more sends than it has workers", func() {
		d := notification.NewDispatcher(sender, notification.DispatcherConfig{Workers: 2, QueueSize: 1}, logger.Discard())
		defer d.Shutdown()

		errs := d.SendShareLinks(context.Background(), links("a@x.io", "b@x.io", "c@x.io", "d@x.io", "e@x.io", "f@x.io"))
		for _, err := range errs {
			Expect(err).NotTo(HaveOccurred())
		}
		Expect(sender.peak.Load()).To(BeNumerically("<=", 2))
		Expect(sender.sent).To(HaveLen(6))
	})

	It("sends a single link synchronously", func() {
		d := notification.NewDispatcher(sender, notification.DispatcherConfig{}, logger.Discard())
		defer d.Shutdown()

		Expect(d.SendShareLink(context.Background(), links("a@acme.io")[0])).To(Succeed())
		Expect(sender.sent).To(Equal([]string{"a@acme.io"}))
	})

	It("refuses work after shutdown", func() {
		d := notification.NewDispatcher(sender, notification.DispatcherConfig{Workers: 1}, logger.Discard())
		d.Shutdown()

		err := d.SendShareLink(context.Background(), links("a@acme.io")[0])
		Expect(errors.Is(err, notification.ErrDispatcherClosed)).To(BeTrue())
		Expect(sender.sent).To(BeEmpty())
	})

	It("skips links whose caller already gave up", func() {
		d := notification.NewDispatcher(sender, notification.DispatcherConfig{Workers: 1}, logger.Discard())
		defer d.Shutdown()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		errs := d.SendShareLinks(ctx, links("a@acme.io", "b@acme.io"))
		for _, err := range errs {
			Expect(errors.Is(err, context.Canceled)).To(BeTrue())
		}
		Expect(sender.sent).To(BeEmpty())
	})
})
