package notification_test

import (
	"context"
	"time"

	"github.com/frahmantamala/credential-vault/internal"
	"github.com/frahmantamala/credential-vault/internal/notification"
	"github.com/frahmantamala/credential-vault/pkg/logger"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Mailer", func() {
	var (
		outbox *notification.LogSender
		mailer *notification.Mailer
	)

	BeforeEach(func() {
		outbox = notification.NewLogSender(logger.Discard())
		mailer = notification.NewMailer(outbox, "https://vault.example.com/")
	})

	It("renders the share link email", func() {
		err := mailer.SendShareLink(context.Background(), notification.ShareLink{
			RecipientEmail: "bob@acme.io",
			RecipientName:  "Bob",
			OwnerName:      "Alice",
			CredentialName: "GitHub",
			Token:          "abc123",
			ExpiresAt:      time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		})
		Expect(err).NotTo(HaveOccurred())

		sent := outbox.Sent()
		Expect(sent).To(HaveLen(1))
		Expect(sent[0].To).To(Equal("bob@acme.io"))
		Expect(sent[0].Subject).To(Equal("Secure Credential Shared: GitHub"))
		Expect(sent[0].HTML).To(ContainSubstring("https://vault.example.com/shared-credentials/abc123"))
		Expect(sent[0].HTML).To(ContainSubstring("Fri, 02 Jan 2026 03:04:05 UTC"))
	})

	It("escapes user supplied names", func() {
		err := mailer.SendShareLink(context.Background(), notification.ShareLink{
			RecipientEmail: "bob@acme.io",
			CredentialName: "<script>alert(1)</script>",
			Token:          "abc123",
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(outbox.Sent()[0].HTML).NotTo(ContainSubstring("<script>"))
	})

	It("renders the invitation email", func() {
		err := mailer.SendInvitation(context.Background(), notification.Invitation{
			Email:       "dana@acme.io",
			Name:        "Dana",
			CompanyName: "Acme",
			OTP:         "042917",
			Token:       "tok",
			ExpiresAt:   time.Now().Add(24 * time.Hour),
		})
		Expect(err).NotTo(HaveOccurred())

		sent := outbox.Sent()
		Expect(sent[0].Subject).To(Equal("You're invited to join Acme"))
		Expect(sent[0].HTML).To(ContainSubstring("042917"))
		Expect(sent[0].HTML).To(ContainSubstring("/accept-invitation?token=tok"))
	})

	It("picks the driver from config", func() {
		Expect(notification.NewSender(internal.NotificationConfig{Driver: "log"}, logger.Discard())).To(BeAssignableToTypeOf(&notification.LogSender{}))
		Expect(notification.NewSender(internal.NotificationConfig{Driver: "SMTP"}, logger.Discard())).To(BeAssignableToTypeOf(&notification.SMTPSender{}))
	})

	It("refuses to send without a recipient", func() {
		sender := notification.NewSMTPSender(internal.NotificationConfig{Host: "localhost", Port: 2525})
		Expect(sender.Send(context.Background(), notification.Message{Subject: "x"})).To(MatchError(ContainSubstring("recipient")))
	})
})
