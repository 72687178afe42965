package credential_test

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"time"

	"github.com/frahmantamala/credential-vault/internal"
	credentialDatamodel "github.com/frahmantamala/credential-vault/internal/core/datamodel/credential"
	"github.com/frahmantamala/credential-vault/internal/core/datamodel/organization"
	userDatamodel "github.com/frahmantamala/credential-vault/internal/core/datamodel/user"
	"github.com/frahmantamala/credential-vault/internal/core/events"
	"github.com/frahmantamala/credential-vault/internal/core/ids"
	"github.com/frahmantamala/credential-vault/internal/core/testdb"
	"github.com/frahmantamala/credential-vault/internal/credential"
	credentialPostgres "github.com/frahmantamala/credential-vault/internal/credential/postgres"
	"github.com/frahmantamala/credential-vault/internal/notification"
	"github.com/frahmantamala/credential-vault/pkg/logger"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"
)

type shareMailer struct {
	mu   sync.Mutex
	sent []notification.ShareLink
	fail map[string]bool
}

func (m *shareMailer) SendShareLink(_ context.Context, data notification.ShareLink) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail[data.RecipientEmail] {
		return errors.New("smtp: connection refused")
	}
	m.sent = append(m.sent, data)
	return nil
}

// tokenFor returns the last link mailed to email.
func (m *shareMailer) tokenFor(email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.sent) - 1; i >= 0; i-- {
		if m.sent[i].RecipientEmail == email {
			return m.sent[i].Token
		}
	}
	return ""
}

func (m *shareMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) ofType(eventType string) []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []events.Event
	for _, e := range p.events {
		if e.EventType() == eventType {
			out = append(out, e)
		}
	}
	return out
}

func codeOf(err error) internal.ErrorCode {
	appErr, ok := internal.IsAppError(err)
	Expect(ok).To(BeTrue(), "expected an AppError, got %v", err)
	return appErr.Code
}

// world is one company with an Engineering department and an owner outside it.
type world struct {
	ctx       context.Context
	db        *gorm.DB
	svc       *credential.Service
	repo      credential.RepositoryAPI
	shares    credential.ShareRepositoryAPI
	directory credential.DirectoryAPI
	sealer    credential.SecretSealer
	mailer    *shareMailer
	publisher *recordingPublisher
	companyID string
	engID     string
	owner     *userDatamodel.User
}

func newWorld(policy credential.SharePolicy) *world {
	db, err := testdb.Open()
	Expect(err).NotTo(HaveOccurred())

	w := &world{
		ctx:       context.Background(),
		db:        db,
		mailer:    &shareMailer{fail: map[string]bool{}},
		publisher: &recordingPublisher{},
	}

	now := time.Now().UTC()
	acme := &organization.Company{ID: ids.New(), Name: "Acme", CreatedAt: now, UpdatedAt: now}
	Expect(db.Create(acme).Error).To(Succeed())
	w.companyID = acme.ID

	eng := &organization.Department{ID: ids.New(), Name: "Eng", CompanyID: acme.ID, CreatedAt: now, UpdatedAt: now}
	Expect(db.Create(eng).Error).To(Succeed())
	w.engID = eng.ID

	w.owner = w.addUser("Alice", "alice@acme.io", "")

	w.sealer, err = credential.NewAESSealer(bytes.Repeat([]byte("s"), 32))
	Expect(err).NotTo(HaveOccurred())

	w.repo = credentialPostgres.NewCredentialRepository(db)
	w.shares = credentialPostgres.NewShareRepository(db)
	w.directory = credentialPostgres.NewDirectory(db)
	w.svc = credential.NewService(w.repo, credential.Dependencies{
		Shares:    w.shares,
		Directory: w.directory,
		Sealer:    w.sealer,
		Mailer:    w.mailer,
		Events:    w.publisher,
		Policy:    policy,
	}, logger.Discard())
	return w
}

func (w *world) addUser(name, email, departmentID string) *userDatamodel.User {
	now := time.Now().UTC()
	u := &userDatamodel.User{
		ID: ids.New(), Name: name, Email: email, CompanyID: &w.companyID,
		IsAccepted: true, CreatedAt: now, UpdatedAt: now,
	}
	if departmentID != "" {
		u.DepartmentID = &departmentID
	}
	Expect(w.db.Create(u).Error).To(Succeed())
	return u
}

func (w *world) addCredential(name string) *credential.Credential {
	c, err := w.svc.Create(w.ctx, w.companyID, w.owner.ID, credential.CreateCredentialDTO{
		Name: name, URL: "https://" + name + ".example.com", Username: "octo", Password: "hunter22",
	})
	Expect(err).NotTo(HaveOccurred())
	return c
}

func (w *world) tokenRow(value string) *credentialDatamodel.ShareToken {
	t, err := w.shares.FindByToken(w.ctx, value)
	Expect(err).NotTo(HaveOccurred())
	Expect(t).NotTo(BeNil())
	return t
}
