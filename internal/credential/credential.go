package credential

import (
	"errors"
	"time"

	credentialDatamodel "github.com/frahmantamala/credential-vault/internal/core/datamodel/credential"
	userDatamodel "github.com/frahmantamala/credential-vault/internal/core/datamodel/user"
	"github.com/frahmantamala/credential-vault/internal/core/events"
)

// Credential is a stored login. Password is only filled for the owner's own read and for a
// successful share redemption.
type Credential struct {
	ID        string    `json:"id"`
	CompanyID string    `json:"company_id"`
	OwnerID   string    `json:"owner_id"`
	Owner     *Owner    `json:"owner,omitempty"`
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	Username  string    `json:"userName"`
	Password  string    `json:"password,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Owner struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type Recipient struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// ShareResult never carries the token itself.
type ShareResult struct {
	Message    string      `json:"message"`
	Recipients []Recipient `json:"recipients"`
	ExpiresAt  time.Time   `json:"expires_at"`
	Reissued   bool        `json:"reissued"`
}

// ShareRecord is the owner's view of one issued token.
type ShareRecord struct {
	ID             string     `json:"id"`
	Target         string     `json:"target"`
	RecipientEmail string     `json:"recipient_email,omitempty"`
	DepartmentID   string     `json:"department_id,omitempty"`
	Accessed       bool       `json:"accessed"`
	AccessedAt     *time.Time `json:"accessed_at,omitempty"`
	AccessedBy     int        `json:"accessed_by"`
	Expired        bool       `json:"expired"`
	ExpiresAt      time.Time  `json:"expires_at"`
	CreatedAt      time.Time  `json:"created_at"`
}

// QuorumOutcome is the state of a department token after one member's redemption.
type QuorumOutcome struct {
	Accessed     int
	Members      int
	Consumed     bool
	JustConsumed bool
}

// ErrDuplicateToken is returned by the share repository when a token value collides.
var ErrDuplicateToken = errors.New("share token already exists")

func FromDataModel(dm *credentialDatamodel.Credential) *Credential {
	return &Credential{
		ID:        dm.ID,
		CompanyID: dm.CompanyID,
		OwnerID:   dm.OwnerID,
		Name:      dm.Name,
		URL:       dm.URL,
		Username:  dm.Username,
		CreatedAt: dm.CreatedAt,
		UpdatedAt: dm.UpdatedAt,
	}
}

func OwnerFromUser(u *userDatamodel.User) *Owner {
	if u == nil {
		return nil
	}
	return &Owner{ID: u.ID, Name: u.Name, Email: u.Email}
}

// TargetOf reports whether a token was issued to one user or a department.
func TargetOf(t *credentialDatamodel.ShareToken) string {
	if t.DepartmentID != nil {
		return events.TargetDepartment
	}
	return events.TargetEmail
}

func ShareRecordFromDataModel(t *credentialDatamodel.ShareToken, now time.Time) ShareRecord {
	rec := ShareRecord{
		ID:         t.ID,
		Target:     TargetOf(t),
		Accessed:   t.Accessed,
		AccessedAt: t.AccessedAt,
		AccessedBy: len(t.AccessedBy),
		Expired:    now.After(t.ExpiresAt),
		ExpiresAt:  t.ExpiresAt,
		CreatedAt:  t.CreatedAt,
	}
	if t.RecipientEmail != nil {
		rec.RecipientEmail = *t.RecipientEmail
	}
	if t.DepartmentID != nil {
		rec.DepartmentID = *t.DepartmentID
	}
	if rec.Target == events.TargetEmail && t.Accessed {
		rec.AccessedBy = 1
	}
	return rec
}
