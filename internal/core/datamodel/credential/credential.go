package credential

import "time"

type Credential struct {
	ID           string    `gorm:"primaryKey;type:varchar(26)"`
	CompanyID    string    `gorm:"column:company_id;type:varchar(26);not null;index"`
	OwnerID      string    `gorm:"column:owner_id;type:varchar(26);not null;index"`
	Name         string    `gorm:"column:name;not null"`
	URL          string    `gorm:"column:url;not null"`
	Username     string    `gorm:"column:username;not null"`
	SealedSecret string    `gorm:"column:sealed_secret;not null"`
	CreatedAt    time.Time `gorm:"column:created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at"`
}

func (Credential) TableName() string {
	return "credentials"
}

// ShareToken targets exactly one recipient user or one department.
type ShareToken struct {
	ID              string        `gorm:"primaryKey;type:varchar(26)"`
	CredentialID    string        `gorm:"column:credential_id;type:varchar(26);not null;index"`
	Token           string        `gorm:"column:share_token;uniqueIndex;not null"`
	OwnerID         string        `gorm:"column:owner_id;type:varchar(26);not null"`
	RecipientEmail  *string       `gorm:"column:recipient_email"`
	RecipientUserID *string       `gorm:"column:recipient_user_id;type:varchar(26);index"`
	DepartmentID    *string       `gorm:"column:department_id;type:varchar(26);index"`
	Accessed        bool          `gorm:"column:accessed;not null;default:false"`
	AccessedAt      *time.Time    `gorm:"column:accessed_at"`
	AccessedBy      []ShareAccess `gorm:"foreignKey:ShareTokenID;constraint:OnDelete:CASCADE"`
	ExpiresAt       time.Time     `gorm:"column:expires_at;not null;index"`
	CreatedAt       time.Time     `gorm:"column:created_at"`
	UpdatedAt       time.Time     `gorm:"column:updated_at"`
}

func (ShareToken) TableName() string {
	return "credential_share_tokens"
}

// ShareAccess records one department member's redemption; the composite key keeps it append-if-absent.
type ShareAccess struct {
	ShareTokenID string    `gorm:"primaryKey;column:share_token_id;type:varchar(26)"`
	UserID       string    `gorm:"primaryKey;column:user_id;type:varchar(26)"`
	AccessedAt   time.Time `gorm:"column:accessed_at;not null"`
}

func (ShareAccess) TableName() string {
	return "credential_share_accesses"
}
