package user

import "time"

// User email is unique per company, not globally.
type User struct {
	ID                    string     `gorm:"primaryKey;type:varchar(26)"`
	Name                  string     `gorm:"column:name;not null"`
	Email                 string     `gorm:"column:email;not null;uniqueIndex:idx_users_company_email,priority:2"`
	PasswordHash          string     `gorm:"column:password_hash"`
	CompanyID             *string    `gorm:"column:company_id;type:varchar(26);uniqueIndex:idx_users_company_email,priority:1"`
	DepartmentID          *string    `gorm:"column:department_id;type:varchar(26);index"`
	RoleID                *string    `gorm:"column:role_id;type:varchar(26);index"`
	IsAccepted            bool       `gorm:"column:is_accepted;not null;default:false"`
	InvitationOTP         *string    `gorm:"column:invitation_otp"`
	InvitationToken       *string    `gorm:"column:invitation_token;index"`
	InvitationTokenExpiry *time.Time `gorm:"column:invitation_token_expiry"`
	CreatedAt             time.Time  `gorm:"column:created_at"`
	UpdatedAt             time.Time  `gorm:"column:updated_at"`
}

func (User) TableName() string {
	return "users"
}
