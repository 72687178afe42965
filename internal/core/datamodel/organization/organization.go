package organization

import "time"

type Company struct {
	ID        string    `gorm:"primaryKey;type:varchar(26)"`
	Name      string    `gorm:"column:name;not null"`
	Address   string    `gorm:"column:address"`
	Size      int       `gorm:"column:size"`
	Industry  string    `gorm:"column:industry"`
	CreatedBy *string   `gorm:"column:created_by;type:varchar(26)"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (Company) TableName() string {
	return "companies"
}

type Department struct {
	ID        string    `gorm:"primaryKey;type:varchar(26)"`
	Name      string    `gorm:"column:name;not null"`
	CompanyID string    `gorm:"column:company_id;type:varchar(26);not null;index"`
	CreatedBy string    `gorm:"column:created_by;type:varchar(26)"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (Department) TableName() string {
	return "departments"
}
