package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	userDatamodel "github.com/frahmantamala/credential-vault/internal/core/datamodel/user"
	"github.com/frahmantamala/credential-vault/internal/core/database"
	"github.com/frahmantamala/credential-vault/internal/core/ids"
	"github.com/frahmantamala/credential-vault/internal/permission"
	permissionPostgres "github.com/frahmantamala/credential-vault/internal/permission/postgres"
	"github.com/frahmantamala/credential-vault/pkg/logger"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	clearData         bool
	superAdminEmail   string
	superAdminName    string
	superAdminPassword string
)

// seedTables is ordered children first so --clear never trips a foreign key.
var seedTables = []string{
	"credential_share_accesses",
	"credential_share_tokens",
	"credentials",
	"users",
	"departments",
	"companies",
	"role_permissions",
	"roles",
	"permissions",
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the permission catalog, platform roles and a super admin",
	Long:  `Seed the permission catalog, grant it to every system role and create a platform super admin. Safe to run repeatedly.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		cfg, err := loadConfig(configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
		initLogger(cfg)
		lg := logger.LoggerWrapper()

		db, err := database.Open(cfg.Database, lg)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}

		if clearData {
			for _, table := range seedTables {
				if err := db.Exec("DELETE FROM " + table).Error; err != nil {
					log.Fatalf("failed to clear %s: %v", table, err)
				}
			}
			fmt.Println("Cleared existing data")
		}

		permissions := permission.NewService(permissionPostgres.NewPermissionRepository(db), lg)
		created, err := permissions.Seed(ctx)
		if err != nil {
			log.Fatalf("failed to seed permissions: %v", err)
		}
		fmt.Printf("Seeded %d permissions (catalog size %d)\n", created, len(permission.Catalog))

		granted, err := permissions.SeedSystemRoles(ctx)
		if err != nil {
			log.Fatalf("failed to seed system roles: %v", err)
		}
		fmt.Printf("Granted %d permissions to system roles\n", granted)

		if err := seedSuperAdmin(db, cfg.Security.BCryptCost); err != nil {
			log.Fatalf("failed to seed super admin: %v", err)
		}
	},
}

func seedSuperAdmin(db *gorm.DB, cost int) error {
	var exists int64
	if err := db.Model(&userDatamodel.User{}).Where("LOWER(email) = LOWER(?) AND company_id IS NULL", superAdminEmail).Count(&exists).Error; err != nil {
		return err
	}
	if exists > 0 {
		fmt.Println("super admin already exists:", superAdminEmail)
		return nil
	}

	var roleID string
	if err := db.Table("roles").Select("id").Where("name = ? AND company_id IS NULL", permission.SuperAdminRole).Scan(&roleID).Error; err != nil {
		return err
	}
	if roleID == "" {
		return fmt.Errorf("%s role missing", permission.SuperAdminRole)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(superAdminPassword), cost)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if err := db.Create(&userDatamodel.User{
		ID:           ids.New(),
		Name:         superAdminName,
		Email:        superAdminEmail,
		PasswordHash: string(hash),
		RoleID:       &roleID,
		IsAccepted:   true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}).Error; err != nil {
		return err
	}
	fmt.Println("Seeded super admin:", superAdminEmail)
	return nil
}

func init() {
	seedCmd.Flags().BoolVar(&clearData, "clear", false, "Clear existing data before seeding")
	seedCmd.Flags().StringVar(&superAdminEmail, "admin-email", "superadmin@vault.local", "Super admin email")
	seedCmd.Flags().StringVar(&superAdminName, "admin-name", "Super Admin", "Super admin display name")
	seedCmd.Flags().StringVar(&superAdminPassword, "admin-password", "password", "Super admin password")
}
