package cmd

import (
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with sample users, permissions and grants for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		_, db, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}

		if clearData {
			for _, table := range []string{"user_permissions", "refresh_tokens", "activity_logs", "permissions", "users"} {
				if err := db.Exec("DELETE FROM " + table).Error; err != nil {
					log.Fatalf("failed to clear %s: %v", table, err)
				}
			}
			fmt.Println("Cleared existing data")
		}

		hash, err := bcrypt.GenerateFromPassword([]byte("Admin123!"), cfg.Security.BCryptCost)
		if err != nil {
			log.Fatalf("failed to hash password: %v", err)
		}

		users := []struct {
			Email     string
			FirstName string
			LastName  string
			Role      string
		}{
			{"admin@company.com", "System", "Administrator", "admin"},
			{"manager@company.com", "Marie", "Dupont", "manager"},
			{"employee@company.com", "Jean", "Martin", "employee"},
			{"viewer@company.com", "Claire", "Bernard", "viewer"},
		}

		for _, u := range users {
			var exists int
			if err := db.Raw("SELECT 1 FROM users WHERE email = ?", u.Email).Row().Scan(&exists); err == nil {
				fmt.Printf("user %s already exists\n", u.Email)
				continue
			}

			err := db.Exec(`INSERT INTO users (uuid, email, password_hash, first_name, last_name, role, is_active, email_verified, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, true, true, now(), now())`,
				uuid.NewString(), u.Email, string(hash), u.FirstName, u.LastName, u.Role).Error
			if err != nil {
				log.Fatalf("failed to insert user %s: %v", u.Email, err)
			}
			fmt.Println("Seeded user:", u.Email)
		}

		permissions := []struct {
			Code      string
			Name      string
			Module    string
			Type      string
			RiskLevel string
		}{
			{"users.read", "View users", "users", "read", "low"},
			{"users.write", "Create and update users", "users", "write", "medium"},
			{"users.delete", "Deactivate users", "users", "delete", "high"},
			{"habilitations.read", "View habilitations", "habilitations", "read", "low"},
			{"habilitations.write", "Create and update habilitations", "habilitations", "write", "medium"},
			{"habilitations.approve", "Approve habilitations", "habilitations", "admin", "high"},
			{"reports.read", "View compliance reports", "reports", "read", "low"},
			{"reports.export", "Export compliance reports", "reports", "read", "medium"},
			{"activity.read", "View activity logs", "activity", "read", "medium"},
			{"system.maintenance", "Run maintenance operations", "system", "system", "critical"},
		}

		for _, p := range permissions {
			var pid int64
			if err := db.Raw("SELECT id FROM permissions WHERE code = ?", p.Code).Row().Scan(&pid); err != nil {
				err := db.Exec(`INSERT INTO permissions (code, name, module, type, risk_level, created_at)
					VALUES (?, ?, ?, ?, ?, now())`,
					p.Code, p.Name, p.Module, p.Type, p.RiskLevel).Error
				if err != nil {
					log.Fatalf("failed to insert permission %s: %v", p.Code, err)
				}
			}
		}
		fmt.Println("Seeded permission catalog")

		grants := map[string][]string{
			"admin@company.com": {
				"users.read", "users.write", "users.delete",
				"habilitations.read", "habilitations.write", "habilitations.approve",
				"reports.read", "reports.export", "activity.read", "system.maintenance",
			},
			"manager@company.com": {
				"users.read", "habilitations.read", "habilitations.write",
				"habilitations.approve", "reports.read", "activity.read",
			},
			"employee@company.com": {"habilitations.read", "reports.read"},
			"viewer@company.com":   {"habilitations.read"},
		}

		for email, codes := range grants {
			var userID int64
			if err := db.Raw("SELECT id FROM users WHERE email = ?", email).Row().Scan(&userID); err != nil {
				log.Fatalf("failed to lookup user %s: %v", email, err)
			}

			for _, code := range codes {
				var pid int64
				if err := db.Raw("SELECT id FROM permissions WHERE code = ?", code).Row().Scan(&pid); err != nil {
					log.Fatalf("permission not found %s: %v", code, err)
				}

				var exists int
				if err := db.Raw("SELECT 1 FROM user_permissions WHERE user_id = ? AND permission_id = ?", userID, pid).Row().Scan(&exists); err == nil {
					continue
				}

				if err := db.Exec("INSERT INTO user_permissions (user_id, permission_id, granted, created_at) VALUES (?, ?, true, now())", userID, pid).Error; err != nil {
					log.Fatalf("failed to grant %s to %s: %v", code, email, err)
				}
			}
			fmt.Printf("Granted %d permissions to %s\n", len(codes), email)
		}

		fmt.Println("Seeding complete")
	},
}
