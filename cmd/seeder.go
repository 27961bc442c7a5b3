package cmd

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/evomaxseipio/evotrack-backend/internal"
	"github.com/evomaxseipio/evotrack-backend/internal/department"
	"github.com/evomaxseipio/evotrack-backend/internal/organization"
	"github.com/evomaxseipio/evotrack-backend/internal/team"
	"github.com/evomaxseipio/evotrack-backend/internal/user"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with sample data for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		sqlDB, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		defer sqlDB.Close()

		db, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: sqlDB.DB}), &gorm.Config{})
		if err != nil {
			log.Fatalf("failed to init orm: %v", err)
		}

		if clearData {
			fmt.Println("Clearing existing data...")
			for _, table := range []string{"team_members", "teams", "invitations", "user_organizations", "departments", "users", "organizations"} {
				if err := db.Exec("DELETE FROM " + table).Error; err != nil {
					log.Fatalf("failed to clear %s: %v", table, err)
				}
			}
		}

		if err := seed(db, cfg); err != nil {
			log.Fatalf("seeding failed: %v", err)
		}
		fmt.Println("Seeding complete")
	},
}

func seed(db *gorm.DB, cfg *internal.Config) error {
	now := time.Now()
	hash, err := bcrypt.GenerateFromPassword([]byte("password"), cfg.Security.BCryptCost)
	if err != nil {
		return err
	}
	pw := string(hash)

	owner, err := seedUser(db, &user.User{
		Email:        "owner@evotrack.dev",
		PasswordHash: &pw,
		FirstName:    "Olivia",
		LastName:     "Owner",
		Status:       user.StatusActive,
		ActivatedAt:  &now,
	})
	if err != nil {
		return err
	}

	manager, err := seedUser(db, &user.User{
		Email:        "manager@evotrack.dev",
		PasswordHash: &pw,
		FirstName:    "Marcus",
		LastName:     "Manager",
		Status:       user.StatusActive,
		ActivatedAt:  &now,
	})
	if err != nil {
		return err
	}

	employee, err := seedUser(db, &user.User{
		Email:        "employee@evotrack.dev",
		PasswordHash: &pw,
		FirstName:    "Elena",
		LastName:     "Employee",
		Status:       user.StatusActive,
		ActivatedAt:  &now,
	})
	if err != nil {
		return err
	}

	org := &organization.Organization{Name: "EvoTrack Demo", Slug: "evotrack-demo"}
	var existing organization.Organization
	res := db.Where("slug = ?", org.Slug).Limit(1).Find(&existing)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		org = &existing
		fmt.Println("demo organization already exists")
	} else {
		if err := db.Create(org).Error; err != nil {
			return err
		}
		fmt.Println("Seeded organization:", org.Slug)
	}

	memberships := []organization.Membership{
		{UserID: owner.ID, OrganizationID: org.ID, Role: internal.RoleOwner},
		{UserID: manager.ID, OrganizationID: org.ID, Role: internal.RoleManager},
		{UserID: employee.ID, OrganizationID: org.ID, Role: internal.RoleEmployee},
	}
	for i := range memberships {
		m := memberships[i]
		var count int64
		if err := db.Model(&organization.Membership{}).
			Where("user_id = ? AND organization_id = ?", m.UserID, m.OrganizationID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}
		if err := db.Create(&m).Error; err != nil {
			return err
		}
	}

	engineering, err := seedDepartment(db, &department.Department{
		OrganizationID: org.ID,
		Name:           "Engineering",
		HeadUserID:     &manager.ID,
	})
	if err != nil {
		return err
	}
	if _, err := seedDepartment(db, &department.Department{
		OrganizationID: org.ID,
		Name:           "Platform",
		ParentID:       &engineering.ID,
	}); err != nil {
		return err
	}

	var teamCount int64
	if err := db.Model(&team.Team{}).
		Where("department_id = ? AND name = ?", engineering.ID, "Backend").
		Count(&teamCount).Error; err != nil {
		return err
	}
	if teamCount == 0 {
		t := &team.Team{DepartmentID: engineering.ID, Name: "Backend", LeadUserID: &manager.ID}
		if err := db.Create(t).Error; err != nil {
			return err
		}
		members := []team.TeamMember{
			{TeamID: t.ID, UserID: manager.ID, Role: "tech lead"},
			{TeamID: t.ID, UserID: employee.ID, Role: "engineer"},
		}
		for i := range members {
			if err := db.Create(&members[i]).Error; err != nil {
				return err
			}
		}
		fmt.Println("Seeded team:", t.Name)
	}

	return nil
}

func seedUser(db *gorm.DB, u *user.User) (*user.User, error) {
	var existing user.User
	res := db.Where("email = ?", user.NormalizeEmail(u.Email)).Limit(1).Find(&existing)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected > 0 {
		fmt.Println("user already exists:", existing.Email)
		return &existing, nil
	}
	if err := db.Create(u).Error; err != nil {
		return nil, err
	}
	fmt.Println("Seeded user:", u.Email)
	return u, nil
}

func seedDepartment(db *gorm.DB, d *department.Department) (*department.Department, error) {
	var existing department.Department
	res := db.Where("organization_id = ? AND name = ?", d.OrganizationID, d.Name).Limit(1).Find(&existing)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected > 0 {
		return &existing, nil
	}
	if err := db.Create(d).Error; err != nil {
		return nil, err
	}
	fmt.Println("Seeded department:", d.Name)
	return d, nil
}
