package db

import (
	"errors"
	"fmt"
	"strings"

	"github.com/diewo77/go-factures/auth"
	"github.com/diewo77/go-factures/internal/models"
	"gorm.io/gorm"
)

const (
	ProfileAdmin  = "admin"
	ProfileClient = "client"
)

// SeedOptions configures the bootstrap admin account. An empty email skips it.
type SeedOptions struct {
	AdminEmail    string
	AdminPassword string
}

var permissionSeeds = []struct {
	ResourceType string
	Action       string
	Description  string
}{
	{"*", "*", "Full system access"},
	{"category", "*", "All category actions"},
	{"category", "list", "List categories"},
	{"category", "view", "View a category"},
	{"product", "*", "All product actions"},
	{"product", "list", "List products"},
	{"product", "view", "View a product"},
	{"order", "*", "All order actions"},
	{"order", "list", "List own orders"},
	{"order", "view", "View an order"},
	{"order", "create", "Create an order"},
	{"order", "update", "Change order lines"},
	{"order", "cancel", "Cancel an order"},
	{"order", "status", "Change order status"},
	{"invoice", "*", "All invoice actions"},
	{"invoice", "list", "List invoices"},
	{"invoice", "view", "View an invoice"},
	{"invoice", "export", "Download invoice documents"},
	{"invoice", "pay", "Mark invoices paid"},
}

var profileSeeds = []struct {
	Name        string
	Description string
	Permissions []string
}{
	{
		Name:        ProfileAdmin,
		Description: "Back-office administrator",
		Permissions: []string{"*:*"},
	},
	{
		Name:        ProfileClient,
		Description: "Customer placing orders",
		Permissions: []string{
			"category:list", "category:view",
			"product:list", "product:view",
			"order:list", "order:view", "order:create", "order:update", "order:cancel",
			"invoice:list", "invoice:view", "invoice:export",
		},
	},
}

var categorySeeds = []models.Category{
	{Name: "Informatique", Description: "Ordinateurs et accessoires"},
	{Name: "Bureautique", Description: "Fournitures de bureau"},
	{Name: "Téléphonie", Description: "Téléphones et accessoires"},
}

// SeedPermissions creates the permission rows.
func SeedPermissions(conn *gorm.DB) error {
	for _, p := range permissionSeeds {
		perm := models.Permission{ResourceType: p.ResourceType, Action: p.Action, Description: p.Description}
		if err := conn.Where("resource_type = ? AND action = ?", p.ResourceType, p.Action).FirstOrCreate(&perm).Error; err != nil {
			return err
		}
	}
	return nil
}

// SeedProfiles creates the admin and client profiles and (re)assigns their permissions.
func SeedProfiles(conn *gorm.DB) error {
	if err := SeedPermissions(conn); err != nil {
		return err
	}
	for _, p := range profileSeeds {
		profile := models.Profile{Name: p.Name, Description: p.Description}
		if err := conn.Where("name = ?", p.Name).FirstOrCreate(&profile).Error; err != nil {
			return err
		}
		var perms []models.Permission
		for _, code := range p.Permissions {
			resource, action, _ := strings.Cut(code, ":")
			var perm models.Permission
			if err := conn.Where("resource_type = ? AND action = ?", resource, action).First(&perm).Error; err != nil {
				return fmt.Errorf("permission %s: %w", code, err)
			}
			perms = append(perms, perm)
		}
		if err := conn.Model(&profile).Association("Permissions").Replace(perms); err != nil {
			return err
		}
	}
	return nil
}

// ProfileIDFor returns the profile id matching a role.
func ProfileIDFor(conn *gorm.DB, role models.Role) (uint, error) {
	name := ProfileClient
	if role == models.RoleAdmin {
		name = ProfileAdmin
	}
	var profile models.Profile
	if err := conn.Where("name = ?", name).First(&profile).Error; err != nil {
		return 0, fmt.Errorf("profile %s: %w", name, err)
	}
	return profile.ID, nil
}

// SeedAdmin creates the bootstrap admin if no user has that email.
func SeedAdmin(conn *gorm.DB, opts SeedOptions) error {
	if opts.AdminEmail == "" {
		return nil
	}
	var existing models.User
	err := conn.Where("email = ?", opts.AdminEmail).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	hash, err := auth.HashPassword(opts.AdminPassword)
	if err != nil {
		return err
	}
	profileID, err := ProfileIDFor(conn, models.RoleAdmin)
	if err != nil {
		return err
	}
	admin := models.User{
		Email:     opts.AdminEmail,
		FirstName: "Admin",
		Password:  hash,
		Role:      models.RoleAdmin,
		ProfileID: &profileID,
	}
	return conn.Create(&admin).Error
}

// SeedCategories creates the default categories.
func SeedCategories(conn *gorm.DB) error {
	for _, c := range categorySeeds {
		cat := c
		if err := conn.Where("name = ?", cat.Name).FirstOrCreate(&cat).Error; err != nil {
			return err
		}
	}
	return nil
}

// Seed initializes the database with required seed data.
// Should be called after Migrate. It is idempotent.
func Seed(conn *gorm.DB, opts SeedOptions) error {
	return conn.Transaction(func(tx *gorm.DB) error {
		if err := SeedProfiles(tx); err != nil {
			return err
		}
		if err := SeedAdmin(tx, opts); err != nil {
			return err
		}
		return SeedCategories(tx)
	})
}
