package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/diewo77/go-factures/auth"
	"github.com/diewo77/go-factures/internal/apperr"
	"github.com/diewo77/go-factures/internal/db"
	"github.com/diewo77/go-factures/internal/models"
	"github.com/diewo77/go-factures/validation"
	"gorm.io/gorm"
)

const minPasswordLength = 6

type RegisterInput struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
}

// Session is what register and login return.
type Session struct {
	ID        uint      `json:"id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type AuthService struct {
	db     *gorm.DB
	signer *auth.Signer
}

func NewAuthService(db *gorm.DB, signer *auth.Signer) *AuthService {
	return &AuthService{db: db, signer: signer}
}

// Register creates a client account with the client profile and signs it in.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	v := make(validation.Violations)
	validation.Email("email", email, v)
	validation.Required("password", in.Password, v)
	if _, bad := v["password"]; !bad {
		validation.MinLength("password", in.Password, minPasswordLength, v)
	}
	if !v.Empty() {
		return nil, apperr.Invalid(v)
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, apperr.Wrap(err)
	}
	user := models.User{
		Email:     email,
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Phone:     in.Phone,
		Address:   in.Address,
		Password:  hash,
		Role:      models.RoleClient,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Unscoped().Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return apperr.Invalid(validation.Violations{"email": "email_taken"})
		}
		profileID, err := db.ProfileIDFor(tx, models.RoleClient)
		if err != nil {
			return err
		}
		user.ProfileID = &profileID
		return tx.Create(&user).Error
	})
	if err != nil {
		return nil, apperr.Wrap(err)
	}
	return s.session(&user)
}

// Login checks the credentials. Unknown email and wrong password look the same.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Unauthorized("invalid credentials")
	}
	if err != nil {
		return nil, apperr.Wrap(err)
	}
	if !auth.CheckPassword(user.Password, password) {
		return nil, apperr.Unauthorized("invalid credentials")
	}
	return s.session(&user)
}

func (s *AuthService) session(u *models.User) (*Session, error) {
	token, exp, err := s.signer.Issue(auth.Principal{UserID: u.ID, Email: u.Email, Role: string(u.Role)})
	if err != nil {
		return nil, apperr.Wrap(err)
	}
	return &Session{ID: u.ID, Email: u.Email, Role: string(u.Role), Token: token, ExpiresAt: exp}, nil
}

// UserExists backs auth.SetUserVerifier.
func (s *AuthService) UserExists(ctx context.Context, uid uint) bool {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", uid).Limit(1).Count(&count).Error; err != nil {
		return false
	}
	return count > 0
}
