package handlers

import (
	"errors"
	"net/http"

	"github.com/diewo77/go-factures/httpx"
	"github.com/diewo77/go-factures/internal/apperr"
	"github.com/diewo77/go-factures/internal/models"
	"github.com/diewo77/go-factures/validation"
	"gorm.io/gorm"
)

// AdminProfileHandler lets admins inspect profiles, change their
// permissions and assign profiles to users. Profiles are resolved from the
// database on every check, so changes apply to the next request.
type AdminProfileHandler struct {
	DB *gorm.DB
}

func NewAdminProfileHandler(db *gorm.DB) *AdminProfileHandler {
	return &AdminProfileHandler{DB: db}
}

// List returns every profile with its permissions.
func (h *AdminProfileHandler) List(w http.ResponseWriter, r *http.Request) {
	var profiles []models.Profile
	if err := h.DB.WithContext(r.Context()).Preload("Permissions").Order("id").Find(&profiles).Error; err != nil {
		httpx.Error(w, r, apperr.Wrap(err))
		return
	}
	httpx.JSON(w, http.StatusOK, profiles)
}

func (h *AdminProfileHandler) ListPermissions(w http.ResponseWriter, r *http.Request) {
	var perms []models.Permission
	if err := h.DB.WithContext(r.Context()).Order("resource_type").Order("action").Find(&perms).Error; err != nil {
		httpx.Error(w, r, apperr.Wrap(err))
		return
	}
	httpx.JSON(w, http.StatusOK, perms)
}

// SavePermissions replaces the permissions of a profile with {"permission_ids": [...]}.
func (h *AdminProfileHandler) SavePermissions(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	var body struct {
		PermissionIDs []uint `json:"permission_ids"`
	}
	if err := decodeJSON(r, &body); err != nil {
		httpx.Error(w, r, err)
		return
	}

	var profile models.Profile
	err = h.DB.WithContext(r.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&profile, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("profile %d not found", id)
			}
			return err
		}
		var perms []models.Permission
		if len(body.PermissionIDs) > 0 {
			if err := tx.Where("id IN ?", body.PermissionIDs).Find(&perms).Error; err != nil {
				return err
			}
		}
		if len(perms) != len(body.PermissionIDs) {
			return apperr.Invalid(validation.Violations{"permission_ids": "not_found"})
		}
		if err := tx.Model(&profile).Association("Permissions").Replace(perms); err != nil {
			return err
		}
		profile.Permissions = perms
		return nil
	})
	if err != nil {
		httpx.Error(w, r, apperr.Wrap(err))
		return
	}
	httpx.JSON(w, http.StatusOK, profile)
}

type userProfile struct {
	ID        uint   `json:"id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	ProfileID *uint  `json:"profile_id"`
	Profile   string `json:"profile,omitempty"`
}

// ListUsers returns every user with the name of its profile.
func (h *AdminProfileHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	var users []models.User
	if err := h.DB.WithContext(r.Context()).Preload("Profile").Order("id").Find(&users).Error; err != nil {
		httpx.Error(w, r, apperr.Wrap(err))
		return
	}
	out := make([]userProfile, len(users))
	for i, u := range users {
		out[i] = userProfile{ID: u.ID, Email: u.Email, Role: string(u.Role), ProfileID: u.ProfileID}
		if u.Profile != nil {
			out[i].Profile = u.Profile.Name
		}
	}
	httpx.JSON(w, http.StatusOK, out)
}

// AssignProfile sets a user's profile with {"profile_id": n}; null removes it.
func (h *AdminProfileHandler) AssignProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := idParam(r, "id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	var body struct {
		ProfileID *uint `json:"profile_id"`
	}
	if err := decodeJSON(r, &body); err != nil {
		httpx.Error(w, r, err)
		return
	}

	err = h.DB.WithContext(r.Context()).Transaction(func(tx *gorm.DB) error {
		if body.ProfileID != nil {
			var profile models.Profile
			if err := tx.First(&profile, *body.ProfileID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return apperr.NotFound("profile %d not found", *body.ProfileID)
				}
				return err
			}
		}
		res := tx.Model(&models.User{}).Where("id = ?", userID).Update("profile_id", body.ProfileID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.NotFound("user %d not found", userID)
		}
		return nil
	})
	if err != nil {
		httpx.Error(w, r, apperr.Wrap(err))
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"user_id": userID, "profile_id": body.ProfileID})
}
