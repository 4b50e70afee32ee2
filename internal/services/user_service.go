package services

import (
	"strings"

	"github.com/google/uuid"

	"gudam-backend/internal/apperr"
	"gudam-backend/internal/models"
	"gudam-backend/internal/store"
	"gudam-backend/internal/utils"
)

// UserService handles account registration, login and profile management.
type UserService struct {
	store *store.Client
	auth  *AuthService
}

// NewUserService creates a new user service
func NewUserService(st *store.Client, auth *AuthService) *UserService {
	return &UserService{store: st, auth: auth}
}

// RegisterInput is a new-account request.
type RegisterInput struct {
	Name           string         `json:"name" binding:"required"`
	Email          string         `json:"email"`
	Phone          string         `json:"phone" binding:"required"`
	Password       string         `json:"password" binding:"required,min=6"`
	Role           string         `json:"role" binding:"required,oneof=farmer agent buyer admin"`
	AvatarURL      string         `json:"avatar_url"`
	Location       map[string]any `json:"location"`
	ProfileDetails map[string]any `json:"profile_details"`
}

// LoginInput is a phone + password credential pair.
type LoginInput struct {
	Phone    string `json:"phone" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Register creates an account and returns it with a signed token.
func (s *UserService) Register(input RegisterInput) (*models.User, string, error) {
	if input.Email != "" {
		existing, _, err := s.store.Select("users", store.Query{Filters: []store.Filter{
			store.Eq("email", input.Email),
			store.IsNull("deleted_at"),
		}})
		if err != nil {
			return nil, "", apperr.Internal(err)
		}
		if len(existing) > 0 {
			return nil, "", apperr.Conflict("এই ইমেইল আগে থেকেই নিবন্ধিত (Email already registered)")
		}
	}

	existingPhone, _, err := s.store.Select("users", store.Query{Filters: []store.Filter{
		store.Eq("phone", input.Phone),
		store.IsNull("deleted_at"),
	}})
	if err != nil {
		return nil, "", apperr.Internal(err)
	}
	if len(existingPhone) > 0 {
		return nil, "", apperr.Conflict("এই ফোন নম্বর আগে থেকেই নিবন্ধিত (Phone number already registered)")
	}

	hash, err := s.auth.HashPassword(input.Password)
	if err != nil {
		return nil, "", apperr.Internal(err)
	}

	user := &models.User{
		ID:             utils.ShortID("USR", uuid.New().String()),
		Name:           input.Name,
		Email:          input.Email,
		Phone:          input.Phone,
		Role:           models.UserRole(input.Role),
		AvatarURL:      input.AvatarURL,
		Location:       input.Location,
		ProfileDetails: input.ProfileDetails,
		IsVerified:     false,
		CreatedAt:      utils.NowISO(),
	}

	_, err = s.store.Insert("users", store.Row{
		"id":              user.ID,
		"name":            user.Name,
		"email":           nullable(user.Email),
		"phone":           user.Phone,
		"password_hash":   hash,
		"role":            string(user.Role),
		"avatar_url":      nullable(user.AvatarURL),
		"location":        models.EncodeJSON(user.Location),
		"profile_details": models.EncodeJSON(user.ProfileDetails),
		"is_verified":     false,
		"created_at":      user.CreatedAt,
	})
	if err != nil {
		return nil, "", apperr.Internal(err)
	}

	token, err := s.auth.GenerateToken(user)
	if err != nil {
		return nil, "", apperr.Internal(err)
	}
	return user, token, nil
}

// Login authenticates by phone and password. The phone is matched as given,
// then with the +880 country prefix added or stripped.
func (s *UserService) Login(input LoginInput) (*models.User, string, error) {
	phone := strings.TrimSpace(input.Phone)

	candidates := []string{phone}
	if !strings.HasPrefix(phone, "+") {
		candidates = append(candidates, "+880"+strings.TrimLeft(phone, "0"), "+880"+phone)
	} else {
		candidates = append(candidates, strings.Replace(phone, "+880", "", 1))
	}

	var row store.Row
	for _, candidate := range candidates {
		rows, _, err := s.store.Select("users", store.Query{Filters: []store.Filter{
			store.Eq("phone", candidate),
			store.IsNull("deleted_at"),
		}})
		if err != nil {
			return nil, "", apperr.Internal(err)
		}
		if len(rows) > 0 {
			row = rows[0]
			break
		}
	}
	if row == nil {
		return nil, "", apperr.Unauthorized("ভুল ফোন নম্বর বা পাসওয়ার্ড (Invalid phone or password)")
	}

	if !s.auth.CheckPassword(input.Password, models.Str(row, "password_hash")) {
		return nil, "", apperr.Unauthorized("ভুল ফোন নম্বর বা পাসওয়ার্ড (Invalid phone or password)")
	}

	user := models.UserFromRow(row)
	token, err := s.auth.GenerateToken(user)
	if err != nil {
		return nil, "", apperr.Internal(err)
	}
	return user, token, nil
}

// ChangePassword verifies the current password and stores a new hash.
func (s *UserService) ChangePassword(userID, currentPassword, newPassword string) error {
	rows, _, err := s.store.Select("users", store.Query{Filters: []store.Filter{
		store.Eq("id", userID),
		store.IsNull("deleted_at"),
	}})
	if err != nil {
		return apperr.Internal(err)
	}
	if len(rows) == 0 {
		return apperr.NotFound("ব্যবহারকারী পাওয়া যায়নি (User not found)")
	}

	if !s.auth.CheckPassword(currentPassword, models.Str(rows[0], "password_hash")) {
		return apperr.Unauthorized("বর্তমান পাসওয়ার্ড ভুল (Current password is incorrect)")
	}

	hash, err := s.auth.HashPassword(newPassword)
	if err != nil {
		return apperr.Internal(err)
	}
	if _, err := s.store.Update("users",
		[]store.Filter{store.Eq("id", userID)},
		store.Row{"password_hash": hash, "updated_at": utils.NowISO()}); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

// Get returns a user by id.
func (s *UserService) Get(userID string) (*models.User, error) {
	rows, _, err := s.store.Select("users", store.Query{Filters: []store.Filter{
		store.Eq("id", userID),
		store.IsNull("deleted_at"),
	}})
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if len(rows) == 0 {
		return nil, apperr.NotFound("ব্যবহারকারী পাওয়া যায়নি (User not found)")
	}
	return models.UserFromRow(rows[0]), nil
}

// UpdateInput is a partial profile update. Location and profile details merge
// with the stored maps instead of replacing them.
type UpdateInput struct {
	Name           string         `json:"name"`
	Phone          string         `json:"phone"`
	AvatarURL      string         `json:"avatar_url"`
	Location       map[string]any `json:"location"`
	ProfileDetails map[string]any `json:"profile_details"`
}

// Update applies a partial profile update.
func (s *UserService) Update(userID string, input UpdateInput) (*models.User, error) {
	rows, _, err := s.store.Select("users", store.Query{Filters: []store.Filter{
		store.Eq("id", userID),
		store.IsNull("deleted_at"),
	}})
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if len(rows) == 0 {
		return nil, apperr.NotFound("ব্যবহারকারী পাওয়া যায়নি (User not found)")
	}

	patch := store.Row{"updated_at": utils.NowISO()}
	if input.Name != "" {
		patch["name"] = input.Name
	}
	if input.Phone != "" {
		patch["phone"] = input.Phone
	}
	if input.AvatarURL != "" {
		patch["avatar_url"] = input.AvatarURL
	}
	if input.Location != nil {
		merged := models.JSONMap(rows[0], "location")
		if merged == nil {
			merged = map[string]any{}
		}
		for k, v := range input.Location {
			merged[k] = v
		}
		patch["location"] = models.EncodeJSON(merged)
	}
	if input.ProfileDetails != nil {
		merged := models.JSONMap(rows[0], "profile_details")
		if merged == nil {
			merged = map[string]any{}
		}
		for k, v := range input.ProfileDetails {
			merged[k] = v
		}
		patch["profile_details"] = models.EncodeJSON(merged)
	}

	updated, err := s.store.Update("users", []store.Filter{store.Eq("id", userID)}, patch)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return models.UserFromRow(updated[0]), nil
}

// List returns non-deleted users, optionally restricted to one role.
func (s *UserService) List(role string, page, pageSize int) ([]*models.User, int, error) {
	filters := []store.Filter{store.IsNull("deleted_at")}
	if role != "" {
		filters = append(filters, store.Eq("role", role))
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	rows, total, err := s.store.Select("users", store.Query{
		Filters:    filters,
		OrderBy:    "created_at",
		Descending: true,
		Offset:     (page - 1) * pageSize,
		Limit:      pageSize,
		Count:      true,
	})
	if err != nil {
		return nil, 0, apperr.Internal(err)
	}

	users := make([]*models.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, models.UserFromRow(r))
	}
	return users, total, nil
}
