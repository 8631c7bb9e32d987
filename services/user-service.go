package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"project-tracker/logging"
	"project-tracker/models"
	"project-tracker/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const minPasswordLength = 6

type UserService struct {
	users     UserRepository
	tokens    *utils.JWTManager
	blackList map[string]bool
	now       func() time.Time
}

func NewUserService(users UserRepository, tokens *utils.JWTManager, blackList map[string]bool) *UserService {
	if blackList == nil {
		blackList = map[string]bool{}
	}
	return &UserService{users: users, tokens: tokens, blackList: blackList, now: time.Now}
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     models.UserRole
}

type ProfileUpdate struct {
	Name     *string
	Email    *string
	Password *string
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

func (s *UserService) validatePassword(password string) bool {
	return len(password) >= minPasswordLength && !s.blackList[password]
}

// Register creates a user and returns it together with a fresh token.
// Self registration may not grant the Admin role.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, string, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
	if in.Role == "" {
		in.Role = models.RoleMember
	}

	verr := &ValidationError{}
	if in.Name == "" {
		verr.Add("name")
	}
	if !validEmail(in.Email) {
		verr.Add("email")
	}
	if !s.validatePassword(in.Password) {
		verr.Add("password")
	}
	if !in.Role.Valid() || in.Role == models.RoleAdmin {
		verr.Add("role")
	}
	if err := verr.Err(); err != nil {
		return nil, "", err
	}

	hashed, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	user := &models.User{
		ID:        primitive.NewObjectID(),
		Name:      in.Name,
		Email:     in.Email,
		Password:  hashed,
		Role:      in.Role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, "", err
	}

	token, err := s.tokens.GenerateToken(user.ID.Hex(), string(user.Role))
	if err != nil {
		return nil, "", err
	}
	logging.Logger.Infof("Event ID: USER_REGISTERED, Description: User %s registered with role %s", user.ID.Hex(), user.Role)
	return user, token, nil
}

// Login never reveals whether the email or the password was wrong.
func (s *UserService) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, "", ErrUnauthorized
		}
		return nil, "", err
	}
	if !utils.CheckPassword(user.Password, password) {
		logging.Logger.Warnf("Event ID: LOGIN_BAD_PASSWORD, Description: Failed login for user %s", user.ID.Hex())
		return nil, "", ErrUnauthorized
	}

	token, err := s.tokens.GenerateToken(user.ID.Hex(), string(user.Role))
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

func (s *UserService) GetProfile(ctx context.Context, userID primitive.ObjectID) (*models.User, error) {
	return s.users.FindByID(ctx, userID)
}

// Exists reports whether userID still has an account. Tokens of deleted
// users are rejected with it.
func (s *UserService) Exists(ctx context.Context, userID primitive.ObjectID) (bool, error) {
	_, err := s.users.FindByID(ctx, userID)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrNotFound):
		return false, nil
	}
	return false, err
}

func (s *UserService) UpdateProfile(ctx context.Context, userID primitive.ObjectID, upd ProfileUpdate) (*models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	verr := &ValidationError{}
	if upd.Name != nil {
		if name := strings.TrimSpace(*upd.Name); name == "" {
			verr.Add("name")
		} else {
			user.Name = name
		}
	}
	if upd.Email != nil {
		if email := normalizeEmail(*upd.Email); !validEmail(email) {
			verr.Add("email")
		} else {
			user.Email = email
		}
	}
	if upd.Password != nil && !s.validatePassword(*upd.Password) {
		verr.Add("password")
	}
	if err := verr.Err(); err != nil {
		return nil, err
	}

	if upd.Password != nil {
		hashed, err := utils.HashPassword(*upd.Password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		user.Password = hashed
	}
	user.UpdatedAt = s.now().UTC()

	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// requireAdmin checks the stored role rather than the token claim so a
// demotion takes effect before the token expires.
func (s *UserService) requireAdmin(ctx context.Context, actorID primitive.ObjectID) error {
	actor, err := s.users.FindByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrForbidden
		}
		return err
	}
	if actor.Role != models.RoleAdmin {
		return ErrForbidden
	}
	return nil
}

func (s *UserService) ListUsers(ctx context.Context, actorID primitive.ObjectID) ([]models.User, error) {
	if err := s.requireAdmin(ctx, actorID); err != nil {
		return nil, err
	}
	return s.users.List(ctx)
}

func (s *UserService) UpdateRole(ctx context.Context, actorID, userID primitive.ObjectID, role models.UserRole) (*models.User, error) {
	if err := s.requireAdmin(ctx, actorID); err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, &ValidationError{Fields: []string{"role"}}
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.Role = role
	user.UpdatedAt = s.now().UTC()
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	logging.Logger.Infof("Event ID: USER_ROLE_CHANGED, Description: User %s role set to %s by %s", userID.Hex(), role, actorID.Hex())
	return user, nil
}

func (s *UserService) DeleteUser(ctx context.Context, actorID, userID primitive.ObjectID) error {
	if err := s.requireAdmin(ctx, actorID); err != nil {
		return err
	}
	if err := s.users.Delete(ctx, userID); err != nil {
		return err
	}
	logging.Logger.Infof("Event ID: USER_DELETED, Description: User %s deleted by %s", userID.Hex(), actorID.Hex())
	return nil
}
