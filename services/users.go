package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/lireddit/models"
	"github.com/cppla/lireddit/utils"
)

const (
	minUsernameLength = 6
	maxUsernameLength = 64
	minPasswordLength = 8
	maxUsersListed    = 100
)

var validate = validator.New()

// UserService manages accounts and the user-delete cascade.
type UserService struct {
	db      *gorm.DB
	authors *AuthorCache
	log     *zap.Logger
}

// NewUserService creates a user service. authors may be nil.
func NewUserService(db *gorm.DB, authors *AuthorCache, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{db: db, authors: authors, log: logger}
}

// ValidateRegister checks registration input and returns every failing field.
func ValidateRegister(username, email, password string) error {
	var errs ValidationErrors
	switch {
	case utf8.RuneCountInString(username) < minUsernameLength:
		errs = append(errs, &ValidationError{Field: "username", Message: fmt.Sprintf("username length must be at least %d", minUsernameLength)})
	case utf8.RuneCountInString(username) > maxUsernameLength:
		errs = append(errs, &ValidationError{Field: "username", Message: "username is too long"})
	case strings.Contains(username, "@"):
		errs = append(errs, &ValidationError{Field: "username", Message: "username cannot include an @"})
	}
	if err := validate.Var(email, "omitempty,email"); err != nil {
		errs = append(errs, &ValidationError{Field: "email", Message: "invalid email address"})
	}
	if len(password) < minPasswordLength {
		errs = append(errs, &ValidationError{Field: "password", Message: fmt.Sprintf("password length must be at least %d", minPasswordLength)})
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Register creates an account. Taken usernames or emails are reported as field errors.
func (s *UserService) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))
	if err := ValidateRegister(username, email, password); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	var count int64
	if err := db.Model(&models.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("check username: %w", err)
	}
	if count > 0 {
		return nil, invalid("username", "username is already taken")
	}
	if email != "" {
		if err := db.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
			return nil, fmt.Errorf("check email: %w", err)
		}
		if count > 0 {
			return nil, invalid("email", "email address is already taken")
		}
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := models.User{Username: username, PasswordHash: hash}
	if email != "" {
		user.Email = &email
	}
	if err := db.Create(&user).Error; err != nil {
		// lost a race against a concurrent registration
		if isConflict(err) {
			return nil, invalid("username", "username or email is already taken")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	s.log.Info("user registered", zap.Uint("user_id", user.ID), zap.String("username", user.Username))
	return &user, nil
}

// Login verifies credentials. Identifiers containing @ are matched against email.
func (s *UserService) Login(ctx context.Context, usernameOrEmail, password string) (*models.User, error) {
	identifier := strings.TrimSpace(usernameOrEmail)
	if identifier == "" {
		return nil, invalid("username", "username cannot be empty")
	}
	query := s.db.WithContext(ctx)
	if strings.Contains(identifier, "@") {
		query = query.Where("email = ?", strings.ToLower(identifier))
	} else {
		query = query.Where("username = ?", identifier)
	}

	var user models.User
	err := query.Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, invalid("username", "username does not exist")
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if !utils.CheckPassword(user.PasswordHash, password) {
		return nil, invalid("password", "password does not match")
	}
	return &user, nil
}

// GetUser loads a user by id.
func (s *UserService) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	return &user, nil
}

// GetUserByUsername loads a user by username.
func (s *UserService) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("username = ?", username).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	return &user, nil
}

// ListUsers returns users by ascending id.
func (s *UserService) ListUsers(ctx context.Context) ([]models.User, error) {
	users := []models.User{}
	if err := s.db.WithContext(ctx).Order("id ASC").Limit(maxUsersListed).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// DeleteUser removes the caller's account in one transaction: the points their votes
// gave other posts are reverted, then their votes, their posts with every vote on
// those posts, and the user row are deleted.
func (s *UserService) DeleteUser(ctx context.Context, callerID, targetID uint) error {
	if callerID == 0 || callerID != targetID {
		return ErrUnauthorized
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// the exclusive user lock waits out vote transactions holding the shared one
		if err := lockUser(tx, targetID); err != nil {
			return err
		}

		var votes []models.Vote
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ?", targetID).
			Find(&votes).Error; err != nil {
			return err
		}
		var ownIDs []uint
		if err := tx.Model(&models.Post{}).Where("author_id = ?", targetID).Pluck("id", &ownIDs).Error; err != nil {
			return err
		}

		// lock every affected post in ascending id order before writing
		lockIDs := append([]uint{}, ownIDs...)
		for _, v := range votes {
			lockIDs = append(lockIDs, v.PostID)
		}
		lockIDs = utils.UniqueUint(lockIDs)
		sort.Slice(lockIDs, func(i, j int) bool { return lockIDs[i] < lockIDs[j] })
		if len(lockIDs) > 0 {
			var locked []models.Post
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Select("id").
				Where("id IN ?", lockIDs).
				Order("id ASC").
				Find(&locked).Error; err != nil {
				return err
			}
		}

		own := make(map[uint]struct{}, len(ownIDs))
		for _, id := range ownIDs {
			own[id] = struct{}{}
		}
		for _, v := range votes {
			if _, ok := own[v.PostID]; ok {
				continue
			}
			if err := addPoints(tx, v.PostID, -v.Value); err != nil {
				return err
			}
		}

		if err := tx.Where("user_id = ?", targetID).Delete(&models.Vote{}).Error; err != nil {
			return err
		}
		if len(ownIDs) > 0 {
			if err := tx.Where("post_id IN ?", ownIDs).Delete(&models.Vote{}).Error; err != nil {
				return err
			}
			if err := tx.Where("author_id = ?", targetID).Delete(&models.Post{}).Error; err != nil {
				return err
			}
		}
		return tx.Where("id = ?", targetID).Delete(&models.User{}).Error
	})
	if err != nil {
		return wrapStorage("delete user", err)
	}

	if s.authors != nil {
		s.authors.Invalidate(ctx, targetID)
	}
	s.log.Info("user deleted", zap.Uint("user_id", targetID))
	return nil
}

func lockUser(tx *gorm.DB, userID uint) error {
	var user models.User
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").
		Where("id = ?", userID).
		Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrUnauthorized
	}
	return err
}
