package service

import (
	"context"
	"log"

	"golang.org/x/crypto/bcrypt"

	"github.com/gustavohdab/rettiwt-backend/internal/fanout"
	"github.com/gustavohdab/rettiwt-backend/internal/models"
	"github.com/gustavohdab/rettiwt-backend/internal/repository"
	"github.com/gustavohdab/rettiwt-backend/internal/validation"
)

// UserService handles accounts, profiles and the follow graph.
type UserService struct {
	users repository.UserRepository
	sink  fanout.Sink
}

// NewUserService creates a UserService. sink may be nil in tests that don't
// assert on fan-out.
func NewUserService(users repository.UserRepository, sink fanout.Sink) *UserService {
	return &UserService{users: users, sink: sink}
}

// RegisterInput carries a new account request.
type RegisterInput struct {
	Username string
	Email    string
	Password string
	Name     string
}

// Register validates and creates a new account. The stored email is
// normalized; the password is bcrypt-hashed and never returned.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	if err := validation.ValidateUsername(in.Username); err != nil {
		return nil, models.NewFieldValidationError("username", err.Error())
	}
	if err := validation.ValidateEmail(in.Email); err != nil {
		return nil, models.NewFieldValidationError("email", err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, models.NewFieldValidationError("password", err.Error())
	}
	if err := validation.ValidateProfileField("name", in.Name, validation.NameMaxLen); err != nil {
		return nil, models.NewFieldValidationError("name", err.Error())
	}

	email := validation.NormalizeEmail(in.Email)

	// Pre-checks give precise field errors; the unique indexes still back
	// them up under concurrent registration.
	if existing, err := s.users.GetByUsername(ctx, in.Username); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, models.NewConflictError("username already taken")
	}
	if existing, err := s.users.GetByEmail(ctx, email); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, models.NewConflictError("email already registered")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		Username: in.Username,
		Email:    email,
		Password: string(hashed),
		Name:     in.Name,
		Role:     models.RoleUser,
		IsActive: true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Authenticate verifies credentials and returns the account. Deactivated
// accounts fail with the same error as bad credentials; login reveals nothing
// about why it was refused.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.users.GetByEmail(ctx, validation.NormalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewAuthenticationError("invalid email or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, models.NewAuthenticationError("invalid email or password")
	}
	if !user.IsActive {
		return nil, models.NewAuthenticationError("invalid email or password")
	}
	return user, nil
}

// GetByID returns the account by id.
func (s *UserService) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.users.GetByID(ctx, id)
}

// Profile returns a user's public profile annotated for the viewer.
func (s *UserService) Profile(ctx context.Context, username string, viewerID uint) (*models.User, error) {
	return s.users.GetProfile(ctx, username, viewerID)
}

// UpdateProfileInput carries a partial profile update. Nil fields are left
// unchanged; empty strings clear them.
type UpdateProfileInput struct {
	Name     *string
	Bio      *string
	Location *string
	Website  *string
}

// UpdateProfile applies a partial profile update for userID.
func (s *UserService) UpdateProfile(ctx context.Context, userID uint, in UpdateProfileInput) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	apply := func(field string, dst *string, src *string, maxLen int) error {
		if src == nil {
			return nil
		}
		if err := validation.ValidateProfileField(field, *src, maxLen); err != nil {
			return models.NewFieldValidationError(field, err.Error())
		}
		*dst = *src
		return nil
	}

	if err := apply("name", &user.Name, in.Name, validation.NameMaxLen); err != nil {
		return nil, err
	}
	if err := apply("bio", &user.Bio, in.Bio, validation.BioMaxLen); err != nil {
		return nil, err
	}
	if err := apply("location", &user.Location, in.Location, validation.LocationMaxLen); err != nil {
		return nil, err
	}
	if err := apply("website", &user.Website, in.Website, validation.WebsiteMaxLen); err != nil {
		return nil, err
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// SetAvatarURL stores a new avatar image URL on the profile.
func (s *UserService) SetAvatarURL(ctx context.Context, userID uint, url string) (*models.User, error) {
	return s.setImageURL(ctx, userID, url, func(u *models.User, v string) { u.AvatarURL = v })
}

// SetHeaderURL stores a new header image URL on the profile.
func (s *UserService) SetHeaderURL(ctx context.Context, userID uint, url string) (*models.User, error) {
	return s.setImageURL(ctx, userID, url, func(u *models.User, v string) { u.HeaderURL = v })
}

func (s *UserService) setImageURL(ctx context.Context, userID uint, url string, set func(*models.User, string)) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	set(user, url)
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Follow creates a follow edge from followerID to the named user. Following
// yourself is rejected; following twice reports the duplicate.
func (s *UserService) Follow(ctx context.Context, followerID uint, username string) (*models.User, error) {
	target, err := s.resolveTarget(ctx, username)
	if err != nil {
		return nil, err
	}
	if target.ID == followerID {
		return nil, models.NewInvalidOperationError("cannot follow yourself")
	}

	if err := s.users.Follow(ctx, followerID, target.ID); err != nil {
		return nil, err
	}

	target, refErr := s.users.GetProfile(ctx, username, followerID)
	if refErr != nil {
		return nil, refErr
	}

	if actor := s.loadUser(ctx, followerID); actor != nil {
		s.emit(ctx, fanout.Followed{Actor: actor, Target: target})
	}
	return target, nil
}

// Unfollow removes the follow edge from followerID to the named user.
func (s *UserService) Unfollow(ctx context.Context, followerID uint, username string) (*models.User, error) {
	target, err := s.resolveTarget(ctx, username)
	if err != nil {
		return nil, err
	}
	if target.ID == followerID {
		return nil, models.NewInvalidOperationError("cannot unfollow yourself")
	}

	if err := s.users.Unfollow(ctx, followerID, target.ID); err != nil {
		return nil, err
	}

	target, refErr := s.users.GetProfile(ctx, username, followerID)
	if refErr != nil {
		return nil, refErr
	}

	if actor := s.loadUser(ctx, followerID); actor != nil {
		s.emit(ctx, fanout.Unfollowed{Actor: actor, Target: target})
	}
	return target, nil
}

// Followers lists the named user's followers, newest edge first.
func (s *UserService) Followers(ctx context.Context, username string, viewerID uint, limit, offset int) ([]models.User, error) {
	target, err := s.resolveTarget(ctx, username)
	if err != nil {
		return nil, err
	}
	return s.users.Followers(ctx, target.ID, viewerID, limit, offset)
}

// Following lists who the named user follows, newest edge first.
func (s *UserService) Following(ctx context.Context, username string, viewerID uint, limit, offset int) ([]models.User, error) {
	target, err := s.resolveTarget(ctx, username)
	if err != nil {
		return nil, err
	}
	return s.users.Following(ctx, target.ID, viewerID, limit, offset)
}

// Suggestions returns who-to-follow candidates for the viewer.
func (s *UserService) Suggestions(ctx context.Context, viewerID uint, limit int) ([]models.User, error) {
	return s.users.Suggestions(ctx, viewerID, limit)
}

// SetActive activates or deactivates an account (admin operation).
func (s *UserService) SetActive(ctx context.Context, userID uint, active bool) error {
	return s.users.SetActive(ctx, userID, active)
}

func (s *UserService) resolveTarget(ctx context.Context, username string) (*models.User, error) {
	target, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, models.NewNotFoundError("user", username)
	}
	return target, nil
}

func (s *UserService) loadUser(ctx context.Context, id uint) *models.User {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		log.Printf("user service: load user %d for fanout: %v", id, err)
		return nil
	}
	return user
}

func (s *UserService) emit(ctx context.Context, event fanout.Event) {
	if s.sink != nil {
		s.sink.Emit(ctx, event)
	}
}
