package service

import (
	"context"
	"errors"
	"regexp"
	"time"
	"unicode/utf8"

	"github.com/Baaaki/flavorshare/internal/apperror"
	"github.com/Baaaki/flavorshare/internal/metrics"
	"github.com/Baaaki/flavorshare/internal/models"
	"github.com/Baaaki/flavorshare/internal/policy"
	"github.com/Baaaki/flavorshare/internal/repository"
	"github.com/Baaaki/flavorshare/internal/utils"
	"github.com/Baaaki/flavorshare/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	// ErrInvalidCredentials is returned for an unknown email and for a wrong
	// password alike.
	ErrInvalidCredentials = errors.New("invalid credentials")

	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
)

const (
	maxUsernameLength = 50
	maxEmailLength    = 100
	maxPasswordLength = 128

	msgEmailTaken    = "Email already registered"
	msgUsernameTaken = "Username already taken"
)

type AuthService struct {
	userRepo      *repository.UserRepository
	jwtSecret     string
	jwtExpiration time.Duration
}

func NewAuthService(userRepo *repository.UserRepository, jwtSecret string, jwtExpiration time.Duration) *AuthService {
	return &AuthService{
		userRepo:      userRepo,
		jwtSecret:     jwtSecret,
		jwtExpiration: jwtExpiration,
	}
}

// TokenTTL is how long issued tokens stay valid.
func (s *AuthService) TokenTTL() time.Duration {
	return s.jwtExpiration
}

func (s *AuthService) Register(ctx context.Context, username, email, password string) (*models.User, string, error) {
	start := time.Now()
	username = models.NormalizeUsername(username)
	email = models.NormalizeEmail(email)

	logger.Log.Debug("Processing user registration",
		zap.String("username", username),
		zap.String("email", email),
	)

	// 1. Validate input
	if err := validateRegisterInput(username, email, password); err != nil {
		logger.Log.Warn("Registration validation failed",
			zap.String("username", username),
			zap.Error(err),
		)
		return nil, "", err
	}

	// 2. Uniqueness; email collisions are reported first
	if err := s.checkAvailable(ctx, username, email); err != nil {
		return nil, "", err
	}

	// 3. Hash password (Argon2)
	hashStart := time.Now()
	hashedPassword, err := utils.HashPassword(password)
	if err != nil {
		logger.Log.Error("Failed to hash password", zap.Error(err))
		return nil, "", err
	}
	hashDuration := time.Since(hashStart)

	// 4. Create user
	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hashedPassword,
	}

	if err := s.userRepo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Lost a race with a concurrent registration.
			if dupErr := s.checkAvailable(ctx, username, email); dupErr != nil {
				return nil, "", dupErr
			}
			return nil, "", apperror.Duplicate("email", msgEmailTaken)
		}
		logger.Log.Error("Failed to create user in database",
			zap.String("username", username),
			zap.Error(err),
		)
		return nil, "", err
	}

	// 5. Generate JWT token
	token, err := utils.GenerateToken(user, s.jwtSecret, s.jwtExpiration)
	if err != nil {
		logger.Log.Error("Failed to generate JWT token",
			zap.String("user_id", user.ID.String()),
			zap.Error(err),
		)
		return nil, "", err
	}

	logger.Log.Info("User registered successfully",
		zap.String("user_id", user.ID.String()),
		zap.String("username", username),
		zap.Duration("hash_duration", hashDuration),
		zap.Duration("total_duration", time.Since(start)),
	)

	return user, token, nil
}

// checkAvailable reports a Duplicate error when email or username is taken.
func (s *AuthService) checkAvailable(ctx context.Context, username, email string) error {
	existing, err := s.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		logger.Log.Error("Failed to check email existence", zap.Error(err))
		return err
	}
	if existing != nil {
		logger.Log.Warn("Email already exists", zap.String("email", email))
		return apperror.Duplicate("email", msgEmailTaken)
	}

	existing, err = s.userRepo.GetUserByUsername(ctx, username)
	if err != nil {
		logger.Log.Error("Failed to check username existence", zap.Error(err))
		return err
	}
	if existing != nil {
		logger.Log.Warn("Username already exists", zap.String("username", username))
		return apperror.Duplicate("username", msgUsernameTaken)
	}
	return nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	start := time.Now()
	email = models.NormalizeEmail(email)

	logger.Log.Debug("Processing user login", zap.String("email", email))

	// 1. Get user by email
	user, err := s.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		logger.Log.Error("Failed to get user by email", zap.Error(err))
		return nil, "", err
	}
	if user == nil {
		utils.VerifyDummy(password)
		metrics.LoginsTotal.WithLabelValues("failure").Inc()
		logger.Log.Warn("Login failed: user not found", zap.String("email", email))
		return nil, "", ErrInvalidCredentials
	}

	// 2. Verify password
	verifyStart := time.Now()
	valid, err := utils.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		logger.Log.Error("Failed to verify password",
			zap.String("user_id", user.ID.String()),
			zap.Error(err),
		)
		return nil, "", err
	}
	verifyDuration := time.Since(verifyStart)

	if !valid {
		metrics.LoginsTotal.WithLabelValues("failure").Inc()
		logger.Log.Warn("Login failed: invalid password",
			zap.String("user_id", user.ID.String()),
		)
		return nil, "", ErrInvalidCredentials
	}

	// 3. Generate JWT token
	token, err := utils.GenerateToken(user, s.jwtSecret, s.jwtExpiration)
	if err != nil {
		logger.Log.Error("Failed to generate JWT token",
			zap.String("user_id", user.ID.String()),
			zap.Error(err),
		)
		return nil, "", err
	}

	metrics.LoginsTotal.WithLabelValues("success").Inc()
	logger.Log.Info("User logged in successfully",
		zap.String("user_id", user.ID.String()),
		zap.String("username", user.Username),
		zap.Duration("password_verify_duration", verifyDuration),
		zap.Duration("total_duration", time.Since(start)),
	)

	return user, token, nil
}

// ResolveToken turns a bearer credential into a caller. A well-signed token
// whose user has since been removed is rejected.
func (s *AuthService) ResolveToken(ctx context.Context, token string) (*policy.Caller, error) {
	claims, err := utils.ValidateToken(token, s.jwtSecret)
	if err != nil {
		if errors.Is(err, utils.ErrExpiredToken) {
			return nil, apperror.Unauthorized("Token expired")
		}
		return nil, apperror.Unauthorized("Invalid token")
	}
	caller := &policy.Caller{UserID: claims.UserID, Username: claims.Username}
	if err := requireAccount(ctx, s.userRepo, caller); err != nil {
		return nil, err
	}
	return caller, nil
}

// Profile is a user together with their favorite recipe ids.
type Profile struct {
	User      *models.User
	Favorites []uuid.UUID
}

func (s *AuthService) GetProfile(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		logger.Log.Error("Failed to load profile",
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
		return nil, err
	}
	if user == nil {
		return nil, apperror.NotFound("User")
	}

	favorites, err := s.userRepo.ListFavoriteIDs(ctx, userID)
	if err != nil {
		logger.Log.Error("Failed to load favorites",
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
		return nil, err
	}

	return &Profile{User: user, Favorites: favorites}, nil
}

// ProfileUpdate carries the fields a user may change. Nil or empty values
// leave the field unchanged.
type ProfileUpdate struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
}

func (s *AuthService) UpdateProfile(ctx context.Context, userID uuid.UUID, update ProfileUpdate) (*models.User, error) {
	logger.Log.Debug("Processing profile update", zap.String("user_id", userID.String()))

	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		logger.Log.Error("Failed to load user for update",
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
		return nil, err
	}
	if user == nil {
		return nil, apperror.NotFound("User")
	}

	fields := make(map[string]interface{})

	// Only fields that actually change are re-checked for uniqueness.
	if update.Username != nil {
		username := models.NormalizeUsername(*update.Username)
		if username != "" && username != user.Username {
			if err := validateUsername(username); err != nil {
				return nil, err
			}
			existing, err := s.userRepo.GetUserByUsername(ctx, username)
			if err != nil {
				return nil, err
			}
			if existing != nil {
				return nil, apperror.Duplicate("username", msgUsernameTaken)
			}
			fields["username"] = username
		}
	}

	if update.Email != nil {
		email := models.NormalizeEmail(*update.Email)
		if email != "" && email != user.Email {
			if err := validateEmail(email); err != nil {
				return nil, err
			}
			existing, err := s.userRepo.GetUserByEmail(ctx, email)
			if err != nil {
				return nil, err
			}
			if existing != nil {
				return nil, apperror.Duplicate("email", msgEmailTaken)
			}
			fields["email"] = email
		}
	}

	if len(fields) == 0 {
		return user, nil
	}

	if err := s.userRepo.UpdateProfile(ctx, user, fields); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			if _, ok := fields["username"]; ok {
				return nil, apperror.Duplicate("username", msgUsernameTaken)
			}
			return nil, apperror.Duplicate("email", msgEmailTaken)
		}
		logger.Log.Error("Failed to update profile",
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
		return nil, err
	}

	logger.Log.Info("Profile updated",
		zap.String("user_id", userID.String()),
		zap.Int("fields", len(fields)),
	)
	return user, nil
}

func validateRegisterInput(username, email, password string) error {
	if err := validateUsername(username); err != nil {
		return err
	}
	if err := validateEmail(email); err != nil {
		return err
	}
	if password == "" {
		return apperror.ValidationFailed("password", "password is required")
	}
	if len(password) > maxPasswordLength {
		return apperror.ValidationFailed("password", "password must be at most 128 characters")
	}
	return nil
}

func validateUsername(username string) error {
	if username == "" {
		return apperror.ValidationFailed("username", "username is required")
	}
	if utf8.RuneCountInString(username) > maxUsernameLength {
		return apperror.ValidationFailed("username", "username must be at most 50 characters")
	}
	return nil
}

func validateEmail(email string) error {
	if email == "" {
		return apperror.ValidationFailed("email", "email is required")
	}
	if len(email) > maxEmailLength || !emailRegex.MatchString(email) {
		return apperror.ValidationFailed("email", "invalid email format")
	}
	return nil
}
