package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/Dan9191/expense-service/internal/access"
	"github.com/Dan9191/expense-service/internal/auth"
	"github.com/Dan9191/expense-service/internal/cache"
	"github.com/Dan9191/expense-service/internal/models"
	"github.com/Dan9191/expense-service/internal/repository"
)

const usernameMaxLength = 150

var usernamePattern = regexp.MustCompile(`^[\p{L}\p{N}_.@+-]+$`)

// Store is the persistence the service needs; *repository.Repository and
// *repository.Memory both satisfy it
type Store interface {
	CreateUser(ctx context.Context, user *models.User) error
	FindUserByUsername(ctx context.Context, username string) (*models.User, error)
	FindUserByID(ctx context.Context, id int64) (*models.User, error)

	CreateTransaction(ctx context.Context, ownerID int64, f models.TransactionFields) (*models.Transaction, error)
	FindTransactionByID(ctx context.Context, id int64) (*models.Transaction, error)
	UpdateTransaction(ctx context.Context, id int64, f models.TransactionFields) (*models.Transaction, error)
	DeleteTransaction(ctx context.Context, id int64) error
	ListTransactions(ctx context.Context, q models.TransactionQuery) (int, []models.Transaction, error)
}

// Service handles business logic
type Service struct {
	store  Store
	cache  cache.Cache
	tokens *auth.TokenManager
	perm   access.Permission
	log    *logrus.Logger
}

// NewService initializes a new service. A nil cache disables snapshot caching.
func NewService(store Store, c cache.Cache, tokens *auth.TokenManager, log *logrus.Logger) *Service {
	return &Service{
		store:  store,
		cache:  c,
		tokens: tokens,
		perm:   access.All(access.IsAuthenticated, access.IsOwnerOrSuperuser),
		log:    log,
	}
}

// Credentials is a registration or login request; nil means the field was not sent
type Credentials struct {
	Username *string
	Password *string
}

// TokenPair is the result of a successful login
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Register creates a new regular user with hashed password
func (s *Service) Register(ctx context.Context, in Credentials) (*models.User, error) {
	return s.createUser(ctx, in, false)
}

// CreateSuperuser creates a user that bypasses ownership checks
func (s *Service) CreateSuperuser(ctx context.Context, in Credentials) (*models.User, error) {
	return s.createUser(ctx, in, true)
}

func (s *Service) createUser(ctx context.Context, in Credentials, superuser bool) (*models.User, error) {
	verr := models.NewValidationError()
	switch {
	case in.Username == nil:
		verr.Add("username", models.MsgRequired)
	case *in.Username == "":
		verr.Add("username", models.MsgBlank)
	case utf8.RuneCountInString(*in.Username) > usernameMaxLength:
		verr.Add("username", fmt.Sprintf("Ensure this field has no more than %d characters.", usernameMaxLength))
	case !usernamePattern.MatchString(*in.Username):
		verr.Add("username", "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters.")
	}
	switch {
	case in.Password == nil:
		verr.Add("password", models.MsgRequired)
	case strings.TrimSpace(*in.Password) == "":
		verr.Add("password", models.MsgBlank)
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	if _, err := s.store.FindUserByUsername(ctx, *in.Username); err == nil {
		return nil, duplicateUsername()
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(*in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:     *in.Username,
		PasswordHash: string(hashedPassword),
		IsSuperuser:  superuser,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateUsername) {
			return nil, duplicateUsername()
		}
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"user_id": user.ID, "superuser": superuser}).
		Infof("User registered: %s", user.Username)
	return user, nil
}

func duplicateUsername() error {
	verr := models.NewValidationError()
	verr.Add("username", "A user with that username already exists.")
	return verr
}

// Login authenticates a user and returns an access/refresh token pair
func (s *Service) Login(ctx context.Context, username, password string) (*TokenPair, error) {
	user, err := s.store.FindUserByUsername(ctx, username)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	// Verify password
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	accessToken, err := s.tokens.Issue(user.ID, auth.TypeAccess)
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.tokens.Issue(user.ID, auth.TypeRefresh)
	if err != nil {
		return nil, err
	}

	s.log.WithField("user_id", user.ID).Infof("User logged in: %s", user.Username)
	return &TokenPair{Access: accessToken, Refresh: refreshToken}, nil
}

// Refresh exchanges a refresh token for a new access token
func (s *Service) Refresh(ctx context.Context, refresh string) (string, error) {
	user, err := s.userFromToken(ctx, refresh, auth.TypeRefresh)
	if err != nil {
		return "", err
	}
	return s.tokens.Issue(user.ID, auth.TypeAccess)
}

// Authenticate resolves an access token to the current state of its user
func (s *Service) Authenticate(ctx context.Context, token string) (*models.User, error) {
	return s.userFromToken(ctx, token, auth.TypeAccess)
}

func (s *Service) userFromToken(ctx context.Context, raw, tokenType string) (*models.User, error) {
	claims, err := s.tokens.Parse(raw, tokenType)
	if err != nil {
		return nil, ErrInvalidToken
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, ErrInvalidToken
	}

	user, err := s.store.FindUserByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}
