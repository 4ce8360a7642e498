package identity

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"github.com/synaptica-ai/clinic-console/pkg/common/logger"
	"github.com/synaptica-ai/clinic-console/pkg/common/models"
	"github.com/synaptica-ai/clinic-console/pkg/gateway/auth"
	"golang.org/x/crypto/bcrypt"
)

const MinPasswordLength = 6

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrValidation         = errors.New("invalid registration")
)

type Store interface {
	CreateUser(ctx context.Context, input CreateUserInput) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (models.User, error)
	GetPasswordHash(ctx context.Context, id uuid.UUID) (string, error)
}

// ExternalVerifier checks credentials against a federated identity provider.
type ExternalVerifier interface {
	Verify(ctx context.Context, email, password string) (auth.ExternalIdentity, error)
}

type Service struct {
	repo     Store
	external ExternalVerifier
}

// NewService builds the identity service. external may be nil.
func NewService(repo Store, external ExternalVerifier) *Service {
	return &Service{repo: repo, external: external}
}

func (s *Service) Register(ctx context.Context, req models.RegisterRequest) (models.User, error) {
	if _, err := mail.ParseAddress(strings.TrimSpace(req.Email)); err != nil {
		return models.User{}, fmt.Errorf("%w: email is not valid", ErrValidation)
	}
	if len(req.Password) < MinPasswordLength {
		return models.User{}, fmt.Errorf("%w: password must have at least %d characters", ErrValidation, MinPasswordLength)
	}
	if strings.TrimSpace(req.FirstName) == "" || strings.TrimSpace(req.LastName) == "" {
		return models.User{}, fmt.Errorf("%w: nombre and apellido are required", ErrValidation)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, err
	}

	return s.repo.CreateUser(ctx, CreateUserInput{
		Email:        req.Email,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PasswordHash: string(hash),
	})
}

// Authenticate checks the local password first. When that fails and an
// external verifier is configured, the provider gets the final say and an
// unknown user is provisioned locally.
func (s *Service) Authenticate(ctx context.Context, email, password string) (models.User, error) {
	if password == "" {
		return models.User{}, ErrInvalidCredentials
	}

	user, err := s.authenticateLocal(ctx, email, password)
	if err == nil || !errors.Is(err, ErrInvalidCredentials) || s.external == nil {
		return user, err
	}

	identity, verr := s.external.Verify(ctx, email, password)
	if verr != nil {
		logger.Log.WithError(verr).WithField("email", NormalizeEmail(email)).Debug("external login rejected")
		return models.User{}, ErrInvalidCredentials
	}
	return s.provision(ctx, email, identity)
}

func (s *Service) authenticateLocal(ctx context.Context, email, password string) (models.User, error) {
	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return models.User{}, ErrInvalidCredentials
		}
		return models.User{}, err
	}

	hash, err := s.repo.GetPasswordHash(ctx, user.ID)
	if err != nil {
		return models.User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return models.User{}, ErrInvalidCredentials
	}

	return user, nil
}

func (s *Service) provision(ctx context.Context, email string, identity auth.ExternalIdentity) (models.User, error) {
	existing, err := s.repo.GetUserByEmail(ctx, email)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return models.User{}, err
	}

	// no local hash: later logins keep going through the provider
	user, err := s.repo.CreateUser(ctx, CreateUserInput{
		Email:     email,
		FirstName: identity.FirstName,
		LastName:  identity.LastName,
		Metadata:  map[string]interface{}{"provisioned_by": "oidc"},
	})
	if errors.Is(err, ErrEmailAlreadyExists) {
		return s.repo.GetUserByEmail(ctx, email)
	}
	if err != nil {
		return models.User{}, err
	}
	logger.Log.WithField("user_id", user.ID).Info("provisioned user from identity provider")
	return user, nil
}

func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (models.User, error) {
	return s.repo.GetUserByID(ctx, id)
}
