package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/shanekizito/Thinkly/internal/app"
	"github.com/shanekizito/Thinkly/internal/domain"
)

const (
	MinPasswordLength = 8
	DefaultTokenTTL   = 30 * 24 * time.Hour
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token has expired")
)

// Claims identify the user a token was issued to.
type Claims struct {
	UserID string `json:"uid"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// Session is returned by Register and Login.
type Session struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

type Service struct {
	users   app.UserRepository
	secret  []byte
	ttl     time.Duration
	clock   app.Clock
	onLogin func(domain.User)
	log     *logrus.Entry
}

func NewService(users app.UserRepository, secret string, ttl time.Duration, clock app.Clock) *Service {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Service{
		users:  users,
		secret: []byte(secret),
		ttl:    ttl,
		clock:  clock,
		log:    logrus.WithField("component", "auth"),
	}
}

// OnLogin registers a hook that runs after every successful sign-in.
func (s *Service) OnLogin(fn func(domain.User)) {
	s.onLogin = fn
}

// Register creates a user with fresh gamification state.
func (s *Service) Register(ctx context.Context, email, displayName, password string) (Session, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	displayName = strings.TrimSpace(displayName)
	if email == "" || displayName == "" || password == "" {
		return Session{}, domain.ErrMissingFields
	}
	if len(password) < MinPasswordLength {
		return Session{}, domain.ErrWeakPassword
	}
	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return Session{}, domain.ErrEmailTaken
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return Session{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Session{}, fmt.Errorf("hash password: %w", err)
	}
	user := domain.User{
		ID:                 uuid.NewString(),
		Email:              email,
		DisplayName:        displayName,
		PasswordHash:       string(hash),
		Level:              1,
		Badges:             []string{},
		CoursesLimit:       1,
		SubscriptionStatus: domain.SubscriptionNone,
		Language:           "en",
		ReminderEnabled:    true,
		ReminderTime:       app.DefaultReminderTime,
		CreatedAt:          s.clock(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return Session{}, err
	}
	s.log.WithField("uid", user.ID).Info("user registered")
	if s.onLogin != nil {
		s.onLogin(user)
	}
	return s.session(user)
}

func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return Session{}, domain.ErrMissingFields
	}
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return Session{}, domain.ErrInvalidCredentials
		}
		return Session{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return Session{}, domain.ErrInvalidCredentials
	}
	if s.onLogin != nil {
		s.onLogin(user)
	}
	return s.session(user)
}

func (s *Service) session(user domain.User) (Session, error) {
	token, err := s.IssueToken(user)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, User: user}, nil
}

func (s *Service) IssueToken(user domain.User) (string, error) {
	now := s.clock()
	claims := &Claims{
		UserID: user.ID,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ParseToken validates raw and returns the user id it carries.
func (s *Service) ParseToken(raw string) (string, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.clock))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", ErrInvalidToken
	}
	if !token.Valid || claims.UserID == "" {
		return "", ErrInvalidToken
	}
	return claims.UserID, nil
}
