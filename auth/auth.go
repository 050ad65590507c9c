package auth

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"couple-journal/model"
	"couple-journal/storage"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAlreadyRegistered  = errors.New("email already registered")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrWeakPassword       = errors.New("password must be at least 6 characters")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

const (
	MinPasswordLength = 6
	DefaultTokenTTL   = 24 * time.Hour
)

type Session struct {
	User      model.User `json:"user"`
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expiresAt"`
}

func (s Session) IsGuest() bool {
	return s.User.IsGuest()
}

type claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Listener is told about sign-ins (with the user) and sign-outs (with nil).
type Listener func(user *model.User)

type Service struct {
	users    storage.UserDB
	secret   []byte
	ttl      time.Duration
	revoked  *revocationList
	validate *validator.Validate
	log      *zap.Logger
	now      func() time.Time

	mu        sync.RWMutex
	listeners map[int]Listener
	nextID    int
}

func NewService(users storage.UserDB, secret string, log *zap.Logger) *Service {
	return &Service{
		users:     users,
		secret:    []byte(secret),
		ttl:       DefaultTokenTTL,
		revoked:   newRevocationList(),
		validate:  validator.New(),
		log:       log,
		now:       time.Now,
		listeners: map[int]Listener{},
	}
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

func (s *Service) SignUp(ctx context.Context, email, password string) (model.User, error) {
	if err := s.validate.Var(email, "required,email"); err != nil {
		return model.User{}, ErrInvalidEmail
	}
	if len(password) < MinPasswordLength {
		return model.User{}, ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return model.User{}, fmt.Errorf("hash password: %w", err)
	}

	row, err := s.users.CreateUser(ctx, model.UserDB{Email: email, PasswordHash: string(hash)})
	if errors.Is(err, storage.ErrAlreadyExists) {
		return model.User{}, ErrAlreadyRegistered
	}
	if err != nil {
		s.log.Error("failed to create user", zap.Error(err))
		return model.User{}, err
	}

	s.log.Info("user registered", zap.String("user_id", row.ID.Hex()))
	return model.ToUser(row), nil
}

func (s *Service) SignIn(ctx context.Context, email, password string) (Session, error) {
	row, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, storage.ErrNotFound) {
		s.log.Warn("invalid login credentials")
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		s.log.Error("failed to look up user", zap.Error(err))
		return Session{}, err
	}
	if !CheckPasswordHash(password, row.PasswordHash) {
		s.log.Warn("invalid login credentials", zap.String("user_id", row.ID.Hex()))
		return Session{}, ErrInvalidCredentials
	}

	session, err := s.issue(model.ToUser(*row))
	if err != nil {
		return Session{}, err
	}

	s.log.Info("login successful", zap.String("user_id", session.User.ID))
	s.notify(&session.User)
	return session, nil
}

// GuestSession issues a token for the shared read-only visitor.
func (s *Service) GuestSession() (Session, error) {
	return s.issue(model.User{ID: model.GuestUserID, Email: model.GuestEmail})
}

func (s *Service) SignOut(ctx context.Context, token string) error {
	c, err := s.parse(token)
	if err != nil {
		return err
	}
	if c.ExpiresAt != nil {
		s.revoked.add(c.ID, c.ExpiresAt.Time, s.now())
	}
	s.log.Info("signed out", zap.String("user_id", c.Subject))
	s.notify(nil)
	return nil
}

// Session returns the session a token belongs to, provided the token is
// well-signed, unexpired and not signed out.
func (s *Service) Session(ctx context.Context, token string) (Session, error) {
	c, err := s.parse(token)
	if err != nil {
		return Session{}, err
	}
	session := Session{
		User:  model.User{ID: c.Subject, Email: c.Email},
		Token: token,
	}
	if c.ExpiresAt != nil {
		session.ExpiresAt = c.ExpiresAt.Time
	}
	return session, nil
}

// Subscribe registers l for auth changes and returns a function that removes
// it again.
func (s *Service) Subscribe(l Listener) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Service) notify(user *model.User) {
	s.mu.RLock()
	ids := make([]int, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	listeners := make([]Listener, 0, len(ids))
	for _, id := range ids {
		listeners = append(listeners, s.listeners[id])
	}
	s.mu.RUnlock()

	for _, l := range listeners {
		if user == nil {
			l(nil)
			continue
		}
		u := *user
		l(&u)
	}
}

func (s *Service) issue(user model.User) (Session, error) {
	now := s.now()
	expires := now.Add(s.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	})

	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		s.log.Error("failed to generate JWT token", zap.Error(err))
		return Session{}, err
	}
	return Session{User: user, Token: tokenString, ExpiresAt: expires.Truncate(time.Second)}, nil
}

func (s *Service) parse(tokenString string) (*claims, error) {
	var c claims
	token, err := jwt.ParseWithClaims(tokenString, &c, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil || !token.Valid || c.Subject == "" {
		return nil, ErrInvalidToken
	}
	if s.revoked.contains(c.ID, s.now()) {
		return nil, ErrInvalidToken
	}
	return &c, nil
}
