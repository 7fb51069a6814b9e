package member

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/ovaphlow/pitchfork/service-member-go/internal/blob"
	"github.com/ovaphlow/pitchfork/service-member-go/internal/member/entity"
	memberrepo "github.com/ovaphlow/pitchfork/service-member-go/internal/member/repo"
	"github.com/ovaphlow/pitchfork/service-member-go/internal/metrics"
	"github.com/ovaphlow/pitchfork/service-member-go/internal/validation"
	"github.com/ovaphlow/pitchfork/service-member-go/pkg/utilities"
)

// PasswordHasher defines the minimal hashing interface.
type PasswordHasher interface {
	Hash(pw string) (string, error)
	Verify(hash, pw string) bool
}

// BcryptHasher hashes with a fresh random salt per call.
type BcryptHasher struct{ Cost int }

const DefaultBcryptCost = 10

func (b BcryptHasher) Hash(pw string) (string, error) {
	cost := b.Cost
	if cost == 0 {
		cost = DefaultBcryptCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(pw), cost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

func (b BcryptHasher) Verify(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

// Repository is the account store.
type Repository interface {
	Create(ctx context.Context, m *entity.Member) error
	GetByEmail(ctx context.Context, email string) (*entity.Member, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

// Tokens mints and checks session tokens.
type Tokens interface {
	Issue(email string) (string, error)
	Verify(tok string) (string, error)
}

var (
	ErrDuplicateAccount   = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNoSuchAccount      = fmt.Errorf("%w: user does not exist", ErrInvalidCredentials)
	ErrInvalidPassword    = fmt.Errorf("%w: invalid password", ErrInvalidCredentials)
	ErrInvalidToken       = errors.New("invalid token")
	ErrLoginBlocked       = errors.New("login temporarily blocked")
	ErrUpstream           = errors.New("upstream failure")
)

func upstream(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrUpstream, op, err)
}

// LoginPolicy lets a deployment throttle or lock out logins. Allow runs
// before the password is checked; returning an error wrapping
// ErrLoginBlocked rejects the attempt. Record sees every checked attempt.
type LoginPolicy interface {
	Allow(ctx context.Context, email string) error
	Record(ctx context.Context, email string, success bool)
}

// NoopPolicy allows everything.
type NoopPolicy struct{}

func (NoopPolicy) Allow(context.Context, string) error { return nil }

func (NoopPolicy) Record(context.Context, string, bool) {}

// Service orchestrates registration, login and token validation.
type Service struct {
	repo   Repository
	tokens Tokens
	store  blob.Store
	hasher PasswordHasher

	// configuration knobs
	HashTimeout   time.Duration
	UploadTimeout time.Duration
	Policy        LoginPolicy
	Metrics       *metrics.Metrics
	Logger        *zap.SugaredLogger
}

func NewService(r Repository, tokens Tokens, store blob.Store, hasher PasswordHasher) *Service {
	if hasher == nil {
		hasher = BcryptHasher{Cost: DefaultBcryptCost}
	}
	return &Service{
		repo:          r,
		tokens:        tokens,
		store:         store,
		hasher:        hasher,
		HashTimeout:   5 * time.Second,
		UploadTimeout: 30 * time.Second,
		Policy:        NoopPolicy{},
		Logger:        zap.NewNop().Sugar(),
	}
}

// RegisterInput is a registration request after form normalization.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Tasks    []string
	Picture  *validation.FileMeta
	// PictureBody streams the file described by Picture.
	PictureBody io.Reader
}

// Register creates an account. Either the account is stored with its
// uploaded picture or nothing is stored at all.
func (s *Service) Register(ctx context.Context, in RegisterInput) error {
	err := validation.Registration(validation.RegistrationInput{
		Name:     in.Name,
		Email:    in.Email,
		Password: in.Password,
		Notes:    in.Tasks,
		Picture:  in.Picture,
	}).Err()
	if err != nil {
		s.Metrics.Registration(metrics.ResultValidation)
		return err
	}

	exists, err := s.repo.ExistsByEmail(ctx, in.Email)
	if err != nil {
		s.Metrics.Registration(metrics.ResultError)
		return upstream("check email", err)
	}
	if exists {
		s.Metrics.Registration(metrics.ResultDuplicate)
		return ErrDuplicateAccount
	}

	hash, err := bounded(ctx, s.HashTimeout, func() (string, error) { return s.hasher.Hash(in.Password) })
	if err != nil {
		s.Metrics.Registration(metrics.ResultError)
		return upstream("hash password", err)
	}

	url, err := s.upload(ctx, in)
	if err != nil {
		s.Metrics.Registration(metrics.ResultError)
		return upstream("upload picture", err)
	}

	m := &entity.Member{
		ID:           utilities.NewSnowflakeID(),
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		ProfilePic:   url,
		Tasks:        in.Tasks,
	}
	if err := s.repo.Create(ctx, m); err != nil {
		s.discard(ctx, url)
		if errors.Is(err, memberrepo.ErrDuplicateEmail) {
			s.Metrics.Registration(metrics.ResultDuplicate)
			return ErrDuplicateAccount
		}
		s.Metrics.Registration(metrics.ResultError)
		return upstream("store member", err)
	}
	s.Metrics.Registration(metrics.ResultSuccess)
	s.Logger.Infow("member registered", "id", m.ID)
	return nil
}

func (s *Service) upload(ctx context.Context, in RegisterInput) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.UploadTimeout)
	defer cancel()
	return s.store.Put(ctx, blob.Object{
		Name:        in.Picture.Name,
		ContentType: in.Picture.ContentType,
		Size:        in.Picture.Size,
		Body:        in.PictureBody,
	})
}

// discard removes a picture whose account was never stored. It runs even
// when the request context is already canceled.
func (s *Service) discard(ctx context.Context, url string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.UploadTimeout)
	defer cancel()
	if err := s.store.Delete(ctx, url); err != nil {
		s.Logger.Warnw("orphaned profile picture", "url", url, "err", err)
	}
}

// LoginResult is the public profile plus a fresh session token.
type LoginResult struct {
	entity.Profile
	AuthToken string `json:"authToken"`
}

// Login checks credentials and issues a session token. Unknown emails and
// wrong passwords are reported separately.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if err := validation.Login(email, password).Err(); err != nil {
		s.Metrics.Login(metrics.ResultValidation)
		return nil, err
	}
	if err := s.Policy.Allow(ctx, email); err != nil {
		s.Metrics.Login(metrics.ResultBlocked)
		return nil, err
	}

	m, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, memberrepo.ErrNotFound) {
			s.Policy.Record(ctx, email, false)
			s.Metrics.Login(metrics.ResultNoAccount)
			return nil, ErrNoSuchAccount
		}
		s.Metrics.Login(metrics.ResultError)
		return nil, upstream("load member", err)
	}

	ok, err := bounded(ctx, s.HashTimeout, func() (bool, error) { return s.hasher.Verify(m.PasswordHash, password), nil })
	if err != nil {
		s.Metrics.Login(metrics.ResultError)
		return nil, upstream("verify password", err)
	}
	if !ok {
		s.Policy.Record(ctx, email, false)
		s.Metrics.Login(metrics.ResultInvalidPassword)
		return nil, ErrInvalidPassword
	}

	tok, err := s.tokens.Issue(m.Email)
	if err != nil {
		s.Metrics.Login(metrics.ResultError)
		return nil, upstream("issue token", err)
	}
	s.Policy.Record(ctx, email, true)
	s.Metrics.Login(metrics.ResultSuccess)
	return &LoginResult{Profile: m.Profile(), AuthToken: tok}, nil
}

// ValidateToken resolves a session token to the current profile of its
// account. It never issues a new token.
func (s *Service) ValidateToken(ctx context.Context, tok string) (*entity.Profile, error) {
	if tok == "" {
		s.Metrics.TokenValidation(metrics.ResultInvalidToken)
		return nil, ErrInvalidToken
	}
	email, err := s.tokens.Verify(tok)
	if err != nil {
		s.Metrics.TokenValidation(metrics.ResultInvalidToken)
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	m, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, memberrepo.ErrNotFound) {
			s.Metrics.TokenValidation(metrics.ResultNoAccount)
			return nil, ErrNoSuchAccount
		}
		s.Metrics.TokenValidation(metrics.ResultError)
		return nil, upstream("load member", err)
	}
	s.Metrics.TokenValidation(metrics.ResultSuccess)
	p := m.Profile()
	return &p, nil
}

// bounded runs fn and gives up when d elapses or ctx ends. fn keeps running
// in the background after a timeout; its result is dropped.
func bounded[T any](ctx context.Context, d time.Duration, fn func() (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		v, err := fn()
		ch <- result{v, err}
	}()
	select {
	case r := <-ch:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
