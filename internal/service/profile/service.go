package profile

import (
	"context"
	"fmt"
	"strings"

	appErr "chkobba-service/pkg/errors"
	"chkobba-service/pkg/logger"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// Update carries optional changes; nil fields are left alone.
type Update struct {
	Nickname *string
	Avatar   *string
}

const (
	nicknameRules = "required,max=24"
	avatarRules   = "omitempty,max=128"
)

func (u *Update) sanitize() {
	if u.Nickname != nil {
		v := strings.TrimSpace(*u.Nickname)
		u.Nickname = &v
	}
	if u.Avatar != nil {
		v := strings.TrimSpace(*u.Avatar)
		u.Avatar = &v
	}
}

// Store persists profiles beyond the process. Optional.
type Store interface {
	Load(ctx context.Context, connectionID string) (*Profile, error)
	Save(ctx context.Context, p Profile) error
}

type Service struct {
	registry *Registry
	store    Store
	validate *validator.Validate
}

// NewService builds a profile service. store may be nil.
func NewService(registry *Registry, store Store) *Service {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Service{registry: registry, store: store, validate: validator.New()}
}

// Set updates nickname and/or avatar for a connection.
func (s *Service) Set(ctx context.Context, connectionID string, u Update) (Profile, error) {
	if connectionID == "" {
		return Profile{}, appErr.ErrUnauthorized
	}
	u.sanitize()
	if err := s.check(u); err != nil {
		return Profile{}, fmt.Errorf("%w: %v", appErr.ErrInvalidProfile, err)
	}

	if _, ok := s.registry.Lookup(connectionID); !ok {
		s.warm(ctx, connectionID)
	}
	p := s.registry.Upsert(connectionID, u)
	if s.store != nil {
		if err := s.store.Save(ctx, p); err != nil {
			logger.Log.Warn("profile save failed", zap.String("connectionID", connectionID), zap.Error(err))
		}
	}
	return p, nil
}

// Get returns the profile for a connection, falling back to the store and
// then to Default.
func (s *Service) Get(ctx context.Context, connectionID string) Profile {
	if p, ok := s.registry.Lookup(connectionID); ok {
		return p
	}
	if p, ok := s.warm(ctx, connectionID); ok {
		return p
	}
	return Default(connectionID)
}

// Lookup never touches the store; rooms call it while holding their lock.
func (s *Service) Lookup(connectionID string) Profile {
	if p, ok := s.registry.Lookup(connectionID); ok {
		return p
	}
	return Default(connectionID)
}

func (s *Service) check(u Update) error {
	if u.Nickname != nil {
		if err := s.validate.Var(*u.Nickname, nicknameRules); err != nil {
			return fmt.Errorf("nickname: %w", err)
		}
	}
	if u.Avatar != nil {
		if err := s.validate.Var(*u.Avatar, avatarRules); err != nil {
			return fmt.Errorf("avatar: %w", err)
		}
	}
	return nil
}

func (s *Service) warm(ctx context.Context, connectionID string) (Profile, bool) {
	if s.store == nil {
		return Profile{}, false
	}
	p, err := s.store.Load(ctx, connectionID)
	if err != nil {
		logger.Log.Warn("profile load failed", zap.String("connectionID", connectionID), zap.Error(err))
		return Profile{}, false
	}
	if p == nil {
		return Profile{}, false
	}
	s.registry.Put(*p)
	return *p, true
}
