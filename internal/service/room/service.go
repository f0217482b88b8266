package room

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"chkobba-service/internal/service/game"
	"chkobba-service/internal/service/profile"
	appErr "chkobba-service/pkg/errors"
	"chkobba-service/pkg/logger"
	"chkobba-service/pkg/utils/random"

	"go.uber.org/zap"
)

const (
	ModeTeams          = "teams"
	defaultCodeLength  = 5
	codeAttempts       = 8
	defaultSubscribers = 16
)

type Config struct {
	CodeLength       int
	SubscriberBuffer int
	Shuffler         game.Shuffler
	TurnOrder        game.TurnOrder
}

func defaultConfig() Config {
	return Config{
		CodeLength:       defaultCodeLength,
		SubscriberBuffer: defaultSubscribers,
	}
}

type Option func(*Service)

func WithConfig(cfg Config) Option {
	return func(s *Service) {
		if cfg.CodeLength <= 0 {
			cfg.CodeLength = defaultCodeLength
		}
		if cfg.SubscriberBuffer <= 0 {
			cfg.SubscriberBuffer = defaultSubscribers
		}
		s.cfg = cfg
	}
}

func WithRecorder(rec RoundRecorder) Option {
	return func(s *Service) { s.recorder = rec }
}

func WithProfiles(p ProfileLookup) Option {
	return func(s *Service) { s.profiles = p }
}

// Service owns every live room of the process.
type Service struct {
	codes    CodeStore
	profiles ProfileLookup
	recorder RoundRecorder
	cfg      Config

	observerMu sync.RWMutex
	observer   TurnObserver

	rooms sync.Map // code -> *Room
}

func NewService(codes CodeStore, opts ...Option) *Service {
	if codes == nil {
		codes = NewMemoryCodeStore()
	}
	s := &Service{
		codes:    codes,
		profiles: defaultProfiles{},
		cfg:      defaultConfig(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetTurnObserver wires the turn clock. Rooms created afterwards report to it.
func (s *Service) SetTurnObserver(o TurnObserver) {
	s.observerMu.Lock()
	defer s.observerMu.Unlock()
	s.observer = o
}

func (s *Service) CreateRoom(ctx context.Context, host string, settings Settings) (string, error) {
	if err := s.normalize(&settings); err != nil {
		return "", err
	}

	var code string
	for i := 0; i < codeAttempts; i++ {
		candidate := random.RoomCode(s.cfg.CodeLength)
		ok, err := s.codes.Reserve(ctx, candidate)
		if err != nil {
			return "", err
		}
		if ok {
			code = candidate
			break
		}
	}
	if code == "" {
		return "", appErr.ErrCodeExhausted
	}

	s.observerMu.RLock()
	observer := s.observer
	s.observerMu.RUnlock()

	rm := newRoom(code, host, settings, roomDeps{
		profiles:  s.profiles,
		recorder:  s.recorder,
		observer:  observer,
		shuffler:  s.cfg.Shuffler,
		turnOrder: s.cfg.TurnOrder,
		bufSize:   s.cfg.SubscriberBuffer,
	})
	s.rooms.Store(code, rm)

	logger.Log.Info("room created",
		zap.String("room", code),
		zap.String("host", host),
		zap.String("mode", settings.Mode),
		zap.Int("turnSeconds", settings.TurnSeconds),
	)
	return code, nil
}

func (s *Service) normalize(settings *Settings) error {
	settings.Mode = strings.ToLower(strings.TrimSpace(settings.Mode))
	if settings.Mode == "" {
		settings.Mode = ModeTeams
	}
	if settings.Mode != ModeTeams {
		return fmt.Errorf("%w: unsupported mode %q", appErr.ErrInvalidSettings, settings.Mode)
	}
	if settings.PlayerCount == 0 {
		settings.PlayerCount = game.SeatCount
	}
	if settings.PlayerCount != game.SeatCount {
		return fmt.Errorf("%w: player count must be %d", appErr.ErrInvalidSettings, game.SeatCount)
	}
	if settings.TurnSeconds < 0 {
		return fmt.Errorf("%w: negative turn duration", appErr.ErrInvalidSettings)
	}
	return nil
}

// Get returns a live room.
func (s *Service) Get(code string) (*Room, error) {
	v, ok := s.rooms.Load(normalizeCode(code))
	if !ok {
		return nil, appErr.ErrRoomNotFound
	}
	return v.(*Room), nil
}

func (s *Service) JoinRoom(ctx context.Context, code, connectionID string) (RoomView, error) {
	rm, err := s.Get(code)
	if err != nil {
		return RoomView{}, err
	}
	return rm.Join(connectionID)
}

func (s *Service) SubmitPlay(ctx context.Context, code, connectionID, cardID string, combination []string) error {
	rm, err := s.Get(code)
	if err != nil {
		return err
	}
	return rm.Play(connectionID, cardID, combination)
}

func (s *Service) SubmitReplayVote(ctx context.Context, code, connectionID string) error {
	rm, err := s.Get(code)
	if err != nil {
		return err
	}
	return rm.VoteReplay(connectionID)
}

// QuitRoom closes the room for everyone and frees its code.
func (s *Service) QuitRoom(ctx context.Context, code, connectionID string) error {
	rm, err := s.Get(code)
	if err != nil {
		return err
	}
	if err := rm.Close(connectionID); err != nil {
		return err
	}
	s.forget(ctx, rm.code)
	return nil
}

func (s *Service) Snapshot(ctx context.Context, code, connectionID string) (RoomView, error) {
	rm, err := s.Get(code)
	if err != nil {
		return RoomView{}, err
	}
	return rm.Snapshot(connectionID)
}

func (s *Service) Subscribe(code, connectionID string) (<-chan OutgoingMessage, error) {
	rm, err := s.Get(code)
	if err != nil {
		return nil, err
	}
	return rm.Subscribe(connectionID)
}

func (s *Service) Unsubscribe(code, connectionID string, ch <-chan OutgoingMessage) {
	rm, err := s.Get(code)
	if err != nil {
		return
	}
	rm.Unsubscribe(connectionID, ch)
}

// AutoPlay plays the first card of the seat holding turn, through the same
// path as a client play. It does nothing once turn has passed.
func (s *Service) AutoPlay(ctx context.Context, code string, turn int64) error {
	rm, err := s.Get(code)
	if err != nil {
		return err
	}
	conn, cardID, ok := rm.autoPlayCard(turn)
	if !ok {
		return nil
	}
	logger.Log.Info("turn expired, auto play", zap.String("room", rm.code), zap.String("connectionID", conn))
	return rm.Play(conn, cardID, nil)
}

// ReapIdle closes rooms nobody is connected to and that saw no activity for
// maxIdle, and refreshes the code reservation of the others.
func (s *Service) ReapIdle(ctx context.Context, maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)
	reaped := 0
	s.rooms.Range(func(_, v interface{}) bool {
		rm := v.(*Room)
		if maxIdle > 0 && rm.closeIfIdle(cutoff) {
			s.forget(ctx, rm.code)
			reaped++
			return true
		}
		if err := s.codes.Touch(ctx, rm.code); err != nil {
			logger.Log.Warn("room code refresh failed", zap.String("room", rm.code), zap.Error(err))
		}
		return true
	})
	if reaped > 0 {
		logger.Log.Info("idle rooms reaped", zap.Int("count", reaped))
	}
	return reaped
}

// CloseAll tears down every room, used on shutdown.
func (s *Service) CloseAll(ctx context.Context) {
	s.rooms.Range(func(_, v interface{}) bool {
		rm := v.(*Room)
		rm.shutdown()
		s.forget(ctx, rm.code)
		return true
	})
}

func (s *Service) forget(ctx context.Context, code string) {
	s.rooms.Delete(code)
	if err := s.codes.Release(ctx, code); err != nil {
		logger.Log.Warn("room code release failed", zap.String("room", code), zap.Error(err))
	}
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

type defaultProfiles struct{}

func (defaultProfiles) Lookup(connectionID string) profile.Profile {
	return profile.Default(connectionID)
}
