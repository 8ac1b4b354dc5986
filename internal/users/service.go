package users

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/MarcoPoloResearchLab/signroom/internal/auth"
	"github.com/MarcoPoloResearchLab/signroom/internal/contracts"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultProvider = "session"

// ErrInvalidIdentity indicates the claims did not contain a usable identifier.
var ErrInvalidIdentity = errors.New("users: invalid identity")

// ServiceConfig describes the dependencies required for participant resolution.
type ServiceConfig struct {
	Database *gorm.DB
	Clock    func() time.Time
	Logger   *zap.Logger
}

// Service resolves session claims to the acting participant and remembers every participant seen.
type Service struct {
	db     *gorm.DB
	now    func() time.Time
	logger *zap.Logger
	cache  sync.Map
}

// NewService constructs the participant directory.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, fmt.Errorf("users: database connection required")
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{db: cfg.Database, now: clock, logger: logger}, nil
}

// ResolveParticipant returns the participant for the claims, recording the identity on first sight.
// A claims value with a provider prefix ("provider:subject") is stored under that provider.
func (s *Service) ResolveParticipant(claims auth.SessionClaims) (contracts.Participant, error) {
	provider, subject := deriveProviderSubject(claims)
	if subject == "" {
		return contracts.Participant{}, ErrInvalidIdentity
	}

	cacheKey := provider + ":" + subject
	if cached, ok := s.cache.Load(cacheKey); ok {
		if participant, ok := cached.(contracts.Participant); ok && !claimsChanged(participant, claims) {
			return participant, nil
		}
	}

	var identity Identity
	err := s.db.
		Where("provider = ? AND subject = ?", provider, subject).
		First(&identity).
		Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		identity = Identity{
			Provider:    provider,
			Subject:     subject,
			UserID:      subject,
			Email:       normalizeEmail(claims.UserEmail),
			DisplayName: normalize(claims.UserDisplayName),
			LastSeenAt:  s.now(),
		}
		if err := s.db.Create(&identity).Error; err != nil {
			return contracts.Participant{}, err
		}
	case err != nil:
		return contracts.Participant{}, err
	default:
		updates := map[string]interface{}{"last_seen_at": s.now()}
		if email := normalizeEmail(claims.UserEmail); email != "" && email != identity.Email {
			updates["user_email"] = email
			identity.Email = email
		}
		if display := normalize(claims.UserDisplayName); display != "" && display != identity.DisplayName {
			updates["user_display_name"] = display
			identity.DisplayName = display
		}
		if err := s.db.Model(&Identity{}).
			Where("provider = ? AND subject = ?", provider, subject).
			Updates(updates).
			Error; err != nil {
			s.logger.Warn("identity refresh failed", zap.String("user_id", identity.UserID), zap.Error(err))
		}
	}

	participant := toParticipant(identity)
	s.cache.Store(cacheKey, participant)
	return participant, nil
}

func toParticipant(identity Identity) contracts.Participant {
	name := identity.DisplayName
	if name == "" {
		name = contracts.EmailLocalPart(identity.Email)
	}
	return contracts.Participant{ID: identity.UserID, Name: name, Email: identity.Email}
}

func claimsChanged(participant contracts.Participant, claims auth.SessionClaims) bool {
	if email := normalizeEmail(claims.UserEmail); email != "" && email != participant.Email {
		return true
	}
	if display := normalize(claims.UserDisplayName); display != "" && display != participant.Name {
		return true
	}
	return false
}

func deriveProviderSubject(claims auth.SessionClaims) (string, string) {
	provider := defaultProvider
	subject := normalize(claims.Subject)

	if raw := normalize(claims.UserID); raw != "" {
		if prefix, rest, found := strings.Cut(raw, ":"); found && normalize(prefix) != "" && normalize(rest) != "" {
			provider = normalize(prefix)
			subject = normalize(rest)
		} else if subject == "" {
			subject = raw
		}
	}
	if subject == "" {
		subject = normalizeEmail(claims.UserEmail)
	}
	return provider, subject
}
