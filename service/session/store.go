package session

import (
	"errors"
	"sync"
	"time"

	"github.com/phamvanchien/social-web/cmd/models"
	"github.com/phamvanchien/social-web/cmd/utils"
	"gorm.io/gorm"
)

// ErrNotLoggedIn is returned when no usable session exists.
var ErrNotLoggedIn = errors.New("not logged in")

// Store holds the authenticated user's profile and token, persisted to the
// local database so a restart stays logged in.
type Store struct {
	db      *gorm.DB
	mu      sync.RWMutex
	current *models.Session
}

func NewStore(db *gorm.DB) (*Store, error) {
	s := &Store{db: db}

	var sess models.Session
	err := db.Order("created_at desc").First(&sess).Error
	switch {
	case err == nil:
		s.current = &sess
	case errors.Is(err, gorm.ErrRecordNotFound):
		// nothing persisted, start logged out
	default:
		return nil, err
	}
	return s, nil
}

// Current returns the active session, refusing expired tokens.
func (s *Store) Current() (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.current == nil {
		return nil, ErrNotLoggedIn
	}
	claims, err := utils.InspectToken(s.current.Token)
	if err != nil {
		return nil, ErrNotLoggedIn
	}
	if claims.TokenExpired(time.Now()) {
		return nil, ErrNotLoggedIn
	}
	return s.current, nil
}

// Token returns the bearer token for the transport layer.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return ""
	}
	return s.current.Token
}

// Save replaces the persisted session after a successful authenticate.
func (s *Store) Save(user *models.User, token string) error {
	sess := &models.Session{
		UserID:    user.ID,
		Token:     token,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Avatar:    user.Avatar,
		Latitude:  user.Latitude,
		Longitude: user.Longitude,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.Where("1 = 1").Delete(&models.Session{}).Error; err != nil {
		return err
	}
	if err := s.db.Create(sess).Error; err != nil {
		return err
	}
	s.current = sess
	return nil
}

// UpdateProfile refreshes the cached profile fields without touching the
// token.
func (s *Store) UpdateProfile(user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return ErrNotLoggedIn
	}
	s.current.Email = user.Email
	s.current.FirstName = user.FirstName
	s.current.LastName = user.LastName
	s.current.Avatar = user.Avatar
	s.current.Latitude = user.Latitude
	s.current.Longitude = user.Longitude
	return s.db.Save(s.current).Error
}

// Clear logs out and removes the persisted row.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = nil
	return s.db.Where("1 = 1").Delete(&models.Session{}).Error
}
