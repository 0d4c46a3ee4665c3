package profile

import (
	"sync"

	"github.com/phamvanchien/social-web/cmd/models"
	"github.com/phamvanchien/social-web/service/pagination"
	"github.com/phamvanchien/social-web/service/session"
	"github.com/phamvanchien/social-web/service/transport"
)

// API is the slice of the REST client the profile service consumes.
type API interface {
	GetProfile() (*models.User, error)
	GetProfilePosts(page, size int) (*models.Page[models.Post], error)
	UploadAvatar(path string) (*models.User, error)
	UpdateLocation(lat, long float64) error
	GetProvinces() ([]models.Province, error)
	GetWardsByProvince(provinceID uint) ([]models.Ward, error)
}

// Service manages the viewer's own profile: the cached snapshot, the
// paginated list of own posts, avatar upload and the location flow.
type Service struct {
	api     API
	session *session.Store

	mu     sync.Mutex
	posts  []models.Post
	cursor pagination.Cursor
}

func NewService(api API, sess *session.Store) *Service {
	return &Service{api: api, session: sess}
}

// Load fetches the profile and refreshes the session's cached copy.
func (s *Service) Load() (*models.User, error) {
	user, err := s.api.GetProfile()
	if err != nil {
		return nil, err
	}
	if err := s.session.UpdateProfile(user); err != nil {
		return nil, err
	}
	return user, nil
}

// RefreshPosts fetches page 1 of the viewer's own posts.
func (s *Service) RefreshPosts() error {
	s.mu.Lock()
	if !s.cursor.Begin() {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()
	return s.fetchPosts(1, true)
}

// LoadMorePosts fetches the next page; no-op while loading or exhausted.
func (s *Service) LoadMorePosts() error {
	s.mu.Lock()
	if !s.cursor.HasMore() || !s.cursor.Begin() {
		s.mu.Unlock()
		return nil
	}
	page := s.cursor.Page + 1
	s.mu.Unlock()
	return s.fetchPosts(page, false)
}

func (s *Service) fetchPosts(page int, replace bool) error {
	res, err := s.api.GetProfilePosts(page, transport.PostPageSize)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursor.Finish()
	if err != nil {
		return err
	}
	if replace {
		s.posts = nil
	}
	for _, p := range res.Items {
		exists := false
		for i := range s.posts {
			if s.posts[i].ID == p.ID {
				exists = true
				break
			}
		}
		if !exists {
			s.posts = append(s.posts, p)
		}
	}
	s.cursor.Complete(page, res.TotalPage)
	return nil
}

// Posts returns a copy of the loaded posts plus the hasMore flag.
func (s *Service) Posts() ([]models.Post, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	posts := make([]models.Post, len(s.posts))
	copy(posts, s.posts)
	return posts, s.cursor.HasMore()
}

// SetAvatar uploads a new profile picture and updates the session cache.
func (s *Service) SetAvatar(path string) (*models.User, error) {
	user, err := s.api.UploadAvatar(path)
	if err != nil {
		return nil, err
	}
	if err := s.session.UpdateProfile(user); err != nil {
		return nil, err
	}
	return user, nil
}

// SetLocation stores the picked coordinates server-side and mirrors them
// into the session. The feed is scoped by them.
func (s *Service) SetLocation(lat, long float64) error {
	if err := s.api.UpdateLocation(lat, long); err != nil {
		return err
	}
	sess, err := s.session.Current()
	if err != nil {
		return nil
	}
	user := sess.User()
	user.Latitude = lat
	user.Longitude = long
	return s.session.UpdateProfile(user)
}

// Provinces lists the provinces for the location-selection flow.
func (s *Service) Provinces() ([]models.Province, error) {
	return s.api.GetProvinces()
}

// Wards lists the wards under one province.
func (s *Service) Wards(provinceID uint) ([]models.Ward, error) {
	return s.api.GetWardsByProvince(provinceID)
}
