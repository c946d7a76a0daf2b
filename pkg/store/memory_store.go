package store

import (
	"sync"

	"talespin/pkg/domain"
)

// MemoryStore keeps all records in-process. It backs tests and is the
// substitution seam for anything that takes a Store.
type MemoryStore struct {
	mu            sync.RWMutex
	users         map[string]domain.User
	email         map[string]string // email -> user ID
	refresh       map[string]domain.RefreshToken
	refreshByHash map[string]string // token hash -> refresh token ID
	stories       map[string]domain.Story
	storyOrder    []string
	illustrations map[string]domain.Illustration
	illusOrder    []string
	audio         map[string]domain.Audio // story ID -> audio
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:         make(map[string]domain.User),
		email:         make(map[string]string),
		refresh:       make(map[string]domain.RefreshToken),
		refreshByHash: make(map[string]string),
		stories:       make(map[string]domain.Story),
		illustrations: make(map[string]domain.Illustration),
		audio:         make(map[string]domain.Audio),
	}
}

func (m *MemoryStore) CreateUser(u domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
	m.email[u.Email] = u.ID
	return nil
}

func (m *MemoryStore) GetUserByEmail(email string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.email[email]
	if !ok {
		return domain.User{}, false, nil
	}
	u, ok := m.users[id]
	return u, ok, nil
}

func (m *MemoryStore) GetUserByID(id string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	return u, ok, nil
}

func (m *MemoryStore) CreateRefreshToken(t domain.RefreshToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refresh[t.ID] = t
	m.refreshByHash[t.TokenHash] = t.ID
	return nil
}

func (m *MemoryStore) GetRefreshTokenByHash(hash string) (domain.RefreshToken, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.refreshByHash[hash]
	if !ok {
		return domain.RefreshToken{}, false, nil
	}
	t, ok := m.refresh[id]
	return t, ok, nil
}

func (m *MemoryStore) InvalidateRefreshToken(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.refresh[id]; ok {
		t.Valid = false
		m.refresh[id] = t
	}
	return nil
}

func (m *MemoryStore) RevokeUserRefreshTokens(userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, t := range m.refresh {
		if t.UserID == userID {
			t.Valid = false
			m.refresh[id] = t
		}
	}
	return nil
}

func (m *MemoryStore) CreateStory(s domain.Story) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.stories[s.ID]; !exists {
		m.storyOrder = append(m.storyOrder, s.ID)
	}
	// Projections are composed by callers; persist only the row.
	s.User = nil
	s.Illustrations = nil
	s.Audio = nil
	m.stories[s.ID] = s
	return nil
}

func (m *MemoryStore) GetStory(id string) (domain.Story, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.stories[id]
	return s, ok, nil
}

func (m *MemoryStore) ListStories() ([]domain.Story, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Story, 0, len(m.storyOrder))
	for _, id := range m.storyOrder {
		if s, ok := m.stories[id]; ok {
			res = append(res, s)
		}
	}
	return res, nil
}

func (m *MemoryStore) ListStoriesByUser(userID string) ([]domain.Story, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Story, 0)
	// Newest first, matching the SQL ordering.
	for i := len(m.storyOrder) - 1; i >= 0; i-- {
		if s, ok := m.stories[m.storyOrder[i]]; ok && s.UserID == userID {
			res = append(res, s)
		}
	}
	return res, nil
}

func (m *MemoryStore) DeleteStory(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.stories, id)
	filtered := m.storyOrder[:0]
	for _, item := range m.storyOrder {
		if item != id {
			filtered = append(filtered, item)
		}
	}
	m.storyOrder = filtered
	filteredIl := m.illusOrder[:0]
	for _, ilID := range m.illusOrder {
		if il, ok := m.illustrations[ilID]; ok && il.StoryID == id {
			delete(m.illustrations, ilID)
			continue
		}
		filteredIl = append(filteredIl, ilID)
	}
	m.illusOrder = filteredIl
	delete(m.audio, id)
	return nil
}

func (m *MemoryStore) CreateIllustration(il domain.Illustration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.illustrations[il.ID]; !exists {
		m.illusOrder = append(m.illusOrder, il.ID)
	}
	m.illustrations[il.ID] = il
	return nil
}

func (m *MemoryStore) GetIllustration(id string) (domain.Illustration, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	il, ok := m.illustrations[id]
	return il, ok, nil
}

func (m *MemoryStore) ListIllustrationsByStory(storyID string) ([]domain.Illustration, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Illustration, 0)
	for _, id := range m.illusOrder {
		if il, ok := m.illustrations[id]; ok && il.StoryID == storyID {
			res = append(res, il)
		}
	}
	return res, nil
}

func (m *MemoryStore) CreateAudio(a domain.Audio) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audio[a.StoryID] = a
	return nil
}

func (m *MemoryStore) GetAudioByStory(storyID string) (domain.Audio, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.audio[storyID]
	return a, ok, nil
}
