package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Ananth-NQI/narasumber-backend/internal/models"
	"github.com/Ananth-NQI/narasumber-backend/internal/utils"
)

// MemoryStore holds all data in memory (development and tests)
type MemoryStore struct {
	users     map[uint]*models.User
	questions []*models.Question
	keywords  map[uint]*models.GroupKeyword
	tokens    map[string]*models.GroupToken // by group id

	// Mutexes for thread safety
	userMu     sync.RWMutex
	questionMu sync.RWMutex
	keywordMu  sync.RWMutex
	tokenMu    sync.RWMutex

	// Counters for ID generation
	userCounter     uint
	questionCounter uint
	keywordCounter  uint
	tokenCounter    uint
}

// NewMemoryStore creates a new in-memory storage
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[uint]*models.User),
		keywords: make(map[uint]*models.GroupKeyword),
		tokens:   make(map[string]*models.GroupToken),
	}
}

var _ Store = (*MemoryStore)(nil)

// CreateUser registers a user. Registration lives in the web app; this is
// used to seed development data and tests.
func (m *MemoryStore) CreateUser(user *models.User) (*models.User, error) {
	if err := user.BeforeCreate(nil); err != nil {
		return nil, err
	}

	m.userMu.Lock()
	defer m.userMu.Unlock()

	m.userCounter++
	now := time.Now()
	user.ID = m.userCounter
	user.CreatedAt = now
	user.UpdatedAt = now
	m.users[user.ID] = user
	return user, nil
}

// User operations
func (m *MemoryStore) GetUserByPhone(ctx context.Context, phone string) (*models.User, error) {
	m.userMu.RLock()
	defer m.userMu.RUnlock()

	if u := m.findByPhone(phone); u != nil {
		copied := *u
		return &copied, nil
	}
	return nil, models.ErrUserNotFound
}

func (m *MemoryStore) findByPhone(phone string) *models.User {
	for _, u := range m.users {
		if u.WhatsAppNumber == phone {
			return u
		}
	}
	return nil
}

func (m *MemoryStore) GetRespondents(ctx context.Context, groupID string) ([]*models.User, error) {
	m.userMu.RLock()
	defer m.userMu.RUnlock()

	var respondents []*models.User
	for _, u := range m.users {
		if u.IsNarasumber && u.GroupID == groupID {
			copied := *u
			respondents = append(respondents, &copied)
		}
	}
	// Store order is insertion (id) order
	sort.Slice(respondents, func(i, j int) bool { return respondents[i].ID < respondents[j].ID })
	return respondents, nil
}

func (m *MemoryStore) SetUserGroup(ctx context.Context, phone, groupID string) error {
	m.userMu.Lock()
	defer m.userMu.Unlock()

	u := m.findByPhone(phone)
	if u == nil {
		return models.ErrUserNotFound
	}
	u.GroupID = groupID
	u.UpdatedAt = time.Now()
	return nil
}

func (m *MemoryStore) SetNarasumberFlag(ctx context.Context, phone, groupID string, value bool) error {
	m.userMu.Lock()
	defer m.userMu.Unlock()

	u := m.findByPhone(phone)
	if u == nil {
		return models.ErrUserNotFound
	}
	if value {
		u.IsNarasumber = true
		u.GroupID = groupID
	} else {
		// Only respondents of the admin's own group can be removed
		if u.GroupID != groupID {
			return models.ErrUserNotFound
		}
		u.IsNarasumber = false
	}
	u.UpdatedAt = time.Now()
	return nil
}

// Question operations
func (m *MemoryStore) CreateQuestion(ctx context.Context, question *models.Question) (*models.Question, error) {
	m.questionMu.Lock()
	defer m.questionMu.Unlock()

	m.questionCounter++
	now := time.Now()
	question.ID = m.questionCounter
	if question.Status == "" {
		question.Status = models.QuestionStatusPending
	}
	question.CreatedAt = now
	question.UpdatedAt = now

	m.questions = append(m.questions, question)
	return question, nil
}

func (m *MemoryStore) CountQuestionsMatchingKeywords(ctx context.Context, keywords []string) (int64, error) {
	matches, err := m.FindQuestionsMatchingKeywords(ctx, keywords, 0)
	if err != nil {
		return 0, err
	}
	return int64(len(matches)), nil
}

func (m *MemoryStore) FindQuestionsMatchingKeywords(ctx context.Context, keywords []string, limit int) ([]*models.Question, error) {
	if len(keywords) == 0 {
		return nil, nil
	}

	m.questionMu.RLock()
	defer m.questionMu.RUnlock()

	// Newest first
	var results []*models.Question
	for i := len(m.questions) - 1; i >= 0; i-- {
		q := m.questions[i]
		for _, kw := range keywords {
			if utils.ContainsFold(q.QuestionText, kw) {
				results = append(results, q)
				break
			}
		}
		if limit > 0 && len(results) == limit {
			break
		}
	}
	return results, nil
}

// Questions returns a snapshot of every stored question
func (m *MemoryStore) Questions() []*models.Question {
	m.questionMu.RLock()
	defer m.questionMu.RUnlock()

	out := make([]*models.Question, len(m.questions))
	copy(out, m.questions)
	return out
}

// Keyword operations
func (m *MemoryStore) GetKeywordsForGroup(ctx context.Context, groupID string) ([]*models.GroupKeyword, error) {
	m.keywordMu.RLock()
	defer m.keywordMu.RUnlock()

	var keywords []*models.GroupKeyword
	for _, kw := range m.keywords {
		if kw.GroupID == groupID {
			keywords = append(keywords, kw)
		}
	}
	sort.Slice(keywords, func(i, j int) bool { return keywords[i].ID < keywords[j].ID })
	return keywords, nil
}

func (m *MemoryStore) CreateKeyword(ctx context.Context, keyword *models.GroupKeyword) (*models.GroupKeyword, error) {
	m.keywordMu.Lock()
	defer m.keywordMu.Unlock()

	m.keywordCounter++
	now := time.Now()
	keyword.ID = m.keywordCounter
	keyword.CreatedAt = now
	keyword.UpdatedAt = now
	m.keywords[keyword.ID] = keyword
	return keyword, nil
}

func (m *MemoryStore) DeleteKeyword(ctx context.Context, id uint, groupID string) error {
	m.keywordMu.Lock()
	defer m.keywordMu.Unlock()

	kw, exists := m.keywords[id]
	if !exists || kw.GroupID != groupID {
		return models.ErrKeywordNotFound
	}
	delete(m.keywords, id)
	return nil
}

// Group token operations
func (m *MemoryStore) UpsertGroupToken(ctx context.Context, groupID, token string, expiresAt time.Time) error {
	m.tokenMu.Lock()
	defer m.tokenMu.Unlock()

	now := time.Now()
	if existing, exists := m.tokens[groupID]; exists {
		existing.Token = token
		existing.ExpiresAt = expiresAt
		existing.UpdatedAt = now
		return nil
	}

	m.tokenCounter++
	m.tokens[groupID] = &models.GroupToken{
		ID:        m.tokenCounter,
		GroupID:   groupID,
		Token:     token,
		ExpiresAt: expiresAt,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return nil
}

func (m *MemoryStore) GetValidGroupToken(ctx context.Context, token string, now time.Time) (*models.GroupToken, error) {
	m.tokenMu.RLock()
	defer m.tokenMu.RUnlock()

	for _, t := range m.tokens {
		if t.Token == token && t.IsValid(now) {
			copied := *t
			return &copied, nil
		}
	}
	return nil, models.ErrTokenNotFound
}

func (m *MemoryStore) DeleteGroupToken(ctx context.Context, token string) error {
	m.tokenMu.Lock()
	defer m.tokenMu.Unlock()

	for groupID, t := range m.tokens {
		if t.Token == token {
			delete(m.tokens, groupID)
			return nil
		}
	}
	return models.ErrTokenNotFound
}

func (m *MemoryStore) DeleteExpiredGroupTokens(ctx context.Context, now time.Time) (int64, error) {
	m.tokenMu.Lock()
	defer m.tokenMu.Unlock()

	var deleted int64
	for groupID, t := range m.tokens {
		if !t.IsValid(now) {
			delete(m.tokens, groupID)
			deleted++
		}
	}
	return deleted, nil
}
