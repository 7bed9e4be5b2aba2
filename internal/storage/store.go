package storage

import (
	"context"
	"time"

	"github.com/Ananth-NQI/narasumber-backend/internal/models"
)

// Store defines the interface for storage operations.
// Phone arguments are canonical identifiers (see utils.NormalizePhone).
type Store interface {
	// User operations
	GetUserByPhone(ctx context.Context, phone string) (*models.User, error)
	GetRespondents(ctx context.Context, groupID string) ([]*models.User, error)
	SetUserGroup(ctx context.Context, phone, groupID string) error
	SetNarasumberFlag(ctx context.Context, phone, groupID string, value bool) error

	// Question operations
	CreateQuestion(ctx context.Context, question *models.Question) (*models.Question, error)
	CountQuestionsMatchingKeywords(ctx context.Context, keywords []string) (int64, error)
	FindQuestionsMatchingKeywords(ctx context.Context, keywords []string, limit int) ([]*models.Question, error)

	// Keyword operations
	GetKeywordsForGroup(ctx context.Context, groupID string) ([]*models.GroupKeyword, error)
	CreateKeyword(ctx context.Context, keyword *models.GroupKeyword) (*models.GroupKeyword, error)
	DeleteKeyword(ctx context.Context, id uint, groupID string) error

	// Group token operations
	UpsertGroupToken(ctx context.Context, groupID, token string, expiresAt time.Time) error
	GetValidGroupToken(ctx context.Context, token string, now time.Time) (*models.GroupToken, error)
	DeleteGroupToken(ctx context.Context, token string) error
	DeleteExpiredGroupTokens(ctx context.Context, now time.Time) (int64, error)
}
