package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Ananth-NQI/narasumber-backend/internal/models"
	"github.com/Ananth-NQI/narasumber-backend/internal/utils"
)

// DatabaseStore implements Store on PostgreSQL through GORM
type DatabaseStore struct {
	db *gorm.DB
}

// NewDatabaseStore wraps an open GORM connection
func NewDatabaseStore(db *gorm.DB) *DatabaseStore {
	return &DatabaseStore{db: db}
}

var _ Store = (*DatabaseStore)(nil)

// User operations
func (s *DatabaseStore) GetUserByPhone(ctx context.Context, phone string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("whatsapp_number = ?", phone).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user by phone: %w", err)
	}
	return &user, nil
}

func (s *DatabaseStore) GetRespondents(ctx context.Context, groupID string) ([]*models.User, error) {
	var users []*models.User
	err := s.db.WithContext(ctx).
		Where("is_narasumber = ? AND group_id = ?", true, groupID).
		Order("id ASC").
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("get respondents: %w", err)
	}
	return users, nil
}

func (s *DatabaseStore) SetUserGroup(ctx context.Context, phone, groupID string) error {
	res := s.db.WithContext(ctx).Model(&models.User{}).
		Where("whatsapp_number = ?", phone).
		Update("group_id", groupID)
	if res.Error != nil {
		return fmt.Errorf("set user group: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return models.ErrUserNotFound
	}
	return nil
}

func (s *DatabaseStore) SetNarasumberFlag(ctx context.Context, phone, groupID string, value bool) error {
	var res *gorm.DB
	if value {
		res = s.db.WithContext(ctx).Model(&models.User{}).
			Where("whatsapp_number = ?", phone).
			Updates(map[string]interface{}{"is_narasumber": true, "group_id": groupID})
	} else {
		res = s.db.WithContext(ctx).Model(&models.User{}).
			Where("whatsapp_number = ? AND group_id = ?", phone, groupID).
			Update("is_narasumber", false)
	}
	if res.Error != nil {
		return fmt.Errorf("set narasumber flag: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return models.ErrUserNotFound
	}
	return nil
}

// Question operations
func (s *DatabaseStore) CreateQuestion(ctx context.Context, question *models.Question) (*models.Question, error) {
	if err := s.db.WithContext(ctx).Create(question).Error; err != nil {
		return nil, fmt.Errorf("create question: %w", err)
	}
	return question, nil
}

func (s *DatabaseStore) CountQuestionsMatchingKeywords(ctx context.Context, keywords []string) (int64, error) {
	if len(keywords) == 0 {
		return 0, nil
	}
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Question{}).
		Where(s.keywordCondition(keywords)).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count similar questions: %w", err)
	}
	return count, nil
}

func (s *DatabaseStore) FindQuestionsMatchingKeywords(ctx context.Context, keywords []string, limit int) ([]*models.Question, error) {
	if len(keywords) == 0 {
		return nil, nil
	}
	query := s.db.WithContext(ctx).
		Where(s.keywordCondition(keywords)).
		Order("created_at DESC, id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var questions []*models.Question
	if err := query.Find(&questions).Error; err != nil {
		return nil, fmt.Errorf("find similar questions: %w", err)
	}
	return questions, nil
}

// keywordCondition builds "question_text ILIKE %kw1% OR question_text ILIKE %kw2% ..."
func (s *DatabaseStore) keywordCondition(keywords []string) *gorm.DB {
	cond := s.db.Where("question_text ILIKE ?", likePattern(keywords[0]))
	for _, kw := range keywords[1:] {
		cond = cond.Or("question_text ILIKE ?", likePattern(kw))
	}
	return cond
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likePattern(keyword string) string {
	return "%" + likeEscaper.Replace(utils.Fold(keyword)) + "%"
}

// Keyword operations
func (s *DatabaseStore) GetKeywordsForGroup(ctx context.Context, groupID string) ([]*models.GroupKeyword, error) {
	var keywords []*models.GroupKeyword
	err := s.db.WithContext(ctx).Where("group_id = ?", groupID).Order("id ASC").Find(&keywords).Error
	if err != nil {
		return nil, fmt.Errorf("get keywords: %w", err)
	}
	return keywords, nil
}

func (s *DatabaseStore) CreateKeyword(ctx context.Context, keyword *models.GroupKeyword) (*models.GroupKeyword, error) {
	if err := s.db.WithContext(ctx).Create(keyword).Error; err != nil {
		return nil, fmt.Errorf("create keyword: %w", err)
	}
	return keyword, nil
}

func (s *DatabaseStore) DeleteKeyword(ctx context.Context, id uint, groupID string) error {
	res := s.db.WithContext(ctx).Where("id = ? AND group_id = ?", id, groupID).Delete(&models.GroupKeyword{})
	if res.Error != nil {
		return fmt.Errorf("delete keyword: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return models.ErrKeywordNotFound
	}
	return nil
}

// Group token operations
func (s *DatabaseStore) UpsertGroupToken(ctx context.Context, groupID, token string, expiresAt time.Time) error {
	row := &models.GroupToken{
		GroupID:   groupID,
		Token:     token,
		ExpiresAt: expiresAt,
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "group_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"token", "expires_at", "updated_at"}),
	}).Create(row).Error
	if err != nil {
		return fmt.Errorf("upsert group token: %w", err)
	}
	return nil
}

func (s *DatabaseStore) GetValidGroupToken(ctx context.Context, token string, now time.Time) (*models.GroupToken, error) {
	var row models.GroupToken
	err := s.db.WithContext(ctx).Where("token = ? AND expires_at > ?", token, now).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrTokenNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get group token: %w", err)
	}
	return &row, nil
}

func (s *DatabaseStore) DeleteGroupToken(ctx context.Context, token string) error {
	res := s.db.WithContext(ctx).Where("token = ?", token).Delete(&models.GroupToken{})
	if res.Error != nil {
		return fmt.Errorf("delete group token: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return models.ErrTokenNotFound
	}
	return nil
}

func (s *DatabaseStore) DeleteExpiredGroupTokens(ctx context.Context, now time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&models.GroupToken{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete expired group tokens: %w", res.Error)
	}
	return res.RowsAffected, nil
}
