package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/Ananth-NQI/narasumber-backend/internal/storage"
	"github.com/Ananth-NQI/narasumber-backend/internal/utils"
)

// MatchKeywords returns the keywords contained in text, ignoring case.
// The result is deduplicated and keeps the keyword list's order.
func MatchKeywords(text string, keywords []string) []string {
	folded := utils.Fold(text)
	seen := make(map[string]bool, len(keywords))
	var matched []string
	for _, kw := range keywords {
		kw = utils.Fold(strings.TrimSpace(kw))
		if kw == "" || seen[kw] {
			continue
		}
		seen[kw] = true
		if strings.Contains(folded, kw) {
			matched = append(matched, kw)
		}
	}
	return matched
}

// KeywordMatch is the outcome of checking a question against a group's keywords
type KeywordMatch struct {
	Matched      []string
	SimilarCount int64
}

// HasSimilar reports whether the question should be short-circuited
func (m KeywordMatch) HasSimilar() bool {
	return len(m.Matched) > 0 && m.SimilarCount > 0
}

// KeywordMatcher finds existing questions that share a group's keywords
type KeywordMatcher struct {
	store storage.Store
}

// NewKeywordMatcher creates a matcher backed by the store
func NewKeywordMatcher(store storage.Store) *KeywordMatcher {
	return &KeywordMatcher{store: store}
}

// Keywords returns the group's configured keyword strings
func (m *KeywordMatcher) Keywords(ctx context.Context, groupID string) ([]string, error) {
	rows, err := m.store.GetKeywordsForGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	keywords := make([]string, 0, len(rows))
	for _, row := range rows {
		keywords = append(keywords, row.Keyword)
	}
	return keywords, nil
}

// Check matches the question against the group's keywords and, only when
// something matched, counts stored questions containing any matched keyword.
func (m *KeywordMatcher) Check(ctx context.Context, groupID, question string) (KeywordMatch, error) {
	keywords, err := m.Keywords(ctx, groupID)
	if err != nil {
		return KeywordMatch{}, fmt.Errorf("load keywords: %w", err)
	}

	result := KeywordMatch{Matched: MatchKeywords(question, keywords)}
	if len(result.Matched) == 0 {
		return result, nil
	}

	result.SimilarCount, err = m.store.CountQuestionsMatchingKeywords(ctx, result.Matched)
	if err != nil {
		return KeywordMatch{}, fmt.Errorf("count similar questions: %w", err)
	}
	return result, nil
}
