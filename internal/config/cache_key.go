package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// UserSessionKey returns the cache key for a user's login session
func (r *CacheKeyStruct) UserSessionKey(userID string) string {
	return fmt.Sprintf("login:%s", userID)
}

// AttemptDeadlineKey returns the cache key for a user's attempt deadline (unix seconds)
func (r *CacheKeyStruct) AttemptDeadlineKey(examID, userID string) string {
	return fmt.Sprintf("user:%s:exam:%s:deadline", userID, examID)
}

// UserAnswersKey returns the cache key for a user's autosaved answers
func (r *CacheKeyStruct) UserAnswersKey(examID, userID string) string {
	return fmt.Sprintf("user:%s:exam:%s:answers", userID, examID)
}

// ExamPayloadKey returns the cache key for an exam's student-facing payload
func (r *CacheKeyStruct) ExamPayloadKey(examID string) string {
	return fmt.Sprintf("exam:%s:payload", examID)
}

// ExamAnswerKey returns the cache key for an exam's answer key hash
func (r *CacheKeyStruct) ExamAnswerKey(examID string) string {
	return fmt.Sprintf("exam:%s:key", examID)
}

var CacheKey = NewCacheKeyStruct()
