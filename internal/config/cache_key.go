package config

import (
	"fmt"

	"github.com/google/uuid"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// StudentSessionKey returns the cache key for a student's login session
func (r *CacheKeyStruct) StudentSessionKey(studentID int) string {
	return fmt.Sprintf("login:%d", studentID)
}

// SessionAnswersKey returns the cache key for a quiz session's autosaved answers
func (r *CacheKeyStruct) SessionAnswersKey(sessionID uuid.UUID) string {
	return fmt.Sprintf("quiz_session:%s:answers", sessionID)
}

// ChapterPoolKey returns the cache key for a chapter's flattened question pool
func (r *CacheKeyStruct) ChapterPoolKey(courseID int, chapter string) string {
	return fmt.Sprintf("course:%d:chapter:%s:pool", courseID, chapter)
}

var CacheKey = NewCacheKeyStruct()
