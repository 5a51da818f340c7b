package app_config

import (
	"io/ioutil"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfigYaml = `
KEYWORDS:
  - "Paris travel"
  - "Tokyo itinerary"
PLATFORMS:
  - "twitter"
  - "reddit"
DAILY_PUBLISH_CAP: 10
MIN_PUBLISH_INTERVAL_SECOND: 900
PUBLISH_SCORE_THRESHOLD: 85
MEDIA_ENDPOINT: "http://media.internal/generate"
PUBLISH_ENDPOINT: "http://gateway.internal/publish"
SCORING:
  BASE: 100
  RECENCY_DECAY_PER_HOUR: 2
  RECENCY_DECAY_CAP: 50
  QUESTION_BONUS: 30
FILTERS:
  SPAM_KEYWORDS:
    - "promo code"
  MAX_HASHTAGS: 3
`

func writeTestConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "engine.yaml")
	require.NoError(t, ioutil.WriteFile(path, []byte(testConfigYaml), 0644))
	return path
}

func TestParseEngineAppConfig(t *testing.T) {
	config := ParseEngineAppConfig(writeTestConfig(t))

	assert.Equal(t, []string{"Paris travel", "Tokyo itinerary"}, config.KEYWORDS)
	assert.Equal(t, []string{"twitter", "reddit"}, config.PLATFORMS)
	assert.Equal(t, 10, config.DAILY_PUBLISH_CAP)
	assert.Equal(t, 85, config.PUBLISH_SCORE_THRESHOLD)
	assert.Equal(t, 15*time.Minute, config.MinPublishInterval())
	assert.Equal(t, 30, config.SCORING.QuestionBonus)
	assert.Equal(t, 3, config.FILTERS.MaxHashtags)
}

func TestParseEngineAppConfigDefaults(t *testing.T) {
	config := ParseEngineAppConfig(writeTestConfig(t))

	// Unset fields fall back to production defaults.
	assert.Equal(t, 500, config.DAILY_HUNT_CAP)
	assert.Equal(t, 5*time.Minute, config.HuntInterval())
	assert.Equal(t, 2*time.Minute, config.PublishInterval())
	assert.Equal(t, 72*time.Hour, config.RetentionWindow())
	assert.Equal(t, 60, config.STALE_MAX_SCORE)
	assert.Equal(t, 30, config.MAX_RESULTS_PER_SEARCH)
}
