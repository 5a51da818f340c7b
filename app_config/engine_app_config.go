package app_config

import (
	"io/ioutil"
	"log"
	"time"

	"github.com/wandergrowth/leadmux/ranking"
	"gopkg.in/yaml.v2"
)

// EngineAppConfig is the behavior surface of the engine. Connection strings
// and credentials come from the environment instead, see utils/dotenv.
type EngineAppConfig struct {
	// Keyword set walked every hunt cycle.
	KEYWORDS []string `yaml:"KEYWORDS"`
	// Platforms to search: "twitter", "reddit".
	PLATFORMS []string `yaml:"PLATFORMS"`
	// Max raw results requested per keyword per platform.
	MAX_RESULTS_PER_SEARCH int `yaml:"MAX_RESULTS_PER_SEARCH"`

	// Daily cap on drafts created by the hunter.
	DAILY_HUNT_CAP int `yaml:"DAILY_HUNT_CAP"`
	// Daily cap on autonomous publishes.
	DAILY_PUBLISH_CAP int `yaml:"DAILY_PUBLISH_CAP"`

	// Cycle cadence.
	HUNT_INTERVAL_SECOND    int64 `yaml:"HUNT_INTERVAL_SECOND"`
	PUBLISH_INTERVAL_SECOND int64 `yaml:"PUBLISH_INTERVAL_SECOND"`
	// Fixed delay between keyword searches within a cycle.
	KEYWORD_DELAY_SECOND int64 `yaml:"KEYWORD_DELAY_SECOND"`

	// Minimum spacing between two autonomous publishes.
	MIN_PUBLISH_INTERVAL_SECOND int64 `yaml:"MIN_PUBLISH_INTERVAL_SECOND"`
	// Drafts below this score are never published autonomously.
	PUBLISH_SCORE_THRESHOLD int `yaml:"PUBLISH_SCORE_THRESHOLD"`
	// Draft statuses eligible for autonomous selection. Add "approved" here
	// to let manually curated drafts flow through the same gate.
	PUBLISH_STATUSES []string `yaml:"PUBLISH_STATUSES"`

	// Retention for stale pending drafts.
	RETENTION_WINDOW_HOUR int64 `yaml:"RETENTION_WINDOW_HOUR"`
	STALE_MAX_SCORE       int   `yaml:"STALE_MAX_SCORE"`

	// External collaborators.
	MEDIA_ENDPOINT   string `yaml:"MEDIA_ENDPOINT"`
	STATIC_MEDIA_REF string `yaml:"STATIC_MEDIA_REF"`
	PUBLISH_ENDPOINT string `yaml:"PUBLISH_ENDPOINT"`

	// Reporting.
	STATSD_ADDR       string `yaml:"STATSD_ADDR"`
	SLACK_WEBHOOK_URL string `yaml:"SLACK_WEBHOOK_URL"`

	// Reply templates filled with the detected topic.
	REPLY_TEMPLATES []string `yaml:"REPLY_TEMPLATES"`

	// Scoring weights and filter lists; zero value means "use defaults".
	SCORING ranking.ScoringWeights `yaml:"SCORING"`
	FILTERS ranking.FilterConfig   `yaml:"FILTERS"`
}

func ParseEngineAppConfig(path string) EngineAppConfig {
	c := EngineAppConfig{}
	yamlFile, err := ioutil.ReadFile(path)
	if err != nil {
		log.Fatal("yamlFile. get err: ", err.Error())
	}
	err = yaml.Unmarshal(yamlFile, &c)
	if err != nil {
		log.Fatal("Unmarshal: ", err)
	}
	c.applyDefaults()
	return c
}

func (c *EngineAppConfig) applyDefaults() {
	if len(c.PLATFORMS) == 0 {
		c.PLATFORMS = []string{"twitter"}
	}
	if c.MAX_RESULTS_PER_SEARCH == 0 {
		c.MAX_RESULTS_PER_SEARCH = 30
	}
	if c.DAILY_HUNT_CAP == 0 {
		c.DAILY_HUNT_CAP = 500
	}
	if c.DAILY_PUBLISH_CAP == 0 {
		c.DAILY_PUBLISH_CAP = 20
	}
	if c.HUNT_INTERVAL_SECOND == 0 {
		c.HUNT_INTERVAL_SECOND = 300
	}
	if c.PUBLISH_INTERVAL_SECOND == 0 {
		c.PUBLISH_INTERVAL_SECOND = 120
	}
	if c.KEYWORD_DELAY_SECOND == 0 {
		c.KEYWORD_DELAY_SECOND = 5
	}
	if c.MIN_PUBLISH_INTERVAL_SECOND == 0 {
		c.MIN_PUBLISH_INTERVAL_SECOND = 1800
	}
	if c.PUBLISH_SCORE_THRESHOLD == 0 {
		c.PUBLISH_SCORE_THRESHOLD = 90
	}
	if len(c.PUBLISH_STATUSES) == 0 {
		c.PUBLISH_STATUSES = []string{"pending_review", "pending_retry"}
	}
	if c.RETENTION_WINDOW_HOUR == 0 {
		c.RETENTION_WINDOW_HOUR = 72
	}
	if c.STALE_MAX_SCORE == 0 {
		c.STALE_MAX_SCORE = 60
	}
	if c.SCORING == (ranking.ScoringWeights{}) {
		c.SCORING = ranking.DefaultScoringWeights()
	}
	if len(c.FILTERS.SpamKeywords) == 0 && len(c.FILTERS.CommercialKeywords) == 0 {
		c.FILTERS = ranking.DefaultFilterConfig()
	}
}

func (c *EngineAppConfig) HuntInterval() time.Duration {
	return time.Duration(c.HUNT_INTERVAL_SECOND) * time.Second
}

func (c *EngineAppConfig) PublishInterval() time.Duration {
	return time.Duration(c.PUBLISH_INTERVAL_SECOND) * time.Second
}

func (c *EngineAppConfig) KeywordDelay() time.Duration {
	return time.Duration(c.KEYWORD_DELAY_SECOND) * time.Second
}

func (c *EngineAppConfig) MinPublishInterval() time.Duration {
	return time.Duration(c.MIN_PUBLISH_INTERVAL_SECOND) * time.Second
}

func (c *EngineAppConfig) RetentionWindow() time.Duration {
	return time.Duration(c.RETENTION_WINDOW_HOUR) * time.Hour
}
