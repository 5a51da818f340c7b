package ranking

// ScoringWeights holds every constant the scoring function uses. The values
// below are the production defaults; they were tuned against live traffic and
// should be treated as configuration, not invariants.
type ScoringWeights struct {
	Base int `yaml:"BASE"`

	RecencyDecayPerHour float64 `yaml:"RECENCY_DECAY_PER_HOUR"`
	RecencyDecayCap     float64 `yaml:"RECENCY_DECAY_CAP"`

	QuestionBonus  int `yaml:"QUESTION_BONUS"`
	RecommendBonus int `yaml:"RECOMMEND_BONUS"`
	HelpBonus      int `yaml:"HELP_BONUS"`
	PlanBonus      int `yaml:"PLAN_BONUS"`
	ItineraryBonus int `yaml:"ITINERARY_BONUS"`
	BudgetBonus    int `yaml:"BUDGET_BONUS"`
	FirstTimeBonus int `yaml:"FIRST_TIME_BONUS"`

	NoReplyBonus        int `yaml:"NO_REPLY_BONUS"`
	FewReplyBonus       int `yaml:"FEW_REPLY_BONUS"`
	SomeReplyBonus      int `yaml:"SOME_REPLY_BONUS"`
	ManyReplyPenalty    int `yaml:"MANY_REPLY_PENALTY"`
	FloodedReplyPenalty int `yaml:"FLOODED_REPLY_PENALTY"`

	SmallFollowerThreshold  int `yaml:"SMALL_FOLLOWER_THRESHOLD"`
	MediumFollowerThreshold int `yaml:"MEDIUM_FOLLOWER_THRESHOLD"`
	LargeFollowerThreshold  int `yaml:"LARGE_FOLLOWER_THRESHOLD"`
	HugeFollowerThreshold   int `yaml:"HUGE_FOLLOWER_THRESHOLD"`
	SmallFollowerBonus      int `yaml:"SMALL_FOLLOWER_BONUS"`
	MediumFollowerBonus     int `yaml:"MEDIUM_FOLLOWER_BONUS"`
	LargeFollowerPenalty    int `yaml:"LARGE_FOLLOWER_PENALTY"`
	HugeFollowerPenalty     int `yaml:"HUGE_FOLLOWER_PENALTY"`
}

func DefaultScoringWeights() ScoringWeights {
	return ScoringWeights{
		Base:                    100,
		RecencyDecayPerHour:     2,
		RecencyDecayCap:         50,
		QuestionBonus:           20,
		RecommendBonus:          15,
		HelpBonus:               15,
		PlanBonus:               10,
		ItineraryBonus:          15,
		BudgetBonus:             10,
		FirstTimeBonus:          15,
		NoReplyBonus:            25,
		FewReplyBonus:           15,
		SomeReplyBonus:          5,
		ManyReplyPenalty:        -20,
		FloodedReplyPenalty:     -40,
		SmallFollowerThreshold:  500,
		MediumFollowerThreshold: 1000,
		LargeFollowerThreshold:  50000,
		HugeFollowerThreshold:   100000,
		SmallFollowerBonus:      15,
		MediumFollowerBonus:     10,
		LargeFollowerPenalty:    -15,
		HugeFollowerPenalty:     -25,
	}
}

// FilterConfig drives the pre-scoring rejection rules.
type FilterConfig struct {
	// Posts whose body matches any of these are dropped outright.
	SpamKeywords []string `yaml:"SPAM_KEYWORDS"`
	// Posts with more hashtag characters than this are hashtag stuffing.
	MaxHashtags int `yaml:"MAX_HASHTAGS"`
	// Authors whose handle/display name/bio matches any of these are other
	// businesses, not individuals worth engaging.
	CommercialKeywords []string `yaml:"COMMERCIAL_KEYWORDS"`
}

func DefaultFilterConfig() FilterConfig {
	return FilterConfig{
		SpamKeywords: []string{
			"giveaway", "promo code", "discount code", "click here",
			"dm me", "follow back", "onlyfans", "crypto",
		},
		MaxHashtags: 5,
		CommercialKeywords: []string{
			"tours", "booking", "official", "deals", "agency",
			"hotel", "rentals", "travel blog",
		},
	}
}
