package reporter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/DataDog/datadog-go/statsd"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/slack-go/slack"
	"github.com/wandergrowth/leadmux/hunter"
	"github.com/wandergrowth/leadmux/publisher"
	"github.com/wandergrowth/leadmux/scheduler"
	Logger "github.com/wandergrowth/leadmux/utils/log"
)

// Reporter listens to the scheduler topics on the event bus and forwards
// aggregates to Datadog, plus Slack notices for the events a human cares
// about. Reporting failures never affect the pipeline.
type Reporter struct {
	Statsd   *statsd.Client
	EventBus *gochannel.GoChannel
	// Slack incoming-webhook url, empty disables notices.
	SlackWebhookUrl string
}

func NewReporter(statsdClient *statsd.Client, bus *gochannel.GoChannel, slackWebhookUrl string) *Reporter {
	return &Reporter{
		Statsd:          statsdClient,
		EventBus:        bus,
		SlackWebhookUrl: slackWebhookUrl,
	}
}

// Run subscribes to both scheduler topics and consumes them until ctx is
// cancelled.
func (r *Reporter) Run(ctx context.Context) error {
	huntMessages, err := r.EventBus.Subscribe(ctx, scheduler.TopicHuntCycle)
	if err != nil {
		return err
	}
	publishMessages, err := r.EventBus.Subscribe(ctx, scheduler.TopicPublishResult)
	if err != nil {
		return err
	}

	go r.processHuntCycles(huntMessages)
	go r.processPublishResults(publishMessages)
	return nil
}

func (r *Reporter) processHuntCycles(messages <-chan *message.Message) {
	for msg := range messages {
		msg.Ack()

		stats := hunter.CycleStats{}
		if err := json.Unmarshal(msg.Payload, &stats); err != nil {
			Logger.Log.Errorln("fail to decode hunt cycle stats:", err)
			continue
		}

		r.count("hunter.keywords_searched", int64(stats.KeywordsSearched), nil)
		r.count("hunter.candidates_found", int64(stats.CandidatesFound), nil)
		r.count("hunter.drafts_created", int64(stats.DraftsCreated), nil)
		r.count("hunter.duplicates_skipped", int64(stats.DuplicatesSkipped), nil)
		r.count("hunter.search_errors", int64(stats.SearchErrors), nil)
		r.count("hunter.stale_deleted", stats.StaleDeleted, nil)
	}
}

func (r *Reporter) processPublishResults(messages <-chan *message.Message) {
	for msg := range messages {
		msg.Ack()

		result := publisher.CycleResult{}
		if err := json.Unmarshal(msg.Payload, &result); err != nil {
			Logger.Log.Errorln("fail to decode publish result:", err)
			continue
		}

		switch result.Outcome {
		case publisher.OutcomePublished:
			r.count("publisher.published", 1, nil)
			r.notify(fmt.Sprintf(":mega: Published reply for draft %s (score %d) as post %s",
				result.DraftId, result.Score, result.ExternalPostId))
		case publisher.OutcomeFailed:
			r.count("publisher.failures", 1, []string{"category:" + string(result.Category)})
			r.notify(fmt.Sprintf(":x: Draft %s failed terminally: %s", result.DraftId, result.Error))
		case publisher.OutcomeRateLimited:
			r.count("publisher.rate_limited", 1, nil)
		case publisher.OutcomeRetryLater:
			r.count("publisher.retries", 1, []string{"category:" + string(result.Category)})
		}
	}
}

func (r *Reporter) count(name string, value int64, tags []string) {
	if r.Statsd == nil {
		return
	}
	if err := r.Statsd.Count("leadmux."+name, value, tags, 1); err != nil {
		Logger.Log.Infoln("cannot report metric", name, ":", err)
	}
}

func (r *Reporter) notify(text string) {
	if r.SlackWebhookUrl == "" {
		return
	}
	err := slack.PostWebhook(r.SlackWebhookUrl, &slack.WebhookMessage{Text: text})
	if err != nil {
		Logger.Log.Infoln("cannot post slack notice:", err)
	}
}
