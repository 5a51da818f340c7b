package hunter

import (
	"fmt"

	"github.com/wandergrowth/leadmux/ranking"
)

// ReplyDrafter writes the reply text stored on a freshly created draft.
type ReplyDrafter interface {
	DraftReply(candidate *ranking.Candidate, topic string) string
}

// TemplateDrafter fills one of a fixed set of reply templates with the
// detected topic. Template choice is a deterministic function of the source
// post, so re-drafting the same post yields the same reply.
type TemplateDrafter struct {
	Templates []string
}

func NewTemplateDrafter(templates []string) *TemplateDrafter {
	if len(templates) == 0 {
		templates = []string{
			"Great question! We put together a short guide on %s that covers exactly this - hope it helps with the planning!",
			"If it's your first time, %s has a few spots most visitors miss. Made a quick overview that might be useful!",
			"Planning around %s can be tricky - this breakdown of costs and timing saved a few people some headaches.",
		}
	}
	return &TemplateDrafter{Templates: templates}
}

func (d *TemplateDrafter) DraftReply(candidate *ranking.Candidate, topic string) string {
	index := len(candidate.ExternalId) % len(d.Templates)
	return fmt.Sprintf(d.Templates[index], topic)
}
