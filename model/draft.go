package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DraftStatus is the lifecycle state of a Draft.
//
// pending_review -> published (success)
// pending_review -> failed (unrecoverable, e.g. unusable media)
// pending_review -> pending_retry -> {published, failed} (transient error)
// pending_review -> approved/rejected (manual curation, outside the
// autonomous loop)
//
// published and failed are terminal.
type DraftStatus string

const (
	DraftStatusPendingReview DraftStatus = "pending_review"
	DraftStatusApproved      DraftStatus = "approved"
	DraftStatusRejected      DraftStatus = "rejected"
	DraftStatusPendingRetry  DraftStatus = "pending_retry"
	DraftStatusPublished     DraftStatus = "published"
	DraftStatusFailed        DraftStatus = "failed"
)

// IsTerminal returns true iff no further transition is allowed from s.
func (s DraftStatus) IsTerminal() bool {
	return s == DraftStatusPublished || s == DraftStatusFailed
}

/*

Draft is one potential or completed autonomous reply, discovered by the hunter
and consumed by the publisher.

Id: primary key, uuid
OriginalExternalId: the platform-assigned id of the post we reply to. Unique
		across the whole store, this is the dedup anchor: a second discovery of
		the same external post is a no-op, never a duplicate row.
SourcePlatform: "twitter", "reddit", ...
Score: copied from the candidate ranking at creation time and immutable
		thereafter. The publisher only reads it, never recomputes it.
DraftReplyText: the reply we intend to post.
MediaReference: opaque handle from the media generation service. Doubles as
		the low-fidelity fallback when richer media generation fails at publish
		time.
PlatformMetrics: per-platform engagement metrics at discovery time, stored as
		a tagged union keyed by SourcePlatform (see MetricsEnvelope).
ExternalPostId: the platform-assigned id of our reply once published.

*/

type Draft struct {
	Id                   string `gorm:"primaryKey"`
	CreatedAt            time.Time
	DeletedAt            gorm.DeletedAt
	OriginalExternalId   string `gorm:"uniqueIndex"`
	SourcePlatform       string
	OriginalAuthorHandle string
	OriginalText         string
	DetectedTopic        string
	Location             string
	Score                int `gorm:"index"`
	DraftReplyText       string
	MediaReference       string
	TargetCommunityId    *string
	Status               DraftStatus `gorm:"index"`
	PublishAttempts      int
	LastError            *string
	PublishedAt          *time.Time
	ExternalPostId       *string
	PlatformMetrics      datatypes.JSON
}
