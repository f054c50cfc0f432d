package news

import (
	"strconv"
	"strings"
	"time"
)

// RawItem is a news item as delivered by a provider. Timestamps arrive
// as strings in whatever format the source uses and may be absent.
type RawItem struct {
	Headline   string `json:"headline"`
	Source     string `json:"source"`
	OriginTime string `json:"origin_time"`
	FetchTime  string `json:"fetch_time"`
	Impact     string `json:"impact,omitempty"`
	EventType  string `json:"event_type,omitempty"`
}

// Item is a parsed news item ready for classification.
type Item struct {
	Headline   string    `json:"headline"`
	Source     string    `json:"source"`
	OriginTime time.Time `json:"origin_time"`
	FetchTime  time.Time `json:"fetch_time"`
	Impact     Impact    `json:"impact"`
	EventType  EventType `json:"event_type"`
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// ParseTime parses a provider timestamp string. Supported forms are
// RFC3339, zone-less ISO variants (taken as UTC), and unix seconds.
// ok is false for empty or unrecognized input.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}

	if secs, err := strconv.ParseInt(s, 10, 64); err == nil && secs > 0 {
		return time.Unix(secs, 0).UTC(), true
	}

	return time.Time{}, false
}

// Parse converts a raw item into an Item. Unstated impact and event
// type are derived from the headline; invalid timestamps are left zero
// and caught by the freshness classifier. ok is false when either
// timestamp failed to parse.
func (r RawItem) Parse() (Item, bool) {
	item := Item{
		Headline: r.Headline,
		Source:   r.Source,
	}

	originOK := false
	item.OriginTime, originOK = ParseTime(r.OriginTime)
	fetchOK := false
	item.FetchTime, fetchOK = ParseTime(r.FetchTime)

	et, impact := ClassifyHeadline(r.Headline)
	if r.EventType != "" {
		et = EventType(r.EventType)
	}
	if r.Impact != "" {
		impact = Impact(strings.ToUpper(r.Impact))
	}
	item.EventType = et
	item.Impact = impact

	return item, originOK && fetchOK
}

// Signature builds the dedup key for an item: event type plus the
// normalized headline, capped at 100 characters of headline.
func (i Item) Signature() string {
	headline := strings.ToLower(i.Headline)
	headline = strings.Join(strings.Fields(headline), " ")
	if len(headline) > 100 {
		headline = headline[:100]
	}
	return string(i.EventType) + ":" + headline
}
