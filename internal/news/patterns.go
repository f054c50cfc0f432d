package news

import (
	"regexp"
	"strings"
	"time"
)

// EventType identifies a scheduled or breaking macro event class.
type EventType string

const (
	EventFedSignals   EventType = "FED_SIGNALS"
	EventFOMCDecision EventType = "FOMC_DECISION"
	EventFOMCSpeech   EventType = "FOMC_SPEECH"
	EventCPI          EventType = "CPI"
	EventNFP          EventType = "NFP"
	EventPCE          EventType = "PCE"
	EventGeneric      EventType = "GENERIC"
)

// Impact is the market impact level attached to a news item.
type Impact string

const (
	ImpactLow    Impact = "LOW"
	ImpactMedium Impact = "MEDIUM"
	ImpactHigh   Impact = "HIGH"
)

// cooldowns are the post-event no-trade windows per event type.
var cooldowns = map[EventType]time.Duration{
	EventFedSignals:   90 * time.Minute,
	EventFOMCDecision: 150 * time.Minute,
	EventFOMCSpeech:   150 * time.Minute,
	EventCPI:          75 * time.Minute,
	EventNFP:          75 * time.Minute,
	EventPCE:          75 * time.Minute,
}

const defaultHighImpactCooldown = 90 * time.Minute

// Cooldown returns the blocking window for an event type. Unclassified
// high-impact events get the default window.
func Cooldown(et EventType) time.Duration {
	if d, ok := cooldowns[et]; ok {
		return d
	}
	return defaultHighImpactCooldown
}

type eventPattern struct {
	eventType EventType
	keywords  []string
	re        *regexp.Regexp
}

// Ordered most specific first so FOMC headlines do not fall through to
// the generic fed-signals bucket.
var eventPatterns = []eventPattern{
	{
		eventType: EventFOMCDecision,
		keywords:  []string{"rate decision", "federal funds rate", "fomc statement"},
		re:        regexp.MustCompile(`(?i)fomc\s+(decision|statement|meeting)|rate\s+decision`),
	},
	{
		eventType: EventFOMCSpeech,
		keywords:  []string{"powell", "fed chair"},
		re:        regexp.MustCompile(`(?i)(powell|fed\s+chair).*(speech|speaks|testimony|remarks)`),
	},
	{
		eventType: EventCPI,
		keywords:  []string{"cpi", "consumer price index", "inflation report"},
		re:        regexp.MustCompile(`(?i)\bcpi\b|consumer\s+price`),
	},
	{
		eventType: EventNFP,
		keywords:  []string{"nonfarm", "non-farm", "payrolls", "jobs report"},
		re:        regexp.MustCompile(`(?i)non-?farm|payrolls|jobs\s+report`),
	},
	{
		eventType: EventPCE,
		keywords:  []string{"pce", "personal consumption"},
		re:        regexp.MustCompile(`(?i)\bpce\b|personal\s+consumption`),
	},
	{
		eventType: EventFedSignals,
		keywords:  []string{"federal reserve", "fed signals", "rate hike", "rate cut"},
		re:        regexp.MustCompile(`(?i)\bfed\b|federal\s+reserve`),
	},
}

// Commentary markers downgrade a headline: analyst chatter about an
// event is never treated as the event itself.
var commentaryMarkers = []string{
	"hints at",
	"analyst says",
	"analysts say",
	"expected to",
	"could",
	"preview",
	"opinion",
	"what to watch",
}

// ClassifyHeadline maps a headline to an event type and impact level.
// Headlines that match an event pattern are high impact unless they
// read as commentary, which caps them at medium.
func ClassifyHeadline(headline string) (EventType, Impact) {
	lower := strings.ToLower(headline)

	commentary := false
	for _, marker := range commentaryMarkers {
		if strings.Contains(lower, marker) {
			commentary = true
			break
		}
	}

	for _, p := range eventPatterns {
		matched := p.re.MatchString(headline)
		if !matched {
			for _, kw := range p.keywords {
				if strings.Contains(lower, kw) {
					matched = true
					break
				}
			}
		}
		if matched {
			if commentary {
				return p.eventType, ImpactMedium
			}
			return p.eventType, ImpactHigh
		}
	}

	return EventGeneric, ImpactLow
}
