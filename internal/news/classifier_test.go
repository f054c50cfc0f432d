package news

import (
	"testing"
	"time"
)

var testNow = time.Date(2025, 3, 19, 18, 0, 0, 0, time.UTC)

func rawItem(headline string, originAge, fetchAge time.Duration) RawItem {
	return RawItem{
		Headline:   headline,
		Source:     "wire",
		OriginTime: testNow.Add(-originAge).Format(time.RFC3339),
		FetchTime:  testNow.Add(-fetchAge).Format(time.RFC3339),
	}
}

func TestClassifyFreshness(t *testing.T) {
	tests := []struct {
		name string
		item RawItem
		want Classification
	}{
		{
			name: "missing origin timestamp",
			item: RawItem{Headline: "Fed raises rates", FetchTime: testNow.Format(time.RFC3339)},
			want: Unverified,
		},
		{
			name: "garbage timestamps",
			item: RawItem{Headline: "Fed raises rates", OriginTime: "yesterday", FetchTime: "soon"},
			want: Unverified,
		},
		{
			name: "fetch older than cache window",
			item: rawItem("Fed raises rates", 30*time.Minute, 61*time.Minute),
			want: Expired,
		},
		{
			name: "origin older than relevance window even when high impact",
			item: rawItem("FOMC decision: rates unchanged", 181*time.Minute, 10*time.Minute),
			want: StaleContext,
		},
		{
			name: "fresh item",
			item: rawItem("CPI comes in hot", 20*time.Minute, 5*time.Minute),
			want: LiveEvent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClassifier(DefaultClassifierConfig(), NewStore())
			_, got := c.Classify(tt.item, testNow)
			if got != tt.want {
				t.Errorf("Classify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClassifyExpiredBeatsStale(t *testing.T) {
	// Fetch staleness is checked before origin staleness.
	c := NewClassifier(DefaultClassifierConfig(), NewStore())
	item := rawItem("NFP beats expectations", 200*time.Minute, 90*time.Minute)
	if _, got := c.Classify(item, testNow); got != Expired {
		t.Errorf("Classify() = %v, want %v", got, Expired)
	}
}

func TestClassifyDedup(t *testing.T) {
	c := NewClassifier(DefaultClassifierConfig(), NewStore())

	first := rawItem("CPI comes in hot", 20*time.Minute, 5*time.Minute)
	if _, got := c.Classify(first, testNow); got != LiveEvent {
		t.Fatalf("first sighting = %v, want %v", got, LiveEvent)
	}

	// Same headline from another source with the same origin is a repeat.
	repeat := rawItem("CPI  comes in HOT", 20*time.Minute, 2*time.Minute)
	if _, got := c.Classify(repeat, testNow); got != StaleContext {
		t.Errorf("repeat sighting = %v, want %v", got, StaleContext)
	}

	// A genuinely newer origin for the same signature is live again.
	newer := rawItem("CPI comes in hot", 5*time.Minute, 1*time.Minute)
	if _, got := c.Classify(newer, testNow); got != LiveEvent {
		t.Errorf("newer origin = %v, want %v", got, LiveEvent)
	}
}

func TestSignatureNormalization(t *testing.T) {
	a := Item{EventType: EventCPI, Headline: "CPI   Comes In\tHot"}
	b := Item{EventType: EventCPI, Headline: "cpi comes in hot"}
	if a.Signature() != b.Signature() {
		t.Errorf("signatures differ: %q vs %q", a.Signature(), b.Signature())
	}

	long := Item{EventType: EventNFP, Headline: string(make([]byte, 300))}
	if got := len(long.Signature()); got > len(EventNFP)+1+100 {
		t.Errorf("signature not capped, len = %d", got)
	}
}

func TestParseTimeFormats(t *testing.T) {
	tests := []struct {
		in string
		ok bool
	}{
		{"2025-03-19T14:30:00Z", true},
		{"2025-03-19T14:30:00", true},
		{"2025-03-19 14:30:00", true},
		{"2025-03-19 14:30", true},
		{"1742394600", true},
		{"", false},
		{"not a time", false},
	}
	for _, tt := range tests {
		if _, ok := ParseTime(tt.in); ok != tt.ok {
			t.Errorf("ParseTime(%q) ok = %v, want %v", tt.in, ok, tt.ok)
		}
	}
}
