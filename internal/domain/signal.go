package domain

import "time"

// Channel categorizes the upstream origin of a signal.
type Channel string

const (
	ChannelParliament Channel = "parliament"
	ChannelGovernment Channel = "government"
	ChannelEUEEA      Channel = "eu-eea"
	ChannelIndustry   Channel = "industry"
)

// KnownChannel reports whether the value is one of the defined channels.
func KnownChannel(c Channel) bool {
	switch c {
	case ChannelParliament, ChannelGovernment, ChannelEUEEA, ChannelIndustry:
		return true
	}
	return false
}

// FetchKind selects the retrieval strategy for a source.
type FetchKind string

const (
	KindFeed    FetchKind = "feed"
	KindAPI     FetchKind = "api"
	KindListing FetchKind = "listing"
)

// KnownFetchKind reports whether the value is one of the defined kinds.
func KnownFetchKind(k FetchKind) bool {
	switch k {
	case KindFeed, KindAPI, KindListing:
		return true
	}
	return false
}

// Source is one configured upstream endpoint.
type Source struct {
	ID      string
	Name    string
	URL     string
	Channel Channel
	Kind    FetchKind
	Bias    float64
	Options map[string]string
}

// CandidateItem is one raw unit pulled from a source during a fetch cycle.
// Immutable once produced; discarded after the cycle unless admitted.
type CandidateItem struct {
	SourceID    string
	Title       string
	URL         string
	PublishedAt *time.Time // upstream dates are unreliable
	Summary     string
	Channel     Channel
}

// ExtractionStatus is the closed set of document extraction outcomes.
type ExtractionStatus string

const (
	ExtractionOK          ExtractionStatus = "ok"
	ExtractionUnreachable ExtractionStatus = "unreachable"
	ExtractionUnsupported ExtractionStatus = "unsupported-format"
	ExtractionTooLarge    ExtractionStatus = "too-large"
)

// ExtractedDocument is optional enrichment of a CandidateItem with text
// pulled from a linked binary document. The zero value means no document
// was attempted for the item.
type ExtractedDocument struct {
	FullText string
	Status   ExtractionStatus
}

// MatchedKeyword is one keyword-table hit with its category tag.
type MatchedKeyword struct {
	Term     string
	Category string
	Weight   float64
}

// ScoredItem pairs a candidate with its relevance judgment.
type ScoredItem struct {
	Item     CandidateItem
	Document ExtractedDocument
	Score    float64
	Matches  []MatchedKeyword
	Deadline string // hearing deadline phrase extracted from the text, if any
}

// MatchedTerms returns just the matched phrases, in match order.
func (s ScoredItem) MatchedTerms() []string {
	terms := make([]string, 0, len(s.Matches))
	for _, m := range s.Matches {
		terms = append(terms, m.Term)
	}
	return terms
}

// ReportStatus tracks a persisted record through digest emission.
type ReportStatus string

const (
	StatusPending  ReportStatus = "pending"
	StatusIncluded ReportStatus = "included"
	StatusArchived ReportStatus = "archived"
)

// PersistedRecord is the durable row behind the dedup gate. Created on first
// admission; only report_status ever advances afterwards.
type PersistedRecord struct {
	Fingerprint     string
	FirstSeenAt     time.Time
	Title           string
	URL             string
	Channel         Channel
	SourceID        string
	Score           float64
	MatchedKeywords []string
	Deadline        string
	PublishedAt     *time.Time
	ReportStatus    ReportStatus
}

// AdmissionResult is the outcome of offering a scored item to the store.
type AdmissionResult string

const (
	Admitted  AdmissionResult = "admitted"
	Duplicate AdmissionResult = "duplicate"
	Rejected  AdmissionResult = "rejected"
)

// SourceState summarizes how a source fared within one batch.
type SourceState string

const (
	SourceOK      SourceState = "ok"
	SourceFailed  SourceState = "failed"
	SourceSkipped SourceState = "skipped"
)

// SourceStatus is the per-source observability record for one run.
type SourceStatus struct {
	SourceID   string
	State      SourceState
	Reason     string
	Fetched    int
	Admitted   int
	Duplicates int
	Rejected   int
}

// Law is one statute or regulation page monitored for text drift.
type Law struct {
	Name string
	URL  string
}

// LawChange reports detected drift in a monitored statute page.
type LawChange struct {
	Name          string
	URL           string
	ChangePercent float64
}
