// Package report renders the run's newly admitted signals into the
// plain-text digest handed to downstream review (human or language model).
package report

import (
	"fmt"
	"strings"
	"time"

	"RegSonar/internal/domain"
)

const divider = "----------------------------------------------------------------------"

var channelHeadings = map[domain.Channel]string{
	domain.ChannelParliament: "STORTINGET (parlament)",
	domain.ChannelGovernment: "REGJERINGEN (horinger og forskriftsarbeid)",
	domain.ChannelEUEEA:      "EU/EOS",
	domain.ChannelIndustry:   "BRANSJE OG TILSYN",
}

// Digest is the structured output of one run.
type Digest struct {
	Text         string
	Fingerprints []string // rendered records, in output order
}

// Empty reports whether the digest rendered no newly admitted signals.
// An empty digest is a valid outcome, not a failure.
func (d Digest) Empty() bool {
	return len(d.Fingerprints) == 0
}

// Build renders pending records (already ordered by the store: channel,
// score descending, first seen ascending) plus statute changes and the
// per-source status annex.
func Build(records []domain.PersistedRecord, statuses []domain.SourceStatus, changes []domain.LawChange, generatedAt time.Time) Digest {
	var b strings.Builder
	fps := make([]string, 0, len(records))

	b.WriteString("REGSONAR - STRATEGISK SIGNALRAPPORT FOR VAREHANDEL OG BYGGEVARE\n")
	b.WriteString(divider + "\n")
	fmt.Fprintf(&b, "Generert: %s\n", generatedAt.UTC().Format("02.01.2006 15:04 UTC"))
	fmt.Fprintf(&b, "Nye signaler: %d | Lovendringer: %d\n", len(records), len(changes))
	b.WriteString("\n")
	b.WriteString("INSTRUKS TIL ANALYSEN:\n")
	b.WriteString("- Prioriter signaler med hoy score og naere frister\n")
	b.WriteString("- Vurder konsekvenser for varehandel og byggevare\n")
	b.WriteString("- Flagg compliance-risiko og muligheter for proaktiv tilpasning\n")

	if len(changes) > 0 {
		b.WriteString("\n" + divider + "\n")
		b.WriteString("LOVENDRINGER DETEKTERT\n\n")
		for _, change := range changes {
			fmt.Fprintf(&b, "LOV/FORSKRIFT: %s\n", change.Name)
			fmt.Fprintf(&b, "  Endring: %.2f%%\n", change.ChangePercent)
			fmt.Fprintf(&b, "  Lenke: %s\n\n", change.URL)
		}
	}

	if len(records) == 0 && len(changes) == 0 {
		b.WriteString("\n" + divider + "\n")
		b.WriteString("Ingen nye relevante signaler i denne kjoringen.\n")
	}

	var current domain.Channel
	for _, rec := range records {
		if rec.Channel != current {
			current = rec.Channel
			heading := channelHeadings[current]
			if heading == "" {
				heading = strings.ToUpper(string(current))
			}
			b.WriteString("\n" + divider + "\n")
			b.WriteString(heading + "\n\n")
		}

		fmt.Fprintf(&b, "TITTEL: %s\n", rec.Title)
		fmt.Fprintf(&b, "  Kilde: %s | Score: %.1f\n", rec.SourceID, rec.Score)
		if len(rec.MatchedKeywords) > 0 {
			fmt.Fprintf(&b, "  Nokkelord: %s\n", strings.Join(rec.MatchedKeywords, ", "))
		}
		if rec.Deadline != "" {
			fmt.Fprintf(&b, "  FRIST: %s\n", rec.Deadline)
		}
		fmt.Fprintf(&b, "  Forst sett: %s\n", rec.FirstSeenAt.UTC().Format("2006-01-02"))
		fmt.Fprintf(&b, "  Lenke: %s\n", rec.URL)
		b.WriteString("  Sannsynlighet: [fylles ut av analysen]\n")
		b.WriteString("  Konsekvens:    [fylles ut av analysen]\n")
		b.WriteString("  Horisont:      [fylles ut av analysen]\n\n")

		fps = append(fps, rec.Fingerprint)
	}

	writeStatusAnnex(&b, statuses)

	b.WriteString(divider + "\n")
	b.WriteString("SLUTT PA RAPPORT\n")

	return Digest{Text: b.String(), Fingerprints: fps}
}

// writeStatusAnnex lists sources that failed or were skipped, so a partial
// run is never mistaken for a complete one.
func writeStatusAnnex(b *strings.Builder, statuses []domain.SourceStatus) {
	var degraded []domain.SourceStatus
	for _, st := range statuses {
		if st.State == domain.SourceFailed || st.State == domain.SourceSkipped {
			degraded = append(degraded, st)
		}
	}
	if len(degraded) == 0 {
		return
	}

	b.WriteString("\n" + divider + "\n")
	b.WriteString("KILDER MED AVVIK\n\n")
	for _, st := range degraded {
		reason := st.Reason
		if reason == "" {
			reason = "ukjent arsak"
		}
		fmt.Fprintf(b, "- %s: %s (%s)\n", st.SourceID, st.State, reason)
	}
	b.WriteString("\n")
}
