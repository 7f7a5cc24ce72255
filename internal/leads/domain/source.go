package domain

// Source is the channel a lead arrived through.
type Source string

const (
	SourceReferral    Source = "Referral"
	SourceWebsite     Source = "Website"
	SourceLandingPage Source = "Landing Page"
	SourceWhatsApp    Source = "WhatsApp"
	SourceInstagram   Source = "Instagram"
	SourceFacebook    Source = "Facebook"
	SourceManual      Source = "Manual"
)

// KnownSources lists the closed set in display order.
var KnownSources = []Source{
	SourceReferral,
	SourceWebsite,
	SourceLandingPage,
	SourceWhatsApp,
	SourceInstagram,
	SourceFacebook,
	SourceManual,
}

var sourcesByKey = func() map[string]Source {
	m := make(map[string]Source, len(KnownSources))
	for _, s := range KnownSources {
		m[enumKey(string(s))] = s
	}
	return m
}()

// ParseSource maps raw onto a known Source. Values outside the set are kept
// verbatim (trimmed) so the scorer can fall back to its unknown weight.
func ParseSource(raw string) Source {
	if s, ok := sourcesByKey[enumKey(raw)]; ok {
		return s
	}
	return Source(trimmed(raw))
}

// IsKnown reports whether s is one of KnownSources.
func (s Source) IsKnown() bool {
	known, ok := sourcesByKey[enumKey(string(s))]
	return ok && known == s
}

func (s Source) String() string { return string(s) }
