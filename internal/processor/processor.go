// Package processor implements rule-based relevance classification and
// contact-field extraction over raw feed posts.
package processor

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/wbl-labs/leadharvest/internal/extractor"
)

var (
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

	phonePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\+?\d{1,3}[-.\s]\(?\d{3}\)?[-.\s]\d{3}[-.\s]\d{4}`),
		regexp.MustCompile(`\(\d{3}\)\s?\d{3}[-.\s]?\d{4}`),
		regexp.MustCompile(`\b\d{10}\b`),
	}

	localPartCleaner = regexp.MustCompile(`[._0-9]+`)

	titleCaser = cases.Title(language.English)
)

// Extensions that make an "email" a markup artifact, not an address.
var imageExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".svg", ".webp"}

// Personal mailbox providers; their domains never name a company.
var personalDomains = map[string]struct{}{
	"gmail.com":      {},
	"yahoo.com":      {},
	"hotmail.com":    {},
	"outlook.com":    {},
	"icloud.com":     {},
	"aol.com":        {},
	"protonmail.com": {},
}

// Broad hiring indicators used both as a relevance gate and as low-weight
// classifier signals.
var jobKeywords = []string{
	"hiring", "job", "position", "opportunity", "opening",
	"w2", "c2c", "corp-to-corp", "corp to corp", "1099", "bench",
	"full time", "full-time", "contract", "immediate", "looking for",
	"seeking", "recruiting", "join our team", "apply", "careers",
	"employment", "remote", "hybrid", "on-site", "hourly rate", "salary",
	"freelance", "temporary", "consultant", "staffing", "agency", "vendor",
	"implementation partner", "direct client", "visa sponsorship", "h1b",
	"send resume", "share profile", "email me", "dm me", "urgent role",
	"immediate requirement", "looking to hire", "multiple positions",
	"resumes to", "drop your email", "interested candidates", "hiring for",
}

var structuralHeaders = []string{
	"responsibilit", "requirement", "qualification", "skills",
	"what we are looking for", "nice to have", "must have", "experience",
	"ideal candidate", "job description", "essential", "positions",
	"openings available", "roles:",
}

var intentPhrases = []string{
	"hiring", "looking for", "join our team", "we are expanding",
	"open role", "job opening", "new role", "we are looking for",
	"positions available", "seeking talent", "immediate start",
	"interviewing", "hiring for", "we have an opening",
}

var ctaPatterns = []*regexp.Regexp{
	regexp.MustCompile(`send\s+(?:your\s+)?(?:resume|cv)`),
	regexp.MustCompile(`apply\s+at`),
	regexp.MustCompile(`dm\s+me`),
	regexp.MustCompile(`apply\s+here`),
	regexp.MustCompile(`email\s+me`),
	regexp.MustCompile(`share\s+(?:profile|resume)`),
	regexp.MustCompile(`contact\s+at`),
}

// Posts from people seeking work, not offering it.
var negativePhrases = []string{
	"open to work", "looking for a new role", "looking for my next adventure",
	"looking for a job", "i am looking for", "seeking new opportunities",
	"i am seeking", "unemployed",
}

// relevanceThreshold is the classifier score at which a post counts as a
// hiring post.
const relevanceThreshold = 40

// Processor is the stateless implementation of extractor.Processor.
// ownEmails holds addresses belonging to the operator's own accounts, which
// must never be extracted as leads.
type Processor struct {
	ownEmails map[string]struct{}
}

// New builds a Processor. ownEmails may be empty.
func New(ownEmails []string) *Processor {
	own := make(map[string]struct{}, len(ownEmails))
	for _, e := range ownEmails {
		if e = strings.ToLower(strings.TrimSpace(e)); e != "" {
			own[e] = struct{}{}
		}
	}
	return &Processor{ownEmails: own}
}

// IsRelevant reports whether post reads like a hiring post worth extracting.
func (p *Processor) IsRelevant(post extractor.RawPost) bool {
	relevant, _ := Classify(post.Body)
	return relevant
}

// Classify scores text against structural headers (+20), hiring intent
// (+15), calls to action (+15), broad keywords (+5), and job-seeker
// negatives (-100). Returns the verdict and the raw score.
func Classify(text string) (bool, int) {
	if text == "" {
		return false, 0
	}
	lower := strings.ToLower(text)
	score := 0
	for _, h := range structuralHeaders {
		if strings.Contains(lower, h) {
			score += 20
		}
	}
	for _, phrase := range intentPhrases {
		if strings.Contains(lower, phrase) {
			score += 15
		}
	}
	for _, re := range ctaPatterns {
		if re.MatchString(lower) {
			score += 15
		}
	}
	for _, kw := range jobKeywords {
		if strings.Contains(lower, kw) {
			score += 5
		}
	}
	for _, phrase := range negativePhrases {
		if strings.Contains(lower, phrase) {
			score -= 100
		}
	}
	return score >= relevanceThreshold, score
}

// ExtractContact pulls email and phone out of the post body, enriching the
// name and company from the email when the post itself is silent.
func (p *Processor) ExtractContact(post extractor.RawPost) extractor.Contact {
	contact := extractor.Contact{
		Email: p.firstEmail(post.Body),
		Phone: firstPhone(post.Body),
	}
	contact.FullName = strings.TrimSpace(post.AuthorName)
	if contact.FullName == "" {
		contact.FullName = NameFromEmail(contact.Email)
	}
	contact.Company = CompanyFromEmail(contact.Email)
	return contact
}

// firstEmail returns the first plausible business address in text. Image
// filenames, personal mailbox providers, and the operator's own addresses
// are rejected.
func (p *Processor) firstEmail(text string) string {
	for _, email := range emailPattern.FindAllString(text, -1) {
		lower := strings.ToLower(email)
		if len(email) < 5 || len(email) > 100 {
			continue
		}
		if hasAnySuffix(lower, imageExtensions) {
			continue
		}
		if _, personal := personalDomains[domainOf(lower)]; personal {
			continue
		}
		if _, own := p.ownEmails[lower]; own {
			continue
		}
		return email
	}
	return ""
}

func firstPhone(text string) string {
	for _, re := range phonePatterns {
		if m := re.FindString(text); m != "" {
			return strings.TrimSpace(m)
		}
	}
	return ""
}

// NameFromEmail guesses a display name from the email local part:
// "john.doe@x.com" becomes "John Doe".
func NameFromEmail(email string) string {
	local, _, ok := strings.Cut(email, "@")
	if !ok || local == "" {
		return ""
	}
	cleaned := strings.TrimSpace(localPartCleaner.ReplaceAllString(local, " "))
	if cleaned == "" {
		return ""
	}
	return titleCaser.String(cleaned)
}

// CompanyFromEmail derives a company name from the email domain:
// "jane@acme.io" becomes "Acme". Personal providers yield nothing.
func CompanyFromEmail(email string) string {
	domain := domainOf(strings.ToLower(email))
	if domain == "" {
		return ""
	}
	if _, personal := personalDomains[domain]; personal {
		return ""
	}
	base := domain
	if i := strings.LastIndex(domain, "."); i > 0 {
		base = domain[:i]
	}
	return titleCaser.String(base)
}

func domainOf(email string) string {
	_, domain, ok := strings.Cut(email, "@")
	if !ok {
		return ""
	}
	return domain
}

func hasAnySuffix(s string, suffixes []string) bool {
	for _, suffix := range suffixes {
		if strings.HasSuffix(s, suffix) {
			return true
		}
	}
	return false
}
