package extractor

import (
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
)

// ContactKey is the normalized identity used to suppress duplicate contacts
// within one run. Email when present, otherwise name plus company.
type ContactKey string

// KeyFor derives the dedup key for a result. Emails are lowercased and
// trimmed; the name+company fallback is lowercased with whitespace collapsed
// so "Jane  Doe / ACME" and "jane doe / acme" collide. A phone-only contact
// falls back to its digit string. The second return is false when no
// identity can be derived at all.
func KeyFor(result ExtractionResult) (ContactKey, bool) {
	if email := normalizeToken(result.Contact.Email); email != "" {
		return ContactKey("email:" + email), true
	}
	if name := normalizeToken(result.Contact.FullName); name != "" {
		company := normalizeToken(result.Contact.Company)
		return ContactKey("name:" + name + "|" + company), true
	}
	if digits := digitsOnly(result.Contact.Phone); digits != "" {
		return ContactKey("phone:" + digits), true
	}
	return "", false
}

func normalizeToken(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Deduplicator is the run-scoped duplicate-work guard. It is constructed at
// run start, shared by every in-flight unit, and discarded with the run. It
// is not a correctness guarantee against rows already in a persistent store;
// that check belongs to the storage collaborator.
type Deduplicator struct {
	keys mapset.Set[ContactKey]
}

// NewDeduplicator creates an empty run-scoped cache.
func NewDeduplicator() *Deduplicator {
	return &Deduplicator{keys: mapset.NewSet[ContactKey]()}
}

// Seen reports whether key was already recorded this run.
func (d *Deduplicator) Seen(key ContactKey) bool {
	return d.keys.Contains(key)
}

// Record marks key as persisted. Callers must only record after a successful
// storage write so a failed persist stays retryable in a later unit.
func (d *Deduplicator) Record(key ContactKey) {
	d.keys.Add(key)
}

// Size returns the number of distinct contacts recorded this run.
func (d *Deduplicator) Size() int {
	return d.keys.Cardinality()
}
