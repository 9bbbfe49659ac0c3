// Package rules loads the four rule sources into an immutable Store and answers
// membership and network-restriction lookups against it.
package rules

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/haukened/rr-policy/internal/policy/common/clock"
	logpkg "github.com/haukened/rr-policy/internal/policy/common/log"
	"github.com/haukened/rr-policy/internal/policy/domain"
	"github.com/haukened/rr-policy/internal/policy/repos/rules/parsers"
)

// Source names, used in logs and as metrics labels.
const (
	SourceDeniedSenders         = "denied_senders"
	SourceBlackholeRecipients   = "blackhole_recipients"
	SourceSenderRestrictions    = "sender_restrictions"
	SourceRecipientRestrictions = "recipient_restrictions"
)

// DefaultFPRate is the Bloom prefilter false-positive target used when none is set.
const DefaultFPRate = 0.01

// Sources holds the file path of each rule source. An empty path is treated
// like a missing file.
type Sources struct {
	DeniedSenders         string
	BlackholeRecipients   string
	SenderRestrictions    string
	RecipientRestrictions string
}

// Options carries the collaborators of a Store. Every field is optional.
type Options struct {
	Logger logpkg.Logger
	Clock  clock.Clock
	Bloom  BloomFactory
	FPRate float64
	Cache  MatchCache
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = logpkg.NewNoopLogger()
	}
	if o.Clock == nil {
		o.Clock = clock.RealClock{}
	}
	if !(o.FPRate > 0 && o.FPRate < 1) {
		o.FPRate = DefaultFPRate
	}
	return o
}

// Store is the immutable rule snapshot consulted for every decision.
// It is safe to share between sessions: nothing is mutated after construction
// and the optional MatchCache synchronises itself.
type Store struct {
	denied     *AddressSet
	blackhole  *AddressSet
	senders    domain.RuleTable
	recipients domain.RuleTable
	cache      MatchCache
	loadedAt   time.Time
}

// New builds a Store from already parsed collections.
func New(denied, blackhole []string, senders, recipients domain.RuleTable, opts Options) *Store {
	opts = opts.withDefaults()
	return &Store{
		denied:     NewAddressSet(denied, opts.Bloom, opts.FPRate),
		blackhole:  NewAddressSet(blackhole, opts.Bloom, opts.FPRate),
		senders:    append(domain.RuleTable(nil), senders...),
		recipients: append(domain.RuleTable(nil), recipients...),
		cache:      opts.Cache,
		loadedAt:   opts.Clock.Now(),
	}
}

// Load reads all four sources and returns a Store. It never fails: missing or
// unreadable sources yield empty collections and malformed lines are skipped.
func Load(src Sources, opts Options) *Store {
	opts = opts.withDefaults()
	logger := opts.Logger

	var denied, blackhole []string
	var senders, recipients domain.RuleTable

	readSource(src.DeniedSenders, SourceDeniedSenders, logger, func(r io.Reader) error {
		var err error
		denied, err = parsers.ParseAddressList(r, SourceDeniedSenders, logger)
		return err
	})
	readSource(src.BlackholeRecipients, SourceBlackholeRecipients, logger, func(r io.Reader) error {
		var err error
		blackhole, err = parsers.ParseAddressList(r, SourceBlackholeRecipients, logger)
		return err
	})
	readSource(src.SenderRestrictions, SourceSenderRestrictions, logger, func(r io.Reader) error {
		var err error
		senders, err = parsers.ParseRestrictions(r, SourceSenderRestrictions, logger)
		return err
	})
	readSource(src.RecipientRestrictions, SourceRecipientRestrictions, logger, func(r io.Reader) error {
		var err error
		recipients, err = parsers.ParseRestrictions(r, SourceRecipientRestrictions, logger)
		return err
	})

	s := New(denied, blackhole, senders, recipients, opts)
	st := s.Stats()
	logger.Info(map[string]any{
		SourceDeniedSenders:         st.DeniedSenders,
		SourceBlackholeRecipients:   st.BlackholeRecipients,
		SourceSenderRestrictions:    st.SenderRestrictions,
		SourceRecipientRestrictions: st.RecipientRestrictions,
	}, "Rule store loaded")
	return s
}

// readSource opens path and hands it to parse. Failures are logged and swallowed;
// whatever parse collected before an error is kept by the caller's closure.
func readSource(path, name string, logger logpkg.Logger, parse func(io.Reader) error) {
	if strings.TrimSpace(path) == "" {
		logger.Debug(map[string]any{"source": name}, "source_not_configured")
		return
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Debug(map[string]any{"source": name, "path": path}, "source_missing")
		} else {
			logger.Warn(map[string]any{"source": name, "path": path, "error": err}, "Rule source unreadable, treating as empty")
		}
		return
	}
	defer f.Close()

	if err := parse(f); err != nil {
		logger.Warn(map[string]any{"source": name, "path": path, "error": err}, "Rule source truncated by read error")
	}
}

// IsDenied reports whether sender is in the denied-senders set.
func (s *Store) IsDenied(sender string) bool { return s.denied.Contains(sender) }

// IsBlackholed reports whether recipient is in the blackhole-recipients set.
func (s *Store) IsBlackholed(recipient string) bool { return s.blackhole.Contains(recipient) }

// SenderAllowList returns the allow-list of the first sender restriction whose
// network contains clientAddr. found is false when no rule applies.
func (s *Store) SenderAllowList(clientAddr string) (domain.AllowList, bool) {
	return s.lookup(s.senders, "s|", clientAddr)
}

// RecipientAllowList is SenderAllowList for the recipient restrictions.
func (s *Store) RecipientAllowList(clientAddr string) (domain.AllowList, bool) {
	return s.lookup(s.recipients, "r|", clientAddr)
}

func (s *Store) lookup(table domain.RuleTable, tag, clientAddr string) (domain.AllowList, bool) {
	if len(table) == 0 {
		return nil, false
	}
	if s.cache == nil {
		return table.Lookup(clientAddr)
	}
	key := tag + strings.TrimSpace(clientAddr)
	if idx, ok := s.cache.Get(key); ok {
		return table.At(idx)
	}
	idx := table.Index(clientAddr)
	s.cache.Put(key, idx)
	return table.At(idx)
}

// SenderRules returns a copy of the sender restriction table in file order.
func (s *Store) SenderRules() domain.RuleTable {
	return append(domain.RuleTable(nil), s.senders...)
}

// RecipientRules returns a copy of the recipient restriction table in file order.
func (s *Store) RecipientRules() domain.RuleTable {
	return append(domain.RuleTable(nil), s.recipients...)
}

// Stats returns collection sizes and cache counters.
func (s *Store) Stats() StoreStats {
	st := StoreStats{
		DeniedSenders:         s.denied.Len(),
		BlackholeRecipients:   s.blackhole.Len(),
		SenderRestrictions:    len(s.senders),
		RecipientRestrictions: len(s.recipients),
		LoadedAt:              s.loadedAt,
	}
	if s.cache != nil {
		st.Cache.Size = s.cache.Len()
		st.Cache.Hits, st.Cache.Misses, st.Cache.Evictions = s.cache.Stats()
	}
	return st
}
