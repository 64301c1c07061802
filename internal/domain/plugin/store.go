package plugin

import (
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/felixgeelhaar/dyna/internal/ports"
)

// TrustedIdentity names the single developer identity allowed to unlock the
// debug surface. It only matches records running in developer mode.
type TrustedIdentity struct {
	Author string
	IDs    []string
}

// DefaultTrustedIdentity returns the identity of the updater's own plugin.
func DefaultTrustedIdentity() TrustedIdentity {
	return TrustedIdentity{
		Author: "amycatgirl",
		IDs:    []string{"dyna", "dyna-devel"},
	}
}

// Matches reports whether the record is the trusted identity in dev mode.
func (t TrustedIdentity) Matches(r Record) bool {
	if t.Author == "" || !r.Dev || r.Author != t.Author {
		return false
	}
	return slices.Contains(t.IDs, r.ID)
}

// ScanResult captures the records built by a rebuild and the entries it skipped.
type ScanResult struct {
	Records []Record
	Skipped []ScanError
	// Ignored counts host plugins without an update marker.
	Ignored int
}

// HasSkipped returns true if any eligible entry was left out.
func (r *ScanResult) HasSkipped() bool {
	return len(r.Skipped) > 0
}

// Store is the in-memory snapshot of plugins participating in updates.
// It is rebuilt wholesale from host state and never persisted.
type Store struct {
	mu      sync.RWMutex
	records []Record

	host    Host
	logger  ports.Logger
	trusted TrustedIdentity
	onDebug func()
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithStoreLogger sets the store logger.
func WithStoreLogger(l ports.Logger) StoreOption {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithTrustedIdentity sets the identity that unlocks the debug hook.
func WithTrustedIdentity(t TrustedIdentity) StoreOption {
	return func(s *Store) {
		s.trusted = t
	}
}

// WithDebugHook sets the function called when a scan observes the trusted
// identity in dev mode. It may be called on every rebuild; the receiver is
// responsible for installing once.
func WithDebugHook(fn func()) StoreOption {
	return func(s *Store) {
		s.onDebug = fn
	}
}

// NewStore creates an empty store backed by the given host registry.
func NewStore(host Host, opts ...StoreOption) (*Store, error) {
	if host == nil {
		return nil, ErrNilHost
	}
	s := &Store{
		host:    host,
		logger:  ports.Discard(),
		trusted: DefaultTrustedIdentity(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Rebuild clears the store and rescans the host registry. It never fails:
// entries that cannot become records are reported in the result and skipped.
func (s *Store) Rebuild(ctx context.Context) *ScanResult {
	result := &ScanResult{
		Records: make([]Record, 0),
		Skipped: make([]ScanError, 0),
	}

	descriptors, err := s.host.Plugins(ctx)
	if err != nil {
		s.logger.Error(ctx, "reading host plugin registry", ports.Err(err))
		s.replace(nil)
		return result
	}

	keys := make([]string, 0, len(descriptors))
	for key := range descriptors {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	seen := make(map[string]bool, len(keys))
	trustedSeen := false

	for _, key := range keys {
		d := descriptors[key]
		if !d.Eligible() {
			result.Ignored++
			continue
		}

		record, err := NewRecord(d)
		if err != nil {
			result.Skipped = append(result.Skipped, ScanError{Key: key, Err: err})
			s.logger.Warn(ctx, "skipping malformed plugin", ports.F("key", key), ports.Err(err))
			continue
		}
		if seen[record.Key()] {
			dupErr := &DuplicateRecordError{Key: record.Key()}
			result.Skipped = append(result.Skipped, ScanError{Key: key, Err: dupErr})
			s.logger.Warn(ctx, "skipping duplicate plugin", ports.F("key", key), ports.Err(dupErr))
			continue
		}
		seen[record.Key()] = true

		if s.trusted.Matches(record) {
			trustedSeen = true
		}
		result.Records = append(result.Records, record)
	}

	s.replace(result.Records)
	s.logger.Info(ctx, "plugins using dyna", ports.F("count", len(result.Records)))

	if trustedSeen && s.onDebug != nil {
		s.onDebug()
	}

	return result
}

func (s *Store) replace(records []Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = slices.Clone(records)
}

// Records returns a copy of the current records in store order.
func (s *Store) Records() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.records)
}

// Find returns the record with the given author and id.
func (s *Store) Find(author, id string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.records {
		if r.Author == author && r.ID == id {
			return r, true
		}
	}
	return Record{}, false
}

// IsEmpty returns true if the store holds no records.
func (s *Store) IsEmpty() bool {
	return s.Len() == 0
}

// Len returns the number of records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Clear drops all records.
func (s *Store) Clear() {
	s.replace(nil)
}
