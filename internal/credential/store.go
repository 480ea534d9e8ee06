package credential

import (
	"sort"
	"sync"

	"github.com/muurk/autoconnect/internal/acconfig"
	"github.com/muurk/autoconnect/internal/radio"
	"go.uber.org/zap"
)

// DefaultCapacity is the number of credential slots.
const DefaultCapacity = 5

// Store is the bounded credential set. Store is safe for concurrent use.
type Store struct {
	mu       sync.Mutex
	capacity int
	policy   Policy
	creds    []Credential
	logger   *zap.Logger
}

// NewStore creates an empty store.
func NewStore(capacity int, policy Policy, logger *zap.Logger) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{capacity: capacity, policy: policy, logger: logger}
}

// Policy returns the identity policy.
func (s *Store) Policy() Policy { return s.policy }

// Capacity returns the slot count.
func (s *Store) Capacity() int { return s.capacity }

// Identity returns the identity of c under the store's policy.
func (s *Store) Identity(c Credential) string {
	return s.policy.Identity(c.SSID, c.BSSID)
}

func (s *Store) indexOf(id string) int {
	for i, c := range s.creds {
		if s.policy.Identity(c.SSID, c.BSSID) == id {
			return i
		}
	}
	return -1
}

func (s *Store) nextRecency() uint32 {
	var top uint32
	for _, c := range s.creds {
		if c.Recency > top {
			top = c.Recency
		}
	}
	return top + 1
}

// SeekOptions controls candidate selection.
type SeekOptions struct {
	Principle acconfig.Principle
	MinRSSI   int

	// ExcludeCurrent skips the network identified by Current.
	ExcludeCurrent bool
	Current        string
}

// Candidate is a stored credential matched against a scan result.
type Candidate struct {
	Credential Credential
	Scan       radio.ScanResult
}

// Seek picks the credential to try from a scan. Results are walked in
// descending signal order; matches weaker than MinRSSI and, when asked,
// the current network are dropped. PrincipleAuto takes the first
// remaining match, PrincipleRecent the highest recency with the stronger
// signal winning ties. ErrNotFound is returned when nothing remains.
func (s *Store) Seek(results []radio.ScanResult, opts SeekOptions) (Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var best *Candidate
	for _, r := range radio.SortBySignal(results) {
		id := s.policy.Identity(r.SSID, r.BSSID)
		if id == "" {
			continue
		}
		i := s.indexOf(id)
		if i < 0 {
			continue
		}
		if r.RSSI < opts.MinRSSI {
			s.logger.Debug("skipping weak network",
				zap.String("ssid", r.SSID), zap.Int("rssi", r.RSSI), zap.Int("min_rssi", opts.MinRSSI))
			continue
		}
		if opts.ExcludeCurrent && id == opts.Current {
			continue
		}

		cand := Candidate{Credential: s.creds[i], Scan: r}
		if opts.Principle == acconfig.PrincipleAuto {
			return cand, nil
		}
		if best == nil || cand.Credential.Recency > best.Credential.Recency {
			best = &cand
		}
	}

	if best == nil {
		return Candidate{}, ErrNotFound
	}
	return *best, nil
}

// Remember records a successful connection. An existing entry is
// updated and moved to the newest recency; a new one is inserted,
// evicting the lowest recency when the store is full. An eviction is
// reported as a *CapacityError alongside the stored credential; the
// insert still happened.
func (s *Store) Remember(c Credential) (Credential, error) {
	if err := c.Validate(s.policy); err != nil {
		return Credential{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c.Recency = s.nextRecency()
	id := s.policy.Identity(c.SSID, c.BSSID)

	if i := s.indexOf(id); i >= 0 {
		s.creds[i] = c
		return c, nil
	}

	var capErr error
	if len(s.creds) >= s.capacity {
		low := 0
		for i, e := range s.creds {
			if e.Recency < s.creds[low].Recency {
				low = i
			}
		}
		capErr = &CapacityError{Capacity: s.capacity, Evicted: s.creds[low]}
		s.logger.Warn("credential evicted", zap.Error(capErr))
		s.creds = append(s.creds[:low], s.creds[low+1:]...)
	}
	s.creds = append(s.creds, c)
	return c, capErr
}

// Lookup returns the credential with the given identity.
func (s *Store) Lookup(id string) (Credential, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(id); i >= 0 {
		return s.creds[i], true
	}
	return Credential{}, false
}

// LookupSSID returns the most recent credential for ssid regardless of
// policy.
func (s *Store) LookupSSID(ssid string) (Credential, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var found *Credential
	for i := range s.creds {
		if s.creds[i].SSID == ssid && (found == nil || s.creds[i].Recency > found.Recency) {
			found = &s.creds[i]
		}
	}
	if found == nil {
		return Credential{}, false
	}
	return *found, true
}

// Delete removes the credential with the given identity.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return ErrNotFound
	}
	s.creds = append(s.creds[:i], s.creds[i+1:]...)
	return nil
}

// Clear removes every credential.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = nil
}

// List returns a copy of the credentials, newest first.
func (s *Store) List() []Credential {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Credential, len(s.creds))
	copy(out, s.creds)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Recency > out[j].Recency })
	return out
}

// Len returns the number of stored credentials.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.creds)
}
