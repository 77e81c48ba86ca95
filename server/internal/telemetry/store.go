package telemetry

// Record is one telemetry observation. Only the fields the aggregator reads
// are kept; anything else in the source is dropped at load time.
type Record struct {
	Region    string  `json:"region" yaml:"region"`
	LatencyMs float64 `json:"latency_ms" yaml:"latency_ms"`
	UptimePct float64 `json:"uptime_pct" yaml:"uptime_pct"`
}

// Store is an immutable, ordered collection of telemetry records with a
// per-region index. It is built once and never modified afterwards, so it
// may be shared by any number of goroutines without locking.
type Store struct {
	source   string
	records  []Record
	byRegion map[string][]int // record indexes per region, insertion order
	regions  []string         // distinct regions, first-seen order
}

// NewStore builds a Store over a copy of records.
func NewStore(records []Record) *Store {
	return newStore("", records)
}

// Empty returns a Store with no records.
func Empty() *Store {
	return newStore("", nil)
}

func newStore(source string, records []Record) *Store {
	s := &Store{
		source:   source,
		records:  make([]Record, len(records)),
		byRegion: make(map[string][]int),
	}
	copy(s.records, records)
	for i, r := range s.records {
		if _, seen := s.byRegion[r.Region]; !seen {
			s.regions = append(s.regions, r.Region)
		}
		s.byRegion[r.Region] = append(s.byRegion[r.Region], i)
	}
	return s
}

// FilterByRegion returns every record whose Region equals region exactly
// (case-sensitive), in insertion order. The result is a fresh slice and is
// empty when the region has no records.
func (s *Store) FilterByRegion(region string) []Record {
	idx := s.byRegion[region]
	out := make([]Record, 0, len(idx))
	for _, i := range idx {
		out = append(out, s.records[i])
	}
	return out
}

// Count returns the number of records for region.
func (s *Store) Count(region string) int {
	return len(s.byRegion[region])
}

// Regions returns the distinct region names in first-seen order.
func (s *Store) Regions() []string {
	out := make([]string, len(s.regions))
	copy(out, s.regions)
	return out
}

// Len returns the total number of records.
func (s *Store) Len() int {
	return len(s.records)
}

// Source returns the path the store was loaded from, or "" for stores built
// in memory or started without a configured source.
func (s *Store) Source() string {
	return s.source
}
