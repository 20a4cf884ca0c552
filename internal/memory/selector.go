package memory

import (
	"cmp"
	"slices"
	"time"

	"github.com/ekisa-team/modelmem/internal/config"
)

// VictimSelector is the selection contract used by the pressure responder.
type VictimSelector interface {
	SelectVictims(records []Record, targetBytes int64, strategy config.Strategy, aggressive bool) []string
}

// Selector chooses eviction victims from a snapshot of records. It is pure
// selection logic: it takes no locks and never mutates the registry.
type Selector struct{}

// SelectVictims returns model ids to evict, in eviction order, until the
// accumulated size reaches targetBytes or the snapshot is exhausted.
//
// Non-aggressive selection skips critical-priority models once some
// progress has been made; a lone critical model can still be evicted when
// nothing else has freed any bytes. Aggressive selection ignores priority
// protection entirely.
func (Selector) SelectVictims(records []Record, targetBytes int64, strategy config.Strategy, aggressive bool) []string {
	if targetBytes <= 0 || len(records) == 0 {
		return nil
	}

	sorted := slices.Clone(records)
	switch strategy {
	case config.StrategyLargestFirst:
		slices.SortStableFunc(sorted, func(a, b Record) int {
			return cmp.Compare(b.SizeBytes, a.SizeBytes)
		})
	case config.StrategyOldestFirst:
		slices.SortStableFunc(sorted, func(a, b Record) int {
			return a.RegisteredAt.Compare(b.RegisteredAt)
		})
	case config.StrategyPriorityBased:
		slices.SortStableFunc(sorted, func(a, b Record) int {
			if c := cmp.Compare(a.Priority, b.Priority); c != 0 {
				return c
			}
			return a.LastUsedAt.Compare(b.LastUsedAt)
		})
	default: // StrategyLRU
		slices.SortStableFunc(sorted, func(a, b Record) int {
			return a.LastUsedAt.Compare(b.LastUsedAt)
		})
	}

	var (
		victims []string
		freed   int64
	)
	for _, r := range sorted {
		if !aggressive && r.Priority == PriorityCritical && freed > 0 {
			continue
		}

		victims = append(victims, r.ID)
		freed += r.SizeBytes

		if freed >= targetBytes {
			break
		}
	}

	return victims
}

// EvictionScore ranks a record's importance. Lower scores are evicted
// first: priority dominates, recency breaks ties within a priority band.
func EvictionScore(r Record, now time.Time) float64 {
	return float64(r.Priority)*1000 - now.Sub(r.LastUsedAt).Hours()
}

// RankByImportance returns the records ordered least important first.
func RankByImportance(records []Record, now time.Time) []Record {
	ranked := slices.Clone(records)
	slices.SortStableFunc(ranked, func(a, b Record) int {
		return cmp.Compare(EvictionScore(a, now), EvictionScore(b, now))
	})
	return ranked
}

// LeastImportant returns the ids of the n least important records.
func LeastImportant(records []Record, n int, now time.Time) []string {
	if n <= 0 {
		return nil
	}

	ranked := RankByImportance(records, now)
	if n > len(ranked) {
		n = len(ranked)
	}

	ids := make([]string, 0, n)
	for _, r := range ranked[:n] {
		ids = append(ids, r.ID)
	}

	return ids
}
