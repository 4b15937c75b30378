package cache

import "context"

// Reverse indices live in the backing store as sets of canonical keys, one
// set per tag or dependency. Tags group entries by category ("products"),
// dependencies tie entries to an external resource's identity. The two are
// mechanically identical; only the prefix differs.
const (
	tagPrefix = "tag:"
	depPrefix = "dep:"
)

func tagKey(name string) string { return tagPrefix + name }
func depKey(name string) string { return depPrefix + name }

// addToIndex records membership of a canonical key in an index set. Set
// semantics make this idempotent.
func (s *store) addToIndex(ctx context.Context, indexKey, member string) {
	if err := s.client.SAdd(ctx, indexKey, member).Err(); err != nil {
		s.log.Warn().Err(err).Str("index", indexKey).Msg("index add failed")
	}
}

// indexMembers returns the canonical keys recorded under an index set,
// or nil on error.
func (s *store) indexMembers(ctx context.Context, indexKey string) []string {
	members, err := s.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		s.log.Warn().Err(err).Str("index", indexKey).Msg("index read failed")
		return nil
	}
	return members
}

// scrubIndexes removes a canonical key from every tag and dependency set.
// Entries do not carry a reverse pointer to the indices they were written
// under, so the scrub enumerates all of them: O(distinct tags+deps) per
// delete, which is the documented trade-off for keeping entries flat.
func (s *store) scrubIndexes(ctx context.Context, member string) {
	for _, pattern := range []string{tagPrefix + "*", depPrefix + "*"} {
		for _, indexKey := range s.scan(ctx, pattern) {
			if err := s.client.SRem(ctx, indexKey, member).Err(); err != nil {
				s.log.Warn().Err(err).Str("index", indexKey).Msg("index scrub failed")
			}
		}
	}
}
