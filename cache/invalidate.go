package cache

import "context"

// InvalidateByTags deletes every entry indexed under each of the given tags,
// then deletes the tag sets themselves so the index cannot accumulate
// residue from expired entries. Tags with no members are skipped. Returns
// the number of entries removed; repeat calls are no-ops.
func (s *Service) InvalidateByTags(ctx context.Context, tags []string) int {
	return s.invalidateIndexed(ctx, tagPrefix, tags)
}

// InvalidateByDependencies is the dependency-index counterpart of
// InvalidateByTags.
func (s *Service) InvalidateByDependencies(ctx context.Context, deps []string) int {
	return s.invalidateIndexed(ctx, depPrefix, deps)
}

func (s *Service) invalidateIndexed(ctx context.Context, prefix string, names []string) int {
	removed := 0
	for _, name := range names {
		indexKey := prefix + name
		members := s.store.indexMembers(ctx, indexKey)
		if len(members) == 0 {
			continue
		}
		// A key covered by several of the requested names is deleted once;
		// DEL is idempotent so the overlap needs no coordination.
		removed += s.store.remove(ctx, members...)
		s.store.remove(ctx, indexKey)
	}
	return removed
}

// ClearNamespace deletes every entry whose canonical key lives under the
// namespace. Indices are left untouched: stale members simply miss on their
// next invalidation pass, which is the accepted cost of the wildcard path.
func (s *Service) ClearNamespace(ctx context.Context, namespace string) int {
	keys := s.store.scan(ctx, namespace+":*")
	if len(keys) == 0 {
		return 0
	}
	return s.store.remove(ctx, keys...)
}
