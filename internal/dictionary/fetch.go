package dictionary

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/deskline/deskline/internal/dispatch"
)

// Source fetches the raw dictionary bodies.
type Source interface {
	Statuses(ctx context.Context) ([]byte, error)
	Priorities(ctx context.Context) ([]byte, error)
	Departments(ctx context.Context) ([]byte, error)
}

func fetcher(src Source, domain Domain) func(context.Context) ([]byte, error) {
	switch domain {
	case Status:
		return src.Statuses
	case Priority:
		return src.Priorities
	case Department:
		return src.Departments
	}
	return func(context.Context) ([]byte, error) {
		return nil, fmt.Errorf("unknown dictionary domain %q", domain)
	}
}

// FetchAll issues one independent request per domain. Each completion runs
// on loop, merges what it got into the store, and then reports to
// onDomain whether it succeeded or not, so a counter over the three
// domains always reaches zero.
func (s *Store) FetchAll(ctx context.Context, loop *dispatch.Loop, src Source, log zerolog.Logger, onDomain func(Domain, error)) {
	for _, domain := range Domains {
		domain := domain
		dispatch.Go(loop, ctx, fetcher(src, domain), func(body []byte, err error) {
			if err == nil {
				var entries []Entry
				if entries, err = ParseEntries(body); err == nil {
					s.Merge(domain, entries)
					log.Debug().Str("domain", string(domain)).Int("entries", len(entries)).Msg("dictionary loaded")
				}
			}
			if err != nil {
				log.Warn().Err(err).Str("domain", string(domain)).Msg("dictionary fetch failed")
			}
			if onDomain != nil {
				onDomain(domain, err)
			}
		})
	}
}
