package media

import (
	"context"
	"log/slog"
)

// Service is the front door for resolution: it routes a user-supplied
// URL to the right fallback chain, going through the page extractor
// first when the URL is an HTML page rather than a platform link.
type Service struct {
	mirrors *Resolver
	player  *Resolver
	pages   *PageExtractor
	cache   *Cache
	logger  *slog.Logger
}

func NewService(mirrors, player *Resolver, pages *PageExtractor, cache *Cache) *Service {
	return &Service{
		mirrors: mirrors,
		player:  player,
		pages:   pages,
		cache:   cache,
		logger:  slog.Default(),
	}
}

// ResolveURL turns a reference into one fetchable media locator.
// Resolution is idempotent and side-effect-free apart from the cache.
func (s *Service) ResolveURL(ctx context.Context, rawURL string) (*Resolution, error) {
	if res, ok := s.cache.Get(ctx, rawURL); ok {
		s.logger.Debug("resolution cache hit", "url", rawURL)
		return res, nil
	}

	res, err := s.resolve(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	s.cache.Put(ctx, rawURL, res)
	return res, nil
}

func (s *Service) resolve(ctx context.Context, rawURL string) (*Resolution, error) {
	switch {
	case IsYouTubeURL(rawURL):
		id := ExtractYouTubeID(rawURL)
		res, err := s.mirrors.Resolve(ctx, Reference{MediaID: id, URL: rawURL})
		if err != nil {
			return nil, err
		}
		// The provider's own title wins; the id is the last resort.
		if res.Meta.Title == "" {
			res.Meta.Title = "YouTube " + id
		}
		return res, nil

	case IsPlayerURL(rawURL):
		id := ExtractPlayerID(rawURL)
		res, err := s.player.Resolve(ctx, Reference{MediaID: id, URL: rawURL})
		if err != nil {
			return nil, err
		}
		if res.Meta.Title == "" {
			res.Meta.Title = "Vimeo " + id
		}
		return res, nil

	default:
		// Anything else is treated as a page with an embedded player.
		info, err := s.pages.Extract(ctx, rawURL)
		if err != nil {
			return nil, err
		}
		// The page itself authorizes mirror playback for some hosts.
		res, err := s.player.Resolve(ctx, Reference{MediaID: info.MediaID, URL: rawURL, Referer: rawURL})
		if err != nil {
			return nil, err
		}
		// Page metadata carries the date and guest; when the page yielded
		// no real title, the player's own beats the placeholder.
		meta := info.Meta
		if (meta.Title == "" || meta.Title == defaultTitle) && res.Meta.Title != "" {
			meta.Title = res.Meta.Title
		}
		res.Meta = meta
		return res, nil
	}
}
