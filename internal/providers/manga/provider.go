package manga

import "context"

// Source is the read-only query contract every manga source implements.
// Page byte downloads are not part of the contract; callers resolve a page
// to a fetchable URL and pull the bytes themselves.
type Source interface {
	Info() SourceInfo
	Search(ctx context.Context, query string, page int) ([]Summary, error)
	Details(ctx context.Context, mangaID string) (Details, error)
	Chapters(ctx context.Context, mangaID string) ([]Chapter, error)
	Pages(ctx context.Context, chapterID string) ([]Page, error)
	ResolvePage(ctx context.Context, page Page) (string, error)
}

// Registry holds the configured sources in presentation order.
type Registry struct {
	sources []Source
	byID    map[string]Source
}

func NewRegistry(sources ...Source) *Registry {
	registry := &Registry{byID: make(map[string]Source, len(sources))}
	for _, source := range sources {
		id := source.Info().ID
		if _, exists := registry.byID[id]; exists {
			continue
		}
		registry.sources = append(registry.sources, source)
		registry.byID[id] = source
	}
	return registry
}

func (registry *Registry) List() []SourceInfo {
	infos := make([]SourceInfo, 0, len(registry.sources))
	for _, source := range registry.sources {
		infos = append(infos, source.Info())
	}
	return infos
}

func (registry *Registry) Get(id string) (Source, bool) {
	source, ok := registry.byID[id]
	return source, ok
}
