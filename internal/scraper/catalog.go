package scraper

import (
	"fmt"

	"go.uber.org/zap"
)

// DiscoverDetailURLs lists the detail page URLs linked from the catalog page,
// in chart order. A missing container or list is ErrCatalogShape; list items
// without a link are skipped.
func DiscoverDetailURLs(catalog Node, baseURL string, sel Selectors, logger *zap.Logger) ([]string, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	container, ok := catalog.Locate(sel.CatalogContainer)
	if !ok {
		return nil, fmt.Errorf("%w: container %q missing", ErrCatalogShape, sel.CatalogContainer)
	}
	list, ok := container.Locate(sel.CatalogList)
	if !ok {
		return nil, fmt.Errorf("%w: list %q missing", ErrCatalogShape, sel.CatalogList)
	}

	items := list.All(sel.CatalogItem)
	urls := make([]string, 0, len(items))
	for i, item := range items {
		link, ok := item.Locate(sel.CatalogLink)
		if !ok {
			logger.Warn("Catalog item has no link", zap.Int("position", i+1))
			continue
		}
		href, ok := link.Attr("href")
		if !ok || href == "" {
			logger.Warn("Catalog link has no href", zap.Int("position", i+1))
			continue
		}
		urls = append(urls, baseURL+href)
	}
	return urls, nil
}
