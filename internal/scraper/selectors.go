package scraper

import (
	"fmt"
	"strings"
)

// Selectors holds every structural marker the scraper relies on. A change in
// the remote markup should only need an update here (or in config).
type Selectors struct {
	Section           string   `mapstructure:"section"`
	SectionChild      string   `mapstructure:"section_child"`
	SectionChildIndex int      `mapstructure:"section_child_index"`
	Title             []string `mapstructure:"title"`
	Date              string   `mapstructure:"date"`
	Rating            string   `mapstructure:"rating"`
	Plot              string   `mapstructure:"plot"`
	CatalogContainer  string   `mapstructure:"catalog_container"`
	CatalogList       string   `mapstructure:"catalog_list"`
	CatalogItem       string   `mapstructure:"catalog_item"`
	CatalogLink       string   `mapstructure:"catalog_link"`
}

// DefaultSelectors matches the current chart and title page markup.
func DefaultSelectors() Selectors {
	return Selectors{
		Section:           "section.ipc-page-section",
		SectionChild:      "div",
		SectionChildIndex: 1,
		Title:             []string{"h1", "span"},
		Date:              `a[href*="releaseinfo"]`,
		Rating:            `div[data-testid="hero-rating-bar__aggregate-rating__score"]`,
		Plot:              `span[data-testid="plot-xs_to_m"]`,
		CatalogContainer:  `div[data-testid="chart-layout-main-column"]`,
		CatalogList:       "ul",
		CatalogItem:       "li",
		CatalogLink:       "a",
	}
}

// Validate rejects empty selectors.
func (s Selectors) Validate() error {
	required := map[string]string{
		"selectors.section":           s.Section,
		"selectors.section_child":     s.SectionChild,
		"selectors.date":              s.Date,
		"selectors.rating":            s.Rating,
		"selectors.plot":              s.Plot,
		"selectors.catalog_container": s.CatalogContainer,
		"selectors.catalog_list":      s.CatalogList,
		"selectors.catalog_item":      s.CatalogItem,
		"selectors.catalog_link":      s.CatalogLink,
	}
	for key, value := range required {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%s must be set", key)
		}
	}
	if len(s.Title) == 0 {
		return fmt.Errorf("selectors.title must include at least one selector")
	}
	if s.SectionChildIndex < 0 {
		return fmt.Errorf("selectors.section_child_index must be >= 0")
	}
	return nil
}

// Scope says where a field rule starts its lookup.
type Scope int

const (
	// ScopeSection starts from the selected child of the main content section.
	ScopeSection Scope = iota
	// ScopeDocument starts from the document root.
	ScopeDocument
)

// FieldRule extracts one named value. Path is applied step by step, taking
// the first match at each step.
type FieldRule struct {
	Name  string
	Scope Scope
	Path  []string
	Trim  bool
}

// Extract applies the rule. found is false when any step of the path has no match.
func (f FieldRule) Extract(document, section Node) (value string, found bool) {
	node := section
	if f.Scope == ScopeDocument {
		node = document
	}
	if node == nil {
		return "", false
	}
	for _, sel := range f.Path {
		next, ok := node.Locate(sel)
		if !ok {
			return "", false
		}
		node = next
	}
	value = node.Text()
	if f.Trim {
		value = strings.TrimSpace(value)
	}
	return value, true
}

// Field names, in Header order.
const (
	FieldTitle  = "title"
	FieldDate   = "date"
	FieldRating = "rating"
	FieldPlot   = "plot"
)

// Fields builds the four field rules in Header order.
func (s Selectors) Fields() []FieldRule {
	return []FieldRule{
		{Name: FieldTitle, Scope: ScopeSection, Path: append([]string(nil), s.Title...)},
		{Name: FieldDate, Scope: ScopeSection, Path: []string{s.Date}, Trim: true},
		{Name: FieldRating, Scope: ScopeDocument, Path: []string{s.Rating}},
		{Name: FieldPlot, Scope: ScopeDocument, Path: []string{s.Plot}, Trim: true},
	}
}
