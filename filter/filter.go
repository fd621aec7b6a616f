package filter

import (
	"log/slog"
	"regexp"
	"unicode/utf8"

	"github.com/scipunch/readmefeed/config"
	"github.com/scipunch/readmefeed/post"
)

// FilterPipeline applies a series of named filters to posts
type FilterPipeline struct {
	filters map[string]*CompiledFilter
	names   []string
}

// CompiledFilter contains compiled regex patterns for efficient matching
type CompiledFilter struct {
	config          config.Filter
	excludePatterns []*regexp.Regexp
	patterns        []string
}

// NewFilterPipeline compiles the configured filters and activates the named ones
func NewFilterPipeline(filtersConfig map[string]config.Filter, names []string) *FilterPipeline {
	compiled := make(map[string]*CompiledFilter)

	for name, filterCfg := range filtersConfig {
		cf := &CompiledFilter{
			config:          filterCfg,
			excludePatterns: make([]*regexp.Regexp, 0, len(filterCfg.ExcludePatterns)),
		}

		for _, pattern := range filterCfg.ExcludePatterns {
			re, err := regexp.Compile(pattern)
			if err != nil {
				slog.Warn("invalid regex pattern in filter", "filter", name, "pattern", pattern, "error", err)
				continue
			}
			cf.excludePatterns = append(cf.excludePatterns, re)
			cf.patterns = append(cf.patterns, pattern)
		}

		compiled[name] = cf
	}

	return &FilterPipeline{filters: compiled, names: names}
}

// ShouldInclude returns true if the post passes every active filter.
// The second value names the rule that rejected it.
func (fp *FilterPipeline) ShouldInclude(p post.Post) (bool, string) {
	for _, filterName := range fp.names {
		filter, exists := fp.filters[filterName]
		if !exists {
			slog.Warn("filter not found, skipping", "filter_name", filterName)
			continue
		}

		if shouldInclude, reason := applyFilter(p, filter, filterName); !shouldInclude {
			return false, reason
		}
	}

	return true, ""
}

// Apply keeps the posts that pass, preserving order
func (fp *FilterPipeline) Apply(posts []post.Post) []post.Post {
	if len(fp.names) == 0 {
		return posts
	}

	kept := make([]post.Post, 0, len(posts))
	for _, p := range posts {
		if ok, reason := fp.ShouldInclude(p); !ok {
			slog.Debug("post filtered out", "title", p.Title, "reason", reason, "url", p.Link)
			continue
		}
		kept = append(kept, p)
	}
	return kept
}

func applyFilter(p post.Post, filter *CompiledFilter, filterName string) (bool, string) {
	if filter.config.MinTitleLength > 0 && utf8.RuneCountInString(p.Title) < filter.config.MinTitleLength {
		return false, filterName + ":min_title_length"
	}

	for i, pattern := range filter.excludePatterns {
		if pattern.MatchString(p.Title) {
			return false, filterName + ":exclude_pattern[" + filter.patterns[i] + "]"
		}
	}

	return true, ""
}
