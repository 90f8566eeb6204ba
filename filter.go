// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/xp3

package xp3

import (
	"fmt"
	"strings"

	"github.com/woozymasta/pathrules"
)

// selectMatcher holds compiled include/exclude rules for entry selection.
type selectMatcher struct {
	matcher *pathrules.Matcher
}

// newSelectMatcher compiles entry selection path rules.
// A nil result means no selection filter is active.
func newSelectMatcher(rules []pathrules.Rule, opts pathrules.MatcherOptions) (*selectMatcher, error) {
	rules = normalizeSelectRules(rules)
	if len(rules) == 0 {
		return nil, nil
	}

	if opts == (pathrules.MatcherOptions{}) {
		opts = pathrules.MatcherOptions{DefaultAction: pathrules.ActionExclude}
	}

	matcher, err := pathrules.NewMatcher(rules, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: compile rules: %w", ErrInvalidSelectPattern, err)
	}

	return &selectMatcher{matcher: matcher}, nil
}

// normalizeSelectRules normalizes rule patterns and drops empty patterns.
func normalizeSelectRules(rules []pathrules.Rule) []pathrules.Rule {
	normalized := make([]pathrules.Rule, 0, len(rules))
	for _, rule := range rules {
		pattern := normalizePathForMatching(rule.Pattern)
		if pattern == "" {
			continue
		}

		normalized = append(normalized, pathrules.Rule{
			Action:  rule.Action,
			Pattern: pattern,
		})
	}

	return normalized
}

// Match reports whether entry name is included by the selection rules.
func (m *selectMatcher) Match(name string) bool {
	if m == nil || m.matcher == nil {
		return true
	}

	candidate := NormalizePath(name)
	if candidate == "" {
		return false
	}

	return m.matcher.Included(candidate, false)
}

// filterEntriesByMatcher keeps entries included by the compiled selection rules.
func filterEntriesByMatcher(entries []EntryInfo, m *selectMatcher) []EntryInfo {
	if m == nil {
		return entries
	}

	out := make([]EntryInfo, 0, len(entries))
	for _, entry := range entries {
		if !m.Match(entry.Path) {
			continue
		}

		out = append(out, entry)
	}

	return out
}

// filterEntriesBySize keeps entries that satisfy min original and stored size thresholds.
func filterEntriesBySize(entries []EntryInfo, minOriginalSize, minStoredSize uint64) []EntryInfo {
	if minOriginalSize == 0 && minStoredSize == 0 {
		return entries
	}

	out := make([]EntryInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.OriginalSize < minOriginalSize {
			continue
		}

		if entry.StoredSize < minStoredSize {
			continue
		}

		out = append(out, entry)
	}

	return out
}

// filterEntriesByPrefix keeps entries under prefix (or exact match if it points to a file).
func filterEntriesByPrefix(entries []EntryInfo, prefix string) []EntryInfo {
	prefix = NormalizePath(prefix)
	if prefix == "" {
		return entries
	}

	normalizedPrefix := prefix + "/"
	out := make([]EntryInfo, 0, len(entries))
	for _, entry := range entries {
		entryPath := NormalizePath(entry.Path)
		if entryPath == prefix || strings.HasPrefix(entryPath, normalizedPrefix) {
			out = append(out, entry)
		}
	}

	return out
}
