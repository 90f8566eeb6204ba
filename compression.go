// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/xp3

package xp3

import (
	"bytes"
	"fmt"

	"github.com/klauspost/compress/zlib"
	"github.com/woozymasta/pathrules"
)

// compressMatcher holds compiled allow-list rules for payload compression.
type compressMatcher struct {
	matcher *pathrules.Matcher
}

// newCompressMatcher compiles compression path rules.
func newCompressMatcher(rules []pathrules.Rule, opts pathrules.MatcherOptions) (*compressMatcher, error) {
	rules = normalizeCompressRules(rules)
	if len(rules) == 0 {
		return nil, nil
	}

	matcher, err := pathrules.NewMatcher(rules, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: compile rules: %w", ErrInvalidCompressPattern, err)
	}

	return &compressMatcher{matcher: matcher}, nil
}

// normalizeCompressRules normalizes rule patterns and drops empty patterns.
func normalizeCompressRules(rules []pathrules.Rule) []pathrules.Rule {
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

// Match reports whether path is included by at least one compress rule.
func (m *compressMatcher) Match(path string) bool {
	if m == nil || m.matcher == nil {
		return false
	}

	candidate := NormalizePath(path)
	if candidate == "" {
		return false
	}

	return m.matcher.Included(candidate, false)
}

// shouldCompressBySize reports whether payload size fits compression boundaries.
func shouldCompressBySize(opts PackOptions, size uint64) bool {
	if size > opts.MaxCompressSize || size < opts.MinCompressSize {
		return false
	}

	return true
}

// deflate compresses data with zlib at best compression.
func deflate(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
	if err != nil {
		return nil, fmt.Errorf("create zlib writer: %w", err)
	}

	if _, err := zw.Write(data); err != nil {
		return nil, fmt.Errorf("zlib write: %w", err)
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("zlib close: %w", err)
	}

	return buf.Bytes(), nil
}
