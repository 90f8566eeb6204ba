// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/xp3

package xp3

import (
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// maxSanitizedSegmentLen limits one path segment to common filesystem-safe length.
	maxSanitizedSegmentLen = 240
	// sanitizedPlaceholder replaces segments that sanitize to nothing.
	sanitizedPlaceholder = "_"
)

// reservedDeviceNames contains case-insensitive reserved Windows device names.
// XP3 names come from game scripts and can collide with these on extraction.
var reservedDeviceNames = map[string]struct{}{
	"aux": {}, "clock$": {}, "con": {}, "nul": {}, "prn": {},
	"com1": {}, "com2": {}, "com3": {}, "com4": {}, "com5": {},
	"com6": {}, "com7": {}, "com8": {}, "com9": {},
	"lpt1": {}, "lpt2": {}, "lpt3": {}, "lpt4": {}, "lpt5": {},
	"lpt6": {}, "lpt7": {}, "lpt8": {}, "lpt9": {},
}

// SanitizePath rewrites one archive name to deterministic filesystem-safe
// slash-separated form.
func SanitizePath(pathValue string) (string, error) {
	normalizedPath := NormalizePath(pathValue)
	if normalizedPath == "" {
		return "", nil
	}

	sanitized, err := sanitizeRelativePath(normalizedPath)
	if err != nil {
		return "", err
	}

	if _, err := normalizeExtractEntryPath(sanitized); err != nil {
		return "", err
	}

	return sanitized, nil
}

// sanitizeEntryInfoPaths rewrites entry paths to deterministic filesystem-safe names.
// Collisions after sanitization get numeric suffixes in table order.
func sanitizeEntryInfoPaths(entries []EntryInfo) ([]EntryInfo, error) {
	out := make([]EntryInfo, len(entries))
	used := make(map[string]struct{}, len(entries))
	nextSuffix := make(map[string]int, len(entries))

	for i := range entries {
		relativePath := entries[i].Path
		normalizedPath, err := normalizeExtractEntryPath(relativePath)
		if err == nil {
			relativePath = normalizedPath
		} else {
			// Keep sanitize resilient for mangled names: convert slash style
			// and sanitize segment-by-segment instead of failing hard.
			relativePath = strings.ReplaceAll(relativePath, `\`, `/`)
		}

		sanitized, err := sanitizeRelativePath(relativePath)
		if err != nil {
			return nil, fmt.Errorf("sanitize entry %q: %w", entries[i].Path, err)
		}

		unique, err := makeSanitizedPathUnique(sanitized, used, nextSuffix)
		if err != nil {
			return nil, fmt.Errorf("sanitize entry %q: %w", entries[i].Path, err)
		}

		out[i] = entries[i]
		out[i].Path = unique
	}

	return out, nil
}

// sanitizeRelativePath sanitizes each segment of a relative slash-separated path.
func sanitizeRelativePath(relativePath string) (string, error) {
	parts := strings.Split(relativePath, "/")
	sanitizedParts := make([]string, 0, len(parts))

	for _, part := range parts {
		if part == "" || part == "." {
			continue
		}
		if part == ".." {
			return "", ErrInvalidExtractPath
		}

		sanitized := sanitizePathSegment(part)
		if sanitized == "" {
			sanitized = sanitizedPlaceholder
		}

		sanitizedParts = append(sanitizedParts, sanitized)
	}

	if len(sanitizedParts) == 0 {
		return "", ErrInvalidExtractPath
	}

	return strings.Join(sanitizedParts, "/"), nil
}

// sanitizePathSegment rewrites one path segment to filesystem-safe characters.
func sanitizePathSegment(segment string) string {
	var b strings.Builder
	b.Grow(len(segment))

	for _, r := range segment {
		switch {
		case r < 0x20 || r == 0x7F:
			b.WriteByte('_')
		case strings.ContainsRune(`<>:"|?*`, r):
			b.WriteByte('_')
		case unicode.IsSpace(r) && r != ' ':
			b.WriteByte('_')
		default:
			b.WriteRune(r)
		}
	}

	out := strings.Trim(b.String(), " .")
	if isReservedDeviceName(out) {
		out += "_"
	}

	if len(out) > maxSanitizedSegmentLen {
		out = shortenSegmentDeterministic(out, maxSanitizedSegmentLen)
	}

	return out
}

// isReservedDeviceName reports whether name (without extension) is a reserved device name.
func isReservedDeviceName(name string) bool {
	base := name
	if dot := strings.IndexByte(base, '.'); dot >= 0 {
		base = base[:dot]
	}

	_, reserved := reservedDeviceNames[strings.ToLower(base)]
	return reserved
}

// makeSanitizedPathUnique appends deterministic numeric suffixes on collisions.
func makeSanitizedPathUnique(pathValue string, used map[string]struct{}, nextSuffix map[string]int) (string, error) {
	if _, exists := used[pathValue]; !exists {
		used[pathValue] = struct{}{}
		return pathValue, nil
	}

	for n := nextSuffix[pathValue] + 1; ; n++ {
		candidate := withNumericSuffix(pathValue, n)
		if _, exists := used[candidate]; !exists {
			nextSuffix[pathValue] = n
			used[candidate] = struct{}{}
			return candidate, nil
		}
	}
}

// withNumericSuffix inserts a numeric suffix before the extension of the last segment.
func withNumericSuffix(name string, n int) string {
	dir := ""
	base := name
	if slash := strings.LastIndexByte(name, '/'); slash >= 0 {
		dir = name[:slash+1]
		base = name[slash+1:]
	}

	ext := ""
	if dot := strings.LastIndexByte(base, '.'); dot > 0 {
		ext = base[dot:]
		base = base[:dot]
	}

	return dir + base + "_" + strconv.Itoa(n) + ext
}

// shortenSegmentDeterministic truncates a segment keeping a stable hash suffix.
func shortenSegmentDeterministic(value string, maxLen int) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(value))
	suffix := "~" + strconv.FormatUint(uint64(h.Sum32()), 16)

	keep := maxLen - len(suffix)
	if keep < 1 {
		return suffix
	}

	// Cut on a rune boundary.
	cut := value
	for len(cut) > keep {
		_, size := utf8.DecodeLastRuneInString(cut)
		cut = cut[:len(cut)-size]
	}

	return cut + suffix
}
