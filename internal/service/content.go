// Package service implements the application's domain logic on top of the
// repository layer: the engagement engine, timeline assembly, notification
// inbox, trend aggregation, search, and media handling.
package service

import (
	"context"
	"regexp"
	"strings"
)

// hashtagPattern matches '#' followed by a run of Unicode letters, numbers,
// or underscores.
var hashtagPattern = regexp.MustCompile(`#([\p{L}\p{N}_]+)`)

// mentionPattern matches '@' followed by a username-shaped token. Username
// format is enforced at registration, so anything longer or differently
// shaped can never resolve.
var mentionPattern = regexp.MustCompile(`@([A-Za-z0-9_]{3,20})`)

// UsernameResolver resolves a username to a user id. It returns 0 when no
// such user exists; errors are reserved for store failures.
type UsernameResolver func(ctx context.Context, username string) (uint, error)

// DeriveHashtagsAndMentions extracts the hashtags and resolved mentions from
// tweet content. Hashtags are lower-cased and deduplicated preserving first
// occurrence, so "#Test123 #test123" yields ["test123"]. Mention tokens that
// resolve to no user are dropped silently; duplicates resolve once.
func DeriveHashtagsAndMentions(ctx context.Context, content string, resolve UsernameResolver) ([]string, []uint, error) {
	var hashtags []string
	seenTags := make(map[string]struct{})
	for _, m := range hashtagPattern.FindAllStringSubmatch(content, -1) {
		tag := strings.ToLower(m[1])
		if _, ok := seenTags[tag]; ok {
			continue
		}
		seenTags[tag] = struct{}{}
		hashtags = append(hashtags, tag)
	}

	var mentions []uint
	seenUsers := make(map[uint]struct{})
	seenNames := make(map[string]struct{})
	for _, m := range mentionPattern.FindAllStringSubmatch(content, -1) {
		username := m[1]
		if _, ok := seenNames[username]; ok {
			continue
		}
		seenNames[username] = struct{}{}

		userID, err := resolve(ctx, username)
		if err != nil {
			return nil, nil, err
		}
		if userID == 0 {
			continue
		}
		if _, ok := seenUsers[userID]; ok {
			continue
		}
		seenUsers[userID] = struct{}{}
		mentions = append(mentions, userID)
	}

	return hashtags, mentions, nil
}
