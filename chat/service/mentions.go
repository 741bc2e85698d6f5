package service

import (
	"regexp"
	"strings"
)

var mentionPattern = regexp.MustCompile(`@([A-Za-z0-9_-]+)`)

// ParseMentions scans an utterance for @provider tokens against the known
// provider set. It returns the mentioned provider ids in order of first
// appearance, deduplicated, and whether any mention was recognized at all.
//
// The reserved @user token counts as a recognized mention but never yields a
// target: an utterance mentioning only @user routes to no provider rather
// than falling back to the session's selection.
func ParseMentions(content string, known func(string) bool) ([]string, bool) {
	var targets []string
	seen := make(map[string]bool)
	mentioned := false

	for _, match := range mentionPattern.FindAllStringSubmatch(content, -1) {
		id := strings.ToLower(match[1])
		if id == "user" {
			mentioned = true
			continue
		}
		if !known(id) {
			continue
		}
		mentioned = true
		if !seen[id] {
			seen[id] = true
			targets = append(targets, id)
		}
	}

	return targets, mentioned
}
