// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"strings"

	"github.com/toeirei/keymaster-blacklist/internal/model"
)

// FilterEntriesByTokens returns the subset of `entries` that match all tokens.
// Matching is case-insensitive and tests the value (fingerprint prefix or
// substring) and the descriptive data. If `tokens` is nil or empty, the
// original slice is returned.
func FilterEntriesByTokens(entries []model.BlacklistEntry, tokens []string) []model.BlacklistEntry {
	if len(tokens) == 0 {
		return entries
	}
	out := make([]model.BlacklistEntry, 0, len(entries))
	for _, e := range entries {
		value := strings.ToLower(e.Value)
		data := strings.ToLower(e.Data)

		matchedAll := true
		for _, tok := range tokens {
			tok = strings.ToLower(strings.TrimSpace(tok))
			if tok == "" {
				continue
			}
			if !strings.Contains(value, tok) && !strings.Contains(data, tok) {
				matchedAll = false
				break
			}
		}
		if matchedAll {
			out = append(out, e)
		}
	}
	return out
}
