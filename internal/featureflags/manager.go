// Package featureflags evaluates the runtime flags that gate optional
// behavior: realtime trend pushes (trends_push) and impression counting on
// timeline reads (impression_tracking).
package featureflags

import (
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"
)

// Manager holds the parsed FEATURE_FLAGS config value, a comma-separated
// key=value list such as "trends_push=on,impression_tracking=25%".
type Manager struct {
	flags map[string]string
}

// NewManager parses the config string. Malformed pairs are skipped rather
// than rejected, so one bad entry cannot take down the whole flag set.
func NewManager(raw string) *Manager {
	return &Manager{flags: parseFlags(raw)}
}

func parseFlags(raw string) map[string]string {
	out := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		key, value = normalize(key), normalize(value)
		if key == "" || value == "" {
			continue
		}
		out[key] = value
	}
	return out
}

// Enabled evaluates a flag for one user. Values are on/true/1, off/false/0,
// or "N%" for a deterministic per-user rollout: the same user always lands in
// the same bucket, so a 25% trends_push rollout doesn't flicker between
// requests. Unknown flags and unknown values are off.
func (m *Manager) Enabled(name string, userID uint) bool {
	if m == nil {
		return false
	}

	value, ok := m.flags[normalize(name)]
	if !ok {
		return false
	}

	switch value {
	case "on", "true", "1":
		return true
	case "off", "false", "0":
		return false
	}

	if pctRaw, found := strings.CutSuffix(value, "%"); found {
		pct, err := strconv.Atoi(pctRaw)
		if err != nil || pct <= 0 {
			return false
		}
		if pct >= 100 {
			return true
		}
		// Anonymous traffic has no stable bucket; keep rollouts off for it.
		if userID == 0 {
			return false
		}
		return bucketFor(name, userID) < pct
	}

	return false
}

// Raw returns a copy of the configured flag values, for the admin endpoint.
func (m *Manager) Raw() map[string]string {
	out := make(map[string]string, len(m.flags))
	for k, v := range m.flags {
		out[k] = v
	}
	return out
}

// Snapshot evaluates every flag for one user, for the admin endpoint.
func (m *Manager) Snapshot(userID uint) map[string]bool {
	out := make(map[string]bool, len(m.flags))
	for name := range m.flags {
		out[name] = m.Enabled(name, userID)
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// bucketFor maps (flag, user) onto [0,100). Hashing the pair rather than the
// user alone keeps one user's rollout membership independent across flags.
func bucketFor(name string, userID uint) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(fmt.Sprintf("%s:%d", normalize(name), userID)))
	return int(h.Sum32() % 100)
}
