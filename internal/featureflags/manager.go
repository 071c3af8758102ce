// Package featureflags evaluates the FEATURE_FLAGS setting.
//
// The setting is a comma separated list of name=rule pairs, for example
// "captcha=on,notifications=25%". A rule is on/true/1, off/false/0 or a
// percentage rolled out deterministically by user id.
package featureflags

import (
	"hash/fnv"
	"strconv"
	"strings"
)

type rule struct {
	raw     string
	percent int // 0..100
}

func parseRule(value string) (rule, bool) {
	switch value {
	case "on", "true", "1":
		return rule{raw: value, percent: 100}, true
	case "off", "false", "0":
		return rule{raw: value, percent: 0}, true
	}
	pct, found := strings.CutSuffix(value, "%")
	if !found {
		return rule{}, false
	}
	n, err := strconv.Atoi(pct)
	if err != nil {
		return rule{}, false
	}
	return rule{raw: value, percent: min(max(n, 0), 100)}, true
}

// Manager holds parsed flags. A nil Manager reports every flag off.
type Manager struct {
	rules map[string]rule
}

// NewManager parses raw. Malformed pairs are ignored.
func NewManager(raw string) *Manager {
	rules := make(map[string]rule)
	for pair := range strings.SplitSeq(raw, ",") {
		name, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		name, value = normalize(name), normalize(value)
		if name == "" {
			continue
		}
		if r, ok := parseRule(value); ok {
			rules[name] = r
		}
	}
	return &Manager{rules: rules}
}

// Enabled reports whether name is on for userID. Partial rollouts are off
// for anonymous callers (userID 0).
func (m *Manager) Enabled(name string, userID uint) bool {
	if m == nil {
		return false
	}
	r, ok := m.rules[normalize(name)]
	if !ok {
		return false
	}
	switch r.percent {
	case 0:
		return false
	case 100:
		return true
	}
	if userID == 0 {
		return false
	}
	return bucket(normalize(name), userID) < r.percent
}

// Raw returns the configured rules as written.
func (m *Manager) Raw() map[string]string {
	out := make(map[string]string)
	if m == nil {
		return out
	}
	for name, r := range m.rules {
		out[name] = r.raw
	}
	return out
}

// Snapshot evaluates every configured flag for userID.
func (m *Manager) Snapshot(userID uint) map[string]bool {
	out := make(map[string]bool)
	if m == nil {
		return out
	}
	for name := range m.rules {
		out[name] = m.Enabled(name, userID)
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func bucket(name string, userID uint) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(name + ":" + strconv.FormatUint(uint64(userID), 10)))
	return int(h.Sum32() % 100)
}
