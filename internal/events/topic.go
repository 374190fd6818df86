package events

import (
	"strings"

	"github.com/samber/lo"
)

// Match reports whether a routing key matches a binding pattern. Words are separated
// by dots; "*" stands for exactly one word and "#" for zero or more words.
func Match(pattern, key string) bool {
	return matchWords(strings.Split(pattern, "."), strings.Split(key, "."))
}

func matchWords(pattern, key []string) bool {
	for len(pattern) > 0 {
		switch pattern[0] {
		case "#":
			rest := pattern[1:]
			for i := 0; i <= len(key); i++ {
				if matchWords(rest, key[i:]) {
					return true
				}
			}
			return false
		case "*":
			if len(key) == 0 {
				return false
			}
		default:
			if len(key) == 0 || key[0] != pattern[0] {
				return false
			}
		}
		pattern, key = pattern[1:], key[1:]
	}
	return len(key) == 0
}

// Resolve returns the routing keys of the vocabulary matched by any of the patterns.
func Resolve(patterns []string) []string {
	keys := lo.FilterMap(Kinds(), func(k Kind, _ int) (string, bool) {
		return k.RoutingKey(), lo.SomeBy(patterns, func(p string) bool {
			return Match(p, k.RoutingKey())
		})
	})
	return lo.Uniq(keys)
}
