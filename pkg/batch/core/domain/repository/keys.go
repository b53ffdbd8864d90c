package repository

import "strings"

// JoinKey prefixes key with a namespace. An empty prefix leaves key unchanged.
func JoinKey(prefix, key string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return key
	}
	return prefix + "/" + key
}
