package cache

import (
	"net/url"
	"strings"
)

// DefaultNamespace prefixes every cache key.
const DefaultNamespace = "cotd"

// CacheKey identifies a cached player resolution.
type CacheKey struct {
	// Namespace is the key prefix (default "cotd").
	Namespace string

	// Host is the API host the resolution came from.
	Host string

	// Name is the player query exactly as typed.
	Name string
}

// String generates a deterministic cache key string.
// Format: namespace:player:host:escaped-name
//
// Example:
//
//	cotd:player:trackmania.io:Wirtual
func (k CacheKey) String() string {
	namespace := strings.Trim(k.Namespace, ":")
	if namespace == "" {
		namespace = DefaultNamespace
	}

	parts := []string{namespace, "player"}
	if k.Host != "" {
		parts = append(parts, strings.ToLower(k.Host))
	}
	parts = append(parts, url.QueryEscape(k.Name))

	return strings.Join(parts, ":")
}
