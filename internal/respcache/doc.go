// Package respcache persists generated responses in a standalone SQLite
// database so identical generation requests within the TTL window reuse the
// prior result instead of calling the provider again. Storage failures are
// never fatal to callers: lookups degrade to a miss.
package respcache
