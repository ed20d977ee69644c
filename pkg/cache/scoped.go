package cache

import "strings"

// Scoped returns a keyer whose keys start with the scope parts joined by
// ":", so entries from different API hosts or tenants sharing one cache
// never collide. Empty parts are skipped; a nil inner means the default
// keyer.
//
//	k := cache.Scoped(nil, "api", "gallery.example.com")
//	k.HTTPKey("gallery", "page=2") // "api:gallery.example.com:http:gallery:page=2"
func Scoped(inner Keyer, parts ...string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	var nonEmpty []string
	for _, p := range parts {
		if p = strings.Trim(p, ":"); p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	if len(nonEmpty) == 0 {
		return inner
	}
	return scopedKeyer{inner: inner, prefix: strings.Join(nonEmpty, ":") + ":"}
}

type scopedKeyer struct {
	inner  Keyer
	prefix string
}

func (k scopedKeyer) HTTPKey(namespace, key string) string {
	return k.prefix + k.inner.HTTPKey(namespace, key)
}

func (k scopedKeyer) PageKey(source, token string) string {
	return k.prefix + k.inner.PageKey(source, token)
}

func (k scopedKeyer) LayoutKey(itemsHash string, opts LayoutKeyOpts) string {
	return k.prefix + k.inner.LayoutKey(itemsHash, opts)
}

func (k scopedKeyer) ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.ArtifactKey(layoutHash, opts)
}
