package request

import "github.com/aarifsumra/siesta/cache"

// CacheEntity converts a success outcome into a cache entity carrying the raw
// payload. It returns false for failures and cancellations, which are never
// cached.
func (o Outcome) CacheEntity() (cache.Entity[[]byte], bool) {
	if o.kind != OutcomeSuccess {
		return cache.Entity[[]byte]{}, false
	}
	e := cache.NewEntity(o.payload, o.meta.Headers)
	e.Charset = o.meta.Charset
	return e, true
}
