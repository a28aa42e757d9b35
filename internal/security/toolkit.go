package security

import "time"

// Toolkit bundles the capability-selected strategies and a clock.
type Toolkit struct {
	random RandomSource
	digest DigestProvider
	now    func() time.Time
}

// Option customizes a Toolkit.
type Option func(*Toolkit)

// WithRandomSource overrides the probed random source.
func WithRandomSource(r RandomSource) Option {
	return func(k *Toolkit) { k.random = r }
}

// WithDigestProvider overrides the probed digest provider.
func WithDigestProvider(d DigestProvider) Option {
	return func(k *Toolkit) { k.digest = d }
}

// WithClock replaces time.Now for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(k *Toolkit) { k.now = now }
}

// New selects strategies once and applies opts.
func New(opts ...Option) *Toolkit {
	k := &Toolkit{now: time.Now}
	for _, opt := range opts {
		opt(k)
	}
	if k.random == nil {
		k.random = SelectRandomSource()
	}
	if k.digest == nil {
		k.digest = SelectDigestProvider()
	}
	return k
}

// Now returns the toolkit clock's current time.
func (k *Toolkit) Now() time.Time {
	return k.now()
}
