package cache

// ScopedKeyer wraps a Keyer with a prefix. "viastitch serve" uses one scope
// per served board so that several servers can share a Redis instance.
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "board:main:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// PlanKey generates a prefixed plan key.
func (k *ScopedKeyer) PlanKey(fingerprint string, opts PlanKeyOpts) string {
	return k.prefix + k.inner.PlanKey(fingerprint, opts)
}

// PreviewKey generates a prefixed preview key.
func (k *ScopedKeyer) PreviewKey(planKey string, opts PreviewKeyOpts) string {
	return k.prefix + k.inner.PreviewKey(planKey, opts)
}
