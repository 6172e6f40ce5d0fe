package cache

// ScopedKeyer wraps a Keyer with a prefix so several charts or users can
// share one backend without colliding.
//
// Example usage:
//
//	serverKeyer := NewScopedKeyer(NewDefaultKeyer(), "chart:"+chartUUID+":")
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

// ReplayKey generates a prefixed replay key.
func (k *ScopedKeyer) ReplayKey(snapshotHash, messagesHash string, opts ReplayKeyOpts) string {
	return k.prefix + k.inner.ReplayKey(snapshotHash, messagesHash, opts)
}

// RenderKey generates a prefixed render key.
func (k *ScopedKeyer) RenderKey(snapshotHash string, opts RenderKeyOpts) string {
	return k.prefix + k.inner.RenderKey(snapshotHash, opts)
}
