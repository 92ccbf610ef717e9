package cache

import "time"

// Policy configures expiry of stored values. Counters and history lists
// never expire.
type Policy struct {
	// DefaultTTL is applied to every stored value. Zero means values live
	// until the store is flushed or evicts them.
	DefaultTTL time.Duration

	// MaxTTL clamps DefaultTTL. Zero means no maximum.
	MaxTTL time.Duration
}

// DefaultPolicy keeps values until the store is flushed.
func DefaultPolicy() Policy {
	return Policy{}
}

// ExpiringPolicy expires values after ttl.
func ExpiringPolicy(ttl time.Duration) Policy {
	return Policy{DefaultTTL: ttl}
}

// Expires reports whether stored values get a TTL.
func (p Policy) Expires() bool {
	return p.EffectiveTTL() > 0
}

// EffectiveTTL returns DefaultTTL clamped to MaxTTL. Negative values mean no
// expiry.
func (p Policy) EffectiveTTL() time.Duration {
	ttl := p.DefaultTTL
	if ttl <= 0 {
		return 0
	}
	if p.MaxTTL > 0 && ttl > p.MaxTTL {
		ttl = p.MaxTTL
	}
	return ttl
}
