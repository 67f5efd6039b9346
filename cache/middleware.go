package cache

import (
	"context"
	"time"
)

// FillFunc produces a description for an image on a cache miss.
type FillFunc func(ctx context.Context) (string, error)

// Filler wraps caption generation with caching.
type Filler struct {
	store  Store
	keyer  Keyer
	policy Policy
	now    func() time.Time
}

// NewFiller creates a new caching filler. A nil keyer uses ContentKeyer.
func NewFiller(store Store, keyer Keyer, policy Policy) *Filler {
	if keyer == nil {
		keyer = NewContentKeyer()
	}
	return &Filler{store: store, keyer: keyer, policy: policy, now: time.Now}
}

// Policy returns the filler's policy.
func (f *Filler) Policy() Policy {
	return f.policy
}

// Lookup returns the cached description for imageData, if any.
func (f *Filler) Lookup(ctx context.Context, imageData string) (string, bool) {
	if f == nil || f.store == nil || !f.policy.Enabled {
		return "", false
	}
	e, ok := f.store.Get(ctx, f.keyer.Key(imageData))
	if !ok {
		return "", false
	}
	return e.Description, true
}

// GetOrFill returns the cached description for imageData. On a miss it calls
// fill and, when the result passes the policy, stores a copy with control
// characters removed. The value returned from fill is handed back as is.
// Errors from fill are not cached. A store write failure is returned
// alongside the description so the caller can log it.
func (f *Filler) GetOrFill(ctx context.Context, imageData string, fill FillFunc) (desc string, hit bool, err error) {
	if desc, ok := f.Lookup(ctx, imageData); ok {
		return desc, true, nil
	}

	desc, err = fill(ctx)
	if err != nil {
		return desc, false, err
	}
	if f == nil || f.store == nil || !f.policy.Enabled {
		return desc, false, nil
	}
	if !f.policy.Accept(desc) {
		return desc, false, ErrRejected
	}

	e := Entry{
		ContentHash: f.keyer.Key(imageData),
		Description: StripControl(desc),
		CreatedAt:   f.now().UTC(),
	}
	return desc, false, f.store.Put(ctx, e)
}
