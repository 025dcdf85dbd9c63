package cache

import "context"

// Typed is Request for generators of a single record type T. The kind is
// taken from def, so T's Kind method must work on def (including a nil pointer).
func Typed[T Record](ctx context.Context, c *Cache, name, fingerprint string, gen func(context.Context, string) (T, error), def T) T {
	rec := c.Request(ctx, name, fingerprint, def.Kind(), func(ctx context.Context, name string) (Record, error) {
		v, err := gen(ctx, name)
		if err != nil {
			return nil, err
		}
		return v, nil
	}, def)
	if v, ok := rec.(T); ok {
		return v
	}
	return def
}
