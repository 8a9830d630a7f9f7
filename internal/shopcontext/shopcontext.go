// Package shopcontext carries the authenticated shop domain through request
// contexts.
package shopcontext

import (
	"context"
	"regexp"
	"strings"
)

type shopKey struct{}

var shopDomain = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*\.myshopify\.com$`)

// Normalize lowercases shop and reports whether it is a well-formed
// myshopify domain.
func Normalize(shop string) (string, bool) {
	shop = strings.ToLower(strings.TrimSpace(shop))
	return shop, shopDomain.MatchString(shop)
}

func WithShop(ctx context.Context, shop string) context.Context {
	return context.WithValue(ctx, shopKey{}, shop)
}

func ShopFromContext(ctx context.Context) (string, bool) {
	shop, ok := ctx.Value(shopKey{}).(string)
	return shop, ok && shop != ""
}
