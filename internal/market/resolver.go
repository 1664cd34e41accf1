package market

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"localnews/internal/model"
)

// Locator turns a place name into coordinates. A false result is a miss,
// whatever the cause.
type Locator interface {
	Lookup(ctx context.Context, place string) (model.Point, bool)
}

// Resolver assigns a market to a location string. It never fails: every
// input maps to a market name or AtLarge.
type Resolver struct {
	markets []Market
	aliases map[string]string
	radius  float64
	locator Locator
	log     *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithMarkets replaces the built-in market list.
func WithMarkets(markets []Market) Option {
	return func(r *Resolver) { r.markets = markets }
}

// WithAliases replaces the built-in alias table. Keys are matched
// case-insensitively.
func WithAliases(aliases map[string]string) Option {
	return func(r *Resolver) { r.aliases = aliases }
}

// WithRadius sets the inclusive market radius in miles.
func WithRadius(miles float64) Option {
	return func(r *Resolver) { r.radius = miles }
}

// WithLogger sets the logger used for resolution traces.
func WithLogger(log *slog.Logger) Option {
	return func(r *Resolver) { r.log = log }
}

// NewResolver creates a Resolver over the built-in Kansas markets. locator
// may be nil, in which case the geocoding tier is skipped.
func NewResolver(locator Locator, opts ...Option) *Resolver {
	r := &Resolver{
		markets: Default(),
		aliases: DefaultAliases(),
		radius:  DefaultRadius,
		locator: locator,
		log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}

	normalized := make(map[string]string, len(r.aliases))
	for k, v := range r.aliases {
		normalized[normalize(k)] = v
	}
	r.aliases = normalized
	return r
}

// Markets returns the markets the resolver chooses from, in display order.
func (r *Resolver) Markets() []Market {
	return r.markets
}

// Resolve returns the market for location. Tiers, first match wins: alias
// table, exact market name, nearest anchor of the geocoded point within the
// radius, market name contained in the input.
func (r *Resolver) Resolve(ctx context.Context, location string) string {
	loc := normalize(location)
	if loc == "" {
		return AtLarge
	}

	if name, ok := r.aliases[loc]; ok {
		return name
	}

	for _, m := range r.markets {
		if strings.ToLower(m.Name) == loc {
			return m.Name
		}
	}

	if r.locator != nil {
		if p, ok := r.locator.Lookup(ctx, loc); ok {
			nearest, miles, found := Nearest(r.markets, p)
			if found && miles <= r.radius {
				r.log.Debug("resolved by distance", "location", loc, "market", nearest.Name, "miles", miles)
				return nearest.Name
			}
			r.log.Debug("outside market radius", "location", loc, "miles", miles)
			return AtLarge
		}
	}

	for _, m := range r.markets {
		if strings.Contains(loc, strings.ToLower(m.Name)) {
			return m.Name
		}
	}
	return AtLarge
}

// ResolveOptional resolves a location that may be absent. Nil resolves to
// AtLarge.
func (r *Resolver) ResolveOptional(ctx context.Context, location *string) string {
	if location == nil {
		return AtLarge
	}
	return r.Resolve(ctx, *location)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
