package cleaner

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/purelink/purelink/internal/rules"
)

// DefaultMaxParallel bounds concurrent unshortening requests per call.
const DefaultMaxParallel = 4

// Change is one URL the Processor rewrote.
type Change struct {
	Original string `json:"original"`
	Cleaned  string `json:"cleaned"`
}

// Processor rewrites every URL in a piece of text.
type Processor struct {
	Store       *rules.Store
	Resolver    *Resolver
	MaxParallel int
}

// NewProcessor wires a Processor to a rules store and resolver.
func NewProcessor(store *rules.Store, resolver *Resolver) *Processor {
	return &Processor{Store: store, Resolver: resolver, MaxParallel: DefaultMaxParallel}
}

// Process returns text with every URL cleaned. Bytes outside URL spans are
// never touched. Text without URLs is returned as is.
func (p *Processor) Process(ctx context.Context, text string, unshorten bool) string {
	out, _ := p.ProcessDetailed(ctx, text, unshorten)
	return out
}

// ProcessDetailed is Process plus the list of URLs that actually changed,
// in order of first appearance.
func (p *Processor) ProcessDetailed(ctx context.Context, text string, unshorten bool) (string, []Change) {
	matches := Extract(text)
	if len(matches) == 0 {
		return text, nil
	}
	pattern := p.Store.Pattern()

	// Distinct URLs in order of first appearance.
	var distinct []string
	seen := make(map[string]int, len(matches))
	for _, m := range matches {
		if _, ok := seen[m.URL]; !ok {
			seen[m.URL] = len(distinct)
			distinct = append(distinct, m.URL)
		}
	}

	cleaned := make([]string, len(distinct))
	copy(cleaned, distinct)

	if unshorten && p.Resolver != nil {
		p.resolveAll(ctx, cleaned)
	}

	var changes []Change
	for i, u := range cleaned {
		cleaned[i] = Normalize(u, pattern)
		if cleaned[i] != distinct[i] {
			changes = append(changes, Change{Original: distinct[i], Cleaned: cleaned[i]})
		}
	}
	if len(changes) == 0 {
		return text, nil
	}

	var b strings.Builder
	b.Grow(len(text))
	last := 0
	for _, m := range matches {
		b.WriteString(text[last:m.Start])
		b.WriteString(cleaned[seen[m.URL]])
		last = m.End
	}
	b.WriteString(text[last:])
	return b.String(), changes
}

// resolveAll replaces each entry of urls with its resolved form, running at
// most MaxParallel requests at once.
func (p *Processor) resolveAll(ctx context.Context, urls []string) {
	limit := p.MaxParallel
	if limit <= 0 {
		limit = DefaultMaxParallel
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i := range urls {
		g.Go(func() error {
			urls[i] = p.Resolver.Resolve(gctx, urls[i])
			return nil
		})
	}
	_ = g.Wait()
}
