package resolver

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/noml-lang/noml-go/pkg/ast"
	"github.com/noml-lang/noml-go/pkg/errs"
	"github.com/noml-lang/noml-go/pkg/parser"
	"github.com/noml-lang/noml-go/pkg/telemetry"
	"github.com/noml-lang/noml-go/pkg/value"
)

// ResolveHTTP resolves a document that may include remote files. It first
// scans the tree for distinct HTTP(S) include URLs, fetches each exactly
// once with independent fetches running concurrently, parses the responses,
// and then runs the ordinary synchronous resolve with the parsed documents
// served from the prefetch cache.
func (r *Resolver) ResolveHTTP(ctx context.Context, doc *ast.Document) (value.Value, error) {
	if doc == nil || doc.Root == nil {
		return nil, errs.NewInternalError("resolve called with empty document", nil)
	}

	// Fetched documents can themselves include remote files; keep fetching
	// in rounds until no new URLs appear.
	pending := map[string]struct{}{}
	collectRemoteIncludes(doc.Root, pending)
	for len(pending) > 0 {
		fetched, err := r.prefetch(ctx, pending)
		if err != nil {
			return nil, err
		}
		pending = map[string]struct{}{}
		for _, sub := range fetched {
			collectRemoteIncludes(sub.Root, pending)
		}
		for url := range pending {
			if _, ok := r.httpDocs[url]; ok {
				delete(pending, url)
			}
		}
	}
	return r.Resolve(ctx, doc)
}

func collectRemoteIncludes(n *ast.Node, urls map[string]struct{}) {
	if n == nil {
		return
	}
	switch v := n.Value.(type) {
	case ast.Include:
		if isRemote(v.Path) {
			urls[v.Path] = struct{}{}
		}
	case ast.Table:
		for _, e := range v.Entries {
			collectRemoteIncludes(e.Value, urls)
		}
	case ast.Array:
		for _, el := range v.Elements {
			collectRemoteIncludes(el, urls)
		}
	case ast.FunctionCall:
		for _, a := range v.Args {
			collectRemoteIncludes(a, urls)
		}
	case ast.Native:
		for _, a := range v.Args {
			collectRemoteIncludes(a, urls)
		}
	}
}

// prefetch downloads and parses every URL, filling the cache, and returns
// the documents fetched in this round. A failed or timed-out fetch aborts
// the whole resolution; there are no retries.
func (r *Resolver) prefetch(ctx context.Context, urls map[string]struct{}) ([]*ast.Document, error) {
	client := &http.Client{Timeout: r.opts.HTTPTimeout}
	var mu sync.Mutex
	var fetched []*ast.Document
	g, gctx := errgroup.WithContext(ctx)

	for url := range urls {
		if _, cached := r.httpDocs[url]; cached {
			continue
		}
		g.Go(func() error {
			r.log.Debug().Str("url", url).Msg("fetching remote include")
			fctx, span := r.tracer.StartFetchSpan(gctx, url)
			start := time.Now()
			body, err := fetch(fctx, client, url)
			r.metrics.RecordFetch(time.Since(start), err)
			if err != nil {
				telemetry.RecordError(span, err)
				span.End()
				return errs.NewImportError(url, "fetch failed", err)
			}
			telemetry.RecordSuccess(span)
			span.End()
			sub, err := parser.Parse(body)
			if err != nil {
				return errs.NewImportError(url, "parse failed", err)
			}
			mu.Lock()
			r.httpDocs[url] = sub
			fetched = append(fetched, sub)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return fetched, nil
}

func fetch(ctx context.Context, client *http.Client, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %s", resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}
