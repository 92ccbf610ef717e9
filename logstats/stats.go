package logstats

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"

	"golang.org/x/sync/errgroup"
)

// Methods are the HTTP methods reported, in report order.
var Methods = []string{"GET", "POST", "PUT", "PATCH", "DELETE"}

// StatusPath is the path of the health probe counted as a status check.
const StatusPath = "/status"

// DefaultTopIPs is the number of client IPs listed by default.
const DefaultTopIPs = 10

// Sentinel errors.
var (
	ErrNilCollection = errors.New("logstats: collection is nil")
)

// Filter matches documents whose fields equal the given values.
type Filter map[string]string

// Keys returns the filter's field names in sorted order.
func (f Filter) Keys() []string {
	return slices.Sorted(maps.Keys(f))
}

// IPCount is one row of the top IPs aggregation.
type IPCount struct {
	IP    string `bson:"_id"`
	Count int64  `bson:"count"`
}

// Collection is the read-only query surface the report needs.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: methods must honor cancellation/deadlines.
type Collection interface {
	// CountDocuments counts documents matching filter. An empty filter
	// matches every document.
	CountDocuments(ctx context.Context, filter Filter) (int64, error)

	// TopIPs groups documents by ip, counts them, and returns the limit
	// largest groups in descending count order.
	TopIPs(ctx context.Context, limit int) ([]IPCount, error)
}

// MethodCount is the number of requests for one HTTP method.
type MethodCount struct {
	Method string
	Count  int64
}

// Stats is a complete report.
type Stats struct {
	Total        int64
	Methods      []MethodCount
	StatusChecks int64

	// TopIPs is only populated when IPsIncluded is true.
	TopIPs      []IPCount
	IPsIncluded bool
}

// Options controls what Collect queries and how Write formats it.
type Options struct {
	// TopIPs is the number of IPs to list. Zero or less omits the IPs section.
	TopIPs int

	// Indent prefixes every indented line. Default: a tab.
	Indent string
}

// DefaultOptions lists the top ten IPs with tab indentation.
func DefaultOptions() Options {
	return Options{TopIPs: DefaultTopIPs, Indent: "\t"}
}

// Collect runs the report queries. Independent queries run concurrently; the
// first failure cancels the rest and is returned.
func Collect(ctx context.Context, coll Collection, opts Options) (*Stats, error) {
	if coll == nil {
		return nil, ErrNilCollection
	}

	stats := &Stats{
		Methods:     make([]MethodCount, len(Methods)),
		IPsIncluded: opts.TopIPs > 0,
	}
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		n, err := coll.CountDocuments(ctx, Filter{})
		if err != nil {
			return fmt.Errorf("logstats: count logs: %w", err)
		}
		stats.Total = n
		return nil
	})

	for i, method := range Methods {
		g.Go(func() error {
			n, err := coll.CountDocuments(ctx, Filter{"method": method})
			if err != nil {
				return fmt.Errorf("logstats: count method %s: %w", method, err)
			}
			stats.Methods[i] = MethodCount{Method: method, Count: n}
			return nil
		})
	}

	g.Go(func() error {
		n, err := coll.CountDocuments(ctx, Filter{"method": "GET", "path": StatusPath})
		if err != nil {
			return fmt.Errorf("logstats: count status checks: %w", err)
		}
		stats.StatusChecks = n
		return nil
	})

	if stats.IPsIncluded {
		g.Go(func() error {
			ips, err := coll.TopIPs(ctx, opts.TopIPs)
			if err != nil {
				return fmt.Errorf("logstats: top ips: %w", err)
			}
			stats.TopIPs = ips
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return stats, nil
}

// Write prints the report:
//
//	94778 logs
//	Methods:
//		method GET: 93842
//		...
//	47415 status check
//	IPs:
//		172.31.63.67: 15805
//		...
func (s *Stats) Write(w io.Writer, indent string) error {
	if indent == "" {
		indent = "\t"
	}

	ew := &errWriter{w: w}
	ew.printf("%d logs\n", s.Total)
	ew.printf("Methods:\n")
	for _, m := range s.Methods {
		ew.printf("%smethod %s: %d\n", indent, m.Method, m.Count)
	}
	ew.printf("%d status check\n", s.StatusChecks)
	if s.IPsIncluded {
		ew.printf("IPs:\n")
		for _, ip := range s.TopIPs {
			ew.printf("%s%s: %d\n", indent, ip.IP, ip.Count)
		}
	}
	return ew.err
}

// Report collects and writes the report in one step.
func Report(ctx context.Context, w io.Writer, coll Collection, opts Options) error {
	stats, err := Collect(ctx, coll, opts)
	if err != nil {
		return err
	}
	return stats.Write(w, opts.Indent)
}

// errWriter keeps the first write error and skips later writes.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
