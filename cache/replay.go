package cache

import (
	"bytes"
	"context"
	"fmt"
	"io"
)

// Replay writes the call count and call history of op on c:
//
//	Cache.store was called 2 times:
//	Cache.store("foo") -> 5f6c0c3e-...
//	Cache.store(42) -> 0d1b8a57-...
//
// It writes nothing and returns nil when c is nil, c has no backend, op is not
// instrumented on c, or the backend does not implement Recorder. Store errors
// are returned and nothing is written.
func Replay(ctx context.Context, w io.Writer, c *InstrumentedCache, op string) error {
	if c == nil || c.backend == nil || !c.IsInstrumented(op) {
		return nil
	}
	if _, ok := c.backend.(Recorder); !ok {
		return nil
	}

	count, err := c.CallCount(ctx, op)
	if err != nil {
		return err
	}
	history, err := c.History(ctx, op)
	if err != nil {
		return err
	}

	identity := c.Identity(op)
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s was called %d times:\n", identity, count)
	for _, rec := range history {
		fmt.Fprintf(&buf, "%s(%s) -> %s\n", identity, rec.Inputs, rec.Output)
	}
	_, err = w.Write(buf.Bytes())
	return err
}
