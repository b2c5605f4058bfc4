package timing

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log"
)

// DefaultBufferSize is the number of dumps buffered by a Reader.
const DefaultBufferSize = 8

// Dump is the content of one timing ring dump.
type Dump struct {
	Events []Event
	Errors int // lines inside the dump that failed to parse
}

// Reader collects timing dumps from a line oriented stream, typically the
// station's debug UART. Other output is passed to an optional callback.
type Reader struct {
	r     io.Reader
	dumps chan Dump
	other func(string)
}

// NewReader returns a Reader on r. other receives every line that is not
// part of a dump and may be nil.
func NewReader(r io.Reader, bufSize int, other func(string)) *Reader {
	if bufSize == 0 {
		bufSize = DefaultBufferSize
	}
	return &Reader{
		r:     r,
		dumps: make(chan Dump, bufSize),
		other: other,
	}
}

// Dumps returns the channel completed dumps are delivered on. It is closed
// when Run returns.
func (rd *Reader) Dumps() <-chan Dump {
	return rd.dumps
}

// Run reads until ctx is cancelled or the stream ends. A dump cut short by
// the end of the stream is delivered as is.
func (rd *Reader) Run(ctx context.Context) error {
	defer close(rd.dumps)

	var cur *Dump
	scanner := bufio.NewScanner(rd.r)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := scanner.Text()

		ev, kind, err := parseLine(line)
		switch {
		case errors.Is(err, ErrNotTiming):
			if rd.other != nil {
				rd.other(line)
			}
		case err != nil:
			log.Printf("timing: %v", err)
			if cur != nil {
				cur.Errors++
			}
		case kind == lineBegin:
			if cur != nil {
				log.Printf("timing: dump restarted after %d events", len(cur.Events))
			}
			cur = &Dump{}
		case kind == lineEnd:
			if cur != nil {
				if !rd.deliver(ctx, *cur) {
					return ctx.Err()
				}
				cur = nil
			}
		case cur != nil:
			cur.Events = append(cur.Events, ev)
		}
	}

	if cur != nil {
		rd.deliver(ctx, *cur)
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (rd *Reader) deliver(ctx context.Context, d Dump) bool {
	select {
	case rd.dumps <- d:
		return true
	case <-ctx.Done():
		return false
	}
}
