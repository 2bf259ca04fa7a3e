package link

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// IdentifyTimeout bounds the wait for one identify_response
const IdentifyTimeout = time.Second

const identifyRetries = 3

// Link talks to one board over a byte stream. Run owns the stream: a
// reader decodes responses into events and a writer sends queued blocks.
type Link struct {
	rw  io.ReadWriteCloser
	log zerolog.Logger

	mu   sync.Mutex
	dict *Dictionary
	dec  *Decoder
	enc  *Encoder

	out      chan []byte
	events   chan Event
	identify chan Message
}

// New creates a link over rw. It starts with the bootstrap dictionary;
// call Identify once Run is going.
func New(rw io.ReadWriteCloser, log zerolog.Logger) *Link {
	dict := Bootstrap()
	return &Link{
		rw:       rw,
		log:      log,
		dict:     dict,
		dec:      NewDecoder(dict),
		enc:      NewEncoder(dict),
		out:      make(chan []byte, 16),
		events:   make(chan Event, 64),
		identify: make(chan Message, 1),
	}
}

// Events delivers decoded reports. It is closed when Run returns.
func (l *Link) Events() <-chan Event {
	return l.events
}

// Dictionary returns the dictionary in use
func (l *Link) Dictionary() *Dictionary {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dict
}

// Run reads and writes until ctx is done or the stream fails. It closes
// the stream on the way out.
func (l *Link) Run(ctx context.Context) error {
	defer close(l.events)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return l.readLoop(ctx) })
	g.Go(func() error { return l.writeLoop(ctx) })
	g.Go(func() error {
		<-ctx.Done()
		return l.rw.Close()
	})
	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (l *Link) readLoop(ctx context.Context) error {
	buf := make([]byte, 4096)
	for {
		n, err := l.rw.Read(buf)
		if n > 0 {
			if err := l.handleInput(ctx, buf[:n]); err != nil {
				return err
			}
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("link read: %w", err)
		}
	}
}

func (l *Link) handleInput(ctx context.Context, p []byte) error {
	l.mu.Lock()
	msgs, err := l.dec.Feed(p)
	dict := l.dict
	l.mu.Unlock()
	if err != nil {
		l.log.Warn().Err(err).Msg("undecodable message")
	}

	for _, msg := range msgs {
		if msg.Name == "identify_response" {
			select {
			case l.identify <- msg:
			default:
				l.log.Debug().Uint32("offset", msg.Uint("offset")).Msg("stale identify_response")
			}
			continue
		}
		ev := ToEvent(dict, msg)
		l.logEvent(ev)
		select {
		case l.events <- ev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (l *Link) logEvent(ev Event) {
	switch e := ev.(type) {
	case Shutdown:
		l.log.Warn().Uint32("clock", e.Clock).Str("reason", e.Reason).Msg("firmware shutdown")
	case IsShutdown:
		l.log.Warn().Str("reason", e.Reason).Msg("command refused while shut down")
	case Starting:
		l.log.Info().Msg("firmware starting")
	case Stats:
		l.log.Debug().Uint32("count", e.Count).Uint32("sum", e.Sum).Uint32("sumsq", e.Sumsq).Msg("stats")
	default:
		l.log.Trace().Interface("event", ev).Msg("event")
	}
}

func (l *Link) writeLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case blk := <-l.out:
			if _, err := l.rw.Write(blk); err != nil {
				return fmt.Errorf("link write: %w", err)
			}
		}
	}
}

// Send queues a command for the writer. It blocks once the queue is full
// and Run is not draining it.
func (l *Link) Send(ctx context.Context, name string, args ...int64) error {
	l.mu.Lock()
	blk, err := l.enc.Encode(name, args...)
	l.mu.Unlock()
	if err != nil {
		return err
	}
	l.log.Debug().Str("command", name).Msg("send")
	select {
	case l.out <- blk:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Identify downloads the firmware's dictionary and switches to it
func (l *Link) Identify(ctx context.Context) error {
	dict, err := FetchDictionary(func(offset uint32, count uint8) (uint32, []byte, error) {
		return l.fetchChunk(ctx, offset, count)
	})
	if err != nil {
		return err
	}
	l.mu.Lock()
	l.dict = dict
	l.dec.SetDictionary(dict)
	l.enc.SetDictionary(dict)
	l.mu.Unlock()
	l.log.Info().
		Str("version", dict.Version).
		Uint32("clock_freq", dict.ClockFreq()).
		Int("commands", len(dict.Commands)).
		Msg("dictionary loaded")
	return nil
}

func (l *Link) fetchChunk(ctx context.Context, offset uint32, count uint8) (uint32, []byte, error) {
	var lastErr error
	for try := 0; try < identifyRetries; try++ {
		if err := l.Send(ctx, "identify", int64(offset), int64(count)); err != nil {
			return 0, nil, err
		}
		timer := time.NewTimer(IdentifyTimeout)
		select {
		case msg := <-l.identify:
			timer.Stop()
			if msg.Uint("offset") != offset {
				lastErr = fmt.Errorf("response for offset %d", msg.Uint("offset"))
				continue
			}
			return offset, msg.Data, nil
		case <-timer.C:
			lastErr = errors.New("timeout")
			l.log.Debug().Uint32("offset", offset).Int("try", try).Msg("identify timeout")
		case <-ctx.Done():
			timer.Stop()
			return 0, nil, ctx.Err()
		}
	}
	return 0, nil, lastErr
}
