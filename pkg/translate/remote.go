package translate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// remoteStrategy asks a Translator for a gloss. Concurrent lookups of the same
// token share one call; every call passes through the shared Gate and its
// result is validated and cached. A shared call is cancelled once every
// caller waiting on it has gone.
type remoteStrategy struct {
	name        string
	translator  Translator
	cache       *Cache
	gate        *Gate
	timeout     time.Duration
	maxGlossLen int
	logger      *slog.Logger
	group       singleflight.Group

	mu      sync.Mutex
	flights map[string]*flight
}

// flight is the context shared by every caller waiting on one token.
type flight struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

func (s *remoteStrategy) join(ctx context.Context, token string) *flight {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.flights == nil {
		s.flights = make(map[string]*flight)
	}
	f, ok := s.flights[token]
	if !ok {
		fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		f = &flight{ctx: fctx, cancel: cancel}
		s.flights[token] = f
	}
	f.waiters++
	return f
}

func (s *remoteStrategy) leave(token string, f *flight) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f.waiters--
	if f.waiters > 0 {
		return
	}
	f.cancel()
	delete(s.flights, token)
	// A caller arriving after this point starts a fresh call instead of
	// joining the cancelled one.
	s.group.Forget(token)
}

func (s *remoteStrategy) Name() string { return s.name }

func (s *remoteStrategy) Lookup(ctx context.Context, token string) (string, bool) {
	if ctx.Err() != nil {
		return "", false
	}

	f := s.join(ctx, token)
	defer s.leave(token, f)

	ch := s.group.DoChan(token, func() (any, error) {
		// Another flight may have filled the cache since the cache tier missed.
		if g, ok := s.cache.Get(token); ok {
			return g, nil
		}
		return s.fetch(f.ctx, token)
	})

	select {
	case <-ctx.Done():
		return "", false
	case res := <-ch:
		if res.Err != nil {
			return "", false
		}
		g, _ := res.Val.(string)
		return g, g != ""
	}
}

func (s *remoteStrategy) fetch(ctx context.Context, token string) (string, error) {
	var gloss string
	err := s.gate.Do(ctx, func(ctx context.Context) (err error) {
		// singleflight re-panics on a fresh goroutine, so a misbehaving
		// provider has to be contained here.
		defer func() {
			if rec := recover(); rec != nil {
				err = fmt.Errorf("translator panic: %v", rec)
			}
		}()
		if s.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.timeout)
			defer cancel()
		}
		start := time.Now()
		out, err := s.translator.Translate(ctx, token, "zh", "en")
		if err != nil {
			s.logger.Debug("remote lookup failed",
				slog.String("token", token),
				slog.Duration("elapsed", time.Since(start)),
				slog.String("error", err.Error()),
			)
			return err
		}
		gloss = out
		return nil
	})
	if err != nil {
		return "", err
	}

	if !ValidGloss(token, gloss, s.maxGlossLen) {
		s.logger.Debug("remote result rejected", slog.String("token", token), slog.Int("len", len(gloss)))
		return "", nil
	}
	gloss = strings.TrimSpace(gloss)
	s.cache.Add(token, gloss)
	return gloss, nil
}
