package translate

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/japaniel/zhreader/pkg/lexicon"
)

func TestGate_SpacesSuccessiveCalls(t *testing.T) {
	g := NewGate(40 * time.Millisecond)
	var starts []time.Time
	for i := 0; i < 3; i++ {
		err := g.Do(context.Background(), func(context.Context) error {
			starts = append(starts, time.Now())
			return nil
		})
		require.NoError(t, err)
	}
	for i := 1; i < len(starts); i++ {
		assert.GreaterOrEqual(t, starts[i].Sub(starts[i-1]), 40*time.Millisecond)
	}
	assert.Equal(t, int64(3), g.Calls())
	assert.False(t, g.Last().IsZero())
}

func TestGate_ContextCancelledWhileWaiting(t *testing.T) {
	g := NewGate(time.Hour)
	require.NoError(t, g.Do(context.Background(), func(context.Context) error { return nil }))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	called := false
	err := g.Do(ctx, func(context.Context) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, called)
	assert.Equal(t, int64(1), g.Calls())
}

func TestGate_PropagatesError(t *testing.T) {
	g := NewGate(0)
	want := errors.New("remote down")
	err := g.Do(context.Background(), func(context.Context) error { return want })
	assert.ErrorIs(t, err, want)
	assert.False(t, g.Last().IsZero(), "failed calls still count towards spacing")
}

func TestGate_NegativeSpacing(t *testing.T) {
	assert.Equal(t, time.Duration(0), NewGate(-time.Second).Spacing())
}

func TestCache(t *testing.T) {
	c := NewCache(2)
	c.Add("a", "1")
	c.Add("b", "2")
	c.Add("c", "3")

	_, ok := c.Get("a")
	assert.False(t, ok, "oldest entry should be evicted")
	v, ok := c.Get("c")
	assert.True(t, ok)
	assert.Equal(t, "3", v)
	assert.Equal(t, 2, c.Len())

	c.Purge()
	assert.Equal(t, 0, c.Len())
	assert.NotPanics(t, func() { NewCache(0) })
}

func TestValidGloss(t *testing.T) {
	cases := []struct {
		name  string
		input string
		gloss string
		want  bool
	}{
		{"ok", "世界", "world", true},
		{"blank", "世界", "  \t", false},
		{"echo", "hello", " HELLO ", false},
		{"echo ideographs", "世界", "世界", false},
		{"just under limit", "世界", strings.Repeat("a", 199), true},
		{"at limit", "世界", strings.Repeat("a", 200), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ValidGloss(tc.input, tc.gloss, DefaultMaxGlossLen))
		})
	}
	assert.True(t, ValidGloss("x", "y", 0), "non-positive limit falls back to the default")
}

func TestComposite(t *testing.T) {
	lex := lexicon.New(map[string]string{"我": "I, me", "好": "good"})
	assert.Equal(t, Placeholder, Composite(lex, ""))
	assert.Equal(t, Placeholder, Composite(lex, "好"))
	assert.Equal(t, "我: I, me; 们: ?", Composite(lex, "我们"))
	assert.Equal(t, "a: ?; b: ?", Composite(lex, "ab"))
}
