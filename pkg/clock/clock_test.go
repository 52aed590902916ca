package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReal_NowAdvances(t *testing.T) {
	c := New()
	first := c.Now()
	time.Sleep(time.Millisecond)
	assert.True(t, c.Now().After(first) || c.Now().Equal(first))
}

func TestFake_AfterFiresOnAdvance(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	f := NewFake(start)

	ch := f.After(5 * time.Second)

	select {
	case <-ch:
		t.Fatal("fired before advance")
	default:
	}

	f.Advance(5 * time.Second)

	select {
	case fired := <-ch:
		assert.Equal(t, start.Add(5*time.Second), fired)
	default:
		t.Fatal("did not fire after advance")
	}
}

func TestFake_AfterDoesNotFireEarly(t *testing.T) {
	f := NewFake(time.Now())
	ch := f.After(10 * time.Second)

	f.Advance(5 * time.Second)

	select {
	case <-ch:
		t.Fatal("fired early")
	default:
	}
}

func TestFake_NowReflectsAdvance(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	f := NewFake(start)
	f.Advance(time.Hour)
	assert.Equal(t, start.Add(time.Hour), f.Now())
}
