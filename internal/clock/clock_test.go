package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSystemUsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	now := System{Location: loc}.Now()
	assert.Equal(t, loc, now.Location())
}

func TestSystemIsMonotonic(t *testing.T) {
	c := System{}
	a := c.Now()
	b := c.Now()
	assert.False(t, b.Before(a))
}

func TestFunc(t *testing.T) {
	fixed := time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)
	var c Clock = Func(func() time.Time { return fixed })
	assert.Equal(t, fixed, c.Now())
}
