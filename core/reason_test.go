package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStaticStringsIntern(t *testing.T) {
	tbl := NewStaticStrings()
	a := tbl.Intern("alpha")
	b := tbl.Intern("beta")

	assert.Equal(t, ReasonCode(1), a)
	assert.Equal(t, ReasonCode(2), b)
	assert.Equal(t, a, tbl.Intern("alpha"), "interning is idempotent")

	msg, ok := tbl.Lookup(b)
	assert.True(t, ok)
	assert.Equal(t, "beta", msg)

	_, ok = tbl.Lookup(0)
	assert.False(t, ok)
	_, ok = tbl.Lookup(3)
	assert.False(t, ok)

	assert.Equal(t, []string{"", "alpha", "beta"}, tbl.Values())
}

func TestReasonString(t *testing.T) {
	assert.Equal(t, "Timer too close", ReasonString(ReasonTimerTooClose))
	assert.Equal(t, "unknown reason 65000", ReasonString(65000))
	assert.Equal(t, ReasonTimerTooClose, StaticString("Timer too close"))
}
