package generic

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPoolResetsOnPut(t *testing.T) {
	p := NewHotPool(func() *bytes.Buffer { return new(bytes.Buffer) }, (*bytes.Buffer).Reset, 2)

	buf := p.Get()
	assert.Zero(t, buf.Len())
	buf.WriteString("frame")
	p.Put(buf)
	assert.Zero(t, buf.Len())
}

func TestPoolGenerates(t *testing.T) {
	calls := 0
	p := NewPool(func() []int { calls++; return make([]int, 0, 4) }, nil)
	s := p.Get()
	assert.Equal(t, 4, cap(s))
	assert.GreaterOrEqual(t, calls, 1)
}
