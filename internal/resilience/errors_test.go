package resilience

import (
	"syscall"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
)

func TestIsTransient(t *testing.T) {
	assert.False(t, IsTransient(nil))
	assert.False(t, IsTransient(eris.New("validation failed")))

	assert.True(t, IsTransient(NewTransientError(eris.New("503"), 503)))
	assert.True(t, IsTransient(eris.Wrap(NewTransientError(eris.New("503"), 503), "outer")))
	assert.True(t, IsTransient(NewMalformedError(eris.New("bad json"), "{")))
	assert.True(t, IsTransient(syscall.ECONNRESET))
	assert.True(t, IsTransient(eris.New("dial tcp: lookup acme.com: no such host")))
	assert.True(t, IsTransient(eris.New("read: connection reset by peer")))
}

func TestIsMalformed(t *testing.T) {
	assert.True(t, IsMalformed(NewMalformedError(eris.New("bad"), "raw")))
	assert.True(t, IsMalformed(eris.Wrap(NewMalformedError(eris.New("bad"), "raw"), "stage")))
	assert.False(t, IsMalformed(eris.New("bad")))
}

func TestMalformedError_KeepsRaw(t *testing.T) {
	err := NewMalformedError(eris.New("no JSON object"), "I cannot help with that")
	assert.Equal(t, "I cannot help with that", err.Raw)
	assert.Equal(t, "no JSON object", err.Error())
}

func TestIsTransientHTTPStatus(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 504} {
		assert.True(t, IsTransientHTTPStatus(code), "code %d", code)
	}
	for _, code := range []int{0, 200, 400, 401, 403, 404, 422} {
		assert.False(t, IsTransientHTTPStatus(code), "code %d", code)
	}
}
