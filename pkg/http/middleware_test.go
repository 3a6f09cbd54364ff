package xhttp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/valyala/fasthttp"
)

func TestRequestIDMiddleware(t *testing.T) {
	var seen string
	h := RequestIDMiddleware(func(ctx *RequestCtx) {
		seen = string(ctx.Request.Header.Peek(requestIDHeader))
	})

	t.Run("assigns an id when missing", func(t *testing.T) {
		ctx := &fasthttp.RequestCtx{}
		h(ctx)
		assert.NotEmpty(t, seen)
		assert.Equal(t, seen, string(ctx.Response.Header.Peek(requestIDHeader)))
	})

	t.Run("keeps the caller id", func(t *testing.T) {
		ctx := &fasthttp.RequestCtx{}
		ctx.Request.Header.Set(requestIDHeader, "abc-123")
		h(ctx)
		assert.Equal(t, "abc-123", seen)
		assert.Equal(t, "abc-123", string(ctx.Response.Header.Peek(requestIDHeader)))
	})
}

func TestRecoverMiddleware(t *testing.T) {
	h := RecoverMiddleware(func(ctx *RequestCtx) {
		panic("boom")
	})
	ctx := &fasthttp.RequestCtx{}
	assert.NotPanics(t, func() { h(ctx) })
	assert.Equal(t, StatusInternalServerError, ctx.Response.StatusCode())
}

func TestShouldSkip(t *testing.T) {
	assert.True(t, shouldSkip("/api/v1/health"))
	assert.True(t, shouldSkip("/metrics"))
	assert.False(t, shouldSkip("/api/v1/payments"))
}
