package errors

import (
	"log/slog"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAnnotatedError(t *testing.T) {
	err := New("test error", slog.String("id", "123"))
	require.Equal(t, "test error", err.Error())

	// Assert that wrapping sentinel errors work as expected.
	sentinel := NewSentinel("sentinel error")
	require.NotErrorIs(t, err, NewSentinel("sentinel error"))
	wrapped := Wrap(sentinel, "added context", slog.Int("count", 1))
	require.ErrorIs(t, wrapped, sentinel)
	require.Equal(t, "added context: sentinel error", wrapped.Error())

	// Ensure log values are coming through.
	var annotated *AnnotatedError
	require.True(t, As(err, &annotated))
	group := annotated.LogValue().Group()
	require.Contains(t, group, slog.String("id", "123"))

	// Assert there's a valid source.
	sourceIdx := slices.IndexFunc(group, func(attr slog.Attr) bool {
		return attr.Key == "source"
	})
	source := group[sourceIdx]
	require.Contains(t, source.Value.String(), "annotatederror_test.go")
}

func TestAnnotatedError_wrapChain(t *testing.T) {
	leaf := New("leaf", slog.String("leaf_attr", "a"))
	mid := Wrap(leaf, "mid", slog.String("mid_attr", "b"))
	top := Wrap(mid, "top")

	require.Equal(t, "top: mid: leaf", top.Error())
	require.ErrorIs(t, top, leaf)

	var annotated *AnnotatedError
	require.True(t, As(top, &annotated))
	group := annotated.LogValue().Group()

	// The wrapped error is nested as a group so the full chain ends up in the log record.
	wrappedIdx := slices.IndexFunc(group, func(attr slog.Attr) bool {
		return attr.Key == "wrapped"
	})
	require.NotEqual(t, -1, wrappedIdx)
	require.Contains(t, group[wrappedIdx].Value.Group(), slog.String("mid_attr", "b"))
}
