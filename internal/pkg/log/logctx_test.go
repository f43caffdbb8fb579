package log

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInto_From_Roundtrip(t *testing.T) {
	t.Parallel()

	l := slog.New(slog.NewTextHandler(os.Stdout, nil))
	ctx := Into(context.Background(), l)

	require.Same(t, l, From(ctx))
}

func TestFrom_EmptyContext_ReturnsDefault(t *testing.T) {
	t.Parallel()

	require.Same(t, slog.Default(), From(context.Background()))
}
