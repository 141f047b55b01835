package testutil

import (
	"context"

	"github.com/traceroot-ai/sim/internal/types"
)

func SetupContext() context.Context {
	ctx := context.Background()
	ctx = types.SetRequestID(ctx, types.GenerateUUID())
	return ctx
}
