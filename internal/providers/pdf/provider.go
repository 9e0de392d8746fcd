// Package pdf renders ledger documents with maroto.
package pdf

import (
	"context"

	"go.uber.org/fx"
)

// Provider renders printable documents. Implementations return the encoded
// PDF bytes.
type Provider interface {
	RenderStatement(ctx context.Context, doc StatementDocument) ([]byte, error)
}

var Module = fx.Module("pdf.provider",
	fx.Provide(New),
)

type NoOpProvider struct{}

func (NoOpProvider) RenderStatement(context.Context, StatementDocument) ([]byte, error) {
	return nil, nil
}
