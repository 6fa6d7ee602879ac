package recorder

import (
	"context"

	"FactorForge/internal/model"
)

// NoopRecorder discards everything. Used for dry runs.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordFactors(_ context.Context, _ *model.FactorFrame) error { return nil }
func (n *NoopRecorder) Recorded(_ context.Context, _ string) (bool, error)         { return false, nil }
func (n *NoopRecorder) RecordDateFactors(_ context.Context, _ []model.DateFactor) error {
	return nil
}
func (n *NoopRecorder) Close() error { return nil }
