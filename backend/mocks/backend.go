// Package mocks provides testify mocks for the backend boundary.
package mocks

import (
	"context"
	"iter"

	"github.com/robbyt/go-hihi/backend"
	"github.com/stretchr/testify/mock"
)

// Backend is a mock backend.Backend. Configure the reply with
// On("Stream", ...).Return(chunks []string, err error); the chunks are
// yielded in order and err, when non-nil, is yielded last.
type Backend struct {
	mock.Mock
}

func (m *Backend) Stream(ctx context.Context, req backend.Request) iter.Seq2[string, error] {
	args := m.Called(ctx, req)
	chunks, _ := args.Get(0).([]string)
	err := args.Error(1)
	return func(yield func(string, error) bool) {
		for _, c := range chunks {
			if !yield(c, nil) {
				return
			}
		}
		if err != nil {
			yield("", err)
		}
	}
}

var _ backend.Backend = (*Backend)(nil)
