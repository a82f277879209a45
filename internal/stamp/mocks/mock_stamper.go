package mocks

import (
	"github.com/stretchr/testify/mock"
)

type MockStamper struct {
	mock.Mock
}

func (m *MockStamper) Stamp(data []byte, contentType, text string) ([]byte, error) {
	args := m.Called(data, contentType, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}
