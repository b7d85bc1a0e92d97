package mocks

import (
	"time"

	"github.com/stretchr/testify/mock"
)

// MockToken is a mock implementation of the mqtt.Token interface
type MockToken struct {
	mock.Mock
}

// Error returns the error associated with the token
func (m *MockToken) Error() error {
	args := m.Called()
	return args.Error(0)
}

// Wait waits for the token to complete
func (m *MockToken) Wait() bool {
	args := m.Called()
	return args.Bool(0)
}

// Done returns the done channel for the token
func (m *MockToken) Done() <-chan struct{} {
	args := m.Called()
	return args.Get(0).(<-chan struct{})
}

// WaitTimeout waits for the token to complete or timeout
func (m *MockToken) WaitTimeout(timeout time.Duration) bool {
	args := m.Called(timeout)
	return args.Bool(0)
}

// GrantedToken builds a token that completes successfully. Most tests
// only need this.
func GrantedToken() *MockToken {
	t := new(MockToken)
	t.On("Wait").Return(true)
	t.On("Error").Return(nil)
	return t
}

// FailedToken builds a token that completes with the given error.
func FailedToken(err error) *MockToken {
	t := new(MockToken)
	t.On("Wait").Return(true)
	t.On("Error").Return(err)
	return t
}
