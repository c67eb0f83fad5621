package mocks

import (
	"context"
	"os"

	"github.com/stretchr/testify/mock"

	"github.com/lc/confload/internal/filesys"
)

var (
	_ filesys.ReadFS  = (*MockReadFS)(nil)
	_ filesys.FileOps = (*MockOsFS)(nil)
)

// MockReadFS is a testify mock of filesys.ReadFS.
type MockReadFS struct {
	mock.Mock
}

// ReadFile mocks the ReadFile method.
func (m *MockReadFS) ReadFile(ctx context.Context, p string) ([]byte, error) {
	args := m.Called(ctx, p)
	// Need to handle potential nil slice return
	var data []byte
	if args.Get(0) != nil {
		data = args.Get(0).([]byte)
	}
	return data, args.Error(1)
}

// MockOsFS is a testify mock of filesys.FileOps.
type MockOsFS struct {
	mock.Mock
}

// Open mocks the Open method.
func (m *MockOsFS) Open(p string) (*os.File, error) {
	args := m.Called(p)
	var file *os.File
	if args.Get(0) != nil {
		file = args.Get(0).(*os.File)
	}
	return file, args.Error(1)
}

// CreateTemp mocks the CreateTemp method.
func (m *MockOsFS) CreateTemp(dir, pat string) (*os.File, error) {
	args := m.Called(dir, pat)
	var file *os.File
	if args.Get(0) != nil {
		file = args.Get(0).(*os.File)
	}
	return file, args.Error(1)
}

// Rename mocks the Rename method.
func (m *MockOsFS) Rename(old, newPath string) error {
	args := m.Called(old, newPath)
	return args.Error(0)
}

// Remove mocks the Remove method.
func (m *MockOsFS) Remove(p string) error {
	args := m.Called(p)
	return args.Error(0)
}

// Chmod mocks the Chmod method.
func (m *MockOsFS) Chmod(p string, mode os.FileMode) error {
	args := m.Called(p, mode)
	return args.Error(0)
}
