package filesys_test

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/lc/confload/internal/filesys"
	"github.com/lc/confload/internal/mocks"
)

type FilesysTestSuite struct {
	suite.Suite
	dir string
}

func (s *FilesysTestSuite) SetupTest() {
	s.dir = s.T().TempDir()
}

func (s *FilesysTestSuite) TestIsRemote() {
	testCases := []struct {
		path     string
		expected bool
	}{
		{path: "config/config.json", expected: false},
		{path: "/etc/app/config.json", expected: false},
		{path: "file:///etc/app/config.json", expected: false},
		{path: `C:\app\config.json`, expected: false},
		{path: "s3://bucket/config.json", expected: true},
		{path: "mem://localhost/config.json", expected: true},
		{path: "gs://bucket/prod.config.json", expected: true},
		{path: "://nothing", expected: false},
		{path: "weird dir://x", expected: false},
	}

	for _, tc := range testCases {
		s.Run(tc.path, func() {
			s.Equal(tc.expected, filesys.IsRemote(tc.path))
		})
	}
}

func (s *FilesysTestSuite) TestOSReadFile() {
	p := filepath.Join(s.dir, "config.json")
	s.Require().NoError(os.WriteFile(p, []byte(`{"a":1}`), 0o600))

	data, err := filesys.OS().ReadFile(context.Background(), p)
	s.Require().NoError(err)
	s.Equal(`{"a":1}`, string(data))

	data, err = filesys.OS().ReadFile(context.Background(), "file://"+p)
	s.Require().NoError(err)
	s.Equal(`{"a":1}`, string(data))

	_, err = filesys.OS().ReadFile(context.Background(), filepath.Join(s.dir, "missing.json"))
	s.ErrorIs(err, fs.ErrNotExist)
}

func (s *FilesysTestSuite) TestMuxRoutesByScheme() {
	ctx := context.Background()
	local := new(mocks.MockReadFS)
	remote := new(mocks.MockReadFS)
	local.On("ReadFile", ctx, "config/config.json").Return([]byte("local"), nil)
	remote.On("ReadFile", ctx, "s3://bucket/config.json").Return([]byte("remote"), nil)

	m := &filesys.Mux{Local: local, Remote: remote}

	data, err := m.ReadFile(ctx, "config/config.json")
	s.Require().NoError(err)
	s.Equal("local", string(data))

	data, err = m.ReadFile(ctx, "s3://bucket/config.json")
	s.Require().NoError(err)
	s.Equal("remote", string(data))

	local.AssertExpectations(s.T())
	remote.AssertExpectations(s.T())
}

func (s *FilesysTestSuite) TestRemoteReadsLocalURLs() {
	p := filepath.Join(s.dir, "remote.json")
	s.Require().NoError(os.WriteFile(p, []byte(`{"b":2}`), 0o600))

	r := filesys.Remote(nil)

	data, err := r.ReadFile(context.Background(), "file://"+p)
	s.Require().NoError(err)
	s.Equal(`{"b":2}`, string(data))

	_, err = r.ReadFile(context.Background(), "file://"+filepath.Join(s.dir, "absent.json"))
	s.ErrorIs(err, fs.ErrNotExist)
}

func (s *FilesysTestSuite) TestAtomicWrite() {
	dst := filepath.Join(s.dir, "out.json")
	s.Require().NoError(os.WriteFile(dst, []byte("old"), 0o600))

	err := filesys.AtomicWrite(filesys.OS(), dst, []byte("new"), 0o640)
	s.Require().NoError(err)

	data, err := os.ReadFile(dst)
	s.Require().NoError(err)
	s.Equal("new", string(data))

	info, err := os.Stat(dst)
	s.Require().NoError(err)
	s.Equal(os.FileMode(0o640), info.Mode().Perm())

	entries, err := os.ReadDir(s.dir)
	s.Require().NoError(err)
	s.Len(entries, 1, "temp file must not be left behind")
}

func (s *FilesysTestSuite) TestAtomicWriteRemovesTempOnRenameFailure() {
	tmp, err := os.CreateTemp(s.dir, "mock-*")
	s.Require().NoError(err)

	ops := new(mocks.MockOsFS)
	ops.On("CreateTemp", s.dir, ".confload-*").Return(tmp, nil)
	ops.On("Chmod", tmp.Name(), os.FileMode(0o600)).Return(nil)
	ops.On("Rename", tmp.Name(), mock.Anything).Return(errors.New("rename failed"))
	ops.On("Remove", tmp.Name()).Return(nil)

	err = filesys.AtomicWrite(ops, filepath.Join(s.dir, "out.json"), []byte("x"), 0o600)

	s.EqualError(err, "rename failed")
	ops.AssertExpectations(s.T())
	ops.AssertNotCalled(s.T(), "Open", mock.Anything)
}

func TestFilesysSuite(t *testing.T) {
	suite.Run(t, new(FilesysTestSuite))
}
