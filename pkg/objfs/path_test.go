package objfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3leaps/nimbusfs/pkg/provider/memory"
)

func TestPathToKey(t *testing.T) {
	tests := []struct {
		path    string
		want    string
		wantErr bool
	}{
		{path: "", want: ""},
		{path: "/", want: ""},
		{path: "a", want: "a"},
		{path: "/a/b", want: "a/b"},
		{path: "//a///b//", want: "a/b"},
		{path: "a/b/", want: "a/b"},
		{path: "/with space/ü.txt", want: "with space/ü.txt"},
		{path: "/a/./b", wantErr: true},
		{path: "/a/../b", wantErr: true},
		{path: "s3://bucket/a", wantErr: true},
		{path: "a\x00b", wantErr: true},
		{path: "bad\xffutf8", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := PathToKey(tt.path)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidPath)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPathRoundTrip(t *testing.T) {
	paths := []string{"/", "/a", "a/b/c", "//x//y/", "/deep/er/path/file.txt", "/dot.d/x_y"}
	for _, p := range paths {
		key, err := PathToKey(p)
		require.NoError(t, err)
		clean, err := CleanPath(p)
		require.NoError(t, err)
		assert.Equal(t, clean, KeyToPath(key), p)
	}
	assert.Equal(t, "", RootKey())
	assert.Equal(t, "/a/b", KeyToPath("a/b/"))
}

func TestFileSystem_Resolve(t *testing.T) {
	fsys := newTestFS(t, memory.New("bkt"))
	assert.Equal(t, "mem://bkt/", fsys.RootURI())
	assert.Equal(t, "mem", fsys.Type())

	tests := []struct {
		path    string
		want    string
		wantErr bool
	}{
		{path: "mem://bkt/a/b", want: "a/b"},
		{path: "mem://bkt", want: ""},
		{path: "mem://bkt/", want: ""},
		{path: "/a/b", want: "a/b"},
		{path: "mem://other/a", wantErr: true},
		{path: "mem://bktx/a", wantErr: true},
		{path: "/a/b_$folder$", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := fsys.Key(tt.path)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPath)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil, "b", DefaultConfig())
	require.Error(t, err)

	_, err = New(memory.New("b"), "b", Config{FolderSuffix: "/x"})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	fsys, err := New(memory.New("b"), "b", Config{})
	require.NoError(t, err)
	assert.Equal(t, DefaultFolderSuffix, fsys.FolderSuffix())
}
