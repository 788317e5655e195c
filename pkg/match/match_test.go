package match

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name        string
		cfg         Config
		wantErr     error
		wantErrType interface{}
	}{
		{name: "valid single include", cfg: Config{Includes: []string{"data/**"}}},
		{name: "valid with excludes", cfg: Config{Includes: []string{"data/**"}, Excludes: []string{"**/_tmp/**"}}},
		{name: "no includes", cfg: Config{}, wantErr: ErrNoIncludes},
		{name: "invalid include", cfg: Config{Includes: []string{"[invalid"}}, wantErrType: &PatternError{}},
		{name: "invalid exclude", cfg: Config{Includes: []string{"**"}, Excludes: []string{"[invalid"}}, wantErrType: &PatternError{}},
		{name: "root only", cfg: Config{Includes: []string{"/"}}, wantErrType: &PatternError{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := New(tt.cfg)
			switch {
			case tt.wantErr != nil:
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr))
				assert.Nil(t, m)
			case tt.wantErrType != nil:
				require.Error(t, err)
				assert.IsType(t, tt.wantErrType, err)
				assert.ErrorIs(t, err, ErrInvalidPattern)
			default:
				require.NoError(t, err)
				assert.NotNil(t, m)
			}
		})
	}
}

func TestMatcher_Match(t *testing.T) {
	tests := []struct {
		name     string
		includes []string
		excludes []string
		hidden   bool
		key      string
		expected bool
	}{
		{"simple match", []string{"**/*.txt"}, nil, false, "a/file.txt", true},
		{"simple no match", []string{"**/*.txt"}, nil, false, "a/file.json", false},
		{"leading slash pattern", []string{"/data/*.csv"}, nil, false, "data/x.csv", true},
		{"single star stays in segment", []string{"data/*.csv"}, nil, false, "data/sub/x.csv", false},
		{"exclude wins", []string{"data/**"}, []string{"**/_tmp/**"}, false, "data/_tmp/x", false},
		{"hidden skipped", []string{"**"}, nil, false, "a/.git/config", false},
		{"hidden included", []string{"**"}, nil, true, "a/.git/config", true},
		{"brace alternatives", []string{"logs/{app,db}/*.log"}, nil, false, "logs/db/1.log", true},
		{"escaped star is literal", []string{`data/file\*.txt`}, nil, false, "data/file*.txt", true},
		{"escaped star rejects others", []string{`data/file\*.txt`}, nil, false, "data/fileX.txt", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := New(Config{Includes: tt.includes, Excludes: tt.excludes, IncludeHidden: tt.hidden})
			require.NoError(t, err)
			assert.Equal(t, tt.expected, m.Match(tt.key))
		})
	}
}

func TestMatcher_Prefix(t *testing.T) {
	tests := []struct {
		name     string
		includes []string
		expected string
	}{
		{"single glob", []string{"data/2024/**/*.csv"}, "data/2024/"},
		{"exact path", []string{"/exact/file.txt"}, "exact/file.txt"},
		{"shared parent", []string{"data/2024/*.csv", "data/2025/*.csv"}, "data/"},
		{"shared partial segment", []string{"data/ab/*", "data/ac/*"}, "data/"},
		{"no common prefix", []string{"a/*", "b/*"}, ""},
		{"leading wildcard", []string{"**/*.json"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := New(Config{Includes: tt.includes})
			require.NoError(t, err)
			assert.Equal(t, tt.expected, m.Prefix())
		})
	}
}

func TestDerivePrefix(t *testing.T) {
	tests := []struct {
		pattern  string
		expected string
	}{
		{"", ""},
		{"exact/path/file.txt", "exact/path/file.txt"},
		{"*.json", ""},
		{"data/**/*.parquet", "data/"},
		{"data/2024-*/*.csv", "data/"},
		{"logs/app-{a,b}/*.log", "logs/"},
		{"data/[0-9]*/x", "data/"},
		{"/data/2024/**", "data/2024/"},
		{"data//2024/**", "data/2024/"},
		{`data\2024\sub/**`, "data/2024/sub/"},
		{`data/file\*.txt`, "data/file*.txt"},
		{`data/\[backup\]/*.log`, "data/[backup]/"},
	}
	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			assert.Equal(t, tt.expected, DerivePrefix(tt.pattern))
		})
	}
}

func TestNormalizePattern(t *testing.T) {
	assert.Equal(t, "data/2024/**", NormalizePattern("/data/2024/**"))
	assert.Equal(t, "data/x", NormalizePattern("//data///x"))
	assert.Equal(t, `data/file\*.txt`, NormalizePattern(`data\file\*.txt`))
	assert.Equal(t, "", NormalizePattern("/"))
}

func TestIsGlobPattern(t *testing.T) {
	assert.True(t, IsGlobPattern("data/**"))
	assert.True(t, IsGlobPattern("file?.txt"))
	assert.False(t, IsGlobPattern(`data/file\*.txt`))
	assert.False(t, IsGlobPattern("plain/path"))
}

func TestIsHidden(t *testing.T) {
	assert.False(t, IsHidden("path/to/file.txt"))
	assert.True(t, IsHidden(".hidden/file.txt"))
	assert.True(t, IsHidden("path/.hidden/file.txt"))
	assert.False(t, IsHidden("path/file.txt."))
}
