package identifier

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docwarden/docwarden/internal/sourcehost"
)

func TestSkipNode_ExcludesDirectoriesByPrefix(t *testing.T) {
	idr := New(nil, 0)

	tests := []struct {
		name string
		want bool
	}{
		{name: "src", want: false},
		{name: ".git", want: true},
		{name: "_internal", want: true},
		{name: "..hidden", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := sourcehost.Entry{Name: tt.name, Path: tt.name, Kind: sourcehost.EntryDir}
			skip, err := idr.skipNode(context.Background(), nil, entry)
			require.NoError(t, err)
			assert.Equal(t, tt.want, skip)
		})
	}
}
