package jsonscan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDuplicateKeys_ReportsPointers(t *testing.T) {
	data := []byte(`{"a":1,"b":{"x":1,"x":2},"list":[{"k":1},{"k":1,"k":2}],"a":3}`)
	got, err := DuplicateKeys(data, 0)
	require.NoError(t, err)
	assert.Equal(t, []Duplicate{
		{Path: "/b", Key: "x"},
		{Path: "/list/1", Key: "k"},
		{Path: "/", Key: "a"},
	}, got)
}

func TestDuplicateKeys_Limit(t *testing.T) {
	got, err := DuplicateKeys([]byte(`{"a":1,"a":2,"a":3}`), 1)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestDuplicateKeys_EscapesSegments(t *testing.T) {
	got, err := DuplicateKeys([]byte(`{"a/b":{"z":1,"z":2}}`), 0)
	require.NoError(t, err)
	assert.Equal(t, []Duplicate{{Path: "/a~1b", Key: "z"}}, got)
}

func TestDuplicateKeys_SyntaxError(t *testing.T) {
	_, err := DuplicateKeys([]byte(`{"a":`), 0)
	assert.Error(t, err)
}
