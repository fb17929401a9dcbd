package runner

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneratePool(t *testing.T) {
	p := GeneratePool(200, 0)
	require.Equal(t, 200, p.Len())

	for i := 0; i < p.Len(); i++ {
		rec := p.At(i)
		assert.Len(t, rec.FirstName, NameLength)
		assert.Len(t, rec.LastName, NameLength)
		for _, c := range rec.FirstName + rec.LastName {
			assert.True(t, strings.ContainsRune(Alphabet, c), "unexpected char %q", c)
		}
		_, err := uuid.Parse(rec.Email)
		assert.NoError(t, err)
	}
}

func TestGeneratePool_NonPositiveSize(t *testing.T) {
	assert.Equal(t, 0, GeneratePool(0, 0).Len())
	assert.Equal(t, 0, GeneratePool(-3, 0).Len())
}

func TestRandomString_Degenerate(t *testing.T) {
	assert.Equal(t, "", RandomString("", 10))
	assert.Equal(t, "", RandomString(Alphabet, 0))
	assert.Equal(t, "", RandomString(Alphabet, -1))
	assert.Equal(t, "aaaa", RandomString("a", 4))
}

func TestPool_PickReturnsMember(t *testing.T) {
	recs := []Record{
		{FirstName: "a", LastName: "b", Email: "1"},
		{FirstName: "c", LastName: "d", Email: "2"},
	}
	p := NewPool(recs)
	for i := 0; i < 50; i++ {
		assert.Contains(t, recs, p.Pick())
	}
}
