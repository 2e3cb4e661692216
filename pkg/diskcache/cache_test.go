package diskcache

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_ReadWriteDelete(t *testing.T) {
	c, err := New(filepath.Join(t.TempDir(), "favicons"))
	require.NoError(t, err)

	_, err = c.Read("https://example.com/favicon.ico")
	require.ErrorIs(t, err, fs.ErrNotExist)

	require.NoError(t, c.Write("https://example.com/favicon.ico", []byte{0x1, 0x2, 0x3}))
	data, err := c.Read("https://example.com/favicon.ico")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x1, 0x2, 0x3}, data)

	require.NoError(t, c.Write("https://example.com/favicon.ico", []byte("new")))
	data, err = c.Read("https://example.com/favicon.ico")
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))

	require.NoError(t, c.Delete("https://example.com/favicon.ico"))
	_, err = c.Read("https://example.com/favicon.ico")
	require.ErrorIs(t, err, fs.ErrNotExist)
	require.NoError(t, c.Delete("https://example.com/favicon.ico"), "missing key delete is fine")
}

func TestCache_GetSet(t *testing.T) {
	c, err := New(t.TempDir())
	require.NoError(t, err)

	assert.Nil(t, c.Get("missing"))
	c.Set("k1", []byte("v1"))
	assert.Equal(t, []byte("v1"), c.Get("k1"))
	c.Set("k1", nil)
	assert.Nil(t, c.Get("k1"))
}

func TestCache_OneFilePerKey(t *testing.T) {
	dir := t.TempDir()
	c, err := New(dir)
	require.NoError(t, err)

	c.Set("a", []byte("1"))
	c.Set("b/../../c", []byte("2"))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	for _, e := range entries {
		assert.Len(t, e.Name(), 40, "file name is a sha1 hex")
	}
}

func TestCache_Concurrent(t *testing.T) {
	c, err := New(t.TempDir())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("key-%d", i%5)
			c.Set(key, []byte(key))
			_ = c.Get(key)
		}(i)
	}
	wg.Wait()

	for i := range 5 {
		key := fmt.Sprintf("key-%d", i)
		assert.Equal(t, key, string(c.Get(key)))
	}
}
