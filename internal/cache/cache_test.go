package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheCopies(t *testing.T) {
	c, err := New(2)
	require.NoError(t, err)

	k := Key{Index: 2, Archive: 10}
	buf := []byte("payload")
	c.Add(k, buf)
	buf[0] = 'X'

	got, ok := c.Get(k)
	require.True(t, ok)
	assert.Equal(t, []byte("payload"), got)

	got[0] = 'Y'
	again, _ := c.Get(k)
	assert.Equal(t, []byte("payload"), again)
}

func TestCacheEviction(t *testing.T) {
	c, err := New(2)
	require.NoError(t, err)

	for i := uint32(0); i < 3; i++ {
		c.Add(Key{Archive: i}, []byte{byte(i)})
	}

	assert.Equal(t, 2, c.Len())
	_, ok := c.Get(Key{Archive: 0})
	assert.False(t, ok)
	_, ok = c.Get(Key{Archive: 2})
	assert.True(t, ok)

	c.Clear()
	assert.Equal(t, 0, c.Len())
}

func TestNilCache(t *testing.T) {
	c, err := New(0)
	require.NoError(t, err)
	require.Nil(t, c)

	c.Add(Key{}, []byte("x"))
	_, ok := c.Get(Key{})
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
	c.Clear()

	_, err = New(-1)
	assert.Error(t, err)
}
