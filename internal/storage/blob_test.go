package storage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindForContentType(t *testing.T) {
	kind, err := KindForContentType("image/png")
	require.NoError(t, err)
	assert.Equal(t, "image", kind)

	kind, err = KindForContentType(" Audio/MPEG ")
	require.NoError(t, err)
	assert.Equal(t, "audio", kind)

	_, err = KindForContentType("application/x-msdownload")
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestObjectKeyKeepsExtension(t *testing.T) {
	key := ObjectKey("Holiday Photo.JPG")
	assert.True(t, strings.HasSuffix(key, ".jpg"))
	assert.NotEqual(t, ObjectKey("a.png"), ObjectKey("a.png"))
}
