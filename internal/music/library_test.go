package music

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bedtime-server/internal/models"
)

func TestLibrary_ResolveKnownTrack(t *testing.T) {
	lib := NewLibrary("/media/music")

	url, err := lib.ResolveURL("gentle-lullaby")
	require.NoError(t, err)
	assert.Equal(t, "/media/music/gentle-lullaby.mp3", url)
}

func TestLibrary_NoMusicResolvesToEmptyURL(t *testing.T) {
	lib := NewLibrary("/media/music")

	url, err := lib.ResolveURL(models.MusicNone)
	require.NoError(t, err)
	assert.Empty(t, url)

	url, err = lib.ResolveURL("")
	require.NoError(t, err)
	assert.Empty(t, url)
}

func TestLibrary_UnknownTrack(t *testing.T) {
	lib := NewLibrary("/media/music")

	_, err := lib.ResolveURL("death-metal")
	require.ErrorIs(t, err, models.ErrNotFound)
}

func TestLibrary_ListIsACopy(t *testing.T) {
	lib := NewLibrary("/media/music")

	list := lib.List()
	require.NotEmpty(t, list)
	list[0].Title = "mutated"

	assert.NotEqual(t, "mutated", lib.List()[0].Title)
}
