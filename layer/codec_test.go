package layer

import (
	"testing"

	"github.com/flowscan/batchload"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cachedUser struct {
	ID   int64
	Name string
}

func (u cachedUser) Validate() error {
	if u.ID == 0 {
		return errMissingID
	}
	return nil
}

var errMissingID = assert.AnError

func TestGobRoundTrip(t *testing.T) {
	payload, err := encodeGob(cachedUser{ID: 1, Name: "ada"})
	require.NoError(t, err)

	entry := batchload.DecodeEntry([]byte(payload), decodeGob[cachedUser])
	assert.Equal(t, batchload.CacheHit, entry.Outcome)
	assert.Equal(t, cachedUser{ID: 1, Name: "ada"}, entry.Value)
}

func TestGobNilPointer(t *testing.T) {
	var user *cachedUser
	payload, err := encodeGob(user)
	require.NoError(t, err)
	assert.Equal(t, nilPayload, payload)

	entry := batchload.DecodeEntry([]byte(payload), decodeGob[*cachedUser])
	assert.Equal(t, batchload.CacheHit, entry.Outcome)
	assert.Nil(t, entry.Value)
}

func TestGobInvalid(t *testing.T) {
	entry := batchload.DecodeEntry([]byte("garbage"), decodeGob[cachedUser])
	assert.Equal(t, batchload.CacheInvalid, entry.Outcome)
	assert.Error(t, entry.Err)

	// decodes fine but does not have the expected shape
	payload, err := encodeGob(cachedUser{Name: "no id"})
	require.NoError(t, err)
	entry = batchload.DecodeEntry([]byte(payload), decodeGob[cachedUser])
	assert.Equal(t, batchload.CacheInvalid, entry.Outcome)
	assert.ErrorIs(t, entry.Err, errMissingID)
}

func TestStringifyKeys(t *testing.T) {
	assert.Equal(t, []string{"user:1", "user:22"}, stringifyKeys([]int64{1, 22}, "user:"))
	assert.Empty(t, stringifyKeys([]int64{}, "user:"))
}
