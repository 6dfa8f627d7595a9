package utils

import (
	"strconv"
	"strings"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUUIDBase64RoundTrip(t *testing.T) {
	u := uuid.Must(uuid.NewV4())

	encoded := UUIDToBase64(u)
	assert.Equal(t, 22, len(encoded))
	assert.NotContains(t, encoded, "=")

	decoded, err := Base64ToUUID(encoded)
	require.NoError(t, err)
	assert.Equal(t, u, decoded)
}

func TestBase64ToUUIDInvalid(t *testing.T) {
	_, err := Base64ToUUID("не base64!")
	assert.Error(t, err)

	_, err = Base64ToUUID("AAAA")
	assert.Error(t, err)
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "короткая", TruncateRunes("короткая", 50))
	assert.Equal(t, "", TruncateRunes("", 10))

	long := strings.Repeat("я", 60)
	truncated := TruncateRunes(long, 50)
	assert.Equal(t, 50, len([]rune(truncated)))
	assert.True(t, strings.HasSuffix(truncated, "..."))

	assert.Equal(t, "аб", TruncateRunes("абвгд", 2))
}

func TestSliceToSlice(t *testing.T) {
	in := []int{1, 2, 3}
	out := SliceToSlice(&in, func(v *int) string { return strconv.Itoa(*v) })
	assert.Equal(t, []string{"1", "2", "3"}, out)

	assert.Nil(t, SliceToSlice[int, string](nil, nil))
}
