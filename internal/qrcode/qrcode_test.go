package qrcode

import (
	"bytes"
	"encoding/base64"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildClaimURL(t *testing.T) {
	require.Equal(t, "https://lottery.example/?spot_id=Ab3dEf6hIj9lMn", BuildClaimURL("https://lottery.example", "Ab3dEf6hIj9lMn"))
	require.Equal(t, "http://localhost:4500/?spot_id=S1", BuildClaimURL("http://localhost:4500/", "S1"))
	require.Equal(t, "http://h/?spot_id=a%26b", BuildClaimURL("http://h", "a&b"))
	require.Equal(t, BuildClaimURL("http://h", "S1"), BuildClaimURL("http://h", "S1"))
}

func TestClampSize(t *testing.T) {
	for in, want := range map[int]int{
		0:    DefaultSize,
		-5:   DefaultSize,
		50:   MinSize,
		100:  100,
		420:  420,
		1000: 1000,
		5000: MaxSize,
	} {
		require.Equal(t, want, ClampSize(in), in)
	}
}

func TestRender(t *testing.T) {
	raw, err := Render("http://localhost:4500/?spot_id=S1", 200)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	require.Equal(t, 200, img.Bounds().Dx())
	require.Equal(t, 200, img.Bounds().Dy())

	clamped, err := Render("x", 10)
	require.NoError(t, err)
	img, err = png.Decode(bytes.NewReader(clamped))
	require.NoError(t, err)
	require.Equal(t, MinSize, img.Bounds().Dx())
}

func TestDataURL(t *testing.T) {
	got := DataURL([]byte{1, 2, 3})
	require.True(t, strings.HasPrefix(got, "data:image/png;base64,"))
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(got, "data:image/png;base64,"))
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, decoded)
}
