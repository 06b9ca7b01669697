package pairing

import (
	"bytes"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nixie-Tech-LLC/beacon/internal/model"
)

func TestPairingURL(t *testing.T) {
	id := model.Identity{PIN: "AB12", ScreenID: "scr_01"}

	link, err := PairingURL(id, "http://controller:8080/", "http://screen:3000")
	require.NoError(t, err)

	u, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, "/api/pair", u.Path)
	assert.Equal(t, "scr_01", u.Query().Get("screenId"))
	assert.Equal(t, "AB12", u.Query().Get("pin"))
	assert.Equal(t, "http://screen:3000", u.Query().Get("callback"))

	_, err = PairingURL(id, "", "http://screen:3000")
	assert.ErrorIs(t, err, model.ErrMissingFields)
}

func TestRenderPairingCode(t *testing.T) {
	png, err := RenderPairingCode("http://controller/api/pair?screenId=scr_01&pin=AB12")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))
}
