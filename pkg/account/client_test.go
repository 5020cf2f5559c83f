package account

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTriplemd5(t *testing.T) {
	// md5("888888") -> "21218cca77804d2ba1922c33e0151105", applied three times.
	got := triplemd5("888888")
	assert.Len(t, got, 32)
	assert.NotEqual(t, "888888", got)
}

func TestGetCameraListFiltersIncompleteDescriptors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/app/v2/home_page/get_object_list":
			resp := map[string]any{
				"code": "1",
				"data": map[string]any{
					"device_list": []map[string]any{
						{
							"product_type":  "Camera",
							"product_model": "WYZECP1_JEF",
							"mac":           "2CAABBCCDDEE",
							"enr":           "AbCdEfGh/JkLmN0p",
							"nickname":      "Front Door",
							"device_params": map[string]any{
								"p2p_id": "p2p_id", "p2p_type": 1, "ip": "10.0.0.2",
							},
						},
						{
							// missing p2p_id: should be dropped
							"product_type":  "Camera",
							"product_model": "WYZECP1_JEF",
							"mac":           "2CAABBCCDDFF",
							"enr":           "AbCdEfGh/JkLmN0p",
							"device_params": map[string]any{"p2p_type": 1, "ip": "10.0.0.3"},
						},
						{
							"product_type": "Plug", // not a camera
						},
					},
				},
			}
			json.NewEncoder(w).Encode(resp)
		default:
			http.Error(w, "unexpected path", http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := New("phone-id", nil)
	c.accessToken = "token"
	c.appBaseURL = srv.URL

	cameras, err := c.GetCameraList(context.Background())
	require.NoError(t, err)
	require.Len(t, cameras, 1)
	assert.Equal(t, "p2p_id", cameras[0].UID)
	assert.Equal(t, "Front Door", cameras[0].Nickname)
}
