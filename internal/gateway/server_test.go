package gateway

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startServer(t *testing.T, cfg ServerConfig) *Server {
	t.Helper()
	cfg.Host = "127.0.0.1"
	s, err := Start(cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func getRoot(t *testing.T, s *Server) (RootResponse, *http.Response) {
	t.Helper()
	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/api/1.0/", s.Port()))
	require.NoError(t, err)
	defer resp.Body.Close()

	var body RootResponse
	if resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	}
	return body, resp
}

func TestRootHandsOutPortsRoundRobin(t *testing.T) {
	s := startServer(t, ServerConfig{Sockets: 3})
	ports := s.Ports()
	require.Len(t, ports, 3)

	for i := 0; i < 6; i++ {
		body, resp := getRoot(t, s)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "OK", body.Result)
		assert.Equal(t, ports, body.Ports)
		assert.Equal(t, ports[i%3], body.UsePort)
	}
	assert.Equal(t, int64(6), s.GatewayHits())
}

func TestRootRejectsOtherMethods(t *testing.T) {
	s := startServer(t, ServerConfig{})
	resp, err := http.Post(fmt.Sprintf("http://127.0.0.1:%d/api/1.0/", s.Port()), "text/plain", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestNodesAnswerPost(t *testing.T) {
	s := startServer(t, ServerConfig{Sockets: 2})

	for _, port := range s.Ports() {
		resp, err := http.Post(fmt.Sprintf("http://127.0.0.1:%d/api/1.0/nodes", port), "text/plain", nil)
		require.NoError(t, err)
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, nodeBody, string(body))
		assert.Equal(t, "text/html", resp.Header.Get("Content-Type"))
	}
	assert.Equal(t, int64(2), s.NodeHits())

	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/api/1.0/nodes", s.Ports()[0]))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestFailureInjection(t *testing.T) {
	s := startServer(t, ServerConfig{FailRate: 1, GatewayFailRate: 1})

	_, resp := getRoot(t, s)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	nresp, err := http.Post(fmt.Sprintf("http://127.0.0.1:%d/api/1.0/nodes", s.Ports()[0]), "text/plain", nil)
	require.NoError(t, err)
	nresp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, nresp.StatusCode)
	assert.Equal(t, int64(2), s.Rejected())
}
