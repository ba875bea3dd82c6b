package serve

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBindAddress(t *testing.T) {
	require.Equal(t, "localhost:3000", bindAddress("localhost:3000", false, ""))
	require.Equal(t, ":8080", bindAddress("localhost:3000", false, "8080"))
	require.Equal(t, "127.0.0.1:9000", bindAddress("127.0.0.1:9000", true, "8080"))
}
