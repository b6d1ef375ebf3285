package operations

import (
	"net"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPortConflicts(t *testing.T) {
	conflicts := PortConflicts(PortMap{
		"web":      3000,
		"docs":     3000,
		"api":      8080,
		"postgres": 5432,
		"admin":    8080,
		"grafana":  8080,
	})

	assert.Equal(t, []PortConflict{
		{Port: 3000, Services: []string{"docs", "web"}},
		{Port: 8080, Services: []string{"admin", "api", "grafana"}},
	}, conflicts)

	assert.Empty(t, PortConflicts(PortMap{"api": 8080}))
}

func TestReadWritePortMap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ports.json")
	require.NoError(t, WritePortMap(path, PortMap{"api": 8080, "web": 3000}))

	m, err := ReadPortMap(path)
	require.NoError(t, err)
	assert.Equal(t, PortMap{"api": 8080, "web": 3000}, m)
}

func TestCheckPorts(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	busy := l.Addr().(*net.TCPAddr).Port

	statuses := CheckPorts(PortMap{"busy": busy, "invalid": 0})
	require.Len(t, statuses, 2)

	assert.Equal(t, "busy", statuses[0].Service)
	assert.False(t, statuses[0].Free)
	assert.NotEmpty(t, statuses[0].Error)

	assert.Equal(t, "invalid", statuses[1].Service)
	assert.False(t, statuses[1].Free)
	assert.Equal(t, "invalid port 0", statuses[1].Error)
}
