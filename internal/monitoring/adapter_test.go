package monitoring

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHostIDFromInstance(t *testing.T) {
	require.Equal(t, "host154", hostIDFromInstance("10.20.12.154:9100"))
	require.Equal(t, "host1", hostIDFromInstance("192.168.0.1:9100"))
}

func TestGetHosts_QueriesPrometheus(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/targets", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"success","data":{"activeTargets":[
			{"labels":{"job":"nodes","instance":"10.20.12.154:9100"},"health":"up"},
			{"labels":{"job":"nodes","instance":"10.20.12.155:9100"},"health":"down"}
		]}}`))
	})
	mux.HandleFunc("/api/v1/query", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("query")
		var value string
		switch {
		case contains(q, "node_cpu_seconds_total"):
			value = "8"
		case contains(q, "MemTotal"):
			value = "17179869184" // 16 GiB
		case contains(q, "node_filesystem_size_bytes"):
			value = "107374182400" // 100 GiB
		case contains(q, "avg_over_time(up"):
			value = "0.995"
		default:
			value = "0"
		}
		w.Write([]byte(`{"status":"success","data":{"result":[{"value":[0,"` + value + `"]}]}}`))
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	a := NewAdapter(srv.URL, 100, 250)
	hosts := a.GetHosts(context.Background())

	require.Len(t, hosts, 1)
	require.Equal(t, "host154", hosts[0].ID)
	require.Equal(t, 8.0, hosts[0].CPUTotal)
	require.InDelta(t, 16.0, hosts[0].RAMTotal, 0.01)
	require.InDelta(t, 100.0, hosts[0].StorageTotal, 0.01)
	require.InDelta(t, 0.995, hosts[0].Availability, 0.001)
}

func contains(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
