package executor

import "testing"

func TestParsePID(t *testing.T) {
	cases := []struct {
		name   string
		stdout string
		want   *int
	}{
		{"no pid line", "creada correctamente\nok\n", nil},
		{"plain pid", "VM launched, PID 1234\n", intp(1234)},
		{"parenthesized pid", "started (PID: (5678))\n", intp(5678)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := parsePID(tc.stdout)
			if tc.want == nil {
				if got != nil {
					t.Fatalf("expected nil pid, got %d", *got)
				}
				return
			}
			if got == nil || *got != *tc.want {
				t.Fatalf("expected pid %d, got %v", *tc.want, got)
			}
		})
	}
}

func TestJoinVLANs(t *testing.T) {
	if got := joinVLANs(nil); got != "0" {
		t.Fatalf("expected \"0\", got %q", got)
	}
	if got := joinVLANs([]int{100, 200}); got != "100,200" {
		t.Fatalf("expected \"100,200\", got %q", got)
	}
}

func intp(v int) *int { return &v }
