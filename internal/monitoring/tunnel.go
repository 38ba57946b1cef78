// Package monitoring is the Monitoring Adapter: a persistent SSH tunnel to
// the worker fleet's Prometheus endpoint, plus the query layer that
// normalizes its output into placement.Host snapshots.
package monitoring

import (
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"
)

// Tunnel is the lifecycle object spec.md §9 asks for: the teacher's
// cmd/e2e/tunnel.go shells out to `ssh -R ...` and tracks a PID; we
// replace the subprocess with a first-class ssh.Client-backed local
// forwarder (no process management, no signal plumbing) while keeping the
// same explicit Start/Close shape. It has no liveness check and does not
// reconnect after the SSH connection drops.
type Tunnel struct {
	client   *ssh.Client
	listener net.Listener
	remote   string
	logger   *slog.Logger

	wg        sync.WaitGroup
	closeOnce sync.Once
}

// StartTunnel dials sshAddr, listens on 127.0.0.1:localPort, and forwards
// every accepted connection to remoteAddr through the SSH connection —
// the Go equivalent of `ssh -L localPort:remoteAddr sshAddr`.
func StartTunnel(sshAddr string, sshConfig *ssh.ClientConfig, localPort int, remoteAddr string, logger *slog.Logger) (*Tunnel, error) {
	client, err := ssh.Dial("tcp", sshAddr, sshConfig)
	if err != nil {
		return nil, fmt.Errorf("dial monitoring ssh host %s: %w", sshAddr, err)
	}

	localAddr := fmt.Sprintf("127.0.0.1:%d", localPort)
	listener, err := net.Listen("tcp", localAddr)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("listen on %s: %w", localAddr, err)
	}

	t := &Tunnel{client: client, listener: listener, remote: remoteAddr, logger: logger}
	t.wg.Add(1)
	go t.acceptLoop()
	return t, nil
}

func (t *Tunnel) acceptLoop() {
	defer t.wg.Done()
	for {
		conn, err := t.listener.Accept()
		if err != nil {
			return
		}
		t.wg.Add(1)
		go t.forward(conn)
	}
}

func (t *Tunnel) forward(local net.Conn) {
	defer t.wg.Done()
	defer local.Close()

	remote, err := t.client.Dial("tcp", t.remote)
	if err != nil {
		if t.logger != nil {
			t.logger.Warn("monitoring tunnel: remote dial failed", "remote", t.remote, "error", err)
		}
		return
	}
	defer remote.Close()

	var copyWG sync.WaitGroup
	copyWG.Add(2)
	go func() { defer copyWG.Done(); io.Copy(remote, local) }()
	go func() { defer copyWG.Done(); io.Copy(local, remote) }()
	copyWG.Wait()
}

// LocalAddr is the address callers should point their HTTP client at.
func (t *Tunnel) LocalAddr() string {
	return t.listener.Addr().String()
}

// Close tears down the listener and the underlying SSH client, then waits
// for in-flight forwards to drain. Safe to call once; re-establishment on
// failure is explicitly out of scope (spec.md §5: "process-wide state,
// established at startup and torn down at shutdown").
func (t *Tunnel) Close() error {
	var err error
	t.closeOnce.Do(func() {
		err = t.listener.Close()
		t.client.Close()
	})

	done := make(chan struct{})
	go func() { t.wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
	}
	return err
}
