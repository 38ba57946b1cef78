// Package executor is the Remote Executor: it opens an authenticated SSH
// session to a worker gateway and drives the on-worker provisioning
// scripts, the way the teacher's internal/reconciler dials a worker to run
// docker commands (deployContainerToVM / executeSSHCommand in
// reconciler.go) — same dial-session-CombinedOutput shape, different
// remote command.
package executor

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
)

const (
	createScriptPath   = "/home/ubuntu/joyastack/scripts/vm_create.sh"
	destroyScriptPath  = "/home/ubuntu/joyastack/scripts/vm_destroy.sh"
	connectTimeout     = 30 * time.Second
	successMarker      = "creada correctamente"
)

// Result is the structured outcome of one remote command, per spec.md
// §4.4: it never raises out of the Executor, even on connection failure.
type Result struct {
	Success bool
	Stdout  string
	Stderr  string
	PID     *int
	VLANs   []int
}

// Executor dials worker gateways over SSH using a single configured key
// and user, mirroring the teacher's single shared SSH credential model.
type Executor struct {
	signer  ssh.Signer
	user    string
	gateway string
}

// New loads the private key from path and builds an Executor that targets
// the given gateway host (workers are reached at gateway:port, per
// spec.md §4.4: "gateway_host:port").
func New(user, gateway, privateKeyPath string) (*Executor, error) {
	keyBytes, err := os.ReadFile(privateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("read ssh private key: %w", err)
	}
	signer, err := ssh.ParsePrivateKey(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("parse ssh private key: %w", err)
	}
	return &Executor{signer: signer, user: user, gateway: gateway}, nil
}

func (e *Executor) clientConfig() *ssh.ClientConfig {
	return &ssh.ClientConfig{
		User:            e.user,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(e.signer)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         connectTimeout,
	}
}

// CreateVMMultiVLAN implements the create_vm_multi_vlan contract of
// spec.md §4.4: opens a shell to gateway:port, runs the provisioning
// script with vlans joined comma-separated ("0" if empty), and parses the
// result. Connection errors, auth failures and non-zero exit codes all
// come back as Result{Success:false}, never an error return — matching
// "they never raise out of the Executor".
func (e *Executor) CreateVMMultiVLAN(ctx context.Context, sshPort int, vmName, bridge string, vlans []int, vncPort, cpu, ram, disk, numIfaces int, imagePath string) *Result {
	cmd := fmt.Sprintf("sudo %s %s %s %s %d %d %d %d %d %s",
		createScriptPath, vmName, bridge, joinVLANs(vlans), vncPort, cpu, ram, disk, numIfaces, imagePath)

	stdout, stderr, err := e.run(ctx, sshPort, cmd)
	result := &Result{Stdout: stdout, Stderr: stderr, VLANs: vlans}
	if err != nil {
		result.Success = false
		result.Stderr = err.Error()
		return result
	}

	result.Success = strings.TrimSpace(stderr) == "" || strings.Contains(stdout, successMarker)
	result.PID = parsePID(stdout)
	return result
}

// Teardown best-effort kills the hypervisor process and removes OvS
// ports/tap interfaces matching vmName. Failures are logged by the caller,
// never surfaced as a hard error, per spec.md §4.1's delete contract.
func (e *Executor) Teardown(ctx context.Context, sshPort int, vmName string) *Result {
	cmd := fmt.Sprintf("sudo %s %s", destroyScriptPath, vmName)
	stdout, stderr, err := e.run(ctx, sshPort, cmd)
	if err != nil {
		return &Result{Success: false, Stderr: err.Error()}
	}
	return &Result{
		Success: strings.TrimSpace(stderr) == "",
		Stdout:  stdout,
		Stderr:  stderr,
	}
}

// run opens a fresh connection and session per call (the teacher's
// reconciler does the same — no pooled SSH clients) and guarantees the
// session and client are closed on every exit path.
func (e *Executor) run(ctx context.Context, sshPort int, cmd string) (stdout, stderr string, err error) {
	addr := fmt.Sprintf("%s:%d", e.gateway, sshPort)

	client, err := ssh.Dial("tcp", addr, e.clientConfig())
	if err != nil {
		return "", "", fmt.Errorf("dial %s: %w", addr, err)
	}
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return "", "", fmt.Errorf("open session: %w", err)
	}
	defer session.Close()

	var outBuf, errBuf strings.Builder
	session.Stdout = &outBuf
	session.Stderr = &errBuf

	done := make(chan error, 1)
	go func() { done <- session.Run(cmd) }()

	select {
	case <-ctx.Done():
		return outBuf.String(), errBuf.String(), ctx.Err()
	case runErr := <-done:
		if runErr != nil {
			return outBuf.String(), errBuf.String(), runErr
		}
		return outBuf.String(), errBuf.String(), nil
	}
}

// joinVLANs renders the VLAN list as a comma-separated argument, "0" when
// empty, per spec.md §4.4.
func joinVLANs(vlans []int) string {
	if len(vlans) == 0 {
		return "0"
	}
	parts := make([]string, len(vlans))
	for i, v := range vlans {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

// parsePID finds the first line containing "PID" and extracts its last
// whitespace-separated numeric field, stripped of surrounding parentheses
// (spec.md §4.4: "last whitespace-separated numeric field, stripped of
// parentheses").
func parsePID(stdout string) *int {
	for _, line := range strings.Split(stdout, "\n") {
		if !strings.Contains(line, "PID") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		last := strings.Trim(fields[len(fields)-1], "()")
		pid, err := strconv.Atoi(last)
		if err != nil {
			continue
		}
		return &pid
	}
	return nil
}
