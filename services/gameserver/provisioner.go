package gameserver

import (
	"context"
	"fmt"
	"log"
	"net"
	"os/exec"
)

// Provisioner abstracts the authoritative simulation process so the
// orchestration logic can be tested without launching binaries.
type Provisioner interface {
	// ReservePort picks a free ephemeral port for a new server process.
	ReservePort(ctx context.Context) (int, error)
	// Address formats the host:port clients connect to on the given port.
	Address(port int) string
	// Start launches the detached process for a lobby on the given port.
	Start(ctx context.Context, lobbyID string, port int) error
}

// ExecProvisioner spawns the real game server binary.
type ExecProvisioner struct {
	// BinaryPath points at the simulation server executable.
	BinaryPath string
	// Host is the address advertised to clients, e.g. "127.0.0.1".
	Host string
}

func (p *ExecProvisioner) Address(port int) string {
	host := p.Host
	if host == "" {
		host = "127.0.0.1"
	}
	return fmt.Sprintf("%s:%d", host, port)
}

func (p *ExecProvisioner) ReservePort(ctx context.Context) (int, error) {
	listener, err := net.Listen("tcp", ":0")
	if err != nil {
		return 0, ErrNoPort
	}
	port := listener.Addr().(*net.TCPAddr).Port
	// The listener only existed to have the kernel pick a free port; the
	// spawned process binds it itself.
	listener.Close()
	return port, nil
}

func (p *ExecProvisioner) Start(ctx context.Context, lobbyID string, port int) error {
	cmd := exec.Command(p.BinaryPath,
		fmt.Sprintf("Level_MainLevel?port=%d", port),
		"-nopause",
		"-log",
		fmt.Sprintf("-server_id=%s", lobbyID))
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("error starting game server process: %v", err)
	}
	log.Printf("gameserver: started process pid=%d for lobby %s on port %d",
		cmd.Process.Pid, lobbyID, port)
	// Detach: reap the process in the background so it never zombifies.
	go func() {
		if err := cmd.Wait(); err != nil {
			log.Printf("gameserver: process for lobby %s exited: %v", lobbyID, err)
		}
	}()
	return nil
}
