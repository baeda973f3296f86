package tesira

import (
	"bufio"
	"fmt"
	"io"
	"time"

	"golang.org/x/crypto/ssh"
)

// SSHConfig holds connection settings for DialSSH.
type SSHConfig struct {
	// Addr is the device address, host:port. Port 22 unless the
	// device was reconfigured.
	Addr string

	// User is the login user, "default" on stock firmware.
	User string

	// Password authenticates the user. Devices accept it over both
	// password and keyboard-interactive, so both are attempted.
	Password string

	// HostKeyCallback verifies the device host key. If nil, any key
	// is accepted; devices ship with self-signed keys, so pinning with
	// ssh.FixedHostKey is the hardened alternative.
	HostKeyCallback ssh.HostKeyCallback

	// Timeout bounds the TCP connect. Zero means no limit.
	Timeout time.Duration
}

// sshTransport frames lines over an interactive SSH shell session.
type sshTransport struct {
	client  *ssh.Client
	session *ssh.Session
	stdin   io.WriteCloser
	reader  *bufio.Reader
}

// DialSSH connects to a device over SSH and starts the interactive
// shell the protocol server is bound to.
func DialSSH(config SSHConfig) (Transport, error) {
	user := config.User
	if user == "" {
		user = "default"
	}

	hostKey := config.HostKeyCallback
	if hostKey == nil {
		hostKey = ssh.InsecureIgnoreHostKey()
	}

	answerAll := func(name, instruction string, questions []string, echos []bool) ([]string, error) {
		answers := make([]string, len(questions))
		for i := range answers {
			answers[i] = config.Password
		}
		return answers, nil
	}

	clientConfig := &ssh.ClientConfig{
		User: user,
		Auth: []ssh.AuthMethod{
			ssh.Password(config.Password),
			ssh.KeyboardInteractive(answerAll),
		},
		HostKeyCallback: hostKey,
		Timeout:         config.Timeout,
	}

	client, err := ssh.Dial("tcp", config.Addr, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("tesira: ssh dial %s: %w", config.Addr, err)
	}

	transport, err := newSSHTransport(client)
	if err != nil {
		client.Close()
		return nil, err
	}
	return transport, nil
}

func newSSHTransport(client *ssh.Client) (Transport, error) {
	session, err := client.NewSession()
	if err != nil {
		return nil, fmt.Errorf("tesira: opening ssh session: %w", err)
	}

	// The protocol server only talks on an interactive shell with a
	// pty attached; without one the device closes the channel.
	modes := ssh.TerminalModes{
		ssh.ECHO: 0,
	}
	if err := session.RequestPty("ansi", 24, 80, modes); err != nil {
		session.Close()
		return nil, fmt.Errorf("tesira: requesting pty: %w", err)
	}

	stdin, err := session.StdinPipe()
	if err != nil {
		session.Close()
		return nil, fmt.Errorf("tesira: opening stdin: %w", err)
	}
	stdout, err := session.StdoutPipe()
	if err != nil {
		session.Close()
		return nil, fmt.Errorf("tesira: opening stdout: %w", err)
	}

	if err := session.Shell(); err != nil {
		session.Close()
		return nil, fmt.Errorf("tesira: starting shell: %w", err)
	}

	return &sshTransport{
		client:  client,
		session: session,
		stdin:   stdin,
		reader:  bufio.NewReader(stdout),
	}, nil
}

func (t *sshTransport) ReadLine() (string, error) {
	line, err := t.reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return trimLineEnding(line), nil
}

func (t *sshTransport) Write(p []byte) error {
	_, err := t.stdin.Write(p)
	return err
}

func (t *sshTransport) Close() error {
	t.session.Close()
	return t.client.Close()
}
