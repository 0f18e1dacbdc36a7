package listener

import (
	"bufio"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"io"
	"net"
	"testing"
	"time"

	"github.com/pixil98/go-testutil"
	"golang.org/x/crypto/ssh"
)

// echoRunner reads one line and answers with a fixed reply.
type echoRunner struct {
	reply string
	lines chan string
}

func (r *echoRunner) RunSession(_ context.Context, rw io.ReadWriter) error {
	scanner := bufio.NewScanner(rw)
	if scanner.Scan() {
		r.lines <- scanner.Text()
	}
	_, err := io.WriteString(rw, r.reply+"\n")
	return err
}

func newHostKey(t *testing.T) ssh.Signer {
	t.Helper()
	_, key, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generating key: %v", err)
	}
	signer, err := ssh.NewSignerFromKey(key)
	if err != nil {
		t.Fatalf("creating signer: %v", err)
	}
	return signer
}

// serveOne accepts a single tcp connection and hands it to the listener.
func serveOne(t *testing.T, ctx context.Context, l *SshListener) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listening: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		l.handleConnection(ctx, conn, l.serverConfig())
	}()
	return ln.Addr().String()
}

func TestSshListener_Session(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runner := &echoRunner{reply: "hello", lines: make(chan string, 1)}
	cm := NewConnectionManager(runner)
	l := NewSshListener(0, cm, newHostKey(t), WithPassword("secret"))
	addr := serveOne(t, ctx, l)

	client, err := ssh.Dial("tcp", addr, &ssh.ClientConfig{
		User:            "operator",
		Auth:            []ssh.AuthMethod{ssh.Password("secret")},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         5 * time.Second,
	})
	if err != nil {
		t.Fatalf("dialing: %v", err)
	}
	defer client.Close()

	sess, err := client.NewSession()
	if err != nil {
		t.Fatalf("opening session: %v", err)
	}
	defer sess.Close()

	stdin, err := sess.StdinPipe()
	if err != nil {
		t.Fatalf("stdin: %v", err)
	}
	stdout, err := sess.StdoutPipe()
	if err != nil {
		t.Fatalf("stdout: %v", err)
	}
	if err := sess.Shell(); err != nil {
		t.Fatalf("requesting shell: %v", err)
	}

	if _, err := io.WriteString(stdin, "who\r"); err != nil {
		t.Fatalf("writing: %v", err)
	}

	select {
	case line := <-runner.lines:
		testutil.AssertEqual(t, "line", line, "who")
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for the session to read")
	}

	got, err := bufio.NewReader(stdout).ReadString('\n')
	if err != nil {
		t.Fatalf("reading: %v", err)
	}
	testutil.AssertEqual(t, "reply", got, "hello\r\n")
}

func TestSshListener_WrongPassword(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runner := &echoRunner{reply: "hello", lines: make(chan string, 1)}
	l := NewSshListener(0, NewConnectionManager(runner), newHostKey(t), WithPassword("secret"))
	addr := serveOne(t, ctx, l)

	_, err := ssh.Dial("tcp", addr, &ssh.ClientConfig{
		User:            "operator",
		Auth:            []ssh.AuthMethod{ssh.Password("guess")},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         5 * time.Second,
	})
	testutil.AssertErrorContains(t, err, "unable to authenticate")
}
