package control

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/dome-wm/dome/internal/dome"
	"github.com/dome-wm/dome/internal/util"
)

func TestServerHandleForwardsCommandAndWritesReply(t *testing.T) {
	logger := util.NewLoggerWithWriter(util.LevelError, io.Discard)
	commands := make(chan dome.IpcRequest, 1)
	srv := &Server{commands: commands, logger: logger}

	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()

	go func() {
		req := <-commands
		if req.Line != "focus next" {
			t.Errorf("unexpected command line %q", req.Line)
		}
		req.Reply <- "OK"
	}()

	done := make(chan struct{})
	go func() {
		srv.handle(context.Background(), serverConn)
		close(done)
	}()

	if _, err := clientConn.Write([]byte("focus next\n")); err != nil {
		t.Fatalf("write command: %v", err)
	}
	clientConn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 64)
	n, err := clientConn.Read(buf)
	if err != nil {
		t.Fatalf("read reply: %v", err)
	}
	if got := string(buf[:n]); got != "OK\n" {
		t.Fatalf("expected OK reply, got %q", got)
	}
	<-done
}

func TestServerHandleRejectsEmptyCommand(t *testing.T) {
	logger := util.NewLoggerWithWriter(util.LevelError, io.Discard)
	commands := make(chan dome.IpcRequest, 1)
	srv := &Server{commands: commands, logger: logger}

	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()

	go srv.handle(context.Background(), serverConn)

	if _, err := clientConn.Write([]byte("\n")); err != nil {
		t.Fatalf("write command: %v", err)
	}
	clientConn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 64)
	n, err := clientConn.Read(buf)
	if err != nil {
		t.Fatalf("read reply: %v", err)
	}
	if got := string(buf[:n]); got != "ERR: empty command\n" {
		t.Fatalf("unexpected reply %q", got)
	}
}

func TestServerHandlePropagatesDispatcherError(t *testing.T) {
	logger := util.NewLoggerWithWriter(util.LevelError, io.Discard)
	commands := make(chan dome.IpcRequest, 1)
	srv := &Server{commands: commands, logger: logger}

	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()

	go func() {
		req := <-commands
		req.Reply <- "ERR: unknown command \"bogus\""
	}()

	go srv.handle(context.Background(), serverConn)

	if _, err := clientConn.Write([]byte("bogus\n")); err != nil {
		t.Fatalf("write command: %v", err)
	}
	clientConn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 64)
	n, err := clientConn.Read(buf)
	if err != nil {
		t.Fatalf("read reply: %v", err)
	}
	if got := string(buf[:n]); got != "ERR: unknown command \"bogus\"\n" {
		t.Fatalf("unexpected reply %q", got)
	}
}
