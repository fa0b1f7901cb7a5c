package session

import (
	"net"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func TestWriteLoopReleasedWhenConnectionCloses(t *testing.T) {
	_, server := net.Pipe()
	defer server.Close()

	s := &Session{limiter: rate.NewLimiter(rate.Inf, 1)}
	writes := make(chan string, 4)
	errs := make(chan error, 1)
	done := make(chan struct{})
	exited := make(chan struct{})

	go func() {
		s.writeLoop(server, writes, errs, done)
		close(exited)
	}()

	close(done)
	select {
	case <-exited:
	case <-time.After(time.Second):
		t.Fatal("writeLoop parked past its connection's lifetime")
	}

	// A command queued after teardown waits for the next connection's
	// loop instead of being stolen and lost against the dead conn
	writes <- "who\r\n"
	if len(writes) != 1 {
		t.Error("stale loop consumed a command after exit")
	}
	if len(errs) != 0 {
		t.Errorf("stale loop reported a spurious error: %v", <-errs)
	}
}

func TestWriteLoopDeliversOnItsOwnConnection(t *testing.T) {
	// A dead previous connection with its own released loop
	_, oldServer := net.Pipe()
	oldServer.Close()
	oldDone := make(chan struct{})

	s := &Session{limiter: rate.NewLimiter(rate.Inf, 1)}
	go s.writeLoop(oldServer, make(chan string, 1), make(chan error, 1), oldDone)
	close(oldDone)

	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	writes := make(chan string, 1)
	errs := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)
	go s.writeLoop(server, writes, errs, done)

	writes <- "look\r\n"

	buf := make([]byte, 16)
	client.SetReadDeadline(time.Now().Add(time.Second))
	n, err := client.Read(buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(buf[:n]) != "look\r\n" {
		t.Errorf("got %q", buf[:n])
	}
	if len(errs) != 0 {
		t.Errorf("unexpected error: %v", <-errs)
	}
}
