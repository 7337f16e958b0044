// ThreatLens - Live Threat Analysis Synthesis Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/threatlens

package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
)

// runNATSServer starts an in-process NATS server on a random port.
func runNATSServer(t *testing.T) *server.Server {
	t.Helper()

	ns, err := server.NewServer(&server.Options{
		ServerName: "threatlens-test",
		Host:       "127.0.0.1",
		Port:       server.RANDOM_PORT,
		NoLog:      true,
		NoSigs:     true,
	})
	if err != nil {
		t.Fatalf("create NATS server: %v", err)
	}
	go ns.Start()
	if !ns.ReadyForConnections(5 * time.Second) {
		ns.Shutdown()
		t.Fatal("NATS server not ready within timeout")
	}
	t.Cleanup(func() {
		ns.Shutdown()
		ns.WaitForShutdown()
	})
	return ns
}

func publisherConn(t *testing.T, url string) *nats.Conn {
	t.Helper()
	nc, err := nats.Connect(url)
	if err != nil {
		t.Fatalf("connect publisher: %v", err)
	}
	t.Cleanup(nc.Close)
	return nc
}

// receiveWithin fails the test when conn delivers nothing within d.
func receiveWithin(t *testing.T, conn Conn, d time.Duration) ([]byte, error) {
	t.Helper()
	type result struct {
		data []byte
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		data, err := conn.Receive()
		ch <- result{data, err}
	}()
	select {
	case r := <-ch:
		return r.data, r.err
	case <-time.After(d):
		t.Fatalf("Receive did not return within %s", d)
		return nil, nil
	}
}

func TestNATSSource_ReceiveAndSend(t *testing.T) {
	t.Parallel()

	ns := runNATSServer(t)
	pub := publisherConn(t, ns.ClientURL())

	heartbeats, err := pub.SubscribeSync("threatlens.heartbeat")
	if err != nil {
		t.Fatal(err)
	}
	if err := pub.Flush(); err != nil {
		t.Fatal(err)
	}

	src := NewNATSSource(NATSConfig{
		URL:              ns.ClientURL(),
		Subject:          "threatlens.analysis",
		HeartbeatSubject: "threatlens.heartbeat",
	})
	if src.Name() != "nats" {
		t.Errorf("Name() = %q", src.Name())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, err := src.Connect(ctx)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer conn.Close()

	frame := `{"session_id":"n1","score":0.4}`
	if err := pub.Publish("threatlens.analysis", []byte(frame)); err != nil {
		t.Fatal(err)
	}
	got, err := receiveWithin(t, conn, 5*time.Second)
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if string(got) != frame {
		t.Errorf("Receive() = %s, want %s", got, frame)
	}

	if err := conn.Send([]byte(`{"type":"heartbeat"}`)); err != nil {
		t.Fatalf("Send: %v", err)
	}
	msg, err := heartbeats.NextMsg(5 * time.Second)
	if err != nil {
		t.Fatalf("heartbeat not delivered: %v", err)
	}
	if string(msg.Data) != `{"type":"heartbeat"}` {
		t.Errorf("heartbeat = %s", msg.Data)
	}

	if err := conn.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	if _, err := conn.Receive(); !errors.Is(err, ErrClosed) {
		t.Errorf("Receive after Close = %v, want ErrClosed", err)
	}
}

func TestNATSSource_ServerShutdownFailsReceive(t *testing.T) {
	t.Parallel()

	ns := runNATSServer(t)
	src := NewNATSSource(NATSConfig{URL: ns.ClientURL(), Subject: "threatlens.analysis"})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, err := src.Connect(ctx)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer conn.Close()

	// Send without a heartbeat subject is a no-op.
	if err := conn.Send([]byte(`{"type":"heartbeat"}`)); err != nil {
		t.Errorf("Send: %v", err)
	}

	errCh := make(chan error, 1)
	go func() {
		_, err := conn.Receive()
		errCh <- err
	}()

	ns.Shutdown()

	select {
	case err := <-errCh:
		if err == nil {
			t.Error("Receive() returned nil error after server shutdown")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Receive did not unblock after server shutdown")
	}
}

func TestNATSSource_ConnectRefused(t *testing.T) {
	t.Parallel()

	src := NewNATSSource(NATSConfig{URL: "nats://127.0.0.1:1", Subject: "threatlens.analysis"})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if _, err := src.Connect(ctx); err == nil {
		t.Fatal("Connect() to a closed port succeeded")
	}
}

func TestNATSSource_EndToEnd(t *testing.T) {
	t.Parallel()

	ns := runNATSServer(t)
	pub := publisherConn(t, ns.ClientURL())

	src := NewNATSSource(NATSConfig{URL: ns.ClientURL(), Subject: "threatlens.analysis"})
	engine := newEngine()
	c := NewController(testConfig(), src, engine)
	runController(t, c)

	waitFor(t, "controller connected", func() bool { return c.Status().State == StateConnected })

	frames := []string{
		`{"session_id":"n","timestamp":"2026-03-01T12:00:00Z","score":0.2}`,
		`{"type":"heartbeat_response"}`,
		`{"session_id":"n","timestamp":"2026-03-01T12:00:00Z","score":0.2}`,
		`{"session_id":"n","timestamp":"2026-03-01T12:00:01Z","score":0.9}`,
	}
	for _, f := range frames {
		if err := pub.Publish("threatlens.analysis", []byte(f)); err != nil {
			t.Fatal(err)
		}
	}
	if err := pub.Flush(); err != nil {
		t.Fatal(err)
	}

	waitFor(t, "frames handled", func() bool { return engine.Metrics().FramesHandled == 4 })

	if got := engine.Snapshot().Summary.TotalEvents; got != 2 {
		t.Errorf("total events = %d, want 2", got)
	}
	if got := engine.Metrics().Duplicates; got != 1 {
		t.Errorf("duplicates = %d, want 1", got)
	}
}
