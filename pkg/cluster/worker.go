package cluster

import (
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/df07/go-geodesic-raytracer/pkg/renderer"
)

// Serve runs one worker session on an established connection: handshake,
// scene build, then the pull loop until the controller terminates the
// session or hangs up. The local thread-parallel path computes each chunk.
func Serve(nc net.Conn) error {
	c := newConn(nc)
	defer c.close()

	if err := c.send(Envelope{Kind: MsgHello, Version: ProtocolVersion}); err != nil {
		return err
	}
	e, err := c.expect(MsgScene)
	if err != nil {
		return err
	}
	if e.Scene == nil {
		return fmt.Errorf("cluster: scene message without a scene")
	}
	s, err := e.Scene.Build()
	if err != nil {
		// Let the controller see why the worker is leaving.
		_ = c.send(Envelope{Kind: MsgTerminate, Error: err.Error()})
		return err
	}
	renderer.Logger().Info("scene built", "astrobj", e.Scene.Astrobj.Kind, "threads", s.NThreads())

	if err := c.send(Envelope{Kind: MsgRequestMore}); err != nil {
		return err
	}
	for {
		e, err := c.recv()
		if errors.Is(err, io.EOF) {
			// Controller hung up without a terminate; nothing left to do.
			return nil
		}
		if err != nil {
			return err
		}
		switch e.Kind {
		case MsgAssignChunk:
			if e.Chunk == nil {
				return fmt.Errorf("cluster: chunk assignment without a chunk")
			}
			if e.Chunk.NPix() == 0 {
				// Batch over; parked until the next one.
				continue
			}
			if err := computeChunk(c, s, *e.Chunk); err != nil {
				return err
			}
		case MsgTerminate:
			return nil
		default:
			return fmt.Errorf("cluster: unexpected %s message", e.Kind)
		}
	}
}

func computeChunk(c *conn, s *renderer.Scenery, ch Chunk) error {
	renderer.Logger().Debug("chunk assigned", "id", ch.ID,
		"imin", ch.Imin, "imax", ch.Imax, "jmin", ch.Jmin, "jmax", ch.Jmax)

	data := s.NewProperties(ch.NPix())
	if err := s.RayTrace(ch.Imin, ch.Imax, ch.Jmin, ch.Jmax, data, nil); err != nil {
		return c.send(Envelope{Kind: MsgChunkResult, Error: err.Error()})
	}
	res := resultFromProperties(ch.ID, data)
	return c.send(Envelope{Kind: MsgChunkResult, Result: &res})
}

// ListenAndServe accepts controller connections on addr and serves each in
// its own goroutine. It returns only when the listener fails.
func ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("cluster: listen %s: %w", addr, err)
	}
	defer ln.Close()
	renderer.Logger().Info("worker listening", "addr", ln.Addr().String())

	for {
		nc, err := ln.Accept()
		if err != nil {
			return fmt.Errorf("cluster: accept: %w", err)
		}
		go func() {
			if err := Serve(nc); err != nil {
				renderer.Logger().Warn("session ended", "addr", nc.RemoteAddr().String(), "err", err)
			}
		}()
	}
}
