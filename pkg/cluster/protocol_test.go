package cluster

import (
	"net"
	"strings"
	"testing"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	a, b := net.Pipe()
	ca, cb := newConn(a), newConn(b)
	defer ca.close()
	defer cb.close()

	go func() {
		ca.send(Envelope{Kind: MsgHello, Version: ProtocolVersion})
		ca.send(Envelope{Kind: MsgAssignChunk, Chunk: &Chunk{ID: 3, Imin: 1, Imax: 5, Jmin: 2, Jmax: 4}})
		ca.send(Envelope{Kind: MsgChunkResult, Result: &ChunkResult{
			ID:        3,
			Intensity: []float64{1, 2, 3},
			Invalid:   []bool{false, true, false},
		}})
	}()

	e, err := cb.expect(MsgHello)
	if err != nil {
		t.Fatal(err)
	}
	if e.Version != ProtocolVersion {
		t.Errorf("version = %d, want %d", e.Version, ProtocolVersion)
	}

	e, err = cb.expect(MsgAssignChunk)
	if err != nil {
		t.Fatal(err)
	}
	if e.Chunk == nil || e.Chunk.ID != 3 || e.Chunk.NPix() != 8 {
		t.Errorf("chunk = %+v, want ID 3 with 8 pixels", e.Chunk)
	}

	e, err = cb.expect(MsgChunkResult)
	if err != nil {
		t.Fatal(err)
	}
	r := e.Result
	if r == nil || r.ID != 3 || len(r.Intensity) != 3 || r.Intensity[1] != 2 || !r.Invalid[1] {
		t.Errorf("result = %+v, want the sent arrays back", r)
	}
}

func TestExpectReportsKindMismatch(t *testing.T) {
	a, b := net.Pipe()
	ca, cb := newConn(a), newConn(b)
	defer ca.close()
	defer cb.close()

	go ca.send(Envelope{Kind: MsgRequestMore})
	if _, err := cb.expect(MsgChunkResult); err == nil {
		t.Error("expect accepted the wrong message kind")
	}
}

func TestExpectSurfacesPeerError(t *testing.T) {
	a, b := net.Pipe()
	ca, cb := newConn(a), newConn(b)
	defer ca.close()
	defer cb.close()

	go ca.send(Envelope{Kind: MsgTerminate, Error: "scene build failed"})
	_, err := cb.expect(MsgRequestMore)
	if err == nil || !strings.Contains(err.Error(), "scene build failed") {
		t.Errorf("err = %v, want the peer's error surfaced", err)
	}
}
