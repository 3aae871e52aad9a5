// Package cluster distributes a ray-tracing job over remote workers. The
// controller owns the pixel grid and the output; workers receive the scene
// once, then pull rectangular chunks until the grid is exhausted.
//
// The wire format is a stream of CBOR-encoded envelopes over any net.Conn.
// Roles are explicit: a process is a controller or a worker because it runs
// a Controller or a Worker, never because of ambient state.
package cluster

import (
	"fmt"
	"io"
	"net"

	"github.com/fxamacker/cbor/v2"

	"github.com/df07/go-geodesic-raytracer/pkg/core"
)

// ProtocolVersion guards against mixing incompatible builds in one job.
const ProtocolVersion = 1

// MsgKind discriminates envelopes on the wire.
type MsgKind uint8

const (
	// MsgHello opens a session; the worker announces its protocol version.
	MsgHello MsgKind = iota + 1
	// MsgScene carries the scene description, controller to worker, once.
	MsgScene
	// MsgRequestMore is the worker pulling its next chunk.
	MsgRequestMore
	// MsgAssignChunk assigns a pixel chunk to the requesting worker.
	MsgAssignChunk
	// MsgChunkResult returns a computed chunk's quantity arrays.
	MsgChunkResult
	// MsgTerminate tells the worker the job is over.
	MsgTerminate
)

func (k MsgKind) String() string {
	switch k {
	case MsgHello:
		return "hello"
	case MsgScene:
		return "scene"
	case MsgRequestMore:
		return "requestMore"
	case MsgAssignChunk:
		return "assignChunk"
	case MsgChunkResult:
		return "chunkResult"
	case MsgTerminate:
		return "terminate"
	}
	return fmt.Sprintf("MsgKind(%d)", int(k))
}

// Chunk is a rectangular pixel sub-range, [Imin, Imax) x [Jmin, Jmax).
type Chunk struct {
	ID         int `cbor:"id"`
	Imin, Imax int `cbor:"imin,omitempty"`
	Jmin, Jmax int `cbor:"jmin,omitempty"`
}

// NPix returns the number of pixels in the chunk.
func (c Chunk) NPix() int { return (c.Imax - c.Imin) * (c.Jmax - c.Jmin) }

// ChunkResult carries the filled quantity arrays of one chunk back to the
// controller, laid out row-major over the chunk like a local Properties.
type ChunkResult struct {
	ID int `cbor:"id"`

	Intensity    []float64 `cbor:"intensity,omitempty"`
	EmissionTime []float64 `cbor:"emissionTime,omitempty"`
	MinDistance  []float64 `cbor:"minDistance,omitempty"`
	Redshift     []float64 `cbor:"redshift,omitempty"`
	ImpactCoords []float64 `cbor:"impactCoords,omitempty"`
	Spectrum     []float64 `cbor:"spectrum,omitempty"`
	Invalid      []bool    `cbor:"invalid,omitempty"`
}

// resultFromProperties snapshots a chunk-local accumulator into a result.
func resultFromProperties(id int, data *core.Properties) ChunkResult {
	return ChunkResult{
		ID:           id,
		Intensity:    data.Intensity,
		EmissionTime: data.EmissionTime,
		MinDistance:  data.MinDistance,
		Redshift:     data.Redshift,
		ImpactCoords: data.ImpactCoords,
		Spectrum:     data.Spectrum,
		Invalid:      data.Invalid,
	}
}

// Envelope is the single message type on the wire; Kind selects which
// payload pointer is set.
type Envelope struct {
	Kind    MsgKind           `cbor:"kind"`
	Version int               `cbor:"version,omitempty"`
	Scene   *SceneDescription `cbor:"scene,omitempty"`
	Chunk   *Chunk            `cbor:"chunk,omitempty"`
	Result  *ChunkResult      `cbor:"result,omitempty"`
	Error   string            `cbor:"error,omitempty"`
}

// conn wraps a net.Conn with CBOR codecs for envelopes.
type conn struct {
	raw net.Conn
	enc *cbor.Encoder
	dec *cbor.Decoder
}

func newConn(c net.Conn) *conn {
	return &conn{raw: c, enc: cbor.NewEncoder(c), dec: cbor.NewDecoder(c)}
}

func (c *conn) send(e Envelope) error {
	if err := c.enc.Encode(e); err != nil {
		return fmt.Errorf("cluster: send %s: %w", e.Kind, err)
	}
	return nil
}

func (c *conn) recv() (Envelope, error) {
	var e Envelope
	if err := c.dec.Decode(&e); err != nil {
		if err == io.EOF {
			return e, err
		}
		return e, fmt.Errorf("cluster: recv: %w", err)
	}
	return e, nil
}

// expect receives one envelope and checks its kind.
func (c *conn) expect(kind MsgKind) (Envelope, error) {
	e, err := c.recv()
	if err != nil {
		return e, err
	}
	if e.Kind != kind {
		if e.Error != "" {
			return e, fmt.Errorf("cluster: peer reported: %s", e.Error)
		}
		return e, fmt.Errorf("cluster: got %s, want %s", e.Kind, kind)
	}
	return e, nil
}

func (c *conn) close() error { return c.raw.Close() }
