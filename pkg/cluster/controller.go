package cluster

import (
	"fmt"
	"net"

	"golang.org/x/sync/errgroup"

	"github.com/df07/go-geodesic-raytracer/pkg/core"
	"github.com/df07/go-geodesic-raytracer/pkg/renderer"
)

// Controller drives a set of remote workers through one or more ray-tracing
// batches. Dispatch is pull-based: a worker that returns a result is handed
// the next pending chunk, so fast workers naturally take more of the grid.
//
// A Controller is not safe for concurrent use; one batch runs at a time.
type Controller struct {
	scene   *SceneDescription
	workers []*workerLink
}

type workerLink struct {
	c    *conn
	addr string
	// greeted is set once the worker's opening pull has been consumed.
	greeted bool
}

// NewController creates a controller for the given scene. Workers are added
// with Connect or AddWorker before the first batch.
func NewController(sd *SceneDescription) *Controller {
	return &Controller{scene: sd}
}

// Connect dials each address over TCP and performs the session handshake.
func (ct *Controller) Connect(addrs []string) error {
	for _, addr := range addrs {
		nc, err := net.Dial("tcp", addr)
		if err != nil {
			return fmt.Errorf("cluster: dial %s: %w", addr, err)
		}
		if err := ct.AddWorker(nc); err != nil {
			nc.Close()
			return fmt.Errorf("cluster: %s: %w", addr, err)
		}
	}
	return nil
}

// AddWorker performs the handshake on an established connection: the worker
// opens with hello, the controller answers with the scene.
func (ct *Controller) AddWorker(nc net.Conn) error {
	c := newConn(nc)
	e, err := c.expect(MsgHello)
	if err != nil {
		return err
	}
	if e.Version != ProtocolVersion {
		return fmt.Errorf("cluster: worker speaks protocol %d, want %d", e.Version, ProtocolVersion)
	}
	if err := c.send(Envelope{Kind: MsgScene, Scene: ct.scene}); err != nil {
		return err
	}
	ct.workers = append(ct.workers, &workerLink{c: c, addr: nc.RemoteAddr().String()})
	renderer.Logger().Info("worker joined", "addr", nc.RemoteAddr().String())
	return nil
}

// NumWorkers returns the number of connected workers.
func (ct *Controller) NumWorkers() int { return len(ct.workers) }

// RayTrace distributes the pixel range [imin, imax) x [jmin, jmax) over the
// connected workers in row bands of rowsPerChunk rows, merging results into
// data as they arrive. data must be laid out row-major over the range with
// its cursor at the first pixel, exactly like the local RayTrace contract.
func (ct *Controller) RayTrace(imin, imax, jmin, jmax, rowsPerChunk int, data *core.Properties) error {
	if len(ct.workers) == 0 {
		return fmt.Errorf("cluster: no workers connected")
	}
	if imin >= imax || jmin >= jmax {
		return fmt.Errorf("cluster: empty pixel range [%d,%d)x[%d,%d)", imin, imax, jmin, jmax)
	}
	if rowsPerChunk <= 0 {
		rowsPerChunk = 1
	}

	var chunkList []Chunk
	for j0 := jmin; j0 < jmax; j0 += rowsPerChunk {
		j1 := j0 + rowsPerChunk
		if j1 > jmax {
			j1 = jmax
		}
		chunkList = append(chunkList, Chunk{
			ID:   len(chunkList),
			Imin: imin, Imax: imax,
			Jmin: j0, Jmax: j1,
		})
	}
	chunks := make(chan Chunk, len(chunkList))
	for _, c := range chunkList {
		chunks <- c
	}
	close(chunks)

	req := Chunk{Imin: imin, Imax: imax, Jmin: jmin, Jmax: jmax}
	renderer.Logger().Info("dispatch", "chunks", len(chunkList), "workers", len(ct.workers))

	g := new(errgroup.Group)
	for _, w := range ct.workers {
		w := w
		g.Go(func() error {
			return ct.feed(w, chunks, chunkList, req, data)
		})
	}
	return g.Wait()
}

// feed hands chunks to one worker until the queue drains, then parks it with
// an empty assignment. Chunks cover disjoint pixel ranges, so concurrent
// merges into data never overlap.
func (ct *Controller) feed(w *workerLink, chunks <-chan Chunk, chunkList []Chunk, req Chunk, data *core.Properties) error {
	if !w.greeted {
		if _, err := w.c.expect(MsgRequestMore); err != nil {
			return fmt.Errorf("cluster: worker %s: %w", w.addr, err)
		}
		w.greeted = true
	}
	for chunk := range chunks {
		chunk := chunk
		if err := w.c.send(Envelope{Kind: MsgAssignChunk, Chunk: &chunk}); err != nil {
			return fmt.Errorf("cluster: worker %s: %w", w.addr, err)
		}
		e, err := w.c.expect(MsgChunkResult)
		if err != nil {
			return fmt.Errorf("cluster: worker %s: %w", w.addr, err)
		}
		if e.Error != "" {
			return fmt.Errorf("cluster: worker %s: %s", w.addr, e.Error)
		}
		if e.Result == nil || e.Result.ID < 0 || e.Result.ID >= len(chunkList) {
			return fmt.Errorf("cluster: worker %s: bad chunk result", w.addr)
		}
		if err := mergeResult(data, req, chunkList[e.Result.ID], e.Result); err != nil {
			return fmt.Errorf("cluster: worker %s: %w", w.addr, err)
		}
		renderer.Logger().Debug("chunk merged", "id", e.Result.ID, "addr", w.addr)
	}
	// Park the worker until the next batch or termination.
	return w.c.send(Envelope{Kind: MsgAssignChunk, Chunk: &Chunk{}})
}

// Close terminates and disconnects every worker.
func (ct *Controller) Close() error {
	var first error
	for _, w := range ct.workers {
		if err := w.c.send(Envelope{Kind: MsgTerminate}); err != nil && first == nil {
			first = err
		}
		if err := w.c.close(); err != nil && first == nil {
			first = err
		}
	}
	ct.workers = nil
	return first
}

// mergeResult copies a chunk's arrays into the batch accumulator row by row.
// Every quantity the accumulator requested must be present and sized for the
// chunk.
func mergeResult(dst *core.Properties, req, ch Chunk, res *ChunkResult) error {
	npix := ch.NPix()
	chCols := ch.Imax - ch.Imin
	reqCols := req.Imax - req.Imin

	copyPlane := func(d, s []float64, stride int) error {
		if d == nil {
			return nil
		}
		if len(s) != npix*stride {
			return fmt.Errorf("chunk %d: plane has %d values, want %d", ch.ID, len(s), npix*stride)
		}
		for r := 0; r < ch.Jmax-ch.Jmin; r++ {
			src := r * chCols * stride
			off := ((ch.Jmin-req.Jmin+r)*reqCols + ch.Imin - req.Imin) * stride
			copy(d[dst.Cursor()*stride+off:], s[src:src+chCols*stride])
		}
		return nil
	}

	if err := copyPlane(dst.Intensity, res.Intensity, 1); err != nil {
		return err
	}
	if err := copyPlane(dst.EmissionTime, res.EmissionTime, 1); err != nil {
		return err
	}
	if err := copyPlane(dst.MinDistance, res.MinDistance, 1); err != nil {
		return err
	}
	if err := copyPlane(dst.Redshift, res.Redshift, 1); err != nil {
		return err
	}
	if err := copyPlane(dst.ImpactCoords, res.ImpactCoords, core.ImpactCoordsSize); err != nil {
		return err
	}
	if err := copyPlane(dst.Spectrum, res.Spectrum, dst.NChannels); err != nil {
		return err
	}

	if len(res.Invalid) != npix {
		return fmt.Errorf("chunk %d: invalid mask has %d values, want %d", ch.ID, len(res.Invalid), npix)
	}
	for r := 0; r < ch.Jmax-ch.Jmin; r++ {
		src := r * chCols
		off := (ch.Jmin-req.Jmin+r)*reqCols + ch.Imin - req.Imin
		copy(dst.Invalid[dst.Cursor()+off:], res.Invalid[src:src+chCols])
	}
	return nil
}
