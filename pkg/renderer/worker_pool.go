package renderer

import (
	"runtime"
	"sync"

	"github.com/df07/go-geodesic-raytracer/pkg/core"
	"github.com/df07/go-geodesic-raytracer/pkg/photon"
)

// blockTask describes one contiguous row block of a ray-tracing request.
type blockTask struct {
	taskID     int
	imin, imax int
	jmin, jmax int
	rangeStart int // first row of the whole request, anchors data layout

	data         *core.Properties // shared accumulator; blocks are disjoint
	impactCoords []float64
}

// blockResult reports a finished block.
type blockResult struct {
	taskID   int
	degraded int
}

// workerPool runs row blocks on a fixed set of workers, each owning a full
// clone of the template photon so no two goroutines ever touch the same
// metric or object state.
type workerPool struct {
	taskQueue   chan blockTask
	resultQueue chan blockResult
	workers     []*worker
	wg          sync.WaitGroup
}

// worker processes row blocks with its private photon clone.
type worker struct {
	id          int
	scenery     *Scenery
	photon      *photon.Photon
	taskQueue   chan blockTask
	resultQueue chan blockResult
}

func newWorkerPool(s *Scenery, numWorkers int) *workerPool {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}

	wp := &workerPool{
		taskQueue:   make(chan blockTask, numWorkers),
		resultQueue: make(chan blockResult, numWorkers),
	}
	for i := 0; i < numWorkers; i++ {
		wp.workers = append(wp.workers, &worker{
			id:          i,
			scenery:     s,
			photon:      s.photon.Clone(),
			taskQueue:   wp.taskQueue,
			resultQueue: wp.resultQueue,
		})
	}
	return wp
}

// Start begins all workers.
func (wp *workerPool) Start() {
	for _, w := range wp.workers {
		wp.wg.Add(1)
		go w.run(&wp.wg)
	}
}

// Stop closes the task queue and waits for in-flight blocks to finish.
func (wp *workerPool) Stop() {
	close(wp.taskQueue)
	wp.wg.Wait()
	close(wp.resultQueue)
}

// Submit queues a row block.
func (wp *workerPool) Submit(task blockTask) {
	wp.taskQueue <- task
}

// Result retrieves a completed block result.
func (wp *workerPool) Result() (blockResult, bool) {
	result, ok := <-wp.resultQueue
	return result, ok
}

func (w *worker) run(wg *sync.WaitGroup) {
	defer wg.Done()

	for task := range w.taskQueue {
		// Each block covers non-overlapping rows, so writing through a
		// disjoint view of the shared accumulator is safe without locks.
		degraded := w.scenery.traceBlock(
			task.imin, task.imax, task.jmin, task.jmax,
			task.rangeStart, task.data, task.impactCoords, w.photon)

		w.resultQueue <- blockResult{taskID: task.taskID, degraded: degraded}
	}
}
