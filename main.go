package main

import (
	"flag"
	"fmt"
	"image/png"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/df07/go-geodesic-raytracer/pkg/cluster"
	"github.com/df07/go-geodesic-raytracer/pkg/photon"
	"github.com/df07/go-geodesic-raytracer/pkg/renderer"
)

// config holds the environment defaults; command-line flags override them.
type config struct {
	Role    string `env:"GRT_ROLE"    envDefault:"local"`
	Listen  string `env:"GRT_LISTEN"  envDefault:":7413"`
	Workers string `env:"GRT_WORKERS"`
	Threads int    `env:"GRT_THREADS" envDefault:"0"`
	Size    int    `env:"GRT_SIZE"    envDefault:"256"`
	Object  string `env:"GRT_OBJECT"  envDefault:"torus"`
	FITS    string `env:"GRT_FITS"`
	Output  string `env:"GRT_OUTPUT"  envDefault:"output"`
}

func main() {
	var cfg config
	if err := env.Parse(&cfg); err != nil {
		fmt.Printf("Error parsing environment: %v\n", err)
		os.Exit(1)
	}

	role := flag.String("role", cfg.Role, "Run mode: 'local', 'controller' or 'worker'")
	listen := flag.String("listen", cfg.Listen, "Worker listen address")
	workers := flag.String("workers", cfg.Workers, "Comma-separated worker addresses (controller mode)")
	threads := flag.Int("threads", cfg.Threads, "Worker goroutines per trace (0 = number of CPUs)")
	size := flag.Int("size", cfg.Size, "Image width and height in pixels")
	object := flag.String("object", cfg.Object, "Object to trace: 'torus' or 'disk3d'")
	fits := flag.String("fits", cfg.FITS, "FITS file with disk grids (disk3d only)")
	delta := flag.Float64("delta", 0, "Initial integration step (0 = default)")
	output := flag.String("output", cfg.Output, "Output directory for rendered images")
	verbose := flag.Bool("verbose", false, "Enable debug logging")
	help := flag.Bool("help", false, "Show help information")
	flag.Parse()

	if *help {
		fmt.Println("Geodesic Raytracer")
		fmt.Println("Usage: geodesic-raytracer [options]")
		fmt.Println()
		fmt.Println("Options:")
		flag.PrintDefaults()
		fmt.Println()
		fmt.Println("Roles:")
		fmt.Println("  local      - render the scene in this process")
		fmt.Println("  controller - distribute the scene over remote workers")
		fmt.Println("  worker     - serve ray-tracing chunks to a controller")
		return
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	renderer.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	switch *role {
	case "worker":
		fmt.Printf("Starting worker on %s...\n", *listen)
		if err := cluster.ListenAndServe(*listen); err != nil {
			fmt.Printf("Worker failed: %v\n", err)
			os.Exit(1)
		}
	case "controller", "local":
		if err := render(*role, *object, *fits, *size, *threads, *delta, *workers, *output); err != nil {
			fmt.Printf("Render failed: %v\n", err)
			os.Exit(1)
		}
	default:
		fmt.Printf("Unknown role %q. Use 'local', 'controller' or 'worker'.\n", *role)
		os.Exit(1)
	}
}

func render(role, object, fits string, size, threads int, delta float64, workers, output string) error {
	sd, err := demoScene(object, fits, size, threads)
	if err != nil {
		return err
	}
	if delta > 0 {
		sd.Photon.Tuning.Delta = delta
	}

	// A local scenery backs both roles: it sizes the accumulator, and in
	// local mode it also does the tracing.
	s, err := sd.Build()
	if err != nil {
		return err
	}
	data := s.NewProperties(size * size)

	fmt.Printf("Tracing %dx%d %s scene (%s)...\n", size, size, object, role)
	startTime := time.Now()

	if role == "controller" {
		if workers == "" {
			return fmt.Errorf("controller mode needs -workers")
		}
		ct := cluster.NewController(sd)
		if err := ct.Connect(strings.Split(workers, ",")); err != nil {
			return err
		}
		defer ct.Close()
		if err := ct.RayTrace(0, size, 0, size, 8, data); err != nil {
			return err
		}
	} else {
		if err := s.RayTrace(0, size, 0, size, data, nil); err != nil {
			return err
		}
	}

	fmt.Printf("Trace completed in %v\n", time.Since(startTime))

	img, err := renderer.IntensityImage(data, size, size)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(output, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	timestamp := time.Now().Format("20060102_150405")
	filename := filepath.Join(output, fmt.Sprintf("%s_%s.png", object, timestamp))
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()
	if err := png.Encode(file, img); err != nil {
		return err
	}

	fmt.Printf("Image saved as %s\n", filename)
	return nil
}

// demoScene builds the scene description shared by the local and distributed
// paths: a Minkowski spacetime seen by a near-equatorial observer at radius
// 100, looking at either the default torus or a tabulated disk.
func demoScene(object, fits string, size, threads int) (*cluster.SceneDescription, error) {
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	sd := &cluster.SceneDescription{
		Metric: cluster.MetricDescription{Kind: "minkowski", Coord: "spherical"},
		Screen: cluster.ScreenDescription{
			Width:       size,
			Height:      size,
			FOV:         0.12,
			Distance:    100,
			Inclination: 80 * math.Pi / 180,
		},
		Photon: cluster.PhotonDescription{
			Integrator: "runge_kutta_fehlberg45",
			Tuning:     photon.DefaultTuning(),
		},
		Quantities: []string{"Intensity"},
		NThreads:   threads,
	}

	switch object {
	case "torus":
		sd.Astrobj = cluster.AstrobjDescription{
			Kind:        "torus",
			LargeRadius: 3.5,
			SmallRadius: 0.9,
			Temperature: 1e6,
		}
	case "disk3d":
		if fits == "" {
			return nil, fmt.Errorf("disk3d needs -fits pointing at the grid file")
		}
		sd.Astrobj = cluster.AstrobjDescription{
			Kind:     "disk3d",
			FITSPath: fits,
		}
	default:
		return nil, fmt.Errorf("unknown object %q. Use 'torus' or 'disk3d'", object)
	}
	return sd, nil
}
