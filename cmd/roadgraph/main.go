package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"strings"
	"syscall"

	"lintang/roadgraph/pkg/concurrent"
	"lintang/roadgraph/pkg/datastructure"
	"lintang/roadgraph/pkg/graphbuilder"
	"lintang/roadgraph/pkg/graphio"
	"lintang/roadgraph/pkg/kv"
	"lintang/roadgraph/pkg/osmparser"

	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
)

var (
	workers    = flag.Int("workers", runtime.NumCPU(), "number of builds running concurrently")
	dbDir      = flag.String("db", "", "also save every graph into a badger directory <db>/<output base name>")
	cpuprofile = flag.String("cpuprofile", "", "write cpu profile to file")
	memprofile = flag.String("memprofile", "", "write memory profile to this file")
)

// environment variables used as flag defaults, command line flags win.
var envFlags = map[string]string{
	"workers": "ROADGRAPH_WORKERS",
	"db":      "ROADGRAPH_DB_DIR",
}

type buildJob struct {
	input  string
	output string
}

type buildResult struct {
	job   buildJob
	stats graphbuilder.Stats
	err   error
}

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] <input> <output> [<input> <output> ...]\n", os.Args[0])
	fmt.Fprintf(flag.CommandLine.Output(), "input is a geojson feature collection or an openstreetmap .osm.pbf extract, output ending in .zst is zstd compressed\n")
	flag.PrintDefaults()
}

func main() {
	_ = godotenv.Load()
	for name, env := range envFlags {
		if v := os.Getenv(env); v != "" {
			if err := flag.Set(name, v); err != nil {
				log.Fatalf("invalid %s: %v", env, err)
			}
		}
	}
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 || len(args)%2 != 0 {
		flag.Usage()
		os.Exit(2)
	}

	if *cpuprofile != "" {
		// ./bin/roadgraph -cpuprofile=roadgraphcpu.prof -memprofile=roadgraphmem.mprof roads.geojson graph.json
		f, err := os.Create(*cpuprofile)
		if err != nil {
			log.Fatal(err)
		}
		defer f.Close()

		pprof.StartCPUProfile(f)
		defer pprof.StopCPUProfile()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	jobs := make([]buildJob, 0, len(args)/2)
	for i := 0; i < len(args); i += 2 {
		jobs = append(jobs, buildJob{input: args[i], output: args[i+1]})
	}

	results := concurrent.RunJobs(ctx, *workers, jobs, runBuild)
	recordMemProfile(memprofile, "build_graphs")

	failed := 0
	for _, res := range results {
		if res.err != nil {
			failed++
			log.Printf("build %s -> %s failed: %v", res.job.input, res.job.output, res.err)
			continue
		}
		log.Printf("%s -> %s: total nodes: %d, total edges: %d, intersections: %d, total length: %.2f km",
			res.job.input, res.job.output, res.stats.Nodes, res.stats.Edges, res.stats.Intersections, res.stats.TotalLength)
	}
	if failed > 0 {
		// deferred profile writers still need to flush
		pprof.StopCPUProfile()
		log.Fatalf("%d of %d builds failed", failed, len(results))
	}
}

func runBuild(ctx context.Context, job buildJob) buildResult {
	res := buildResult{job: job}

	log.Printf("reading road file %s", job.input)
	segments, err := osmparser.ReadSegments(ctx, job.input)
	if err != nil {
		res.err = err
		return res
	}
	log.Printf("%s: %d road segments", job.input, len(segments))

	graph, stats, err := graphbuilder.BuildWithStats(segments)
	if err != nil {
		res.err = err
		return res
	}
	res.stats = stats

	log.Printf("writing graph to %s", job.output)
	if err := graphio.WriteFile(job.output, graph); err != nil {
		res.err = err
		return res
	}

	if *dbDir != "" {
		res.err = saveToKV(ctx, graphDBPath(*dbDir, job.output), graph)
	}
	return res
}

// graphDBPath returns <db>/<output base name without extensions>.
func graphDBPath(dir, output string) string {
	base := filepath.Base(output)
	if i := strings.Index(base, "."); i > 0 {
		base = base[:i]
	}
	return filepath.Join(dir, base)
}

func saveToKV(ctx context.Context, path string, graph datastructure.Graph) error {
	db, err := badger.Open(badger.DefaultOptions(path).WithLogger(nil))
	if err != nil {
		return fmt.Errorf("open badger %s: %w", path, err)
	}
	kvDB := kv.NewKVDB(db)
	defer kvDB.Close()

	log.Printf("saving graph to badger %s", path)
	return kvDB.SaveGraph(ctx, graph)
}

func recordMemProfile(memprofile *string, name string) {
	if *memprofile != "" {
		*memprofile = strings.Replace(*memprofile, ".mprof", fmt.Sprintf("%s.mprof", name), -1)
		f, err := os.Create(*memprofile)
		if err != nil {
			log.Fatal(err)
		}
		pprof.WriteHeapProfile(f)
		f.Close()
	}
}
