package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"runtime/pprof"
	"strings"

	"lintang/roadgraph/pkg/datastructure"
	"lintang/roadgraph/pkg/graphio"
	"lintang/roadgraph/pkg/kv"
	"lintang/roadgraph/pkg/server/rest"
	"lintang/roadgraph/pkg/server/rest/service"
	"lintang/roadgraph/pkg/snap"

	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

var (
	listenAddr = flag.String("listenaddr", ":5000", "server listen address")
	graphFile  = flag.String("graph", "", "graph artifact (.json or .json.zst) to serve")
	dbDir      = flag.String("db", "", "badger directory written by roadgraph -db, used instead of -graph")
	memprofile = flag.String("memprofile", "", "write memory profile to this file")
)

// environment variables used as flag defaults, command line flags win.
var envFlags = map[string]string{
	"listenaddr": "ROADGRAPH_LISTEN_ADDR",
	"graph":      "ROADGRAPH_GRAPH_FILE",
	"db":         "ROADGRAPH_DB_DIR",
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
	flag.Parse()

	if (*graphFile == "") == (*dbDir == "") {
		log.Fatal("exactly one of -graph or -db is required")
	}

	var (
		graph  datastructure.Graph
		finder service.NodeFinder
		err    error
	)
	if *dbDir != "" {
		db, err := badger.Open(badger.DefaultOptions(*dbDir).WithReadOnly(true).WithLogger(nil))
		if err != nil {
			log.Fatal(err)
		}
		kvDB := kv.NewKVDB(db)
		defer kvDB.Close()

		log.Printf("loading graph from badger %s", *dbDir)
		graph, err = kvDB.LoadGraph(context.Background())
		if err != nil {
			log.Fatal(err)
		}
		finder = kvDB
	} else {
		log.Printf("loading graph from %s", *graphFile)
		graph, err = graphio.ReadFile(*graphFile)
		if err != nil {
			log.Fatal(err)
		}
		finder = snap.NewNodeSnapper(graph.Nodes)
	}
	log.Printf("total nodes: %d, total edges: %d", len(graph.Nodes), len(graph.Edges))
	recordMemProfile(memprofile, "load_graph")

	reg := prometheus.NewRegistry()
	m := rest.NewMetrics(reg)

	r := chi.NewRouter()

	r.Use(middleware.Logger)

	r.Use(rest.PromeHttpMiddleware(m)) // prometheus http middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Mount("/debug", middleware.Profiler())

	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	graphSvc := service.NewGraphService(graph, finder)
	log.Printf("connected components count: %d", len(graphSvc.Components(context.Background())))
	rest.GraphRouter(r, graphSvc, m)

	fmt.Printf("\nserver started at %s\n", *listenAddr)

	log.Fatal(http.ListenAndServe(*listenAddr, r))
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
