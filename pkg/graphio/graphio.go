package graphio

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"lintang/roadgraph/pkg/datastructure"

	"github.com/klauspost/compress/zstd"
)

const zstdExt = ".zst"

// WriteJSON writes the graph artifact {nodes, edges} as indented json.
func WriteJSON(w io.Writer, graph datastructure.Graph) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(graph)
}

func ReadJSON(r io.Reader) (datastructure.Graph, error) {
	var graph datastructure.Graph
	if err := json.NewDecoder(r).Decode(&graph); err != nil {
		return datastructure.Graph{}, fmt.Errorf("decoding graph: %w", err)
	}
	return datastructure.NewGraph(graph.Nodes, graph.Edges), nil
}

// WriteFile writes the graph artifact to path, creating its directory when missing.
// a .zst suffix compresses the json with zstd.
func WriteFile(path string, graph datastructure.Graph) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	if strings.HasSuffix(path, zstdExt) {
		enc, err := zstd.NewWriter(f)
		if err != nil {
			return err
		}
		if err := WriteJSON(enc, graph); err != nil {
			enc.Close()
			return err
		}
		if err := enc.Close(); err != nil {
			return err
		}
	} else if err := WriteJSON(f, graph); err != nil {
		return err
	}

	log.Printf("graph written to: %s", path)
	return nil
}

func ReadFile(path string) (datastructure.Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return datastructure.Graph{}, err
	}
	defer f.Close()

	if strings.HasSuffix(path, zstdExt) {
		dec, err := zstd.NewReader(f)
		if err != nil {
			return datastructure.Graph{}, err
		}
		defer dec.Close()
		return ReadJSON(dec)
	}
	return ReadJSON(f)
}
