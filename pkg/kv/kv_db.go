package kv

import (
	"context"
	"errors"
	"fmt"
	"log"

	"lintang/roadgraph/pkg/datastructure"

	"github.com/dgraph-io/badger/v4"
	"github.com/uber/h3-go/v4"
)

var (
	ErrNodesNotFound = errors.New("nodes not found")
	ErrContextDone   = errors.New("context cancelled")
)

const (
	h3Resolution = 9
	maxRingLevel = 10
	batchSize    = 1000

	nodePrefix = "node/"
	edgePrefix = "edge/"
	cellPrefix = "h3/"
)

func nodeKey(idx int) []byte {
	return []byte(fmt.Sprintf("%s%010d", nodePrefix, idx))
}

func edgeKey(idx int) []byte {
	return []byte(fmt.Sprintf("%s%010d", edgePrefix, idx))
}

func cellKey(cell h3.Cell) []byte {
	return []byte(cellPrefix + cell.String())
}

// KVDB persists a road graph in badger, together with an h3 index of its nodes.
type KVDB struct {
	db *badger.DB
}

func NewKVDB(db *badger.DB) *KVDB {
	return &KVDB{db}
}

type batchData struct {
	key   []byte
	value []byte
}

func checkContext(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrContextDone, ctx.Err())
	default:
	}
	return nil
}

// SaveGraph writes every node and edge of graph and the h3 cell -> node ids index.
func (k *KVDB) SaveGraph(ctx context.Context, graph datastructure.Graph) error {
	log.Printf("saving road graph & h3 indexed nodes to key-value db...")

	// a previous graph in the same db must not leak into this one
	if err := k.db.DropPrefix([]byte(nodePrefix), []byte(edgePrefix), []byte(cellPrefix)); err != nil {
		return fmt.Errorf("drop previous graph: %w", err)
	}

	batches := make([]batchData, 0, batchSize)
	flush := func() error {
		if len(batches) == 0 {
			return nil
		}
		err := k.saveBatch(ctx, batches)
		batches = make([]batchData, 0, batchSize)
		return err
	}
	add := func(key, value []byte) error {
		batches = append(batches, batchData{key: key, value: value})
		if len(batches) == batchSize {
			return flush()
		}
		return nil
	}

	cells := make(map[h3.Cell][]string)
	for i, node := range graph.Nodes {
		if err := checkContext(ctx); err != nil {
			return err
		}

		val, err := encode(newKVNode(node))
		if err != nil {
			return err
		}
		if err := add(nodeKey(i), val); err != nil {
			return err
		}

		cell := h3.LatLngToCell(h3.NewLatLng(node.Lat, node.Lon), h3Resolution)
		cells[cell] = append(cells[cell], node.ID)
	}

	for i, edge := range graph.Edges {
		if err := checkContext(ctx); err != nil {
			return err
		}

		val, err := encode(newKVEdge(edge))
		if err != nil {
			return err
		}
		if err := add(edgeKey(i), val); err != nil {
			return err
		}
	}

	for cell, nodeIDs := range cells {
		if err := checkContext(ctx); err != nil {
			return err
		}

		val, err := encode(kvCell{NodeIDs: nodeIDs})
		if err != nil {
			return err
		}
		if err := add(cellKey(cell), val); err != nil {
			return err
		}
	}

	if err := flush(); err != nil {
		return err
	}

	log.Printf("saving %d nodes, %d edges, %d h3 cells to key-value db done...", len(graph.Nodes), len(graph.Edges), len(cells))
	return nil
}

func (k *KVDB) saveBatch(ctx context.Context, batchData []batchData) error {
	batch := k.db.NewWriteBatch()
	defer batch.Cancel()

	for _, data := range batchData {
		if err := checkContext(ctx); err != nil {
			return err
		}

		if err := batch.Set(data.key, data.value); err != nil {
			return err
		}
	}

	if err := batch.Flush(); err != nil {
		log.Printf("error saving batch: %v", err)
		return err
	}
	return nil
}

// LoadGraph reads back the graph saved by SaveGraph, nodes and edges in their original order.
func (k *KVDB) LoadGraph(ctx context.Context) (datastructure.Graph, error) {
	nodes := make([]datastructure.GraphNode, 0)
	edges := make([]datastructure.GraphEdge, 0)

	err := k.db.View(func(txn *badger.Txn) error {
		err := iteratePrefix(ctx, txn, []byte(nodePrefix), func(val []byte) error {
			n, err := decode[kvNode](val)
			if err != nil {
				return err
			}
			nodes = append(nodes, n.toGraphNode())
			return nil
		})
		if err != nil {
			return err
		}

		return iteratePrefix(ctx, txn, []byte(edgePrefix), func(val []byte) error {
			e, err := decode[kvEdge](val)
			if err != nil {
				return err
			}
			edges = append(edges, e.toGraphEdge())
			return nil
		})
	})
	if err != nil {
		return datastructure.Graph{}, err
	}

	log.Printf("loaded %d nodes, %d edges from key-value db", len(nodes), len(edges))
	return datastructure.NewGraph(nodes, edges), nil
}

func iteratePrefix(ctx context.Context, txn *badger.Txn, prefix []byte, fn func(val []byte) error) error {
	it := txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()

	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		if err := checkContext(ctx); err != nil {
			return err
		}
		val, err := it.Item().ValueCopy(nil)
		if err != nil {
			return err
		}
		if err := fn(val); err != nil {
			return err
		}
	}
	return nil
}

func (k *KVDB) get(key []byte) ([]byte, error) {
	var val []byte
	err := k.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}

		val, err = item.ValueCopy(nil)
		return err
	})
	return val, err
}

func (k *KVDB) getCellNodes(cell h3.Cell) ([]string, error) {
	val, err := k.get(cellKey(cell))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	c, err := decode[kvCell](val)
	if err != nil {
		return nil, err
	}
	return c.NodeIDs, nil
}

// NearestNodes returns the ids of the nodes in the h3 cell of (lat, lon).
// when that cell is empty the grid disk around it is widened one ring at a time, up to 10 rings.
func (k *KVDB) NearestNodes(lat, lon float64) ([]string, error) {
	cell := h3.LatLngToCell(h3.NewLatLng(lat, lon), h3Resolution)

	nodeIDs, err := k.getCellNodes(cell)
	if err != nil {
		return nil, err
	}

	visited := map[h3.Cell]struct{}{cell: {}}
	for lev := 1; lev <= maxRingLevel && len(nodeIDs) == 0; lev++ {
		for _, currCell := range h3.GridDisk(cell, lev) {
			if _, ok := visited[currCell]; ok {
				continue
			}
			visited[currCell] = struct{}{}
			cellNodes, err := k.getCellNodes(currCell)
			if err != nil {
				return nil, err
			}
			nodeIDs = append(nodeIDs, cellNodes...)
		}
	}

	if len(nodeIDs) == 0 {
		return nil, ErrNodesNotFound
	}
	return nodeIDs, nil
}

func (k *KVDB) Close() error {
	return k.db.Close()
}
