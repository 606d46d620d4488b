package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/nxgraph/dataio"
	"github.com/hupe1980/nxgraph/datastore"
	"github.com/hupe1980/nxgraph/graph"
)

func writeContainer(t *testing.T) string {
	t.Helper()
	ds := graph.New()
	geom, err := ds.CreateImageGeom(graph.RootID, "Image", [3]int{4, 2, 1}, [3]float64{}, [3]float64{1, 1, 1})
	require.NoError(t, err)
	cells, err := ds.CreateAttributeMatrix(geom, "Cell", datastore.Shape{1, 2, 4})
	require.NoError(t, err)
	require.NoError(t, ds.SetCellData(geom, cells))
	s, err := datastore.New(datastore.Uint16, datastore.Shape{1, 2, 4}, nil, datastore.WithChunkShape(datastore.Shape{1, 1, 4, 1}))
	require.NoError(t, err)
	_, err = ds.CreateDataArray(cells, "Data", s)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "image.nxg")
	_, err = dataio.WriteFile(context.Background(), path, ds, dataio.WriteOptions{})
	require.NoError(t, err)
	return path
}

func TestRun(t *testing.T) {
	path := writeContainer(t)

	var stdout, stderr bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"--verify", "--chunks", path}, &stdout, &stderr))

	out := stdout.String()
	assert.Contains(t, out, "Image/Cell/Data")
	assert.Contains(t, out, "uint16")
	assert.Contains(t, out, "{1, 2, 4}")
	assert.Contains(t, out, "chunk grid")
	assert.Contains(t, out, "{1, 2, 1, 1}")
	assert.Contains(t, out, "dims 4 x 2 x 1")
	assert.Contains(t, out, "all checksums ok")
}

func TestRunErrors(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Error(t, run(context.Background(), nil, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "Usage")

	bad := filepath.Join(t.TempDir(), "bad.nxg")
	require.NoError(t, os.WriteFile(bad, bytes.Repeat([]byte{0xff}, 64), 0o600))
	assert.ErrorIs(t, run(context.Background(), []string{bad}, &stdout, &stderr), dataio.ErrInvalidMagic)
}
