package graph

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/nxgraph/datastore"
	"github.com/hupe1980/nxgraph/internal/resource"
	"github.com/hupe1980/nxgraph/result"
)

func newArray(t *testing.T, tuple datastore.Shape) datastore.Store {
	t.Helper()
	s, err := datastore.New(datastore.Float32, tuple, nil)
	require.NoError(t, err)
	return s
}

func TestPaths(t *testing.T) {
	p, err := ParsePath("/a/b/c/")
	require.NoError(t, err)
	assert.Equal(t, DataPath{"a", "b", "c"}, p)
	assert.Equal(t, "a/b/c", p.String())
	assert.Equal(t, "c", p.Name())
	assert.Equal(t, DataPath{"a", "b"}, p.Parent())
	assert.Equal(t, DataPath{"a", "b", "d"}, p.WithName("d"))
	assert.Equal(t, DataPath{"a", "b", "c", "e"}, p.Child("e"))
	assert.Equal(t, DataPath{"a", "b", "c"}, p, "derivations must not alias")

	root, err := ParsePath("")
	require.NoError(t, err)
	assert.True(t, root.IsRoot())

	for _, bad := range []string{"", ".", "..", "a/b"} {
		assert.ErrorIs(t, ValidateName(bad), ErrInvalidName, bad)
	}
	_, err = NewPath("ok", "not/ok")
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestCreateAndLookup(t *testing.T) {
	ds := New()
	g, err := ds.CreateGroup(RootID, "Data")
	require.NoError(t, err)
	a, err := ds.CreateDataArray(g, "Values", newArray(t, datastore.Shape{10}))
	require.NoError(t, err)

	id, ok := ds.Resolve(MustPath("Data", "Values"))
	require.True(t, ok)
	assert.Equal(t, a, id)

	arr, err := Lookup[*DataArray](ds, MustPath("Data", "Values"))
	require.NoError(t, err)
	assert.Equal(t, 10, arr.Size())

	_, err = Lookup[*Group](ds, MustPath("Data", "Values"))
	assert.ErrorIs(t, err, ErrKindMismatch)
	_, err = Lookup[*Group](ds, MustPath("Missing"))
	assert.True(t, IsNotFound(err))

	_, err = ds.CreateGroup(g, "Values")
	assert.ErrorIs(t, err, ErrNameCollision)
	assert.Equal(t, result.KindStructural, result.KindOf(err))

	_, err = ds.CreateGroup(a, "Child")
	assert.ErrorIs(t, err, ErrInvalidParent)

	_, err = ds.CreateGroup(g, "bad/name")
	assert.ErrorIs(t, err, ErrInvalidName)

	assert.Equal(t, 2, ds.Len())
	require.NoError(t, ds.Validate())
}

func TestAttributeMatrixTupleShape(t *testing.T) {
	ds := New()
	m, err := ds.CreateAttributeMatrix(RootID, "Cells", datastore.Shape{2, 3})
	require.NoError(t, err)

	_, err = ds.CreateDataArray(m, "Wrong", newArray(t, datastore.Shape{6}))
	assert.ErrorIs(t, err, ErrTupleShapeMismatch)

	a, err := ds.CreateDataArray(m, "Right", newArray(t, datastore.Shape{2, 3}))
	require.NoError(t, err)

	_, err = ds.CreateGroup(m, "Group")
	assert.ErrorIs(t, err, ErrInvalidParent)

	require.NoError(t, ds.ResizeAttributeMatrix(m, datastore.Shape{4, 4}))
	arr, _ := ds.GetDataArray(a)
	assert.Equal(t, datastore.Shape{4, 4}, arr.TupleShape())
	assert.Equal(t, 16, arr.Size())

	assert.ErrorIs(t, ds.ReshapeArray(a, datastore.Shape{3}), ErrTupleShapeMismatch)
	assert.ErrorIs(t, ds.SetStore(a, newArray(t, datastore.Shape{3})), ErrTupleShapeMismatch)
	require.NoError(t, ds.Validate())
}

func TestIdentifierStability(t *testing.T) {
	ds := New()
	g, err := ds.CreateGroup(RootID, "G")
	require.NoError(t, err)
	a, err := ds.CreateDataArray(g, "A", newArray(t, datastore.Shape{4}))
	require.NoError(t, err)

	for i, name := range []string{"B", "C", "D"} {
		_, err := ds.CreateGroup(g, name)
		require.NoError(t, err)
		require.NoError(t, ds.Rename(g, name+"G"))
		require.NoError(t, ds.Rename(a, name+"A"))
		obj, ok := ds.Get(a)
		require.True(t, ok, "iteration %d", i)
		assert.Equal(t, a, obj.ID())
	}

	obj, _ := ds.Get(a)
	assert.Equal(t, "DA", obj.Name())
	_, ok := ds.Resolve(MustPath("G", "A"))
	assert.False(t, ok, "old path is stale")

	require.NoError(t, ds.Remove(a))
	_, ok = ds.Get(a)
	assert.False(t, ok)

	b, err := ds.CreateDataArray(g, "DA", newArray(t, datastore.Shape{4}))
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	_, ok = ds.Get(a)
	assert.False(t, ok, "destroyed id stays destroyed")
	assert.ErrorIs(t, ds.Rename(a, "X"), ErrStaleID)
	assert.ErrorIs(t, ds.Rename(ID{Index: 999, Gen: 1}, "X"), ErrNotFound)
}

func TestRenameCollision(t *testing.T) {
	ds := New()
	_, err := ds.CreateGroup(RootID, "A")
	require.NoError(t, err)
	b, err := ds.CreateGroup(RootID, "B")
	require.NoError(t, err)

	assert.ErrorIs(t, ds.Rename(b, "A"), ErrNameCollision)
	obj, _ := ds.Get(b)
	assert.Equal(t, "B", obj.Name())
}

func TestRemoveCascades(t *testing.T) {
	ds := New()
	g, _ := ds.CreateGroup(RootID, "G")
	sub, _ := ds.CreateGroup(g, "Sub")
	leaf, _ := ds.CreateDataArray(sub, "Leaf", newArray(t, datastore.Shape{1}))
	other, _ := ds.CreateGroup(RootID, "Other")
	require.NoError(t, ds.AddParent(leaf, other))

	require.NoError(t, ds.Remove(g))
	assert.False(t, ds.Contains(sub))
	assert.True(t, ds.Contains(leaf), "leaf still owned by Other")

	obj, _ := ds.Get(leaf)
	assert.Equal(t, []ID{other}, obj.Parents())
	require.NoError(t, ds.Validate())

	require.NoError(t, ds.RemoveFromParent(other, leaf))
	assert.False(t, ds.Contains(leaf))
	assert.Equal(t, 1, ds.Len())
}

func TestMultiParentAndCycles(t *testing.T) {
	ds := New()
	a, _ := ds.CreateGroup(RootID, "A")
	b, _ := ds.CreateGroup(a, "B")
	c, _ := ds.CreateGroup(b, "C")

	assert.ErrorIs(t, ds.AddParent(a, c), ErrCycle)
	assert.ErrorIs(t, ds.AddParent(a, a), ErrCycle)

	require.NoError(t, ds.AddParent(c, RootID))
	paths := ds.PathsOf(c)
	assert.ElementsMatch(t, []DataPath{{"A", "B", "C"}, {"C"}}, paths)

	require.NoError(t, ds.Rename(c, "D"))
	_, ok := ds.Resolve(MustPath("D"))
	assert.True(t, ok)
	_, ok = ds.Resolve(MustPath("A", "B", "D"))
	assert.True(t, ok)

	require.NoError(t, ds.Move(c, b, a))
	assert.ElementsMatch(t, []DataPath{{"A", "D"}, {"D"}}, ds.PathsOf(c))
	require.NoError(t, ds.Validate())
}

func TestShallowCopySharesStore(t *testing.T) {
	ds := New()
	store := newArray(t, datastore.Shape{3})
	a, _ := ds.CreateDataArray(RootID, "A", store)

	v, err := ds.ShallowCopy(a, RootID, "View")
	require.NoError(t, err)
	assert.NotEqual(t, a, v)

	view, _ := ds.GetDataArray(v)
	assert.Same(t, store, view.Store())

	g, _ := ds.CreateGroup(RootID, "G")
	_, _ = ds.CreateGroup(g, "Inner")
	gv, err := ds.ShallowCopy(g, RootID, "GV")
	require.NoError(t, err)
	inner, ok := ds.Resolve(MustPath("GV", "Inner"))
	require.True(t, ok)
	innerViaG, _ := ds.Resolve(MustPath("G", "Inner"))
	assert.Equal(t, innerViaG, inner)

	_, err = ds.ShallowCopy(g, innerViaG, "Loop")
	assert.ErrorIs(t, err, ErrCycle)

	require.NoError(t, ds.Remove(g))
	assert.True(t, ds.Contains(inner), "still owned by the view")
	_ = gv
	require.NoError(t, ds.Validate())
}

func TestReshapeSharedStoreChecksEveryHolder(t *testing.T) {
	ds := New()
	cells, err := ds.CreateAttributeMatrix(RootID, "Cells", datastore.Shape{4})
	require.NoError(t, err)
	a, err := ds.CreateDataArray(cells, "A", newArray(t, datastore.Shape{4}))
	require.NoError(t, err)
	v, err := ds.ShallowCopy(a, RootID, "View")
	require.NoError(t, err)

	assert.ErrorIs(t, ds.ReshapeArray(v, datastore.Shape{7}), ErrTupleShapeMismatch)
	view, _ := ds.GetDataArray(v)
	assert.Equal(t, datastore.Shape{4}, view.TupleShape())
	require.NoError(t, ds.Validate())
}

func TestResizeMatrixChecksOtherParents(t *testing.T) {
	ds := New()
	m1, err := ds.CreateAttributeMatrix(RootID, "M1", datastore.Shape{4})
	require.NoError(t, err)
	m2, err := ds.CreateAttributeMatrix(RootID, "M2", datastore.Shape{4})
	require.NoError(t, err)
	a, err := ds.CreateDataArray(m1, "A", newArray(t, datastore.Shape{4}))
	require.NoError(t, err)
	require.NoError(t, ds.AddParent(a, m2))

	assert.ErrorIs(t, ds.ResizeAttributeMatrix(m1, datastore.Shape{9}), ErrTupleShapeMismatch)
	m, _ := ds.GetAttributeMatrix(m1)
	assert.Equal(t, datastore.Shape{4}, m.TupleShape())
	arr, _ := ds.GetDataArray(a)
	assert.Equal(t, datastore.Shape{4}, arr.TupleShape())
	require.NoError(t, ds.Validate())

	require.NoError(t, ds.RemoveFromParent(m2, a))
	require.NoError(t, ds.ResizeAttributeMatrix(m1, datastore.Shape{9}))
	assert.Equal(t, datastore.Shape{9}, arr.TupleShape())
}

func TestDeepCopy(t *testing.T) {
	ds := New()
	geom, err := ds.CreateImageGeom(RootID, "Image", [3]int{2, 3, 4}, [3]float64{}, [3]float64{1, 1, 1})
	require.NoError(t, err)
	cells, err := ds.CreateAttributeMatrix(geom, "Cells", datastore.Shape{4, 3, 2})
	require.NoError(t, err)
	require.NoError(t, ds.SetCellData(geom, cells))
	src, _ := datastore.NewTyped[int32](datastore.Shape{4, 3, 2}, nil)
	src.Set(5, 42)
	arr, err := ds.CreateDataArray(cells, "Phases", src)
	require.NoError(t, err)

	cp, err := ds.DeepCopy(geom, MustPath("Copy"))
	require.NoError(t, err)
	assert.NotEqual(t, geom, cp)

	cpArr, err := Lookup[*DataArray](ds, MustPath("Copy", "Cells", "Phases"))
	require.NoError(t, err)
	assert.NotEqual(t, arr, cpArr.ID())
	assert.NotSame(t, src, cpArr.Store())
	assert.Equal(t, 42.0, cpArr.Store().Float64At(5))

	src.Set(5, 0)
	assert.Equal(t, 42.0, cpArr.Store().Float64At(5))

	cpGeom, _ := ds.GetImageGeom(cp)
	cpCells, _ := ds.Resolve(MustPath("Copy", "Cells"))
	assert.Equal(t, cpCells, cpGeom.CellData(), "weak reference remapped")

	_, err = ds.DeepCopy(geom, MustPath("Copy"))
	assert.ErrorIs(t, err, ErrNameCollision)

	inside, err := ds.DeepCopy(geom, MustPath("Image", "Nested"))
	require.NoError(t, err)
	assert.True(t, ds.Contains(inside))
	require.NoError(t, ds.Validate())
}

func TestSetImageGeomDimsResizesCells(t *testing.T) {
	ds := New()
	geom, _ := ds.CreateImageGeom(RootID, "Image", [3]int{2, 2, 2}, [3]float64{}, [3]float64{1, 1, 1})
	cells, _ := ds.CreateAttributeMatrix(geom, "Cells", datastore.Shape{2, 2, 2})
	require.NoError(t, ds.SetCellData(geom, cells))
	a, _ := ds.CreateDataArray(cells, "Mask", newArray(t, datastore.Shape{2, 2, 2}))

	require.NoError(t, ds.SetImageGeomDims(geom, [3]int{5, 4, 3}))
	arr, _ := ds.GetDataArray(a)
	assert.Equal(t, datastore.Shape{3, 4, 5}, arr.TupleShape())

	assert.ErrorIs(t, ds.SetImageGeomDims(geom, [3]int{0, 1, 1}), datastore.ErrShapeMismatch)

	other, _ := ds.CreateAttributeMatrix(geom, "Other", datastore.Shape{7})
	assert.ErrorIs(t, ds.SetCellData(geom, other), ErrTupleShapeMismatch)
}

func TestStructuralCopy(t *testing.T) {
	ds := New()
	g, _ := ds.CreateGroup(RootID, "G")
	a, _ := ds.CreateDataArray(g, "A", newArray(t, datastore.Shape{8}))

	sc := ds.StructuralCopy()
	arr, ok := sc.GetDataArray(a)
	require.True(t, ok)
	assert.False(t, arr.Store().Allocated())
	assert.Equal(t, datastore.Shape{8}, arr.TupleShape())

	_, err := sc.CreateGroup(g, "OnlyInCopy")
	require.NoError(t, err)
	_, ok = ds.Resolve(MustPath("G", "OnlyInCopy"))
	assert.False(t, ok)

	assert.Empty(t, cmp.Diff(summarize(t, ds), summarize(t, ds.StructuralCopy())))
}

func TestMemoryAccounting(t *testing.T) {
	rc := resource.NewController(resource.Config{MemoryLimitBytes: 64})
	ds := New(WithMemoryAcquirer(rc))

	a, err := ds.CreateDataArray(RootID, "A", newArray(t, datastore.Shape{8}))
	require.NoError(t, err)
	assert.Equal(t, int64(32), rc.MemoryUsage())

	_, err = ds.ShallowCopy(a, RootID, "View")
	require.NoError(t, err)
	assert.Equal(t, int64(32), rc.MemoryUsage(), "shared store counted once")

	_, err = ds.CreateDataArray(RootID, "TooBig", newArray(t, datastore.Shape{16}))
	assert.ErrorIs(t, err, resource.ErrMemoryLimitExceeded)
	_, ok := ds.Resolve(MustPath("TooBig"))
	assert.False(t, ok)

	require.NoError(t, ds.ReshapeArray(a, datastore.Shape{4}))
	assert.Equal(t, int64(16), rc.MemoryUsage())

	require.NoError(t, ds.Remove(a))
	assert.Equal(t, int64(16), rc.MemoryUsage())
	v, _ := ds.Resolve(MustPath("View"))
	require.NoError(t, ds.Remove(v))
	assert.Zero(t, rc.MemoryUsage())
}

type nodeSummary struct {
	Kind      string
	DataType  string
	Tuple     []int
	Component []int
}

func summarize(t *testing.T, ds *DataStructure) map[string]nodeSummary {
	t.Helper()
	out := map[string]nodeSummary{}
	require.NoError(t, ds.Walk(func(p DataPath, obj Object) error {
		s := nodeSummary{Kind: obj.Kind().String()}
		if a, ok := obj.(*DataArray); ok {
			s.DataType = a.DataType().String()
			s.Tuple = a.TupleShape()
			s.Component = a.ComponentShape()
		}
		out[p.String()] = s
		return nil
	}))
	return out
}
