package filter

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/hupe1980/nxgraph/datastore"
	"github.com/hupe1980/nxgraph/graph"
	"github.com/hupe1980/nxgraph/result"
)

// Parameter declares one filter argument.
type Parameter interface {
	Name() string
	HumanName() string
	Default() any
	// Validate normalizes v to the parameter's value type and checks it.
	Validate(v any) (any, error)
}

// StructureChecker is implemented by parameters that refer to objects in
// a data structure.
type StructureChecker interface {
	CheckStructure(ds *graph.DataStructure, v any) error
}

// Parameters is the ordered list a filter declares.
type Parameters []Parameter

// Lookup returns the parameter called name.
func (ps Parameters) Lookup(name string) (Parameter, bool) {
	i := slices.IndexFunc(ps, func(p Parameter) bool { return p.Name() == name })
	if i < 0 {
		return nil, false
	}
	return ps[i], true
}

// Resolve fills defaults for missing arguments, normalizes every value and
// reports all problems at once. Unknown argument names are errors.
func (ps Parameters) Resolve(args Arguments) result.Result[Arguments] {
	out := make(Arguments, len(ps))
	var res result.Result[Arguments]
	for _, p := range ps {
		v, ok := args[p.Name()]
		if !ok {
			out[p.Name()] = p.Default()
			continue
		}
		nv, err := p.Validate(v)
		if err != nil {
			res.AddError(result.FromError(fmt.Errorf("%s: %w", p.Name(), err)))
			continue
		}
		out[p.Name()] = nv
	}
	for _, name := range sortedKeys(args) {
		if _, ok := ps.Lookup(name); !ok {
			res.AddError(result.FromError(fmt.Errorf("%w: %q", ErrUnknownArgument, name)))
		}
	}
	res.Value = out
	return res
}

// CheckStructure runs every StructureChecker against resolved args.
func (ps Parameters) CheckStructure(ds *graph.DataStructure, args Arguments) result.Errors {
	var errs result.Errors
	for _, p := range ps {
		c, ok := p.(StructureChecker)
		if !ok {
			continue
		}
		if err := c.CheckStructure(ds, args[p.Name()]); err != nil {
			errs = append(errs, result.FromError(fmt.Errorf("%s: %w", p.Name(), err)))
		}
	}
	return errs
}

func sortedKeys(args Arguments) []string {
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

type param[T any] struct {
	name, human string
	def         T
	convert     func(any) (T, error)
	check       func(T) error
}

func (p *param[T]) Name() string      { return p.name }
func (p *param[T]) HumanName() string { return p.human }
func (p *param[T]) Default() any      { return p.def }

func (p *param[T]) Validate(v any) (any, error) {
	t, err := p.convert(v)
	if err != nil {
		return nil, err
	}
	if p.check != nil {
		if err := p.check(t); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func typeError(v any, want string) error {
	return fmt.Errorf("%w: got %T, want %s", ErrArgumentType, v, want)
}

// Bool declares a boolean parameter.
func Bool(name, human string, def bool) Parameter {
	return &param[bool]{name: name, human: human, def: def, convert: func(v any) (bool, error) {
		b, ok := v.(bool)
		if !ok {
			return false, typeError(v, "bool")
		}
		return b, nil
	}}
}

// Int declares an integer parameter. Values are stored as int64; decoded
// config numbers of any integer type, or integral floats, are accepted.
func Int(name, human string, def int64) Parameter {
	return &param[int64]{name: name, human: human, def: def, convert: toInt64}
}

// IntRange declares an integer parameter bounded to [lo, hi].
func IntRange(name, human string, def, lo, hi int64) Parameter {
	return &param[int64]{name: name, human: human, def: def, convert: toInt64, check: func(v int64) error {
		if v < lo || v > hi {
			return fmt.Errorf("%w: %d not in [%d, %d]", ErrInvalidArgument, v, lo, hi)
		}
		return nil
	}}
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int8:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case uint8:
		return int64(n), nil
	case uint16:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case uint64:
		if n > math.MaxInt64 {
			return 0, fmt.Errorf("%w: %d overflows int64", ErrInvalidArgument, n)
		}
		return int64(n), nil
	case float64:
		if n != math.Trunc(n) || math.Abs(n) > 1<<53 {
			return 0, fmt.Errorf("%w: %v is not an integer", ErrInvalidArgument, n)
		}
		return int64(n), nil
	default:
		return 0, typeError(v, "integer")
	}
}

// Float declares a float64 parameter.
func Float(name, human string, def float64) Parameter {
	return &param[float64]{name: name, human: human, def: def, convert: toFloat64, check: finite}
}

func finite(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: %v is not finite", ErrInvalidArgument, v)
	}
	return nil
}

func toFloat64(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	default:
		i, err := toInt64(v)
		if err != nil {
			return 0, typeError(v, "number")
		}
		return float64(i), nil
	}
}

// String declares a string parameter.
func String(name, human, def string) Parameter {
	return &param[string]{name: name, human: human, def: def, convert: func(v any) (string, error) {
		s, ok := v.(string)
		if !ok {
			return "", typeError(v, "string")
		}
		return s, nil
	}}
}

// Choice declares an enumerated parameter. The value is the index into
// choices; the choice text is accepted too.
func Choice(name, human string, def int, choices ...string) Parameter {
	choices = slices.Clone(choices)
	return &param[int]{name: name, human: human, def: def, convert: func(v any) (int, error) {
		if s, ok := v.(string); ok {
			i := slices.Index(choices, s)
			if i < 0 {
				return 0, fmt.Errorf("%w: %q is not one of %s", ErrInvalidArgument, s, strings.Join(choices, ", "))
			}
			return i, nil
		}
		i, err := toInt64(v)
		if err != nil {
			return 0, err
		}
		if i < 0 || int(i) >= len(choices) {
			return 0, fmt.Errorf("%w: choice %d out of range", ErrInvalidArgument, i)
		}
		return int(i), nil
	}}
}

// DataTypeParam declares an element type parameter.
func DataTypeParam(name, human string, def datastore.DataType) Parameter {
	return &param[datastore.DataType]{name: name, human: human, def: def, convert: func(v any) (datastore.DataType, error) {
		switch t := v.(type) {
		case datastore.DataType:
			if !t.Valid() {
				return 0, fmt.Errorf("%w: %v", datastore.ErrUnsupportedType, t)
			}
			return t, nil
		case string:
			return datastore.ParseDataType(t)
		default:
			return 0, typeError(v, "data type")
		}
	}}
}

// ShapeParam declares a shape parameter.
func ShapeParam(name, human string, def datastore.Shape) Parameter {
	return &param[datastore.Shape]{name: name, human: human, def: def.Clone(), convert: toShape, check: datastore.Shape.Validate}
}

func toShape(v any) (datastore.Shape, error) {
	switch s := v.(type) {
	case datastore.Shape:
		return s.Clone(), nil
	case []int:
		return datastore.Shape(slices.Clone(s)), nil
	case []any:
		out := make(datastore.Shape, len(s))
		for i, e := range s {
			n, err := toInt64(e)
			if err != nil {
				return nil, err
			}
			out[i] = int(n)
		}
		return out, nil
	default:
		return nil, typeError(v, "shape")
	}
}

// Vec3Param declares a three component float parameter.
func Vec3Param(name, human string, def [3]float64) Parameter {
	return &param[[3]float64]{name: name, human: human, def: def, convert: func(v any) ([3]float64, error) {
		var out [3]float64
		switch s := v.(type) {
		case [3]float64:
			return s, nil
		case []float64:
			if len(s) != 3 {
				return out, fmt.Errorf("%w: want 3 values, got %d", ErrInvalidArgument, len(s))
			}
			copy(out[:], s)
			return out, nil
		case []any:
			if len(s) != 3 {
				return out, fmt.Errorf("%w: want 3 values, got %d", ErrInvalidArgument, len(s))
			}
			for i, e := range s {
				f, err := toFloat64(e)
				if err != nil {
					return out, err
				}
				out[i] = f
			}
			return out, nil
		default:
			return out, typeError(v, "3-vector")
		}
	}}
}

func toPath(v any) (graph.DataPath, error) {
	switch p := v.(type) {
	case graph.DataPath:
		return slices.Clone(p), nil
	case []string:
		return graph.NewPath(p...)
	case string:
		return graph.ParsePath(p)
	default:
		return nil, typeError(v, "data path")
	}
}

func nonRoot(p graph.DataPath) error {
	if p.IsRoot() {
		return fmt.Errorf("%w: empty path", ErrInvalidArgument)
	}
	return nil
}

type pathParam struct {
	param[graph.DataPath]
	structure func(ds *graph.DataStructure, p graph.DataPath) error
}

func (p *pathParam) CheckStructure(ds *graph.DataStructure, v any) error {
	path, ok := v.(graph.DataPath)
	if !ok {
		return typeError(v, "data path")
	}
	return p.structure(ds, path)
}

func newPathParam(name, human string, def graph.DataPath, structure func(*graph.DataStructure, graph.DataPath) error) *pathParam {
	return &pathParam{
		param:     param[graph.DataPath]{name: name, human: human, def: def, convert: toPath, check: nonRoot},
		structure: structure,
	}
}

// ArrayCreation declares the path of an array the filter creates. The
// parent must exist and the name must be free.
func ArrayCreation(name, human string, def graph.DataPath) Parameter {
	return newPathParam(name, human, def, checkCreatable)
}

// GroupCreation declares the path of a group the filter creates.
func GroupCreation(name, human string, def graph.DataPath) Parameter {
	return newPathParam(name, human, def, checkCreatable)
}

// AttributeMatrixCreation declares the path of an attribute matrix the
// filter creates.
func AttributeMatrixCreation(name, human string, def graph.DataPath) Parameter {
	return newPathParam(name, human, def, checkCreatable)
}

func checkCreatable(ds *graph.DataStructure, p graph.DataPath) error {
	if _, ok := ds.Resolve(p.Parent()); !ok {
		return fmt.Errorf("%w: parent of %s", graph.ErrNotFound, p)
	}
	if _, ok := ds.Resolve(p); ok {
		return fmt.Errorf("%w: %s", graph.ErrNameCollision, p)
	}
	return nil
}

// ArraySelection declares the path of an existing array. When allowed is
// not empty the array's type must be one of them.
func ArraySelection(name, human string, def graph.DataPath, allowed ...datastore.DataType) Parameter {
	allowed = slices.Clone(allowed)
	return newPathParam(name, human, def, func(ds *graph.DataStructure, p graph.DataPath) error {
		arr, err := graph.Lookup[*graph.DataArray](ds, p)
		if err != nil {
			return err
		}
		if len(allowed) > 0 && !slices.Contains(allowed, arr.DataType()) {
			return fmt.Errorf("%w: %s is %s", datastore.ErrTypeMismatch, p, arr.DataType())
		}
		return nil
	})
}

// OptionalArraySelection is an ArraySelection that also accepts the empty
// path, meaning no array.
func OptionalArraySelection(name, human string, allowed ...datastore.DataType) Parameter {
	sel := ArraySelection(name, human, nil, allowed...).(*pathParam)
	sel.check = nil
	check := sel.structure
	sel.structure = func(ds *graph.DataStructure, p graph.DataPath) error {
		if p.IsRoot() {
			return nil
		}
		return check(ds, p)
	}
	return sel
}

// GeometrySelection declares the path of an existing image geometry.
func GeometrySelection(name, human string, def graph.DataPath) Parameter {
	return newPathParam(name, human, def, func(ds *graph.DataStructure, p graph.DataPath) error {
		_, err := graph.Lookup[*graph.ImageGeom](ds, p)
		return err
	})
}

// AttributeMatrixSelection declares the path of an existing attribute
// matrix.
func AttributeMatrixSelection(name, human string, def graph.DataPath) Parameter {
	return newPathParam(name, human, def, func(ds *graph.DataStructure, p graph.DataPath) error {
		_, err := graph.Lookup[*graph.AttributeMatrix](ds, p)
		return err
	})
}
