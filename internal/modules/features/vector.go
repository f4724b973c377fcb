package features

import "math"

// Vector is one game's feature values keyed by column name. Values are set
// by the builders; Ordered flattens to the schema order for model input.
type Vector struct {
	values map[string]float64
}

// NewVector returns an empty feature vector.
func NewVector() *Vector {
	return &Vector{values: make(map[string]float64, len(schema))}
}

// Set records a value for a column.
func (v *Vector) Set(name string, value float64) {
	v.values[name] = value
}

// SetFlag records a boolean column as 0/1.
func (v *Vector) SetFlag(name string, on bool) {
	if on {
		v.values[name] = 1
	} else {
		v.values[name] = 0
	}
}

// Value returns a column's value and whether it was set.
func (v *Vector) Value(name string) (float64, bool) {
	val, ok := v.values[name]
	return val, ok
}

// Len returns the number of set columns.
func (v *Vector) Len() int {
	return len(v.values)
}

// Ordered flattens the vector to schema order. Unset columns are 0; callers
// that need fallback semantics apply them before flattening.
func (v *Vector) Ordered() []float64 {
	out := make([]float64, len(schema))
	for i, c := range schema {
		out[i] = v.values[c.Name]
	}
	return out
}

// OrderedOrNaN flattens to schema order with NaN marking unset columns, so a
// post-pass can impute them.
func (v *Vector) OrderedOrNaN() []float64 {
	out := make([]float64, len(schema))
	for i, c := range schema {
		if val, ok := v.values[c.Name]; ok {
			out[i] = val
		} else {
			out[i] = math.NaN()
		}
	}
	return out
}

// OrderedFor flattens the vector to an arbitrary column order, as recorded by
// a trained model. Missing names resolve to fallback(name).
func (v *Vector) OrderedFor(names []string, fallback func(name string) float64) []float64 {
	out := make([]float64, len(names))
	for i, name := range names {
		if val, ok := v.values[name]; ok {
			out[i] = val
		} else {
			out[i] = fallback(name)
		}
	}
	return out
}
