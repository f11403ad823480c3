// Package datasets loads and generates the data used by the benchmarks.
//
// The MNIST loader fetches the four IDX files of the canonical
// distribution through a Source, concatenates them into the 70000-row
// versioned dataset, coerces element width and memory layout, rescales
// pixels into [0, 1] and splits at a fixed row. Results are cached on disk
// keyed by the load fingerprint so repeated runs skip the fetch.
//
// Feature matrices are gonum mat.Matrix values. Row-major ("C") data is a
// *mat.Dense; column-major ("F") data is stored as the transposed dense and
// exposed through T(), so both layouts answer At(i, j) the same way.
package datasets
