// Package gencoord provides the generalized-coordinate vector representation shared by the
// rigid-body model, the MI solve driver, and the ICP worker.
package gencoord

// Input wraps a single scalar of a generalized-coordinate vector, e.g. a translation
// component in meters or a roll/pitch/yaw component in radians.
type Input struct {
	Value float64
}

// FloatsToInputs wraps a slice of floats in Inputs.
func FloatsToInputs(floats []float64) []Input {
	inputs := make([]Input, len(floats))
	for i, f := range floats {
		inputs[i] = Input{f}
	}
	return inputs
}

// InputsToFloats unwraps a slice of Inputs into floats.
func InputsToFloats(inputs []Input) []float64 {
	floats := make([]float64, len(inputs))
	for i, a := range inputs {
		floats[i] = a.Value
	}
	return floats
}
