package detections

// Runner is the narrow contract the pipeline needs from a numeric inference
// runtime: one synchronous call mapping the letterboxed input tensor to the
// raw output tensor. The handle behind it is loaded and shape-validated
// before the pipeline ever runs, so a shape mismatch is a startup failure,
// never a per-frame condition.
//
// Input layout: CHW float32, [3, S, S] normalized to [0,1].
// Output layout: [4+numClasses, numPredictions] row-major float32.
type Runner interface {
	Run(input []float32) ([]float32, error)
}
