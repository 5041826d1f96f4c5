package forecast

import (
	"errors"
	"math"
)

var errSingularMatrix = errors.New("normal equations matrix is not positive definite")

// fitOLS solves the ordinary least squares problem y ~ X + intercept via
// the normal equations. X is row-major (one observation per row). The
// intercept is handled as an implicit trailing column of ones.
//
// On small or degenerate datasets the normal equations can be rank
// deficient (e.g. fewer observations than columns). Rather than failing,
// a tiny ridge term is added to the diagonal and the solve is retried
// with escalating jitter, which keeps cold-start training on a handful
// of records usable.
func fitOLS(X [][]float64, y []float64) (coefficients []float64, intercept float64, err error) {
	n := len(X)
	if n == 0 || n != len(y) {
		return nil, 0, errors.New("empty or mismatched design matrix")
	}
	k := len(X[0]) + 1 // +1 for the intercept column

	// Build A = X'X and b = X'y over the augmented matrix.
	A := make([][]float64, k)
	for i := range A {
		A[i] = make([]float64, k)
	}
	b := make([]float64, k)
	for t := 0; t < n; t++ {
		for i := 0; i < k; i++ {
			xi := 1.0
			if i < k-1 {
				xi = X[t][i]
			}
			b[i] += xi * y[t]
			for j := i; j < k; j++ {
				xj := 1.0
				if j < k-1 {
					xj = X[t][j]
				}
				A[i][j] += xi * xj
			}
		}
	}
	for i := 1; i < k; i++ {
		for j := 0; j < i; j++ {
			A[i][j] = A[j][i]
		}
	}

	beta, err := solveCholesky(A, b)
	for jitter := 1e-8; err != nil && jitter <= 1e-2; jitter *= 100 {
		for i := 0; i < k; i++ {
			A[i][i] += jitter
		}
		beta, err = solveCholesky(A, b)
	}
	if err != nil {
		return nil, 0, err
	}
	return beta[:k-1], beta[k-1], nil
}

// solveCholesky solves A*x = b for symmetric positive definite A.
func solveCholesky(A [][]float64, b []float64) ([]float64, error) {
	n := len(A)
	L := make([][]float64, n)
	for i := range L {
		L[i] = make([]float64, n)
	}

	for i := 0; i < n; i++ {
		for j := 0; j <= i; j++ {
			var sum float64
			for k := 0; k < j; k++ {
				sum += L[i][k] * L[j][k]
			}
			if i == j {
				val := A[i][i] - sum
				if val <= 0 {
					return nil, errSingularMatrix
				}
				L[i][i] = math.Sqrt(val)
			} else {
				L[i][j] = (A[i][j] - sum) / L[j][j]
			}
		}
	}

	// Forward substitution: L*z = b.
	z := make([]float64, n)
	for i := 0; i < n; i++ {
		var sum float64
		for j := 0; j < i; j++ {
			sum += L[i][j] * z[j]
		}
		z[i] = (b[i] - sum) / L[i][i]
	}

	// Back substitution: L'*x = z.
	x := make([]float64, n)
	for i := n - 1; i >= 0; i-- {
		var sum float64
		for j := i + 1; j < n; j++ {
			sum += L[j][i] * x[j]
		}
		x[i] = (z[i] - sum) / L[i][i]
	}
	return x, nil
}

// meanAbsoluteError computes MAE between actual and predicted values.
func meanAbsoluteError(actual, predicted []float64) float64 {
	if len(actual) == 0 {
		return 0
	}
	var sum float64
	for i := range actual {
		sum += math.Abs(actual[i] - predicted[i])
	}
	return sum / float64(len(actual))
}

// rootMeanSquaredError computes RMSE between actual and predicted values.
func rootMeanSquaredError(actual, predicted []float64) float64 {
	if len(actual) == 0 {
		return 0
	}
	var sum float64
	for i := range actual {
		d := actual[i] - predicted[i]
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(actual)))
}

// rSquared computes the coefficient of determination. A partition whose
// target has zero variance (e.g. a single-row holdout) has no defined R²;
// it is reported as 0, which downstream flows into a 0% confidence.
func rSquared(actual, predicted []float64) float64 {
	if len(actual) == 0 {
		return 0
	}
	var mean float64
	for _, v := range actual {
		mean += v
	}
	mean /= float64(len(actual))

	var ssRes, ssTot float64
	for i := range actual {
		r := actual[i] - predicted[i]
		ssRes += r * r
		d := actual[i] - mean
		ssTot += d * d
	}
	if ssTot == 0 {
		return 0
	}
	return 1 - ssRes/ssTot
}
