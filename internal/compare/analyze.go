package compare

import "github.com/verte-zerg/hearme/internal/model"

// Result is the outcome of one comparison pass.
type Result struct {
	Mismatches     []model.MismatchRecord
	Positions      []int // token index of each mismatch
	Compared       int
	ExpectedTokens int
	ObservedTokens int
}

// Compare tokenizes both texts and compares them position by position.
//
// Alignment is purely positional: token i of observed is compared with token
// i of expected. A skipped or inserted word shifts every later comparison
// until the transcript catches up.
func Compare(observed, expected string, tolerance float64) Result {
	obs := Tokenize(observed)
	exp := Tokenize(expected)
	n := min(len(obs), len(exp))

	res := Result{
		Mismatches:     []model.MismatchRecord{},
		Compared:       n,
		ExpectedTokens: len(exp),
		ObservedTokens: len(obs),
	}
	for i := 0; i < n; i++ {
		if FuzzyEqual(obs[i], exp[i], tolerance) {
			continue
		}
		res.Mismatches = append(res.Mismatches, model.MismatchRecord{Expected: exp[i], Observed: obs[i]})
		res.Positions = append(res.Positions, i)
	}
	return res
}

// Analyze returns the mismatches between observed and expected.
func Analyze(observed, expected string, tolerance float64) []model.MismatchRecord {
	return Compare(observed, expected, tolerance).Mismatches
}
