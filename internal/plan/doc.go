// Package plan loads solve plans: HCL files that describe a model, its data,
// the solver to use and the solving options, so a run can be repeated
// without a long command line.
//
//	solver = "gecode"
//
//	model {
//	  files = ["queens.mzn"]
//	}
//
//	enum "Color" {
//	  members = ["Red", "Green", "Blue"]
//	}
//
//	data {
//	  n       = 8
//	  rows    = range(1, 8)
//	  palette = set(Red, Blue)
//	}
//
//	expressions {
//	  limit = "n * 2"
//	}
//
//	output {
//	  q = array(int)
//	}
//
//	options {
//	  all_solutions = true
//	  timeout       = "10s"
//	}
package plan
