// Package hclspace reads and writes parameter spaces as HCL.
//
// A space file declares parameter and tensor blocks:
//
//	parameter "dim" {
//	  distribution = "weighted"
//	  strict       = true
//	  outcome {
//	    value  = 1
//	    weight = 0.3
//	  }
//	  outcome {
//	    value  = 2
//	    weight = 0.7
//	  }
//	}
//
//	parameter "k_pow2_0" {
//	  distribution = "choice"
//	  values       = pow2_range(min_dim_size, max_dim_size)
//	}
//
//	tensor "x" {
//	  size         = ["k0"]
//	  dim          = "dim"
//	  max_elements = max_elements
//	}
//
// Distributions are literal (value), uniform and loguniform (min, max),
// weighted (outcome blocks with value or alias, and weight) and choice
// (values, equally weighted). Expressions may read the caller's variables
// and call pow2_range, pow, min, max, floor and log.
package hclspace
