// Package hcl loads workflow definitions written in HCL.
//
//	input "sales" {
//	  path = "data/sales.csv"
//	}
//
//	step "big" {
//	  verb = "filter"
//	  args = {
//	    column   = "amount"
//	    criteria = [{ operator = ">", value = 100 }]
//	  }
//	  input "source" {
//	    node = "sales"
//	  }
//	}
//
//	output "big" {
//	  node = "big"
//	}
//
// Steps keep file order, and files of a directory are read in lexical
// order. A step without input blocks is auto-bound to the step before it.
package hcl
