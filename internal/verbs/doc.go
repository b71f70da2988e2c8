// Package verbs holds the table transformations a step can apply and the
// registry that maps verb names to them.
//
// Each verb is described by a Descriptor: the named input slots it reads,
// whether it also takes the variadic "others" list, a constructor for its
// defaulted argument struct, and the Executor that computes a new table.
// Verbs are grouped into modules that register themselves, the same way
// handlers are compiled into the binary and looked up by name at run time.
// The chain verb resolves its nested verbs through the same registry.
package verbs
