/*
Package builder is the node factory. It bridges the declarative step model
(the 'workflow' package) and the live dataflow graph (the 'dataflow'
package).

For a step it looks up the verb descriptor, checks that explicit bindings
only name slots the verb declares, decodes the step arguments into the
verb's argument struct, and returns node options whose compute function
runs the verb executor over the node's resolved inputs.

The builder never binds inputs. Wiring is the graph manager's job, because
only the manager knows the step order used for auto-binding and the
declared inputs a binding may reference.
*/
package builder
