// internal/workflow/doc.go

/*
Package workflow holds the declarative side of a pipeline: the ordered step
list, the declared external inputs and the named outputs.

A Workflow stores intent only. It validates ids and refuses renames, but it
never rewires bindings; keeping a live graph in step with it is the job of
the graph manager.

The serialized form is

	{
	  "input":  ["table1", {"id": "table2", "path": "t2.csv"}],
	  "steps":  [{"id": "s1", "verb": "concat", "args": {},
	              "inputs": {"source": {"node": "table1"}, "others": [{"node": "table2"}]}}],
	  "output": [{"name": "result", "node": "s1"}]
	}

and the YAML rendition of the same tree.
*/
package workflow
