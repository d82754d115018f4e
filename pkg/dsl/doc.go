/*
Package dsl provides a fluent builder for graph definitions.

	def, err := dsl.New().
		Node("split", "split_text").
		Node("merge", "merge_summaries").
		Then("split", "merge").
		Build()

Edges added with When carry a condition and are tried in declaration order,
so a trailing Then acts as the fallback branch.
*/
package dsl
