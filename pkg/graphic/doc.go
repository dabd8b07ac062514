/*
Package graphic converts SVG fragments to an in-memory tree and back.

The tree is a closed variant: every Node is either an *Element or a Text. Parsing keeps
attribute order, child order and attribute values exactly, so

	Parse(Serialize(Parse(x)))

is structurally equal to Parse(x) for any document x that Parse accepts.

Only structure is checked here. Whether a fragment is safe to render (no scripts, no
external references) is decided when it is ingested into the registry.
*/
package graphic
