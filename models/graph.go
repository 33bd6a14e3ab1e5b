package models

// EdgeDefinition declares one edge collection of a named graph together
// with the vertex collections its edges may start and end in.
type EdgeDefinition struct {
	Collection string   `json:"collection"`
	From       []string `json:"from"`
	To         []string `json:"to"`
}

// Graph describes a named graph.
type Graph struct {
	// Name is the graph name.
	Name string `json:"name"`

	// ID and Rev are the server-side document identity of the graph
	// definition.
	ID  string `json:"_id,omitempty"`
	Rev string `json:"_rev,omitempty"`

	// EdgeDefinitions are the graph's edge collections.
	EdgeDefinitions []EdgeDefinition `json:"edgeDefinitions,omitempty"`

	// OrphanCollections are vertex collections not referenced by any edge
	// definition.
	OrphanCollections []string `json:"orphanCollections,omitempty"`
}

// Document is a schemaless database document.
type Document map[string]any

// Key returns the document key, or "".
func (d Document) Key() string {
	key, _ := d["_key"].(string)
	return key
}

// Rev returns the document revision, or "".
func (d Document) Rev() string {
	rev, _ := d["_rev"].(string)
	return rev
}
