// Package taxonomy provides the semantic type catalog used to classify graph
// elements from free text.
//
// A Catalog holds vertex and transaction SemanticTypes. Each type can be
// recognised by its name, by a regular expression, or by a CEL expression
// evaluated against the variable `text`. When several types accept the same
// text, the catalog orders them by dominance so callers can pick the single
// most specific one.
//
// # Dominance
//
// Types form hierarchies through their Super field. A subtype is always more
// specific than its ancestors. Between unrelated types the deeper type wins,
// then the higher Priority, then the type registered first. The ordering is a
// strict total order, so BestMatch is deterministic for a given catalog.
//
// # Building a Catalog
//
//	cat, err := taxonomy.NewCatalog(
//	    taxonomy.Definition{Name: "Hash", Category: taxonomy.CategoryVertex},
//	    taxonomy.Definition{
//	        Name:     "MD5 Hash",
//	        Category: taxonomy.CategoryVertex,
//	        Super:    "Hash",
//	        Expr:     "size(text) == 32 && text.matches('^[0-9a-fA-F]+$')",
//	    },
//	)
//
//	best, ok := cat.BestMatch(taxonomy.CategoryVertex, "d41d8cd98f00b204e9800998ecf8427e")
//	// best.Name == "MD5 Hash"
//
// Catalogs are immutable once built and safe for concurrent use. They can be
// loaded from YAML with ParseYAML / LoadFile, or from an etcd key prefix with
// LoadEtcd. Default returns the built-in analytic catalog.
package taxonomy
