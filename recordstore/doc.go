// Package recordstore implements the flat staging structure analytic plugins
// use to read graph elements and propose mutations.
//
// A Store is an ordered sequence of records. Each record maps a namespaced key
// such as "source.Identifier" or "transaction.Type" to a value. Stores are
// built by appending records and read with a single forward cursor:
//
//	out := recordstore.New()
//	h := out.Add()
//	_ = out.Set(h, recordstore.SourceIdentifier, "alice")
//
//	out.Reset()
//	for out.Next() {
//		fmt.Println(out.GetString(recordstore.SourceIdentifier))
//	}
//
// A Store is not safe for concurrent use.
package recordstore
