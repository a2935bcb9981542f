// Package docquery provides a Go client for the Netflex content search API.
//
// Queries are built fluently and compiled into a Lucene-style boolean
// expression plus a search URL. Published-only filtering is applied to
// every top-level query unless disabled.
//
//	client, _ := docquery.New(ctx,
//	    docquery.WithCredentials(publicKey, privateKey),
//	    docquery.WithMemoryCache(),
//	)
//	defer client.Close()
//
//	items, err := client.Query("article", 0).
//	    Where("author", docquery.OpEq, "john").
//	    Or(func(q *docquery.Query) {
//	        q.Where("tags", docquery.OpEq, []any{"go", "search"})
//	        q.Where("featured", docquery.OpEq, true)
//	    }).
//	    OrderBy("updated", docquery.DirDesc).
//	    Limit(20).
//	    Get(ctx)
//
// # Typed results
//
//	type Article struct{ ID int64; Name string }
//
//	articles := docquery.Map(client.Query("article", 0), func(it docquery.Item) (Article, bool) {
//	    id, err := it["id"].(json.Number).Int64()
//	    return Article{ID: id, Name: fmt.Sprint(it["name"])}, err == nil
//	})
//	page, _ := articles.Paginate(ctx, 25, 1)
//
// Build errors (unknown operators, unsupported values) are recorded on the
// query and returned by the first compile or terminal call; see Query.Err.
package docquery
