// Package esodm maps Go structs to Elasticsearch documents.
//
// Structs describe their index through `es` struct tags. The client derives
// index mappings from them, translates criteria, string and native queries
// into engine requests and maps responses back into typed hits.
//
// # Entities
//
//	type Article struct {
//	    ID      string           `es:",id"`
//	    Title   string           `es:"title,type=text" esfields:"raw,type=keyword"`
//	    Authors []Author         `es:"authors,type=nested"`
//	    Place   esodm.GeoPoint   `es:"place"`
//	    Version int64            `es:",version"`
//	}
//
//	func (Article) DocumentSpec() esodm.DocumentSpec {
//	    return esodm.DocumentSpec{IndexName: "articles"}
//	}
//
// # Typed indices
//
//	client, _ := esodm.New(esodm.WithAddresses("http://localhost:9200"))
//	articles, _ := esodm.NewIndex[Article](client, "")
//	_ = articles.Ensure(ctx)
//	_ = articles.Save(ctx, &Article{Title: "Go"})
//	hits, _ := articles.Query().
//	    Where(esodm.Where("title").Contains("go")).
//	    Sort(esodm.DescOn("version")).
//	    Page(0, 20).
//	    Do(ctx)
package esodm
