// Package askdoc provides a Go client for the askdoc retrieval service.
//
// The service indexes extracted document text and answers questions over
// it using embedding retrieval and a chat model:
//
//	client, _ := askdoc.New("http://localhost:8080", askdoc.WithAPIKey("secret"))
//	client.Ingest(ctx, askdoc.IngestRequest{Source: "paper.pdf", Text: text})
//	resp, _ := client.Query(ctx, "What does the paper conclude?")
//	fmt.Println(resp.Answer, resp.Sources)
//
// All errors returned by the client are checkable with errors.Is against
// the sentinel errors in this package.
package askdoc
