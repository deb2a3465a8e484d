// Package tickerdex embeds the ticker-scoped vector index in a Go program.
//
// Every ticker owns an append-only index of documents and their embeddings,
// persisted under a local directory and optionally mirrored to a blob store
// (Redis, Valkey or a bbolt file).
//
//	client, _ := tickerdex.New(
//	    tickerdex.WithRootDir("faiss_indices"),
//	    tickerdex.WithRedis("localhost:6379", ""),
//	    tickerdex.WithEmbedder(myEmbedder),
//	)
//	defer client.Close()
//
//	_, _ = client.Ingest(ctx, "MSFT", []string{"Azure revenue grew 29%."})
//	text, _ := client.Retrieve(ctx, "MSFT", "How is the cloud business doing?", 5)
//
// Retrieve never returns an empty string: when nothing can be found it
// returns a readable sentinel, see IsSentinel.
package tickerdex
