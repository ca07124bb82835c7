// Package pensieve provides an embedded Go client for the pensieve
// retrieval pipeline: vector search over per-user collections in
// Redis plus authoritative content joins from Postgres.
//
//	client, _ := pensieve.New(ctx,
//	    pensieve.WithRedis("localhost:6379", ""),
//	    pensieve.WithContentDSN("postgres://..."),
//	    pensieve.WithEmbedder(myEmbedder),
//	)
//	defer client.Close()
//
//	chunks, _ := client.Retrieve(ctx, pensieve.Query{
//	    Text:   "what did we decide about the rollout?",
//	    UserID: "user-42",
//	})
package pensieve
