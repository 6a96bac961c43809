// Package queue hands record store batches to a merge worker over Redis.
//
// Plugins never write proposals into a remote graph themselves. A producer
// pushes each record store as a Batch onto a Redis list; a Worker pops
// batches, merges them into its graph.Sink with graph.Merge and publishes a
// Result on the batch's result channel.
//
// # Redis Key Schema
//
//   - graphkit:merge:queue - default list of pending batches (LPUSH/BRPOP)
//   - graphkit:merge:results:<batchID> - pub/sub channel for one batch result
//   - graphkit:worker:<id>:health - heartbeat string with a TTL
//
// # Usage
//
//	client, err := queue.NewRedisClient(queue.RedisOptions{URL: "redis://localhost:6379"})
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	results, _ := client.Subscribe(ctx, queue.ResultChannel(batchID))
//	batchID, err := queue.Submit(ctx, client, queue.DefaultList, "split-nodes", store)
//
// A worker runs until its context is cancelled:
//
//	w := queue.NewWorker(client, graph.NewMemoryGraph(), queue.WithLogger(logger))
//	err := w.Run(ctx)
package queue
