// Package pipeline provides small pull-based pipelines over iterators.
//
// Nothing runs until values are pulled with Collect or Drain. Each stage
// pulls from the one before it, so a slow consumer slows the producer
// without explicit flow control.
//
// The audit fetches the chunks that overlap a sample window with Parallel
// and decodes them with Map; the indexer encodes chunks with Map, uploads
// them with Parallel and logs each stored chunk with Tap; the kafka worker
// drains a message iterator.
//
//	chunks, err := pipeline.Collect(ctx, pipeline.Map(
//	    pipeline.Parallel(pipeline.FromSlice(rows), 3, fetchChunk), decodeChunk))
//
// Parallel does not preserve order. Callers that need ordering sort the
// collected slice.
package pipeline
