// Package bucketsample samples records from files stored in an
// object-storage bucket to infer a JSON-Schema-like shape for each table.
//
// It discovers candidate objects by name pattern and modification-time
// window, transparently unwraps one level of gzip/zip, decodes CSV, JSONL
// and Parquet content into a uniform row representation, and merges the
// sampled rows into one schema while bounding the amount of data read.
//
// Basic usage:
//
//	store, _ := s3.New(s3.Config{Bucket: "my-bucket"})
//	sampler := sample.New(store, "my-bucket", sample.DefaultOptions())
//	schema, stats, err := sampler.SampleSchema(ctx, bucketsample.TableSpec{
//	    TableName:     "orders",
//	    SearchPattern: `orders/.*\.csv`,
//	})
//
// Sampling is deliberately approximate: decoders keep every Nth row, each
// file is capped at a configurable record count, and at most a handful of
// files are inspected per run.
package bucketsample
