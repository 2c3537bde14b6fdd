// Package tableqa answers natural-language questions about tables.
//
// Usage:
//
//	handle, err := model.Load(model.DefaultConfig())
//	ds, err := loader.New(log).Load(loader.FromPath("people.csv"), loader.DelimitedText, "")
//	answer, err := dispatch.New(handle, handle.MaxLength()).
//	    Answer(ctx, "how old is alice?", ds, nil)
//
// Loading is local: csv, xlsx, a table of a SQLite file, or parquet become an
// immutable dataset.Dataset. Answering is not: the question and the table are
// linearised and sent to a pretrained TAPEX model behind an HTTP inference
// endpoint, and its decoded output is returned as the answer.
//
// Two front-ends share this code: cmd/tableqa (interactive console) and
// cmd/tableqa-web (upload form).
package tableqa
