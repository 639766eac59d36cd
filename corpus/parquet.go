package corpus

import (
	"io"

	"github.com/gomlx/nerprep/tokenizers/api"
	"github.com/parquet-go/parquet-go"
	"github.com/pkg/errors"
)

// documentRow is the Parquet schema of a Document.
type documentRow struct {
	ID       string      `parquet:"id"`
	TaskID   int64       `parquet:"task_id"`
	Text     string      `parquet:"text,zstd"`
	Tokens   []spanRow   `parquet:"tokens"`
	Entities []entityRow `parquet:"entities"`
}

type spanRow struct {
	Start int64 `parquet:"start"`
	End   int64 `parquet:"end"`
}

type entityRow struct {
	Start int64  `parquet:"start"`
	End   int64  `parquet:"end"`
	Label string `parquet:"label,dict"`
}

func toRow(doc *Document) documentRow {
	row := documentRow{
		ID:       doc.ID,
		TaskID:   doc.TaskID,
		Text:     doc.Text,
		Tokens:   make([]spanRow, len(doc.Tokens)),
		Entities: make([]entityRow, len(doc.Entities)),
	}
	for i, span := range doc.Tokens {
		row.Tokens[i] = spanRow{Start: int64(span.Start), End: int64(span.End)}
	}
	for i, ent := range doc.Entities {
		row.Entities[i] = entityRow{Start: int64(ent.Start), End: int64(ent.End), Label: ent.Label}
	}
	return row
}

func fromRow(row *documentRow) *Document {
	doc := &Document{
		ID:       row.ID,
		TaskID:   row.TaskID,
		Text:     row.Text,
		Tokens:   make([]api.TokenSpan, len(row.Tokens)),
		Entities: make([]Entity, len(row.Entities)),
	}
	for i, span := range row.Tokens {
		doc.Tokens[i] = api.TokenSpan{Start: int(span.Start), End: int(span.End)}
	}
	for i, ent := range row.Entities {
		doc.Entities[i] = Entity{Start: int(ent.Start), End: int(ent.End), Label: ent.Label}
	}
	return doc
}

// WriteParquet writes docs as a Parquet file, one row per document.
func WriteParquet(w io.Writer, docs []*Document) error {
	rows := make([]documentRow, len(docs))
	for i, doc := range docs {
		rows[i] = toRow(doc)
	}
	if err := parquet.Write(w, rows); err != nil {
		return errors.Wrapf(err, "failed to write %d documents as parquet", len(docs))
	}
	return nil
}

// ReadParquet reads documents from a Parquet file of the given size written by WriteParquet.
func ReadParquet(r io.ReaderAt, size int64) ([]*Document, error) {
	rows, err := parquet.Read[documentRow](r, size)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read parquet documents")
	}
	docs := make([]*Document, len(rows))
	for i := range rows {
		docs[i] = fromRow(&rows[i])
	}
	return docs, nil
}
