package corpus

import (
	"encoding/json"
	"io"

	"github.com/pkg/errors"
)

// WriteJSONL writes docs one JSON object per line.
func WriteJSONL(w io.Writer, docs []*Document) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for i, doc := range docs {
		if err := enc.Encode(doc); err != nil {
			return errors.Wrapf(err, "failed to encode document #%d (%s)", i, doc.ID)
		}
	}
	return nil
}

// ReadJSONL reads documents written by WriteJSONL.
func ReadJSONL(r io.Reader) ([]*Document, error) {
	dec := json.NewDecoder(r)
	var docs []*Document
	for {
		doc := &Document{}
		err := dec.Decode(doc)
		if err == io.EOF {
			return docs, nil
		}
		if err != nil {
			return nil, errors.Wrapf(err, "failed to decode document #%d", len(docs))
		}
		docs = append(docs, doc)
	}
}
