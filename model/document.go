package model

// Document is a flexible map representing a JSON document.
// The documentID is the only required field for document identification.
// Coordinates are read from the field named by the index settings
// (e.g. doc["location"]); every other field is stored and returned untouched.
type Document map[string]interface{}

// GetDocumentID returns the documentID if it's stored in the document map under "documentID" key.
func (d Document) GetDocumentID() (string, bool) {
	if id, ok := d["documentID"]; ok {
		if str, sok := id.(string); sok {
			if str != "" {
				return str, true
			}
		}
	}
	return "", false
}

// Field returns the value stored under name. A key holding null counts as absent.
func (d Document) Field(name string) (interface{}, bool) {
	v, ok := d[name]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}
