package sync

import "github.com/tidwall/gjson"

// Source wraps a parsed JSON document for path-based reads.
type Source struct {
	data gjson.Result
}

func (s Source) StringForPath(path string) (string, bool) {
	result := s.data.Get(path)
	return result.String(), result.Exists() && (result.Value() != nil)
}

func (s Source) BoolForPath(path string) (bool, bool) {
	result := s.data.Get(path)
	return result.Bool(), result.Exists() && (result.Value() != nil)
}

func (s Source) Get(path string) gjson.Result {
	return s.data.Get(path)
}

func (s Source) HasKey(key string) bool {
	return s.data.Get(key).Exists()
}

// PropertiesMap flattens the object at path into a string map. Non-string
// values are coerced; a missing or non-object value yields nil.
func (s Source) PropertiesMap(path string) map[string]string {
	obj := s.data.Get(path)
	if !obj.IsObject() {
		return nil
	}
	result := make(map[string]string)
	obj.ForEach(func(k, v gjson.Result) bool {
		result[k.String()] = v.String()
		return true
	})
	return result
}

// Flatten coerces the document's top-level keys into a string map.
func (s Source) Flatten() map[string]string {
	result := make(map[string]string)
	s.data.ForEach(func(k, v gjson.Result) bool {
		result[k.String()] = v.String()
		return true
	})
	return result
}

// Event is one webhook payload of unknown shape.
type Event struct {
	Source
}

// Page is a Notion page document.
type Page struct {
	Source Source
}
