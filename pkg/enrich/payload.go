package enrich

import "encoding/json"

// PayloadShape identifies which known wire shape a keyword payload used.
// The external service has shipped several formats over time; each is
// parsed explicitly instead of probing field names at runtime.
type PayloadShape string

const (
	ShapeStringList   PayloadShape = "string-list"  // ["a", "b"]
	ShapeTermObjects  PayloadShape = "term-objects" // [{"term": "a"}, ...]
	ShapeWrapped      PayloadShape = "wrapped"      // {"keywords": <one of the above>}
	ShapeUnrecognized PayloadShape = "unrecognized"
)

// KeywordPayload is the parsed form of a keyword-generation result.
type KeywordPayload struct {
	Shape    PayloadShape `json:"shape"`
	Keywords []string     `json:"keywords"`
}

// termObject covers the object-list variants; older producers used
// "keyword" instead of "term".
type termObject struct {
	Term    string `json:"term"`
	Keyword string `json:"keyword"`
}

// ParseKeywordPayload decodes a keyword result payload into its known
// shape. Unknown shapes come back as ShapeUnrecognized with no keywords;
// callers surface that rather than guessing.
func ParseKeywordPayload(raw json.RawMessage) KeywordPayload {
	if len(raw) == 0 {
		return KeywordPayload{Shape: ShapeUnrecognized}
	}

	var strs []string
	if err := json.Unmarshal(raw, &strs); err == nil {
		return KeywordPayload{Shape: ShapeStringList, Keywords: strs}
	}

	var objs []termObject
	if err := json.Unmarshal(raw, &objs); err == nil {
		keywords := make([]string, 0, len(objs))
		for _, o := range objs {
			switch {
			case o.Term != "":
				keywords = append(keywords, o.Term)
			case o.Keyword != "":
				keywords = append(keywords, o.Keyword)
			}
		}
		if len(keywords) > 0 {
			return KeywordPayload{Shape: ShapeTermObjects, Keywords: keywords}
		}
	}

	var wrapped struct {
		Keywords json.RawMessage `json:"keywords"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && len(wrapped.Keywords) > 0 {
		inner := ParseKeywordPayload(wrapped.Keywords)
		if inner.Shape != ShapeUnrecognized {
			return KeywordPayload{Shape: ShapeWrapped, Keywords: inner.Keywords}
		}
	}

	return KeywordPayload{Shape: ShapeUnrecognized}
}
