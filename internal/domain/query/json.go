package query

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Parse decodes a JSON document into a Node, preserving object member order
// and number literals exactly as they appeared on the wire.
func Parse(data []byte) (Node, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	n, err := decodeValue(dec)
	if err != nil {
		return Node{}, err
	}

	// Reject trailing garbage after the first document.
	if _, err := dec.Token(); err == nil {
		return Node{}, fmt.Errorf("unexpected data after JSON document")
	}
	return n, nil
}

func decodeValue(dec *json.Decoder) (Node, error) {
	tok, err := dec.Token()
	if err != nil {
		return Node{}, fmt.Errorf("decode value: %w", err)
	}
	return decodeToken(dec, tok)
}

func decodeToken(dec *json.Decoder, tok json.Token) (Node, error) {
	switch t := tok.(type) {
	case nil:
		return NullNode(), nil
	case bool:
		return BoolNode(t), nil
	case json.Number:
		return NumberNode(t.String()), nil
	case string:
		return StringNode(t), nil
	case json.Delim:
		switch t {
		case '{':
			return decodeObject(dec)
		case '[':
			return decodeArray(dec)
		}
	}
	return Node{}, fmt.Errorf("unexpected JSON token %v", tok)
}

func decodeObject(dec *json.Decoder) (Node, error) {
	var members []Member
	seen := map[string]struct{}{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return Node{}, fmt.Errorf("decode object key: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return Node{}, fmt.Errorf("object key is not a string: %v", keyTok)
		}
		if _, dup := seen[key]; dup {
			return Node{}, fmt.Errorf("duplicate object key %q", key)
		}
		seen[key] = struct{}{}

		val, err := decodeValue(dec)
		if err != nil {
			return Node{}, err
		}
		members = append(members, Member{Key: key, Value: val})
	}
	if _, err := dec.Token(); err != nil { // consume '}'
		return Node{}, fmt.Errorf("decode object end: %w", err)
	}
	return ObjectNode(members...), nil
}

func decodeArray(dec *json.Decoder) (Node, error) {
	var elems []Node
	for dec.More() {
		val, err := decodeValue(dec)
		if err != nil {
			return Node{}, err
		}
		elems = append(elems, val)
	}
	if _, err := dec.Token(); err != nil { // consume ']'
		return Node{}, fmt.Errorf("decode array end: %w", err)
	}
	return ArrayNode(elems...), nil
}

// MarshalJSON renders the node back to JSON with member order intact.
// Invalid nodes render as null so that optional fields stay representable.
func (n Node) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := n.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalJSON parses JSON into the node via Parse.
func (n *Node) UnmarshalJSON(data []byte) error {
	if string(bytes.TrimSpace(data)) == "null" {
		*n = NullNode()
		return nil
	}
	parsed, err := Parse(data)
	if err != nil {
		return err
	}
	*n = parsed
	return nil
}

func (n Node) encode(buf *bytes.Buffer) error {
	switch n.kind {
	case Invalid, Null:
		buf.WriteString("null")
	case Bool:
		if n.b {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case Number:
		if !validNumberLiteral(n.num) {
			return fmt.Errorf("invalid number literal %q", n.num)
		}
		buf.WriteString(n.num)
	case String:
		data, err := json.Marshal(n.str)
		if err != nil {
			return err
		}
		buf.Write(data)
	case Array:
		buf.WriteByte('[')
		for i, e := range n.arr {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := e.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case Object:
		buf.WriteByte('{')
		for i, m := range n.obj {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(m.Key)
			if err != nil {
				return err
			}
			buf.Write(key)
			buf.WriteByte(':')
			if err := m.Value.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	}
	return nil
}

func validNumberLiteral(s string) bool {
	if s == "" {
		return false
	}
	return !strings.ContainsAny(s, "{}[]\",: \t\n")
}
