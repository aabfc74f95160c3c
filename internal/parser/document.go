package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// decodeDocument parses the document strictly as JSON first and falls back to YAML.
// Both paths produce an ordered node tree so path and method order survive.
func decodeDocument(data []byte) (*yaml.Node, error) {
	if json.Valid(data) {
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		return decodeJSONNode(dec)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("not valid JSON, YAML fallback failed: %w", err)
	}
	if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		return doc.Content[0], nil
	}
	return &doc, nil
}

// decodeJSONNode reads one JSON value from the token stream as a YAML node
func decodeJSONNode(dec *json.Decoder) (*yaml.Node, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	switch v := tok.(type) {
	case json.Delim:
		switch v {
		case '{':
			node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, _ := keyTok.(string)
				value, err := decodeJSONNode(dec)
				if err != nil {
					return nil, err
				}
				node.Content = append(node.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}, value)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return node, nil
		case '[':
			node := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
			for dec.More() {
				item, err := decodeJSONNode(dec)
				if err != nil {
					return nil, err
				}
				node.Content = append(node.Content, item)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return node, nil
		}
		return nil, fmt.Errorf("unexpected delimiter %q", v)
	case string:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v}, nil
	case json.Number:
		tag := "!!int"
		if strings.ContainsAny(v.String(), ".eE") {
			tag = "!!float"
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: v.String()}, nil
	case bool:
		value := "false"
		if v {
			value = "true"
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: value}, nil
	case nil:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}, nil
	}
	return nil, fmt.Errorf("unexpected JSON token %v", tok)
}

// resolveAlias follows YAML aliases to the anchored node
func resolveAlias(n *yaml.Node) *yaml.Node {
	for n != nil && n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	return n
}

// mappingValue returns the value stored under key in a mapping node, or nil
func mappingValue(n *yaml.Node, key string) *yaml.Node {
	n = resolveAlias(n)
	if n == nil || n.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			return resolveAlias(n.Content[i+1])
		}
	}
	return nil
}

// nodeValue converts a node into plain Go values with string map keys, suitable for encoding/json
func nodeValue(n *yaml.Node) interface{} {
	n = resolveAlias(n)
	if n == nil {
		return nil
	}

	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil
		}
		return nodeValue(n.Content[0])
	case yaml.MappingNode:
		out := make(map[string]interface{}, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			key, value := n.Content[i], n.Content[i+1]
			if key.Tag == "!!merge" {
				if merged, ok := nodeValue(value).(map[string]interface{}); ok {
					for k, v := range merged {
						if _, exists := out[k]; !exists {
							out[k] = v
						}
					}
				}
				continue
			}
			out[key.Value] = nodeValue(value)
		}
		return out
	case yaml.SequenceNode:
		out := make([]interface{}, 0, len(n.Content))
		for _, item := range n.Content {
			out = append(out, nodeValue(item))
		}
		return out
	case yaml.ScalarNode:
		var v interface{}
		if err := n.Decode(&v); err != nil {
			return n.Value
		}
		return v
	}
	return nil
}

// decodeNode decodes a node into a kin-openapi structure through its JSON form
func decodeNode(n *yaml.Node, into interface{}) error {
	data, err := json.Marshal(nodeValue(n))
	if err != nil {
		return err
	}
	return json.Unmarshal(data, into)
}

// refResolver resolves local JSON pointers ("#/components/schemas/Pet") against the raw document
type refResolver struct {
	root *yaml.Node
}

// decode looks up ref and decodes the target into the given value. It reports whether the ref was found.
func (r *refResolver) decode(ref string, into interface{}) bool {
	if r == nil || r.root == nil || !strings.HasPrefix(ref, "#/") {
		return false
	}

	node := r.root
	for _, token := range strings.Split(strings.TrimPrefix(ref, "#/"), "/") {
		token = strings.ReplaceAll(strings.ReplaceAll(token, "~1", "/"), "~0", "~")
		node = mappingValue(node, token)
		if node == nil {
			return false
		}
	}
	return decodeNode(node, into) == nil
}
