package service

import (
	"strings"

	"github.com/Jeffail/gabs"
	"github.com/parkinsons-variant-viewer/pkg/external"
)

// Helpers for reading XML-derived payloads. None of them fail: a missing key
// or a value of the wrong shape yields an empty container.

func emptyNode() *gabs.Container {
	c, _ := gabs.Consume(nil)
	return c
}

func wrap(v interface{}) *gabs.Container {
	c, _ := gabs.Consume(v)
	return c
}

// rootNode wraps a payload for traversal
func rootNode(p external.Payload) *gabs.Container {
	if p == nil {
		return emptyNode()
	}
	return wrap(map[string]interface{}(p))
}

// field returns the child under key when c holds a mapping
func field(c *gabs.Container, key string) *gabs.Container {
	if c == nil {
		return emptyNode()
	}
	if _, ok := c.Data().(map[string]interface{}); !ok {
		return emptyNode()
	}
	return c.Search(key)
}

// path follows keys one mapping at a time
func path(c *gabs.Container, keys ...string) *gabs.Container {
	for _, key := range keys {
		c = field(c, key)
	}
	return c
}

// sequence coerces a node into a slice: a list yields its elements, a lone
// scalar or mapping yields a one-element slice and a missing node yields none.
func sequence(c *gabs.Container) []*gabs.Container {
	if c == nil || c.Data() == nil {
		return nil
	}
	if items, ok := c.Data().([]interface{}); ok {
		out := make([]*gabs.Container, 0, len(items))
		for _, item := range items {
			if item != nil {
				out = append(out, wrap(item))
			}
		}
		return out
	}
	return []*gabs.Container{c}
}

// first returns the first element of sequence(c), or an empty node
func first(c *gabs.Container) *gabs.Container {
	items := sequence(c)
	if len(items) == 0 {
		return emptyNode()
	}
	return items[0]
}

// text returns the trimmed string value of c. Elements that carried
// attributes keep their text under "#text".
func text(c *gabs.Container) string {
	if c == nil {
		return ""
	}
	switch v := c.Data().(type) {
	case string:
		return strings.TrimSpace(v)
	case map[string]interface{}:
		if s, ok := v["#text"].(string); ok {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// isMapping reports whether c holds a non-empty mapping
func isMapping(c *gabs.Container) bool {
	if c == nil {
		return false
	}
	m, ok := c.Data().(map[string]interface{})
	return ok && len(m) > 0
}
