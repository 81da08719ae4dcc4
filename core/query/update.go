package query

import "strings"

// Patch holds the keys to change on one DataNode.
// Where is merged key by key; every other non-nil field replaces the node's value.
type Patch struct {
	Where      Where        `json:"where,omitempty"`
	Attributes *[]string    `json:"attributes,omitempty"`
	Order      *[]Order     `json:"order,omitempty"`
	Include    *[]*DataNode `json:"include,omitempty"`
	As         *string      `json:"as,omitempty"`
	Required   *bool        `json:"required,omitempty"`
}

func (p Patch) IsEmpty() bool {
	return p.Where == nil && p.Attributes == nil && p.Order == nil &&
		p.Include == nil && p.As == nil && p.Required == nil
}

// WhereKey is a Patch setting a single where condition.
func WhereKey(field string, cond interface{}) Patch {
	return Patch{Where: Where{field: cond}}
}

func OrderBy(orders ...Order) Patch {
	return Patch{Order: &orders}
}

// Update returns a copy of d with p applied to the first node, depth-first pre-order, whose
// datasource matches. d is never modified.
// When no node matches, the copy is returned untouched and ok is false.
func Update(d Descriptor, datasource string, p Patch) (nd Descriptor, ok bool) {
	nd = Clone(d)
	node := find(nd.GetThisData, datasource)
	if node == nil {
		return nd, false
	}
	p.applyTo(node)
	return nd, true
}

func (p Patch) applyTo(node *DataNode) {
	if p.Where != nil {
		if node.Where == nil {
			node.Where = make(Where, len(p.Where))
		}
		// keys absent from the node are added too
		for k, v := range p.Where {
			node.Where[k] = cloneValue(v)
		}
	}
	if p.Attributes != nil {
		node.Attributes = cloneStrings(*p.Attributes)
	}
	if p.Order != nil {
		node.Order = cloneOrder(*p.Order)
	}
	if p.Include != nil {
		node.Include = cloneNodes(*p.Include)
	}
	if p.As != nil {
		node.As = *p.As
	}
	if p.Required != nil {
		r := *p.Required
		node.Required = &r
	}
}

// Value reads key on the first node matching datasource (same lookup as Update).
// key is a DataNode json field name, or "where.<field>" for a single condition.
func Value(d Descriptor, datasource, key string) (interface{}, bool) {
	node := find(d.GetThisData, datasource)
	if node == nil {
		return nil, false
	}

	if field := strings.TrimPrefix(key, "where."); field != key {
		v, ok := node.Where[field]
		return cloneValue(v), ok
	}
	switch key {
	case "datasource":
		return node.Datasource, true
	case "as":
		return node.As, node.As != ""
	case "required":
		if node.Required == nil {
			return nil, false
		}
		return *node.Required, true
	case "attributes":
		return cloneStrings(node.Attributes), node.Attributes != nil
	case "where":
		return cloneWhere(node.Where), node.Where != nil
	case "order":
		return cloneOrder(node.Order), node.Order != nil
	case "include":
		return cloneNodes(node.Include), node.Include != nil
	}
	return nil, false
}

// Find returns a copy of the first node matching datasource, or nil.
func Find(d Descriptor, datasource string) *DataNode {
	node := find(d.GetThisData, datasource)
	if node == nil {
		return nil
	}
	return node.clone()
}

func find(node *DataNode, datasource string) *DataNode {
	if node == nil {
		return nil
	}
	if node.Datasource == datasource {
		return node
	}
	for _, child := range node.Include {
		if found := find(child, datasource); found != nil {
			return found
		}
	}
	return nil
}

// Walk visits every node depth-first pre-order with its depth; returning false stops the walk.
func Walk(d Descriptor, fn func(node *DataNode, depth int) bool) {
	walk(d.GetThisData, 0, fn)
}

func walk(node *DataNode, depth int, fn func(*DataNode, int) bool) bool {
	if node == nil {
		return true
	}
	if !fn(node, depth) {
		return false
	}
	for _, child := range node.Include {
		if !walk(child, depth+1, fn) {
			return false
		}
	}
	return true
}
