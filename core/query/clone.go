package query

// Clone returns a deep copy of d.
func Clone(d Descriptor) Descriptor {
	return Descriptor{
		Limit:       d.Limit,
		Offset:      d.Offset,
		GetThisData: d.GetThisData.clone(),
	}
}

func (n *DataNode) clone() *DataNode {
	if n == nil {
		return nil
	}
	c := &DataNode{
		Datasource: n.Datasource,
		As:         n.As,
		Attributes: cloneStrings(n.Attributes),
		Where:      cloneWhere(n.Where),
		Order:      cloneOrder(n.Order),
		Include:    cloneNodes(n.Include),
	}
	if n.Required != nil {
		r := *n.Required
		c.Required = &r
	}
	return c
}

func cloneNodes(nodes []*DataNode) []*DataNode {
	if nodes == nil {
		return nil
	}
	c := make([]*DataNode, len(nodes))
	for i, n := range nodes {
		c[i] = n.clone()
	}
	return c
}

func cloneWhere(w Where) Where {
	if w == nil {
		return nil
	}
	c := make(Where, len(w))
	for k, v := range w {
		c[k] = cloneValue(v)
	}
	return c
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append(make([]string, 0, len(s)), s...)
}

func cloneOrder(o []Order) []Order {
	if o == nil {
		return nil
	}
	return append(make([]Order, 0, len(o)), o...)
}

// cloneValue copies the container types a condition can be built from; scalars are returned as is.
func cloneValue(v interface{}) interface{} {
	switch val := v.(type) {
	case Condition:
		c := make(Condition, len(val))
		for k, item := range val {
			c[k] = cloneValue(item)
		}
		return c
	case Where:
		return cloneWhere(val)
	case map[string]interface{}:
		c := make(map[string]interface{}, len(val))
		for k, item := range val {
			c[k] = cloneValue(item)
		}
		return c
	case []interface{}:
		c := make([]interface{}, len(val))
		for i, item := range val {
			c[i] = cloneValue(item)
		}
		return c
	case []string:
		return cloneStrings(val)
	case []int:
		return append(make([]int, 0, len(val)), val...)
	default:
		return v
	}
}
