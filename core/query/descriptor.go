package query

import (
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
)

type Direction string

const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

type (
	// Descriptor is the request shape sent to the generic search endpoints.
	Descriptor struct {
		Limit       int       `json:"limit" validate:"min=0"`
		Offset      int       `json:"offset" validate:"min=0"`
		GetThisData *DataNode `json:"getThisData" validate:"required"`
	}

	// DataNode is one (possibly nested) entity of a Descriptor.
	// Datasource is the addressing key used by Update and Value.
	DataNode struct {
		Datasource string      `json:"datasource" validate:"required,identifier"`
		As         string      `json:"as,omitempty"`
		Required   *bool       `json:"required,omitempty"` // inner (true) vs outer join
		Attributes []string    `json:"attributes,omitempty"`
		Where      Where       `json:"where,omitempty"`
		Order      []Order     `json:"order,omitempty" validate:"dive"`
		Include    []*DataNode `json:"include,omitempty" validate:"dive,required"`
	}

	// Where maps a field name to a literal or to an operator Condition.
	Where map[string]interface{}

	Order struct {
		Field     string    `json:"field" validate:"required"`
		Direction Direction `json:"direction" validate:"oneof=ASC DESC"`
	}

	Record map[string]interface{}

	Result struct {
		Results    []Record `json:"results"`
		TotalCount int      `json:"totalCount"`
		Limit      int      `json:"limit"`
		Offset     int      `json:"offset"`
	}
)

// New returns a Descriptor rooted at datasource.
func New(datasource string, limit int, includes ...*DataNode) Descriptor {
	return Descriptor{
		Limit: limit,
		GetThisData: &DataNode{
			Datasource: datasource,
			Where:      Where{},
			Include:    includes,
		},
	}
}

// Include returns a nested node joined under alias.
func Include(datasource, as string, required bool, includes ...*DataNode) *DataNode {
	return &DataNode{
		Datasource: datasource,
		As:         as,
		Required:   &required,
		Where:      Where{},
		Include:    includes,
	}
}

func Ascending(field string) Order  { return Order{Field: field, Direction: Asc} }
func Descending(field string) Order { return Order{Field: field, Direction: Desc} }

// MarshalJSON encodes an Order as the ["field", "DIRECTION"] pair expected by the backend.
func (o Order) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{o.Field, string(o.Direction)})
}

func (o *Order) UnmarshalJSON(data []byte) error {
	var pair []string
	if err := json.Unmarshal(data, &pair); err != nil {
		return errors.Wrap(err, "decoding order pair")
	}
	if len(pair) != 2 {
		return fmt.Errorf("order must be a [field, direction] pair, got %d items", len(pair))
	}
	o.Field = pair[0]
	o.Direction = Direction(pair[1])
	return nil
}
