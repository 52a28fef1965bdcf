package stack

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidSelection is returned for a selection whose keys do not form a
// stack.
var ErrInvalidSelection = errors.New("invalid component selection")

// Selection names the components of a stack by registry key. Catalog and
// QueryEngine are optional.
type Selection struct {
	Storage     string
	Catalog     string
	QueryEngine string
}

// Validate checks that a storage is selected. A query engine without a
// catalog is a catalog-free stack and stays valid.
func (s Selection) Validate() error {
	if s.Storage == "" {
		return fmt.Errorf("%w: a storage is required", ErrInvalidSelection)
	}
	return nil
}

func (s Selection) String() string {
	parts := []string{"storage=" + s.Storage}
	if s.Catalog != "" {
		parts = append(parts, "catalog="+s.Catalog)
	}
	if s.QueryEngine != "" {
		parts = append(parts, "query_engine="+s.QueryEngine)
	}
	return strings.Join(parts, " ")
}
