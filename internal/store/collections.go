package store

import (
	"fmt"
	"reflect"
	"sort"
	"time"
)

// Collection names one of the fixed object collections.
type Collection string

const (
	CollectionProducts       Collection = "products"
	CollectionCapturedFrames Collection = "capturedFrames"
	CollectionCatalogs       Collection = "catalogs"
	CollectionUsers          Collection = "users"
	CollectionOrders         Collection = "orders"
	CollectionSessions       Collection = "sessions"
	CollectionSettings       Collection = "settings"
)

type collectionDef struct {
	table string
	// indexes maps an index name to the JSON path it covers. The same
	// json_extract expression is used in schema.sql so SQLite picks the index.
	indexes map[string]string
}

var collectionDefs = map[Collection]collectionDef{
	CollectionProducts: {
		table: "products",
		indexes: map[string]string{
			"vendorId":    "$.vendorId",
			"category":    "$.category",
			"isPublished": "$.isPublished",
			"sessionId":   "$.sessionId",
		},
	},
	CollectionCapturedFrames: {
		table: "captured_frames",
		indexes: map[string]string{
			"sessionId":   "$.sessionId",
			"timestamp":   "$.timestamp",
			"isProcessed": "$.isProcessed",
		},
	},
	CollectionCatalogs: {
		table: "catalogs",
		indexes: map[string]string{
			"vendorId":    "$.vendorId",
			"isPublished": "$.isPublished",
		},
	},
	CollectionUsers: {
		table: "users",
		indexes: map[string]string{
			"email": "$.email",
			"role":  "$.role",
		},
	},
	CollectionOrders: {
		table: "orders",
		indexes: map[string]string{
			"customerId": "$.customerId",
			"vendorId":   "$.vendorId",
			"status":     "$.status",
			"createdAt":  "$.createdAt",
		},
	},
	CollectionSessions: {
		table: "sessions",
		indexes: map[string]string{
			"vendorId":  "$.vendorId",
			"status":    "$.status",
			"startTime": "$.startTime",
		},
	},
	CollectionSettings: {
		table:   "settings",
		indexes: map[string]string{},
	},
}

// Collections returns every collection name in a stable order.
func Collections() []Collection {
	out := make([]Collection, 0, len(collectionDefs))
	for c := range collectionDefs {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ParseCollection validates a collection name.
func ParseCollection(name string) (Collection, error) {
	c := Collection(name)
	if _, ok := collectionDefs[c]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownCollection, name)
	}
	return c, nil
}

// Indexes returns the secondary index names declared for a collection.
func Indexes(c Collection) []string {
	def, ok := collectionDefs[c]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(def.indexes))
	for name := range def.indexes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func defFor(c Collection) (collectionDef, error) {
	def, ok := collectionDefs[c]
	if !ok {
		return collectionDef{}, fmt.Errorf("%w: %q", ErrUnknownCollection, string(c))
	}
	return def, nil
}

// indexValue converts a query value into the representation json_extract
// yields for the stored JSON: booleans become 0/1 and times use the same
// RFC 3339 layout encoding/json writes.
func indexValue(value any) any {
	switch v := value.(type) {
	case bool:
		if v {
			return int64(1)
		}
		return int64(0)
	case time.Time:
		return v.Format(time.RFC3339Nano)
	case *time.Time:
		if v == nil {
			return nil
		}
		return v.Format(time.RFC3339Nano)
	case fmt.Stringer:
		return v.String()
	}
	if rv := reflect.ValueOf(value); rv.IsValid() && rv.Kind() == reflect.String {
		return rv.String()
	}
	return value
}
