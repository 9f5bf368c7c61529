package jsonsql

import (
	"encoding/json"
	"reflect"
	"sort"
	"strconv"
	"time"
)

// M is an unordered descriptor mapping. Its keys are visited in sorted order.
type M map[string]any

// KV is one entry of an ordered descriptor mapping.
type KV struct {
	Key   string
	Value any
}

// D is an ordered descriptor mapping. Its keys are visited in insertion order,
// which matters wherever the rendered SQL lists them (fields, sort, values).
type D []KV

// Get returns the value stored under key.
func (d D) Get(key string) (any, bool) {
	for _, kv := range d {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return nil, false
}

// Map flattens d into an M, later duplicates win.
func (d D) Map() M {
	m := make(M, len(d))
	for _, kv := range d {
		m[kv.Key] = kv.Value
	}
	return m
}

// entries returns the key/value pairs of a mapping value in iteration order.
func entries(v any) ([]KV, bool) {
	switch t := v.(type) {
	case D:
		return t, true
	case []KV:
		return t, true
	case M:
		return sortedEntries(t), true
	case map[string]any:
		return sortedEntries(t), true
	case nil:
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	keys := make([]string, 0, rv.Len())
	for _, k := range rv.MapKeys() {
		keys = append(keys, k.String())
	}
	sort.Strings(keys)
	out := make([]KV, 0, len(keys))
	for _, k := range keys {
		out = append(out, KV{Key: k, Value: rv.MapIndex(reflect.ValueOf(k).Convert(rv.Type().Key())).Interface()})
	}
	return out, true
}

func sortedEntries(m map[string]any) []KV {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]KV, 0, len(keys))
	for _, k := range keys {
		out = append(out, KV{Key: k, Value: m[k]})
	}
	return out
}

// toM converts any mapping to M. Non mappings yield false.
func toM(v any) (M, bool) {
	switch t := v.(type) {
	case M:
		return t, true
	case map[string]any:
		return M(t), true
	case D:
		return t.Map(), true
	}
	kvs, ok := entries(v)
	if !ok {
		return nil, false
	}
	m := make(M, len(kvs))
	for _, kv := range kvs {
		m[kv.Key] = kv.Value
	}
	return m, true
}

func isMapping(v any) bool {
	switch v.(type) {
	case M, D, []KV, map[string]any:
		return true
	case nil:
		return false
	}
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Map && rv.Type().Key().Kind() == reflect.String
}

// items returns the elements of a list value. Strings and byte slices are not lists.
func items(v any) ([]any, bool) {
	switch t := v.(type) {
	case []any:
		return t, true
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out, true
	case []byte, D, []KV, nil:
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array || isBinary(v) {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// isBinary reports whether v is a byte slice of any named type, such as
// json.RawMessage.
func isBinary(v any) bool {
	rt := reflect.TypeOf(v)
	return rt != nil && rt.Kind() == reflect.Slice && rt.Elem().Kind() == reflect.Uint8
}

func isList(v any) bool {
	_, ok := items(v)
	return ok
}

// isEmpty reports whether v is nil, an empty mapping or an empty list.
func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	if kvs, ok := entries(v); ok {
		return len(kvs) == 0
	}
	if list, ok := items(v); ok {
		return len(list) == 0
	}
	return false
}

func isNumber(v any) bool {
	if _, ok := v.(json.Number); ok {
		return true
	}
	if v == nil {
		return false
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func formatNumber(v any) string {
	switch t := v.(type) {
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	case int:
		return strconv.FormatInt(int64(t), 10)
	case int64:
		return strconv.FormatInt(t, 10)
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10)
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 64)
	default:
		return strconv.FormatUint(rv.Uint(), 10)
	}
}

func toFloat(v any) (float64, bool) {
	if !isNumber(v) {
		return 0, false
	}
	f, err := strconv.ParseFloat(formatNumber(v), 64)
	return f, err == nil
}

func toInt(v any) (int, bool) {
	f, ok := toFloat(v)
	if !ok || f != float64(int(f)) {
		return 0, false
	}
	return int(f), true
}

// truthy follows the loose truthiness of descriptor flags such as `distinct: 1`.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	}
	if isNumber(v) {
		f, _ := toFloat(v)
		return f != 0
	}
	return true
}

// isObject reports values that are captured as a whole by the database client.
func isObject(v any) bool {
	if _, ok := v.(time.Time); ok {
		return true
	}
	if isMapping(v) {
		return true
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return false
		}
		rv = rv.Elem()
	}
	return rv.Kind() == reflect.Struct || rv.Kind() == reflect.Map
}

func kindOf(v any) string {
	switch {
	case v == nil:
		return "null"
	case isNumber(v):
		return "number"
	}
	switch v.(type) {
	case string:
		return "string"
	case bool:
		return "boolean"
	case []byte:
		return "binary"
	}
	if isMapping(v) {
		return "object"
	}
	if isList(v) {
		return "array"
	}
	return reflect.TypeOf(v).String()
}
